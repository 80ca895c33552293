package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/internal/cloud"
	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/export"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/schedule"
	"github.com/sarigr/uni-schedule-cloud/pkg/localstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ── 测试辅助 ──

type fakeRemote struct {
	mu       sync.Mutex
	token    string
	docs     map[string]*model.Payload
	user     string
	master   bool
	failLoad error
	failAuth error // 非 nil 时 EnsureProfile 返回该错误

	loadGate chan struct{} // 非 nil 时 LoadSchedule 阻塞到关闭
	saveGate chan struct{}
	started  chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: map[string]*model.Payload{}}
}

func (f *fakeRemote) auth(username, pin string) (*dto.TokenResponse, error) {
	if pin != "1234" {
		return nil, &cloud.APIError{Status: 401, Code: 11001, Message: "用户名或 PIN 错误"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = username
	f.token = "tok-" + username
	return &dto.TokenResponse{AccessToken: f.token, User: dto.UserResponse{ID: "id-" + username, Username: username}}, nil
}

func (f *fakeRemote) SignUp(_ context.Context, u, p string) (*dto.TokenResponse, error) {
	return f.auth(u, p)
}

func (f *fakeRemote) SignIn(_ context.Context, u, p string) (*dto.TokenResponse, error) {
	return f.auth(u, p)
}

func (f *fakeRemote) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	return nil
}

func (f *fakeRemote) EnsureProfile(context.Context) (*dto.ProfileResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == "" {
		return nil, &cloud.APIError{Status: 401, Code: 10002, Message: "未认证"}
	}
	if f.failAuth != nil {
		return nil, f.failAuth
	}
	user := strings.TrimPrefix(f.token, "tok-")
	return &dto.ProfileResponse{UserID: "id-" + user, Username: user, IsMaster: f.master}, nil
}

func (f *fakeRemote) LoadSchedule(context.Context) (*model.Payload, error) {
	f.mu.Lock()
	gate, started := f.loadGate, f.started
	user, err := strings.TrimPrefix(f.token, "tok-"), f.failLoad
	f.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		<-gate
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[user], nil
}

func (f *fakeRemote) SaveSchedule(_ context.Context, p model.Payload) (time.Time, error) {
	f.mu.Lock()
	gate, started := f.saveGate, f.started
	f.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[strings.TrimPrefix(f.token, "tok-")] = &p
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), nil
}

func (f *fakeRemote) ListProfiles(context.Context) ([]dto.ProfileResponse, error) {
	if !f.master {
		return nil, &cloud.APIError{Status: 403, Code: 10003, Message: "无权限访问"}
	}
	return []dto.ProfileResponse{{Username: "maria"}}, nil
}

func (f *fakeRemote) ResetPin(_ context.Context, username, _ string) (*dto.ResetPinResponse, error) {
	return &dto.ResetPinResponse{OK: username != "ghost"}, nil
}

func (f *fakeRemote) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeRemote) SetToken(t string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = t
}

func newTestApp(t *testing.T) (*App, *fakeRemote, localstore.Storage) {
	t.Helper()
	storage := localstore.NewMemory()
	store := schedule.NewStore(storage, "el", zap.NewNop())
	require.NoError(t, store.Load())
	remote := newFakeRemote()
	return New(store, remote, storage, zap.NewNop()), remote, storage
}

func cloudDoc(title string) *model.Payload {
	return &model.Payload{
		Slots:   []model.Slot{{ID: "s1", Start: "08:00", End: "10:00", Label: "08:00–10:00"}},
		Courses: []model.Course{{ID: "c1", Title: title}},
		Entries: []model.Entry{{ID: "e1", CourseID: "c1", Day: model.Tuesday, SlotID: "s1", ClassType: model.ClassTheory}},
		Theme:   model.ThemeDark,
	}
}

// ── 登录 / 登出 ──

func TestSignIn_LoadsCloudDocumentIntoScopedStore(t *testing.T) {
	app, remote, storage := newTestApp(t)
	ctx := context.Background()
	remote.docs["maria"] = cloudDoc("Φυσική")

	_, err := app.Store().SaveCourse(schedule.CourseInput{Title: "Τοπικό"})
	require.NoError(t, err)

	require.NoError(t, app.SignIn(ctx, "Maria", "1234"))

	assert.True(t, app.SignedIn())
	assert.Equal(t, "maria", app.Store().Scope())
	require.Len(t, app.Store().Courses(), 1)
	assert.Equal(t, "Φυσική", app.Store().Courses()[0].Title)
	assert.Equal(t, model.ThemeDark, app.Store().Theme())

	_, ok, err := storage.Get(KeySession)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, app.SignOut(ctx))
	assert.False(t, app.SignedIn())
	assert.Equal(t, "", app.Store().Scope())
	require.Len(t, app.Store().Courses(), 1)
	assert.Equal(t, "Τοπικό", app.Store().Courses()[0].Title)
	_, ok, err = storage.Get(KeySession)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignIn_Failures(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, app.SignIn(ctx, "maria", "12"), model.ErrInvalidPin)
	assert.Empty(t, app.Status(), "本地校验失败不写入后端错误提示")

	err := app.SignIn(ctx, "maria", "9999")
	assert.True(t, cloud.IsUnauthorized(err))
	assert.Contains(t, app.Status(), "用户名或 PIN 错误")
	assert.False(t, app.SignedIn())
}

func TestSignOut_DiscardsInFlightLoad(t *testing.T) {
	app, remote, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "maria", "1234"))

	remote.mu.Lock()
	remote.docs["maria"] = cloudDoc("Ιστορία")
	remote.loadGate = make(chan struct{})
	remote.started = make(chan struct{}, 1)
	remote.mu.Unlock()

	type result struct {
		applied bool
		err     error
	}
	done := make(chan result, 1)
	go func() {
		applied, err := app.LoadRemote(ctx)
		done <- result{applied, err}
	}()

	<-remote.started
	require.NoError(t, app.SignOut(ctx))
	close(remote.loadGate)

	res := <-done
	require.NoError(t, res.err)
	assert.False(t, res.applied)
	assert.Equal(t, "", app.Store().Scope())
	assert.Empty(t, app.Store().Courses(), "过期的加载结果不得写入本地")
}

func TestRestore(t *testing.T) {
	app, remote, storage := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "nikos", "1234"))

	// 模拟重启：新的 App 共享同一本地存储
	store := schedule.NewStore(storage, "el", zap.NewNop())
	require.NoError(t, store.Load())
	remote.SetToken("")
	restored := New(store, remote, storage, zap.NewNop())

	loaded, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, loaded, "云端尚无文档")
	assert.True(t, restored.SignedIn())
	assert.Equal(t, "nikos", restored.Profile().Username)
	assert.Equal(t, "tok-nikos", remote.Token())
}

func TestResume_KeepsLocalEdits(t *testing.T) {
	app, remote, storage := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "nikos", "1234"))
	_, err := app.Store().SaveCourse(schedule.CourseInput{Title: "Δίκτυα"})
	require.NoError(t, err)

	store := schedule.NewStore(storage, "el", zap.NewNop())
	require.NoError(t, store.Load())
	remote.SetToken("")
	resumed := New(store, remote, storage, zap.NewNop())

	require.NoError(t, resumed.Resume())
	assert.True(t, resumed.SignedIn())
	assert.Equal(t, "nikos", resumed.Store().Scope())
	assert.Equal(t, "tok-nikos", remote.Token())
	require.Len(t, resumed.Store().Courses(), 1)
	assert.Equal(t, "Δίκτυα", resumed.Store().Courses()[0].Title)
}

func TestRestore_Nothing(t *testing.T) {
	app, _, _ := newTestApp(t)
	loaded, err := app.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.False(t, app.SignedIn())
}

// restart 模拟重启：新的 App 共享同一本地存储，后端 Token 已清空
func restart(t *testing.T, remote *fakeRemote, storage localstore.Storage) *App {
	t.Helper()
	store := schedule.NewStore(storage, "el", zap.NewNop())
	require.NoError(t, store.Load())
	remote.SetToken("")
	return New(store, remote, storage, zap.NewNop())
}

func TestRestore_LoadsCloudCopy(t *testing.T) {
	app, remote, storage := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "nikos", "1234"))
	_, err := app.Store().SaveCourse(schedule.CourseInput{Title: "Δίκτυα"})
	require.NoError(t, err)
	_, err = app.Save(ctx)
	require.NoError(t, err)

	restored := restart(t, remote, storage)
	loaded, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
	require.Len(t, restored.Store().Courses(), 1)
	assert.Equal(t, "Δίκτυα", restored.Store().Courses()[0].Title)
}

func TestRestore_LoadFailureKeepsSession(t *testing.T) {
	app, remote, storage := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "nikos", "1234"))

	restored := restart(t, remote, storage)
	remote.mu.Lock()
	remote.failLoad = errors.New("network down")
	remote.mu.Unlock()

	loaded, err := restored.Restore(ctx)
	assert.EqualError(t, err, "network down")
	assert.False(t, loaded)
	assert.True(t, restored.SignedIn())
	assert.Equal(t, "nikos", restored.Store().Scope())
	assert.Equal(t, "tok-nikos", remote.Token())
	_, ok, err := storage.Get(KeySession)
	require.NoError(t, err)
	assert.True(t, ok, "临时错误不得删除保存的登录态")
	assert.Contains(t, restored.Status(), "network down")
}

func TestRestore_ProfileFailureContinuesOffline(t *testing.T) {
	app, remote, storage := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "nikos", "1234"))

	restored := restart(t, remote, storage)
	remote.mu.Lock()
	remote.failAuth = errors.New("connection refused")
	remote.mu.Unlock()

	_, err := restored.Restore(ctx)
	assert.Error(t, err)
	assert.True(t, restored.SignedIn())
	assert.Equal(t, "nikos", restored.Profile().Username)
	assert.Equal(t, "nikos", restored.Store().Scope())
	assert.Equal(t, "tok-nikos", remote.Token())
}

func TestRestore_RejectedTokenSignsOut(t *testing.T) {
	app, remote, storage := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "nikos", "1234"))

	restored := restart(t, remote, storage)
	require.NoError(t, restored.Resume())
	require.Equal(t, "nikos", restored.Store().Scope())

	remote.mu.Lock()
	remote.failAuth = &cloud.APIError{Status: 401, Code: 10002, Message: "Token 已失效"}
	remote.mu.Unlock()

	_, err := restored.Restore(ctx)
	assert.True(t, cloud.IsUnauthorized(err))
	assert.False(t, restored.SignedIn())
	assert.Nil(t, restored.Profile())
	assert.Equal(t, "", restored.Store().Scope())
	assert.Empty(t, remote.Token())
	_, ok, err := storage.Get(KeySession)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatus_SurvivesRestart(t *testing.T) {
	app, remote, storage := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "maria", "1234"))

	remote.mu.Lock()
	remote.failLoad = errors.New("connection refused")
	remote.mu.Unlock()
	_, err := app.LoadRemote(ctx)
	require.Error(t, err)

	resumed := restart(t, remote, storage)
	require.NoError(t, resumed.Resume())
	assert.Contains(t, resumed.Status(), "connection refused")

	resumed.ClearStatus()
	again := restart(t, remote, storage)
	require.NoError(t, again.Resume())
	assert.Empty(t, again.Status())
}

// ── 同步 ──

func TestSave_RejectsConcurrentSave(t *testing.T) {
	app, remote, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "maria", "1234"))

	remote.mu.Lock()
	remote.saveGate = make(chan struct{})
	remote.started = make(chan struct{}, 1)
	remote.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := app.Save(ctx)
		done <- err
	}()
	<-remote.started

	_, err := app.Save(ctx)
	assert.ErrorIs(t, err, ErrSaveInFlight)

	close(remote.saveGate)
	require.NoError(t, <-done)

	remote.mu.Lock()
	remote.saveGate = nil
	remote.mu.Unlock()
	updated, err := app.Save(ctx)
	require.NoError(t, err)
	assert.False(t, updated.IsZero())
}

func TestSave_RequiresSignIn(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, err := app.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestLoadRemote_ErrorKeepsLocalState(t *testing.T) {
	app, remote, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "maria", "1234"))
	_, err := app.Store().SaveCourse(schedule.CourseInput{Title: "Χημεία"})
	require.NoError(t, err)

	remote.mu.Lock()
	remote.failLoad = errors.New("connection refused")
	remote.mu.Unlock()

	applied, err := app.LoadRemote(ctx)
	assert.Error(t, err)
	assert.False(t, applied)
	assert.Contains(t, app.Status(), "connection refused")
	assert.Len(t, app.Store().Courses(), 1)

	app.ClearStatus()
	assert.Empty(t, app.Status())
}

// ── 管理员 ──

func TestAdminOperations(t *testing.T) {
	app, remote, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.SignIn(ctx, "maria", "1234"))
	assert.False(t, app.IsMaster())

	_, err := app.ListProfiles(ctx)
	assert.True(t, cloud.IsForbidden(err))

	remote.master = true
	list, err := app.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = app.ResetPin(ctx, "nikos", "12")
	assert.ErrorIs(t, err, model.ErrInvalidPin)
	res, err := app.ResetPin(ctx, "nikos", "4321")
	require.NoError(t, err)
	assert.True(t, res.OK)
}

// ── 导入 ──

func TestImport_RequiresConfirmation(t *testing.T) {
	app, _, _ := newTestApp(t)
	exportedAt := time.Date(2026, 1, 20, 9, 15, 0, 0, time.Local)
	html, err := export.RenderHTML(export.FromPayload(*cloudDoc("Γεωμετρία"), exportedAt, ""))
	require.NoError(t, err)

	before := app.Store().Payload()
	p, err := app.StageImport(strings.NewReader(html))
	require.NoError(t, err)
	assert.Contains(t, p.Prompt(), "2026-01-20 09:15")
	assert.Equal(t, before, app.Store().Payload(), "确认前不得修改")

	dropped, err := app.ConfirmImport()
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	require.Len(t, app.Store().Courses(), 1)
	assert.Equal(t, "Γεωμετρία", app.Store().Courses()[0].Title)

	_, err = app.ConfirmImport()
	assert.ErrorIs(t, err, ErrNoPendingImport)
}

func TestImport_Cancel(t *testing.T) {
	app, _, _ := newTestApp(t)
	html, err := export.RenderHTML(export.FromPayload(*cloudDoc("Γεωμετρία"), time.Now(), ""))
	require.NoError(t, err)

	_, err = app.StageImport(strings.NewReader(html))
	require.NoError(t, err)
	app.CancelImport()

	_, err = app.ConfirmImport()
	assert.ErrorIs(t, err, ErrNoPendingImport)
}

func TestImport_InvalidFile(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, err := app.StageImport(strings.NewReader("<html></html>"))
	assert.Error(t, err)
	_, err = app.ConfirmImport()
	assert.ErrorIs(t, err, ErrNoPendingImport)
}
