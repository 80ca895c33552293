// Package session 持有客户端的全部应用状态：本地课表、登录身份、进行中的保存、
// 待确认的导入以及最近一次后端错误。
//
// 身份切换通过代计数器（generation）实现：登录 / 登出都会递增计数，
// 发起时计数已过期的远端加载结果会被直接丢弃，不会写入新身份的课表。
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/internal/backup"
	"github.com/sarigr/uni-schedule-cloud/internal/cloud"
	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/schedule"
	"github.com/sarigr/uni-schedule-cloud/pkg/localstore"
)

// ── 会话模块业务错误 ──

var (
	ErrNotSignedIn     = errors.New("尚未登录")
	ErrSaveInFlight    = errors.New("上一次保存尚未完成")
	ErrNoPendingImport = errors.New("没有待确认的导入")
	ErrIdentityChanged = errors.New("登录身份已变化，本次结果已丢弃")
)

// KeySession 本地保存登录态的存储键
const KeySession = "uniSchedule.session"

// KeyStatus 最近一次后端错误提示，跨命令保留直到被清除
const KeyStatus = "uniSchedule.status"

// Remote 托管后端（由 *cloud.Client 实现）
type Remote interface {
	SignUp(ctx context.Context, username, pin string) (*dto.TokenResponse, error)
	SignIn(ctx context.Context, username, pin string) (*dto.TokenResponse, error)
	SignOut(ctx context.Context) error
	EnsureProfile(ctx context.Context) (*dto.ProfileResponse, error)
	LoadSchedule(ctx context.Context) (*model.Payload, error)
	SaveSchedule(ctx context.Context, p model.Payload) (time.Time, error)
	ListProfiles(ctx context.Context) ([]dto.ProfileResponse, error)
	ResetPin(ctx context.Context, username, newPin string) (*dto.ResetPinResponse, error)
	Token() string
	SetToken(token string)
}

// PendingImport 已解析、等待用户确认的备份
type PendingImport struct {
	Backup *backup.Backup
}

// Prompt 确认提示文本，包含备份的导出时间
func (p *PendingImport) Prompt() string {
	return fmt.Sprintf("用 %s 导出的备份替换当前课表（%d 个时间段，%d 门课程，%d 条记录）？",
		p.Backup.ExportedAt.Format("2006-01-02 15:04"),
		len(p.Backup.Slots), len(p.Backup.Courses), len(p.Backup.Entries))
}

// saved 本地保存的登录态
type saved struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
	IsMaster bool   `json:"isMaster"`
}

// App 应用状态
type App struct {
	store   *schedule.Store
	remote  Remote
	storage localstore.Storage
	logger  *zap.Logger

	mu         sync.Mutex
	generation uint64
	profile    *dto.ProfileResponse
	saving     bool
	status     string
	pending    *PendingImport
}

// New 创建应用状态；store 应已 Load
func New(store *schedule.Store, remote Remote, storage localstore.Storage, logger *zap.Logger) *App {
	return &App{store: store, remote: remote, storage: storage, logger: logger}
}

// Store 本地课表
func (a *App) Store() *schedule.Store { return a.store }

// Profile 当前登录用户档案，未登录为 nil
func (a *App) Profile() *dto.ProfileResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.profile == nil {
		return nil
	}
	p := *a.profile
	return &p
}

// SignedIn 是否已登录
func (a *App) SignedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile != nil
}

// IsMaster 当前用户是否为管理员（仅用于界面展示，权限由后端校验）
func (a *App) IsMaster() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile != nil && a.profile.IsMaster
}

// Status 最近一次后端错误；本地状态不受其影响
func (a *App) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// ClearStatus 清除错误提示
func (a *App) ClearStatus() {
	a.mu.Lock()
	a.status = ""
	a.mu.Unlock()
	if err := a.storage.Remove(KeyStatus); err != nil {
		a.logger.Warn("清除错误提示失败", zap.Error(err))
	}
}

func (a *App) fail(op string, err error) error {
	a.logger.Warn("后端操作失败", zap.String("op", op), zap.Error(err))
	msg := op + ": " + err.Error()
	a.mu.Lock()
	a.status = msg
	a.mu.Unlock()
	if setErr := a.storage.Set(KeyStatus, []byte(msg)); setErr != nil {
		a.logger.Warn("保存错误提示失败", zap.Error(setErr))
	}
	return err
}

func (a *App) currentGeneration() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// ── 登录 / 登出 ──

// SignIn 登录并切换到该用户的本地分区；云端有文档时替换本地状态
func (a *App) SignIn(ctx context.Context, username, pin string) error {
	return a.authenticate(ctx, "登录", a.remote.SignIn, username, pin)
}

// SignUp 注册并登录
func (a *App) SignUp(ctx context.Context, username, pin string) error {
	return a.authenticate(ctx, "注册", a.remote.SignUp, username, pin)
}

type authFunc func(ctx context.Context, username, pin string) (*dto.TokenResponse, error)

func (a *App) authenticate(ctx context.Context, op string, fn authFunc, username, pin string) error {
	u, err := model.NormalizeUsername(username)
	if err != nil {
		return err
	}
	if err := model.ValidatePin(pin); err != nil {
		return err
	}

	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.mu.Unlock()

	res, err := fn(ctx, u, pin)
	if err != nil {
		return a.fail(op, err)
	}
	_, err = a.activate(ctx, gen, res.AccessToken, u)
	return err
}

// activate 拉取档案、切换分区、加载云端文档；返回是否载入了云端文档
func (a *App) activate(ctx context.Context, gen uint64, token, username string) (bool, error) {
	profile, err := a.remote.EnsureProfile(ctx)
	if err != nil {
		return false, a.fail("获取档案", err)
	}

	a.mu.Lock()
	if a.generation != gen {
		a.mu.Unlock()
		return false, ErrIdentityChanged
	}
	a.profile = profile
	a.mu.Unlock()
	a.ClearStatus()

	raw, _ := json.Marshal(saved{
		Token:    token,
		Username: profile.Username,
		UserID:   profile.UserID,
		IsMaster: profile.IsMaster,
	})
	if err := a.storage.Set(KeySession, raw); err != nil {
		a.logger.Warn("保存登录态失败", zap.Error(err))
	}

	if err := a.store.SetScope(profile.Username); err != nil {
		return false, err
	}
	a.logger.Info("已登录", zap.String("username", username), zap.Bool("is_master", profile.IsMaster))

	return a.loadRemote(ctx, gen)
}

// SignOut 登出：递增代计数使进行中的加载失效，清除登录态并切回未登录分区
func (a *App) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.generation++
	a.profile = nil
	a.pending = nil
	a.mu.Unlock()

	var remoteErr error
	if err := a.remote.SignOut(ctx); err != nil {
		remoteErr = a.fail("登出", err)
	}
	if err := a.forget(); err != nil {
		return err
	}
	return remoteErr
}

// forget 丢弃本地登录态并切回未登录分区
func (a *App) forget() error {
	a.mu.Lock()
	a.generation++
	a.profile = nil
	a.pending = nil
	a.mu.Unlock()

	a.remote.SetToken("")
	if err := a.storage.Remove(KeySession); err != nil {
		a.logger.Warn("清除登录态失败", zap.Error(err))
	}
	return a.store.SetScope("")
}

// readSaved 读取保存的登录态；内容无效时删除
func (a *App) readSaved() (saved, bool, error) {
	var s saved
	raw, ok, err := a.storage.Get(KeySession)
	if err != nil || !ok {
		return s, false, err
	}
	if err := json.Unmarshal(raw, &s); err != nil || s.Token == "" || s.Username == "" {
		return s, false, a.storage.Remove(KeySession)
	}
	return s, true, nil
}

// applySaved 不访问后端，按保存的登录态恢复 Token 与分区
func (a *App) applySaved(s saved) error {
	a.mu.Lock()
	a.generation++
	a.profile = &dto.ProfileResponse{UserID: s.UserID, Username: s.Username, IsMaster: s.IsMaster}
	a.mu.Unlock()

	a.remote.SetToken(s.Token)
	return a.store.SetScope(s.Username)
}

// Restore 在线恢复上次保存的登录态：校验 Token、刷新档案并加载云端文档。
// 返回 true 表示本地状态已被云端文档替换。
// 只有后端拒绝 Token 时才回到未登录状态；网络等临时错误保留登录态与本地分区。
func (a *App) Restore(ctx context.Context) (bool, error) {
	s, ok, err := a.readSaved()
	if err != nil || !ok {
		return false, err
	}

	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.mu.Unlock()

	a.remote.SetToken(s.Token)
	loaded, err := a.activate(ctx, gen, s.Token, s.Username)
	if err == nil {
		return loaded, nil
	}

	switch {
	case errors.Is(err, ErrIdentityChanged):
	case cloud.IsUnauthorized(err):
		a.logger.Info("登录已失效", zap.String("username", s.Username))
		if fErr := a.forget(); fErr != nil {
			a.logger.Warn("切回未登录分区失败", zap.Error(fErr))
		}
	case !a.SignedIn():
		// 档案未取到：按保存的登录态离线继续
		if rErr := a.applySaved(s); rErr != nil {
			a.logger.Warn("离线恢复登录态失败", zap.Error(rErr))
		}
	}
	return false, err
}

// Resume 离线恢复登录态：只恢复 Token 与分区，不访问后端也不加载云端文档。
// 命令行每条命令都是独立进程，尚未推送的本地修改不能被云端文档覆盖；Token 失效时由后续请求报告。
func (a *App) Resume() error {
	if raw, ok, err := a.storage.Get(KeyStatus); err == nil && ok {
		a.mu.Lock()
		a.status = string(raw)
		a.mu.Unlock()
	}

	s, ok, err := a.readSaved()
	if err != nil || !ok {
		return err
	}
	return a.applySaved(s)
}

// ── 同步 ──

// LoadRemote 加载云端文档并替换本地状态。
// 返回 false 表示云端没有文档，或加载期间身份已变化（结果被丢弃）。
func (a *App) LoadRemote(ctx context.Context) (bool, error) {
	if !a.SignedIn() {
		return false, ErrNotSignedIn
	}
	return a.loadRemote(ctx, a.currentGeneration())
}

func (a *App) loadRemote(ctx context.Context, gen uint64) (bool, error) {
	p, err := a.remote.LoadSchedule(ctx)
	if a.currentGeneration() != gen {
		a.logger.Info("身份已变化，丢弃远端加载结果")
		return false, nil
	}
	if err != nil {
		return false, a.fail("加载课表", err)
	}
	if p == nil {
		return false, nil
	}
	if dropped := a.store.ApplyPayload(*p); dropped > 0 {
		a.logger.Warn("云端文档包含无效记录", zap.Int("dropped", dropped))
	}
	return true, nil
}

// Save 把当前状态整体写入云端（覆盖）；保存进行中时拒绝再次保存
func (a *App) Save(ctx context.Context) (time.Time, error) {
	a.mu.Lock()
	if a.profile == nil {
		a.mu.Unlock()
		return time.Time{}, ErrNotSignedIn
	}
	if a.saving {
		a.mu.Unlock()
		return time.Time{}, ErrSaveInFlight
	}
	a.saving = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.saving = false
		a.mu.Unlock()
	}()

	updated, err := a.remote.SaveSchedule(ctx, a.store.Payload())
	if err != nil {
		return time.Time{}, a.fail("保存课表", err)
	}
	a.ClearStatus()
	a.logger.Info("课表已保存", zap.Time("updated_at", updated))
	return updated, nil
}

// ── 管理员 ──

// ListProfiles 全部用户档案（后端校验管理员权限）
func (a *App) ListProfiles(ctx context.Context) ([]dto.ProfileResponse, error) {
	list, err := a.remote.ListProfiles(ctx)
	if err != nil {
		return nil, a.fail("查询用户", err)
	}
	return list, nil
}

// ResetPin 重置他人 PIN（后端校验管理员权限）
func (a *App) ResetPin(ctx context.Context, username, newPin string) (*dto.ResetPinResponse, error) {
	u, err := model.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if err := model.ValidatePin(newPin); err != nil {
		return nil, err
	}
	res, err := a.remote.ResetPin(ctx, u, newPin)
	if err != nil {
		return nil, a.fail("重置 PIN", err)
	}
	return res, nil
}

// ── 导入 ──

// StageImport 解析备份并等待确认；此时不修改任何状态
func (a *App) StageImport(r io.Reader) (*PendingImport, error) {
	b, err := backup.Parse(r)
	if err != nil {
		return nil, err
	}
	p := &PendingImport{Backup: b}

	a.mu.Lock()
	a.pending = p
	a.mu.Unlock()
	return p, nil
}

// ConfirmImport 用待确认的备份替换当前状态，返回被丢弃的记录数
func (a *App) ConfirmImport() (int, error) {
	a.mu.Lock()
	p := a.pending
	a.pending = nil
	a.mu.Unlock()

	if p == nil {
		return 0, ErrNoPendingImport
	}
	a.store.ApplyPayload(p.Backup.Payload())
	return p.Backup.Dropped, nil
}

// CancelImport 放弃待确认的导入
func (a *App) CancelImport() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
}
