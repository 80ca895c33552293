package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sarigr/uni-schedule-cloud/config"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/repository"
	pkgerrors "github.com/sarigr/uni-schedule-cloud/pkg/errors"
	"github.com/sarigr/uni-schedule-cloud/pkg/jwt"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return pkgerrors.ErrDuplicate
		}
	}
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) UpdatePinHash(_ context.Context, id, pinHash string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PinHash = pinHash
	return nil
}

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	profiles map[string]*model.Profile // key: user_id
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (m *mockProfileRepo) GetByUserID(_ context.Context, userID string) (*model.Profile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) FirstOrCreate(_ context.Context, profile *model.Profile) (*model.Profile, error) {
	if p, ok := m.profiles[profile.UserID]; ok {
		return p, nil
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	}
	m.profiles[profile.UserID] = profile
	return profile, nil
}

func (m *mockProfileRepo) List(_ context.Context) ([]model.Profile, error) {
	var result []model.Profile
	for _, p := range m.profiles {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	mu   sync.Mutex
	docs map[string]*model.ScheduleDocument
	err  error // 非 nil 时 Upsert 返回该错误
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{docs: make(map[string]*model.ScheduleDocument)}
}

func (m *mockScheduleRepo) GetByUserID(_ context.Context, userID string) (*model.ScheduleDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[userID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) Upsert(_ context.Context, doc *model.ScheduleDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	doc.UpdatedAt = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	cp := *doc
	m.docs[doc.UserID] = &cp
	return nil
}

// ── 测试辅助 ──

type testDeps struct {
	cfg      *config.Config
	users    *mockUserRepo
	profiles *mockProfileRepo
	docs     *mockScheduleRepo
	repo     *repository.Repository
	jwtMgr   *jwt.Manager
	logger   *zap.Logger
}

func newTestDeps() *testDeps {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:  15 * time.Minute,
			BcryptCost:      4, // bcrypt.MinCost，加快测试
			MasterUsernames: []string{"Admin"},
		},
		Schedule: config.ScheduleConfig{
			Collation: "el",
			Timezone:  "Europe/Athens",
		},
	}
	d := &testDeps{
		cfg:      cfg,
		users:    newMockUserRepo(),
		profiles: newMockProfileRepo(),
		docs:     newMockScheduleRepo(),
		jwtMgr:   jwt.NewManager(&cfg.Auth),
		logger:   zap.NewNop(),
	}
	d.repo = &repository.Repository{
		User:     d.users,
		Profile:  d.profiles,
		Schedule: d.docs,
	}
	return d
}
