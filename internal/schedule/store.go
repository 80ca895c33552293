// Package schedule 维护课表的三张规范化集合（时间段、课程、排课记录），
// 每次修改都会同步写入本地存储；存储键可按登录用户名分区，
// 切换用户时不会覆盖其他用户在本机缓存的数据。
package schedule

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/legacy"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/normalize"
	"github.com/sarigr/uni-schedule-cloud/pkg/localstore"
)

// ── 课表模块业务错误 ──

var (
	ErrInvalidTime      = errors.New("时间格式必须为 HH:MM（24 小时制）")
	ErrBlankTitle       = errors.New("课程名称不能为空")
	ErrSlotNotFound     = errors.New("时间段不存在")
	ErrCourseNotFound   = errors.New("课程不存在")
	ErrEntryNotFound    = errors.New("排课记录不存在")
	ErrInvalidDay       = errors.New("星期无效")
	ErrInvalidClassType = errors.New("课程类型无效")
	ErrStalePlacement   = errors.New("单元格已变化，请重新确认")
)

// ── 本地存储键 ──

const (
	KeySlots      = "uniSchedule.slots"
	KeyCourses    = "uniSchedule.courses"
	KeyEntries    = "uniSchedule.entries"
	KeyTheme      = "uniSchedule.theme"
	KeyExportSkin = "uniSchedule.exportSkin"
)

// ScopedKey 登录后集合键追加 "@用户名"
func ScopedKey(key, scope string) string {
	if scope == "" {
		return key
	}
	return key + "@" + scope
}

// Store 课表存储
type Store struct {
	mu sync.Mutex

	storage   localstore.Storage
	collation string
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	scope   string
	slots   []model.Slot
	courses []model.Course
	entries []model.Entry
	theme   model.Theme
	skin    model.Skin
}

// NewStore 创建课表存储；调用 Load 之前集合为空
func NewStore(storage localstore.Storage, collation string, logger *zap.Logger) *Store {
	if collation == "" {
		collation = grid.DefaultCollation
	}
	return &Store{
		storage:   storage,
		collation: collation,
		logger:    logger,
		now:       time.Now,
		newID:     model.NewID,
		theme:     model.ThemeLight,
		skin:      model.SkinClassic,
	}
}

// Load 从当前分区读取全部集合
// 首次使用（无时间段键）时写入预置时间段；课程与记录都为空时尝试迁移旧格式数据（仅未登录分区）
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	rawSlots, ok, err := s.storage.Get(ScopedKey(KeySlots, s.scope))
	if err != nil {
		return err
	}
	if ok {
		res := normalize.Slots(rawSlots)
		s.logRejected(KeySlots, len(res.Rejected))
		s.slots = res.Valid
	} else {
		s.slots = model.DefaultSlots()
		s.persist(KeySlots, s.slots)
	}

	rawCourses, _, err := s.storage.Get(ScopedKey(KeyCourses, s.scope))
	if err != nil {
		return err
	}
	courses := normalize.Courses(rawCourses)
	s.logRejected(KeyCourses, len(courses.Rejected))
	s.courses = courses.Valid

	rawEntries, _, err := s.storage.Get(ScopedKey(KeyEntries, s.scope))
	if err != nil {
		return err
	}
	entries := normalize.Entries(rawEntries)
	s.logRejected(KeyEntries, len(entries.Rejected))
	kept, dropped := grid.DropOrphans(s.slots, s.courses, entries.Valid)
	s.logRejected(KeyEntries, dropped)
	s.entries = kept

	if s.scope == "" && len(s.courses) == 0 && len(s.entries) == 0 {
		res, err := legacy.NewMigrator(s.storage, s.logger).Run(s.slots)
		if err != nil {
			s.logger.Warn("旧数据迁移失败", zap.Error(err))
		} else if res != nil {
			s.courses = res.Courses
			s.entries = res.Entries
			s.persist(KeyCourses, s.courses)
			s.persist(KeyEntries, s.entries)
		}
	}

	if raw, ok, err := s.storage.Get(KeyTheme); err == nil && ok {
		var v string
		if json.Unmarshal(raw, &v) == nil {
			s.theme = model.ParseTheme(v)
		}
	}
	if raw, ok, err := s.storage.Get(KeyExportSkin); err == nil && ok {
		var v string
		if json.Unmarshal(raw, &v) == nil {
			s.skin = model.ParseSkin(v)
		}
	}
	return nil
}

// SetScope 切换存储分区（空串表示未登录）并从新分区重新加载
func (s *Store) SetScope(scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = scope
	return s.loadLocked()
}

// Scope 当前存储分区
func (s *Store) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// ReplaceAll 整体替换三张集合（导入备份、加载云端文档时使用）
// 引用不存在时间段/课程的记录会被丢弃，返回丢弃数量
func (s *Store) ReplaceAll(slots []model.Slot, courses []model.Course, entries []model.Entry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept, dropped := grid.DropOrphans(slots, courses, entries)
	s.slots = append([]model.Slot{}, slots...)
	s.courses = append([]model.Course{}, courses...)
	s.entries = kept
	s.persistAll()
	return dropped
}

// ApplyPayload 用完整文档替换当前状态（含主题与导出样式）
func (s *Store) ApplyPayload(p model.Payload) int {
	dropped := s.ReplaceAll(p.Slots, p.Courses, p.Entries)
	if p.Theme != "" {
		s.SetTheme(p.Theme)
	}
	if p.ExportSkin != "" {
		s.SetSkin(p.ExportSkin)
	}
	return dropped
}

// ── 主题 / 导出样式 ──

// Theme 当前主题
func (s *Store) Theme() model.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme 设置主题
func (s *Store) SetTheme(t model.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = model.ParseTheme(string(t))
	s.persistRaw(KeyTheme, s.theme)
}

// Skin 当前导出样式
func (s *Store) Skin() model.Skin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skin
}

// SetSkin 设置导出样式
func (s *Store) SetSkin(sk model.Skin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skin = model.ParseSkin(string(sk))
	s.persistRaw(KeyExportSkin, s.skin)
}

// ── 只读视图 ──

// Slots 时间段副本（按用户设定顺序）
func (s *Store) Slots() []model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Slot{}, s.slots...)
}

// Courses 课程副本
func (s *Store) Courses() []model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Course{}, s.courses...)
}

// Entries 排课记录副本
func (s *Store) Entries() []model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Entry{}, s.entries...)
}

// EntryAt 查询单元格中的记录
func (s *Store) EntryAt(day model.Day, slotID string) (model.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := grid.Index(s.entries)[model.CellKey(day, slotID)]
	return e, ok
}

// Course 按 ID 查询课程
func (s *Store) Course(id string) (model.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := grid.CourseMap(s.courses)[id]
	return c, ok
}

// Groups 按课程分组的视图
func (s *Store) Groups() []grid.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return grid.GroupByCourse(s.courses, s.slots, s.entries, s.collation)
}

// Collation 分组排序所用语言
func (s *Store) Collation() string { return s.collation }

// Payload 当前完整文档
func (s *Store) Payload() model.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Payload{
		Slots:      append([]model.Slot{}, s.slots...),
		Courses:    append([]model.Course{}, s.courses...),
		Entries:    append([]model.Entry{}, s.entries...),
		Theme:      s.theme,
		ExportSkin: s.skin,
	}
}

// ── 持久化 ──

// persist 写入分区集合键；写入失败只记录日志，内存状态继续可用
func (s *Store) persist(key string, v any) {
	s.persistRaw(ScopedKey(key, s.scope), v)
}

func (s *Store) persistRaw(key string, v any) {
	raw, err := json.Marshal(v)
	if err == nil {
		err = s.storage.Set(key, raw)
	}
	if err != nil {
		s.logger.Warn("写入本地存储失败", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) persistAll() {
	s.persist(KeySlots, s.slots)
	s.persist(KeyCourses, s.courses)
	s.persist(KeyEntries, s.entries)
}

func (s *Store) logRejected(key string, n int) {
	if n > 0 {
		s.logger.Warn("丢弃无效记录", zap.String("key", key), zap.Int("count", n))
	}
}
