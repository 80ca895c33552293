// Package legacy 把旧版扁平格式（每条记录内嵌课程标题）一次性迁移为
// 当前的 (课程, 排课记录) 规范化结构。
package legacy

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/normalize"
	"github.com/sarigr/uni-schedule-cloud/pkg/localstore"
)

// Keys 历史存储键，按版本从新到旧排列
var Keys = []string{
	"uniSchedule.entries.v2",
	"uniSchedule.entries.v1",
	"schedule.entries",
}

// record 旧格式记录
type record struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Day        string `json:"day"`
	SlotID     string `json:"slotId"`
	ClassType  string `json:"classType"`
	Room       string `json:"room"`
	Professors string `json:"professors"`
	CourseURL  string `json:"courseUrl"`
	CreatedAt  int64  `json:"createdAt"`
}

// Result 迁移结果
type Result struct {
	Key     string
	Courses []model.Course
	Entries []model.Entry
	Dropped int // 时间段不存在、格式非法或单元格重复而被丢弃的记录数
}

// Migrator 旧数据迁移器
type Migrator struct {
	storage localstore.Storage
	logger  *zap.Logger
	newID   func() string
	now     func() time.Time
}

// NewMigrator 创建迁移器
func NewMigrator(storage localstore.Storage, logger *zap.Logger) *Migrator {
	return &Migrator{
		storage: storage,
		logger:  logger,
		newID:   model.NewID,
		now:     time.Now,
	}
}

// Run 依次扫描 Keys，第一个能解析为数组的键即为迁移来源，成功后不再尝试其余键。
// 未找到任何旧数据时返回 nil, nil。结果的持久化由调用方负责。
func (m *Migrator) Run(slots []model.Slot) (*Result, error) {
	for _, key := range Keys {
		raw, ok, err := m.storage.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			m.logger.Warn("旧数据无法解析，尝试下一个键", zap.String("key", key), zap.Error(err))
			continue
		}

		res := m.convert(items, slots)
		res.Key = key
		m.logger.Info("旧数据迁移完成",
			zap.String("key", key),
			zap.Int("courses", len(res.Courses)),
			zap.Int("entries", len(res.Entries)),
			zap.Int("dropped", res.Dropped),
		)
		return res, nil
	}
	return nil, nil
}

func (m *Migrator) convert(items []json.RawMessage, slots []model.Slot) *Result {
	res := &Result{Courses: []model.Course{}, Entries: []model.Entry{}}
	known := make(map[string]bool, len(slots))
	for _, s := range slots {
		known[s.ID] = true
	}

	nowMs := model.EpochMillis(m.now())
	byTitle := make(map[string]int)
	var candidates []model.Entry

	for _, item := range items {
		var rec record
		if err := json.Unmarshal(item, &rec); err != nil {
			res.Dropped++
			continue
		}
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			res.Dropped++
			continue
		}

		idx, ok := byTitle[title]
		if !ok {
			// 同名课程首次出现的记录提供默认信息
			res.Courses = append(res.Courses, model.Course{
				ID:                m.newID(),
				Title:             title,
				DefaultRoom:       rec.Room,
				DefaultProfessors: rec.Professors,
				CourseURL:         rec.CourseURL,
				CreatedAt:         orNow(rec.CreatedAt, nowMs),
			})
			idx = len(res.Courses) - 1
			byTitle[title] = idx
		}
		course := res.Courses[idx]

		id := rec.ID
		if id == "" {
			id = m.newID()
		}
		candidates = append(candidates, model.Entry{
			ID:         id,
			CourseID:   course.ID,
			Day:        model.Day(rec.Day),
			SlotID:     rec.SlotID,
			ClassType:  model.ClassType(rec.ClassType),
			Room:       override(rec.Room, course.DefaultRoom),
			Professors: override(rec.Professors, course.DefaultProfessors),
			CourseURL:  override(rec.CourseURL, course.CourseURL),
			CreatedAt:  orNow(rec.CreatedAt, nowMs),
		})
	}

	// 复用规范化器校验星期与课程类型
	encoded, _ := json.Marshal(candidates)
	checked := normalize.Entries(encoded)
	res.Dropped += len(checked.Rejected)

	seen := make(map[string]bool)
	for _, e := range checked.Valid {
		if !known[e.SlotID] || seen[e.Cell()] {
			res.Dropped++
			continue
		}
		seen[e.Cell()] = true
		res.Entries = append(res.Entries, e)
	}
	return res
}

// override 与课程默认值相同的字段置空，表示继承
func override(v, def string) string {
	if v == def {
		return ""
	}
	return v
}

func orNow(v, now int64) int64 {
	if v > 0 {
		return v
	}
	return now
}
