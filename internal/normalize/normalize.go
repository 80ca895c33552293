// Package normalize 把不可信的 JSON（本地存储、导入文件、旧格式数据、云端文档）
// 校验并转换为强类型实体。
//
// 机制与策略分离：本包只负责识别非法记录并返回 Result（合法记录 + 被拒绝的原始记录），
// 如何处理被拒绝的记录（丢弃、记录日志）由调用方决定。本包从不返回错误。
package normalize

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// Result 一次校验的结果
type Result[T any] struct {
	Valid    []T
	Rejected []json.RawMessage
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return model.ValidHHMM(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ── 原始记录结构（字段类型错误时 json 解码失败即拒绝） ──

type rawSlot struct {
	ID    string `json:"id"    validate:"required"`
	Start string `json:"start" validate:"hhmm"`
	End   string `json:"end"   validate:"hhmm"`
	Label string `json:"label"`
}

type rawCourse struct {
	ID                string `json:"id"    validate:"required"`
	Title             string `json:"title" validate:"notblank"`
	DefaultRoom       string `json:"defaultRoom"`
	DefaultProfessors string `json:"defaultProfessors"`
	CourseURL         string `json:"courseUrl"`
	CreatedAt         int64  `json:"createdAt"`
}

type rawEntry struct {
	ID         string `json:"id"        validate:"required"`
	CourseID   string `json:"courseId"  validate:"required"`
	Day        string `json:"day"       validate:"oneof=Mon Tue Wed Thu Fri"`
	SlotID     string `json:"slotId"    validate:"required"`
	ClassType  string `json:"classType" validate:"oneof=THEORY LAB"`
	Room       string `json:"room"`
	Professors string `json:"professors"`
	CourseURL  string `json:"courseUrl"`
	CreatedAt  int64  `json:"createdAt"`
}

// Slots 校验时间段列表
func Slots(raw []byte) Result[model.Slot] {
	return run(raw, func(r rawSlot) model.Slot {
		label := r.Label
		if label == "" {
			label = model.DefaultSlotLabel(r.Start, r.End)
		}
		return model.Slot{ID: r.ID, Start: r.Start, End: r.End, Label: label}
	})
}

// Courses 校验课程列表（标题去除首尾空白）
func Courses(raw []byte) Result[model.Course] {
	return run(raw, func(r rawCourse) model.Course {
		return model.Course{
			ID:                r.ID,
			Title:             strings.TrimSpace(r.Title),
			DefaultRoom:       r.DefaultRoom,
			DefaultProfessors: r.DefaultProfessors,
			CourseURL:         r.CourseURL,
			CreatedAt:         r.CreatedAt,
		}
	})
}

// Entries 校验排课记录列表
func Entries(raw []byte) Result[model.Entry] {
	return run(raw, func(r rawEntry) model.Entry {
		return model.Entry{
			ID:         r.ID,
			CourseID:   r.CourseID,
			Day:        model.Day(r.Day),
			SlotID:     r.SlotID,
			ClassType:  model.ClassType(r.ClassType),
			Room:       r.Room,
			Professors: r.Professors,
			CourseURL:  r.CourseURL,
			CreatedAt:  r.CreatedAt,
		}
	})
}

// run 逐条解码 + 校验；顶层不是数组时整体视为一条被拒绝的记录
func run[R any, T any](raw []byte, convert func(R) T) Result[T] {
	res := Result[T]{Valid: []T{}}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return res
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		res.Rejected = append(res.Rejected, json.RawMessage(trimmed))
		return res
	}

	for _, item := range items {
		rec, ok := decode[R](item)
		if !ok {
			res.Rejected = append(res.Rejected, item)
			continue
		}
		res.Valid = append(res.Valid, convert(rec))
	}
	return res
}

func decode[R any](item json.RawMessage) (R, bool) {
	var rec R
	if !bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
		return rec, false
	}
	if err := json.Unmarshal(item, &rec); err != nil {
		return rec, false
	}
	if err := validate.Struct(rec); err != nil {
		return rec, false
	}
	return rec, true
}
