// Package export 把课表渲染为可离线打开的文件：
//   - HTML：表格 + 按课程分组列表 + 内嵌 JSON 备份 + 主题切换脚本（可被 backup 包重新导入）
//   - XLSX：表格工作表 + 列表工作表
//   - ICS：每条排课记录一个按周重复的事件
//
// 所有渲染函数都是纯函数，只依赖 Document 中的数据。
package export

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// ── 内嵌备份格式 ──

const (
	// AppTag 备份 JSON 中的应用标识，导入时据此识别
	AppTag = "uni-schedule"
	// BackupVersion 备份格式版本
	BackupVersion = 1
	// BackupScriptID 承载备份 JSON 的 <script> 元素 id
	BackupScriptID = "uni-schedule-backup"
	// ThemeStorageKey 导出页自身的主题切换键，与应用主题互不影响
	ThemeStorageKey = "uniScheduleExport.theme"
	// EmptyMarker 空单元格标记
	EmptyMarker = "·"
)

// ── 导出模块业务错误 ──

var (
	ErrGenerateFail = errors.New("生成导出文件失败")
	ErrNoEntries    = errors.New("课表中无排课记录")
)

// Document 渲染输入
type Document struct {
	Slots      []model.Slot
	Courses    []model.Course
	Entries    []model.Entry
	Theme      model.Theme
	Skin       model.Skin
	ExportedAt time.Time
	Collation  string // 分组排序语言，空值使用 grid.DefaultCollation
}

// FromPayload 由完整文档构建渲染输入
func FromPayload(p model.Payload, exportedAt time.Time, collation string) Document {
	return Document{
		Slots:      p.Slots,
		Courses:    p.Courses,
		Entries:    p.Entries,
		Theme:      model.ParseTheme(string(p.Theme)),
		Skin:       model.ParseSkin(string(p.ExportSkin)),
		ExportedAt: exportedAt,
		Collation:  collation,
	}
}

// Envelope 内嵌备份 JSON 的顶层结构
type Envelope struct {
	App        string       `json:"app"`
	Version    int          `json:"version"`
	ExportedAt int64        `json:"exportedAt"` // 毫秒时间戳
	Theme      model.Theme  `json:"theme"`
	Skin       model.Skin   `json:"skin"`
	Data       EnvelopeData `json:"data"`
}

// EnvelopeData 备份中的三张集合
type EnvelopeData struct {
	Slots   []model.Slot   `json:"slots"`
	Courses []model.Course `json:"courses"`
	Entries []model.Entry  `json:"entries"`
}

// Envelope 构建备份结构；nil 集合序列化为 []
func (d Document) Envelope() Envelope {
	return Envelope{
		App:        AppTag,
		Version:    BackupVersion,
		ExportedAt: model.EpochMillis(d.ExportedAt),
		Theme:      model.ParseTheme(string(d.Theme)),
		Skin:       model.ParseSkin(string(d.Skin)),
		Data: EnvelopeData{
			Slots:   nonNil(d.Slots),
			Courses: nonNil(d.Courses),
			Entries: nonNil(d.Entries),
		},
	}
}

// backupJSON 序列化备份；encoding/json 默认把 < > & 转义为 \u003c \u003e \u0026，
// 因此内容不会提前闭合 <script> 标签
func (d Document) backupJSON() ([]byte, error) {
	return json.Marshal(d.Envelope())
}

func (d Document) collation() string {
	if d.Collation == "" {
		return grid.DefaultCollation
	}
	return d.Collation
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
