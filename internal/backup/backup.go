// Package backup 从导出的 HTML 文档中提取内嵌备份并校验为可直接替换当前状态的数据。
// 解析失败时返回描述性错误，不会 panic；替换前的用户确认由调用方负责。
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sarigr/uni-schedule-cloud/internal/export"
	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
	"github.com/sarigr/uni-schedule-cloud/internal/normalize"
)

// ── 导入模块业务错误 ──

var (
	ErrBackupUnreadable  = errors.New("无法读取导入文件")
	ErrBackupMissing     = errors.New("文件中未找到课表备份")
	ErrBackupEmpty       = errors.New("课表备份内容为空")
	ErrBackupInvalidJSON = errors.New("课表备份不是有效的 JSON")
	ErrBackupForeignApp  = errors.New("文件不是本应用导出的课表")
)

// MaxSize 导入文件大小上限
const MaxSize = 5 * 1024 * 1024 // 5MB

// Backup 校验后的备份
type Backup struct {
	ExportedAt time.Time
	Theme      model.Theme
	Skin       model.Skin
	Slots      []model.Slot
	Courses    []model.Course
	Entries    []model.Entry
	Rejected   int // 未通过格式校验的记录数
	Dropped    int // 引用了不存在时间段/课程而被丢弃的记录数
}

// Payload 转为完整文档
func (b *Backup) Payload() model.Payload {
	return model.Payload{
		Slots:      b.Slots,
		Courses:    b.Courses,
		Entries:    b.Entries,
		Theme:      b.Theme,
		ExportSkin: b.Skin,
	}
}

// envelope 与 export.Envelope 对应，集合保持原始 JSON 交给 normalize 校验
type envelope struct {
	App        string `json:"app"`
	Version    int    `json:"version"`
	ExportedAt int64  `json:"exportedAt"`
	Theme      string `json:"theme"`
	Skin       string `json:"skin"`
	Data       struct {
		Slots   json.RawMessage `json:"slots"`
		Courses json.RawMessage `json:"courses"`
		Entries json.RawMessage `json:"entries"`
	} `json:"data"`
}

// Parse 解析导出的 HTML 文档
func Parse(r io.Reader) (*Backup, error) {
	doc, err := html.Parse(io.LimitReader(r, MaxSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupUnreadable, err)
	}

	script := findByID(doc, export.BackupScriptID)
	if script == nil {
		return nil, ErrBackupMissing
	}
	text := strings.TrimSpace(textOf(script))
	if text == "" {
		return nil, ErrBackupEmpty
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupInvalidJSON, err)
	}
	if env.App != export.AppTag {
		return nil, ErrBackupForeignApp
	}

	slots := normalize.Slots(env.Data.Slots)
	courses := normalize.Courses(env.Data.Courses)
	entries := normalize.Entries(env.Data.Entries)
	kept, dropped := grid.DropOrphans(slots.Valid, courses.Valid, entries.Valid)

	return &Backup{
		ExportedAt: time.UnixMilli(env.ExportedAt),
		Theme:      model.ParseTheme(env.Theme),
		Skin:       model.ParseSkin(env.Skin),
		Slots:      slots.Valid,
		Courses:    courses.Valid,
		Entries:    kept,
		Rejected:   len(slots.Rejected) + len(courses.Rejected) + len(entries.Rejected),
		Dropped:    dropped,
	}, nil
}

// ParseString 解析 HTML 字符串
func ParseString(s string) (*Backup, error) {
	return Parse(strings.NewReader(s))
}

// findByID 深度优先查找 id 匹配的 <script> 元素
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script && getAttr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
