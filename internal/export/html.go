package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/sarigr/uni-schedule-cloud/internal/grid"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

//go:embed templates/*.html.tmpl
var templatesFS embed.FS

//go:embed skins/*.css
var skinsFS embed.FS

var page = template.Must(template.New("schedule.html.tmpl").ParseFS(templatesFS, "templates/schedule.html.tmpl"))

// ── 模板视图 ──

type pageView struct {
	Theme      model.Theme
	Skin       model.Skin
	CSS        template.CSS
	ThemeKey   string
	ScriptID   string
	ExportedAt string
	Days       []string
	Rows       []rowView
	Groups     []groupView
	Backup     template.JS
}

type rowView struct {
	Label string
	Time  string
	Cells []cellView
}

type cellView struct {
	Empty bool
	Title string
	Badge string
	Kind  string
	Room  string
	URL   string
}

type groupView struct {
	Title      string
	URL        string
	Room       string
	Professors string
	Sessions   []sessionView
}

type sessionView struct {
	Day        string
	Slot       string
	Badge      string
	Kind       string
	Room       string
	Professors string
}

// RenderHTML 渲染独立的 HTML 文档。
// 表格与列表中的自由文本由 html/template 转义（& < > " '），
// 样式表只影响 <style> 内容，标记结构与样式无关。
func RenderHTML(doc Document) (string, error) {
	css, err := skinCSS(doc.Skin)
	if err != nil {
		return "", err
	}
	backup, err := doc.backupJSON()
	if err != nil {
		return "", fmt.Errorf("序列化备份失败: %w", err)
	}

	view := pageView{
		Theme:      model.ParseTheme(string(doc.Theme)),
		Skin:       model.ParseSkin(string(doc.Skin)),
		CSS:        template.CSS(css),
		ThemeKey:   ThemeStorageKey,
		ScriptID:   BackupScriptID,
		ExportedAt: doc.ExportedAt.Format("02/01/2006 15:04"),
		Rows:       buildRows(doc),
		Groups:     buildGroups(doc),
		Backup:     template.JS(backup),
	}
	for _, d := range model.Weekdays {
		view.Days = append(view.Days, d.Label())
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerateFail, err)
	}
	return buf.String(), nil
}

// Skins 可用的导出样式
func Skins() []model.Skin {
	return []model.Skin{model.SkinClassic, model.SkinMinimal}
}

func skinCSS(skin model.Skin) (string, error) {
	raw, err := skinsFS.ReadFile("skins/" + string(model.ParseSkin(string(skin))) + ".css")
	if err != nil {
		return "", fmt.Errorf("读取样式失败: %w", err)
	}
	return string(raw), nil
}

func buildRows(doc Document) []rowView {
	idx := grid.Index(doc.Entries)
	courses := grid.CourseMap(doc.Courses)

	rows := make([]rowView, 0, len(doc.Slots))
	for _, slot := range doc.Slots {
		row := rowView{Label: slot.DisplayLabel(), Time: slot.Start + "–" + slot.End}
		for _, day := range model.Weekdays {
			e, ok := idx[model.CellKey(day, slot.ID)]
			c, known := courses[e.CourseID]
			if !ok || !known {
				row.Cells = append(row.Cells, cellView{Empty: true})
				continue
			}
			row.Cells = append(row.Cells, cellView{
				Title: c.Title,
				Badge: e.ClassType.Badge(),
				Kind:  kindClass(e.ClassType),
				Room:  grid.EffectiveRoom(e, &c),
				URL:   grid.EffectiveURL(e, &c),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func buildGroups(doc Document) []groupView {
	slotLabels := make(map[string]string, len(doc.Slots))
	for _, s := range doc.Slots {
		slotLabels[s.ID] = s.DisplayLabel()
	}

	groups := grid.GroupByCourse(doc.Courses, doc.Slots, doc.Entries, doc.collation())
	out := make([]groupView, 0, len(groups))
	for _, g := range groups {
		c := g.Course
		gv := groupView{
			Title:      c.Title,
			URL:        c.CourseURL,
			Room:       orPlaceholder(c.DefaultRoom),
			Professors: orPlaceholder(c.DefaultProfessors),
		}
		for _, e := range g.Sessions {
			gv.Sessions = append(gv.Sessions, sessionView{
				Day:        e.Day.Label(),
				Slot:       slotLabels[e.SlotID],
				Badge:      e.ClassType.Badge(),
				Kind:       kindClass(e.ClassType),
				Room:       grid.EffectiveRoom(e, &c),
				Professors: grid.EffectiveProfessors(e, &c),
			})
		}
		out = append(out, gv)
	}
	return out
}

func kindClass(t model.ClassType) string {
	if t == model.ClassLab {
		return "lab"
	}
	return "theory"
}

func orPlaceholder(s string) string {
	if s == "" {
		return grid.Placeholder
	}
	return s
}
