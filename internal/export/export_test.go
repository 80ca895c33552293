package export

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

var exportedAt = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func sampleDoc() Document {
	return Document{
		Slots: []model.Slot{
			{ID: "s1", Start: "09:00", End: "11:00", Label: "Πρωί"},
			{ID: "s2", Start: "11:00", End: "13:00", Label: "11:00–13:00"},
		},
		Courses: []model.Course{
			{ID: "c1", Title: "Βάσεις Δεδομένων", DefaultRoom: "Αμφ. Α", DefaultProfessors: "Παπαδόπουλος", CreatedAt: 1},
			{ID: "c2", Title: "Άλγεβρα", CourseURL: "https://eclass.example.gr/ALG", CreatedAt: 2},
		},
		Entries: []model.Entry{
			{ID: "e1", CourseID: "c1", Day: model.Monday, SlotID: "s1", ClassType: model.ClassTheory, CreatedAt: 3},
			{ID: "e2", CourseID: "c1", Day: model.Wednesday, SlotID: "s2", ClassType: model.ClassLab, Room: "Εργ. 3", CreatedAt: 4},
			{ID: "e3", CourseID: "c2", Day: model.Friday, SlotID: "s1", ClassType: model.ClassTheory, CreatedAt: 5},
		},
		Theme:      model.ThemeDark,
		Skin:       model.SkinClassic,
		ExportedAt: exportedAt,
	}
}

var backupRe = regexp.MustCompile(`(?s)<script type="application/json" id="uni-schedule-backup">(.*?)</script>`)

// ── HTML ──

func TestRenderHTML_Table(t *testing.T) {
	out, err := RenderHTML(sampleDoc())
	require.NoError(t, err)

	assert.Contains(t, out, `data-theme="dark"`)
	assert.Contains(t, out, "Δευτέρα")
	assert.Contains(t, out, "Πρωί")
	assert.Contains(t, out, "Βάσεις Δεδομένων")
	assert.Contains(t, out, `<span class="badge lab">L</span>`)
	assert.Contains(t, out, "Εργ. 3")
	assert.Contains(t, out, "Αμφ. Α")
	// 2 个时间段 × 5 天 - 3 条记录
	assert.Equal(t, 7, strings.Count(out, `<td class="cell empty">·</td>`))
}

func TestRenderHTML_GroupsSortedByTitle(t *testing.T) {
	out, err := RenderHTML(sampleDoc())
	require.NoError(t, err)

	list := out[strings.Index(out, `<section class="list">`):]
	assert.Less(t, strings.Index(list, "Άλγεβρα"), strings.Index(list, "Βάσεις Δεδομένων"))
}

func TestRenderHTML_EscapesUserText(t *testing.T) {
	doc := sampleDoc()
	doc.Courses[0].Title = `Tom & "Jerry's" <b>`
	doc.Courses[0].DefaultRoom = "</script><script>alert(1)</script>"

	out, err := RenderHTML(doc)
	require.NoError(t, err)

	assert.NotContains(t, out, "<b>")
	assert.NotContains(t, out, "<script>alert(1)")
	assert.Contains(t, out, "Tom &amp; &#34;Jerry&#39;s&#34; &lt;b&gt;")

	m := backupRe.FindStringSubmatch(out)
	require.Len(t, m, 2)
	assert.NotContains(t, m[1], "<")
	assert.Contains(t, m[1], `\u003c/script\u003e`)
}

func TestRenderHTML_Backup(t *testing.T) {
	doc := sampleDoc()
	out, err := RenderHTML(doc)
	require.NoError(t, err)

	m := backupRe.FindStringSubmatch(out)
	require.Len(t, m, 2)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(m[1]), &env))
	assert.Equal(t, AppTag, env.App)
	assert.Equal(t, BackupVersion, env.Version)
	assert.Equal(t, exportedAt.UnixMilli(), env.ExportedAt)
	assert.Equal(t, model.ThemeDark, env.Theme)
	assert.Equal(t, model.SkinClassic, env.Skin)
	assert.Equal(t, doc.Slots, env.Data.Slots)
	assert.Equal(t, doc.Courses, env.Data.Courses)
	assert.Equal(t, doc.Entries, env.Data.Entries)
}

func TestRenderHTML_EmptyState(t *testing.T) {
	out, err := RenderHTML(Document{ExportedAt: exportedAt})
	require.NoError(t, err)

	m := backupRe.FindStringSubmatch(out)
	require.Len(t, m, 2)
	assert.Contains(t, m[1], `"data":{"slots":[],"courses":[],"entries":[]}`)
}

func TestRenderHTML_ThemeToggle(t *testing.T) {
	out, err := RenderHTML(sampleDoc())
	require.NoError(t, err)

	assert.Contains(t, out, `"uniScheduleExport.theme"`)
	assert.Contains(t, out, `id="theme-toggle"`)
}

func TestRenderHTML_SkinOnlyChangesStyle(t *testing.T) {
	classic := sampleDoc()
	minimal := sampleDoc()
	minimal.Skin = model.SkinMinimal

	a, err := RenderHTML(classic)
	require.NoError(t, err)
	b, err := RenderHTML(minimal)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	style := regexp.MustCompile(`(?s)<style>.*?</style>`)
	stripSkin := func(s string) string {
		s = style.ReplaceAllString(s, "")
		s = strings.ReplaceAll(s, `data-skin="classic"`, "")
		s = strings.ReplaceAll(s, `data-skin="minimal"`, "")
		s = strings.ReplaceAll(s, `"skin":"classic"`, "")
		return strings.ReplaceAll(s, `"skin":"minimal"`, "")
	}
	assert.Equal(t, stripSkin(a), stripSkin(b))
}

func TestRenderHTML_UnknownSkinFallsBack(t *testing.T) {
	doc := sampleDoc()
	doc.Skin = "neon"
	out, err := RenderHTML(doc)
	require.NoError(t, err)
	assert.Contains(t, out, `data-skin="classic"`)
}

// ── XLSX ──

func TestRenderXLSX(t *testing.T) {
	buf, err := RenderXLSX(sampleDoc())
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(gridSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Δευτέρα", v)

	v, err = f.GetCellValue(gridSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Βάσεις Δεδομένων [T]\nΑμφ. Α", v)

	v, err = f.GetCellValue(gridSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, EmptyMarker, v)

	rows, err := f.GetRows(listSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Άλγεβρα", rows[1][0])
	assert.Equal(t, "https://eclass.example.gr/ALG", rows[1][6])
}

// ── ICS ──

func TestRenderICS(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Athens")
	require.NoError(t, err)

	out, err := RenderICS(sampleDoc(), time.Date(2026, 3, 4, 12, 0, 0, 0, loc), loc)
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 3, strings.Count(out, "RRULE:FREQ=WEEKLY"))
	assert.Contains(t, out, "UID:e1@uni-schedule")
	assert.Contains(t, out, "SUMMARY:Άλγεβρα [T]")
	assert.Contains(t, out, "X-WR-TIMEZONE:Europe/Athens")
	assert.Contains(t, out, "DTSTART;TZID=Europe/Athens:20260302T090000")
	assert.NotContains(t, out, "DTSTART:2026")
}

func TestRenderICS_LocalTimeAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Athens")
	require.NoError(t, err)

	// 2026-02-02 在冬令时，3 月 29 日切换夏令时后每周事件仍应为 09:00 当地时间
	out, err := RenderICS(sampleDoc(), time.Date(2026, 2, 4, 12, 0, 0, 0, loc), loc)
	require.NoError(t, err)

	assert.Contains(t, out, "DTSTART;TZID=Europe/Athens:20260202T090000")
	assert.Contains(t, out, "DTEND;TZID=Europe/Athens:20260202T")
	assert.NotContains(t, out, "T070000Z")
}

func TestRenderICS_UTCKeepsZuluTimes(t *testing.T) {
	out, err := RenderICS(sampleDoc(), time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), time.UTC)
	require.NoError(t, err)

	assert.Contains(t, out, "DTSTART:20260302T090000Z")
	assert.NotContains(t, out, "TZID")
}

func TestRenderICS_NoEntries(t *testing.T) {
	doc := sampleDoc()
	doc.Entries = nil
	_, err := RenderICS(doc, exportedAt, time.UTC)
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestMondayOf(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), mondayOf(sunday))
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, mondayOf(monday))
}
