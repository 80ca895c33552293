package backup

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sarigr/uni-schedule-cloud/internal/export"
	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

func sampleDoc() export.Document {
	return export.Document{
		Slots: []model.Slot{
			{ID: "s1", Start: "09:00", End: "11:00", Label: "09:00–11:00"},
			{ID: "s2", Start: "11:00", End: "13:00", Label: "Μεσημέρι"},
		},
		Courses: []model.Course{
			{ID: "c1", Title: `Λογική <& "Σύνολα">`, DefaultRoom: "Α1", CreatedAt: 1700000000000},
			{ID: "c2", Title: "Φυσική", CourseURL: "https://example.gr/phys?a=1&b=2", CreatedAt: 1700000000001},
		},
		Entries: []model.Entry{
			{ID: "e1", CourseID: "c1", Day: model.Monday, SlotID: "s1", ClassType: model.ClassTheory, CreatedAt: 1},
			{ID: "e2", CourseID: "c2", Day: model.Thursday, SlotID: "s2", ClassType: model.ClassLab, Room: "</script>", CreatedAt: 2},
		},
		Theme:      model.ThemeDark,
		Skin:       model.SkinMinimal,
		ExportedAt: time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC),
	}
}

func TestParse_RoundTrip(t *testing.T) {
	doc := sampleDoc()
	out, err := export.RenderHTML(doc)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}

	b, err := ParseString(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff(doc.Slots, b.Slots); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(doc.Courses, b.Courses); diff != "" {
		t.Errorf("courses mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(doc.Entries, b.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if !b.ExportedAt.Equal(doc.ExportedAt) {
		t.Errorf("exportedAt = %v, want %v", b.ExportedAt, doc.ExportedAt)
	}
	if b.Theme != model.ThemeDark || b.Skin != model.SkinMinimal {
		t.Errorf("theme/skin = %s/%s", b.Theme, b.Skin)
	}
	if b.Dropped != 0 || b.Rejected != 0 {
		t.Errorf("dropped=%d rejected=%d, want 0", b.Dropped, b.Rejected)
	}

	// 再导出一次结果不变
	again, err := export.RenderHTML(export.FromPayload(b.Payload(), doc.ExportedAt, ""))
	if err != nil {
		t.Fatalf("RenderHTML again: %v", err)
	}
	if diff := cmp.Diff(out, again); diff != "" {
		t.Errorf("second export differs (-first +second):\n%s", diff)
	}
}

func TestParse_DropsOrphans(t *testing.T) {
	doc := sampleDoc()
	doc.Entries = append(doc.Entries,
		model.Entry{ID: "e3", CourseID: "gone", Day: model.Friday, SlotID: "s1", ClassType: model.ClassTheory},
		model.Entry{ID: "e4", CourseID: "c1", Day: model.Friday, SlotID: "gone", ClassType: model.ClassTheory},
	)
	out, err := export.RenderHTML(doc)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}

	b, err := ParseString(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", b.Dropped)
	}
	if diff := cmp.Diff(sampleDoc().Entries, b.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_RejectsMalformedRecords(t *testing.T) {
	page := `<html><body><script type="application/json" id="uni-schedule-backup">
{"app":"uni-schedule","version":1,"exportedAt":0,"theme":"light","skin":"classic","data":{
 "slots":[{"id":"s1","start":"09:00","end":"11:00","label":""},{"id":"s2","start":"9","end":"11:00"}],
 "courses":[{"id":"c1","title":"Χημεία"},42],
 "entries":[{"id":"e1","courseId":"c1","day":"Mon","slotId":"s1","classType":"THEORY"},
            {"id":"e2","courseId":"c1","day":"Sun","slotId":"s1","classType":"THEORY"}]}}
</script></body></html>`

	b, err := ParseString(page)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(b.Slots) != 1 || len(b.Courses) != 1 || len(b.Entries) != 1 {
		t.Fatalf("got %d slots, %d courses, %d entries; want 1 each", len(b.Slots), len(b.Courses), len(b.Entries))
	}
	if b.Rejected != 3 {
		t.Errorf("Rejected = %d, want 3", b.Rejected)
	}
	if b.Slots[0].Label != "09:00–11:00" {
		t.Errorf("label = %q, want default", b.Slots[0].Label)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		page string
		want error
	}{
		{"无备份元素", `<html><body><p>hello</p></body></html>`, ErrBackupMissing},
		{"id 在其他元素上", `<div id="uni-schedule-backup">{}</div>`, ErrBackupMissing},
		{"空内容", `<script type="application/json" id="uni-schedule-backup">   </script>`, ErrBackupEmpty},
		{"非法 JSON", `<script type="application/json" id="uni-schedule-backup">{"app":</script>`, ErrBackupInvalidJSON},
		{"其他应用", `<script type="application/json" id="uni-schedule-backup">{"app":"other","data":{}}</script>`, ErrBackupForeignApp},
		{"缺少应用标识", `<script type="application/json" id="uni-schedule-backup">{"data":{}}</script>`, ErrBackupForeignApp},
		{"纯文本", `not html at all`, ErrBackupMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseString(tt.page)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if b != nil {
				t.Errorf("expected nil backup on error")
			}
		})
	}
}

func TestParse_SizeLimit(t *testing.T) {
	big := strings.Repeat("x", MaxSize) + `<script type="application/json" id="uni-schedule-backup">{"app":"uni-schedule"}</script>`
	if _, err := ParseString(big); !errors.Is(err, ErrBackupMissing) {
		t.Errorf("err = %v, want ErrBackupMissing", err)
	}
}
