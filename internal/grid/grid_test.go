package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

func fixture() ([]model.Course, []model.Slot, []model.Entry) {
	courses := []model.Course{
		{ID: "c-b", Title: "Βάσεις Δεδομένων", DefaultRoom: "Αμφ. 1", DefaultProfessors: "Παπαδόπουλος"},
		{ID: "c-a", Title: "Άλγεβρα", DefaultRoom: "Β2"},
	}
	// 顺序刻意与开始时间不一致：位置由用户排列决定
	slots := []model.Slot{
		{ID: "late", Start: "15:00", End: "17:00"},
		{ID: "early", Start: "09:00", End: "11:00"},
	}
	entries := []model.Entry{
		{ID: "e1", CourseID: "c-b", Day: model.Wednesday, SlotID: "early", ClassType: model.ClassTheory},
		{ID: "e2", CourseID: "c-b", Day: model.Monday, SlotID: "early", ClassType: model.ClassLab},
		{ID: "e3", CourseID: "c-b", Day: model.Monday, SlotID: "late", ClassType: model.ClassTheory},
		{ID: "e4", CourseID: "c-a", Day: model.Friday, SlotID: "late", ClassType: model.ClassTheory},
		{ID: "e5", CourseID: "missing", Day: model.Friday, SlotID: "early", ClassType: model.ClassTheory},
	}
	return courses, slots, entries
}

func TestGroupByCourse_Ordering(t *testing.T) {
	courses, slots, entries := fixture()

	groups := GroupByCourse(courses, slots, entries, "el")

	require.Len(t, groups, 2)
	assert.Equal(t, "Άλγεβρα", groups[0].Course.Title)
	assert.Equal(t, "Βάσεις Δεδομένων", groups[1].Course.Title)

	var ids []string
	for _, s := range groups[1].Sessions {
		ids = append(ids, s.ID)
	}
	// 周一 late(位置0) → 周一 early(位置1) → 周三 early
	assert.Equal(t, []string{"e3", "e2", "e1"}, ids)
}

func TestGroupByCourse_LocaleAwareNotBytewise(t *testing.T) {
	courses := []model.Course{
		{ID: "1", Title: "Beta"},
		{ID: "2", Title: "alpha"},
	}
	entries := []model.Entry{
		{ID: "e1", CourseID: "1", Day: model.Monday, SlotID: "s"},
		{ID: "e2", CourseID: "2", Day: model.Monday, SlotID: "s"},
	}

	groups := GroupByCourse(courses, nil, entries, "en")

	require.Len(t, groups, 2)
	assert.Equal(t, "alpha", groups[0].Course.Title)
}

func TestSortCourses(t *testing.T) {
	courses := []model.Course{
		{ID: "3", Title: "Φυσική"},
		{ID: "2", Title: "άλγεβρα"},
		{ID: "1", Title: "Βάσεις Δεδομένων"},
		{ID: "0", Title: "άλγεβρα"},
	}

	SortCourses(courses, "el")

	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	// 按字节比较时小写 ά 会排在 Β 之后；同名按 ID
	assert.Equal(t, []string{"0", "2", "1", "3"}, ids)
}

func TestEffectiveValues(t *testing.T) {
	course := &model.Course{DefaultRoom: "Αμφ. 1", CourseURL: "https://eclass.example/c1"}

	assert.Equal(t, "Lab 3", EffectiveRoom(model.Entry{Room: "Lab 3"}, course))
	assert.Equal(t, "Αμφ. 1", EffectiveRoom(model.Entry{}, course))
	assert.Equal(t, Placeholder, EffectiveRoom(model.Entry{}, &model.Course{}))
	assert.Equal(t, Placeholder, EffectiveRoom(model.Entry{}, nil))
	assert.Equal(t, Placeholder, EffectiveProfessors(model.Entry{}, course))
	assert.Equal(t, "https://eclass.example/c1", EffectiveURL(model.Entry{}, course))
	assert.Equal(t, "", EffectiveURL(model.Entry{}, nil))
}

func TestIndex(t *testing.T) {
	_, _, entries := fixture()

	idx := Index(entries)

	e, ok := idx[model.CellKey(model.Monday, "late")]
	require.True(t, ok)
	assert.Equal(t, "e3", e.ID)
	_, ok = idx[model.CellKey(model.Tuesday, "late")]
	assert.False(t, ok)
}

func TestDropOrphans(t *testing.T) {
	courses, slots, entries := fixture()
	entries = append(entries,
		model.Entry{ID: "dup", CourseID: "c-a", Day: model.Monday, SlotID: "late"},
		model.Entry{ID: "noslot", CourseID: "c-a", Day: model.Tuesday, SlotID: "nope"},
	)

	kept, dropped := DropOrphans(slots, courses, entries)

	assert.Equal(t, 3, dropped) // e5(课程不存在) + dup(单元格重复) + noslot
	assert.Len(t, kept, 4)
}
