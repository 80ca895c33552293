// Package grid 提供课表的派生视图：单元格索引、课程映射、按课程分组与“生效值”解析。
// 所有函数均为纯函数，输入切片不会被修改。
package grid

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sarigr/uni-schedule-cloud/internal/model"
)

// Placeholder 课程与记录都未设置时显示的占位符
const Placeholder = "—"

// DefaultCollation 默认排序语言
const DefaultCollation = "el"

// Index 以 "day|slotId" 为键索引排课记录
func Index(entries []model.Entry) map[string]model.Entry {
	idx := make(map[string]model.Entry, len(entries))
	for _, e := range entries {
		idx[e.Cell()] = e
	}
	return idx
}

// CourseMap 以课程 ID 为键索引课程
func CourseMap(courses []model.Course) map[string]model.Course {
	m := make(map[string]model.Course, len(courses))
	for _, c := range courses {
		m[c.ID] = c
	}
	return m
}

// SlotPositions 时间段 ID → 用户设定的顺序位置
func SlotPositions(slots []model.Slot) map[string]int {
	pos := make(map[string]int, len(slots))
	for i, s := range slots {
		pos[s.ID] = i
	}
	return pos
}

// EffectiveRoom 记录覆盖值 > 课程默认值 > 占位符
func EffectiveRoom(e model.Entry, c *model.Course) string {
	if e.Room != "" {
		return e.Room
	}
	if c != nil && c.DefaultRoom != "" {
		return c.DefaultRoom
	}
	return Placeholder
}

// EffectiveProfessors 记录覆盖值 > 课程默认值 > 占位符
func EffectiveProfessors(e model.Entry, c *model.Course) string {
	if e.Professors != "" {
		return e.Professors
	}
	if c != nil && c.DefaultProfessors != "" {
		return c.DefaultProfessors
	}
	return Placeholder
}

// EffectiveURL 记录覆盖值 > 课程默认值；都为空时返回空串（无链接）
func EffectiveURL(e model.Entry, c *model.Course) string {
	if e.CourseURL != "" {
		return e.CourseURL
	}
	if c != nil {
		return c.CourseURL
	}
	return ""
}

// Group 一门课程及其全部排课
type Group struct {
	Course   model.Course
	Sessions []model.Entry
}

// GroupByCourse 按课程分组
//   - 组内按星期（周一至周五）再按时间段顺序排序
//   - 组间按课程标题本地化排序（collation 为 BCP 47 语言标签，如 "el"）
//   - 引用了不存在课程的记录被忽略
func GroupByCourse(courses []model.Course, slots []model.Slot, entries []model.Entry, collation string) []Group {
	byID := CourseMap(courses)
	pos := SlotPositions(slots)

	buckets := make(map[string][]model.Entry)
	for _, e := range entries {
		if _, ok := byID[e.CourseID]; !ok {
			continue
		}
		buckets[e.CourseID] = append(buckets[e.CourseID], e)
	}

	groups := make([]Group, 0, len(buckets))
	for id, sessions := range buckets {
		sort.SliceStable(sessions, func(i, j int) bool {
			di, dj := sessions[i].Day.Index(), sessions[j].Day.Index()
			if di != dj {
				return di < dj
			}
			return slotPos(pos, sessions[i].SlotID) < slotPos(pos, sessions[j].SlotID)
		})
		groups = append(groups, Group{Course: byID[id], Sessions: sessions})
	}

	col := newCollator(collation)
	sort.SliceStable(groups, func(i, j int) bool {
		if c := col.CompareString(groups[i].Course.Title, groups[j].Course.Title); c != 0 {
			return c < 0
		}
		return groups[i].Course.ID < groups[j].Course.ID
	})
	return groups
}

// SortCourses 按本地化规则对课程名排序，同名按 ID；原地排序
func SortCourses(courses []model.Course, collation string) {
	col := newCollator(collation)
	sort.SliceStable(courses, func(i, j int) bool {
		if c := col.CompareString(courses[i].Title, courses[j].Title); c != 0 {
			return c < 0
		}
		return courses[i].ID < courses[j].ID
	})
}

func slotPos(pos map[string]int, id string) int {
	if p, ok := pos[id]; ok {
		return p
	}
	return len(pos)
}

// newCollator collate.Collator 非并发安全，每次调用单独创建
func newCollator(tag string) *collate.Collator {
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.Greek
	}
	return collate.New(lang, collate.IgnoreCase)
}

// DropOrphans 丢弃引用了不存在时间段或课程的记录，以及同一单元格的重复记录（保留先出现者）
func DropOrphans(slots []model.Slot, courses []model.Course, entries []model.Entry) ([]model.Entry, int) {
	slotIDs := SlotPositions(slots)
	byID := CourseMap(courses)

	kept := make([]model.Entry, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	dropped := 0
	for _, e := range entries {
		_, slotOK := slotIDs[e.SlotID]
		_, courseOK := byID[e.CourseID]
		if !slotOK || !courseOK || seen[e.Cell()] {
			dropped++
			continue
		}
		seen[e.Cell()] = true
		kept = append(kept, e)
	}
	return kept, dropped
}
