package model

// Day 星期（仅工作日）
type Day string

const (
	Monday    Day = "Mon"
	Tuesday   Day = "Tue"
	Wednesday Day = "Wed"
	Thursday  Day = "Thu"
	Friday    Day = "Fri"
)

// Weekdays 固定的周一至周五顺序
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

// Index 返回星期在周一至周五中的位置，非法值返回 -1
func (d Day) Index() int {
	for i, w := range Weekdays {
		if w == d {
			return i
		}
	}
	return -1
}

// Valid 是否为合法星期
func (d Day) Valid() bool { return d.Index() >= 0 }

// ClassType 课程类型
type ClassType string

const (
	ClassTheory ClassType = "THEORY"
	ClassLab    ClassType = "LAB"
)

// Valid 是否为合法课程类型
func (c ClassType) Valid() bool {
	return c == ClassTheory || c == ClassLab
}

// Badge 单字母角标：T 理论 / L 实验
func (c ClassType) Badge() string {
	if c == ClassLab {
		return "L"
	}
	return "T"
}

// Entry 排课记录：把某门课程放到 (day, slot) 单元格
// Room / Professors / CourseURL 为空表示继承课程默认值
type Entry struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"courseId"`
	Day        Day       `json:"day"`
	SlotID     string    `json:"slotId"`
	ClassType  ClassType `json:"classType"`
	Room       string    `json:"room"`
	Professors string    `json:"professors"`
	CourseURL  string    `json:"courseUrl"`
	CreatedAt  int64     `json:"createdAt"` // 毫秒时间戳
}

// CellKey 单元格键 "day|slotId"
func CellKey(day Day, slotID string) string {
	return string(day) + "|" + slotID
}

// Cell 返回本条记录所在单元格键
func (e Entry) Cell() string {
	return CellKey(e.Day, e.SlotID)
}

var dayLabels = map[Day]string{
	Monday:    "Δευτέρα",
	Tuesday:   "Τρίτη",
	Wednesday: "Τετάρτη",
	Thursday:  "Πέμπτη",
	Friday:    "Παρασκευή",
}

// Label 星期显示名
func (d Day) Label() string {
	if l, ok := dayLabels[d]; ok {
		return l
	}
	return string(d)
}
