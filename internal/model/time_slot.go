package model

import "regexp"

// hhmmPattern 24 小时制 HH:MM
var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidHHMM 判断字符串是否为合法的 24 小时制 HH:MM
func ValidHHMM(s string) bool {
	return hhmmPattern.MatchString(s)
}

// Slot 时间段：每天重复的一个时间窗口
// 顺序由用户显式排列决定，而不是按开始时间排序
type Slot struct {
	ID    string `json:"id"`
	Start string `json:"start"` // "09:00"
	End   string `json:"end"`   // "11:00"
	Label string `json:"label"`
}

// DefaultSlotLabel 未设置 label 时的默认显示文本，如 "09:00–11:00"
func DefaultSlotLabel(start, end string) string {
	return start + "–" + end
}

// DisplayLabel 返回 label，为空时退回默认文本
func (s Slot) DisplayLabel() string {
	if s.Label == "" {
		return DefaultSlotLabel(s.Start, s.End)
	}
	return s.Label
}

// DefaultSlots 首次启动、本地尚无时间段时的预置时间段
func DefaultSlots() []Slot {
	ranges := [][2]string{
		{"09:00", "11:00"},
		{"11:00", "13:00"},
		{"13:00", "15:00"},
		{"15:00", "17:00"},
		{"17:00", "19:00"},
	}
	slots := make([]Slot, 0, len(ranges))
	for _, r := range ranges {
		slots = append(slots, Slot{
			ID:    "slot-" + r[0][:2] + r[0][3:],
			Start: r[0],
			End:   r[1],
			Label: DefaultSlotLabel(r[0], r[1]),
		})
	}
	return slots
}
