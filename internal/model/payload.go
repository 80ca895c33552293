package model

// Theme 主题
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme 解析主题，非法值退回 light
func ParseTheme(s string) Theme {
	if Theme(s) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// Skin 导出样式
type Skin string

const (
	SkinClassic Skin = "classic"
	SkinMinimal Skin = "minimal"
)

// ParseSkin 解析导出样式，非法值退回 classic
func ParseSkin(s string) Skin {
	if Skin(s) == SkinMinimal {
		return SkinMinimal
	}
	return SkinClassic
}

// Payload 云端同步的完整文档（整体覆盖，无增量）
type Payload struct {
	Slots      []Slot   `json:"slots"`
	Courses    []Course `json:"courses"`
	Entries    []Entry  `json:"entries"`
	Theme      Theme    `json:"theme"`
	ExportSkin Skin     `json:"exportSkin"`
}
