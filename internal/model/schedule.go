package model

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduleDocument 用户课表文档 — 对应 schedules
// 每个用户一行，payload 为完整 Payload JSON，写入即整体覆盖（后写者胜出，无版本号）
type ScheduleDocument struct {
	UserID    string         `gorm:"type:uuid;primaryKey"    json:"user_id"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"     json:"payload"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (ScheduleDocument) TableName() string { return "schedules" }
