package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用审计字段（后端持久化模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// NewID 生成实体主键（UUID v4 字符串）
// 主键统一在应用层生成，不依赖数据库默认值，便于 PostgreSQL 与 SQLite 共用同一模型
func NewID() string {
	return uuid.New().String()
}

// EpochMillis 将时间转换为毫秒时间戳（与导出文档、本地存储中的 createdAt 一致）
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
