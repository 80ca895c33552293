package model

import "time"

// Profile 用户资料表 — 对应 profiles
// 首次访问时按需创建；is_master 标记主管理员
type Profile struct {
	UserID    string    `gorm:"type:uuid;primaryKey"                  json:"user_id"`
	Username  string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"username"`
	IsMaster  bool      `gorm:"not null;default:false"                json:"is_master"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"               json:"created_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"-"`
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }
