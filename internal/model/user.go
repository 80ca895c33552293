package model

import "gorm.io/gorm"

// User 登录凭据表 — 对应 users
// PIN 仅以 bcrypt 哈希形式保存
type User struct {
	UserID   string `gorm:"type:uuid;primaryKey"                  json:"user_id"`
	Username string `gorm:"type:varchar(32);not null;uniqueIndex" json:"username"`
	PinHash  string `gorm:"type:varchar(255);not null"            json:"-"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 主键为空时生成 UUID
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.UserID == "" {
		u.UserID = NewID()
	}
	return nil
}
