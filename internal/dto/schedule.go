package dto

import "github.com/sarigr/uni-schedule-cloud/internal/model"

// ── 课表文档 DTO ──

// ScheduleResponse GET /schedule 响应；用户从未保存过时 Payload 为 nil
type ScheduleResponse struct {
	Payload   *model.Payload `json:"payload"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// SaveScheduleResponse PUT /schedule 响应
type SaveScheduleResponse struct {
	UpdatedAt string `json:"updated_at"`
	Dropped   int    `json:"dropped"` // 服务端校验时丢弃的记录数
}
