package dto

import "github.com/sarigr/uni-schedule-cloud/internal/model"

// ── 导出 / 导入 DTO ──

// ExportRequest 导出请求：提交完整文档，服务端只负责渲染
type ExportRequest struct {
	Payload  model.Payload `json:"payload"`
	WeekOf   string        `json:"week_of"  binding:"omitempty,datetime=2006-01-02"` // 仅 ICS 使用
	Timezone string        `json:"timezone" binding:"omitempty,timezone"`             // 仅 ICS 使用
}

// ImportResponse 导入 HTML 备份后返回校验过的文档，客户端确认后再替换本地状态
type ImportResponse struct {
	Payload    model.Payload `json:"payload"`
	ExportedAt int64         `json:"exported_at"` // 毫秒时间戳
	Dropped    int           `json:"dropped"`
	Rejected   int           `json:"rejected"`
}
