package handler

import "github.com/sarigr/uni-schedule-cloud/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Profile  *ProfileHandler
	Schedule *ScheduleHandler
	Admin    *AdminHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		Profile:  NewProfileHandler(svc.Profile),
		Schedule: NewScheduleHandler(svc.Schedule),
		Admin:    NewAdminHandler(svc.Admin),
		Export:   NewExportHandler(svc.Export),
	}
}
