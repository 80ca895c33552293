package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/service"
	"github.com/sarigr/uni-schedule-cloud/pkg/response"
)

// AdminHandler 管理员操作 HTTP 处理器
type AdminHandler struct {
	adminSvc service.AdminService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(adminSvc service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// ResetPin 重置指定用户的 PIN
// POST /api/v1/admin/reset-pin
//
// 业务失败（用户不存在等）仍返回 200，data 为 {ok:false, message}
func (h *AdminHandler) ResetPin(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ResetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.adminSvc.ResetPin(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			response.Forbidden(c, 10003, "仅管理员可执行此操作")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
