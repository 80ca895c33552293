package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sarigr/uni-schedule-cloud/internal/service"
	"github.com/sarigr/uni-schedule-cloud/pkg/response"
)

// ProfileHandler 档案模块 HTTP 处理器
type ProfileHandler struct {
	profileSvc service.ProfileService
}

// NewProfileHandler 创建 ProfileHandler
func NewProfileHandler(profileSvc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// GetProfile 获取当前用户档案（不存在时创建）
// GET /api/v1/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	result, err := h.profileSvc.Ensure(c.Request.Context(), userID, username)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ListProfiles 列出全部档案（仅管理员）
// GET /api/v1/profiles
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.profileSvc.List(c.Request.Context(), userID)
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
