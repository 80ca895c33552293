package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sarigr/uni-schedule-cloud/internal/service"
	"github.com/sarigr/uni-schedule-cloud/pkg/response"
)

// ScheduleHandler 课表文档 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// GetSchedule 获取当前用户的课表文档；从未保存过时 payload 为 null
// GET /api/v1/schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.Get(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// SaveSchedule 整体覆盖当前用户的课表文档
// PUT /api/v1/schedule
//
// 请求体为完整 Payload；逐条校验，所以不使用 ShouldBindJSON
func (h *ScheduleHandler) SaveSchedule(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(c)
			return
		}
		response.BadRequest(c, 10001, "读取请求体失败")
		return
	}

	result, err := h.scheduleSvc.Save(c.Request.Context(), userID, raw)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDocument) {
			response.BadRequest(c, 12001, "课表文档格式无效")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
