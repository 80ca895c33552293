package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sarigr/uni-schedule-cloud/internal/backup"
	"github.com/sarigr/uni-schedule-cloud/internal/dto"
	"github.com/sarigr/uni-schedule-cloud/internal/export"
	"github.com/sarigr/uni-schedule-cloud/internal/service"
	"github.com/sarigr/uni-schedule-cloud/pkg/response"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出 / 导入 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	now       func() time.Time
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, now: time.Now}
}

// ExportHTML 导出为带内嵌备份的静态 HTML
// POST /api/v1/export/html
func (h *ExportHandler) ExportHTML(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	out, err := h.exportSvc.HTML(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	h.attach(c, "html", contentTypeHTML, []byte(out))
}

// ExportXLSX 导出为 Excel
// POST /api/v1/export/xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, err := h.exportSvc.XLSX(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	h.attach(c, "xlsx", contentTypeXLSX, buf.Bytes())
}

// ExportICS 导出为 iCalendar（每周重复）
// POST /api/v1/export/ics
func (h *ExportHandler) ExportICS(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	out, err := h.exportSvc.ICS(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	h.attach(c, "ics", contentTypeICS, []byte(out))
}

// ImportHTML 解析导出的 HTML，返回校验后的文档（不写入数据库）
// POST /api/v1/import/html
//
// 支持 multipart 字段 file，或直接以请求体上传
func (h *ExportHandler) ImportHTML(c *gin.Context) {
	var src io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, 10001, "无法读取上传文件")
			return
		}
		defer f.Close()
		src = f
	}

	result, err := h.exportSvc.ImportHTML(c.Request.Context(), src)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.OK(c, result)
}

// attach 以附件形式写出导出文件：uni-schedule-YYYY-MM-DD.<ext>
func (h *ExportHandler) attach(c *gin.Context, ext, contentType string, body []byte) {
	response.Attachment(c, export.AppTag+"-"+h.now().Format("2006-01-02")+"."+ext, contentType, body)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDocument):
		response.BadRequest(c, 12001, "课表文档格式无效")
	case errors.Is(err, service.ErrInvalidWeek):
		response.BadRequest(c, 10001, "week_of 或 timezone 无效")
	case errors.Is(err, export.ErrNoEntries):
		response.BadRequest(c, 16102, "课表中无排课记录")
	default:
		response.InternalError(c)
	}
}

func (h *ExportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, backup.ErrBackupMissing),
		errors.Is(err, backup.ErrBackupEmpty),
		errors.Is(err, backup.ErrBackupInvalidJSON),
		errors.Is(err, backup.ErrBackupForeignApp),
		errors.Is(err, backup.ErrBackupUnreadable):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 16201, "导入文件无效", err.Error())
	default:
		response.InternalError(c)
	}
}
