package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gabrielsqw/badminton-club/internal/dto"
	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/internal/service"
	"github.com/gabrielsqw/badminton-club/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	now       func() time.Time
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, now: time.Now}
}

// ExportPeriod 导出两周意向汇总
// GET /api/v1/export/period?start=YYYY-MM-DD
func (h *ExportHandler) ExportPeriod(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleBindError(c, err)
		return
	}

	ref := model.NormalizeDate(h.now())
	if q.Start != "" {
		ref, _ = model.ParseDate(q.Start)
	}

	buf, filename, err := h.exportSvc.ExportPeriod(c.Request.Context(), ref)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}
