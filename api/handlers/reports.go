package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/tracing"
	"github.com/customeros/mxvalidator/internal/utils"
	"github.com/customeros/mxvalidator/services/report"
)

type ReportHandler struct {
	report interfaces.ReportService
}

func NewReportHandler(report interfaces.ReportService) *ReportHandler {
	return &ReportHandler{report: report}
}

func (h *ReportHandler) GetReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ReportHandler.GetReport")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		batchID := c.Param("batchId")
		tracing.TagBatch(span, batchID)

		result, err := h.report.Report(ctx, batchID)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// ExportCSV renders the whole export before writing so a failure can still
// be reported as JSON.
func (h *ReportHandler) ExportCSV() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ReportHandler.ExportCSV")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		batchID := c.Param("batchId")
		tracing.TagBatch(span, batchID)

		var buf bytes.Buffer
		if err := h.report.ExportCSV(ctx, batchID, &buf); err != nil {
			respondWithError(c, span, err)
			return
		}

		setAttachment(c, report.ExportFileName(utils.Now()))
		c.Data(http.StatusOK, report.ExportContentType, buf.Bytes())
	}
}

func (h *ReportHandler) ArchiveExport() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ReportHandler.ArchiveExport")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		batchID := c.Param("batchId")
		tracing.TagBatch(span, batchID)

		archived, err := h.report.ArchiveExport(ctx, batchID)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, archived)
	}
}

// DownloadExport streams an archived export back from object storage.
func (h *ReportHandler) DownloadExport() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ReportHandler.DownloadExport")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		key := c.Param("key")
		data, err := h.report.DownloadExport(ctx, key)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		setAttachment(c, path.Base(key))
		c.Data(http.StatusOK, report.ExportContentType, data)
	}
}

func setAttachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
