package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/tracing"
)

const (
	MsgFileProcessed  = "File processed successfully"
	MsgNoFileUploaded = "No file uploaded"
	MsgFileTooLarge   = "File too large"

	uploadFormField = "file"
)

type UploadResponse struct {
	Message          string `json:"message"`
	BatchID          string `json:"batchId"`
	RecordsProcessed int    `json:"recordsProcessed"`
}

type BatchHandler struct {
	batch          interfaces.BatchService
	maxUploadBytes int64
}

func NewBatchHandler(batch interfaces.BatchService, maxUploadMB int64) *BatchHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &BatchHandler{
		batch:          batch,
		maxUploadBytes: maxUploadMB << 20,
	}
}

// UploadBatch ingests a CSV upload and answers once every domain of the new
// batch has been resolved and written back.
func (h *BatchHandler) UploadBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "BatchHandler.UploadBatch")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

		fileHeader, err := c.FormFile(uploadFormField)
		if err != nil {
			tracing.TraceErr(span, err)
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: MsgFileTooLarge})
				return
			}
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgNoFileUploaded})
			return
		}
		span.LogFields(tracingLog.String("filename", fileHeader.Filename), tracingLog.Int64("size", fileHeader.Size))

		file, err := fileHeader.Open()
		if err != nil {
			respondWithError(c, span, errors.Wrap(err, "failed to open upload"))
			return
		}
		defer file.Close()

		result, err := h.batch.Ingest(ctx, file)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, UploadResponse{
			Message:          MsgFileProcessed,
			BatchID:          result.BatchID,
			RecordsProcessed: result.RecordsProcessed,
		})
	}
}

// GetBatchRecords lists one batch newest first.
func (h *BatchHandler) GetBatchRecords() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "BatchHandler.GetBatchRecords")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		batchID := c.Param("batchId")
		tracing.TagBatch(span, batchID)

		records, err := h.batch.GetRecords(ctx, batchID)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

func (h *BatchHandler) GetAllRecords() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "BatchHandler.GetAllRecords")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		records, err := h.batch.GetAllRecords(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}
