package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	mxerrors "github.com/customeros/mxvalidator/internal/errors"
	"github.com/customeros/mxvalidator/internal/tracing"
)

const (
	MsgInternalError      = "Internal server error"
	MsgBatchNotFound      = "Batch not found"
	MsgExportNotFound     = "Export not found"
	MsgArchiveDisabled    = "Export archiving is not configured"
	MsgInvalidRequestBody = "Invalid request body"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondWithError maps service errors onto status codes: validation 400,
// unknown batch or export 404, everything else 500.
func respondWithError(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)

	var validationErr *mxerrors.ValidationError
	var storageErr *mxerrors.StorageError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message, Details: validationErr.Details})
	case errors.Is(err, mxerrors.ErrBatchNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: MsgBatchNotFound})
	case errors.Is(err, mxerrors.ErrExportNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: MsgExportNotFound})
	case errors.Is(err, mxerrors.ErrStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: MsgArchiveDisabled})
	case errors.As(err, &storageErr):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgInternalError, Details: storageErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgInternalError, Details: err.Error()})
	}
}
