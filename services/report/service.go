package report

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/interfaces"
	mxerrors "github.com/customeros/mxvalidator/internal/errors"
	"github.com/customeros/mxvalidator/internal/logger"
	"github.com/customeros/mxvalidator/internal/models"
	"github.com/customeros/mxvalidator/internal/repository"
	"github.com/customeros/mxvalidator/internal/tracing"
	"github.com/customeros/mxvalidator/internal/utils"
	"github.com/customeros/mxvalidator/services/storage"
)

const (
	ExportKeyPrefix   = "exports/"
	ExportDownloadURL = "/v1/exports/"
)

type reportService struct {
	log      logger.Logger
	postgres *repository.Repositories
	storage  interfaces.StorageService
	baseURL  string
}

// NewReportService builds the read side. storage may be nil, in which case
// archiving is unavailable.
func NewReportService(log logger.Logger, postgres *repository.Repositories, storage interfaces.StorageService, baseURL string) interfaces.ReportService {
	return &reportService{
		log:      log,
		postgres: postgres,
		storage:  storage,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *reportService) Report(ctx context.Context, batchID string) (*dto.Report, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReportService.Report")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBatch(span, batchID)

	records, err := s.batchRecords(ctx, batchID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	report := BuildReport(batchID, records)
	span.LogFields(
		tracingLog.Int("total", report.Total),
		tracingLog.Float64("deliverabilityRate", report.DeliverabilityRate),
	)
	return &report, nil
}

// ExportCSV streams the batch newest first.
func (s *reportService) ExportCSV(ctx context.Context, batchID string, w io.Writer) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReportService.ExportCSV")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBatch(span, batchID)

	records, err := s.batchRecords(ctx, batchID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if err := WriteCSV(w, records); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to write csv export")
	}
	return nil
}

func (s *reportService) ArchiveExport(ctx context.Context, batchID string) (*dto.ArchivedExport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReportService.ArchiveExport")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBatch(span, batchID)

	if s.storage == nil {
		return nil, mxerrors.ErrStorageDisabled
	}

	var buf bytes.Buffer
	if err := s.ExportCSV(ctx, batchID, &buf); err != nil {
		return nil, err
	}

	key := ExportKeyPrefix + batchID + "/" + ExportFileName(utils.Now())
	if err := s.storage.Upload(ctx, key, buf.Bytes(), ExportContentType); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Failed to archive export for batch %s: %v", batchID, err)
		return nil, mxerrors.NewStorageError("archive export", err)
	}

	url := s.storage.GetPublicURL(key)
	if url == "" {
		url = s.baseURL + ExportDownloadURL + key
	}
	span.LogFields(tracingLog.String("key", key))

	return &dto.ArchivedExport{Key: key, URL: url}, nil
}

func (s *reportService) DownloadExport(ctx context.Context, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReportService.DownloadExport")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogFields(tracingLog.String("key", key))

	if s.storage == nil {
		return nil, mxerrors.ErrStorageDisabled
	}

	key = strings.TrimPrefix(key, "/")
	if !strings.HasPrefix(key, ExportKeyPrefix) || strings.Contains(key, "..") {
		return nil, mxerrors.ErrExportNotFound
	}

	data, err := s.storage.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, mxerrors.ErrExportNotFound
		}
		tracing.TraceErr(span, err)
		return nil, mxerrors.NewStorageError("download export", err)
	}
	return data, nil
}

func (s *reportService) batchRecords(ctx context.Context, batchID string) ([]*models.EmailRecord, error) {
	records, err := s.postgres.EmailRecordRepository.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, mxerrors.NewStorageError("read batch", err)
	}
	if len(records) == 0 {
		return nil, mxerrors.ErrBatchNotFound
	}
	return records, nil
}
