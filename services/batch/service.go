package batch

import (
	"context"
	"io"
	"sync"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/enum"
	mxerrors "github.com/customeros/mxvalidator/internal/errors"
	"github.com/customeros/mxvalidator/internal/logger"
	"github.com/customeros/mxvalidator/internal/models"
	"github.com/customeros/mxvalidator/internal/repository"
	"github.com/customeros/mxvalidator/internal/tracing"
	"github.com/customeros/mxvalidator/internal/utils"
	"github.com/customeros/mxvalidator/services/parser"
)

type batchService struct {
	log       logger.Logger
	postgres  *repository.Repositories
	resolver  interfaces.DomainResolver
	publisher interfaces.EventPublisher
}

// NewBatchService wires the upload pipeline. publisher may be nil.
func NewBatchService(log logger.Logger, postgres *repository.Repositories, resolver interfaces.DomainResolver, publisher interfaces.EventPublisher) interfaces.BatchService {
	return &batchService{
		log:       log,
		postgres:  postgres,
		resolver:  resolver,
		publisher: publisher,
	}
}

// Ingest parses one upload, stores it as a new batch and resolves every
// distinct domain once. It returns after every domain has been written back.
func (s *batchService) Ingest(ctx context.Context, upload io.Reader) (*dto.IngestResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BatchService.Ingest")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	pairs, err := parser.Parse(upload)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	batchID := utils.GenerateBatchID()
	tracing.TagBatch(span, batchID)

	createdAt := utils.Now()
	records := make([]*models.EmailRecord, 0, len(pairs))
	domains := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		records = append(records, &models.EmailRecord{
			Email:        pair.Email,
			Domain:       pair.Domain,
			MxScanStatus: enum.ScanStatusPending,
			BatchID:      batchID,
			CreatedAt:    createdAt,
		})
		domains = append(domains, pair.Domain)
	}

	if err := s.postgres.EmailRecordRepository.CreateBatch(ctx, records); err != nil {
		storageErr := mxerrors.NewStorageError("insert batch", err)
		tracing.TraceErr(span, storageErr)
		s.log.Errorf("Failed to store batch %s with %d records: %v", batchID, len(records), err)
		return nil, storageErr
	}

	uniqueDomains := utils.UniqueStrings(domains)
	result := &dto.IngestResult{
		BatchID:          batchID,
		RecordsProcessed: len(records),
		Domains:          len(uniqueDomains),
	}
	span.LogFields(tracingLog.Int("records", len(records)), tracingLog.Int("domains", len(uniqueDomains)))

	// rows must reach a terminal status even if the caller goes away
	resolveCtx := context.WithoutCancel(ctx)

	var mu sync.Mutex
	s.resolver.ResolveAll(resolveCtx, uniqueDomains, func(ctx context.Context, resolution dto.Resolution) {
		writeErr := s.writeBack(ctx, batchID, resolution)

		mu.Lock()
		defer mu.Unlock()
		if resolution.Outcome == enum.ResolutionResolved {
			result.CompletedDomains++
		} else {
			result.FailedDomains++
		}
		if writeErr != nil {
			result.WriteBackFailures++
		}
	})

	span.LogFields(
		tracingLog.Int("completedDomains", result.CompletedDomains),
		tracingLog.Int("failedDomains", result.FailedDomains),
		tracingLog.Int("writeBackFailures", result.WriteBackFailures),
	)
	s.log.Infof("Batch %s processed: %d records, %d domains (%d completed, %d failed, %d write-back failures)",
		batchID, result.RecordsProcessed, result.Domains, result.CompletedDomains, result.FailedDomains, result.WriteBackFailures)

	s.publishBatchCompleted(resolveCtx, result)

	return result, nil
}

// ProcessDomain resolves one domain of an existing batch and writes the
// outcome back to its pending rows.
func (s *batchService) ProcessDomain(ctx context.Context, batchID, domain string) (enum.ResolutionOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BatchService.ProcessDomain")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBatch(span, batchID)
	span.SetTag("domain", domain)

	resolution := s.resolver.Resolve(ctx, domain)
	if err := s.writeBack(ctx, batchID, resolution); err != nil {
		tracing.TraceErr(span, err)
		return resolution.Outcome, err
	}
	return resolution.Outcome, nil
}

func (s *batchService) writeBack(ctx context.Context, batchID string, resolution dto.Resolution) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BatchService.writeBack")
	defer span.Finish()
	tracing.TagBatch(span, batchID)
	span.SetTag("domain", resolution.Domain)
	span.LogFields(tracingLog.String("outcome", resolution.Outcome.String()))

	switch resolution.Outcome {
	case enum.ResolutionUnreachable:
		s.log.Warnf("MX lookup for %s in batch %s failed: %v", resolution.Domain, batchID, resolution.Err)
	case enum.ResolutionEmpty:
		s.log.Infof("No usable MX records for %s in batch %s", resolution.Domain, batchID)
	}

	_, err := s.postgres.EmailRecordRepository.UpdateDomainResolution(ctx, batchID, resolution.Domain,
		resolution.Outcome.ScanStatus(), resolution.RecordStrings())
	if err != nil {
		err = errors.Wrapf(err, "failed to write back resolution for %s", resolution.Domain)
		tracing.TraceErr(span, err)
		s.log.Errorf("Batch %s (trace %s): %v", batchID, tracing.GetTraceId(span), err)
		return err
	}
	return nil
}

func (s *batchService) publishBatchCompleted(ctx context.Context, result *dto.IngestResult) {
	if s.publisher == nil {
		return
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "BatchService.publishBatchCompleted")
	defer span.Finish()
	tracing.TagBatch(span, result.BatchID)

	err := s.publisher.PublishBatchCompleted(ctx, dto.BatchCompleted{
		BatchID:          result.BatchID,
		Records:          result.RecordsProcessed,
		Domains:          result.Domains,
		CompletedDomains: result.CompletedDomains,
		FailedDomains:    result.FailedDomains,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Warnf("Failed to publish completion event for batch %s: %v", result.BatchID, err)
	}
}

// GetRecords returns the batch's rows newest first. An unknown batch yields
// an empty slice.
func (s *batchService) GetRecords(ctx context.Context, batchID string) ([]*models.EmailRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BatchService.GetRecords")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBatch(span, batchID)

	records, err := s.postgres.EmailRecordRepository.GetByBatch(ctx, batchID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mxerrors.NewStorageError("read batch", err)
	}
	if records == nil {
		records = []*models.EmailRecord{}
	}
	return records, nil
}

func (s *batchService) GetAllRecords(ctx context.Context) ([]*models.EmailRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BatchService.GetAllRecords")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	records, err := s.postgres.EmailRecordRepository.GetAll(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mxerrors.NewStorageError("read records", err)
	}
	if records == nil {
		records = []*models.EmailRecord{}
	}
	return records, nil
}
