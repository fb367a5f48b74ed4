package repository

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/enum"
	"github.com/customeros/mxvalidator/internal/models"
	"github.com/customeros/mxvalidator/internal/tracing"
)

const createBatchSize = 500

type emailRecordRepository struct {
	db *gorm.DB
}

func NewEmailRecordRepository(db *gorm.DB) interfaces.EmailRecordRepository {
	return &emailRecordRepository{db: db}
}

// CreateBatch inserts every record of an upload in a single transaction.
func (r *emailRecordRepository) CreateBatch(ctx context.Context, records []*models.EmailRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailRecordRepository.CreateBatch")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogFields(tracingLog.Int("records", len(records)))

	if len(records) == 0 {
		return ErrInvalidInput
	}
	tracing.TagBatch(span, records[0].BatchID)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(records, createBatchSize).Error
	})
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}
	return nil
}

// UpdateDomainResolution moves every pending row of one domain in a batch to
// its terminal status. Returns the number of rows changed.
func (r *emailRecordRepository) UpdateDomainResolution(ctx context.Context, batchID, domain string, status enum.ScanStatus, mxRecords []string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailRecordRepository.UpdateDomainResolution")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagBatch(span, batchID)
	span.LogFields(tracingLog.String("domain", domain), tracingLog.String("status", status.String()))

	if !status.IsTerminal() {
		return 0, ErrInvalidInput
	}

	updates := map[string]interface{}{
		"mx_scan_status": status,
		"mx_records":     nil,
	}
	if status == enum.ScanStatusCompleted {
		updates["mx_records"] = pq.StringArray(mxRecords)
	}

	result := r.db.WithContext(ctx).
		Model(&models.EmailRecord{}).
		Where("batch_id = ? AND domain = ? AND mx_scan_status = ?", batchID, domain, enum.ScanStatusPending).
		Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, errors.Wrap(result.Error, "db error"))
		return 0, result.Error
	}

	span.LogFields(tracingLog.Int64("rowsAffected", result.RowsAffected))
	return result.RowsAffected, nil
}

func (r *emailRecordRepository) GetByBatch(ctx context.Context, batchID string) ([]*models.EmailRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailRecordRepository.GetByBatch")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagBatch(span, batchID)

	var records []*models.EmailRecord
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(records)))
	return records, nil
}

func (r *emailRecordRepository) GetAll(ctx context.Context) ([]*models.EmailRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailRecordRepository.GetAll")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var records []*models.EmailRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(records)))
	return records, nil
}

// FindStalePending lists (batch, domain) groups still pending that were
// created before the given instant.
func (r *emailRecordRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.PendingDomain, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailRecordRepository.FindStalePending")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogFields(tracingLog.String("createdBefore", createdBefore.String()), tracingLog.Int("limit", limit))

	var pending []models.PendingDomain
	err := r.db.WithContext(ctx).
		Model(&models.EmailRecord{}).
		Select("batch_id, domain").
		Where("mx_scan_status = ? AND created_at < ?", enum.ScanStatusPending, createdBefore).
		Group("batch_id, domain").
		Order("batch_id, domain").
		Limit(limit).
		Scan(&pending).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(pending)))
	return pending, nil
}
