package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/customeros/mxvalidator/internal/enum"
)

type EmailRecord struct {
	ID           uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email        string          `gorm:"column:email;type:text;not null" json:"email"`
	Domain       string          `gorm:"column:domain;type:varchar(255);not null;index:idx_batch_domain,priority:2" json:"domain"`
	MxRecords    pq.StringArray  `gorm:"column:mx_records;type:text[]" json:"mxRecords"`
	MxScanStatus enum.ScanStatus `gorm:"column:mx_scan_status;type:varchar(20);not null;default:pending;index" json:"mxScanStatus"`
	BatchID      string          `gorm:"column:batch_id;type:varchar(64);not null;index:idx_batch_domain,priority:1" json:"batchId"`
	CreatedAt    time.Time       `gorm:"column:created_at;type:timestamp;not null" json:"createdAt"`
}

func (EmailRecord) TableName() string {
	return "email_records"
}

// IsDeliverable reports a completed scan with at least one MX record.
func (r *EmailRecord) IsDeliverable() bool {
	return r.MxScanStatus == enum.ScanStatusCompleted && len(r.MxRecords) > 0
}

// IsUndeliverable reports a failed scan or a row without MX records, whatever
// its status. Pending rows therefore count as undeliverable until resolved.
func (r *EmailRecord) IsUndeliverable() bool {
	return r.MxScanStatus == enum.ScanStatusFailed || len(r.MxRecords) == 0
}

// PendingDomain identifies the rows of one domain inside a batch that are
// still waiting for resolution.
type PendingDomain struct {
	BatchID string `gorm:"column:batch_id"`
	Domain  string `gorm:"column:domain"`
}
