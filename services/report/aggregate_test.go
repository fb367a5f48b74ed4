package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/internal/enum"
	"github.com/customeros/mxvalidator/internal/models"
)

var createdAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func record(id uint64, email, domain string, status enum.ScanStatus, mx ...string) *models.EmailRecord {
	r := &models.EmailRecord{
		ID:           id,
		Email:        email,
		Domain:       domain,
		MxScanStatus: status,
		BatchID:      "batch_1",
		CreatedAt:    createdAt,
	}
	if len(mx) > 0 {
		r.MxRecords = pq.StringArray(mx)
	}
	return r
}

func exampleBatch() []*models.EmailRecord {
	// newest first, as the repository returns them
	return []*models.EmailRecord{
		record(3, "placeholder@y.com", "y.com", enum.ScanStatusFailed),
		record(2, "b@x.com", "x.com", enum.ScanStatusCompleted, "10 mx1.x.com", "20 mx2.x.com"),
		record(1, "a@x.com", "x.com", enum.ScanStatusCompleted, "10 mx1.x.com", "20 mx2.x.com"),
	}
}

func TestBuildReport_Example(t *testing.T) {
	report := BuildReport("batch_1", exampleBatch())

	assert.Equal(t, "batch_1", report.BatchID)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Deliverable)
	assert.Equal(t, 1, report.Undeliverable)
	assert.Equal(t, 0, report.Pending)
	assert.Equal(t, 66.7, report.DeliverabilityRate)
	assert.Equal(t, 67, report.QualityScore)
	assert.Equal(t, enum.QualityBandFair, report.QualityBand)
	assert.Equal(t, []dto.DomainCount{
		{Domain: "x.com", Label: "x.com", Count: 2},
		{Domain: "y.com", Label: "y.com", Count: 1},
	}, report.TopDomains)
	assert.Equal(t, []dto.ProviderCount{{Provider: enum.MailProviderOther, Count: 3}}, report.ProviderDistribution)
	assert.Equal(t, report.Total, report.Deliverable+report.Undeliverable)
}

func TestBuildReport_EmptyInput(t *testing.T) {
	report := BuildReport("batch_1", nil)

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0.0, report.DeliverabilityRate)
	assert.Equal(t, 0, report.QualityScore)
	assert.Equal(t, enum.QualityBandPoor, report.QualityBand)
	assert.Empty(t, report.TopDomains)
	assert.Empty(t, report.ProviderDistribution)
}

func TestBuildReport_PendingCountsAsUndeliverable(t *testing.T) {
	report := BuildReport("batch_1", []*models.EmailRecord{
		record(1, "a@x.com", "x.com", enum.ScanStatusCompleted, "10 mx.x.com"),
		record(2, "b@y.com", "y.com", enum.ScanStatusPending),
		record(3, "c@z.com", "z.com", enum.ScanStatusCompleted),
	})

	assert.Equal(t, 1, report.Deliverable)
	assert.Equal(t, 2, report.Undeliverable)
	assert.Equal(t, 1, report.Pending)
	assert.Equal(t, 33.3, report.DeliverabilityRate)
	assert.Equal(t, 33, report.QualityScore)
	assert.Equal(t, enum.QualityBandPoor, report.QualityBand)
}

func TestBuildReport_TopDomainsTiesKeepFirstSeenOrder(t *testing.T) {
	records := []*models.EmailRecord{
		record(6, "6@d.com", "d.com", enum.ScanStatusFailed),
		record(5, "5@d.com", "d.com", enum.ScanStatusFailed),
		record(4, "4@c.com", "c.com", enum.ScanStatusFailed),
		record(3, "3@b.com", "b.com", enum.ScanStatusFailed),
		record(2, "2@b.com", "b.com", enum.ScanStatusFailed),
		record(1, "1@a.com", "a.com", enum.ScanStatusFailed),
	}

	report := BuildReport("batch_1", records)

	domains := make([]string, 0, len(report.TopDomains))
	for _, entry := range report.TopDomains {
		domains = append(domains, entry.Domain)
	}
	assert.Equal(t, []string{"b.com", "d.com", "a.com", "c.com"}, domains)
}

func TestBuildReport_TopDomainsLimitedToTen(t *testing.T) {
	var records []*models.EmailRecord
	for i := 0; i < 15; i++ {
		domain := string(rune('a'+i)) + ".com"
		records = append(records, record(uint64(i+1), "u@"+domain, domain, enum.ScanStatusFailed))
	}

	report := BuildReport("batch_1", records)

	require.Len(t, report.TopDomains, 10)
	assert.Equal(t, "a.com", report.TopDomains[0].Domain)
	assert.Equal(t, "j.com", report.TopDomains[9].Domain)
}

func TestBuildReport_IsIdempotent(t *testing.T) {
	records := exampleBatch()

	first := BuildReport("batch_1", records)
	second := BuildReport("batch_1", records)

	assert.Equal(t, first, second)
	assert.Equal(t, uint64(3), records[0].ID)
}

func TestBuildReport_ProviderDistribution(t *testing.T) {
	report := BuildReport("batch_1", []*models.EmailRecord{
		record(1, "a@one.com", "one.com", enum.ScanStatusCompleted, "0 one-com.mail.protection.outlook.com"),
		record(2, "b@two.com", "two.com", enum.ScanStatusCompleted, "1 ASPMX.L.GOOGLE.COM", "5 ALT1.ASPMX.L.GOOGLE.COM"),
		record(3, "c@two.com", "two.com", enum.ScanStatusCompleted, "1 ASPMX.L.GOOGLE.COM"),
		record(4, "d@three.com", "three.com", enum.ScanStatusFailed),
	})

	assert.Equal(t, []dto.ProviderCount{
		{Provider: enum.MailProviderGoogleWorkspace, Count: 2},
		{Provider: enum.MailProviderMicrosoft365, Count: 1},
		{Provider: enum.MailProviderOther, Count: 1},
	}, report.ProviderDistribution)
}

func TestDetectProvider(t *testing.T) {
	assert.Equal(t, enum.MailProviderGoogleWorkspace, DetectProvider([]string{"10 mx1.google.com"}))
	assert.Equal(t, enum.MailProviderGoogleWorkspace, DetectProvider([]string{"5 gmail-smtp-in.l.google.com"}))
	assert.Equal(t, enum.MailProviderMicrosoft365, DetectProvider([]string{"10 mail.office365.us"}))
	assert.Equal(t, enum.MailProviderMicrosoft365, DetectProvider([]string{"10 mx.zoho.exchange.example"}))
	assert.Equal(t, enum.MailProviderZoho, DetectProvider([]string{"10 mx.zoho.eu", "20 mx2.zoho.eu"}))
	assert.Equal(t, enum.MailProviderOther, DetectProvider([]string{"10 mx.fastmail.com"}))
	assert.Equal(t, enum.MailProviderOther, DetectProvider(nil))
}

func TestQualityBandBoundaries(t *testing.T) {
	assert.Equal(t, enum.QualityBandPoor, enum.QualityBandForScore(0))
	assert.Equal(t, enum.QualityBandPoor, enum.QualityBandForScore(40))
	assert.Equal(t, enum.QualityBandFair, enum.QualityBandForScore(41))
	assert.Equal(t, enum.QualityBandFair, enum.QualityBandForScore(70))
	assert.Equal(t, enum.QualityBandExcellent, enum.QualityBandForScore(71))
	assert.Equal(t, enum.QualityBandExcellent, enum.QualityBandForScore(100))
}

func TestDomainLabel(t *testing.T) {
	assert.Equal(t, "short.com", DomainLabel("short.com"))
	assert.Equal(t, "exactly-twenty-c.com", DomainLabel("exactly-twenty-c.com"))
	assert.Equal(t, "twentyone-chars-1...", DomainLabel("twentyone-chars-1.com"))
	assert.Equal(t, "averyveryverylong...", DomainLabel("averyveryverylongdomainname.com"))
}

func TestWriteCSV(t *testing.T) {
	records := []*models.EmailRecord{
		record(2, `we"ird@y.com`, "y.com", enum.ScanStatusFailed),
		record(1, "a@x.com", "x.com", enum.ScanStatusCompleted, "10 mx1.x.com", "20 mx2.x.com"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	expected := "Email,Domain,MX Records,Status,Created At\n" +
		`"we""ird@y.com","y.com","","failed","2024-05-01T10:00:00Z"` + "\n" +
		`"a@x.com","x.com","10 mx1.x.com; 20 mx2.x.com","completed","2024-05-01T10:00:00Z"`
	assert.Equal(t, expected, buf.String())
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "mx-scan-results-2024-05-01.csv", ExportFileName(createdAt))
}
