package report

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/customeros/mxvalidator/internal/models"
)

const (
	ExportContentType = "text/csv; charset=utf-8"

	exportHeader      = "Email,Domain,MX Records,Status,Created At"
	exportMxSeparator = "; "
	exportFilePrefix  = "mx-scan-results-"
	exportDateLayout  = "2006-01-02"
)

// ExportFileName is the download name for an export produced at t.
func ExportFileName(t time.Time) string {
	return exportFilePrefix + t.UTC().Format(exportDateLayout) + ".csv"
}

// WriteCSV writes one row per record in the given order. Every data field is
// quoted with embedded quotes doubled; encoding/csv only quotes on demand.
func WriteCSV(w io.Writer, records []*models.EmailRecord) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(exportHeader); err != nil {
		return err
	}
	for _, record := range records {
		fields := []string{
			record.Email,
			record.Domain,
			strings.Join(record.MxRecords, exportMxSeparator),
			record.MxScanStatus.String(),
			record.CreatedAt.UTC().Format(time.RFC3339),
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
		for i, field := range fields {
			if i > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(quoteField(field)); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

func quoteField(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
