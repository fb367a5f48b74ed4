package dto

import (
	"fmt"

	"github.com/customeros/mxvalidator/internal/enum"
)

type MxRecord struct {
	Priority uint16 `json:"priority"`
	Host     string `json:"host"`
}

func (r MxRecord) String() string {
	return fmt.Sprintf("%d %s", r.Priority, r.Host)
}

// Resolution is the outcome of one MX lookup. Records is non-empty only
// when Outcome is enum.ResolutionResolved.
type Resolution struct {
	Domain  string                 `json:"domain"`
	Outcome enum.ResolutionOutcome `json:"outcome"`
	Records []MxRecord             `json:"records,omitempty"`
	Err     error                  `json:"-"`
}

// RecordStrings renders the records as "<priority> <host>" in stored order.
func (r Resolution) RecordStrings() []string {
	if len(r.Records) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Records))
	for _, record := range r.Records {
		out = append(out, record.String())
	}
	return out
}
