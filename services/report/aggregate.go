package report

import (
	"math"
	"sort"
	"strings"

	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/internal/enum"
	"github.com/customeros/mxvalidator/internal/models"
)

const (
	topDomainsLimit    = 10
	domainLabelMaxLen  = 20
	domainLabelKeepLen = 17
)

var providerRules = []struct {
	provider enum.MailProvider
	needles  []string
}{
	{enum.MailProviderGoogleWorkspace, []string{"google", "aspmx", "gmail"}},
	{enum.MailProviderMicrosoft365, []string{"outlook", "office365", "microsoft", "exchange"}},
	{enum.MailProviderZoho, []string{"zoho"}},
}

// BuildReport computes the batch metrics from a snapshot of its records. It
// does not modify records and yields the same report for the same input.
func BuildReport(batchID string, records []*models.EmailRecord) dto.Report {
	ordered := make([]*models.EmailRecord, 0, len(records))
	for _, record := range records {
		if record != nil {
			ordered = append(ordered, record)
		}
	}
	// insertion order
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	report := dto.Report{
		BatchID:              batchID,
		Total:                len(ordered),
		TopDomains:           []dto.DomainCount{},
		ProviderDistribution: []dto.ProviderCount{},
	}

	domainCounts := newOrderedCounter()
	providerCounts := newOrderedCounter()
	for _, record := range ordered {
		if record.IsDeliverable() {
			report.Deliverable++
		}
		if record.IsUndeliverable() {
			report.Undeliverable++
		}
		if record.MxScanStatus == enum.ScanStatusPending {
			report.Pending++
		}
		domainCounts.add(record.Domain)
		providerCounts.add(DetectProvider(record.MxRecords).String())
	}

	rawRate := 0.0
	if report.Total > 0 {
		rawRate = float64(report.Deliverable) / float64(report.Total) * 100
	}
	report.DeliverabilityRate = math.Round(rawRate*10) / 10
	report.QualityScore = int(math.Round(rawRate))
	report.QualityBand = enum.QualityBandForScore(report.QualityScore)

	for i, entry := range domainCounts.ranked() {
		if i == topDomainsLimit {
			break
		}
		report.TopDomains = append(report.TopDomains, dto.DomainCount{
			Domain: entry.key,
			Label:  DomainLabel(entry.key),
			Count:  entry.count,
		})
	}

	for _, entry := range providerCounts.ranked() {
		report.ProviderDistribution = append(report.ProviderDistribution, dto.ProviderCount{
			Provider: enum.MailProvider(entry.key),
			Count:    entry.count,
		})
	}

	return report
}

// DetectProvider classifies a record by substring match over its MX hosts.
// The first matching rule wins.
func DetectProvider(mxRecords []string) enum.MailProvider {
	if len(mxRecords) == 0 {
		return enum.MailProviderOther
	}

	mx := strings.ToLower(strings.Join(mxRecords, " "))
	for _, rule := range providerRules {
		for _, needle := range rule.needles {
			if strings.Contains(mx, needle) {
				return rule.provider
			}
		}
	}
	return enum.MailProviderOther
}

// DomainLabel shortens long domains for display.
func DomainLabel(domain string) string {
	runes := []rune(domain)
	if len(runes) > domainLabelMaxLen {
		return string(runes[:domainLabelKeepLen]) + "..."
	}
	return domain
}

type countEntry struct {
	key   string
	count int
}

// orderedCounter counts keys and remembers the order they were first seen.
type orderedCounter struct {
	index   map[string]int
	entries []countEntry
}

func newOrderedCounter() *orderedCounter {
	return &orderedCounter{index: map[string]int{}}
}

func (c *orderedCounter) add(key string) {
	if i, ok := c.index[key]; ok {
		c.entries[i].count++
		return
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, countEntry{key: key, count: 1})
}

// ranked sorts by count descending; ties keep first-seen order.
func (c *orderedCounter) ranked() []countEntry {
	ranked := make([]countEntry, len(c.entries))
	copy(ranked, c.entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})
	return ranked
}
