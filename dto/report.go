package dto

import "github.com/customeros/mxvalidator/internal/enum"

type Report struct {
	BatchID              string           `json:"batchId"`
	Total                int              `json:"total"`
	Deliverable          int              `json:"deliverable"`
	Undeliverable        int              `json:"undeliverable"`
	Pending              int              `json:"pending"`
	DeliverabilityRate   float64          `json:"deliverabilityRate"`
	QualityScore         int              `json:"qualityScore"`
	QualityBand          enum.QualityBand `json:"qualityBand"`
	TopDomains           []DomainCount    `json:"topDomains"`
	ProviderDistribution []ProviderCount  `json:"providerDistribution"`
}

type DomainCount struct {
	Domain string `json:"domain"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

type ProviderCount struct {
	Provider enum.MailProvider `json:"provider"`
	Count    int               `json:"count"`
}

type ArchivedExport struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
