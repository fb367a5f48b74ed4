package dto

// RecordPair is one normalised upload row.
type RecordPair struct {
	Email  string `json:"email"`
	Domain string `json:"domain"`
}

type IngestResult struct {
	BatchID           string `json:"batchId"`
	RecordsProcessed  int    `json:"recordsProcessed"`
	Domains           int    `json:"domains"`
	CompletedDomains  int    `json:"completedDomains"`
	FailedDomains     int    `json:"failedDomains"`
	WriteBackFailures int    `json:"writeBackFailures"`
}
