package dto

import "github.com/customeros/mxvalidator/internal/enum"

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	EventType  string          `json:"eventType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	UserEmail   string `json:"userEmail"`
	Timestamp   string `json:"timestamp"`
}

// BatchCompleted is fanned out once every domain of a batch has been written back.
type BatchCompleted struct {
	BatchID          string `json:"batchId"`
	Records          int    `json:"records"`
	Domains          int    `json:"domains"`
	CompletedDomains int    `json:"completedDomains"`
	FailedDomains    int    `json:"failedDomains"`
}

// SendVerificationEmail asks the mail worker to deliver an access link.
type SendVerificationEmail struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	VerificationLink string `json:"verificationLink"`
}
