package handlers

import (
	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/services"
)

type APIHandlers struct {
	Batches *BatchHandler
	Reports *ReportHandler
	Access  *AccessHandler
}

func InitHandlers(s *services.Services, appConfig *config.AppConfig) *APIHandlers {
	return &APIHandlers{
		Batches: NewBatchHandler(s.BatchService, appConfig.MaxUploadMB),
		Reports: NewReportHandler(s.ReportService),
		Access:  NewAccessHandler(s.AccessService, appConfig.CookieSecure),
	}
}
