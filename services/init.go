package services

import (
	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/logger"
	"github.com/customeros/mxvalidator/internal/repository"
	"github.com/customeros/mxvalidator/services/access"
	"github.com/customeros/mxvalidator/services/batch"
	"github.com/customeros/mxvalidator/services/events"
	"github.com/customeros/mxvalidator/services/report"
	"github.com/customeros/mxvalidator/services/resolver"
	"github.com/customeros/mxvalidator/services/storage"
)

type Services struct {
	EventsService  *events.EventsService
	StorageService interfaces.StorageService
	DomainResolver interfaces.DomainResolver
	BatchService   interfaces.BatchService
	ReportService  interfaces.ReportService
	AccessService  interfaces.AccessService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	// events
	eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
	if err != nil {
		return nil, err
	}

	var mailer interfaces.VerificationMailer
	if eventsService.Publisher != nil {
		mailer = access.NewEventMailer(eventsService.Publisher)
	} else {
		mailer = access.NewLogMailer(log)
	}

	exportStorage := storage.NewExportStorageService(cfg.StorageConfig)
	if exportStorage == nil {
		log.Warn("Object storage not configured, export archiving is disabled")
	}

	domainResolver := resolver.NewDomainResolver(cfg.ResolverConfig, nil, log)

	services := Services{
		EventsService:  eventsService,
		StorageService: exportStorage,
		DomainResolver: domainResolver,
		BatchService:   batch.NewBatchService(log, repos, domainResolver, eventsService.Publisher),
		ReportService:  report.NewReportService(log, repos, exportStorage, cfg.AppConfig.BaseURL),
		AccessService:  access.NewAccessService(log, cfg.AppConfig, repos, domainResolver, mailer),
	}

	return &services, nil
}

func (s *Services) Close() error {
	if s.EventsService == nil {
		return nil
	}
	return s.EventsService.Close()
}
