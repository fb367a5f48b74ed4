package interfaces

import (
	"context"
	"io"

	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/internal/enum"
	"github.com/customeros/mxvalidator/internal/models"
)

type BatchService interface {
	Ingest(ctx context.Context, upload io.Reader) (*dto.IngestResult, error)
	ProcessDomain(ctx context.Context, batchID, domain string) (enum.ResolutionOutcome, error)
	GetRecords(ctx context.Context, batchID string) ([]*models.EmailRecord, error)
	GetAllRecords(ctx context.Context) ([]*models.EmailRecord, error)
}

type ReportService interface {
	Report(ctx context.Context, batchID string) (*dto.Report, error)
	ExportCSV(ctx context.Context, batchID string, w io.Writer) error
	ArchiveExport(ctx context.Context, batchID string) (*dto.ArchivedExport, error)
	DownloadExport(ctx context.Context, key string) ([]byte, error)
}

type AccessService interface {
	Register(ctx context.Context, request dto.AccessRequest) (*dto.AccessRegistration, error)
	Verify(ctx context.Context, token string) (string, error)
	IsAuthorized(ctx context.Context, email string) bool
	IssueAccessToken(email string) (string, error)
	ParseAccessToken(token string) (string, error)
}

type VerificationMailer interface {
	SendVerification(ctx context.Context, message dto.SendVerificationEmail) error
}
