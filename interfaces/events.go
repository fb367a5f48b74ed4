package interfaces

import (
	"context"

	"github.com/customeros/mxvalidator/dto"
)

type EventPublisher interface {
	PublishBatchCompleted(ctx context.Context, event dto.BatchCompleted) error
	PublishSendVerificationEmail(ctx context.Context, message dto.SendVerificationEmail) error
	Close() error
}
