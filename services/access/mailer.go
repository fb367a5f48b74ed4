package access

import (
	"context"

	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/logger"
)

type logMailer struct {
	log logger.Logger
}

// NewLogMailer prints verification links instead of sending them. Used when
// no message broker is configured.
func NewLogMailer(log logger.Logger) interfaces.VerificationMailer {
	return &logMailer{log: log}
}

func (m *logMailer) SendVerification(_ context.Context, message dto.SendVerificationEmail) error {
	m.log.Warnf("No mail transport configured. Verification link for %s: %s", message.Email, message.VerificationLink)
	return nil
}

type eventMailer struct {
	publisher interfaces.EventPublisher
}

// NewEventMailer hands verification emails to the mail sender over RabbitMQ.
func NewEventMailer(publisher interfaces.EventPublisher) interfaces.VerificationMailer {
	return &eventMailer{publisher: publisher}
}

func (m *eventMailer) SendVerification(ctx context.Context, message dto.SendVerificationEmail) error {
	return m.publisher.PublishSendVerificationEmail(ctx, message)
}
