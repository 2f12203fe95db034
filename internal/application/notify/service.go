package notify

import (
	"context"
	"log/slog"

	"github.com/lostfound-api/internal/infrastructure/smtp"
	"github.com/lostfound-api/internal/infrastructure/sns"
)

// Notifier delivers courtesy notifications. Failures are logged and reported
// as a flag, never propagated; the state change that triggered the
// notification is already committed.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string) bool
}

type service struct {
	mailer    smtp.Mailer
	publisher sns.TopicPublisher // nil when no topic is configured
}

func NewService(mailer smtp.Mailer, publisher sns.TopicPublisher) Notifier {
	return &service{mailer: mailer, publisher: publisher}
}

func (s *service) Notify(ctx context.Context, to, subject, body string) bool {
	delivered := true
	if err := s.mailer.SendEmail(to, subject, body); err != nil {
		slog.Warn("notification email failed", "to", to, "subject", subject, "err", err)
		delivered = false
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, subject, body); err != nil {
			slog.Warn("notification topic publish failed", "subject", subject, "err", err)
		}
	}
	return delivered
}
