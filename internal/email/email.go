// Package email sends transactional mail through Mailgun. The service is
// a no-op when Mailgun credentials are not configured.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v5"
	"go.uber.org/zap"

	"github.com/binwise/backend/internal/config"
)

const sendTimeout = 10 * time.Second

type Service struct {
	client  mailgun.Mailgun
	domain  string
	from    string
	enabled bool
	log     *zap.Logger
}

func NewService(cfg *config.Config, log *zap.Logger) *Service {
	enabled := cfg.MailgunDomain != "" && cfg.MailgunAPIKey != ""

	var client mailgun.Mailgun
	if enabled {
		client = mailgun.NewMailgun(cfg.MailgunAPIKey)
	}

	return &Service{
		client:  client,
		domain:  cfg.MailgunDomain,
		from:    cfg.MailFrom,
		enabled: enabled,
		log:     log,
	}
}

func (s *Service) IsEnabled() bool {
	return s.enabled
}

// SendWelcome greets a freshly registered user. Failures are logged and
// swallowed so registration never depends on the mail provider.
func (s *Service) SendWelcome(name, to string) {
	if !s.enabled {
		return
	}

	subject := fmt.Sprintf("Welcome to BinWise, %s!", name)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nYour BinWise account is ready. Schedule your first recycling pickup and start earning points.\n\nThe BinWise Team",
		name,
	)

	message := mailgun.NewMessage(s.domain, s.from, subject, textBody, to)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	resp, err := s.client.Send(ctx, message)
	if err != nil {
		s.log.Warn("failed to send welcome email", zap.String("to", to), zap.Error(err))
		return
	}
	s.log.Info("welcome email sent", zap.String("to", to), zap.String("message_id", resp.ID))
}
