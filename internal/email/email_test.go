package email

import (
	"testing"

	"github.com/mailgun/mailgun-go/v5"
	"github.com/mailgun/mailgun-go/v5/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/binwise/backend/internal/config"
)

func TestSendWelcome(t *testing.T) {
	server := mocks.NewServer()
	defer server.Stop()

	client := mailgun.NewMailgun("test-api-key")
	client.SetAPIBase(server.URL())

	core, logs := observer.New(zap.InfoLevel)
	svc := &Service{
		client:  client,
		domain:  "mailgun.test",
		from:    "no-reply@binwise.app",
		enabled: true,
		log:     zap.New(core),
	}

	svc.SendWelcome("Nour", "nour@example.com")

	entries := logs.FilterMessage("welcome email sent").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "nour@example.com", fields["to"])
	assert.NotEmpty(t, fields["message_id"])
}

func TestDisabledServiceIsNoOp(t *testing.T) {
	svc := NewService(&config.Config{}, zap.NewNop())

	assert.False(t, svc.IsEnabled())
	// Must not touch the nil client.
	svc.SendWelcome("Nour", "nour@example.com")
}
