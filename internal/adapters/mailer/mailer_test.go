package mailer

import (
	"context"
	"testing"

	"sacco-hub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m, err := New(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user",
		Password: "pass",
		Sender:   "noreply@example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, m.client)
}

func TestNew_EmptyHost(t *testing.T) {
	_, err := New(config.MailConfig{Port: 587})
	assert.Error(t, err)
}

func TestSend_InvalidSender(t *testing.T) {
	m, err := New(config.MailConfig{Host: "smtp.example.com", Port: 587, Sender: "not an address"})
	require.NoError(t, err)

	err = m.Send(context.Background(), "member@example.com", "hi", "body")
	assert.ErrorContains(t, err, "set sender")
}
