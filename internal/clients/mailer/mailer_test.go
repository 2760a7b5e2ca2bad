package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg, err := newMessage("noreply@example.com", "alice@example.com", "Activate your account", "hello")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "Subject: Activate your account")
	require.Contains(t, out, "<alice@example.com>")
	require.Contains(t, out, "hello")

	_, err = newMessage("noreply@example.com", "not an address", "s", "b")
	require.Error(t, err)
}

func TestNewSMTPRequiresHost(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{From: "noreply@example.com"})
	require.Error(t, err)

	s, err := NewSMTP(SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"})
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	require.NoError(t, Log{Logger: logger}.Send(context.Background(), "alice@example.com", "Reset your password", "token=secret"))

	out := buf.String()
	require.Contains(t, out, "alice@example.com")
	require.Contains(t, out, "Reset your password")
	require.False(t, strings.Contains(out, "token=secret"), "body stays out of info logs")
}
