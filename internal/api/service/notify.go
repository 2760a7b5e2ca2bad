package service

import (
	"context"
	"log/slog"

	"github.com/jobassist/jobassist/pkg/slogx"
)

// Notifier delivers a plain-text message to an email address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// notify is best-effort: a failed delivery is logged and swallowed.
func notify(ctx context.Context, n Notifier, to, subject, body string) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, to, subject, body); err != nil {
		slogx.FromContext(ctx).Error("notification failed",
			slog.String("subject", subject),
			slog.Any("error", err),
		)
	}
}
