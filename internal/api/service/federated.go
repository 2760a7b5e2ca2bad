package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/jobassist/jobassist/internal/api/store"
	"github.com/jobassist/jobassist/pkg/idx"
	"github.com/jobassist/jobassist/pkg/slogx"
)

// DefaultFederatedDeviceName labels sessions opened through Google when the
// client did not name its device.
const DefaultFederatedDeviceName = "Google OAuth"

// IdentityProvider is the federated sign-in collaborator.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (domain.FederatedIdentity, error)
}

type FederatedLoginService struct {
	Store    store.Store
	Provider IdentityProvider
	Sessions *SessionManager
}

// AuthCodeURL is where the browser goes to start the flow.
func (s *FederatedLoginService) AuthCodeURL(state string) string {
	return s.Provider.AuthCodeURL(state)
}

// Callback completes the flow: it resolves or provisions the local user for
// the provider's identity and opens a session for device. Every provider
// failure is reported as ErrFederatedAuthFailure.
func (s *FederatedLoginService) Callback(ctx context.Context, code string, device domain.Device) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	metrics := s.Sessions.Metrics

	code = strings.TrimSpace(code)
	if code == "" || s.Provider == nil {
		metrics.login("google", "failed")
		return nil, ErrFederatedAuthFailure
	}

	id, err := s.Provider.Exchange(ctx, code)
	if err != nil {
		l.Warn("federated code exchange failed", slog.Any("error", err))
		metrics.login("google", "failed")
		return nil, ErrFederatedAuthFailure
	}
	id.Email = normalizeEmail(id.Email)
	if id.Subject == "" || !id.EmailVerified || !validEmail(id.Email) {
		l.Warn("federated identity rejected",
			slog.Bool("email_verified", id.EmailVerified),
			slog.Bool("has_subject", id.Subject != ""),
		)
		metrics.login("google", "failed")
		return nil, ErrFederatedAuthFailure
	}

	u, err := s.resolveUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(device.Name) == "" {
		device.Name = DefaultFederatedDeviceName
	}
	pair, err := s.Sessions.LoginUser(ctx, u, device)
	if err != nil {
		return nil, err
	}
	metrics.login("google", "ok")
	return pair, nil
}

func (s *FederatedLoginService) resolveUser(ctx context.Context, id domain.FederatedIdentity) (domain.User, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByGoogleID(ctx, id.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	u, err = s.Store.Users().GetUserByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if u.GoogleID != nil && *u.GoogleID != id.Subject {
			l.Warn("email already linked to another google account", slog.String("user_id", u.ID))
			return domain.User{}, ErrFederatedAuthFailure
		}
		if err := s.Store.Users().LinkGoogleID(ctx, u.ID, id.Subject, true); err != nil {
			return domain.User{}, err
		}
		l.Info("google account linked", slog.String("user_id", u.ID), slog.Bool("was_verified", u.IsVerified))
		return s.Store.Users().GetUserByID(ctx, u.ID)

	case errors.Is(err, store.ErrNotFound):
		now := time.Now().UTC()
		sub := id.Subject
		u = domain.User{
			ID:         idx.New().String(),
			Email:      id.Email,
			FullName:   strings.TrimSpace(id.Name),
			GoogleID:   &sub,
			IsActive:   true,
			IsVerified: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.Store.Users().CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// A concurrent callback provisioned the same identity.
				return s.Store.Users().GetUserByGoogleID(ctx, id.Subject)
			}
			return domain.User{}, err
		}
		l.Info("user provisioned from google", slog.String("user_id", u.ID))
		return u, nil

	default:
		return domain.User{}, err
	}
}
