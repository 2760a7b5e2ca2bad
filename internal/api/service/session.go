package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/jobassist/jobassist/internal/api/store"
	"github.com/jobassist/jobassist/pkg/cryptox"
	"github.com/jobassist/jobassist/pkg/idx"
	"github.com/jobassist/jobassist/pkg/jwtx"
	"github.com/jobassist/jobassist/pkg/slogx"
)

// SessionManager owns the refresh session lifecycle: login, rotation with
// reuse detection, logout and listing. All ledger writes for one operation
// happen in a single transaction.
type SessionManager struct {
	Store   store.Store
	Tokens  *TokenIssuer
	Hasher  *cryptox.PasswordHasher
	Metrics *Metrics

	// DBTimeout bounds each ledger operation. Zero means no extra deadline.
	DBTimeout time.Duration
}

func (s *SessionManager) now() time.Time { return s.Tokens.now() }

func (s *SessionManager) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.DBTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.DBTimeout)
}

// Login verifies an email/password pair and opens a session for device.
// Unknown users, federated-only users and wrong passwords all return
// ErrInvalidCredentials after the same amount of hashing work.
func (s *SessionManager) Login(ctx context.Context, email, password string, device domain.Device) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	dbCtx, cancel := s.dbContext(ctx)
	u, err := s.Store.Users().GetUserByEmail(dbCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Hasher.Dummy(password)
			s.Metrics.login("password", "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.HasPassword() {
		s.Hasher.Dummy(password)
		s.Metrics.login("password", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash unreadable", slog.String("user_id", u.ID), slog.Any("error", err))
		}
		s.Metrics.login("password", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		s.Metrics.login("password", "not_activated")
		return nil, ErrAccountNotActivated
	}

	pair, err := s.LoginUser(ctx, u, device)
	if err != nil {
		return nil, err
	}
	s.Metrics.login("password", "ok")
	return pair, nil
}

// LoginUser opens a session for an already authenticated user. Any
// existing session for the same device is superseded.
func (s *SessionManager) LoginUser(ctx context.Context, u domain.User, device domain.Device) (*domain.TokenPair, error) {
	device.ID = strings.TrimSpace(device.ID)
	if device.ID == "" {
		device.ID = uuid.NewString()
	}

	pair, session, err := s.issue(u.ID, device)
	if err != nil {
		return nil, err
	}

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()
	if err := s.Store.Sessions().UpsertSession(dbCtx, session); err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("session opened",
		slog.String("user_id", u.ID),
		slog.String("device_id", device.ID),
	)
	return pair, nil
}

// Rotate exchanges a refresh token for a new pair bound to the same
// device. A structurally valid token that is no longer in the ledger is
// treated as stolen: every session of its subject is revoked and
// ErrTokenReused is returned. A device mismatch changes nothing.
func (s *SessionManager) Rotate(ctx context.Context, raw, deviceID string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	raw = strings.TrimSpace(raw)
	deviceID = strings.TrimSpace(deviceID)
	if raw == "" || deviceID == "" {
		s.Metrics.rotation("invalid")
		return nil, ErrTokenInvalid
	}

	claims, err := s.Tokens.Verify(raw, jwtx.TypeRefresh)
	if err != nil {
		s.Metrics.rotation("invalid")
		return nil, err
	}

	now := s.now()
	hash := s.Tokens.HashRefresh(raw)

	var (
		pair    *domain.TokenPair
		reused  bool
		expired bool
		revoked int64
	)

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()

	err = s.Store.WithTx(dbCtx, func(tx store.Tx) error {
		current, err := tx.Sessions().FindValidSession(dbCtx, hash, now)
		if errors.Is(err, store.ErrNotFound) {
			// The ledger drops a row at its expiry instant; a token verified
			// within the leeway is stale, not replayed.
			if !now.Before(claims.ExpiresAt.Time) {
				expired = true
				return nil
			}
			reused = true
			revoked, err = tx.Sessions().RevokeAllSessions(dbCtx, claims.Subject)
			return err
		}
		if err != nil {
			return err
		}

		if current.UserID != claims.Subject {
			return ErrTokenInvalid
		}
		if current.DeviceID != deviceID {
			return ErrDeviceMismatch
		}

		// Lost a race with a concurrent rotation of the same token.
		if err := tx.Sessions().ConsumeSession(dbCtx, hash, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				reused = true
				revoked, err = tx.Sessions().RevokeAllSessions(dbCtx, claims.Subject)
			}
			return err
		}

		next, session, err := s.issue(claims.Subject, domain.Device{ID: current.DeviceID, Name: current.DeviceName})
		if err != nil {
			return err
		}
		session.CreatedAt = current.CreatedAt
		if err := tx.Sessions().UpsertSession(dbCtx, session); err != nil {
			return err
		}
		pair = next
		return nil
	})

	switch {
	case errors.Is(err, ErrDeviceMismatch):
		l.Warn("device mismatch on rotation",
			slog.String("user_id", claims.Subject),
			slog.String("device_id", deviceID),
		)
		s.Metrics.rotation("device_mismatch")
		return nil, err
	case err != nil:
		s.Metrics.rotation("error")
		return nil, err
	case expired:
		s.Metrics.rotation("invalid")
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, jwtx.ErrExpired)
	case reused:
		l.Warn("refresh token reuse detected",
			slog.String("user_id", claims.Subject),
			slog.Int64("sessions_revoked", revoked),
		)
		s.Metrics.rotation("reuse")
		s.Metrics.revoked("reuse", revoked)
		return nil, ErrTokenReused
	}

	s.Metrics.rotation("ok")
	return pair, nil
}

// Logout revokes the session behind raw. Unknown, expired or already
// revoked tokens are not an error.
func (s *SessionManager) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()

	ok, err := s.Store.Sessions().RevokeSession(dbCtx, s.Tokens.HashRefresh(raw))
	if err != nil {
		return err
	}
	if ok {
		s.Metrics.revoked("logout", 1)
	}
	return nil
}

// LogoutAll revokes every session of userID.
func (s *SessionManager) LogoutAll(ctx context.Context, userID string) (int64, error) {
	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()

	n, err := s.Store.Sessions().RevokeAllSessions(dbCtx, userID)
	if err != nil {
		return 0, err
	}
	s.Metrics.revoked("logout_all", n)
	slogx.FromContext(ctx).Info("all sessions revoked", slog.String("user_id", userID), slog.Int64("count", n))
	return n, nil
}

// ListSessions returns the user's active sessions, most recently used first.
func (s *SessionManager) ListSessions(ctx context.Context, userID string) ([]domain.SessionView, error) {
	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()

	rows, err := s.Store.Sessions().ListActiveSessions(dbCtx, userID, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.View())
	}
	return out, nil
}

// Authenticate verifies an access token and returns its subject.
func (s *SessionManager) Authenticate(_ context.Context, accessToken string) (string, error) {
	claims, err := s.Tokens.Verify(accessToken, jwtx.TypeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *SessionManager) issue(userID string, device domain.Device) (*domain.TokenPair, domain.RefreshSession, error) {
	now := s.now()

	access, err := s.Tokens.IssueAccess(userID)
	if err != nil {
		return nil, domain.RefreshSession{}, err
	}
	refresh, expiresAt, err := s.Tokens.IssueRefresh(userID)
	if err != nil {
		return nil, domain.RefreshSession{}, err
	}

	session := domain.RefreshSession{
		ID:         idx.New().String(),
		UserID:     userID,
		TokenHash:  s.Tokens.HashRefresh(refresh),
		DeviceID:   device.ID,
		DeviceName: strings.TrimSpace(device.Name),
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	pair := &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "bearer",
		ExpiresIn:        s.Tokens.AccessTTL,
		RefreshExpiresAt: expiresAt,
		DeviceID:         device.ID,
		UserID:           userID,
	}
	return pair, session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
