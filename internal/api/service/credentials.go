package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/jobassist/jobassist/internal/api/store"
	"github.com/jobassist/jobassist/pkg/cryptox"
	"github.com/jobassist/jobassist/pkg/idx"
	"github.com/jobassist/jobassist/pkg/slogx"
)

const (
	DefaultActivationTTL = 24 * time.Hour
	DefaultResetTTL      = time.Hour
)

// CredentialService handles registration, activation and password
// management. Responses never reveal whether an email is registered.
type CredentialService struct {
	Store    store.Store
	Hasher   *cryptox.PasswordHasher
	Notifier Notifier

	// FrontendURL prefixes the links sent by email.
	FrontendURL   string
	ActivationTTL time.Duration
	ResetTTL      time.Duration

	Now func() time.Time
}

func (s *CredentialService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CredentialService) link(path, token string) string {
	return strings.TrimRight(s.FrontendURL, "/") + path + "?token=" + token
}

// Register creates an inactive account and emails its activation link. If
// the email is taken the caller sees the same nil result and the owner of
// the address is told instead.
func (s *CredentialService) Register(ctx context.Context, email, fullName, password string) error {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)

	if !validEmail(email) {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	passwordHash, err := s.Hasher.Hash(password)
	if err != nil {
		return err
	}

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		s.alreadyRegistered(ctx, email)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := s.now()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		ActionToken: &domain.ActionToken{
			Purpose:   domain.PurposeActivation,
			Hash:      cryptox.FingerprintToken(raw),
			ExpiresAt: now.Add(ttlOrDefault(s.ActivationTTL, DefaultActivationTTL)),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			s.alreadyRegistered(ctx, email)
			return nil
		}
		return err
	}

	l.Info("user registered", slog.String("user_id", u.ID))
	notify(ctx, s.Notifier, email, "Activate your account",
		"Click here to activate your account: "+s.link("/activate", raw))
	return nil
}

func (s *CredentialService) alreadyRegistered(ctx context.Context, email string) {
	slogx.FromContext(ctx).Info("registration attempted for existing account")
	notify(ctx, s.Notifier, email, "Registration attempt",
		"Someone tried to create an account with this email address. "+
			"If that was you, sign in or reset your password: "+strings.TrimRight(s.FrontendURL, "/")+"/forgot-password")
}

// Activate consumes an activation token and marks the account active and
// verified. A token can be used once.
func (s *CredentialService) Activate(ctx context.Context, raw string) error {
	u, hash, err := s.lookupActionToken(ctx, domain.PurposeActivation, raw)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().ClearActionToken(ctx, u.ID, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenInvalid
			}
			return err
		}
		return tx.Users().Activate(ctx, u.ID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("user activated", slog.String("user_id", u.ID))
	return nil
}

// ForgotPassword issues a reset token when the email belongs to an account.
// The result is the same either way.
func (s *CredentialService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return ErrInvalidEmail
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	tok := domain.ActionToken{
		Purpose:   domain.PurposeReset,
		Hash:      cryptox.FingerprintToken(raw),
		ExpiresAt: s.now().Add(ttlOrDefault(s.ResetTTL, DefaultResetTTL)),
	}
	if err := s.Store.Users().SetActionToken(ctx, u.ID, tok); err != nil {
		return err
	}

	notify(ctx, s.Notifier, u.Email, "Reset your password",
		"Click here to reset your password: "+s.link("/reset-password", raw))
	return nil
}

// ResetPassword consumes a reset token, sets the new password and revokes
// every session of the user.
func (s *CredentialService) ResetPassword(ctx context.Context, raw, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	u, hash, err := s.lookupActionToken(ctx, domain.PurposeReset, raw)
	if err != nil {
		return err
	}

	newHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	var revoked int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().ClearActionToken(ctx, u.ID, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenInvalid
			}
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, newHash); err != nil {
			return err
		}
		revoked, err = tx.Sessions().RevokeAllSessions(ctx, u.ID)
		return err
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset",
		slog.String("user_id", u.ID),
		slog.Int64("sessions_revoked", revoked),
	)
	return nil
}

// ChangePassword re-verifies the current password before replacing it.
func (s *CredentialService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !u.HasPassword() {
		s.Hasher.Dummy(oldPassword)
		return ErrPasswordUnset
	}
	if err := s.Hasher.Verify(oldPassword, u.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	newHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.Store.Users().UpdatePasswordHash(ctx, u.ID, newHash)
}

// GetUser fetches a user by id.
func (s *CredentialService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *CredentialService) lookupActionToken(
	ctx context.Context,
	purpose domain.TokenPurpose,
	raw string,
) (domain.User, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.User{}, "", ErrTokenInvalid
	}
	hash := cryptox.FingerprintToken(raw)

	u, err := s.Store.Users().GetUserByActionToken(ctx, purpose, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, "", ErrTokenInvalid
		}
		return domain.User{}, "", err
	}
	if u.ActionToken == nil || !s.now().Before(u.ActionToken.ExpiresAt) {
		return domain.User{}, "", ErrTokenExpired
	}
	return u, hash, nil
}

func ttlOrDefault(ttl, def time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return def
}
