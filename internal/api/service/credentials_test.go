package service

import (
	"context"
	"testing"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/stretchr/testify/require"
)

func TestAliceRegistersActivatesAndLogsIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.creds.Register(ctx, "alice@example.com", "Alice Martin", "correct horse"))

	mail := f.mail.last(t)
	require.Equal(t, "alice@example.com", mail.To)
	require.Equal(t, "Activate your account", mail.Subject)
	require.Contains(t, mail.Body, "https://app.example.com/activate?token=")

	_, err := f.sessions.Login(ctx, "alice@example.com", "correct horse", laptop)
	require.ErrorIs(t, err, ErrAccountNotActivated)

	token := tokenFromBody(t, mail.Body)
	require.NoError(t, f.creds.Activate(ctx, token))
	require.ErrorIs(t, f.creds.Activate(ctx, token), ErrTokenInvalid, "activation is single use")

	pair, err := f.sessions.Login(ctx, "alice@example.com", "correct horse", laptop)
	require.NoError(t, err)
	require.Equal(t, "laptop-1", pair.DeviceID)

	u, err := f.creds.GetUser(ctx, pair.UserID)
	require.NoError(t, err)
	require.True(t, u.IsActive)
	require.True(t, u.IsVerified)
	require.Equal(t, "Alice Martin", u.FullName)
	require.Nil(t, u.ActionToken)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("validates input", func(t *testing.T) {
		require.ErrorIs(t, f.creds.Register(ctx, "not-an-email", "", "correct horse"), ErrInvalidEmail)
		require.ErrorIs(t, f.creds.Register(ctx, "carol@example.com", "", "short"), ErrWeakPassword)
		require.Zero(t, f.mail.count())
	})

	t.Run("duplicate email is indistinguishable", func(t *testing.T) {
		require.NoError(t, f.creds.Register(ctx, "dave@example.com", "Dave", "correct horse"))
		require.NoError(t, f.creds.Register(ctx, "DAVE@example.com", "Impostor", "another one"))

		mail := f.mail.last(t)
		require.Equal(t, "dave@example.com", mail.To)
		require.Equal(t, "Registration attempt", mail.Subject)
		require.NotContains(t, mail.Body, "token=")

		u, err := f.store.Users().GetUserByEmail(ctx, "dave@example.com")
		require.NoError(t, err)
		require.Equal(t, "Dave", u.FullName, "the original account is untouched")
	})
}

func TestActivateExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.creds.Register(ctx, "alice@example.com", "", "correct horse"))
	token := tokenFromBody(t, f.mail.last(t).Body)

	f.clock.Advance(DefaultActivationTTL + time.Minute)
	require.ErrorIs(t, f.creds.Activate(ctx, token), ErrTokenExpired)
	require.ErrorIs(t, f.creds.Activate(ctx, "unknown"), ErrTokenInvalid)
	require.ErrorIs(t, f.creds.Activate(ctx, ""), ErrTokenInvalid)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedActiveUser(t, "alice@example.com", "correct horse")

	login, err := f.sessions.Login(ctx, "alice@example.com", "correct horse", laptop)
	require.NoError(t, err)

	t.Run("unknown email is silent", func(t *testing.T) {
		before := f.mail.count()
		require.NoError(t, f.creds.ForgotPassword(ctx, "nobody@example.com"))
		require.Equal(t, before, f.mail.count())
	})

	require.NoError(t, f.creds.ForgotPassword(ctx, " Alice@example.com"))
	mail := f.mail.last(t)
	require.Equal(t, "Reset your password", mail.Subject)
	require.Contains(t, mail.Body, "https://app.example.com/reset-password?token=")
	token := tokenFromBody(t, mail.Body)

	t.Run("activation endpoint does not accept reset tokens", func(t *testing.T) {
		require.ErrorIs(t, f.creds.Activate(ctx, token), ErrTokenInvalid)
	})

	require.ErrorIs(t, f.creds.ResetPassword(ctx, token, "short"), ErrWeakPassword)
	require.NoError(t, f.creds.ResetPassword(ctx, token, "battery staple"))
	require.ErrorIs(t, f.creds.ResetPassword(ctx, token, "another staple"), ErrTokenInvalid, "reset is single use")

	_, err = f.sessions.Login(ctx, "alice@example.com", "correct horse", laptop)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.sessions.Login(ctx, "alice@example.com", "battery staple", domain.Device{ID: "phone-1"})
	require.NoError(t, err)

	_, err = f.sessions.Rotate(ctx, login.RefreshToken, "laptop-1")
	require.ErrorIs(t, err, ErrTokenInvalid, "reset revokes sessions opened before it")
}

func TestPasswordResetExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedActiveUser(t, "alice@example.com", "correct horse")

	require.NoError(t, f.creds.ForgotPassword(ctx, "alice@example.com"))
	token := tokenFromBody(t, f.mail.last(t).Body)

	f.clock.Advance(DefaultResetTTL + time.Second)
	require.ErrorIs(t, f.creds.ResetPassword(ctx, token, "battery staple"), ErrTokenExpired)
}

func TestForgotPasswordReplacesOutstandingToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedActiveUser(t, "alice@example.com", "correct horse")

	require.NoError(t, f.creds.ForgotPassword(ctx, "alice@example.com"))
	first := tokenFromBody(t, f.mail.last(t).Body)
	require.NoError(t, f.creds.ForgotPassword(ctx, "alice@example.com"))
	second := tokenFromBody(t, f.mail.last(t).Body)

	require.ErrorIs(t, f.creds.ResetPassword(ctx, first, "battery staple"), ErrTokenInvalid)
	require.NoError(t, f.creds.ResetPassword(ctx, second, "battery staple"))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedActiveUser(t, "alice@example.com", "correct horse")

	require.ErrorIs(t, f.creds.ChangePassword(ctx, u.ID, "wrong", "battery staple"), ErrInvalidCredentials)
	require.ErrorIs(t, f.creds.ChangePassword(ctx, u.ID, "correct horse", "short"), ErrWeakPassword)
	require.ErrorIs(t, f.creds.ChangePassword(ctx, "missing", "correct horse", "battery staple"), ErrUserNotFound)
	require.NoError(t, f.creds.ChangePassword(ctx, u.ID, "correct horse", "battery staple"))

	_, err := f.sessions.Login(ctx, "alice@example.com", "battery staple", laptop)
	require.NoError(t, err)
}
