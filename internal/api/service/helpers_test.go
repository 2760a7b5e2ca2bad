package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/jobassist/jobassist/internal/api/store/drivers/sqlite"
	"github.com/jobassist/jobassist/pkg/cryptox"
	"github.com/jobassist/jobassist/pkg/idx"
	"github.com/stretchr/testify/require"
)

var (
	testSecret  = []byte("0123456789abcdef0123456789abcdef")
	testHashKey = []byte("session-ledger-hash-key")
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	To, Subject, Body string
}

type outbox struct {
	mu   sync.Mutex
	sent []sentMail
}

func (o *outbox) Send(_ context.Context, to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (o *outbox) last(t *testing.T) sentMail {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent, "expected a notification")
	return o.sent[len(o.sent)-1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

// tokenFromBody pulls the raw token out of a notification link.
func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "token=")
	require.GreaterOrEqual(t, i, 0, "no token in %q", body)
	tok := body[i+len("token="):]
	if j := strings.IndexAny(tok, " \n"); j >= 0 {
		tok = tok[:j]
	}
	return tok
}

type fixture struct {
	store    *sqlite.Store
	clock    *testClock
	tokens   *TokenIssuer
	hasher   *cryptox.PasswordHasher
	sessions *SessionManager
	creds    *CredentialService
	mail     *outbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := newTestClock()
	tokens, err := NewTokenIssuer(testSecret, testHashKey, "jobassist-test", 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)
	tokens.Now = clock.Now

	hasher := cryptox.NewPasswordHasher("test-pepper")
	mail := &outbox{}

	return &fixture{
		store:  st,
		clock:  clock,
		tokens: tokens,
		hasher: hasher,
		sessions: &SessionManager{
			Store:     st,
			Tokens:    tokens,
			Hasher:    hasher,
			DBTimeout: 5 * time.Second,
		},
		creds: &CredentialService{
			Store:       st,
			Hasher:      hasher,
			Notifier:    mail,
			FrontendURL: "https://app.example.com",
			Now:         clock.Now,
		},
		mail: mail,
	}
}

// seedActiveUser inserts an activated password user directly.
func (f *fixture) seedActiveUser(t *testing.T, email, password string) domain.User {
	t.Helper()
	return f.seedUser(t, email, password, true)
}

func (f *fixture) seedUser(t *testing.T, email, password string, active bool) domain.User {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)

	now := f.clock.Now()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     active,
		IsVerified:   active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.store.Users().CreateUser(context.Background(), u))
	return u
}
