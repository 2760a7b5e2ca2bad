package service

import (
	"fmt"
	"time"

	"github.com/jobassist/jobassist/pkg/cryptox"
	"github.com/jobassist/jobassist/pkg/jwtx"
)

// TokenIssuer mints and verifies access and refresh tokens. Both are HS256
// JWTs distinguished by their typ claim. The refresh token's jti carries 256
// bits of randomness, so the signed string itself is the opaque secret; only
// its keyed hash is ever persisted.
type TokenIssuer struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock used for issuing and verifying.
	Now func() time.Time

	signer  jwtx.Signer
	access  *jwtx.HS256Verifier
	refresh *jwtx.HS256Verifier
	hashKey []byte
}

// NewTokenIssuer builds an issuer. secret signs tokens; hashKey keys the
// fingerprint stored in the session ledger. Zero TTLs fall back to the
// jwtx defaults.
func NewTokenIssuer(secret, hashKey []byte, issuer string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	signer, err := jwtx.NewSignerHS256(secret)
	if err != nil {
		return nil, err
	}
	if len(hashKey) == 0 {
		return nil, fmt.Errorf("token issuer: empty hash key")
	}
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	t := &TokenIssuer{
		Issuer:     issuer,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		signer:     signer,
		hashKey:    append([]byte(nil), hashKey...),
	}
	t.access = jwtx.NewVerifierHS256(secret, issuer, jwtx.TypeAccess)
	t.access.Now = t.now
	t.refresh = jwtx.NewVerifierHS256(secret, issuer, jwtx.TypeRefresh)
	t.refresh.Now = t.now
	return t, nil
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// IssueAccess signs a short-lived access token for subject.
func (t *TokenIssuer) IssueAccess(subject string) (string, error) {
	return t.signer.Sign(jwtx.NewClaims(subject, jwtx.TypeAccess, t.AccessTTL, t.Issuer, t.now()))
}

// IssueRefresh signs a refresh token for subject. The raw value is
// returned exactly once.
func (t *TokenIssuer) IssueRefresh(subject string) (string, time.Time, error) {
	claims := jwtx.NewClaims(subject, jwtx.TypeRefresh, t.RefreshTTL, t.Issuer, t.now())
	raw, err := t.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return raw, claims.ExpiresAt.Time, nil
}

// Verify checks signature, issuer, type and expiry. Every failure wraps
// ErrTokenInvalid together with the underlying jwtx error.
func (t *TokenIssuer) Verify(token, typ string) (jwtx.Claims, error) {
	var v *jwtx.HS256Verifier
	switch typ {
	case jwtx.TypeAccess:
		v = t.access
	case jwtx.TypeRefresh:
		v = t.refresh
	default:
		return jwtx.Claims{}, fmt.Errorf("%w: unknown token type %q", ErrTokenInvalid, typ)
	}

	claims, err := v.Verify(token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims, nil
}

// HashRefresh is the ledger key for a raw refresh token.
func (t *TokenIssuer) HashRefresh(raw string) string {
	return cryptox.KeyedFingerprint(t.hashKey, raw)
}

// AccessVerifier exposes access token verification to the HTTP middleware.
func (t *TokenIssuer) AccessVerifier() jwtx.Verifier { return t.access }
