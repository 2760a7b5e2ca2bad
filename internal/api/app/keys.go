package app

import (
	"log/slog"

	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/pkg/cryptox"
)

// InitTokenIssuer builds the HS256 token issuer from the configured keys.
//
// A missing SECRET_KEY or TOKEN_HASH_KEY is replaced by a random key held
// only in memory. Every outstanding access and refresh token becomes invalid
// when the process restarts, which is fine for development and nowhere else.
func InitTokenIssuer(cfg Config, logger *slog.Logger) (*service.TokenIssuer, error) {
	secret := cfg.SecretKey
	if secret == "" {
		secret = cryptox.MustGenerateToken(cryptox.TokenSize512)
		logger.Warn("SECRET_KEY not set, using an ephemeral signing key; tokens will not survive a restart")
	}

	hashKey := cfg.TokenHashKey
	if hashKey == "" {
		hashKey = cryptox.MustGenerateToken(cryptox.TokenSize256)
		logger.Warn("TOKEN_HASH_KEY not set, using an ephemeral key; refresh sessions will not survive a restart")
	}

	return service.NewTokenIssuer(
		[]byte(secret),
		[]byte(hashKey),
		cfg.Issuer,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
}
