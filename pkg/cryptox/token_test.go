package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	for size, wantLen := range map[int]int{
		TokenSize128: 22,
		TokenSize256: 43,
		TokenSize512: 86,
	} {
		tok, err := GenerateToken(size)
		require.NoError(t, err)
		require.Len(t, tok, wantLen)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err, "token must be unpadded base64url")
		require.Len(t, raw, size)
	}

	_, err := GenerateToken(0)
	require.Error(t, err)
	_, err = GenerateToken(-8)
	require.Error(t, err)
}

func TestGenerateToken_NoRepeats(t *testing.T) {
	seen := make(map[string]struct{}, 200)
	for range 200 {
		tok := MustGenerateToken(TokenSize128)
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}

	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestFingerprints(t *testing.T) {
	secret := MustGenerateToken(TokenSize256)
	key := []byte("refresh-hash-key-refresh-hash-key")

	t.Run("plain digest is stable", func(t *testing.T) {
		require.Equal(t, FingerprintToken(secret), FingerprintToken(secret))
		require.NotEqual(t, FingerprintToken(secret), FingerprintToken(secret+"x"))
		require.Len(t, FingerprintToken(secret), 43)
	})

	t.Run("keyed digest needs the key", func(t *testing.T) {
		h := KeyedFingerprint(key, secret)
		require.Equal(t, h, KeyedFingerprint(key, secret))
		require.NotEqual(t, h, KeyedFingerprint([]byte("some other key"), secret))
		require.NotEqual(t, h, FingerprintToken(secret))
		require.NotContains(t, h, secret)
	})
}
