package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musichub/catalog-api/internal/core/domain"
)

func TestJWTCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t, fixedClock(t0))

	for _, typ := range []domain.TokenType{domain.TokenTypeAccess, domain.TokenTypeRefresh} {
		t.Run(string(typ), func(t *testing.T) {
			token, err := codec.Encode("ana@example.com", domain.RoleArtist, typ, t0)
			require.NoError(t, err)

			claims, err := codec.Decode(token)
			require.NoError(t, err)
			assert.Equal(t, "ana@example.com", claims.Subject)
			assert.Equal(t, domain.RoleArtist, claims.Role)
			assert.Equal(t, typ, claims.Type)
			assert.WithinDuration(t, t0, claims.IssuedAt, 0)
			assert.WithinDuration(t, t0.Add(codec.TTL(typ)), claims.ExpiresAt, 0)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestJWTCodec_UniqueTokenIDs(t *testing.T) {
	codec := newTestCodec(t, fixedClock(t0))
	a, err := codec.Encode("ana@example.com", domain.RoleUser, domain.TokenTypeAccess, t0)
	require.NoError(t, err)
	b, err := codec.Encode("ana@example.com", domain.RoleUser, domain.TokenTypeAccess, t0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTCodec_Expired(t *testing.T) {
	issuer := newTestCodec(t, fixedClock(t0))
	token, err := issuer.Encode("ana@example.com", domain.RoleUser, domain.TokenTypeAccess, t0)
	require.NoError(t, err)

	later := newTestCodec(t, fixedClock(t0.Add(16*time.Minute)))
	_, err = later.Decode(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	// The refresh token of the same login is still good.
	refresh, err := issuer.Encode("ana@example.com", domain.RoleUser, domain.TokenTypeRefresh, t0)
	require.NoError(t, err)
	_, err = later.Decode(refresh)
	assert.NoError(t, err)
}

func TestJWTCodec_RejectsTamperedPayload(t *testing.T) {
	codec := newTestCodec(t, fixedClock(t0))
	a, err := codec.Encode("ana@example.com", domain.RoleGuest, domain.TokenTypeAccess, t0)
	require.NoError(t, err)
	b, err := codec.Encode("boss@example.com", domain.RoleAdmin, domain.TokenTypeAccess, t0)
	require.NoError(t, err)

	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	forged := pa[0] + "." + pb[1] + "." + pa[2]

	_, err = codec.Decode(forged)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestJWTCodec_RejectsOtherSecret(t *testing.T) {
	codec := newTestCodec(t, fixedClock(t0))
	other, err := NewJWTCodec(TokenCodecConfig{
		Secret:     []byte("another-secret"),
		Issuer:     "musichub-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        fixedClock(t0),
	})
	require.NoError(t, err)

	token, err := other.Encode("ana@example.com", domain.RoleAdmin, domain.TokenTypeAccess, t0)
	require.NoError(t, err)
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestJWTCodec_RejectsNoneAlgorithm(t *testing.T) {
	codec := newTestCodec(t, fixedClock(t0))
	claims := jwt.MapClaims{
		"sub":  "ana@example.com",
		"role": "admin",
		"type": "access",
		"iat":  t0.Unix(),
		"exp":  t0.Add(time.Hour).Unix(),
		"iss":  "musichub-test",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestJWTCodec_RejectsUnknownClaims(t *testing.T) {
	codec := newTestCodec(t, fixedClock(t0))
	cases := map[string]jwt.MapClaims{
		"bad role": {"sub": "a@b.c", "role": "root", "type": "access"},
		"bad type": {"sub": "a@b.c", "role": "user", "type": "id"},
		"no exp":   {"sub": "a@b.c", "role": "user", "type": "access"},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			claims["iat"] = t0.Unix()
			claims["iss"] = "musichub-test"
			if name != "no exp" {
				claims["exp"] = t0.Add(time.Hour).Unix()
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
			require.NoError(t, err)

			_, err = codec.Decode(token)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}

func TestJWTCodec_RejectsWrongIssuer(t *testing.T) {
	codec := newTestCodec(t, fixedClock(t0))
	other, err := NewJWTCodec(TokenCodecConfig{
		Secret:     testSecret,
		Issuer:     "someone-else",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        fixedClock(t0),
	})
	require.NoError(t, err)

	token, err := other.Encode("ana@example.com", domain.RoleUser, domain.TokenTypeAccess, t0)
	require.NoError(t, err)
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestJWTCodec_RS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	codec, err := NewJWTCodec(TokenCodecConfig{
		PrivateKeyPEM: keyPEM,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Now:           fixedClock(t0),
	})
	require.NoError(t, err)

	token, err := codec.Encode("ana@example.com", domain.RoleUser, domain.TokenTypeAccess, t0)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	assert.Equal(t, "RS256", parsed.Method.Alg())

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Subject)

	// An HS256 token must not pass an RS256 codec.
	hs := newTestCodec(t, fixedClock(t0))
	hsToken, err := hs.Encode("ana@example.com", domain.RoleUser, domain.TokenTypeAccess, t0)
	require.NoError(t, err)
	_, err = codec.Decode(hsToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestNewJWTCodec_Errors(t *testing.T) {
	_, err := NewJWTCodec(TokenCodecConfig{Secret: testSecret, AccessTTL: 0, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewJWTCodec(TokenCodecConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewJWTCodec(TokenCodecConfig{PrivateKeyPEM: []byte("garbage"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)
}

func TestJWTCodec_EncodeUnknownType(t *testing.T) {
	codec := newTestCodec(t, fixedClock(t0))
	_, err := codec.Encode("ana@example.com", domain.RoleUser, domain.TokenType("id"), t0)
	assert.Error(t, err)
}
