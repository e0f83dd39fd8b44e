package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/musichub/catalog-api/internal/core/domain"
)

// TokenCodecConfig selects the signing key and lifetimes of a JWTCodec.
// PrivateKeyPEM, when set, switches signing from HS256 over Secret to RS256.
type TokenCodecConfig struct {
	Secret        []byte
	PrivateKeyPEM []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Now is the clock used to validate exp/iat. Defaults to time.Now.
	Now func() time.Time
}

// tokenClaims is the wire form: sub, role, type, iat, exp, jti and optional iss.
type tokenClaims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// JWTCodec implements ports.TokenCodec. It holds no mutable state after
// construction and is safe for concurrent use.
type JWTCodec struct {
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

func NewJWTCodec(cfg TokenCodecConfig) (*JWTCodec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token codec: access and refresh TTL must be positive")
	}

	c := &JWTCodec{
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}

	switch {
	case len(cfg.PrivateKeyPEM) > 0:
		key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("token codec: parse rsa key: %w", err)
		}
		c.method, c.signKey, c.verifyKey = jwt.SigningMethodRS256, key, &key.PublicKey
	case len(cfg.Secret) > 0:
		c.method, c.signKey, c.verifyKey = jwt.SigningMethodHS256, cfg.Secret, cfg.Secret
	default:
		return nil, errors.New("token codec: a secret or a private key is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	c.parser = jwt.NewParser(opts...)

	return c, nil
}

// TTL returns the lifetime of tokens of type typ.
func (c *JWTCodec) TTL(typ domain.TokenType) time.Duration {
	if typ == domain.TokenTypeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Encode signs a token for subject with iat=now and exp=now+TTL(typ).
func (c *JWTCodec) Encode(subject string, role domain.Role, typ domain.TokenType, now time.Time) (string, error) {
	if !typ.Valid() {
		return "", fmt.Errorf("token codec: unknown token type %q", typ)
	}

	claims := &tokenClaims{
		Role: string(role),
		Type: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(typ))),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
	if err != nil {
		return "", fmt.Errorf("token codec: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, algorithm, expiry and issuer. Every failure is
// reported as domain.ErrInvalidToken.
func (c *JWTCodec) Decode(token string) (*domain.Claims, error) {
	var claims tokenClaims
	_, err := c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.verifyKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	typ := domain.TokenType(claims.Type)
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown type claim %q", domain.ErrInvalidToken, claims.Type)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role claim %q", domain.ErrInvalidToken, claims.Role)
	}

	out := &domain.Claims{
		ID:      claims.ID,
		Subject: claims.Subject,
		Role:    role,
		Type:    typ,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
