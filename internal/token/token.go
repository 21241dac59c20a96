package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"akshaya-auth/internal/config"
)

var ErrUnauthorized = errors.New("invalid or expired token")

const legacyPrefix = "token_"

// Issuer converts a verified user identity into a bearer credential and
// back. Implementations are selected once at startup via TOKEN_MODE.
type Issuer interface {
	Issue(userID string) (string, error)
	Validate(token string) (string, error)
}

// NewIssuer builds the issuer configured by cfg.Mode.
func NewIssuer(cfg config.TokenConfig) (Issuer, error) {
	switch cfg.Mode {
	case "legacy":
		return NewLegacyIssuer(), nil
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, errors.New("TOKEN_MODE=jwt requires TOKEN_JWT_SECRET")
		}
		return NewJWTIssuer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown token mode: %s", cfg.Mode)
	}
}

// FromAuthHeader extracts the bearer token from an Authorization header
// value.
func FromAuthHeader(header string) (string, error) {
	const scheme = "Bearer "
	if !strings.HasPrefix(header, scheme) {
		return "", ErrUnauthorized
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, scheme))
	if token == "" {
		return "", ErrUnauthorized
	}
	return token, nil
}

// LegacyIssuer is the original prefix scheme. Validate also passes
// unprefixed tokens through as the user id; credentials issued before the
// prefix existed still circulate, so this leniency must stay.
type LegacyIssuer struct{}

func NewLegacyIssuer() *LegacyIssuer {
	return &LegacyIssuer{}
}

func (i *LegacyIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	return legacyPrefix + userID, nil
}

func (i *LegacyIssuer) Validate(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	if rest, ok := strings.CutPrefix(token, legacyPrefix); ok {
		if rest == "" {
			return "", ErrUnauthorized
		}
		return rest, nil
	}
	return token, nil
}

// JWTIssuer mints HS256 tokens with the user id as subject. When
// acceptLegacy is set, a credential that is not a JWT but carries the
// legacy prefix is still honored, so existing sessions survive the
// cutover.
type JWTIssuer struct {
	secret       []byte
	ttl          time.Duration
	acceptLegacy bool
	legacy       *LegacyIssuer

	now func() time.Time
}

func NewJWTIssuer(cfg config.TokenConfig) *JWTIssuer {
	return &JWTIssuer{
		secret:       []byte(cfg.JWTSecret),
		ttl:          cfg.JWTTTL,
		acceptLegacy: cfg.AcceptLegacy,
		legacy:       NewLegacyIssuer(),
		now:          time.Now,
	}
}

func (i *JWTIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}

	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    "akshaya-auth",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (i *JWTIssuer) Validate(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}

	if i.acceptLegacy && strings.HasPrefix(token, legacyPrefix) {
		return i.legacy.Validate(token)
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrUnauthorized
	}

	return claims.Subject, nil
}
