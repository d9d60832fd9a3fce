package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/loykin/updwatch/internal/config"
)

// ErrInvalidCredentials covers every rejected bearer value. Callers must not
// learn which credential source rejected it.
var ErrInvalidCredentials = errors.New("invalid credentials")

const issuer = "updwatch"

// DefaultTTL bounds issued tokens when [serve.auth] jwt_ttl is unset.
const DefaultTTL = 24 * time.Hour

// Service verifies Authorization bearer values against the configured static
// token (cleartext or bcrypt hash) and, when a jwt_secret is set, validates
// and issues HS256 tokens.
type Service struct {
	token     string
	tokenHash string
	secret    []byte
	ttl       time.Duration
}

// New builds a Service from the [serve.auth] table. It returns nil without
// error when the section is absent or disabled.
func New(cfg *config.ServeAuthConfig) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.Token == "" && cfg.TokenHash == "" && cfg.JWTSecret == "" {
		return nil, errors.New("serve.auth enabled without token, token_hash or jwt_secret")
	}
	ttl := DefaultTTL
	if cfg.JWTTTL != "" {
		d, err := time.ParseDuration(cfg.JWTTTL)
		if err != nil || d <= 0 {
			return nil, errors.New("serve.auth.jwt_ttl: want a positive duration like 24h")
		}
		ttl = d
	}
	return &Service{
		token:     cfg.Token,
		tokenHash: cfg.TokenHash,
		secret:    []byte(cfg.JWTSecret),
		ttl:       ttl,
	}, nil
}

// VerifyBearer reports whether a bearer value is acceptable: the static
// token, a preimage of the bcrypt token_hash, or a valid token signed with
// the jwt_secret.
func (s *Service) VerifyBearer(bearer string) bool {
	if bearer == "" {
		return false
	}
	if s.token != "" && subtle.ConstantTimeCompare([]byte(s.token), []byte(bearer)) == 1 {
		return true
	}
	if s.tokenHash != "" && bcrypt.CompareHashAndPassword([]byte(s.tokenHash), []byte(bearer)) == nil {
		return true
	}
	if len(s.secret) > 0 {
		if _, err := s.parseToken(bearer); err == nil {
			return true
		}
	}
	return false
}

func (s *Service) parseToken(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// IssueToken mints a bearer token for subject, valid for ttl. A zero ttl
// uses the configured jwt_ttl. Requires a jwt_secret.
func (s *Service) IssueToken(subject string, ttl time.Duration) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("serve.auth.jwt_secret not configured")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// HashToken returns a bcrypt hash of token for the serve.auth.token_hash key.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
