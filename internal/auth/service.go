package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySubject = errors.New("token subject is required")
)

// DefaultTTL is the lifetime of issued tokens.
const DefaultTTL = 24 * time.Hour

// Service issues and validates HS256 bearer tokens. User accounts live outside the
// engine; a token subject is an opaque user or service id.
type Service struct {
	jwtSecret []byte
	ttl       time.Duration
	disabled  bool
	now       func() time.Time
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithDisabled makes the middleware accept every request as LocalUserID. For local
// development only.
func WithDisabled(disabled bool) Option {
	return func(s *Service) { s.disabled = disabled }
}

func withClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(jwtSecret string, opts ...Option) *Service {
	s := &Service{
		jwtSecret: []byte(jwtSecret),
		ttl:       DefaultTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type TokenResult struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueToken signs a token for subject.
func (s *Service) IssueToken(subject string) (*TokenResult, error) {
	if subject == "" {
		return nil, ErrEmptySubject
	}
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResult{Token: signed, Subject: subject, ExpiresAt: exp.UTC()}, nil
}

// ValidateToken returns the subject of a valid token.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Disabled reports whether authentication is switched off.
func (s *Service) Disabled() bool {
	return s.disabled
}
