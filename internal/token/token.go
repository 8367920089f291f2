// Package token mints and verifies signed session tokens. Tokens are
// self-contained HS256 assertions of identity and role; the server keeps no
// revocation list, so a leaked token stays valid until its natural expiry.
// That trade-off is accepted here in exchange for stateless verification.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gatherly/gatherly/internal/identity"
)

var (
	// ErrMalformed indicates the token string is not structurally a compact JWT.
	ErrMalformed = errors.New("malformed token")

	// ErrBadSignature indicates the signature does not verify against the secret.
	ErrBadSignature = errors.New("token signature mismatch")

	// ErrExpired indicates the token is past its expiry.
	ErrExpired = errors.New("token expired")
)

var b64 = base64.RawURLEncoding

// Claims carries the verified content of a session token.
type Claims struct {
	Subject   string
	Role      identity.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service mints and verifies session tokens with a process-wide secret
// injected at construction.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds a token service. The secret must be non-empty; lifetime
// falls back to 24h when unset.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the internal clock, used in tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// TTL reports the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

type payload struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Iat  int64  `json:"iat"`
	Exp  int64  `json:"exp"`
}

// Mint signs a token asserting the identity and role until now + lifetime.
func (s *Service) Mint(identityID string, role identity.Role) (string, error) {
	now := s.now().UTC()
	return s.sign(payload{
		Sub:  identityID,
		Role: string(role),
		Iat:  now.Unix(),
		Exp:  now.Add(s.ttl).Unix(),
	})
}

// Verify checks structure, signature and expiry, in that order, and returns
// the embedded claims.
func (s *Service) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformed
	}
	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return Claims{}, ErrMalformed
	}

	unsigned := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(unsigned))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return Claims{}, ErrBadSignature
	}

	raw, err := b64.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrMalformed
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Claims{}, ErrMalformed
	}
	if p.Sub == "" || !identity.Role(p.Role).Valid() {
		return Claims{}, ErrMalformed
	}

	exp := time.Unix(p.Exp, 0).UTC()
	if !s.now().UTC().Before(exp) {
		return Claims{}, ErrExpired
	}

	return Claims{
		Subject:   p.Sub,
		Role:      identity.Role(p.Role),
		IssuedAt:  time.Unix(p.Iat, 0).UTC(),
		ExpiresAt: exp,
	}, nil
}

func (s *Service) sign(p payload) (string, error) {
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	unsigned := b64.EncodeToString(header) + "." + b64.EncodeToString(body)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(unsigned))
	return unsigned + "." + b64.EncodeToString(mac.Sum(nil)), nil
}
