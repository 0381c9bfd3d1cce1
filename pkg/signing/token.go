package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Claims is the data carried by a signed token.
type Claims struct {
	Subject   string
	Scope     string
	ExpiresAt time.Time
}

// TokenSigner creates and validates short-lived HMAC tokens used for
// shareable links that bypass authentication.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner constructs a signer with the provided secret and TTL.
func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token binding subject and scope until the TTL elapses.
func (s *TokenSigner) Generate(subject, scope string) (string, time.Time, error) {
	if subject == "" || scope == "" {
		return "", time.Time{}, fmt.Errorf("subject and scope required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	encSubject := base64.RawURLEncoding.EncodeToString([]byte(subject))
	encScope := base64.RawURLEncoding.EncodeToString([]byte(scope))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	signature := s.sign(encSubject, ts, encScope)
	token := strings.Join([]string{encSubject, ts, encScope, signature}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded claims.
func (s *TokenSigner) Parse(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid token format")
	}
	encSubject, ts, encScope, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(encSubject, ts, encScope)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("invalid token signature")
	}

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp")
	}
	expiresAt := time.Unix(expUnix, 0).UTC()
	if s.now().After(expiresAt) {
		return nil, fmt.Errorf("token expired")
	}

	subject, err := base64.RawURLEncoding.DecodeString(encSubject)
	if err != nil {
		return nil, fmt.Errorf("decode subject: %w", err)
	}
	scope, err := base64.RawURLEncoding.DecodeString(encScope)
	if err != nil {
		return nil, fmt.Errorf("decode scope: %w", err)
	}
	return &Claims{Subject: string(subject), Scope: string(scope), ExpiresAt: expiresAt}, nil
}

func (s *TokenSigner) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
