package services

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultMediaURLTTL applies when no positive TTL is configured.
const DefaultMediaURLTTL = time.Hour

// ErrInvalidSignature is returned for missing, forged or expired media URLs.
var ErrInvalidSignature = errors.New("invalid media signature")

// MediaSigner issues and verifies time-limited URLs for stored images. The
// signature is an HS256 JWT whose subject is the object key.
type MediaSigner struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func NewMediaSigner(secret string, ttl time.Duration, baseURL string) *MediaSigner {
	if ttl <= 0 {
		ttl = DefaultMediaURLTTL
	}
	return &MediaSigner{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// URL returns the signed download URL for key, or "" when key is empty.
func (m *MediaSigner) URL(key string) (string, error) {
	if key == "" {
		return "", nil
	}
	sig, err := m.Sign(key)
	if err != nil {
		return "", err
	}

	u := m.baseURL + "/media/" + (&url.URL{Path: key}).EscapedPath()
	return u + "?" + url.Values{"sig": {sig}}.Encode(), nil
}

func (m *MediaSigner) Sign(key string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   key,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks that sig is a valid, unexpired signature for key.
func (m *MediaSigner) Verify(key, sig string) error {
	if strings.TrimSpace(sig) == "" {
		return ErrInvalidSignature
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(sig, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return ErrInvalidSignature
	}
	if claims.Subject != key {
		return ErrInvalidSignature
	}
	return nil
}
