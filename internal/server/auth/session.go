// Package auth issues and verifies the stateless credentials handed to the
// browser: the session bearer token and the short-lived OAuth state token.
//
// Sessions are not stored server side. A token stays valid until it expires;
// logout only asks the client to drop it.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/penter405/brainsync/internal/common"
)

// DefaultSessionMaxAge is the lifetime of a session token.
const DefaultSessionMaxAge = 7 * 24 * time.Hour

const tokenSeparator = "."

var encoding = base64.RawURLEncoding

// SessionPayload is the signed body of a session token. ExpiresAt is in
// epoch milliseconds.
type SessionPayload struct {
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"exp"`
}

// SessionCodec creates and verifies tokens of the form
// base64url(payload) "." base64url(HMAC-SHA256(base64url(payload))).
type SessionCodec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionCodec returns a codec signing with secret. A zero maxAge means
// DefaultSessionMaxAge.
func NewSessionCodec(secret []byte, maxAge time.Duration) (*SessionCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: session secret is empty", common.ErrConfiguration)
	}
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &SessionCodec{secret: secret, maxAge: maxAge, now: time.Now}, nil
}

// WithClock replaces the time source. For tests.
func (c *SessionCodec) WithClock(now func() time.Time) *SessionCodec {
	c.now = now
	return c
}

// MaxAge is the lifetime given to newly issued tokens.
func (c *SessionCodec) MaxAge() time.Duration {
	return c.maxAge
}

// Issue returns a token for userID expiring MaxAge from now.
func (c *SessionCodec) Issue(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", common.ErrorValidation)
	}

	body, err := json.Marshal(SessionPayload{
		UserID:    userID,
		ExpiresAt: c.now().Add(c.maxAge).UnixMilli(),
	})
	if err != nil {
		return "", err
	}

	data := encoding.EncodeToString(body)
	return data + tokenSeparator + encoding.EncodeToString(c.sign(data)), nil
}

// Verify returns the user id carried by token. Every failure wraps
// common.ErrInvalidToken; an expired but otherwise valid token yields
// common.ErrTokenExpired.
func (c *SessionCodec) Verify(token string) (string, error) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", common.ErrInvalidToken
	}
	data, sig := parts[0], parts[1]

	// Compare the encoded text: the final character carries unused bits
	// that a lenient decoder would ignore.
	if !hmac.Equal([]byte(sig), []byte(encoding.EncodeToString(c.sign(data)))) {
		return "", common.ErrInvalidToken
	}

	body, err := encoding.DecodeString(data)
	if err != nil {
		return "", common.ErrInvalidToken
	}

	var payload SessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", common.ErrInvalidToken
	}
	if payload.UserID == "" {
		return "", common.ErrInvalidToken
	}

	if c.now().UnixMilli() >= payload.ExpiresAt {
		return "", common.ErrTokenExpired
	}

	return payload.UserID, nil
}

func (c *SessionCodec) sign(data string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
