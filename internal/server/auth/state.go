package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/penter405/brainsync/internal/common"
	"golang.org/x/crypto/hkdf"
)

// DefaultStateMaxAge bounds how long a user may take on the consent screen.
const DefaultStateMaxAge = 10 * time.Minute

const stateKeyInfo = "brainsync oauth state v1"

// StateClaims binds the random OAuth state parameter to this browser.
type StateClaims struct {
	jwt.RegisteredClaims
	State string `json:"state"`
}

// StateSigner issues the oauth_state cookie value as an HS256 JWT. Its key
// is derived from the session secret with HKDF so the two token kinds never
// share a MAC key.
type StateSigner struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewStateSigner(sessionSecret []byte, maxAge time.Duration) (*StateSigner, error) {
	if len(sessionSecret) == 0 {
		return nil, fmt.Errorf("%w: session secret is empty", common.ErrConfiguration)
	}
	if maxAge <= 0 {
		maxAge = DefaultStateMaxAge
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sessionSecret, nil, []byte(stateKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	return &StateSigner{key: key, maxAge: maxAge, now: time.Now}, nil
}

// WithClock replaces the time source. For tests.
func (s *StateSigner) WithClock(now func() time.Time) *StateSigner {
	s.now = now
	return s
}

func (s *StateSigner) MaxAge() time.Duration {
	return s.maxAge
}

// Issue returns a fresh state parameter and the signed token carrying it.
func (s *StateSigner) Issue() (state string, token string, err error) {
	state, err = common.MakeRandHexString(16)
	if err != nil {
		return "", "", err
	}

	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		},
		State: state,
	})

	token, err = t.SignedString(s.key)
	if err != nil {
		return "", "", err
	}
	return state, token, nil
}

// Verify checks that token is valid, unexpired and carries state.
func (s *StateSigner) Verify(token, state string) error {
	if token == "" || state == "" {
		return common.ErrInvalidToken
	}

	claims := &StateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return common.ErrInvalidToken
	}

	if !hmac.Equal([]byte(claims.State), []byte(state)) {
		return common.ErrInvalidToken
	}
	return nil
}
