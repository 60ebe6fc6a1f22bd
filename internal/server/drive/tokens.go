package drive

import (
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Rotation is a credential change observed while calling the provider.
// RefreshToken is empty when the provider did not issue a new one.
type Rotation struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// RotationFunc receives rotations. It is called synchronously from the HTTP
// transport and must not block on I/O.
type RotationFunc func(Rotation)

// Credentials are the decrypted tokens of one identity.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// rotatingSource reports every access token the wrapped source hands out
// that differs from the last one seen.
type rotatingSource struct {
	base   oauth2.TokenSource
	notify RotationFunc

	mu      sync.Mutex
	access  string
	refresh string
}

func newRotatingSource(base oauth2.TokenSource, creds Credentials, notify RotationFunc) *rotatingSource {
	return &rotatingSource{
		base:    base,
		notify:  notify,
		access:  creds.AccessToken,
		refresh: creds.RefreshToken,
	}
}

func (s *rotatingSource) Token() (*oauth2.Token, error) {
	t, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := t.AccessToken != s.access
	var rot Rotation
	if changed {
		s.access = t.AccessToken
		rot = Rotation{AccessToken: t.AccessToken, Expiry: t.Expiry}
		// oauth2 carries the old refresh token forward when none is issued.
		if t.RefreshToken != "" && t.RefreshToken != s.refresh {
			s.refresh = t.RefreshToken
			rot.RefreshToken = t.RefreshToken
		}
	}
	s.mu.Unlock()

	if changed && s.notify != nil {
		s.notify(rot)
	}
	return t, nil
}

// initialToken builds the token handed to oauth2. An unknown expiry is
// treated as already expired so the first call refreshes.
func initialToken(c Credentials) *oauth2.Token {
	expiry := c.Expiry
	if expiry.IsZero() {
		expiry = time.Unix(0, 0)
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
}
