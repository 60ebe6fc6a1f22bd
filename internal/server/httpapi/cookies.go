package httpapi

import (
	"net/http"
	"time"

	"github.com/penter405/brainsync/internal/common"
)

// cookieJar builds the session and state cookies. Cross-site delivery in
// production needs SameSite=None, which browsers only accept with Secure.
type cookieJar struct {
	production bool
}

func (c cookieJar) build(name, value string, maxAge time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
	}
	if c.production {
		ck.SameSite = http.SameSiteNoneMode
		ck.Secure = true
	}
	return ck
}

func (c cookieJar) session(token string, maxAge time.Duration) *http.Cookie {
	return c.build(common.SessionCookieName, token, maxAge)
}

func (c cookieJar) state(token string, maxAge time.Duration) *http.Cookie {
	return c.build(common.StateCookieName, token, maxAge)
}

// clear expires the named cookie immediately.
func (c cookieJar) clear(name string) *http.Cookie {
	ck := c.build(name, "", 0)
	ck.MaxAge = -1
	return ck
}
