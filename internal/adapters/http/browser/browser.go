// Package browser maps an HTTP request to the storage areas of the browser
// that sent it: a persistent namespace keyed by a client id cookie, and a
// session cookie that dies with the browser session.
package browser

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/seasonpoints/internal/adapters/session"
	"github.com/okian/seasonpoints/internal/adapters/storage"
)

// ClientCookie names the cookie carrying the browser's id.
const ClientCookie = "client_id"

const clientCookieMaxAge = 400 * 24 * time.Hour

// Browsers hands out per-browser stores.
type Browsers struct {
	backend  storage.Store
	sessions *session.Store
	secure   bool
}

// New creates Browsers over a shared backend and a session cookie store.
func New(backend storage.Store, sessions *session.Store, secure bool) *Browsers {
	return &Browsers{backend: backend, sessions: sessions, secure: secure}
}

// ClientID returns the browser's id, issuing a new cookie when the request
// has none or carries a malformed one.
func (b *Browsers) ClientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ClientCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(clientCookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Local returns the browser's persistent store.
func (b *Browsers) Local(w http.ResponseWriter, r *http.Request) storage.Store {
	return storage.Scoped(b.backend, storage.LocalPrefix(b.ClientID(w, r)))
}

// Session returns the browser's session store. Call Save on it before the
// response body is written.
func (b *Browsers) Session(r *http.Request) *session.Session {
	return b.sessions.Open(r)
}

// Key identifies the caller for rate limiting: the canonical client id when
// the cookie holds a valid one, else the remote host.
func Key(r *http.Request) string {
	if c, err := r.Cookie(ClientCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
