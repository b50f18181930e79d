// Package session keeps short-lived per-browser values in a signed cookie
// that expires with the browser session.
package session

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/okian/seasonpoints/internal/adapters/storage"
)

// DefaultName is the cookie name used for the session.
const DefaultName = "seasonpoints_session"

// Store issues sessions backed by a gorilla cookie store.
type Store struct {
	cookies *sessions.CookieStore
	name    string
}

// Option configures a Store.
type Option func(*Store)

// WithName overrides the cookie name.
func WithName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.name = name
		}
	}
}

// NewStore creates a Store signing cookies with secret.
func NewStore(secret []byte, secure bool, opts ...Option) *Store {
	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0, // browser-session cookie
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	s := &Store{cookies: cookies, name: DefaultName}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the request's session. A cookie that fails to decode yields a
// fresh, empty session.
func (s *Store) Open(r *http.Request) *Session {
	sess, err := s.cookies.Get(r, s.name)
	if err != nil || sess == nil {
		sess = sessions.NewSession(s.cookies, s.name)
		opts := *s.cookies.Options
		sess.Options = &opts
		sess.IsNew = true
	}
	return &Session{sess: sess}
}

// Session adapts one gorilla session to storage.Store. Changes are only
// sent to the browser after Save.
type Session struct {
	sess  *sessions.Session
	dirty bool
}

var _ storage.Store = (*Session)(nil)

func (s *Session) Get(_ context.Context, key string) (string, error) {
	v, ok := s.sess.Values[key].(string)
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *Session) Set(_ context.Context, key, value string) error {
	s.sess.Values[key] = value
	s.dirty = true
	return nil
}

func (s *Session) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		if _, ok := s.sess.Values[k]; ok {
			delete(s.sess.Values, k)
			s.dirty = true
		}
	}
	return nil
}

// Dirty reports whether Save has anything to write.
func (s *Session) Dirty() bool { return s.dirty }

// Save writes the cookie when the session changed.
func (s *Session) Save(w http.ResponseWriter, r *http.Request) error {
	if !s.dirty {
		return nil
	}
	if err := s.sess.Save(r, w); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
