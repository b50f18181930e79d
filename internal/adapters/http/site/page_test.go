package site_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/seasonpoints/internal/adapters/http/browser"
	"github.com/okian/seasonpoints/internal/adapters/http/site"
	"github.com/okian/seasonpoints/internal/adapters/session"
	"github.com/okian/seasonpoints/internal/adapters/storage"
	service "github.com/okian/seasonpoints/internal/app"
	"github.com/okian/seasonpoints/internal/auth"
	"github.com/okian/seasonpoints/internal/domain/model"
	"github.com/okian/seasonpoints/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// stubAuth returns a fixed outcome and records the query it saw.
type stubAuth struct {
	outcome auth.Outcome
	err     error
	query   url.Values
	calls   int
}

func (s *stubAuth) Resolve(_ context.Context, query url.Values, _, sess storage.Store) (auth.Outcome, error) {
	s.calls++
	s.query = query
	if s.outcome.State == auth.AwaitingRedirect {
		_ = sess.Set(context.Background(), auth.KeyState, "stashed")
	}
	return s.outcome, s.err
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

type fixture struct {
	mux      *http.ServeMux
	auth     *stubAuth
	backend  *storage.MemoryStore
	clientID string
}

func newFixture(opts ...site.Option) *fixture {
	stub := &stubAuth{outcome: auth.Outcome{State: auth.AwaitingRedirect, LoginURL: "https://api.example/oauth/authorize?state=s"}}
	f := newFixtureWith(stub, opts...)
	f.auth = stub
	return f
}

func newFixtureWith(a site.Authenticator, opts ...site.Option) *fixture {
	f := &fixture{
		mux:      http.NewServeMux(),
		backend:  storage.NewMemoryStore(),
		clientID: uuid.NewString(),
	}
	calc := service.New(
		service.WithSlots(3),
		service.WithBaseURL("http://localhost:9080/"),
		service.WithLogger(logger.Discard()),
	)
	browsers := browser.New(f.backend, session.NewStore([]byte("0123456789abcdef0123456789abcdef"), false), false)
	opts = append([]site.Option{site.WithLogger(logger.Discard())}, opts...)
	site.NewHandler(calc, a, browsers, opts...).Register(context.Background(), f.mux)
	return f
}

func (f *fixture) local(key string) string {
	v, _ := f.backend.Get(context.Background(), storage.LocalPrefix(f.clientID)+key)
	return v
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: browser.ClientCookie, Value: f.clientID})
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func (f *fixture) stored() string {
	return f.local(service.KeyRecords)
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandlePage(t *testing.T) {
	Convey("Given a signed-out browser", t, func() {
		f := newFixture()

		Convey("The page renders every rank input and the login button", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, `class="rank"`)
			So(body, ShouldContainSubstring, `id="3"`)
			So(body, ShouldContainSubstring, `id="p1"`)
			So(body, ShouldContainSubstring, `id="result"`)
			So(body, ShouldContainSubstring, `id="login-button"`)
			So(body, ShouldContainSubstring, "https://api.example/oauth/authorize")
		})

		Convey("The stage 1 stash is saved as a session cookie", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
			var names []string
			for _, c := range w.Result().Cookies() {
				names = append(names, c.Name)
			}
			So(names, ShouldContain, session.DefaultName)
		})

		Convey("A share link restores and persists its ranks", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/?ranks=1:100:", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, ">42000<")
			So(f.stored(), ShouldEqual, "1:100::")
		})

		Convey("The share link sits in a read-only input with a copy button", func() {
			body := f.do(httptest.NewRequest(http.MethodGet, "/?ranks=1:100:", nil)).Body.String()
			So(body, ShouldContainSubstring, `<input id="link" type="text" readonly value="http://localhost:9080/?ranks=1:100::"`)
			So(body, ShouldContainSubstring, `id="copy-button"`)
			So(body, ShouldContainSubstring, "navigator.clipboard.writeText")
			So(body, ShouldContainSubstring, "clipboardData.setData")
		})
	})

	Convey("Given a browser returning with a code", t, func() {
		f := newFixture()
		f.auth.outcome = auth.Outcome{State: auth.TokenCached, ClearURL: true}

		Convey("It is redirected to the bare path", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/?code=abc&state=s", nil))
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			So(w.Header().Get("Location"), ShouldEqual, "/")
			So(f.auth.query.Get("code"), ShouldEqual, "abc")
		})
	})

	Convey("Given a signed-in browser", t, func() {
		f := newFixture()
		f.auth.outcome = auth.Outcome{State: auth.TokenCached, User: &model.User{DisplayName: "Speedy"}}

		Convey("The welcome banner replaces the login button", func() {
			body := f.do(httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
			So(body, ShouldContainSubstring, "Welcome Speedy!")
			So(body, ShouldNotContainSubstring, `id="login-button"`)
		})
	})

	Convey("Given a forged state", t, func() {
		f := newFixture()
		f.auth.outcome = auth.Outcome{State: auth.CodeReceived}
		f.auth.err = auth.ErrStateMismatch

		Convey("The login aborts with 400 but the calculator still renders", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/?code=abc&state=x", nil))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
			body := w.Body.String()
			So(body, ShouldContainSubstring, `id="auth-error"`)
			So(body, ShouldContainSubstring, `id="result"`)
			So(body, ShouldContainSubstring, `class="rank"`)
		})
	})

	Convey("Given an identity provider error", t, func() {
		f := newFixture()
		f.do(postForm("/", url.Values{"1": {"5"}, "3": {"12"}}))
		f.auth.outcome = auth.Outcome{State: auth.CodeReceived}
		f.auth.err = &auth.HTTPError{Endpoint: "/api/access_token", StatusCode: http.StatusInternalServerError}

		Convey("The calculator renders the stored ranks alongside the error", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/?code=abc&state=s", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
			body := w.Body.String()
			So(body, ShouldContainSubstring, `id="auth-error"`)
			So(body, ShouldContainSubstring, `id="result"`)
			So(body, ShouldContainSubstring, `value="12"`)
			So(body, ShouldNotContainSubstring, `"code":"upstream_error"`)
		})
	})

	Convey("Given a cached token the user endpoint rejects", t, func() {
		idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer idp.Close()
		flow := auth.NewFlow(auth.Settings{Endpoint: idp.URL, ClientID: "client-1", RedirectURL: "http://localhost:9080/"},
			auth.WithHTTPClient(idp.Client()),
			auth.WithLogger(logger.Discard()),
		)
		f := newFixtureWith(flow)
		ctx := context.Background()
		prefix := storage.LocalPrefix(f.clientID)
		So(f.backend.Set(ctx, prefix+service.KeyRecords, "5::12:"), ShouldBeNil)
		So(f.backend.Set(ctx, prefix+auth.KeyTokenType, "Bearer"), ShouldBeNil)
		So(f.backend.Set(ctx, prefix+auth.KeyAccessToken, "revoked"), ShouldBeNil)
		So(f.backend.Set(ctx, prefix+auth.KeyExpirationDate, time.Now().Add(time.Hour).Format(time.RFC3339)), ShouldBeNil)

		first := f.do(httptest.NewRequest(http.MethodGet, "/", nil))

		Convey("The calculator renders and the token is dropped", func() {
			So(first.Code, ShouldEqual, http.StatusOK)
			body := first.Body.String()
			So(body, ShouldContainSubstring, `id="auth-error"`)
			So(body, ShouldContainSubstring, `id="result"`)
			So(body, ShouldContainSubstring, `value="5"`)
			So(f.local(auth.KeyAccessToken), ShouldBeEmpty)
			So(f.local(auth.KeyExpirationDate), ShouldBeEmpty)
		})

		Convey("The next load offers the login button", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `id="login-button"`)
			So(w.Body.String(), ShouldNotContainSubstring, `id="auth-error"`)
		})
	})

	Convey("Given a throttled browser", t, func() {
		f := newFixture(site.WithLimiter(denyAll{}))

		Convey("The calculator renders without touching the login", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `id="auth-error"`)
			So(f.auth.calls, ShouldEqual, 0)
		})
	})
}

func TestHandleSubmit(t *testing.T) {
	Convey("Given a submitted rank form", t, func() {
		f := newFixture()

		w := f.do(postForm("/", url.Values{"1": {"5"}, "2": {"oops"}, "3": {"12"}}))

		Convey("The ranks are saved and the browser sent back to the page", func() {
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			So(f.stored(), ShouldEqual, "5::12:")
		})
	})
}

func TestHandleReset(t *testing.T) {
	Convey("Given stored ranks", t, func() {
		f := newFixture()
		f.do(postForm("/", url.Values{"1": {"5"}}))
		So(f.stored(), ShouldEqual, "5:::")

		Convey("A confirmed reset blanks them", func() {
			w := f.do(postForm("/reset", url.Values{"confirm": {"yes"}}))
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			So(f.stored(), ShouldEqual, ":::")
		})

		Convey("A reset without confirmation is refused", func() {
			w := f.do(postForm("/reset", url.Values{}))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(f.stored(), ShouldEqual, "5:::")
		})
	})
}

func TestRegisterWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		h := site.NewHandler(nil, nil, nil, site.WithLogger(logger.Discard()))

		Convey("Then registering panics", func() {
			So(func() { h.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
