// Package auth runs the PKCE authorization-code login against the
// Trackmania API and caches the resulting token.
//
// A page load resolves to exactly one path:
//
//	cached, unexpired token     -> fetch the user, greet
//	no code in the URL          -> stage 1: stash verifier+state, build login URL
//	code in the URL             -> stage 2: check state, exchange code, cache token
package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/seasonpoints/internal/adapters/storage"
	"github.com/okian/seasonpoints/internal/domain/model"
	"github.com/okian/seasonpoints/pkg/logger"
	"github.com/okian/seasonpoints/pkg/metrics"
	"golang.org/x/oauth2"
)

// Persistent (local) keys.
const (
	KeyAccessToken    = "accessToken"
	KeyTokenType      = "tokenType"
	KeyExpirationDate = "expirationDate"
)

// Session-scoped keys.
const (
	KeyCodeVerifier = "code_verifier"
	KeyState        = "state"
)

// Query parameters read from the page URL.
const (
	ParamCode  = "code"
	ParamState = "state"
)

const (
	authorizePath = "/oauth/authorize"
	tokenPath     = "/api/access_token"
	userPath      = "/api/user"

	defaultHTTPTimeout = 10 * time.Second
)

// Settings identifies the client at the identity provider.
type Settings struct {
	Endpoint    string // e.g. https://api.trackmania.com
	ClientID    string
	Scope       string
	RedirectURL string
}

// Outcome is what a page load resolved to.
type Outcome struct {
	State    State
	LoginURL string      // set in AwaitingRedirect
	User     *model.User // set when a cached token was used
	ClearURL bool        // the code must be removed from the visible URL
	Steps    []Step
}

// Flow drives the login. It holds no per-browser state; callers pass the
// browser's local and session stores on every call.
type Flow struct {
	settings   Settings
	oauth      *oauth2.Config
	httpClient *http.Client
	clock      clockwork.Clock
	random     io.Reader
	logger     logger.Logger
}

// NewFlow creates a Flow for settings.
func NewFlow(settings Settings, opts ...Option) *Flow {
	endpoint := strings.TrimRight(settings.Endpoint, "/")
	f := &Flow{
		settings: settings,
		oauth: &oauth2.Config{
			ClientID:    settings.ClientID,
			RedirectURL: settings.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoint + authorizePath,
				TokenURL:  endpoint + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		clock:      clockwork.NewRealClock(),
		random:     rand.Reader,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("auth")
	}
	f.httpClient = instrument(f.httpClient)
	return f
}

// Resolve runs the page-load decision. local holds the token cache,
// session holds the PKCE material.
func (f *Flow) Resolve(ctx context.Context, query url.Values, local, session storage.Store) (Outcome, error) {
	tok, err := f.CachedToken(ctx, local)
	switch {
	case err == nil:
		f.logger.Debug(ctx, "auth token not expired")
		m := f.machine(TokenCached)
		user, err := f.FetchUser(ctx, tok)
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			// A rejected token is dropped so the next load starts a fresh login.
			if terr := m.To(Unauthenticated); terr != nil {
				return Outcome{}, terr
			}
			if derr := local.Delete(ctx, KeyAccessToken, KeyTokenType, KeyExpirationDate); derr != nil {
				return Outcome{State: m.Current(), Steps: m.Steps()}, derr
			}
			return Outcome{State: m.Current(), Steps: m.Steps()}, err
		}
		if err != nil {
			return Outcome{State: m.Current()}, err
		}
		return Outcome{State: m.Current(), User: &user}, nil
	case errors.Is(err, errExpired):
		f.logger.Debug(ctx, "auth token expired")
		m := f.machine(TokenCached)
		if err := m.To(Unauthenticated); err != nil {
			return Outcome{}, err
		}
		if err := local.Delete(ctx, KeyAccessToken, KeyTokenType, KeyExpirationDate); err != nil {
			return Outcome{}, err
		}
		return f.resolveUnauthenticated(ctx, m, query, local, session)
	case errors.Is(err, ErrNoToken):
		return f.resolveUnauthenticated(ctx, f.machine(Unauthenticated), query, local, session)
	default:
		return Outcome{}, err
	}
}

func (f *Flow) resolveUnauthenticated(ctx context.Context, m *Machine, query url.Values, local, session storage.Store) (Outcome, error) {
	code := query.Get(ParamCode)
	if code == "" {
		loginURL, err := f.Begin(ctx, session)
		if err != nil {
			return Outcome{State: m.Current(), Steps: m.Steps()}, err
		}
		if err := m.To(AwaitingRedirect); err != nil {
			return Outcome{}, err
		}
		return Outcome{State: m.Current(), LoginURL: loginURL, Steps: m.Steps()}, nil
	}

	// The redirect back means stage 1 happened in this browser session.
	m.Assume(AwaitingRedirect)
	if err := m.To(CodeReceived); err != nil {
		return Outcome{}, err
	}
	if _, err := f.Complete(ctx, code, query.Get(ParamState), local, session); err != nil {
		return Outcome{State: m.Current(), Steps: m.Steps()}, err
	}
	if err := m.To(TokenCached); err != nil {
		return Outcome{}, err
	}
	return Outcome{State: m.Current(), ClearURL: true, Steps: m.Steps()}, nil
}

func (f *Flow) machine(start State) *Machine {
	return NewMachine(start, func(s Step) {
		metrics.RecordAuthTransition(string(s.From), string(s.To))
	})
}

// Begin is stage 1: generate verifier and state, stash them in session and
// return the authorization URL.
func (f *Flow) Begin(ctx context.Context, session storage.Store) (string, error) {
	p, err := f.newSession()
	if err != nil {
		return "", err
	}
	if err := session.Set(ctx, KeyCodeVerifier, p.CodeVerifier); err != nil {
		return "", fmt.Errorf("stash code verifier: %w", err)
	}
	if err := session.Set(ctx, KeyState, p.State); err != nil {
		return "", fmt.Errorf("stash state: %w", err)
	}

	loginURL := f.AuthorizationURL(p.CodeVerifier, p.State)
	f.logger.Debug(ctx, "auth link generated", logger.String("challenge", Challenge(p.CodeVerifier)))
	return loginURL, nil
}

func (f *Flow) newSession() (model.PKCESession, error) {
	verifier, err := RandomString(f.random, SecretLength)
	if err != nil {
		return model.PKCESession{}, err
	}
	state, err := RandomString(f.random, SecretLength)
	if err != nil {
		return model.PKCESession{}, err
	}
	return model.PKCESession{CodeVerifier: verifier, State: state}, nil
}

// AuthorizationURL builds the login link for a verifier and state.
func (f *Flow) AuthorizationURL(verifier, state string) string {
	return f.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("scope", f.settings.Scope),
	)
}

// Complete is stage 2: verify state, exchange the code and cache the token.
// The stashed PKCE material is dropped once the token is cached.
func (f *Flow) Complete(ctx context.Context, code, returnedState string, local, session storage.Store) (model.Token, error) {
	var p model.PKCESession
	var verr, serr error
	p.CodeVerifier, verr = session.Get(ctx, KeyCodeVerifier)
	p.State, serr = session.Get(ctx, KeyState)
	if verr != nil || serr != nil || p.State != returnedState {
		metrics.RecordAuthError("state_mismatch")
		f.logger.Error(ctx, "state does not match", logger.Bool("stash_found", serr == nil))
		return model.Token{}, ErrStateMismatch
	}
	f.logger.Debug(ctx, "state matched")

	tok, err := f.Exchange(ctx, code, p.CodeVerifier)
	if err != nil {
		metrics.RecordAuthError("exchange")
		return model.Token{}, err
	}
	if err := f.store(ctx, local, tok); err != nil {
		return model.Token{}, err
	}
	if err := session.Delete(ctx, KeyCodeVerifier, KeyState); err != nil {
		return model.Token{}, fmt.Errorf("drop pkce session: %w", err)
	}
	f.logger.Info(ctx, "auth token cached", logger.String("expires", tok.ExpirationDate.Format(time.RFC3339)))
	return tok, nil
}

// Exchange posts the authorization code and verifier to the token endpoint.
func (f *Flow) Exchange(ctx context.Context, code, verifier string) (model.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	t, err := f.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return model.Token{}, &HTTPError{Endpoint: tokenPath, StatusCode: re.Response.StatusCode}
		}
		return model.Token{}, fmt.Errorf("token exchange: %w", err)
	}
	return model.Token{
		TokenType:      t.TokenType,
		AccessToken:    t.AccessToken,
		ExpirationDate: f.clock.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
	}, nil
}

// CachedToken returns the stored token, ErrNoToken when none is stored, or
// errExpired when it is past its expiration date.
func (f *Flow) CachedToken(ctx context.Context, local storage.Store) (model.Token, error) {
	raw, err := local.Get(ctx, KeyExpirationDate)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Token{}, ErrNoToken
	}
	if err != nil {
		return model.Token{}, err
	}
	exp, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return model.Token{}, ErrNoToken
	}

	tok := model.Token{ExpirationDate: exp}
	if tok.AccessToken, err = local.Get(ctx, KeyAccessToken); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return model.Token{}, err
	}
	if tok.TokenType, err = local.Get(ctx, KeyTokenType); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return model.Token{}, err
	}
	if !tok.Valid(f.clock.Now()) {
		return model.Token{}, errExpired
	}
	return tok, nil
}

var errExpired = errors.New("cached token expired")

func (f *Flow) store(ctx context.Context, local storage.Store, tok model.Token) error {
	values := []struct{ key, value string }{
		{KeyTokenType, tok.TokenType},
		{KeyAccessToken, tok.AccessToken},
		{KeyExpirationDate, tok.ExpirationDate.UTC().Format(time.RFC3339)},
	}
	for _, v := range values {
		if err := local.Set(ctx, v.key, v.value); err != nil {
			return fmt.Errorf("cache %s: %w", v.key, err)
		}
	}
	return nil
}

// FetchUser calls the user endpoint with the cached token.
func (f *Flow) FetchUser(ctx context.Context, tok model.Token) (model.User, error) {
	endpoint := strings.TrimRight(f.settings.Endpoint, "/") + userPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("create user request: %w", err)
	}
	req.Header.Set("Authorization", tok.TokenType+" "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return model.User{}, fmt.Errorf("user request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordAuthError("user")
		return model.User{}, &HTTPError{Endpoint: userPath, StatusCode: resp.StatusCode}
	}

	var user model.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return model.User{}, fmt.Errorf("decode user: %w", err)
	}
	f.logger.Info(ctx, "welcome", logger.String("display_name", user.DisplayName))
	return user, nil
}

// WelcomeMessage is the greeting shown for user.
func WelcomeMessage(user model.User) string {
	return "Welcome " + user.DisplayName + "!"
}
