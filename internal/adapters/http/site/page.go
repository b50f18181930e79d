// Package site serves the calculator page.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/seasonpoints/internal/adapters/http/browser"
	"github.com/okian/seasonpoints/internal/adapters/session"
	"github.com/okian/seasonpoints/internal/adapters/storage"
	service "github.com/okian/seasonpoints/internal/app"
	"github.com/okian/seasonpoints/internal/auth"
	"github.com/okian/seasonpoints/internal/domain/model"
	"github.com/okian/seasonpoints/internal/domain/types"
	"github.com/okian/seasonpoints/pkg/logger"
	"github.com/okian/seasonpoints/pkg/metrics"
)

// Calculator is the controller behind the page.
type Calculator interface {
	Slots() int
	Restore(ctx context.Context, store storage.Store, query url.Values) (types.Display, error)
	Recalculate(ctx context.Context, store storage.Store, records model.Records) (types.Display, error)
	Reset(ctx context.Context, store storage.Store, confirmer service.Confirmer) (types.Display, error)
}

// Authenticator resolves the login state on page load.
type Authenticator interface {
	Resolve(ctx context.Context, query url.Values, local, session storage.Store) (auth.Outcome, error)
}

// Browsers resolves the requesting browser's stores.
type Browsers interface {
	Local(w http.ResponseWriter, r *http.Request) storage.Store
	Session(r *http.Request) *session.Session
}

// Limiter bounds how often one browser may hit the identity provider.
type Limiter interface {
	Allow(key string) bool
}

// Handler renders the calculator page.
type Handler struct {
	calc     Calculator
	auth     Authenticator
	browsers Browsers
	limiter  Limiter
	logger   logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLimiter throttles login resolution per browser.
func WithLimiter(l Limiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates the page handler.
func NewHandler(calc Calculator, a Authenticator, browsers Browsers, opts ...Option) *Handler {
	h := &Handler{calc: calc, auth: a, browsers: browsers}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("site")
	}
	return h
}

// Register attaches the page routes to mux.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", h.HandlePage)
	mux.HandleFunc("POST /{$}", h.HandleSubmit)
	mux.HandleFunc("POST /reset", h.HandleReset)
}

type pageData struct {
	Display   types.Display
	Welcome   *types.Welcome
	LoginURL  string
	AuthError string
	Prompt    string
}

// HandlePage handles GET / requests: restore the ranks, then resolve the
// login. After a code exchange the browser is sent back to the bare path.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	local := h.browsers.Local(w, r)

	display, err := h.calc.Restore(ctx, local, query)
	if err != nil {
		h.logger.Error(ctx, "restore failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	data := pageData{Display: display, Prompt: service.ResetPrompt}

	if h.limiter != nil && !h.limiter.Allow(browser.Key(r)) {
		metrics.RecordRateLimited("page")
		data.AuthError = "Too many login attempts, try again shortly."
		h.render(ctx, w, http.StatusOK, data)
		return
	}

	sess := h.browsers.Session(r)
	outcome, err := h.auth.Resolve(ctx, query, local, sess)
	if saveErr := sess.Save(w, r); saveErr != nil {
		h.logger.Error(ctx, "session save failed", logger.Error(saveErr))
	}
	if err != nil {
		status, msg := h.authError(ctx, err)
		data.AuthError = msg
		data.LoginURL = outcome.LoginURL
		h.render(ctx, w, status, data)
		return
	}

	if outcome.ClearURL {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data.LoginURL = outcome.LoginURL
	if outcome.User != nil {
		data.Welcome = &types.Welcome{DisplayName: outcome.User.DisplayName, Message: auth.WelcomeMessage(*outcome.User)}
	}
	h.render(ctx, w, http.StatusOK, data)
}

// HandleSubmit handles POST / requests carrying every rank input.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	records := model.NewRecords(h.calc.Slots())
	for i := range records {
		records.Set(i, r.PostForm.Get(strconv.Itoa(i+1)))
	}
	if _, err := h.calc.Recalculate(ctx, h.browsers.Local(w, r), records); err != nil {
		h.logger.Error(ctx, "save failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleReset handles POST /reset. The form must carry confirm=yes.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	confirmed := r.PostForm.Get("confirm") == "yes"
	if _, err := h.calc.Reset(ctx, h.browsers.Local(w, r), service.Answer(confirmed)); err != nil {
		if errors.Is(err, service.ErrResetDeclined) {
			writeError(w, http.StatusBadRequest, "reset_declined", ErrNotConfirmed)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// authError logs a failed login step and picks the status and banner the
// page is rendered with. The calculator itself stays usable.
func (h *Handler) authError(ctx context.Context, err error) (int, string) {
	var httpErr *auth.HTTPError
	switch {
	case errors.Is(err, auth.ErrStateMismatch):
		h.logger.Error(ctx, "login aborted", logger.Error(err))
		return http.StatusBadRequest, "Login aborted: the sign-in response did not match this browser."
	case errors.As(err, &httpErr):
		h.logger.Error(ctx, "identity provider error",
			logger.String("endpoint", httpErr.Endpoint),
			logger.Int("status", httpErr.StatusCode),
		)
		return http.StatusOK, "Trackmania login is unavailable right now."
	default:
		h.logger.Error(ctx, "login failed", logger.Error(err))
		return http.StatusOK, "Login failed."
	}
}

func (h *Handler) render(ctx context.Context, w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error(ctx, "render failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%w: %w", ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Message: err.Error()})
}
