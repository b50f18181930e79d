// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/seasonpoints/internal/adapters/storage"
	service "github.com/okian/seasonpoints/internal/app"
	"github.com/okian/seasonpoints/internal/domain/model"
	"github.com/okian/seasonpoints/internal/domain/types"
)

// Calculator is the controller behind the rank endpoints.
type Calculator interface {
	Slots() int
	Load(ctx context.Context, store storage.Store) (model.Records, error)
	Change(ctx context.Context, store storage.Store, records model.Records, slot int, raw string) (types.Display, error)
	Recalculate(ctx context.Context, store storage.Store, records model.Records) (types.Display, error)
	Reset(ctx context.Context, store storage.Store, confirmer service.Confirmer) (types.Display, error)
	Display(records model.Records) types.Display
}

// Authenticator reads the cached login of a browser.
type Authenticator interface {
	CachedToken(ctx context.Context, local storage.Store) (model.Token, error)
	FetchUser(ctx context.Context, tok model.Token) (model.User, error)
}

// Browsers resolves the persistent store of the requesting browser.
type Browsers interface {
	Local(w http.ResponseWriter, r *http.Request) storage.Store
}

// Server wires HTTP routes for the calculator API.
type Server struct {
	healthHandler *HealthHandler
	pointsHandler *PointsHandler
	ranksHandler  *RanksHandler
	userHandler   *UserHandler
	limiter       *ClientLimiter
}

// NewServer creates a new API server with all handlers. limiter may be nil.
func NewServer(calc Calculator, auth Authenticator, browsers Browsers, limiter *ClientLimiter) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		pointsHandler: NewPointsHandler(),
		ranksHandler:  NewRanksHandler(calc, browsers),
		userHandler:   NewUserHandler(auth, browsers),
		limiter:       limiter,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /api/points", MetricsMiddleware(s.pointsHandler.HandleGetPoints, "points"))
	mux.HandleFunc("GET /api/ranks", MetricsMiddleware(s.ranksHandler.HandleGetRanks, "ranks"))
	mux.HandleFunc("POST /api/ranks", MetricsMiddleware(s.ranksHandler.HandlePostRanks, "ranks"))
	mux.HandleFunc("PUT /api/ranks/{slot}", MetricsMiddleware(s.ranksHandler.HandlePutRank, "ranks_slot"))
	mux.HandleFunc("POST /api/reset", MetricsMiddleware(s.ranksHandler.HandleReset, "reset"))
	mux.HandleFunc("GET /api/user", MetricsMiddleware(
		RateLimitMiddleware(s.userHandler.HandleGetUser, "user", s.limiter), "user"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return ErrBadRequest
	}
	return nil
}

const maxBodyBytes = 1 << 16
