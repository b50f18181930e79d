package api

import (
	"net/http"
	"strconv"

	"github.com/okian/seasonpoints/internal/domain/scoring"
)

// PointsHandler scores a single rank.
type PointsHandler struct{}

// NewPointsHandler creates a new points handler.
func NewPointsHandler() *PointsHandler {
	return &PointsHandler{}
}

type pointsResponse struct {
	Rank   int     `json:"rank"`
	Tier   int     `json:"tier"`
	Points float64 `json:"points"`
	Label  string  `json:"label"`
}

// HandleGetPoints handles GET /api/points?rank=N requests.
func (h *PointsHandler) HandleGetPoints(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(r.URL.Query().Get("rank"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	resp := pointsResponse{Rank: rank, Points: scoring.CalculatePoint(rank), Label: scoring.Label(rank)}
	if rank > 0 {
		resp.Tier = scoring.Tier(rank)
	}
	writeJSON(w, http.StatusOK, resp)
}
