package api

import (
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/seasonpoints/internal/app"
	"github.com/okian/seasonpoints/internal/domain/model"
)

// RanksHandler serves the calculator state of the requesting browser.
type RanksHandler struct {
	calc     Calculator
	browsers Browsers
}

// NewRanksHandler creates a new ranks handler.
func NewRanksHandler(calc Calculator, browsers Browsers) *RanksHandler {
	return &RanksHandler{calc: calc, browsers: browsers}
}

// ranksRequest carries either raw slot values or a serialized string.
type ranksRequest struct {
	Ranks   []string `json:"ranks"`
	Records *string  `json:"records"`
}

type slotRequest struct {
	Value string `json:"value"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

// HandleGetRanks handles GET /api/ranks requests.
func (h *RanksHandler) HandleGetRanks(w http.ResponseWriter, r *http.Request) {
	records, err := h.calc.Load(r.Context(), h.browsers.Local(w, r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, h.calc.Display(records))
}

// HandlePostRanks handles POST /api/ranks requests.
func (h *RanksHandler) HandlePostRanks(w http.ResponseWriter, r *http.Request) {
	var req ranksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	var records model.Records
	if req.Records != nil {
		records = model.ParseRecords(*req.Records, h.calc.Slots())
	} else {
		records = model.NewRecords(h.calc.Slots())
		for i, raw := range req.Ranks {
			if i >= len(records) {
				break
			}
			records.Set(i, raw)
		}
	}

	display, err := h.calc.Recalculate(r.Context(), h.browsers.Local(w, r), records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, display)
}

// HandlePutRank handles PUT /api/ranks/{slot} requests.
func (h *RanksHandler) HandlePutRank(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	var req slotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ctx := r.Context()
	local := h.browsers.Local(w, r)
	records, err := h.calc.Load(ctx, local)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	display, err := h.calc.Change(ctx, local, records, slot, req.Value)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSlot) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, display)
}

// HandleReset handles POST /api/reset requests.
func (h *RanksHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	display, err := h.calc.Reset(r.Context(), h.browsers.Local(w, r), service.Answer(req.Confirm))
	if err != nil {
		if errors.Is(err, service.ErrResetDeclined) {
			writeError(w, http.StatusBadRequest, "reset_declined", errors.New(service.ResetPrompt))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, display)
}
