// Package service implements the calculator controller: it turns rank input
// into the display state, persists the ranks per browser and builds the
// share link.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/okian/seasonpoints/internal/adapters/storage"
	"github.com/okian/seasonpoints/internal/domain/model"
	"github.com/okian/seasonpoints/internal/domain/scoring"
	"github.com/okian/seasonpoints/internal/domain/types"
	"github.com/okian/seasonpoints/pkg/logger"
	"github.com/okian/seasonpoints/pkg/metrics"
)

// KeyRecords is the local storage key holding the serialized ranks.
const KeyRecords = "records"

// ParamRanks is the share-link query parameter.
const ParamRanks = "ranks"

// DefaultSlots is one slot per map of a season campaign.
const DefaultSlots = 25

// Service is the calculator controller. It is stateless between calls;
// every browser's data lives in the store passed in.
type Service struct {
	slots   int
	scorer  scoring.Scorer
	baseURL string
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSlots sets the number of rank inputs.
func WithSlots(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.slots = n
		}
	}
}

// WithScorer replaces the season curve.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithBaseURL sets the page address used for share links. Any query or
// fragment is dropped.
func WithBaseURL(base string) Option {
	return func(s *Service) {
		if u, err := url.Parse(base); err == nil {
			u.RawQuery = ""
			u.Fragment = ""
			s.baseURL = u.String()
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		slots:  DefaultSlots,
		scorer: scoring.SeasonCurve{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("calculator")
	}
	return s
}

// Slots returns the number of rank inputs.
func (s *Service) Slots() int { return s.slots }

// Load returns the stored ranks, or blank slots when nothing is stored.
func (s *Service) Load(ctx context.Context, store storage.Store) (model.Records, error) {
	raw, err := store.Get(ctx, KeyRecords)
	if errors.Is(err, storage.ErrNotFound) {
		return model.NewRecords(s.slots), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return model.ParseRecords(raw, s.slots), nil
}

// Change applies raw input to the 1-based slot and recalculates. Input that
// is not a positive integer blanks the slot.
func (s *Service) Change(ctx context.Context, store storage.Store, records model.Records, slot int, raw string) (types.Display, error) {
	if slot < 1 || slot > s.slots {
		return types.Display{}, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	records = s.fit(records).Clone()
	if !records.Set(slot-1, raw) && raw != "" {
		s.logger.Debug(ctx, "rank input blanked", logger.Int("slot", slot), logger.String("input", raw))
	}
	return s.Recalculate(ctx, store, records)
}

// Recalculate sums the points, persists the serialized ranks and returns
// the display state.
func (s *Service) Recalculate(ctx context.Context, store storage.Store, records model.Records) (types.Display, error) {
	records = s.fit(records)
	display := s.Display(records)

	if err := store.Set(ctx, KeyRecords, display.Records); err != nil {
		return types.Display{}, fmt.Errorf("save records: %w", err)
	}
	metrics.RecordRecordsSaved()
	metrics.RecordPointsCalculated(display.Total)

	s.logger.Debug(ctx, "records saved",
		logger.String("records", display.Records),
		logger.Int("total", display.Total),
		logger.Int("filled", records.Filled()),
	)
	return display, nil
}

// Reset clears every slot after confirmation.
func (s *Service) Reset(ctx context.Context, store storage.Store, confirmer Confirmer) (types.Display, error) {
	if confirmer == nil || !confirmer.Confirm(ctx, ResetPrompt) {
		metrics.RecordReset("declined")
		return types.Display{}, ErrResetDeclined
	}
	metrics.RecordReset("confirmed")
	s.logger.Info(ctx, "records reset")
	return s.Recalculate(ctx, store, model.NewRecords(s.slots))
}

// Restore rebuilds the page state on load. The ranks query parameter wins
// over the stored ranks.
func (s *Service) Restore(ctx context.Context, store storage.Store, query url.Values) (types.Display, error) {
	var records model.Records
	if shared := query.Get(ParamRanks); shared != "" {
		records = model.ParseRecords(shared, s.slots)
		s.logger.Debug(ctx, "ranks restored from link", logger.String("ranks", shared))
	} else {
		var err error
		if records, err = s.Load(ctx, store); err != nil {
			return types.Display{}, err
		}
	}
	return s.Recalculate(ctx, store, records)
}

// Display derives the page state from records without persisting.
func (s *Service) Display(records model.Records) types.Display {
	records = s.fit(records)

	var total float64
	slots := make([]types.Slot, len(records))
	for i, rank := range records {
		p := s.scorer.Points(rank)
		total += p
		slot := types.Slot{ID: i + 1, Label: scoring.FormatPoints(p)}
		if rank > 0 {
			slot.Value = strconv.Itoa(rank)
		}
		slots[i] = slot
	}

	serialized := records.Serialize()
	return types.Display{
		Total:   scoring.Round(total),
		Slots:   slots,
		Records: serialized,
		Link:    s.Link(serialized),
	}
}

// Link is the share link for serialized ranks.
func (s *Service) Link(serialized string) string {
	return s.baseURL + "?" + ParamRanks + "=" + serialized
}

// fit pads or truncates records to the slot count.
func (s *Service) fit(records model.Records) model.Records {
	if len(records) == s.slots {
		return records
	}
	out := model.NewRecords(s.slots)
	copy(out, records)
	return out
}
