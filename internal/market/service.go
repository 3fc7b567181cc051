// Package market provides the HTTP handlers for managing scenarios and
// serving their clearing results, supply/demand curves and settlement.
//
// Results are never stored: every response is recomputed from the current
// participant snapshot.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/clearing"
	"github.com/gridmarket/spot-engine/internal/curve"
	"github.com/gridmarket/spot-engine/internal/events"
	"github.com/gridmarket/spot-engine/internal/meritorder"
	"github.com/gridmarket/spot-engine/internal/metrics"
	"github.com/gridmarket/spot-engine/internal/model"
	"github.com/gridmarket/spot-engine/internal/scenario"
	"github.com/gridmarket/spot-engine/internal/store"
	"github.com/gridmarket/spot-engine/internal/validate"
)

const publishTimeout = 5 * time.Second

// Service handles scenario operations. Mutations are serialized with a
// mutex (single-instance); PostgresStore additionally row-locks the
// scenario on every version bump.
type Service struct {
	store     store.Store
	limits    *validate.Limits
	engine    *clearing.Engine
	mu        sync.Mutex
	wsHub     *WSHub           // optional
	publisher events.Publisher // optional
}

// NewService creates a new market service.
// Pass nil for hub or publisher to disable that sink.
func NewService(st store.Store, limits *validate.Limits, engine *clearing.Engine, hub *WSHub, pub events.Publisher) *Service {
	return &Service{
		store:     st,
		limits:    limits,
		engine:    engine,
		wsHub:     hub,
		publisher: pub,
	}
}

// --- Request/Response types ---

// ParticipantRequest is the JSON body describing one participant.
type ParticipantRequest struct {
	ID       string          `json:"id"` // assigned when empty on create
	Name     string          `json:"name"`
	Role     string          `json:"role"` // GENERATOR (or GEN) / LOAD
	Fuel     string          `json:"fuel,omitempty"`
	Capacity decimal.Decimal `json:"capacity"` // MW
	Price    decimal.Decimal `json:"price"`    // $/MWh
}

// CreateScenarioRequest is the JSON body for scenario creation.
// Without participants and with UseDefaults set, the reference grid is used.
type CreateScenarioRequest struct {
	Name         string               `json:"name"`
	Participants []ParticipantRequest `json:"participants"`
	UseDefaults  bool                 `json:"use_defaults"`
}

// EvaluateRequest is the JSON body for stateless POST /clearing.
type EvaluateRequest struct {
	Participants []ParticipantRequest `json:"participants"`
}

// ScenarioResponse is returned by every scenario mutation.
type ScenarioResponse struct {
	Scenario *model.Scenario      `json:"scenario"`
	Result   model.ClearingResult `json:"result"`
}

// ClearingResponse is the equilibrium of one scenario version.
type ClearingResponse struct {
	ScenarioID string               `json:"scenario_id"`
	Version    int64                `json:"version"`
	Result     model.ClearingResult `json:"result"`
}

// EvaluateResponse bundles everything derived from a posted snapshot.
type EvaluateResponse struct {
	Result     model.ClearingResult  `json:"result"`
	Chart      curve.Chart           `json:"chart"`
	Settlement []clearing.Settlement `json:"settlement"`
}

func (req ParticipantRequest) participant() (model.Participant, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return model.Participant{}, err
	}
	fuel, err := model.ParseFuel(req.Fuel)
	if err != nil {
		return model.Participant{}, err
	}
	return model.Participant{
		ID:       strings.TrimSpace(req.ID),
		Name:     strings.TrimSpace(req.Name),
		Role:     role,
		Fuel:     fuel,
		Capacity: req.Capacity,
		Price:    req.Price,
	}, nil
}

// participants converts a request list, assigning ids where missing.
func participants(reqs []ParticipantRequest) ([]model.Participant, error) {
	ps := make([]model.Participant, 0, len(reqs))
	for _, req := range reqs {
		p, err := req.participant()
		if err != nil {
			return nil, err
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		ps = append(ps, p)
	}
	return ps, nil
}

// --- HTTP Handlers: scenarios ---

// ListScenarios handles GET /api/v1/scenarios
func (s *Service) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.store.ListScenarios(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if scenarios == nil {
		scenarios = []model.Scenario{}
	}
	metrics.ActiveScenarios.Set(float64(len(scenarios)))
	writeJSON(w, http.StatusOK, scenarios)
}

// CreateScenario handles POST /api/v1/scenarios
func (s *Service) CreateScenario(w http.ResponseWriter, r *http.Request) {
	var req CreateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ps, err := participants(req.Participants)
	if err != nil {
		s.writeErr(w, s.reject(err))
		return
	}
	if len(ps) == 0 && req.UseDefaults {
		ps = scenario.Defaults()
	}
	if err := s.limits.CheckAll(ps); err != nil {
		s.writeErr(w, s.reject(err))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Scenario " + time.Now().UTC().Format(time.RFC3339)
	}
	now := time.Now().UTC()
	sc := &model.Scenario{
		ID:           uuid.New().String(),
		Name:         name,
		Participants: ps,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx := r.Context()
	if err := s.store.CreateScenario(ctx, sc); err != nil {
		s.writeErr(w, err)
		return
	}
	metrics.ActiveScenarios.Inc()

	result := s.evaluate(sc.ID, sc.Participants)
	slog.Info("scenario created",
		"scenario", sc.ID,
		"name", sc.Name,
		"participants", len(sc.Participants),
		"price", result.ClearingPrice.String(),
		"volume", result.ClearedVolume.String(),
	)
	s.announce(ctx, sc, result, "scenario_created")

	writeJSON(w, http.StatusCreated, ScenarioResponse{Scenario: sc, Result: result})
}

// GetScenario handles GET /api/v1/scenarios/{scenarioID}
func (s *Service) GetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetScenario(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, normalize(sc))
}

// --- HTTP Handlers: participant mutations ---

// AddParticipant handles POST /api/v1/scenarios/{scenarioID}/participants
func (s *Service) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req ParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := req.participant()
	if err != nil {
		s.writeErr(w, s.reject(err))
		return
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	s.mutate(w, r, http.StatusCreated, "participant_added", func(ctx context.Context, sc *model.Scenario) (int64, error) {
		if err := s.limits.CheckAdd(sc.Participants, p); err != nil {
			return 0, s.reject(err)
		}
		return s.store.AddParticipant(ctx, sc.ID, p)
	})
}

// UpdateParticipant handles PUT /api/v1/scenarios/{scenarioID}/participants/{participantID}
// The id in the path wins over any id in the body.
func (s *Service) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	var req ParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ID = chi.URLParam(r, "participantID")
	p, err := req.participant()
	if err != nil {
		s.writeErr(w, s.reject(err))
		return
	}

	s.mutate(w, r, http.StatusOK, "participant_updated", func(ctx context.Context, sc *model.Scenario) (int64, error) {
		if _, ok := sc.Participant(p.ID); !ok {
			return 0, store.ErrParticipantNotFound
		}
		if err := s.limits.CheckUpdate(sc.Participants, p); err != nil {
			return 0, s.reject(err)
		}
		return s.store.UpdateParticipant(ctx, sc.ID, p)
	})
}

// RemoveParticipant handles DELETE /api/v1/scenarios/{scenarioID}/participants/{participantID}
func (s *Service) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "participantID")
	s.mutate(w, r, http.StatusOK, "participant_removed", func(ctx context.Context, sc *model.Scenario) (int64, error) {
		return s.store.RemoveParticipant(ctx, sc.ID, participantID)
	})
}

// ClearParticipants handles DELETE /api/v1/scenarios/{scenarioID}/participants
func (s *Service) ClearParticipants(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, "participants_cleared", func(ctx context.Context, sc *model.Scenario) (int64, error) {
		return s.store.ReplaceParticipants(ctx, sc.ID, []model.Participant{})
	})
}

// ResetScenario handles POST /api/v1/scenarios/{scenarioID}/reset
// It restores the reference participant set.
func (s *Service) ResetScenario(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, "reset", func(ctx context.Context, sc *model.Scenario) (int64, error) {
		defaults := scenario.Defaults()
		if err := s.limits.CheckAll(defaults); err != nil {
			return 0, s.reject(err)
		}
		return s.store.ReplaceParticipants(ctx, sc.ID, defaults)
	})
}

// mutate loads the scenario, applies fn and answers with the reloaded
// snapshot and its freshly computed equilibrium.
func (s *Service) mutate(w http.ResponseWriter, r *http.Request, status int, cause string,
	fn func(ctx context.Context, sc *model.Scenario) (int64, error)) {
	scenarioID := chi.URLParam(r, "scenarioID")
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.store.GetScenario(ctx, scenarioID)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	version, err := fn(ctx, sc)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	sc, err = s.store.GetScenario(ctx, scenarioID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	sc = normalize(sc)

	result := s.evaluate(sc.ID, sc.Participants)
	slog.Info("scenario updated",
		"scenario", sc.ID,
		"cause", cause,
		"version", version,
		"participants", len(sc.Participants),
		"price", result.ClearingPrice.String(),
		"volume", result.ClearedVolume.String(),
		"surplus", result.MarketSurplus.String(),
	)
	s.announce(ctx, sc, result, cause)

	writeJSON(w, status, ScenarioResponse{Scenario: sc, Result: result})
}

// --- HTTP Handlers: derived views ---

// GetClearing handles GET /api/v1/scenarios/{scenarioID}/clearing
func (s *Service) GetClearing(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetScenario(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClearingResponse{
		ScenarioID: sc.ID,
		Version:    sc.Version,
		Result:     s.evaluate(sc.ID, sc.Participants),
	})
}

// GetCurves handles GET /api/v1/scenarios/{scenarioID}/curves
func (s *Service) GetCurves(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetScenario(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	chart, _ := s.project(sc.ID, sc.Participants)
	writeJSON(w, http.StatusOK, chart)
}

// GetSettlement handles GET /api/v1/scenarios/{scenarioID}/settlement
func (s *Service) GetSettlement(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetScenario(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	result := s.evaluate(sc.ID, sc.Participants)
	writeJSON(w, http.StatusOK, clearing.SettlementTable(sc.Participants, result))
}

// Evaluate handles POST /api/v1/clearing
// It clears a posted snapshot without storing anything.
func (s *Service) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ps, err := participants(req.Participants)
	if err != nil {
		s.writeErr(w, s.reject(err))
		return
	}
	if err := s.limits.CheckAll(ps); err != nil {
		s.writeErr(w, s.reject(err))
		return
	}

	chart, result := s.project("", ps)
	writeJSON(w, http.StatusOK, EvaluateResponse{
		Result:     result,
		Chart:      chart,
		Settlement: clearing.SettlementTable(ps, result),
	})
}

// --- helpers ---

// evaluate recomputes the equilibrium of a snapshot and records metrics.
func (s *Service) evaluate(scenarioID string, ps []model.Participant) model.ClearingResult {
	start := time.Now()
	result := s.engine.Compute(ps)
	metrics.ObserveClearing(scenarioID, result, time.Since(start))
	return result
}

// project builds curves and the clearing result from one merit-ordered
// book so both views share the same ordering.
func (s *Service) project(scenarioID string, ps []model.Participant) (curve.Chart, model.ClearingResult) {
	start := time.Now()
	book := meritorder.Build(ps)
	result := s.engine.ComputeBook(book)
	metrics.ObserveClearing(scenarioID, result, time.Since(start))
	return curve.NewChart(curve.Project(book), result), result
}

// announce fans a clearing update out to the websocket hub and Kafka.
// Publishing failures are logged and never fail the request.
func (s *Service) announce(ctx context.Context, sc *model.Scenario, result model.ClearingResult, cause string) {
	ev := events.ClearingEvent{
		Type:       events.TypeClearingUpdated,
		ScenarioID: sc.ID,
		Version:    sc.Version,
		Cause:      cause,
		Result:     result,
		Timestamp:  time.Now().UTC(),
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(ev)
	}

	if s.publisher != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(pctx, ev); err != nil {
			metrics.EventsPublished.WithLabelValues("kafka", "error").Inc()
			slog.Warn("clearing event not published", "scenario", sc.ID, "version", sc.Version, "err", err)
			return
		}
		metrics.EventsPublished.WithLabelValues("kafka", "ok").Inc()
	}
}

// reject counts a validation failure and passes it through.
func (s *Service) reject(err error) error {
	metrics.ParticipantRejections.WithLabelValues(validate.Reason(err)).Inc()
	return err
}

// normalize ensures an empty participant set encodes as [] not null.
func normalize(sc *model.Scenario) *model.Scenario {
	if sc.Participants == nil {
		sc.Participants = []model.Participant{}
	}
	return sc
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrScenarioNotFound), errors.Is(err, store.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateParticipant),
		errors.Is(err, validate.ErrDuplicateID),
		errors.Is(err, validate.ErrTooManyParticipants),
		errors.Is(err, validate.ErrSideCapacityLimit):
		return http.StatusConflict
	case validate.Reason(err) != "other":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Service) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		writeError(w, "internal error", status)
		return
	}
	writeError(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
