// Package chi exposes the index subsystem over HTTP: the search endpoint,
// the domain event webhooks feeding the indexer, and the admin maintenance
// operations.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openstay/stayindex/internal/domain"
	"github.com/openstay/stayindex/internal/domain/search"
)

// Indexer is the event-and-maintenance facade of the index subsystem.
type Indexer interface {
	PropertyCreated(ctx context.Context, id string)
	PropertyUpdated(ctx context.Context, id string)
	PropertyDeleted(ctx context.Context, id string)
	UnitCreated(ctx context.Context, unitID, propertyID string)
	UnitUpdated(ctx context.Context, unitID, propertyID string)
	UnitDeleted(ctx context.Context, unitID, propertyID string)
	AvailabilityChanged(ctx context.Context, unitID, propertyID string, ranges []domain.DateRange)
	PricingRuleChanged(ctx context.Context, unitID, propertyID string, rules []domain.PricingRule)
	DynamicFieldChanged(ctx context.Context, propertyID, name, value string, isAdd bool)
	Optimize(ctx context.Context) error
	Rebuild(ctx context.Context) error
}

// Searcher runs index queries.
type Searcher interface {
	Search(ctx context.Context, req *search.Request) (*search.Page, error)
}

// QueueStats reports the write queue backlog for health checks.
type QueueStats interface {
	Depth() int
}

// Server is the HTTP API server.
type Server struct {
	indexer  Indexer
	searcher Searcher
	queue    QueueStats
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(indexer Indexer, searcher Searcher, queue QueueStats, logger *zap.Logger) *Server {
	return &Server{indexer: indexer, searcher: searcher, queue: queue, logger: logger}
}

// Routes mounts every endpoint on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.search)

		r.Route("/events", func(r chi.Router) {
			r.Post("/properties/{id}/created", s.propertyEvent((Indexer).PropertyCreated))
			r.Post("/properties/{id}/updated", s.propertyEvent((Indexer).PropertyUpdated))
			r.Post("/properties/{id}/deleted", s.propertyEvent((Indexer).PropertyDeleted))
			r.Post("/units/{id}/created", s.unitEvent((Indexer).UnitCreated))
			r.Post("/units/{id}/updated", s.unitEvent((Indexer).UnitUpdated))
			r.Post("/units/{id}/deleted", s.unitEvent((Indexer).UnitDeleted))
			r.Post("/availability", s.availabilityChanged)
			r.Post("/pricing", s.pricingRuleChanged)
			r.Post("/dynamic-fields", s.dynamicFieldChanged)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/optimize", s.optimize)
			r.Post("/rebuild", s.rebuild)
		})
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	page, err := s.searcher.Search(r.Context(), &req)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// propertyEvent builds a handler for one property lifecycle event. The
// indexer swallows its own failures, so accepted events always return 202.
func (s *Server) propertyEvent(fn func(Indexer, context.Context, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := uuid.Validate(id); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "property id must be a UUID")
			return
		}
		fn(s.indexer, r.Context(), id)
		writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
	}
}

type unitEventRequest struct {
	PropertyID string `json:"propertyId"`
}

func (s *Server) unitEvent(fn func(Indexer, context.Context, string, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unitID := chi.URLParam(r, "id")
		if err := uuid.Validate(unitID); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "unit id must be a UUID")
			return
		}
		var req unitEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
			return
		}
		if err := uuid.Validate(req.PropertyID); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "propertyId must be a UUID")
			return
		}
		fn(s.indexer, r.Context(), unitID, req.PropertyID)
		writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
	}
}

type availabilityRequest struct {
	UnitID     string             `json:"unitId"`
	PropertyID string             `json:"propertyId"`
	Ranges     []domain.DateRange `json:"ranges"`
}

func (s *Server) availabilityChanged(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if err := validateIDs(req.UnitID, req.PropertyID); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	s.indexer.AvailabilityChanged(r.Context(), req.UnitID, req.PropertyID, req.Ranges)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
}

type pricingRequest struct {
	UnitID     string               `json:"unitId"`
	PropertyID string               `json:"propertyId"`
	Rules      []domain.PricingRule `json:"rules"`
}

func (s *Server) pricingRuleChanged(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if err := validateIDs(req.UnitID, req.PropertyID); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	s.indexer.PricingRuleChanged(r.Context(), req.UnitID, req.PropertyID, req.Rules)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
}

type dynamicFieldRequest struct {
	PropertyID string `json:"propertyId"`
	Name       string `json:"name"`
	Value      string `json:"value"`
	Add        bool   `json:"add"`
}

func (s *Server) dynamicFieldChanged(w http.ResponseWriter, r *http.Request) {
	var req dynamicFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if err := uuid.Validate(req.PropertyID); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "propertyId must be a UUID")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "field name is required")
		return
	}
	s.indexer.DynamicFieldChanged(r.Context(), req.PropertyID, req.Name, req.Value, req.Add)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
}

func (s *Server) optimize(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Optimize(r.Context()); err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) rebuild(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Rebuild(r.Context()); err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type healthResponse struct {
	Status     string `json:"status"`
	QueueDepth int    `json:"queueDepth"`
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", QueueDepth: s.queue.Depth()})
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrQueueClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "index is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "request cancelled or timed out")
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func validateIDs(unitID, propertyID string) error {
	if err := uuid.Validate(unitID); err != nil {
		return errors.New("unitId must be a UUID")
	}
	if err := uuid.Validate(propertyID); err != nil {
		return errors.New("propertyId must be a UUID")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
