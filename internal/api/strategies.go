package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-irrigation/internal/strategy"
)

// StrategyListResponse is the body of GET /strategies.
type StrategyListResponse struct {
	Active     string           `json:"active"`
	Strategies []strategy.Entry `json:"strategies"`
}

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StrategyListResponse{
		Active:     s.strategies.ActiveName(),
		Strategies: s.strategies.List(),
	})
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	def, err := s.strategies.Get(key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategy.Entry{
		Key:        key,
		Active:     key == s.strategies.ActiveName(),
		Definition: def,
	})
}

// handleUpsertStrategy creates or replaces a strategy. The body is a
// definition; all four durations are required.
func (s *Server) handleUpsertStrategy(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var def strategy.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeDomainError(w, asInvalidBody(err))
		return
	}

	if err := s.strategies.Upsert(r.Context(), key, def); err != nil {
		s.logStrategyError("upsert", key, err)
		writeDomainError(w, err)
		return
	}

	s.logger.Info("strategy saved", "key", key)
	writeJSON(w, http.StatusOK, strategy.Entry{
		Key:        key,
		Active:     key == s.strategies.ActiveName(),
		Definition: def,
	})
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.strategies.Remove(r.Context(), key); err != nil {
		s.logStrategyError("remove", key, err)
		writeDomainError(w, err)
		return
	}
	s.logger.Info("strategy removed", "key", key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateStrategy(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.strategies.SetActive(r.Context(), key); err != nil {
		s.logStrategyError("activate", key, err)
		writeDomainError(w, err)
		return
	}
	s.logger.Info("strategy activated", "key", key)
	writeJSON(w, http.StatusOK, map[string]string{"active": key})
}

func (s *Server) handleReloadStrategies(w http.ResponseWriter, r *http.Request) {
	if err := s.strategies.Load(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StrategyListResponse{
		Active:     s.strategies.ActiveName(),
		Strategies: s.strategies.List(),
	})
}

func (s *Server) logStrategyError(op, key string, err error) {
	if strategy.IsClientError(err) {
		s.logger.Debug("strategy request rejected", "op", op, "key", key, "error", err)
		return
	}
	s.logger.Error("strategy request failed", "op", op, "key", key, "error", err)
}

// asInvalidBody classifies body decode errors. Validation errors raised by
// Definition decoding pass through; malformed JSON becomes a validation error.
func asInvalidBody(err error) error {
	return &bodyError{err: err}
}

type bodyError struct{ err error }

func (e *bodyError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *bodyError) Unwrap() []error { return []error{strategy.ErrInvalidDefinition, e.err} }
