// Package service exposes a specialist agent over HTTP so the router
// can reach it through the networked sender. One Service wraps one
// agent; the process endpoint speaks raw envelopes.
package service

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
)

type Config struct {
	Addr string `split_words:"true" default:":8001"`
}

type Service struct {
	agent   contractx.Agent
	handler http.Handler
}

func New(agent contractx.Agent) (*Service, error) {
	if agent == nil {
		return nil, errors.New("agent is required")
	}
	s := &Service{agent: agent}

	r := mux.NewRouter()
	r.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/agent-card", s.handleCard).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	s.handler = c.Handler(r)
	return s, nil
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleProcess decodes one envelope, lets the agent handle it, and
// writes the reply envelope back. Agent-level failures ride inside the
// reply content; only a broken request or handler error surfaces as an
// HTTP error.
func (s *Service) handleProcess(w http.ResponseWriter, r *http.Request) {
	var msg contractx.Envelope
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := s.agent.Handle(r.Context(), msg)
	if err != nil {
		log.Error().Err(err).Str("agent", string(s.agent.Type())).Msg("agent handle failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"agent":  string(s.agent.Type()),
	})
}

func (s *Service) handleCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Card())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
