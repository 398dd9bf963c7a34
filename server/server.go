// Package server is the public coordinator API: it accepts customer
// queries, runs them through the router, and answers either as one
// JSON document or as an SSE stream of progress events.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
	routerx "github.com/supawit-m/deskmesh/agent/router"
)

const serviceName = "deskmesh"

type Config struct {
	Addr string `split_words:"true" default:":8000"`
}

type Server struct {
	router  *routerx.Router
	cards   []contractx.Card
	handler http.Handler
}

// New wires the coordinator surface. The cards are the A2A descriptors
// of every agent reachable behind the router, served verbatim on
// /agents.
func New(rt *routerx.Router, cards ...contractx.Card) (*Server, error) {
	if rt == nil {
		return nil, fmt.Errorf("router is required")
	}
	s := &Server{router: rt, cards: cards}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/query", s.handleQueryStream).Methods(http.MethodPost)
	r.HandleFunc("/query/sync", s.handleQuerySync).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/agents", s.handleAgents).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	s.handler = c.Handler(r)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type queryRequest struct {
	Query string `json:"query"`
}

func decodeQuery(r *http.Request) (string, error) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", err
	}
	if req.Query == "" {
		return "", fmt.Errorf("Missing 'query' field")
	}
	return req.Query, nil
}

// handleQueryStream runs the query and emits progress as SSE events:
// a processing notice, the coordination log, the customer record when
// one was touched, the response text, and a completion marker.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	query, err := decodeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	emit := func(v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			log.Warn().Err(err).Msg("marshal stream event")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	emit(map[string]any{"status": "processing", "message": "Analyzing query..."})

	result := s.router.ProcessQuery(r.Context(), query)

	if len(result.CoordinationLog) > 0 {
		emit(map[string]any{"type": "coordination", "log": result.CoordinationLog})
	}
	if result.CustomerInfo != nil {
		emit(map[string]any{"type": "customer_info", "data": result.CustomerInfo})
	}
	emit(map[string]any{"type": "response", "data": result.Response})
	emit(map[string]any{
		"status":   "complete",
		"success":  result.Success,
		"scenario": result.Scenario,
	})
}

func (s *Server) handleQuerySync(w http.ResponseWriter, r *http.Request) {
	query, err := decodeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.router.ProcessQuery(r.Context(), query)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":  query,
		"result": result,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": "1.0",
		"endpoints": map[string]string{
			"/query":      "POST - Submit customer query (streaming)",
			"/query/sync": "POST - Submit customer query (synchronous)",
			"/health":     "GET - Health check",
			"/agents":     "GET - List agent cards",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"agents": map[string]string{
			"router":        "active",
			"customer_data": "active",
			"support":       "active",
		},
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	cards := append([]contractx.Card{s.router.Card()}, s.cards...)
	writeJSON(w, http.StatusOK, map[string]any{"agents": cards})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
