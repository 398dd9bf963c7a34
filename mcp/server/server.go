// Package server hosts the tool-call endpoint: JSON-RPC dispatch over
// POST /mcp, session issuance via the Mcp-Session-Id header, a
// best-effort SSE replay stream on GET /mcp, and direct tool endpoints
// for testing.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/supawit-m/deskmesh/mcp"
	"github.com/supawit-m/deskmesh/store"
)

const (
	serverName    = "deskmesh-tools"
	serverVersion = "1.0.0"

	// Abandoned sessions keep their queue bounded; replay is
	// best-effort and correctness never depends on it.
	maxQueuedPerSession = 64
)

type Config struct {
	Addr string `split_words:"true" default:":8003"`
}

type session struct {
	id        string
	createdAt time.Time
	queue     []mcp.Response
}

type Server struct {
	store   store.Store
	handler http.Handler

	mu       sync.Mutex
	sessions map[string]*session
}

func New(st store.Store) *Server {
	s := &Server{
		store:    st,
		sessions: make(map[string]*session),
	}

	r := mux.NewRouter()
	r.HandleFunc(mcp.Endpoint, s.handleRPC).Methods(http.MethodPost)
	r.HandleFunc(mcp.Endpoint, s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/tools/list", s.handleDirectList).Methods(http.MethodGet)
	r.HandleFunc("/tools/call", s.handleDirectCall).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{mcp.SessionHeader},
		AllowCredentials: true,
	})
	s.handler = c.Handler(r)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ensureSession issues a new session id when the request carries none,
// otherwise echoes the incoming one.
func (s *Server) ensureSession(incoming string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := incoming
	if id == "" {
		id = uuid.NewString()
	}
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{id: id, createdAt: time.Now().UTC()}
		s.sessions[id] = sess
	}
	return sess
}

func (s *Server) enqueue(sess *session, resp mcp.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(sess.queue) >= maxQueuedPerSession {
		sess.queue = sess.queue[1:]
	}
	sess.queue = append(sess.queue, resp)
}

func (s *Server) dequeue(sessionID string) (mcp.Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || len(sess.queue) == 0 {
		return mcp.Response{}, false
	}
	head := sess.queue[0]
	sess.queue = sess.queue[1:]
	return head, true
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	sess := s.ensureSession(r.Header.Get(mcp.SessionHeader))

	var req mcp.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp := errorResponse(0, mcp.CodeInternalError, fmt.Sprintf("decode request: %v", err))
		s.enqueue(sess, resp)
		writeRPC(w, sess.id, http.StatusInternalServerError, resp)
		return
	}

	// Tool and method failures stay in-band as JSON-RPC error members;
	// only an undecodable body downgrades the HTTP status.
	resp := s.dispatch(r, req)
	s.enqueue(sess, resp)
	writeRPC(w, sess.id, http.StatusOK, resp)
}

func (s *Server) dispatch(r *http.Request, req mcp.Request) mcp.Response {
	switch req.Method {
	case mcp.MethodInitialize:
		return resultResponse(req.ID, mcp.InitializeResult{
			ProtocolVersion: mcp.ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      mcp.ServerInfo{Name: serverName, Version: serverVersion},
		})

	case mcp.MethodToolsList:
		return resultResponse(req.ID, mcp.ToolsListResult{Tools: toolCatalog()})

	case mcp.MethodToolsCall:
		var params mcp.CallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.CodeInternalError, fmt.Sprintf("decode params: %v", err))
		}
		result, err := s.callTool(r.Context(), params.Name, params.Arguments)
		if err != nil {
			return errorResponse(req.ID, mcp.CodeInternalError, err.Error())
		}
		text, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errorResponse(req.ID, mcp.CodeInternalError, fmt.Sprintf("encode result: %v", err))
		}
		return resultResponse(req.ID, mcp.CallResult{
			Content: []mcp.ContentItem{{Type: "text", Text: string(text)}},
		})

	default:
		return errorResponse(req.ID, mcp.CodeMethodNotFound, "Method not found: "+req.Method)
	}
}

// handleStream replays a session's queued responses as SSE events,
// with keepalive comments while the queue is empty.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess := s.ensureSession(r.Header.Get(mcp.SessionHeader))

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set(mcp.SessionHeader, sess.id)
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if resp, ok := s.dequeue(sess.id); ok {
			payload, err := json.Marshal(resp)
			if err != nil {
				log.Warn().Err(err).Msg("marshal queued response")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
		} else {
			fmt.Fprint(w, ": keepalive\n\n")
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleDirectList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, mcp.ToolsListResult{Tools: toolCatalog()})
}

func (s *Server) handleDirectCall(w http.ResponseWriter, r *http.Request) {
	var params mcp.CallParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := s.callTool(r.Context(), params.Name, params.Arguments)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "tool-server"})
}

func resultResponse(id int64, result any) mcp.Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, mcp.CodeInternalError, fmt.Sprintf("encode result: %v", err))
	}
	return mcp.Response{JSONRPC: mcp.Version, ID: id, Result: raw}
}

func errorResponse(id int64, code int, message string) mcp.Response {
	return mcp.Response{
		JSONRPC: mcp.Version,
		ID:      id,
		Error:   &mcp.ErrorObject{Code: code, Message: message},
	}
}

func writeRPC(w http.ResponseWriter, sessionID string, status int, resp mcp.Response) {
	w.Header().Set(mcp.SessionHeader, sessionID)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
