// Package authagenttest provides an in-process fake of the auth-agent
// authorization service for tests.
package authagenttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/ggoodman/mcp-authagent-go/authagent"
	"github.com/ggoodman/mcp-authagent-go/internal/wellknown"
)

// Call records one request received by the fake server.
type Call struct {
	Method        string
	Path          string
	Authorization string
	Body          map[string]any
}

// Server is a programmable authorization service. Tokens not registered with
// SetToken introspect as inactive.
type Server struct {
	*httptest.Server

	mu               sync.Mutex
	tokens           map[string]authagent.TokenStatus
	introspectStatus int
	revokeStatus     int
	delay            time.Duration
	metadata         map[string]authagent.ResourceMetadata
	calls            []Call
}

// NewServer starts a fake authorization service. Call Close when done.
func NewServer() *Server {
	s := &Server{
		tokens:           map[string]authagent.TokenStatus{},
		introspectStatus: http.StatusOK,
		revokeStatus:     http.StatusOK,
		metadata:         map[string]authagent.ResourceMetadata{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /introspect", s.handleIntrospect)
	mux.HandleFunc("POST /revoke", s.handleRevoke)
	mux.HandleFunc("GET "+wellknown.ProtectedResourcePath, s.handleMetadata)
	mux.HandleFunc("GET "+wellknown.ProtectedResourcePath+"/{serverID}", s.handleMetadata)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetToken registers the introspection result for tok.
func (s *Server) SetToken(tok string, st authagent.TokenStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok] = st
}

// SetIntrospectStatus forces the HTTP status of every introspection response.
func (s *Server) SetIntrospectStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.introspectStatus = code
}

// SetRevokeStatus forces the HTTP status of every revocation response.
func (s *Server) SetRevokeStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeStatus = code
}

// SetDelay makes every handler sleep before answering. The sleep ends early
// if the client goes away.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetMetadata registers the metadata document for serverID ("" for the
// service-wide document).
func (s *Server) SetMetadata(serverID string, md authagent.ResourceMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[serverID] = md
}

// Calls returns a copy of the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns the number of requests received for path.
func (s *Server) CallCount(path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(r *http.Request) Call {
	c := Call{Method: r.Method, Path: r.URL.Path, Authorization: r.Header.Get("Authorization")}
	if r.Body != nil && r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&c.Body)
	}
	s.mu.Lock()
	s.calls = append(s.calls, c)
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
	}
	return c
}

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	c := s.record(r)
	tok, _ := c.Body["token"].(string)

	s.mu.Lock()
	code := s.introspectStatus
	st, ok := s.tokens[tok]
	s.mu.Unlock()

	if code != http.StatusOK {
		writeJSON(w, code, map[string]string{"error": "invalid_request"})
		return
	}
	if !ok {
		st = authagent.TokenStatus{Active: false}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	c := s.record(r)

	s.mu.Lock()
	code := s.revokeStatus
	if tok, _ := c.Body["token"].(string); tok != "" && code == http.StatusOK {
		delete(s.tokens, tok)
	}
	s.mu.Unlock()

	writeJSON(w, code, map[string]any{})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	serverID := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, wellknown.ProtectedResourcePath), "/")

	s.mu.Lock()
	md, ok := s.metadata[serverID]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
