// Package webextest provides an in-memory double of the Webex directory and
// recording-report APIs for tests.
package webextest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Server is an httptest-backed Webex API double. Users are raw SCIM
// resources (maps) so tests can shape payloads freely; PATCH applies
// replace-operation values in place.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      []map[string]any
	pageSize   int
	listCalls  int
	patchCalls []string
	summaries  []map[string]any
	details    map[string][]map[string]any
}

// New starts a fake Webex API serving the given SCIM user resources.
// Callers own shutdown via Close.
func New(users []map[string]any) *Server {
	s := &Server{
		users:    users,
		pageSize: 2,
		details:  map[string][]map[string]any{},
	}

	r := chi.NewRouter()
	r.Get("/scim/{orgID}/v2/Users", s.listUsers)
	r.Get("/scim/{orgID}/v2/Users/{userID}", s.getUser)
	r.Patch("/scim/{orgID}/v2/Users/{userID}", s.patchUser)
	r.Get("/recordingReport/accessSummary", s.accessSummary)
	r.Get("/recordingReport/accessDetail", s.accessDetail)

	s.Server = httptest.NewServer(r)
	return s
}

// SetPageSize controls the default itemsPerPage for list responses.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// SetRecordings installs recording-report fixtures: the summary rows and the
// per-recording access details.
func (s *Server) SetRecordings(summaries []map[string]any, details map[string][]map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = summaries
	s.details = details
}

// ListCalls reports how many list requests the server has seen.
func (s *Server) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// PatchCalls returns the user ids patched, in request order.
func (s *Server) PatchCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.patchCalls...)
}

// User returns the stored resource with the given id, or nil.
func (s *Server) User(id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(id)
}

func (s *Server) findUser(id string) map[string]any {
	for _, u := range s.users {
		if u["id"] == id {
			return u
		}
	}
	return nil
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	start := 1
	if v := r.URL.Query().Get("startIndex"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			start = n
		}
	}
	count := s.pageSize
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	var page []map[string]any
	if start-1 < len(s.users) {
		end := start - 1 + count
		if end > len(s.users) {
			end = len(s.users)
		}
		page = s.users[start-1 : end]
	}

	writeJSON(w, map[string]any{
		"totalResults": len(s.users),
		"itemsPerPage": len(page),
		"startIndex":   start,
		"Resources":    page,
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUser(chi.URLParam(r, "userID"))
	if u == nil {
		// Not-found is an empty successful body, matching the identity
		// service's behavior for single-resource fetches.
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, u)
}

func (s *Server) patchUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "userID")
	s.patchCalls = append(s.patchCalls, id)

	u := s.findUser(id)
	if u == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	var patch struct {
		Schemas    []string `json:"schemas"`
		Operations []struct {
			Op    string         `json:"op"`
			Value map[string]any `json:"value"`
		} `json:"Operations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, fmt.Sprintf(`{"message":%q}`, err.Error()), http.StatusBadRequest)
		return
	}
	if len(patch.Schemas) == 0 || len(patch.Operations) == 0 {
		http.Error(w, `{"message":"invalid patch"}`, http.StatusBadRequest)
		return
	}
	for _, op := range patch.Operations {
		if op.Op != "replace" {
			continue
		}
		for k, v := range op.Value {
			u[k] = v
		}
	}
	writeJSON(w, u)
}

func (s *Server) accessSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, map[string]any{"items": s.summaries})
}

func (s *Server) accessDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.details[r.URL.Query().Get("recordingId")]
	writeJSON(w, map[string]any{"items": items})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
