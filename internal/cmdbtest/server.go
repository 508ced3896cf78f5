// Package cmdbtest provides an in-memory catalog speaking the read API, the
// write API and the OIDC token endpoint, for tests.
package cmdbtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// Credentials accepted by the token endpoint.
const (
	ClientID     = "cmdbsync"
	ClientSecret = "client-secret"
	Username     = "robot"
	Password     = "hunter2"
)

// Image is one stored image document.
type Image struct {
	ID        string
	Rev       string
	ServiceID string
	Data      map[string]any
}

// Server is a fake catalog. Read API is served under /read, write API under
// /write and the token endpoint at /token.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	services map[string][]string // site name to service ids
	images   map[string]*Image
	seq      int
	tokens   int
	calls    map[string]int
	failNext map[string]int
}

// New starts a fake catalog that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		services: map[string][]string{},
		images:   map[string]*Image{},
		calls:    map[string]int{},
		failNext: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /read/service/filters/sitename/{site}", s.serviceBySite)
	mux.HandleFunc("GET /read/service/id/{id}/has_many/images", s.serviceImages)
	mux.HandleFunc("GET /read/image/filters/service/{id}", s.imagesByService)
	mux.HandleFunc("GET /read/image/id/{id}", s.image)
	mux.HandleFunc("POST /write", s.create)
	mux.HandleFunc("DELETE /write/{id}", s.delete)
	mux.HandleFunc("POST /token", s.token)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// ReadEndpoint returns the read API base URL.
func (s *Server) ReadEndpoint() string { return s.URL + "/read" }

// WriteEndpoint returns the write API base URL.
func (s *Server) WriteEndpoint() string { return s.URL + "/write" }

// TokenEndpoint returns the token endpoint URL.
func (s *Server) TokenEndpoint() string { return s.URL + "/token" }

// AddService registers a service for site.
func (s *Server) AddService(site, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[site] = append(s.services[site], id)
}

// Put stores an image for serviceID and returns its catalog id.
func (s *Server) Put(serviceID string, data map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(serviceID, data).ID
}

// FailNext makes the next n calls of kind fail with a server error. Kinds
// are the ones counted by Calls.
func (s *Server) FailNext(kind string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[kind] = n
}

// Calls returns how often kind was called: "resolve", "list", "scan",
// "fetch", "create", "delete" or "token".
func (s *Server) Calls(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

// Images returns the stored images of serviceID whose image_id is
// logicalID, or all of them when logicalID is empty, sorted by catalog id.
func (s *Server) Images(serviceID, logicalID string) []Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Image
	for _, img := range s.sorted() {
		if img.ServiceID != serviceID {
			continue
		}
		if logicalID != "" && img.Data["image_id"] != logicalID {
			continue
		}
		out = append(out, *img)
	}
	return out
}

func (s *Server) put(serviceID string, data map[string]any) *Image {
	s.seq++
	img := &Image{
		ID:        fmt.Sprintf("doc-%03d", s.seq),
		Rev:       fmt.Sprintf("1-%03d", s.seq),
		ServiceID: serviceID,
		Data:      data,
	}
	s.images[img.ID] = img
	return img
}

func (s *Server) sorted() []*Image {
	out := make([]*Image, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// begin counts a call and reports whether it must fail.
func (s *Server) begin(w http.ResponseWriter, kind string) bool {
	s.calls[kind]++
	if s.failNext[kind] > 0 {
		s.failNext[kind]--
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
		return false
	}
	return true
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer token-") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return false
	}
	return true
}

func (s *Server) serviceBySite(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "resolve") {
		return
	}
	rows := []map[string]any{}
	for _, id := range s.services[r.PathValue("site")] {
		rows = append(rows, map[string]any{"id": id})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) serviceImages(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "list") {
		return
	}
	withDocs := r.URL.Query().Get("include_docs") == "true"
	rows := []map[string]any{}
	for _, img := range s.sorted() {
		if img.ServiceID != r.PathValue("id") {
			continue
		}
		row := map[string]any{"id": img.ID}
		if withDocs {
			row["doc"] = document(img)
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) imagesByService(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "scan") {
		return
	}
	rows := []map[string]any{}
	for _, img := range s.sorted() {
		if img.ServiceID != r.PathValue("id") {
			continue
		}
		rows = append(rows, map[string]any{
			"id":    img.ID,
			"key":   img.ServiceID,
			"value": map[string]any{"image_id": img.Data["image_id"], "image_name": img.Data["image_name"]},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, "fetch") {
		return
	}
	img, ok := s.images[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "reason": "deleted"})
		return
	}
	writeJSON(w, http.StatusOK, document(img))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(w, r) || !s.begin(w, "create") {
		return
	}
	var body struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Type != "image" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request"})
		return
	}
	serviceID, _ := body.Data["service"].(string)
	img := s.put(serviceID, body.Data)
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": img.ID, "rev": img.Rev})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(w, r) || !s.begin(w, "delete") {
		return
	}
	img, ok := s.images[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	if r.URL.Query().Get("rev") != img.Rev {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict", "reason": "Document update conflict."})
		return
	}
	delete(s.images, img.ID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": img.ID})
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["token"]++
	if err := r.ParseForm(); err != nil ||
		r.PostForm.Get("grant_type") != "password" ||
		r.PostForm.Get("client_id") != ClientID ||
		r.PostForm.Get("client_secret") != ClientSecret ||
		r.PostForm.Get("username") != Username ||
		r.PostForm.Get("password") != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_grant"})
		return
	}
	s.tokens++
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": fmt.Sprintf("token-%d", s.tokens),
		"token_type":   "Bearer",
		"expires_in":   300,
	})
}

func document(img *Image) map[string]any {
	return map[string]any{"_id": img.ID, "_rev": img.Rev, "type": "image", "data": img.Data}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
