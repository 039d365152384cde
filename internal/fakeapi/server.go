// Package fakeapi is an in-memory stand-in for the CRM backend and its
// identity provider. Tests drive it through httptest; `crmx dev-backend`
// serves it on a real port.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
)

// Envelope is the wrapped response shape some endpoints use.
type Envelope struct {
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Account is an identity-provider login.
type Account struct {
	Email    string
	Password string
	User     model.User
}

// Server holds the backend state. All methods are safe for concurrent use.
type Server struct {
	mu     sync.Mutex
	router *mux.Router
	paths  gateway.Paths

	collections map[model.Tab][]model.Record
	calls       map[string][]model.CallRecord
	messages    map[string][]model.Message
	attachments []model.Attachment
	accounts    map[string]Account
	sessions    map[string]model.User

	enveloped   map[model.Tab]bool
	latency     map[model.Tab]time.Duration
	failures    map[model.Tab]int
	softFailure map[model.Tab]string
	requireAuth bool
	tokenTTL    time.Duration

	listCalls   map[model.Tab]int
	deletes     []string
	assignments []gateway.AssignRequest
	templates   []gateway.TemplateRequest
	nextID      int
}

// New returns an empty backend routed on gateway.DefaultPaths.
func New() *Server {
	s := &Server{
		router:      mux.NewRouter(),
		paths:       gateway.DefaultPaths(),
		collections: map[model.Tab][]model.Record{},
		calls:       map[string][]model.CallRecord{},
		messages:    map[string][]model.Message{},
		accounts:    map[string]Account{},
		sessions:    map[string]model.User{},
		enveloped:   map[model.Tab]bool{},
		latency:     map[model.Tab]time.Duration{},
		failures:    map[model.Tab]int{},
		softFailure: map[model.Tab]string{},
		listCalls:   map[model.Tab]int{},
		tokenTTL:    time.Hour,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/v1/accounts:signInWithPassword", s.handleSignIn).Methods(http.MethodPost)
	s.router.HandleFunc(s.paths.Verify, s.handleVerify).Methods(http.MethodPost)

	api := s.router.NewRoute().Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc(s.paths.Assign, s.handleAssign).Methods(http.MethodPost)
	api.HandleFunc(s.paths.Calls, s.handleCalls).Methods(http.MethodGet)
	api.HandleFunc(s.paths.Messages, s.handleListMessages).Methods(http.MethodGet)
	api.HandleFunc(s.paths.Messages, s.handleSendMessage).Methods(http.MethodPost)
	api.HandleFunc(s.paths.SendTemplate, s.handleTemplate).Methods(http.MethodPost)
	api.HandleFunc(s.paths.Upload, s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc(s.paths.Attachments, s.handleRegisterAttachment).Methods(http.MethodPost)
	for tab, path := range s.paths.Collections {
		api.HandleFunc(path, s.handleList(tab)).Methods(http.MethodGet)
		api.HandleFunc(path, s.handleCreate(tab)).Methods(http.MethodPost)
		api.HandleFunc(path+"/{id}", s.handleGet(tab)).Methods(http.MethodGet)
		api.HandleFunc(path+"/{id}", s.handleUpdate(tab)).Methods(http.MethodPatch, http.MethodPut)
		api.HandleFunc(path+"/{id}", s.handleDelete(tab)).Methods(http.MethodDelete)
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		required := s.requireAuth
		_, known := s.sessions[bearer(r)]
		s.mu.Unlock()
		if required && !known {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid session"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- configuration ---

// RequireAuth makes every data endpoint demand a verified bearer token.
func (s *Server) RequireAuth(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireAuth = on
}

// SetEnveloped selects the response shape of a collection's list endpoint.
func (s *Server) SetEnveloped(tab model.Tab, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enveloped[tab] = on
}

// SetTokenTTL sets the lifetime written into the exp claim of issued tokens.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

// SetLatency delays list responses for tab.
func (s *Server) SetLatency(tab model.Tab, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[tab] = d
}

// FailList makes list requests for tab answer with status until cleared
// with status 0.
func (s *Server) FailList(tab model.Tab, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[tab] = status
}

// SoftFailList makes list requests for tab answer 200 with result=false.
func (s *Server) SoftFailList(tab model.Tab, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.softFailure[tab] = message
	s.enveloped[tab] = true
}

// AddAccount registers an identity-provider login.
func (s *Server) AddAccount(acct Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.Email] = acct
}

// AddSession registers a token the backend will accept.
func (s *Server) AddSession(token string, user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = user
}

// Seed appends records to a collection.
func (s *Server) Seed(tab model.Tab, recs ...model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[tab] = append(s.collections[tab], recs...)
}

// SeedCalls appends call records for a record id.
func (s *Server) SeedCalls(recordID string, calls ...model.CallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[recordID] = append(s.calls[recordID], calls...)
}

// AddInbound appends a message from the other party to a phone's thread.
func (s *Server) AddInbound(phone, body string) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := model.Message{
		ID:        s.newID("msg"),
		From:      phone,
		Body:      body,
		SentAt:    time.Now().UTC(),
		Direction: model.Inbound,
	}
	s.messages[phone] = append(s.messages[phone], msg)
	return msg
}

// --- inspection ---

// Records returns a copy of a collection.
func (s *Server) Records(tab model.Tab) []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.collections[tab])
}

// ListCalls counts list requests served for tab.
func (s *Server) ListCalls(tab model.Tab) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls[tab]
}

// Deletes returns the ids deleted so far, in order.
func (s *Server) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deletes)
}

// Assignments returns every assign request received.
func (s *Server) Assignments() []gateway.AssignRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.assignments)
}

// Templates returns every template send received.
func (s *Server) Templates() []gateway.TemplateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.templates)
}

// Thread returns the stored messages for a phone.
func (s *Server) Thread(phone string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages[phone])
}

// Attachments returns every stored attachment.
func (s *Server) Attachments() []model.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.attachments)
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%04d", prefix, s.nextID)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
