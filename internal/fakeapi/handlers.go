package fakeapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
)

func (s *Server) handleList(tab model.Tab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.listCalls[tab]++
		delay := s.latency[tab]
		status := s.failures[tab]
		soft, softFail := s.softFailure[tab]
		enveloped := s.enveloped[tab]
		recs := append([]model.Record{}, s.collections[tab]...)
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s unavailable", tab)})
			return
		}
		if softFail {
			writeJSON(w, http.StatusOK, Envelope{Result: false, Error: soft})
			return
		}
		if enveloped {
			writeJSON(w, http.StatusOK, Envelope{Result: true, Data: recs})
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func (s *Server) handleGet(tab model.Tab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, rec := range s.collections[tab] {
			if rec.ID == id {
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (s *Server) handleCreate(tab model.Tab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		delete(fields, "password")
		s.mu.Lock()
		rec := model.NewRecord(s.newID(string(tab)), fields)
		s.collections[tab] = append(s.collections[tab], rec)
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, Envelope{Result: true, Data: rec})
	}
}

func (s *Server) handleUpdate(tab model.Tab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, rec := range s.collections[tab] {
			if rec.ID != id {
				continue
			}
			for k, v := range fields {
				rec.Fields[k] = v
			}
			s.collections[tab][i] = rec
			writeJSON(w, http.StatusOK, rec)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (s *Server) handleDelete(tab model.Tab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		s.mu.Lock()
		defer s.mu.Unlock()
		recs := s.collections[tab]
		for i, rec := range recs {
			if rec.ID == id {
				s.collections[tab] = append(recs[:i:i], recs[i+1:]...)
				s.deletes = append(s.deletes, id)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req gateway.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Target == "" || len(req.IDs) == 0 {
		writeJSON(w, http.StatusOK, Envelope{Result: false, Error: "targetId and ids are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, req)
	recs := s.collections[req.Tab]
	for i := range recs {
		for _, id := range req.IDs {
			if recs[i].ID == id {
				recs[i].Fields["assignedTo"] = req.Target
			}
		}
	}
	writeJSON(w, http.StatusOK, Envelope{Result: true})
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("recordId")
	s.mu.Lock()
	calls := append([]model.CallRecord{}, s.calls[id]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, Envelope{Result: true, Data: calls})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	s.mu.Lock()
	msgs := append([]model.Message{}, s.messages[phone]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var msg model.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil || strings.TrimSpace(msg.To) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recipient is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// A resend with a known key returns the stored copy.
	if msg.Key != "" {
		for _, existing := range s.messages[msg.To] {
			if existing.Key == msg.Key {
				writeJSON(w, http.StatusOK, existing)
				return
			}
		}
	}
	msg.ID = s.newID("msg")
	msg.Direction = model.Outbound
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	s.messages[msg.To] = append(s.messages[msg.To], msg)
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	var req gateway.TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" || req.Template == "" {
		writeJSON(w, http.StatusOK, Envelope{Result: false, Error: "to and template are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = append(s.templates, req)
	s.messages[req.To] = append(s.messages[req.To], model.Message{
		ID:        s.newID("msg"),
		Key:       uuid.NewString(),
		From:      req.From,
		To:        req.To,
		Body:      req.Body,
		SentAt:    time.Now().UTC(),
		Direction: model.Outbound,
	})
	writeJSON(w, http.StatusOK, Envelope{Result: true})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()
	size, _ := io.Copy(io.Discard, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	att := model.Attachment{
		ID:       s.newID("file"),
		Tab:      model.Tab(r.FormValue("tab")),
		RecordID: r.FormValue("recordId"),
		Name:     header.Filename,
		Size:     size,
	}
	att.URL = "/files/" + att.ID
	s.attachments = append(s.attachments, att)
	writeJSON(w, http.StatusCreated, Envelope{Result: true, Data: att})
}

func (s *Server) handleRegisterAttachment(w http.ResponseWriter, r *http.Request) {
	var att model.Attachment
	if err := json.NewDecoder(r.Body).Decode(&att); err != nil || att.RecordID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recordId is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	att.ID = s.newID("file")
	s.attachments = append(s.attachments, att)
	writeJSON(w, http.StatusCreated, att)
}

// handleSignIn mimics the identity provider's password grant.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "INVALID_BODY"}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[req.Email]
	if !ok || acct.Password != req.Password {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "INVALID_LOGIN_CREDENTIALS"}})
		return
	}
	token := issueToken(acct, time.Now().Add(s.tokenTTL))
	s.sessions[token] = acct.User
	writeJSON(w, http.StatusOK, map[string]string{
		"idToken": token,
		"localId": acct.User.ID,
		"email":   acct.Email,
	})
}

// issueToken builds an unsigned JWT; only the claims matter to clients.
func issueToken(acct Account, exp time.Time) string {
	enc := func(v any) string {
		b, _ := json.Marshal(v)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := enc(map[string]string{"alg": "none", "typ": "JWT"})
	payload := enc(map[string]any{
		"sub":   acct.User.ID,
		"email": acct.Email,
		"exp":   exp.Unix(),
		"jti":   uuid.NewString(),
	})
	return header + "." + payload + "." + base64.RawURLEncoding.EncodeToString([]byte(uuid.NewString()))
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user, ok := s.sessions[bearer(r)]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid session"})
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Result: true, Data: user})
}
