package model

import "time"

// Office is the office context a user works under.
type Office struct {
	ID    string `json:"_id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone" yaml:"phone"`
	City  string `json:"city" yaml:"city"`
	State string `json:"state" yaml:"state"`
}

// IsZero reports whether no office has been chosen.
func (o Office) IsZero() bool { return o.ID == "" }

// OfficeFromRecord reads an office out of a generic record.
func OfficeFromRecord(r Record) Office {
	return Office{
		ID:    r.ID,
		Name:  r.Name(),
		Phone: r.Phone(),
		City:  r.City(),
		State: r.State(),
	}
}

// User is the identity the backend returns when a session token is verified.
type User struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Direction tells whether a chat message was sent or received.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Message is one chat message. Key is the idempotency key the client
// generates before sending; the backend echoes it back.
type Message struct {
	ID        string    `json:"_id,omitempty"`
	Key       string    `json:"clientKey,omitempty"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sentAt"`
	Direction Direction `json:"direction"`
	Pending   bool      `json:"-"`
	Failed    bool      `json:"-"`
}

// MergeKey identifies the message across polls.
func (m Message) MergeKey() string {
	if m.Key != "" {
		return "key:" + m.Key
	}
	return "id:" + m.ID
}

// CallRecord is one call or activity logged against a record.
type CallRecord struct {
	ID       string    `json:"_id"`
	RecordID string    `json:"recordId"`
	At       time.Time `json:"date"`
	Kind     string    `json:"kind"`
	Summary  string    `json:"summary"`
	Duration int       `json:"duration"` // seconds
	Agent    string    `json:"agent"`
}

// Attachment is a file stored against a record.
type Attachment struct {
	ID       string `json:"_id,omitempty"`
	Tab      Tab    `json:"tab"`
	RecordID string `json:"recordId"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	URL      string `json:"url,omitempty"`
	Key      string `json:"key,omitempty"`
}
