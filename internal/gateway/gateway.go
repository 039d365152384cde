// Package gateway is the thin client over the CRM backend's REST endpoints.
// Every method maps to one endpoint; callers never touch raw HTTP.
package gateway

import (
	"context"
	"io"

	"github.com/oakwood-commons/crmx/internal/model"
)

// Gateway is the full set of backend calls the client makes.
type Gateway interface {
	List(ctx context.Context, tab model.Tab) ([]model.Record, error)
	Get(ctx context.Context, tab model.Tab, id string) (model.Record, error)
	Create(ctx context.Context, tab model.Tab, fields map[string]any) (model.Record, error)
	Update(ctx context.Context, tab model.Tab, id string, fields map[string]any) (model.Record, error)
	Delete(ctx context.Context, tab model.Tab, id string) error
	Assign(ctx context.Context, req AssignRequest) error

	Calls(ctx context.Context, recordID string) ([]model.CallRecord, error)
	Messages(ctx context.Context, phone string) ([]model.Message, error)
	SendMessage(ctx context.Context, msg model.Message) (model.Message, error)
	SendTemplate(ctx context.Context, req TemplateRequest) error

	VerifySession(ctx context.Context, token string) (model.User, error)

	Upload(ctx context.Context, req UploadRequest) (model.Attachment, error)
	RegisterAttachment(ctx context.Context, att model.Attachment) (model.Attachment, error)
}

// AssignRequest hands the selected records to another user.
type AssignRequest struct {
	Tab        model.Tab `json:"tab"`
	ActingUser string    `json:"userId"`
	Target     string    `json:"targetId"`
	IDs        []string  `json:"ids"`
}

// TemplateRequest sends a pre-approved WhatsApp template.
type TemplateRequest struct {
	To       string            `json:"to"`
	From     string            `json:"from,omitempty"`
	Template string            `json:"template"`
	Body     string            `json:"body"`
	Params   map[string]string `json:"params,omitempty"`
}

// UploadRequest streams a file to the backend's upload endpoint.
type UploadRequest struct {
	Tab      model.Tab
	RecordID string
	Name     string
	Content  io.Reader
}

// Paths maps each call to its endpoint path relative to the base URL.
type Paths struct {
	Collections  map[model.Tab]string `yaml:"collections" json:"collections"`
	Assign       string               `yaml:"assign" json:"assign"`
	Calls        string               `yaml:"calls" json:"calls"`
	Messages     string               `yaml:"messages" json:"messages"`
	SendTemplate string               `yaml:"send_template" json:"send_template"`
	Verify       string               `yaml:"verify" json:"verify"`
	Upload       string               `yaml:"upload" json:"upload"`
	Attachments  string               `yaml:"attachments" json:"attachments"`
}

// DefaultPaths are the endpoints of the stock backend.
func DefaultPaths() Paths {
	return Paths{
		Collections: map[model.Tab]string{
			model.TabLead:        "/leads",
			model.TabProspect:    "/prospectos",
			model.TabBuyer:       "/compradores",
			model.TabClient:      "/clients",
			model.TabOffice:      "/oficinas",
			model.TabUser:        "/users",
			model.TabCoordinator: "/coordinadores",
			model.TabSeller:      "/vendedores",
		},
		Assign:       "/assign",
		Calls:        "/calls",
		Messages:     "/messages",
		SendTemplate: "/whatsapp/templates",
		Verify:       "/auth/verify",
		Upload:       "/files",
		Attachments:  "/attachments",
	}
}

// merged fills unset entries of p from DefaultPaths.
func (p Paths) merged() Paths {
	d := DefaultPaths()
	out := d
	for tab, path := range p.Collections {
		if path != "" {
			out.Collections[tab] = path
		}
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.Assign, p.Assign)
	set(&out.Calls, p.Calls)
	set(&out.Messages, p.Messages)
	set(&out.SendTemplate, p.SendTemplate)
	set(&out.Verify, p.Verify)
	set(&out.Upload, p.Upload)
	set(&out.Attachments, p.Attachments)
	return out
}
