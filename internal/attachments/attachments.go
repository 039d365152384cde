// Package attachments stores files against records, either through the
// backend's upload endpoint or directly in an S3-compatible bucket.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
)

// Providers.
const (
	ProviderGateway = "gateway"
	ProviderS3      = "s3"
)

// ErrEmptyName is returned when the file has no usable name.
var ErrEmptyName = errors.New("attachment name is required")

// File is one file to attach.
type File struct {
	Tab         model.Tab
	RecordID    string
	Name        string
	Size        int64
	ContentType string
	Body        io.ReadSeeker
}

func (f File) validate() error {
	if f.RecordID == "" {
		return errors.New("record id is required")
	}
	if cleanName(f.Name) == "" {
		return ErrEmptyName
	}
	if f.Body == nil {
		return errors.New("attachment body is required")
	}
	return nil
}

// Uploader stores a file and returns the attachment the backend knows.
type Uploader interface {
	Upload(ctx context.Context, f File) (model.Attachment, error)
}

// Config selects and configures the provider.
type Config struct {
	Provider string `yaml:"provider" json:"provider"`
	Bucket   string `yaml:"bucket" json:"bucket"`
	Region   string `yaml:"region" json:"region"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// Backend is the slice of the gateway attachments need.
type Backend interface {
	Upload(ctx context.Context, req gateway.UploadRequest) (model.Attachment, error)
	RegisterAttachment(ctx context.Context, att model.Attachment) (model.Attachment, error)
}

// New returns the uploader cfg asks for.
func New(ctx context.Context, cfg Config, backend Backend) (Uploader, error) {
	switch cfg.Provider {
	case "", ProviderGateway:
		return &GatewayUploader{Backend: backend}, nil
	case ProviderS3:
		return NewS3Uploader(ctx, cfg, backend)
	default:
		return nil, fmt.Errorf("unknown attachments provider %q", cfg.Provider)
	}
}

// GatewayUploader posts the file to the backend as multipart form data.
type GatewayUploader struct {
	Backend Backend
}

func (u *GatewayUploader) Upload(ctx context.Context, f File) (model.Attachment, error) {
	if err := f.validate(); err != nil {
		return model.Attachment{}, err
	}
	att, err := u.Backend.Upload(ctx, gateway.UploadRequest{
		Tab:      f.Tab,
		RecordID: f.RecordID,
		Name:     cleanName(f.Name),
		Content:  f.Body,
	})
	if err != nil {
		return model.Attachment{}, fmt.Errorf("uploading %s: %w", f.Name, err)
	}
	return att, nil
}

// ObjectKey is where a record's file lives in the bucket.
func ObjectKey(tab model.Tab, recordID, name string) string {
	return path.Join(string(tab), recordID, cleanName(name))
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
