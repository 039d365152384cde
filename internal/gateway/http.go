package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oakwood-commons/crmx/internal/metrics"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// Options configure an HTTPClient.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Paths   Paths
	// Transport overrides the base RoundTripper; metrics wrap it either way.
	Transport http.RoundTripper
}

// HTTPClient implements Gateway over the backend's JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	paths      Paths
	httpClient *http.Client
}

var _ Gateway = (*HTTPClient)(nil)

// NewHTTPClient builds a client for opts.BaseURL (e.g. "http://localhost:8080").
// When opts.Token is set, every request carries it as a bearer token.
func NewHTTPClient(opts Options) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		paths:   opts.Paths.merged(),
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: metrics.Transport{Base: opts.Transport},
		},
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *HTTPClient) WithToken(token string) *HTTPClient {
	cp := *c
	cp.token = token
	return &cp
}

func (c *HTTPClient) collection(tab model.Tab) (string, error) {
	p, ok := c.paths.Collections[tab]
	if !ok || p == "" {
		return "", fmt.Errorf("no endpoint configured for tab %q", tab)
	}
	return p, nil
}

// --- Collections ---

func (c *HTTPClient) List(ctx context.Context, tab model.Tab) ([]model.Record, error) {
	path, err := c.collection(tab)
	if err != nil {
		return nil, err
	}
	var recs []model.Record
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []model.Record{}
	}
	return recs, nil
}

func (c *HTTPClient) Get(ctx context.Context, tab model.Tab, id string) (model.Record, error) {
	path, err := c.collection(tab)
	if err != nil {
		return model.Record{}, err
	}
	var rec model.Record
	if err := c.doJSON(ctx, http.MethodGet, path+"/"+url.PathEscape(id), nil, &rec); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

func (c *HTTPClient) Create(ctx context.Context, tab model.Tab, fields map[string]any) (model.Record, error) {
	path, err := c.collection(tab)
	if err != nil {
		return model.Record{}, err
	}
	var rec model.Record
	if err := c.doJSON(ctx, http.MethodPost, path, fields, &rec); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

func (c *HTTPClient) Update(ctx context.Context, tab model.Tab, id string, fields map[string]any) (model.Record, error) {
	path, err := c.collection(tab)
	if err != nil {
		return model.Record{}, err
	}
	var rec model.Record
	if err := c.doJSON(ctx, http.MethodPatch, path+"/"+url.PathEscape(id), fields, &rec); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

func (c *HTTPClient) Delete(ctx context.Context, tab model.Tab, id string) error {
	path, err := c.collection(tab)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path+"/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) Assign(ctx context.Context, req AssignRequest) error {
	if len(req.IDs) == 0 {
		return fmt.Errorf("assign needs at least one id")
	}
	return c.doJSON(ctx, http.MethodPost, c.paths.Assign, req, nil)
}

// --- History and chat ---

func (c *HTTPClient) Calls(ctx context.Context, recordID string) ([]model.CallRecord, error) {
	q := url.Values{}
	q.Set("recordId", recordID)
	var calls []model.CallRecord
	if err := c.doJSON(ctx, http.MethodGet, c.paths.Calls+"?"+q.Encode(), nil, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

func (c *HTTPClient) Messages(ctx context.Context, phone string) ([]model.Message, error) {
	q := url.Values{}
	q.Set("phone", phone)
	var msgs []model.Message
	if err := c.doJSON(ctx, http.MethodGet, c.paths.Messages+"?"+q.Encode(), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	var sent model.Message
	if err := c.doJSON(ctx, http.MethodPost, c.paths.Messages, msg, &sent); err != nil {
		return model.Message{}, err
	}
	if sent.Key == "" {
		sent.Key = msg.Key
	}
	return sent, nil
}

func (c *HTTPClient) SendTemplate(ctx context.Context, req TemplateRequest) error {
	return c.doJSON(ctx, http.MethodPost, c.paths.SendTemplate, req, nil)
}

// --- Session ---

func (c *HTTPClient) VerifySession(ctx context.Context, token string) (model.User, error) {
	var user model.User
	if err := c.WithToken(token).doJSON(ctx, http.MethodPost, c.paths.Verify, map[string]string{"token": token}, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// --- Attachments ---

func (c *HTTPClient) Upload(ctx context.Context, req UploadRequest) (model.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("tab", string(req.Tab))
	_ = mw.WriteField("recordId", req.RecordID)
	part, err := mw.CreateFormFile("file", req.Name)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, req.Content); err != nil {
		return model.Attachment{}, fmt.Errorf("reading %s: %w", req.Name, err)
	}
	if err := mw.Close(); err != nil {
		return model.Attachment{}, fmt.Errorf("closing multipart body: %w", err)
	}

	var att model.Attachment
	if err := c.do(ctx, http.MethodPost, c.paths.Upload, &buf, mw.FormDataContentType(), &att); err != nil {
		return model.Attachment{}, err
	}
	return att, nil
}

func (c *HTTPClient) RegisterAttachment(ctx context.Context, att model.Attachment) (model.Attachment, error) {
	var saved model.Attachment
	if err := c.doJSON(ctx, http.MethodPost, c.paths.Attachments, att, &saved); err != nil {
		return model.Attachment{}, err
	}
	return saved, nil
}

// doJSON performs a request with an optional JSON body and decodes the
// response into result. A nil result discards the body.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, bodyReader, contentType, result)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	lgr := logger.FromContext(ctx)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	lgr.V(1).Info("gateway response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}

	if err := decodeBody(respBody, result); err != nil {
		var envErr *EnvelopeError
		if errors.As(err, &envErr) {
			metrics.EnvelopeFailuresTotal.WithLabelValues(metrics.NormalizePath(req.URL.Path)).Inc()
			return err
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
