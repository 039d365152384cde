// Package auth signs users in against the identity provider, verifies the
// resulting token with the backend once, and records the session.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oakwood-commons/crmx/internal/metrics"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/session"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

var (
	// ErrNotSignedIn is returned when a command needs a session and none exists.
	ErrNotSignedIn = errors.New("not signed in: run `crmx login` first")
	// ErrInvalidCredentials is the identity provider rejecting the password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const signInPath = "/v1/accounts:signInWithPassword"

// Verifier checks a token with the backend.
type Verifier interface {
	VerifySession(ctx context.Context, token string) (model.User, error)
}

// Options configure a Client.
type Options struct {
	IDPURL   string
	APIKey   string
	Timeout  time.Duration
	Verifier Verifier
	Store    *session.Store
	// HTTPClient overrides the client used for the identity provider.
	HTTPClient *http.Client
}

// Client runs sign-in and sign-out.
type Client struct {
	opts Options
	http *http.Client
}

// New returns a Client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout, Transport: metrics.Transport{}}
	}
	return &Client{opts: opts, http: hc}
}

// ProviderError is a failure reported by the identity provider.
type ProviderError struct {
	StatusCode int
	Code       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider: HTTP %d: %s", e.StatusCode, e.Code)
}

// Is maps credential failures onto ErrInvalidCredentials.
func (e *ProviderError) Is(target error) bool {
	if target != ErrInvalidCredentials {
		return false
	}
	switch strings.SplitN(e.Code, " ", 2)[0] {
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD", "EMAIL_NOT_FOUND":
		return true
	}
	return false
}

// ValidateCredentials runs the sign-in form checks.
func ValidateCredentials(email, password string) error {
	return model.ValidateFields(model.Form{"email": email, "password": password}, credentialRules)
}

var credentialRules = model.Rules{"email": "required,email", "password": "required"}

// SignIn exchanges the credentials for a token, verifies it with the
// backend and persists the session. Nothing is written on failure.
func (c *Client) SignIn(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if err := ValidateCredentials(email, password); err != nil {
		return session.Session{}, err
	}
	lgr := logger.FromContext(ctx)

	token, err := c.exchange(ctx, email, password)
	if err != nil {
		return session.Session{}, err
	}
	user, err := c.opts.Verifier.VerifySession(ctx, token)
	if err != nil {
		return session.Session{}, fmt.Errorf("verifying session: %w", err)
	}

	sess, err := c.opts.Store.Update(ctx, func(s *session.Session) error {
		s.Email = email
		s.Token = token
		s.UserID = user.ID
		s.Name = user.Name
		return nil
	})
	if err != nil {
		return session.Session{}, err
	}
	lgr.Info("signed in", "email", email, "user", user.ID)
	return sess, nil
}

// SignOut clears the email and token. The office and saved views stay.
func (c *Client) SignOut(ctx context.Context) error {
	_, err := c.opts.Store.Update(ctx, func(s *session.Session) error {
		s.Email, s.Token, s.UserID, s.Name = "", "", "", ""
		return nil
	})
	if err == nil {
		logger.FromContext(ctx).V(1).Info("signed out")
	}
	return err
}

// Current returns the stored session, or ErrNotSignedIn / ErrSessionExpired.
func Current(store *session.Store) (session.Session, error) {
	sess, err := store.Load()
	if err != nil {
		return session.Session{}, err
	}
	if err := CheckSession(sess, time.Now()); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

func (c *Client) exchange(ctx context.Context, email, password string) (string, error) {
	if c.opts.IDPURL == "" {
		return "", errors.New("identity provider URL is not configured")
	}
	endpoint := strings.TrimRight(c.opts.IDPURL, "/") + signInPath
	if c.opts.APIKey != "" {
		endpoint += "?" + url.Values{"key": {c.opts.APIKey}}.Encode()
	}
	body, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("contacting identity provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading sign-in response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		code := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &failure) == nil && failure.Error.Message != "" {
			code = failure.Error.Message
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Code: code}
	}

	var ok struct {
		IDToken string `json:"idToken"`
	}
	if err := json.Unmarshal(raw, &ok); err != nil {
		return "", fmt.Errorf("decoding sign-in response: %w", err)
	}
	if ok.IDToken == "" {
		return "", errors.New("identity provider returned no token")
	}
	return ok.IDToken, nil
}
