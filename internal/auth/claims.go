package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oakwood-commons/crmx/internal/session"
)

// ErrSessionExpired is a stored token whose exp claim has passed.
var ErrSessionExpired = errors.New("session expired: run `crmx login` again")

// Claims are the identity token fields the CLI reads. The signature is
// not checked here; the backend verifies tokens on every request.
type Claims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"-"`
}

// Expired reports whether the claims carry an expiry before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseClaims decodes the payload of a JWT. Opaque tokens report ok=false
// and no error.
func ParseClaims(token string) (Claims, bool, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Claims{}, false, nil
	}
	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || !json.Valid(header) {
		return Claims{}, false, nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, true, fmt.Errorf("invalid token payload: %w", err)
	}
	var raw struct {
		Claims
		Exp json.Number `json:"exp"`
	}
	dec := json.NewDecoder(strings.NewReader(string(payload)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Claims{}, true, fmt.Errorf("invalid token payload JSON: %w", err)
	}
	c := raw.Claims
	if raw.Exp != "" {
		secs, err := raw.Exp.Float64()
		if err != nil {
			return Claims{}, true, fmt.Errorf("invalid exp claim %q", raw.Exp)
		}
		c.ExpiresAt = time.Unix(int64(secs), 0)
	}
	return c, true, nil
}

// CheckSession returns ErrNotSignedIn or ErrSessionExpired when sess cannot
// be used for backend calls.
func CheckSession(sess session.Session, now time.Time) error {
	if !sess.SignedIn() {
		return ErrNotSignedIn
	}
	claims, ok, err := ParseClaims(sess.Token)
	if err != nil {
		return fmt.Errorf("stored token: %w", err)
	}
	if ok && claims.Expired(now) {
		return ErrSessionExpired
	}
	return nil
}
