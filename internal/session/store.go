package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// FileName is the session file inside the store directory.
	FileName = "session.json"
	lockName = ".session.lock"

	dirMode  = 0o700
	fileMode = 0o600

	defaultLockTimeout = 5 * time.Second
	lockRetry          = 50 * time.Millisecond
)

// Store reads and writes the session file. Writers in different processes
// are serialized with a lock file and replace the file atomically, so
// readers never see a partial write.
type Store struct {
	dir         string
	lockTimeout time.Duration
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, lockTimeout: defaultLockTimeout}
}

// DefaultDir is $XDG_STATE_HOME/crmx or ~/.local/state/crmx.
func DefaultDir() (string, error) {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, "crmx"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "crmx"), nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the session file path.
func (s *Store) Path() string { return filepath.Join(s.dir, FileName) }

// Load reads the session. A missing file is an empty session.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decoding session %s: %w", s.Path(), err)
	}
	return sess, nil
}

// Update applies fn to the current session and writes the result. The
// office is restored after fn runs; use OfficeSelector to change it.
func (s *Store) Update(ctx context.Context, fn func(*Session) error) (Session, error) {
	return s.update(ctx, func(sess *Session) error {
		office := sess.Office
		if err := fn(sess); err != nil {
			return err
		}
		sess.Office = office
		return nil
	})
}

// SaveView records the encoded view state of screen.
func (s *Store) SaveView(ctx context.Context, screen, encoded string) error {
	_, err := s.Update(ctx, func(sess *Session) error {
		if sess.Views == nil {
			sess.Views = map[string]string{}
		}
		sess.Views[screen] = encoded
		return nil
	})
	return err
}

// SetClientNumber records the phone templated messages go to.
func (s *Store) SetClientNumber(ctx context.Context, phone string) error {
	_, err := s.Update(ctx, func(sess *Session) error {
		sess.ClientNumber = phone
		return nil
	})
	return err
}

func (s *Store) update(ctx context.Context, fn func(*Session) error) (Session, error) {
	var out Session
	err := s.withLock(ctx, func() error {
		sess, err := s.Load()
		if err != nil {
			return err
		}
		sess.Views = maps.Clone(sess.Views)
		if err := fn(&sess); err != nil {
			return err
		}
		if err := s.write(sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	return out, err
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	lock := flock.New(filepath.Join(s.dir, lockName))

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetry)
	if err != nil {
		return fmt.Errorf("locking session: %w", err)
	}
	if !locked {
		return fmt.Errorf("session is locked by another process (waited %s)", s.lockTimeout)
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

func (s *Store) write(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Chmod(tmp.Name(), fileMode); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("replacing session: %w", err)
	}
	return nil
}
