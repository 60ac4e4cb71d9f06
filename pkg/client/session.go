package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Session is the identity returned by the login endpoint.
type Session struct {
	Token  string `json:"token" toml:"token"`
	Pseudo string `json:"pseudo" toml:"pseudo"`
	UserID string `json:"userId" toml:"user_id"`
}

// Valid reports whether the session can open a socket.
func (s Session) Valid() bool { return s.Token != "" }

// UnmarshalJSON accepts a numeric or string userId.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw struct {
		Token  string          `json:"token"`
		Pseudo string          `json:"pseudo"`
		UserID json.RawMessage `json:"userId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Token, s.Pseudo, s.UserID = raw.Token, raw.Pseudo, ""

	if len(raw.UserID) == 0 || string(raw.UserID) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(raw.UserID, &str); err == nil {
		s.UserID = str
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(raw.UserID, &num); err != nil {
		return fmt.Errorf("userId: %w", err)
	}
	s.UserID = num.String()
	return nil
}

// ErrLoginFailed is wrapped by Login when the server refuses the credentials.
var ErrLoginFailed = errors.New("login failed")

// Login exchanges a pseudo and secret for a session at POST {serverURL}/api/session.
func Login(ctx context.Context, httpClient *http.Client, serverURL, pseudo, secret string) (Session, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	body, err := json.Marshal(map[string]string{
		"pseudo": strings.TrimSpace(pseudo),
		"secret": strings.TrimSpace(secret),
	})
	if err != nil {
		return Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/session", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Error == "" {
			failure.Error = "Connexion impossible."
		}
		return Session{}, fmt.Errorf("%w: %s", ErrLoginFailed, failure.Error)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if !session.Valid() {
		return Session{}, fmt.Errorf("%w: empty token", ErrLoginFailed)
	}
	return session, nil
}

// SessionStore persists the local session between runs.
type SessionStore interface {
	Load() (Session, bool, error)
	Save(Session) error
	Clear() error
}

// FileSessionStore keeps the session in a TOML file readable only by the user.
type FileSessionStore struct {
	Path string
}

// NewFileSessionStore stores the session at path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{Path: path}
}

// DefaultSessionPath is ~/.config/syncctl/session.toml.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "syncctl", "session.toml"), nil
}

// Load returns the stored session. A missing or empty file is not an error.
func (f *FileSessionStore) Load() (Session, bool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}

	var session Session
	if err := toml.Unmarshal(data, &session); err != nil {
		return Session{}, false, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return session, session.Valid(), nil
}

// Save writes the session, replacing any previous one.
func (f *FileSessionStore) Save(session Session) error {
	data, err := toml.Marshal(session)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

// Clear removes the stored session.
func (f *FileSessionStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemorySessionStore keeps the session in memory only.
type MemorySessionStore struct {
	mu      sync.Mutex
	session Session
}

func (m *MemorySessionStore) Load() (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.session.Valid(), nil
}

func (m *MemorySessionStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}

func (m *MemorySessionStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	return nil
}
