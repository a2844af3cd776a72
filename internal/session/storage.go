package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	inHttp "github.com/Alturino/marketclub/internal/http"
)

type MemoryStorage struct {
	mu sync.RWMutex
	id string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.id == "" {
		return "", ErrNoSession
	}
	return s.id, nil
}

func (s *MemoryStorage) Save(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

type fileContent struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStorage keeps the session id of the cli in a small json file.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Load(context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed reading session file=%s with error=%w", s.path, err)
	}
	content := fileContent{}
	if err := json.Unmarshal(data, &content); err != nil {
		return "", fmt.Errorf("failed decoding session file=%s with error=%w", s.path, err)
	}
	if content.SessionID == "" {
		return "", ErrNoSession
	}
	return content.SessionID, nil
}

func (s *FileStorage) Save(_ context.Context, id string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed creating session dir with error=%w", err)
	}
	data, err := json.Marshal(fileContent{SessionID: id, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed encoding session with error=%w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed writing session file with error=%w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed replacing session file with error=%w", err)
	}
	return nil
}

// CookieStorage is bound to a single request. It prefers the X-Session-ID header so api
// clients that cannot hold cookies keep their cart.
type CookieStorage struct {
	w      http.ResponseWriter
	r      *http.Request
	name   string
	maxAge time.Duration
	secure bool
}

func NewCookieStorage(w http.ResponseWriter, r *http.Request, name string, maxAgeDays int) *CookieStorage {
	return &CookieStorage{
		w:      w,
		r:      r,
		name:   name,
		maxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
		secure: r.TLS != nil,
	}
}

func (s *CookieStorage) Load(context.Context) (string, error) {
	if id := s.r.Header.Get(inHttp.KEY_HEADER_SESSION_ID); id != "" {
		return id, nil
	}
	cookie, err := s.r.Cookie(s.name)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed reading session cookie with error=%w", err)
	}
	return cookie.Value, nil
}

func (s *CookieStorage) Save(_ context.Context, id string) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
