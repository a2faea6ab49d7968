package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TokenStore persists the Drive refresh token in a JSON file. When the file
// has no token, the fallback (usually from the environment) is used.
type TokenStore struct {
	path     string
	fallback string
	mu       sync.Mutex
}

type tokenFile struct {
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}

func NewTokenStore(path, fallback string) *TokenStore {
	return &TokenStore{path: strings.TrimSpace(path), fallback: strings.TrimSpace(fallback)}
}

// Load returns the stored refresh token, the fallback, or "".
func (s *TokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return s.fallback, nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.fallback, nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return "", fmt.Errorf("parse token file: %w", err)
	}
	if tf.RefreshToken == "" {
		return s.fallback, nil
	}
	return tf.RefreshToken, nil
}

// Save replaces the stored refresh token.
func (s *TokenStore) Save(refreshToken string) error {
	if s.path == "" {
		return errors.New("token file path not configured")
	}
	raw, err := json.MarshalIndent(tokenFile{RefreshToken: refreshToken, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
