// Package credentials persists the agent's access token, encryption key and
// tool path overrides in a sectioned ini file.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/semmidev/phylax-agent/internal/domain"
)

const (
	sectionAuth     = "Auth"
	sectionSecurity = "Security"
	sectionPaths    = "Paths"

	keyAccessToken   = "AccessToken"
	keyEncryptionKey = "EncryptionKey"
)

type Store struct {
	path string

	mu   sync.RWMutex
	file *ini.File
}

// Open loads the store at path. A missing file yields an empty store that is
// created on the first Set call.
func Open(path string) (*Store, error) {
	file, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials file %s: %w", path, err)
	}
	return &Store{path: path, file: file}, nil
}

func (s *Store) value(section, key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Section(section).Key(key).String()
}

func (s *Store) set(section, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.file.Section(section).Key(key).SetValue(value)

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := s.file.SaveTo(tmp); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Chmod(tmp, 0600); err != nil {
		return fmt.Errorf("failed to restrict credentials file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

func (s *Store) AccessToken() string {
	return s.value(sectionAuth, keyAccessToken)
}

func (s *Store) SetAccessToken(token string) error {
	return s.set(sectionAuth, keyAccessToken, token)
}

// EncryptionKey returns the stored key text, or nil when none is stored.
func (s *Store) EncryptionKey() []byte {
	key := s.value(sectionSecurity, keyEncryptionKey)
	if key == "" {
		return nil
	}
	return []byte(key)
}

func (s *Store) SetEncryptionKey(key string) error {
	return s.set(sectionSecurity, keyEncryptionKey, key)
}

// BinPath returns Paths.<family>_bin_path.
func (s *Store) BinPath(family string) string {
	return s.value(sectionPaths, family+"_bin_path")
}

func (s *Store) Credentials() domain.Credentials {
	return domain.Credentials{
		AccessToken:   s.AccessToken(),
		EncryptionKey: s.EncryptionKey(),
	}
}
