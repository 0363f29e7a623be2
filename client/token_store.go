package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenStore persists the session token between runs of the client. Load returns an empty
// string, not an error, when nothing is stored.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// conditionalClearer removes the stored token only if it still equals token.
type conditionalClearer interface {
	ClearIf(token string) (bool, error)
}

type MemoryTokenStore struct {
	lock  sync.Mutex
	token string
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load() (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	return m.Save("")
}

func (m *MemoryTokenStore) ClearIf(token string) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.token == "" || m.token != token {
		return false, nil
	}
	m.token = ""
	return true, nil
}

// FileTokenStore keeps the token in a JSON file readable only by the current user. Writes go
// through a temp file and rename so a crash never leaves a half written token.
type FileTokenStore struct {
	path string
	lock sync.Mutex
}

var _ TokenStore = (*FileTokenStore)(nil)

type tokenFile struct {
	SessionToken string    `json:"session_token"`
	SavedAt      time.Time `json:"saved_at"`
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (f *FileTokenStore) Load() (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.load()
}

func (f *FileTokenStore) Save(token string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if token == "" {
		return f.remove()
	}
	return f.write(token)
}

func (f *FileTokenStore) Clear() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.remove()
}

func (f *FileTokenStore) ClearIf(token string) (bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	current, err := f.load()
	if err != nil || current == "" || current != token {
		return false, err
	}
	return true, f.remove()
}

func (f *FileTokenStore) load() (string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("[FileTokenStore.Load] read %s: %w", f.path, err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("[FileTokenStore.Load] decode %s: %w", f.path, err)
	}
	return tf.SessionToken, nil
}

func (f *FileTokenStore) write(token string) error {
	data, err := json.Marshal(tokenFile{SessionToken: token, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("[FileTokenStore.Save] encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[FileTokenStore.Save] create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("[FileTokenStore.Save] temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileTokenStore.Save] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileTokenStore.Save] write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileTokenStore.Save] sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileTokenStore.Save] close: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("[FileTokenStore.Save] rename: %w", err)
	}
	return nil
}

func (f *FileTokenStore) remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[FileTokenStore.Clear] %w", err)
	}
	return nil
}
