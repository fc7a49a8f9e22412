package tokenstore

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/nzci/enrolbridge/app/models"
)

// FileStore keeps the token bundle in a single JSON file that is fully
// rewritten on each update. OAuth state nonces live in process memory, which
// is sufficient for the file backend's single-instance deployment; run the
// redis backend when the service is replicated.
type FileStore struct {
	path string

	mu     sync.Mutex
	states map[string]time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		states: map[string]time.Time{},
	}
}

func (s *FileStore) Load() (*models.OAuthTokenBundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var bundle models.OAuthTokenBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, err
	}
	if bundle.AccessToken == "" {
		return nil, nil
	}
	return &bundle, nil
}

func (s *FileStore) Save(bundle *models.OAuthTokenBundle) error {
	if bundle == nil {
		return errors.New("token bundle is required")
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) SaveState(state string, ttl time.Duration) error {
	if state == "" {
		return errors.New("state is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = time.Now().Add(ttl)
	return nil
}

func (s *FileStore) ConsumeState(state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.states[state]
	if !ok {
		return false, nil
	}
	delete(s.states, state)
	return time.Now().Before(expiry), nil
}
