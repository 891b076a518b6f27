package out

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ghnb/internal/modules/auth/domain"
	authout "ghnb/internal/modules/auth/port/out"
)

type hostsFile struct {
	SchemaVersion int              `yaml:"schema_version"`
	Sessions      []domain.Session `yaml:"sessions"`
}

// YAMLTokenStore keeps sessions in a 0600 YAML file. It remembers the digest
// of the content it last saw so Watch reports only foreign writes.
type YAMLTokenStore struct {
	path   string
	logger *zap.Logger

	mu         sync.Mutex
	lastDigest [sha256.Size]byte
}

func NewYAMLTokenStore(path string, logger *zap.Logger) authout.TokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YAMLTokenStore{path: path, logger: logger.Named("token-store")}
}

func (s *YAMLTokenStore) Load(_ context.Context) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return file.Sessions, nil
}

func (s *YAMLTokenStore) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.readLocked()
	if err != nil {
		return err
	}
	replaced := false
	for i := range file.Sessions {
		if file.Sessions[i].ID == session.ID {
			file.Sessions[i] = session
			replaced = true
		}
	}
	if !replaced {
		file.Sessions = append(file.Sessions, session)
	}
	return s.writeLocked(file)
}

func (s *YAMLTokenStore) DeleteProvider(_ context.Context, providerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.readLocked()
	if err != nil {
		return 0, err
	}
	kept := file.Sessions[:0]
	removed := 0
	for _, session := range file.Sessions {
		if session.ProviderID == providerID {
			removed++
			continue
		}
		kept = append(kept, session)
	}
	if removed == 0 {
		return 0, nil
	}
	file.Sessions = kept
	return removed, s.writeLocked(file)
}

// Watch watches the store's directory, since saves replace the file by rename.
func (s *YAMLTokenStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token store dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create token store watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch token store dir: %w", err)
	}

	s.mu.Lock()
	if raw, err := os.ReadFile(s.path); err == nil {
		s.lastDigest = sha256.Sum256(raw)
	}
	s.mu.Unlock()

	changes := make(chan struct{}, 1)
	go s.run(ctx, watcher, changes)
	return changes, nil
}

func (s *YAMLTokenStore) run(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer func() { _ = watcher.Close() }()
	name := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !s.foreignChange() {
				continue
			}
			select {
			case changes <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("token store watcher", zap.Error(err))
		}
	}
}

func (s *YAMLTokenStore) foreignChange() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return false
	}
	digest := sha256.Sum256(raw)
	if digest == s.lastDigest {
		return false
	}
	s.lastDigest = digest
	return true
}

func (s *YAMLTokenStore) readLocked() (hostsFile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return hostsFile{SchemaVersion: domain.SchemaVersion}, nil
		}
		return hostsFile{}, fmt.Errorf("read token store: %w", err)
	}
	file := hostsFile{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return hostsFile{SchemaVersion: domain.SchemaVersion}, nil
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return hostsFile{}, fmt.Errorf("decode token store: %w", err)
	}
	return file, nil
}

func (s *YAMLTokenStore) writeLocked(file hostsFile) error {
	file.SchemaVersion = domain.SchemaVersion
	if file.Sessions == nil {
		file.Sessions = []domain.Session{}
	}
	payload, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode token store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".hosts-*.tmp")
	if err != nil {
		return fmt.Errorf("create token store temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write token store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close token store: %w", err)
	}
	s.lastDigest = sha256.Sum256(payload)
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace token store: %w", err)
	}
	return nil
}
