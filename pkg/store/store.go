package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethpandaops/tally/pkg/observability"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ErrWatcherFailed is returned when the data directory cannot be watched
var ErrWatcherFailed = errors.New("failed to initialize data directory watcher")

// Service provides snapshots of the data files
type Service interface {
	Start(ctx context.Context) error
	Stop() error

	// Snapshot returns the current records. The result is shared and must
	// not be modified.
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Store reads the data files on demand. With Watch enabled and after Start,
// the last snapshot is cached until one of the files changes.
type Store struct {
	log logrus.FieldLogger
	cfg *Config

	mu         sync.RWMutex
	cached     *Snapshot
	generation uint64
	watching   bool

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// Ensure Store implements Service
var _ Service = (*Store)(nil)

// New creates a store for the configured data directory
func New(log logrus.FieldLogger, cfg *Config) *Store {
	return &Store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start begins watching the data directory when Watch is enabled
func (s *Store) Start(ctx context.Context) error {
	if !s.cfg.Watch {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatcherFailed, err)
	}

	// The application rewrites files wholesale, so the directory is watched
	// rather than the files themselves
	if err := watcher.Add(s.cfg.DataDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.cfg.DataDir, err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	s.watching = true
	s.cached = nil

	s.wg.Add(1)
	go s.processEvents(ctx, watcher, s.done)

	s.log.WithField("dir", s.cfg.DataDir).Info("Watching data directory for changes")

	return nil
}

// Stop stops the watcher
func (s *Store) Stop() error {
	s.mu.Lock()
	if s.watcher == nil {
		s.mu.Unlock()
		return nil
	}

	s.watching = false
	s.cached = nil
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	s.mu.Unlock()

	s.wg.Wait()

	return err
}

// Snapshot returns the users, projects and tasks. Missing files are empty
// collections; malformed files are errors.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	cached, watching, generation := s.cached, s.watching, s.generation
	s.mu.RUnlock()

	if cached != nil {
		return cached, nil
	}

	snapshot, err := s.load()
	if err != nil {
		return nil, err
	}

	if watching {
		s.mu.Lock()
		// A change observed during the load makes this snapshot stale
		if s.watching && s.generation == generation {
			s.cached = snapshot
		}
		s.mu.Unlock()
	}

	return snapshot, nil
}

func (s *Store) load() (*Snapshot, error) {
	users, err := readRecords[User](s.cfg.UsersPath())
	if err != nil {
		return nil, err
	}

	projects, err := readRecords[Project](s.cfg.ProjectsPath())
	if err != nil {
		return nil, err
	}

	tasks, err := readRecords[Task](s.cfg.TasksPath())
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"users":    len(users),
		"projects": len(projects),
		"tasks":    len(tasks),
	}).Debug("Loaded data files")

	return &Snapshot{
		Users:    users,
		Projects: projects,
		Tasks:    tasks,
	}, nil
}

// readRecords decodes a JSON array file. A missing or blank file yields an
// empty collection.
func readRecords[T any](path string) ([]T, error) {
	file := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			observability.RecordStoreLoad(file, "missing")
			return []T{}, nil
		}

		observability.RecordStoreLoad(file, "failed")

		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		observability.RecordStoreLoad(file, "success")
		return []T{}, nil
	}

	records := []T{}
	if err := json.Unmarshal(data, &records); err != nil {
		observability.RecordStoreLoad(file, "failed")
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}

	observability.RecordStoreLoad(file, "success")

	return records, nil
}

func (s *Store) invalidate(path string) {
	s.mu.Lock()
	s.cached = nil
	s.generation++
	s.mu.Unlock()

	observability.RecordStoreInvalidation()
	s.log.WithField("file", filepath.Base(path)).Debug("Data file changed, snapshot invalidated")
}

func (s *Store) tracked(path string) bool {
	switch filepath.Base(path) {
	case s.cfg.UsersFile, s.cfg.ProjectsFile, s.cfg.TasksFile:
		return true
	default:
		return false
	}
}

func (s *Store) processEvents(ctx context.Context, watcher *fsnotify.Watcher, done <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			// Without events the cache can no longer be trusted
			s.mu.Lock()
			s.watching = false
			s.cached = nil
			s.mu.Unlock()

			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if !s.tracked(event.Name) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				s.invalidate(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			s.log.WithError(err).Warn("Data directory watcher error")
			observability.RecordError("store", "watcher")
		}
	}
}
