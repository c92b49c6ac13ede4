package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Repository persists the submission log in insertion order.
type Repository interface {
	List(ctx context.Context) ([]Submission, error)
	Append(ctx context.Context, s Submission) error
}

// FileStore keeps the whole log as one JSON array on disk. Every access
// reads and rewrites the file. Append holds mu across the read-modify-write
// so submissions inside one process never overwrite each other; separate
// processes sharing the file still race and the last write wins.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Ensure creates the backing file with an empty log if it does not exist.
func (s *FileStore) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	if err := s.write([]Submission{}); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	slog.Info("created empty submission log", "path", s.path)
	return nil
}

// Read loads the full log. A missing, empty or malformed file reads as an
// empty log; it never returns nil.
func (s *FileStore) Read() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Write replaces the full log on disk.
func (s *FileStore) Write(list []Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(list)
}

func (s *FileStore) List(_ context.Context) ([]Submission, error) {
	return s.Read(), nil
}

func (s *FileStore) Append(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.read()
	list = append(list, sub)
	if err := s.write(list); err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func (s *FileStore) read() []Submission {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read submission log", "path", s.path, "err", err)
		}
		return []Submission{}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Submission{}
	}

	var list []Submission
	if err := json.Unmarshal(data, &list); err != nil {
		slog.Warn("submission log is malformed, treating as empty", "path", s.path, "err", err)
		return []Submission{}
	}
	if list == nil {
		return []Submission{}
	}
	return list
}

// write goes through a temp file and a rename so readers never see a
// half-written log.
func (s *FileStore) write(list []Submission) error {
	if list == nil {
		list = []Submission{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal submissions: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("commit submission log: %w", err)
	}
	return nil
}
