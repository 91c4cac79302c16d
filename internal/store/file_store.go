package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Popie52/pinger/internal/model"
)

// FileResultStore appends one JSON document per line.
type FileResultStore struct {
	path string
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
}

func NewFileResultStore(path string) (*FileResultStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create result dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open result file: %w", err)
	}
	return &FileResultStore{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (s *FileResultStore) Save(_ context.Context, res *model.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return os.ErrClosed
	}
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *FileResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	s.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Helpers
func ReadResults(path string) ([]*model.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.Result{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var results []*model.Result
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r model.Result
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	return results, sc.Err()
}
