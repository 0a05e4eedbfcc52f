package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink receives the finished document. Save returns where it was stored.
type Sink interface {
	Save(name string, doc io.WriterTo) (string, error)
}

// DirSink writes documents into a directory.
type DirSink struct {
	Dir string
}

// Save writes to a temp file first so a failed write never leaves a
// partial document under the final name.
func (s DirSink) Save(name string, doc io.WriterTo) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".panel-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := doc.WriteTo(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move document: %w", err)
	}
	return path, nil
}

// MemorySink keeps documents in memory for download.
type MemorySink struct {
	// Keep bounds the number of stored documents, oldest first out. Zero keeps one.
	Keep int

	mu    sync.Mutex
	names []string
	files map[string][]byte
}

func (s *MemorySink) Save(name string, doc io.WriterTo) (string, error) {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	if _, ok := s.files[name]; !ok {
		s.names = append(s.names, name)
	}
	s.files[name] = buf.Bytes()

	keep := max(s.Keep, 1)
	for len(s.names) > keep {
		delete(s.files, s.names[0])
		s.names = s.names[1:]
	}
	return name, nil
}

// Get returns a stored document.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}
