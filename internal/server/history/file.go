package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends hand records as JSON lines, one file per table under a
// base directory. Writes are buffered; the recorder flushes periodically.
type FileSink struct {
	dir string

	mu    sync.Mutex
	files map[string]*tableFile
}

type tableFile struct {
	f *os.File
	w *bufio.Writer
}

// NewFileSink creates the base directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}
	return &FileSink{dir: dir, files: make(map[string]*tableFile)}, nil
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Write appends one record to the table's JSONL file.
func (s *FileSink) Write(rec *HandRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode hand %s: %w", rec.HandID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tf, err := s.tableFileLocked(rec.TableID)
	if err != nil {
		return err
	}
	if _, err := tf.w.Write(line); err != nil {
		return fmt.Errorf("write hand %s: %w", rec.HandID, err)
	}
	if err := tf.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write hand %s: %w", rec.HandID, err)
	}
	return nil
}

func (s *FileSink) tableFileLocked(tableID string) (*tableFile, error) {
	if tf, ok := s.files[tableID]; ok {
		return tf, nil
	}
	path := filepath.Join(s.dir, tableID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	tf := &tableFile{f: f, w: bufio.NewWriter(f)}
	s.files[tableID] = tf
	return tf, nil
}

// Flush pushes buffered lines to disk.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tableID, tf := range s.files {
		if err := tf.w.Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", tableID, err)
		}
	}
	return nil
}

// Close flushes and closes every open file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, tf := range s.files {
		if err := tf.w.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := tf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.files = make(map[string]*tableFile)
	return firstErr
}
