package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileWriter persists audit records to an append-only file with
// size-based rotation.
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	maxSize  int64
	maxFiles int
	written  int64
}

// FileConfig configures a FileWriter.
type FileConfig struct {
	Path     string // audit file path, required
	MaxSize  int64  // max file size in bytes (default: 10MB)
	MaxFiles int    // number of rotated files to keep (default: 5)
}

// NewFileWriter opens (or creates) the audit file for appending.
func NewFileWriter(cfg FileConfig) (*FileWriter, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit file path required")
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 5
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	fw := &FileWriter{
		file:     f,
		path:     cfg.Path,
		maxSize:  maxSize,
		maxFiles: maxFiles,
	}
	if info, err := f.Stat(); err == nil {
		fw.written = info.Size()
	}
	return fw, nil
}

// Write appends one record as a text line.
func (fw *FileWriter) Write(rec Record) error {
	ts := rec.Time.Format("2006-01-02T15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s %q\n", ts, rec.Session, rec.Outcome, rec.Line)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.file == nil {
		return fmt.Errorf("audit file closed")
	}

	n, err := fw.file.WriteString(line)
	if err != nil {
		return err
	}
	fw.written += int64(n)

	if fw.written >= fw.maxSize {
		fw.rotate()
	}
	return nil
}

// Close closes the audit file. Safe to call more than once.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file != nil {
		err := fw.file.Close()
		fw.file = nil
		return err
	}
	return nil
}

func (fw *FileWriter) rotate() {
	fw.file.Close()
	fw.file = nil

	for i := fw.maxFiles - 1; i > 0; i-- {
		old := fmt.Sprintf("%s.%d", fw.path, i)
		next := fmt.Sprintf("%s.%d", fw.path, i+1)
		os.Rename(old, next)
	}
	os.Rename(fw.path, fw.path+".1")
	os.Remove(fmt.Sprintf("%s.%d", fw.path, fw.maxFiles+1))

	f, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		slog.Warn("failed to open rotated audit file", "err", err)
		return
	}
	fw.file = f
	fw.written = 0
}
