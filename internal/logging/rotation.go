package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotationConfig controls when collab.log is rolled over.
type RotationConfig struct {
	// MaxSizeMB rotates the file once it would grow past this size.
	// Zero disables rotation.
	MaxSizeMB int
	// MaxSizeBytes, when positive, takes precedence over MaxSizeMB.
	MaxSizeBytes int64
	// MaxBackups is the number of rolled files kept beside the live one.
	MaxBackups int
	// Compress gzips each file as it is rolled.
	Compress bool
}

// DefaultRotationConfig returns the rotation used by [NewLogger].
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

func (c RotationConfig) limit() int64 {
	if c.MaxSizeBytes > 0 {
		return c.MaxSizeBytes
	}
	return int64(c.MaxSizeMB) * 1024 * 1024
}

// RotatingWriter is an io.WriteCloser over a log file that rolls the file
// to path.1, path.2, ... when it grows past the configured size. Rolled
// files are numbered newest first. It is safe for concurrent use.
type RotatingWriter struct {
	mu sync.Mutex

	path   string
	config RotationConfig

	file *os.File
	size int64
}

// NewRotatingWriter opens path for appending, creating parent directories.
func NewRotatingWriter(path string, config RotationConfig) (*RotatingWriter, error) {
	rw := &RotatingWriter{path: path, config: config}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

// open must be called with mu held (or before the writer is shared).
func (rw *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(rw.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(rw.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	rw.file = file
	rw.size = info.Size()
	return nil
}

// Write appends p, rolling the file first when p would push it past the limit.
// An empty file is never rolled, so a single oversized write still lands
// in the live file.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return 0, fmt.Errorf("log file is closed")
	}

	if limit := rw.config.limit(); limit > 0 && rw.size > 0 && rw.size+int64(len(p)) > limit {
		if err := rw.roll(); err != nil {
			// Keep logging to whatever file is open rather than drop the entry.
			fmt.Fprintf(os.Stderr, "Warning: log rotation failed: %v\n", err)
			if rw.file == nil {
				return 0, err
			}
		}
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// roll must be called with mu held.
func (rw *RotatingWriter) roll() error {
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rw.file = nil

	rw.shiftBackups()

	if rw.config.MaxBackups > 0 {
		dst := rw.BackupPath(1)
		if err := os.Rename(rw.path, dst); err != nil {
			if openErr := rw.open(); openErr != nil {
				return fmt.Errorf("failed to rename log file and reopen: %w", openErr)
			}
			return fmt.Errorf("failed to rename log file: %w", err)
		}
		if rw.config.Compress {
			if err := gzipFile(dst); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to compress %s: %v\n", dst, err)
			}
		}
	} else if err := os.Remove(rw.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove log file: %w", err)
	}

	return rw.open()
}

// shiftBackups renames path.N to path.N+1, dropping the oldest.
func (rw *RotatingWriter) shiftBackups() {
	keep := rw.config.MaxBackups
	if keep <= 0 {
		return
	}
	for _, ext := range []string{"", ".gz"} {
		os.Remove(rw.BackupPath(keep) + ext)
	}
	for i := keep - 1; i >= 1; i-- {
		for _, ext := range []string{"", ".gz"} {
			from := rw.BackupPath(i) + ext
			if _, err := os.Stat(from); err == nil {
				os.Rename(from, rw.BackupPath(i+1)+ext)
			}
		}
	}
}

// BackupPath returns the path of the n-th rolled file (1 is the newest),
// without any .gz suffix.
func (rw *RotatingWriter) BackupPath(n int) string {
	return fmt.Sprintf("%s.%d", rw.path, n)
}

// Backups returns the rolled files that currently exist, newest first.
func (rw *RotatingWriter) Backups() []string {
	return Backups(rw.path, rw.config.MaxBackups)
}

// Backups lists the rolled files of the log at path, newest first, checking
// up to keep generations.
func Backups(path string, keep int) []string {
	var out []string
	for i := 1; i <= keep; i++ {
		base := fmt.Sprintf("%s.%d", path, i)
		for _, candidate := range []string{base, base + ".gz"} {
			if _, err := os.Stat(candidate); err == nil {
				out = append(out, candidate)
			}
		}
	}
	return out
}

// gzipFile replaces path with path.gz.
func gzipFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		dst.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path + ".gz")
		return err
	}
	return os.Remove(path)
}

// Sync flushes the live file.
func (rw *RotatingWriter) Sync() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file == nil {
		return nil
	}
	return rw.file.Sync()
}

// Close syncs and closes the live file. Closing twice is a no-op.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	defer func() { rw.file = nil }()
	if err := rw.file.Sync(); err != nil {
		rw.file.Close()
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// Size returns the size of the live file in bytes.
func (rw *RotatingWriter) Size() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.size
}

// Path returns the path of the live file.
func (rw *RotatingWriter) Path() string {
	return rw.path
}
