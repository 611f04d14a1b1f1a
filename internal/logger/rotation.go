package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const segmentStamp = "20060102-150405.000"

// RotatingWriter appends log lines to a file and moves it aside once it
// reaches a size limit. Benchmark workers share one writer, so every
// Write holds the lock across the size check, the optional rollover and
// the append. Finished segments may be gzipped in the background; Close
// waits for them.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	limit    int64
	maxAge   time.Duration
	compress bool

	file    *os.File
	written int64
	seq     int

	pending sync.WaitGroup
}

// NewRotatingWriter opens path for appending. maxSizeMB bounds a segment,
// maxAgeDays controls pruning of old segments (0 keeps them all).
func NewRotatingWriter(path string, maxSizeMB, maxAgeDays int, compress bool) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	w := &RotatingWriter{
		path:     path,
		limit:    int64(maxSizeMB) << 20,
		maxAge:   time.Duration(maxAgeDays) * 24 * time.Hour,
		compress: compress,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune(time.Now())
	return w, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file, w.written = f, info.Size()
	return nil
}

// Write appends p, rolling the file over first when p would push it past
// the limit. A line larger than the limit still goes into a fresh file.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.limit > 0 && w.written > 0 && w.written+int64(len(p)) > w.limit {
		if err := w.rollover(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

// Close flushes the current segment and waits for background gzip jobs.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	var err error
	if w.file != nil {
		err = w.file.Close()
		w.file = nil
	}
	w.mu.Unlock()

	w.pending.Wait()
	return err
}

// rollover requires w.mu.
func (w *RotatingWriter) rollover() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	segment := w.segmentName(time.Now())
	if err := os.Rename(w.path, segment); err != nil {
		// Keep logging into the old file rather than losing lines.
		if oerr := w.open(); oerr != nil {
			return oerr
		}
		return fmt.Errorf("rotate log file: %w", err)
	}
	if err := w.open(); err != nil {
		return err
	}

	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		if w.compress {
			_ = gzipSegment(segment)
		}
		w.prune(time.Now())
	}()
	return nil
}

// segmentName stamps with milliseconds plus a counter, so several
// rollovers within one millisecond never collide.
func (w *RotatingWriter) segmentName(now time.Time) string {
	w.seq++
	return fmt.Sprintf("%s.%s.%d", w.path, now.Format(segmentStamp), w.seq)
}

// gzipSegment replaces path with path.gz.
func gzipSegment(path string) error {
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
	_, err = io.Copy(zw, src)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path + ".gz")
		return err
	}
	return os.Remove(path)
}

// prune deletes segments of this log last modified before now-maxAge.
func (w *RotatingWriter) prune(now time.Time) {
	if w.maxAge <= 0 {
		return
	}
	dir, prefix := filepath.Dir(w.path), filepath.Base(w.path)+"."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := now.Add(-w.maxAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		os.Remove(filepath.Join(dir, e.Name()))
	}
}
