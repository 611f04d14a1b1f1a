package logger

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotatingWriter(t *testing.T) {
	t.Run("create rotating writer", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "bench.log")

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()

		_, err = os.Stat(logFile)
		assert.NoError(t, err)
	})

	t.Run("create directory if not exists", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "runs", "bench.log")

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()

		_, err = os.Stat(filepath.Dir(logFile))
		assert.NoError(t, err)
	})

	t.Run("resumes size of existing file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "bench.log")
		require.NoError(t, os.WriteFile(logFile, []byte("earlier run\n"), 0o644))

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()
		assert.Equal(t, int64(len("earlier run\n")), rw.written)
	})
}

func TestRotatingWriterWrite(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "bench.log")
	rw, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	data := []byte("task 3 completed\n")
	n, err := rw.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(content))
}

func TestRotatingWriterRollover(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "bench.log")

	rw, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	rw.limit = 100

	line := []byte(strings.Repeat("a", 60) + "\n")
	for i := 0; i < 3; i++ {
		_, err = rw.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, rw.Close())

	segments, err := filepath.Glob(filepath.Join(dir, "bench.log.*"))
	require.NoError(t, err)
	assert.Len(t, segments, 2)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, string(line), string(content))
}

func TestRotatingWriterOversizedLine(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "bench.log")
	rw, err := NewRotatingWriter(logFile, 1, 0, false)
	require.NoError(t, err)
	rw.limit = 10

	_, err = rw.Write([]byte(strings.Repeat("b", 50)))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Len(t, content, 50)
}

func TestRotatingWriterConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "bench.log")
	rw, err := NewRotatingWriter(logFile, 1, 0, false)
	require.NoError(t, err)
	rw.limit = 200

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = rw.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, rw.Close())

	files, err := filepath.Glob(filepath.Join(dir, "bench.log*"))
	require.NoError(t, err)
	assert.Greater(t, len(files), 1)

	total := 0
	for _, f := range files {
		content, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(content), 200)
		assert.Equal(t, 0, len(content)%len("line\n"), "torn line in %s", f)
		total += strings.Count(string(content), "line\n")
	}
	assert.Equal(t, 400, total)
}

func TestRotatingWriterClose(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "bench.log")
	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)

	assert.NoError(t, rw.Close())
	assert.NoError(t, rw.Close())

	_, err = rw.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingWriterCompressesSegments(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "bench.log")
	rw, err := NewRotatingWriter(logFile, 1, 0, true)
	require.NoError(t, err)
	rw.limit = 10

	_, err = rw.Write([]byte("first line\n"))
	require.NoError(t, err)
	_, err = rw.Write([]byte("second line\n"))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	archives, err := filepath.Glob(filepath.Join(dir, "bench.log.*.gz"))
	require.NoError(t, err)
	require.Len(t, archives, 1)

	f, err := os.Open(archives[0])
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "first line\n", string(body))

	_, err = os.Stat(strings.TrimSuffix(archives[0], ".gz"))
	assert.True(t, os.IsNotExist(err))
}

func TestGzipSegment(t *testing.T) {
	segment := filepath.Join(t.TempDir(), "segment.txt")
	require.NoError(t, os.WriteFile(segment, []byte("segment body"), 0o644))

	require.NoError(t, gzipSegment(segment))

	_, err := os.Stat(segment + ".gz")
	assert.NoError(t, err)
	_, err = os.Stat(segment)
	assert.True(t, os.IsNotExist(err))
}

func TestPruneRemovesExpiredSegments(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "bench.log")

	stale := logFile + ".20200101-120000.000.1"
	fresh := logFile + ".20200102-120000.000.2"
	other := filepath.Join(dir, "other.log.20200101-120000.000.1")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("old"), 0o644))
	}
	old := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(other)
	assert.NoError(t, err)
	_, err = os.Stat(logFile)
	assert.NoError(t, err, "active file must survive pruning")
}
