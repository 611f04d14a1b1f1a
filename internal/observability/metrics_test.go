package observability

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCuration(t *testing.T) {
	counter := getMetrics().curationTotal.WithLabelValues("parsed")
	before := testutil.ToFloat64(counter)

	RecordCuration("parsed")
	RecordCuration("parsed")

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRecordTaskRunStatus(t *testing.T) {
	ok := getMetrics().taskRunTotal.WithLabelValues("vanilla", "success")
	failed := getMetrics().taskRunTotal.WithLabelValues("vanilla", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordTaskRun("vanilla", time.Second, true)
	RecordTaskRun("vanilla", time.Second, false)
	RecordTaskRun("vanilla", time.Second, false)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+2, testutil.ToFloat64(failed))
}

func TestGauges(t *testing.T) {
	SetMemoryRecords("task", 12)
	SetSuccessRate("run-vanilla", "total", 75)

	assert.Equal(t, 12.0, testutil.ToFloat64(getMetrics().memoryRecords.WithLabelValues("task")))
	assert.Equal(t, 75.0, testutil.ToFloat64(getMetrics().successRate.WithLabelValues("run-vanilla", "total")))
}

func TestMetricsHandler(t *testing.T) {
	RecordMemoryOp("subtask", "search", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `memory_operation_duration_seconds_count{bank="subtask",op="search"}`)
}

func TestWriteTextfile(t *testing.T) {
	RecordCompletion("planning", time.Millisecond, true)

	path := filepath.Join(t.TempDir(), "legomem.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `completion_calls_total{stage="planning",status="success"}`))
}
