package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLogger_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "6f1c0b1e-0000-4000-8000-000000000001")
	logger.With("component", "test").InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "user_id=6f1c0b1e-0000-4000-8000-000000000001")
	assert.Contains(t, out, "component=test")
	assert.NotContains(t, out, "trace_id")
}

func TestRepoLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	l := &RepoLogger{tableName: "posts", logger: NewLogger(&buf, true)}

	l.LogError(context.Background(), errors.New("boom"), "insert")

	assert.Contains(t, buf.String(), `"table":"posts"`)
	assert.Contains(t, buf.String(), `"operation":"insert"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestObserveBackendCall_CountsFailures(t *testing.T) {
	before := testutil.ToFloat64(BackendErrors.WithLabelValues("rest", "test_op"))

	ObserveBackendCall("rest", "test_op", time.Now(), nil)
	ObserveBackendCall("rest", "test_op", time.Now(), errors.New("down"))

	assert.Equal(t, before+1, testutil.ToFloat64(BackendErrors.WithLabelValues("rest", "test_op")))
}
