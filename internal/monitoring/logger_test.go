package monitoring

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := capture(t)
	Logf("hello %d", 1)
	assert.Equal(t, []string{"hello 1"}, *lines)

	// nil installs a no-op logger
	SetLogger(nil)
	Logf("dropped")
	assert.Len(t, *lines, 1)
}

func TestLogf_Default(t *testing.T) {
	require.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}

func TestStage(t *testing.T) {
	lines := capture(t)
	origNow := now
	t.Cleanup(func() { now = origNow })

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}

	done := Stage("power spectrum")
	done(nil)
	require.Len(t, *lines, 2)
	assert.Equal(t, "[power spectrum] started", (*lines)[0])
	assert.Equal(t, "[power spectrum] done in 250ms", (*lines)[1])

	done = Stage("peaks")
	done(errors.New("boom"))
	require.Len(t, *lines, 4)
	assert.Equal(t, "[peaks] failed after 250ms: boom", (*lines)[3])
}
