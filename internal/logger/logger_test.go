package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for the duration of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	originalLevel := GetLevel()
	originalFormat, _ := currentFormat.Load().(string)
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentLevel.Store(int32(originalLevel))
		currentFormat.Store(originalFormat)
		reconfigure()
	})
	return buf
}

// ============================================================================
// Levels
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		hidden   []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, msg := range tt.expected {
				assert.Contains(t, out, msg)
			}
			for _, msg := range tt.hidden {
				assert.NotContains(t, out, msg)
			}
		})
	}
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	captureOutput(t)

	SetLevel("WARN")
	SetLevel("chatty")
	assert.Equal(t, LevelWarn, GetLevel())

	SetLevel("debug")
	assert.Equal(t, LevelDebug, GetLevel())
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)
	assert.Equal(t, "WARN", l.String())

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

// ============================================================================
// Text handler
// ============================================================================

func TestTextFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	Info("Database opened", "database", "user_db", "location", "/var/lib/app/user db.sqlite", "version", 3)

	out := buf.String()
	assert.Contains(t, out, "[INFO] Database opened")
	assert.Contains(t, out, "database=user_db")
	assert.Contains(t, out, `location="/var/lib/app/user db.sqlite"`)
	assert.Contains(t, out, "version=3")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTextFormat_GroupsAndAttrs(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	l := slog.New(h).With("database", "user_db").WithGroup("pool")

	l.Info("stats", "open", 2, slog.Group("wait", "count", 1))

	out := buf.String()
	assert.Contains(t, out, "database=user_db")
	assert.Contains(t, out, "pool.open=2")
	assert.Contains(t, out, "pool.wait.count=1")
}

func TestTextFormat_Color(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, nil, true)

	slog.New(h).Error("boom", "k", "v")

	assert.Contains(t, buf.String(), colorRed+"ERROR"+colorReset)
	assert.Contains(t, buf.String(), colorCyan+"k"+colorReset+"=v")
}

// ============================================================================
// JSON handler and context fields
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("test message", "rows", 5)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, float64(5), entry["rows"])
}

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")
		SetFormat("json")

		lc := NewLogContext("user_db").WithOperation("open").WithTrace("abc123", "xyz789")
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "operation completed", "extra_field", "value")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "abc123", entry[KeyTraceID])
		assert.Equal(t, "xyz789", entry[KeySpanID])
		assert.Equal(t, "user_db", entry[KeyDatabase])
		assert.Equal(t, "open", entry[KeyOperation])
		assert.Equal(t, "value", entry["extra_field"])
	})

	t.Run("ContextWithoutLogContext", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		require.NotPanics(t, func() {
			InfoCtx(context.Background(), "plain message")
			//nolint:staticcheck // nil context must be tolerated
			WarnCtx(nil, "nil context message")
		})
		assert.Contains(t, buf.String(), "plain message")
		assert.Contains(t, buf.String(), "nil context message")
	})
}

func TestLogContext(t *testing.T) {
	lc := NewLogContext("user_db")
	assert.Equal(t, "user_db", lc.Database)
	assert.False(t, lc.StartTime.IsZero())
	assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)

	op := lc.WithOperation("insert")
	assert.Equal(t, "insert", op.Operation)
	assert.Empty(t, lc.Operation, "original must be unchanged")

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Nil(t, nilCtx.WithOperation("x"))
	assert.Zero(t, nilCtx.DurationMs())
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "", Err(nil).Key)

	attr := Err(assert.AnError)
	assert.Equal(t, KeyError, attr.Key)
	assert.Contains(t, attr.Value.String(), "assert.AnError")

	assert.Equal(t, KeyDatabase, Database("user_db").Key)
	assert.Equal(t, KeyOperation, Operation("reset").Key)
}

// ============================================================================
// Concurrency and init
// ============================================================================

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				Info("concurrent", "goroutine", i, "iteration", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
	for _, line := range lines {
		assert.Contains(t, line, "[INFO] concurrent")
	}
}

func TestInit(t *testing.T) {
	t.Run("InitWithWriter", func(t *testing.T) {
		captureOutput(t)
		buf := new(bytes.Buffer)

		InitWithWriter(buf, "DEBUG", "text", false)
		Debug("test message")

		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("InitWithLogFile", func(t *testing.T) {
		captureOutput(t)
		path := t.TempDir() + "/ormkit.log"

		require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
		Info("written to file")
	})

	t.Run("InitWithBadPath", func(t *testing.T) {
		captureOutput(t)
		err := Init(Config{Output: t.TempDir() + "/missing/dir/ormkit.log"})
		assert.Error(t, err)
	})

	t.Run("InitWithEmptyConfig", func(t *testing.T) {
		captureOutput(t)
		require.NoError(t, Init(Config{}))
	})
}

func BenchmarkLogDisabled(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "ERROR", "text", false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Debug("test message", "key", "value")
	}
}

func BenchmarkLogText(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "DEBUG", "text", false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Info("test message", "key", "value", "count", i)
	}
}
