package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "json config", config: &Config{Level: "debug", Format: "json", Output: io.Discard}},
		{name: "console config", config: &Config{Level: "info", Format: "console", Output: io.Discard}},
		{name: "nil output", config: &Config{Level: "warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, New(tt.config))
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	l.InfoWith("authenticated", nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "authenticated", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_WithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	child := l.With().
		Str("user", "SEL_22302").
		Logger()

	child.InfoWith("containers listed", map[string]interface{}{"count": 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "SEL_22302", entry["user"])
	assert.Equal(t, float64(3), entry["count"])
}

func TestLogger_ErrorWith(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "error", Format: "json", Output: buf})

	l.ErrorWith("request failed", errors.New("connection refused"), map[string]interface{}{
		"method": "HEAD",
		"path":   "/container1",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "HEAD", entry["method"])
	assert.Equal(t, "/container1", entry["path"])
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(*Logger)
		expected bool
	}{
		{"debug level logs debug", "debug", func(l *Logger) { l.DebugWith("m", nil) }, true},
		{"info level skips debug", "info", func(l *Logger) { l.DebugWith("m", nil) }, false},
		{"warn level skips info", "warn", func(l *Logger) { l.InfoWith("m", nil) }, false},
		{"error level logs error", "error", func(l *Logger) { l.ErrorWith("m", nil, nil) }, true},
		{"disabled skips error", "disabled", func(l *Logger) { l.ErrorWith("m", nil, nil) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.logFunc(New(&Config{Level: tt.level, Format: "json", Output: buf}))

			if tt.expected {
				assert.NotEmpty(t, buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestLogger_Context(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	FromContext(l.WithContext(context.Background()), Nop()).InfoWith("from context", nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "from context", entry["message"])
}

func TestFromContext_Fallback(t *testing.T) {
	fallback := New(&Config{Level: "info", Output: io.Discard})
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	// Must not panic and must not write anywhere.
	FromContext(context.Background(), nil).ErrorWith("dropped", errors.New("x"), nil)
}

func BenchmarkLogger_DebugWith(b *testing.B) {
	l := New(&Config{Level: "debug", Format: "json", Output: io.Discard})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.DebugWith("request", map[string]interface{}{"method": "GET", "status": 200})
	}
}
