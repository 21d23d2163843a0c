package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlogAdapter_FormatsPrintfStyle(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Info("workflow started session=%s steps=%d", "s-1", 3)

	out := buf.String()
	assert.Contains(t, out, "session=s-1 steps=3")
	assert.NotContains(t, out, "%s")
	assert.NotContains(t, out, "!BADKEY")
}

func TestSlogAdapter_NoArgsPassesMessageThrough(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Warn("orchestrator shut down")

	assert.Contains(t, buf.String(), "orchestrator shut down")
}

func TestCareLogger_FormatsPrintfStyle(t *testing.T) {
	var buf bytes.Buffer
	cl := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf})

	cl.Info("reaped %d idle sessions", 4)

	assert.Contains(t, buf.String(), "reaped 4 idle sessions")
}

func TestCareLogger_LevelGate(t *testing.T) {
	var buf bytes.Buffer
	cl := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	cl.Info("should not appear")
	cl.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestCareLogger_WithHelpersAttachAttrs(t *testing.T) {
	var buf bytes.Buffer
	cl := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	cl.WithComponent("orchestrator").WithSession("s-9").Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"component":"orchestrator"`)
	assert.Contains(t, out, `"session_id":"s-9"`)
}

func TestCareLogger_LogAlertFanout(t *testing.T) {
	var buf bytes.Buffer
	cl := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	cl.WithDevice("watch-1").LogAlertFanout("alert-1", 3, 2, time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "Emergency alert fan-out")
	assert.Contains(t, out, `"alert_id":"alert-1"`)
	assert.Contains(t, out, `"device_id":"watch-1"`)
	assert.Contains(t, out, `"contact_count":3`)
	assert.Contains(t, out, `"delivery_count":2`)
}

func TestCareLogger_ErrorWithStackIncludesTrace(t *testing.T) {
	var buf bytes.Buffer
	cl := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	cl.ErrorWithStack(assert.AnError, "step blew up in %s", "triage")

	out := buf.String()
	assert.Contains(t, out, "step blew up in triage")
	assert.Contains(t, out, "stack_trace")
	assert.Contains(t, out, `"error":`)
}
