package eventsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordwise/backend/core"
)

type logEntry struct {
	level string
	msg   string
	args  []interface{}
}

type captureLogger struct {
	entries []logEntry
}

func (l *captureLogger) log(level, msg string, args []interface{}) {
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *captureLogger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

func TestLogPublisher(t *testing.T) {
	logger := new(captureLogger)
	pub := NewLogPublisher(logger)
	ctx := context.Background()

	evt := core.NewEvent(core.EventLevelChanged, "a", map[string]interface{}{"to": "intermediate"})
	require.NoError(t, pub.Publish(ctx, evt))
	require.NoError(t, pub.Publish(ctx, core.NewEvent(core.EventAccountFollowed, "b", nil)))

	require.Len(t, logger.entries, 2)
	first := logger.entries[0]
	assert.Equal(t, "debug", first.level)
	assert.Equal(t, "event "+core.EventLevelChanged, first.msg)
	require.Len(t, first.args, 1)
	fields := first.args[0].(map[string]interface{})
	assert.Equal(t, "a", fields["account_id"])
	assert.Equal(t, evt.Payload, fields["payload"])
	assert.Equal(t, evt.OccurredAt, fields["occurred_at"])
}
