package logger

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event types written to the log.
const (
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
	EventCommand      = "command"
	EventSpawnFailure = "spawn_failure"
	EventJobStarted   = "job_started"
	EventJobReaped    = "job_reaped"
	EventJobDropped   = "job_dropped"
	EventInterrupt    = "interrupt"
)

// Standard fields present on every entry.
const (
	FieldTimestamp = "timestamp_micros"
	FieldSessionID = "session_id"
	FieldType      = "type"
)

// Fields holds the event specific values of an entry. Values must be
// representable by structpb.NewValue.
type Fields map[string]interface{}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *structpb.Struct) error

// Logger captures interpreter events.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format. It's safe for concurrent use.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	var mu sync.Mutex
	return &Logger{
		Record: func(le *structpb.Struct) error {
			entry, err := protojson.Marshal(le)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// Discard returns a Logger that drops every event.
func Discard() *Logger {
	return &Logger{
		Record: func(*structpb.Struct) error { return nil },
	}
}

func (l *Logger) recordEvent(sessionID, eventType string, fields Fields) error {
	values := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		values[k] = v
	}
	values[FieldTimestamp] = time.Now().UnixNano() / int64(time.Microsecond)
	values[FieldSessionID] = sessionID
	values[FieldType] = eventType

	le, err := structpb.NewStruct(values)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}
	return l.Record(le)
}

// NewSession creates a logger with a fresh session ID attached.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: uuid.NewString()}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID returns the ID stamped on every entry.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// Record writes an event of the given type.
func (l *SessionLogger) Record(eventType string, fields Fields) error {
	return l.recordEvent(l.sessionID, eventType, fields)
}

// Command logs a line the interpreter ran and the status it finished with.
func (l *SessionLogger) Command(line string, status int) error {
	return l.Record(EventCommand, Fields{
		"line":   line,
		"status": status,
	})
}

// SpawnFailure logs a pipeline that couldn't be started.
func (l *SessionLogger) SpawnFailure(line string, err error) error {
	return l.Record(EventSpawnFailure, Fields{
		"line":  line,
		"error": err.Error(),
	})
}

// Job logs a background job changing state, eventType is one of
// EventJobStarted, EventJobReaped or EventJobDropped.
func (l *SessionLogger) Job(eventType string, pid int, command string) error {
	return l.Record(eventType, Fields{
		"pid":     pid,
		"command": command,
	})
}

// GetString returns a string field of le, or "" if it's missing.
func GetString(le *structpb.Struct, name string) string {
	return le.GetFields()[name].GetStringValue()
}

// GetNumber returns a numeric field of le, or 0 if it's missing.
func GetNumber(le *structpb.Struct, name string) float64 {
	return le.GetFields()[name].GetNumberValue()
}
