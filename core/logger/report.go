package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *structpb.Struct)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var logEntry structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       StrCounter `json:"sessions"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`
	Interrupts     int        `json:"interrupts"`

	Command      CommandReport      `json:"command_report"`
	SpawnFailure SpawnFailureReport `json:"spawn_failure_report"`
	Job          JobReport          `json:"job_report"`
}

// Update adds a single entry to the report.
func (r *Report) Update(le *structpb.Struct) {
	r.LogEntries++
	if id := GetString(le, FieldSessionID); id != "" {
		r.Sessions.Increment(id)
	}

	switch eventType := GetString(le, FieldType); eventType {
	case EventCommand:
		r.Command.update(le)
	case EventSpawnFailure:
		r.SpawnFailure.update(le)
	case EventJobStarted, EventJobReaped, EventJobDropped:
		r.Job.update(eventType)
	case EventInterrupt:
		r.Interrupts++
	case EventSessionStart, EventSessionEnd:
		// Ignore
	default:
		r.InvalidEntries.Increment(fmt.Sprintf("%q", eventType))
	}
}

type CommandReport struct {
	// Name of the first program on each line.
	CommandNames StrCounter `json:"command_names"`
	// Exit statuses the lines finished with.
	Statuses StrCounter `json:"statuses"`
}

func (r *CommandReport) update(le *structpb.Struct) {
	if fields := strings.Fields(GetString(le, "line")); len(fields) > 0 {
		r.CommandNames.Increment(fields[0])
	}
	r.Statuses.Increment(fmt.Sprintf("%d", int(GetNumber(le, "status"))))
}

type SpawnFailureReport struct {
	Count    int          `json:"count"`
	Failures *PathCounter `json:"failures"`
}

func (r *SpawnFailureReport) update(le *structpb.Struct) {
	if r.Failures == nil {
		r.Failures = NewPathCounter("command", "error")
	}
	r.Count++

	name := ""
	if fields := strings.Fields(GetString(le, "line")); len(fields) > 0 {
		name = fields[0]
	}
	r.Failures.Increment(name, GetString(le, "error"))
}

type JobReport struct {
	Started int `json:"started"`
	Reaped  int `json:"reaped"`
	// Dropped counts jobs that ran untracked because the tracker was full.
	Dropped int `json:"dropped"`
}

func (r *JobReport) update(eventType string) {
	switch eventType {
	case EventJobStarted:
		r.Started++
	case EventJobReaped:
		r.Reaped++
	case EventJobDropped:
		r.Dropped++
	}
}

// SessionReport collects the lines run in each session.
type SessionReport struct {
	// Map of sessionID -> session
	sessions map[string]*Session
}

type Session struct {
	LogEntries int      `json:"log_entries"`
	Commands   []string `json:"commands"`
	Failures   []string `json:"failures,omitempty"`
}

func (s *Session) update(le *structpb.Struct) {
	s.LogEntries++

	switch GetString(le, FieldType) {
	case EventCommand:
		s.Commands = append(s.Commands, GetString(le, "line"))
	case EventSpawnFailure:
		s.Failures = append(s.Failures, GetString(le, "error"))
	}
}

// Update adds a single entry to the report. Entries without a session are
// skipped.
func (r *SessionReport) Update(le *structpb.Struct) {
	if r.sessions == nil {
		r.sessions = make(map[string]*Session)
	}

	sessionID := GetString(le, FieldSessionID)
	if sessionID == "" {
		return
	}
	session, ok := r.sessions[sessionID]
	if !ok {
		session = &Session{}
		r.sessions[sessionID] = session
	}

	session.update(le)
}

// Get returns the session with the given ID.
func (r *SessionReport) Get(sessionID string) (*Session, bool) {
	session, ok := r.sessions[sessionID]
	return session, ok
}

// MarshalJSON implements custom JSON marshaler.
func (r *SessionReport) MarshalJSON() ([]byte, error) {
	if r.sessions == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.sessions)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// Len returns the number of distinct keys seen.
func (s *StrCounter) Len() int {
	return len(s.internal)
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	if s.internal == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings, one per column.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for the tuple.
func (ctr *PathCounter) Get(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implements custom JSON marshaler, emitting the most common
// tuples first.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
