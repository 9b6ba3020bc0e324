// Package logger records what happened in an interpreter session as a
// newline delimited JSON event log.
//
// Each line is a google.protobuf.Struct in its canonical JSON form with at
// least the "timestamp_micros", "session_id" and "type" fields.
package logger
