/*
Package randx generates the identifiers used by the chat core.

Group ids are UUID v4 strings, matching the ids clients already store. Connection
session ids are ULIDs so log lines from one connection sort by the time it was opened.
*/
package randx

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// GroupID returns a fresh UUID v4 string for a new group.
func GroupID() string {
	return uuid.New().String()
}

// SessionID returns a ULID for a newly accepted connection.
func SessionID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// IsValidGroupID reports whether id parses as a UUID.
func IsValidGroupID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
