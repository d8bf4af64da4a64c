package domain

import (
	"encoding/json"
)

// Status is the lifecycle state of a level cache entry.
type Status int

const (
	// StatusEmpty means nothing has been requested for the level yet.
	StatusEmpty Status = iota
	// StatusLoading means a fetch for the entry's key is in flight.
	StatusLoading
	// StatusReady means the entry holds a laid-out snapshot.
	StatusReady
	// StatusFailed means the last fetch or conversion failed.
	StatusFailed
)

var statusNames = [...]string{"empty", "loading", "ready", "failed"}

// String returns the lowercase status name.
func (s Status) String() string {
	if s < StatusEmpty || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LevelView is a read-only copy of one level cache entry.
type LevelView struct {
	Level    Level
	Key      Key
	Status   Status
	Snapshot *PositionedSnapshot
	Err      error
}

// Ready reports whether the view carries a snapshot.
func (v LevelView) Ready() bool {
	return v.Status == StatusReady && v.Snapshot != nil
}

type levelViewJSON struct {
	Level    Level               `json:"level"`
	Key      Key                 `json:"key,omitempty"`
	Status   Status              `json:"status"`
	Snapshot *PositionedSnapshot `json:"snapshot,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// MarshalJSON renders the error as its message.
func (v LevelView) MarshalJSON() ([]byte, error) {
	out := levelViewJSON{
		Level:    v.Level,
		Key:      v.Key,
		Status:   v.Status,
		Snapshot: v.Snapshot,
	}
	if v.Err != nil {
		out.Error = v.Err.Error()
	}
	return json.Marshal(out)
}
