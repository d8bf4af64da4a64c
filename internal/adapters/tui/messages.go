package tui

import "go.trai.ch/claimgraph/internal/core/domain"

// MsgLevel carries a level entry change from the cache.
type MsgLevel struct {
	View domain.LevelView
}

// MsgUpdatesClosed is sent when the cache subscription ends.
type MsgUpdatesClosed struct{}

// MsgActionDone reports the outcome of a navigation triggered by a key.
type MsgActionDone struct {
	SourceURL string
	Err       error
}
