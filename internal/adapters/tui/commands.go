// Package tui provides a terminal explorer for the claim graph.
package tui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/claimgraph/internal/core/domain"
)

// WaitForUpdate returns a command that reads the next level change.
func WaitForUpdate(updates <-chan domain.LevelView) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-updates
		if !ok {
			return MsgUpdatesClosed{}
		}
		return MsgLevel{View: v}
	}
}

func descend(ctx context.Context, nav Navigator, id domain.NodeID) tea.Cmd {
	return func() tea.Msg {
		d, err := nav.Descend(ctx, id)
		return MsgActionDone{SourceURL: d.SourceURL, Err: err}
	}
}

func back(ctx context.Context, nav Navigator) tea.Cmd {
	return func() tea.Msg {
		_, err := nav.Back(ctx)
		return MsgActionDone{Err: err}
	}
}

// Relay forwards messages to a program attached after construction, so
// span processors can be built before the program exists.
type Relay struct {
	program atomic.Pointer[tea.Program]
}

// Attach starts forwarding to p.
func (r *Relay) Attach(p *tea.Program) {
	r.program.Store(p)
}

// Send implements telemetry.Sender. Messages sent before Attach are dropped.
func (r *Relay) Send(msg tea.Msg) {
	if p := r.program.Load(); p != nil {
		p.Send(msg)
	}
}
