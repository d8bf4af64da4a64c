package tui

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/claimgraph/internal/adapters/telemetry"
	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/engine/navigator"
)

// activityWindow is the number of recent spans shown under the list.
const activityWindow = 5

// Navigator is the navigation controller driven by the explorer.
type Navigator interface {
	Descend(ctx context.Context, nodeID domain.NodeID) (navigator.Descent, error)
	Back(ctx context.Context) (domain.LevelView, error)
	Current() domain.Location
	View(level domain.Level) domain.LevelView
}

// Activity is one traced operation shown in the activity pane.
type Activity struct {
	SpanID   string
	Name     string
	Running  bool
	Failed   bool
	Duration time.Duration
}

// Model is the Bubble Tea model of the explorer.
type Model struct {
	ctx     context.Context
	nav     Navigator
	updates <-chan domain.LevelView

	cursor   int
	shownKey domain.Key
	shownLvl domain.Level
	status   string
	failed   bool

	activity []Activity
	spinner  spinner.Model
	width    int
	height   int
}

// NewModel creates an explorer over nav. updates is the cache
// subscription that drives redraws.
func NewModel(ctx context.Context, nav Navigator, updates <-chan domain.LevelView) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = loadingStyle

	return &Model{
		ctx:      ctx,
		nav:      nav,
		updates:  updates,
		spinner:  s,
		shownLvl: -1,
	}
}

// Init starts listening for level changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForUpdate(m.updates),
		m.spinner.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case MsgLevel:
		m.syncCursor()
		return m, WaitForUpdate(m.updates)
	case MsgUpdatesClosed:
		return m, tea.Quit
	case MsgActionDone:
		m.handleActionDone(msg)
		return m, nil
	case telemetry.MsgSpanStart:
		m.startActivity(msg)
		return m, nil
	case telemetry.MsgSpanEnd:
		m.endActivity(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.Nodes())-1 {
			m.cursor++
		}
	case "enter":
		nodes := m.Nodes()
		if m.cursor < len(nodes) {
			return m, descend(m.ctx, m.nav, nodes[m.cursor].ID)
		}
	case "backspace", "esc":
		return m, back(m.ctx, m.nav)
	}
	return m, nil
}

func (m *Model) handleActionDone(msg MsgActionDone) {
	switch {
	case msg.Err != nil:
		m.status, m.failed = msg.Err.Error(), true
	case msg.SourceURL != "":
		m.status, m.failed = "source: "+msg.SourceURL, false
	default:
		m.status, m.failed = "", false
	}
	m.syncCursor()
}

// syncCursor resets the selection when the shown level or key changes.
func (m *Model) syncCursor() {
	loc := m.nav.Current()
	if loc.Level != m.shownLvl || loc.Key() != m.shownKey {
		m.shownLvl, m.shownKey = loc.Level, loc.Key()
		m.cursor = 0
		return
	}
	if n := len(m.Nodes()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m *Model) startActivity(msg telemetry.MsgSpanStart) {
	m.activity = append(m.activity, Activity{SpanID: msg.SpanID, Name: msg.Name, Running: true})
	if over := len(m.activity) - activityWindow; over > 0 {
		m.activity = m.activity[over:]
	}
}

func (m *Model) endActivity(msg telemetry.MsgSpanEnd) {
	for i := range m.activity {
		if m.activity[i].SpanID == msg.SpanID {
			m.activity[i].Running = false
			m.activity[i].Failed = msg.Err != nil
			m.activity[i].Duration = msg.Duration
			return
		}
	}
}

// Cursor returns the index of the selected node.
func (m *Model) Cursor() int {
	return m.cursor
}

// Activity returns the recent spans, oldest first.
func (m *Model) Activity() []Activity {
	return slices.Clone(m.activity)
}

// Nodes returns the nodes of the current level when it is ready and holds
// the current key.
func (m *Model) Nodes() []domain.PositionedNode {
	loc := m.nav.Current()
	if loc.IsZero() {
		return nil
	}
	v := m.nav.View(loc.Level)
	if !v.Ready() || v.Key != loc.Key() {
		return nil
	}
	return OrderedNodes(v.Snapshot)
}

// OrderedNodes returns the nodes of s sorted top to bottom, then left to
// right, with ids breaking ties.
func OrderedNodes(s *domain.PositionedSnapshot) []domain.PositionedNode {
	if s == nil {
		return nil
	}
	nodes := slices.Clone(s.Nodes)
	slices.SortStableFunc(nodes, func(a, b domain.PositionedNode) int {
		return cmp.Or(
			cmp.Compare(a.Position.Y, b.Position.Y),
			cmp.Compare(a.Position.X, b.Position.X),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return nodes
}
