// Package navigator maps locations to level cache requests and keeps the
// navigation history used for back-navigation.
package navigator

import (
	"context"
	"fmt"
	"sync"

	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryLimit bounds the back-navigation stack.
const DefaultHistoryLimit = 64

// Cache is the level cache the navigator drives.
type Cache interface {
	GetOrFetch(ctx context.Context, level domain.Level, key domain.Key) (domain.LevelView, error)
	View(level domain.Level) domain.LevelView
	Views() [domain.LevelCount]domain.LevelView
	Wait(ctx context.Context, level domain.Level) (domain.LevelView, error)
	Subscribe() (<-chan domain.LevelView, func())
}

// Options configures a Navigator.
type Options struct {
	// PrefetchAncestors also requests the levels above the active one when
	// the location carries their keys.
	PrefetchAncestors bool
	HistoryLimit      int
}

// Descent is the outcome of selecting a node.
type Descent struct {
	// Location is the location after the selection. It is unchanged when
	// a provenance source was selected.
	Location domain.Location
	View     domain.LevelView
	// SourceURL is set when a provenance source was selected.
	SourceURL string
}

// Navigator is the navigation controller. It is safe for concurrent use;
// location changes are applied one at a time.
type Navigator struct {
	cache  Cache
	logger ports.Logger
	opts   Options

	mu      sync.Mutex
	current domain.Location
	history []domain.Location
}

// New creates a Navigator over cache.
func New(cache Cache, logger ports.Logger, opts Options) *Navigator {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &Navigator{
		cache:  cache,
		logger: logger,
		opts:   opts,
	}
}

// Navigate makes loc the current location and ensures its level is
// fetched. Ancestor keys missing from loc are taken from the current
// location.
func (n *Navigator) Navigate(ctx context.Context, loc domain.Location) (domain.LevelView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigate(ctx, loc, true)
}

// NavigatePath parses path and navigates to it.
func (n *Navigator) NavigatePath(ctx context.Context, path string) (domain.LevelView, error) {
	loc, err := domain.ParseLocation(path)
	if err != nil {
		return domain.LevelView{}, err
	}
	return n.Navigate(ctx, loc)
}

// Descend selects nodeID on the current level. Claims lead to their
// statements and statements to their provenance. Selecting a source
// reports its URL without navigating.
func (n *Navigator) Descend(ctx context.Context, nodeID domain.NodeID) (Descent, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	cur := n.current
	if cur.IsZero() {
		return Descent{}, zerr.Wrap(domain.ErrInvalidLocation, "no current location")
	}

	view := n.cache.View(cur.Level)
	if !view.Ready() || view.Key != cur.Key() {
		return Descent{}, zerr.With(zerr.Wrap(domain.ErrLevelNotReady, "cannot select node"), "level", cur.Level.String())
	}
	node, ok := view.Snapshot.Node(nodeID)
	if !ok {
		err := zerr.With(zerr.Wrap(domain.ErrNodeNotFound, "cannot select node"), "node_id", string(nodeID))
		return Descent{}, zerr.With(err, "level", cur.Level.String())
	}

	if cur.Level == domain.LevelProvenance {
		src, _ := node.Payload.(domain.Source)
		if src.URL == "" {
			return Descent{}, zerr.With(zerr.Wrap(domain.ErrNoChildLevel, "source has no url"), "node_id", string(nodeID))
		}
		return Descent{Location: cur, View: view, SourceURL: src.URL}, nil
	}

	next, err := cur.Descend(nodeID)
	if err != nil {
		return Descent{}, err
	}
	v, err := n.navigate(ctx, next, true)
	if err != nil {
		return Descent{}, err
	}
	return Descent{Location: next, View: v}, nil
}

// Back returns to the previous location, or to the parent level when the
// history is empty.
func (n *Navigator) Back(ctx context.Context) (domain.LevelView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.history) > 0 {
		prev := n.history[len(n.history)-1]
		n.history = n.history[:len(n.history)-1]
		return n.navigate(ctx, prev, false)
	}

	if n.current.IsZero() {
		return domain.LevelView{}, zerr.Wrap(domain.ErrNoParentLevel, "no current location")
	}
	parent, err := n.current.Parent()
	if err != nil {
		return domain.LevelView{}, err
	}
	return n.navigate(ctx, parent, false)
}

// Current returns the current location.
func (n *Navigator) Current() domain.Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// CanGoBack reports whether Back has somewhere to go.
func (n *Navigator) CanGoBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.history) > 0 {
		return true
	}
	_, ok := n.current.Level.Parent()
	return ok && !n.current.IsZero()
}

// View returns the entry of one level.
func (n *Navigator) View(level domain.Level) domain.LevelView {
	return n.cache.View(level)
}

// Active returns the entry of the current level.
func (n *Navigator) Active() domain.LevelView {
	return n.cache.View(n.Current().Level)
}

// Views returns every level entry, top level first.
func (n *Navigator) Views() [domain.LevelCount]domain.LevelView {
	return n.cache.Views()
}

// Subscribe forwards the cache's change notifications.
func (n *Navigator) Subscribe() (<-chan domain.LevelView, func()) {
	return n.cache.Subscribe()
}

// Wait blocks until level is no longer loading.
func (n *Navigator) Wait(ctx context.Context, level domain.Level) (domain.LevelView, error) {
	return n.cache.Wait(ctx, level)
}

// WaitAll blocks until no level is loading.
func (n *Navigator) WaitAll(ctx context.Context) ([domain.LevelCount]domain.LevelView, error) {
	var views [domain.LevelCount]domain.LevelView
	g, ctx := errgroup.WithContext(ctx)
	for _, level := range domain.Levels {
		g.Go(func() error {
			v, err := n.cache.Wait(ctx, level)
			views[level] = v
			return err
		})
	}
	err := g.Wait()
	return views, err
}

// navigate applies loc. Callers hold n.mu.
func (n *Navigator) navigate(ctx context.Context, loc domain.Location, record bool) (domain.LevelView, error) {
	loc = loc.Inherit(n.current)
	if err := loc.Validate(); err != nil {
		return domain.LevelView{}, err
	}

	if record && !n.current.IsZero() && n.current != loc {
		n.history = append(n.history, n.current)
		if over := len(n.history) - n.opts.HistoryLimit; over > 0 {
			n.history = n.history[over:]
		}
	}
	n.current = loc

	if n.opts.PrefetchAncestors {
		for _, level := range domain.Levels[:loc.Level] {
			key := loc.KeyFor(level)
			if key.IsZero() {
				continue
			}
			if _, err := n.cache.GetOrFetch(ctx, level, key); err != nil {
				n.logger.Warn(fmt.Sprintf("skipping %s prefetch: %v", level, err))
			}
		}
	}

	return n.cache.GetOrFetch(ctx, loc.Level, loc.Key())
}
