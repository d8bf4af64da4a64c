// Package levelcache keeps one laid-out graph per navigation level.
//
// Each level has a single entry keyed by the identifier that produced it.
// A request for a different key replaces the entry and dispatches a fetch
// in the background; results that arrive for a replaced request are
// discarded. Fetch, conversion and layout run inside a singleflight group,
// so concurrent requests for the same level and key share one flight.
package levelcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// subscriberBuffer is the channel depth of each subscription.
const subscriberBuffer = 64

// Layouter computes positions for a validated snapshot.
type Layouter interface {
	Layout(s *domain.Snapshot, p domain.LayoutParams) *domain.PositionedSnapshot
}

// Options configures a Cache.
type Options struct {
	Layout      domain.LayoutConfig
	StrictEdges bool
}

// DefaultOptions returns the per-level default layout parameters and
// lenient edge handling.
func DefaultOptions() Options {
	return Options{Layout: domain.DefaultConfig().Layout}
}

type entry struct {
	key      domain.Key
	status   domain.Status
	snapshot *domain.PositionedSnapshot
	err      error
	request  uint64
	settled  chan struct{}
}

func (e *entry) view(level domain.Level) domain.LevelView {
	return domain.LevelView{
		Level:    level,
		Key:      e.key,
		Status:   e.status,
		Snapshot: e.snapshot,
		Err:      e.err,
	}
}

// Cache holds the three level entries. It is safe for concurrent use.
type Cache struct {
	fetcher ports.Fetcher
	layout  Layouter
	tracer  ports.Tracer
	logger  ports.Logger
	opts    Options

	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	entries  [domain.LevelCount]entry
	requests uint64
	subs     map[int]chan domain.LevelView
	nextSub  int
	closed   bool
}

// New creates a Cache. It fails when any level's layout parameters are invalid.
func New(
	fetcher ports.Fetcher,
	layout Layouter,
	tracer ports.Tracer,
	logger ports.Logger,
	opts Options,
) (*Cache, error) {
	for _, level := range domain.Levels {
		if err := opts.Layout.For(level).Validate(); err != nil {
			return nil, zerr.With(err, "level", level.String())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		fetcher: fetcher,
		layout:  layout,
		tracer:  tracer,
		logger:  logger,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[int]chan domain.LevelView),
	}, nil
}

// GetOrFetch returns the entry for level, dispatching a fetch when the
// entry does not hold key or holds a failure for it. It never blocks on
// the fetch: a dispatched or in-flight request is reported as Loading.
func (c *Cache) GetOrFetch(ctx context.Context, level domain.Level, key domain.Key) (domain.LevelView, error) {
	if !level.Valid() {
		return domain.LevelView{}, zerr.With(zerr.Wrap(domain.ErrUnknownLevel, "cannot fetch level"), "level", int(level))
	}
	if err := key.ValidFor(level); err != nil {
		return domain.LevelView{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.LevelView{}, domain.ErrCacheClosed
	}

	e := &c.entries[level]
	if e.key == key && (e.status == domain.StatusReady || e.status == domain.StatusLoading) {
		return e.view(level), nil
	}

	if e.status == domain.StatusLoading {
		close(e.settled)
	}
	c.requests++
	*e = entry{
		key:     key,
		status:  domain.StatusLoading,
		request: c.requests,
		settled: make(chan struct{}),
	}
	c.dispatch(ctx, level, key, e.request)

	v := e.view(level)
	c.publish(v)
	return v, nil
}

// View returns a copy of the entry for level.
func (c *Cache) View(level domain.Level) domain.LevelView {
	if !level.Valid() {
		return domain.LevelView{Level: level}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[level].view(level)
}

// Views returns a copy of every entry, top level first.
func (c *Cache) Views() [domain.LevelCount]domain.LevelView {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out [domain.LevelCount]domain.LevelView
	for _, level := range domain.Levels {
		out[level] = c.entries[level].view(level)
	}
	return out
}

// Wait blocks until the entry for level is no longer Loading, following
// replacements made while waiting.
func (c *Cache) Wait(ctx context.Context, level domain.Level) (domain.LevelView, error) {
	if !level.Valid() {
		return domain.LevelView{}, zerr.With(zerr.Wrap(domain.ErrUnknownLevel, "cannot wait for level"), "level", int(level))
	}
	for {
		c.mu.Lock()
		e := c.entries[level]
		c.mu.Unlock()

		if e.status != domain.StatusLoading {
			return e.view(level), nil
		}
		select {
		case <-e.settled:
		case <-ctx.Done():
			return e.view(level), ctx.Err()
		}
	}
}

// Subscribe returns a channel that receives every entry change. Changes
// are dropped for subscribers that fall behind. The returned function
// cancels the subscription.
func (c *Cache) Subscribe() (<-chan domain.LevelView, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan domain.LevelView, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close cancels outstanding fetches, waits for them to finish and closes
// every subscription.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	return nil
}

// dispatch starts or joins the flight for level and key. Callers hold c.mu.
func (c *Cache) dispatch(ctx context.Context, level domain.Level, key domain.Key, request uint64) {
	c.wg.Add(1)
	flight := c.group.DoChan(flightKey(level, key), func() (any, error) {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(c.ctx, cancel)
		defer stop()

		return c.load(fctx, level, key)
	})

	go func() {
		defer c.wg.Done()
		res := <-flight
		c.complete(level, key, request, res)
	}()
}

func (c *Cache) complete(level domain.Level, key domain.Key, request uint64, res singleflight.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &c.entries[level]
	if e.request != request {
		c.logger.Warn(fmt.Sprintf("discarding stale %s result for key %q", level, key))
		return
	}

	if res.Err != nil {
		e.status = domain.StatusFailed
		e.err = res.Err
		c.logger.Error(res.Err)
	} else {
		e.status = domain.StatusReady
		e.snapshot, _ = res.Val.(*domain.PositionedSnapshot)
	}
	close(e.settled)
	c.publish(e.view(level))
}

// publish notifies subscribers. Callers hold c.mu.
func (c *Cache) publish(v domain.LevelView) {
	for _, ch := range c.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

func flightKey(level domain.Level, key domain.Key) string {
	return level.String() + "\x00" + string(key)
}

// load fetches, converts and lays out one level.
func (c *Cache) load(ctx context.Context, level domain.Level, key domain.Key) (*domain.PositionedSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, "levelcache.load",
		ports.WithAttribute("level", level.String()),
		ports.WithAttribute("key", key.String()),
	)
	defer span.End()

	payload, err := c.fetch(ctx, level, key)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	snapshot, err := c.convert(ctx, payload)
	if err != nil {
		span.RecordError(err)
		err = zerr.With(zerr.Wrap(err, "level conversion failed"), "level", level.String())
		return nil, zerr.With(err, "key", key.String())
	}

	_, layoutSpan := c.tracer.Start(ctx, "layout")
	params := c.opts.Layout.For(level)
	positioned := c.layout.Layout(snapshot, params)
	layoutSpan.SetAttribute("iterations", params.Iterations)
	layoutSpan.End()

	span.SetAttribute("nodes", snapshot.Len())
	span.SetAttribute("edges", len(positioned.Edges))
	c.logger.Info(fmt.Sprintf("laid out %s %q: %d nodes, %d edges", level, key, snapshot.Len(), len(positioned.Edges)))
	return positioned, nil
}

func (c *Cache) fetch(ctx context.Context, level domain.Level, key domain.Key) (domain.RawPayload, error) {
	ctx, span := c.tracer.Start(ctx, "fetch")
	defer span.End()

	payload, err := c.fetcher.Fetch(ctx, level, key)
	if err == nil && payload == nil {
		err = zerr.New("fetcher returned no payload")
	}
	if err == nil && payload.Level() != level {
		err = zerr.With(zerr.New("payload level mismatch"), "payload_level", payload.Level().String())
	}
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailed) {
			err = errors.Join(domain.ErrFetchFailed, err)
		}
		err = zerr.With(zerr.Wrap(err, "level fetch failed"), "level", level.String())
		err = zerr.With(err, "key", key.String())
		span.RecordError(err)
		return nil, err
	}
	return payload, nil
}

func (c *Cache) convert(ctx context.Context, payload domain.RawPayload) (*domain.Snapshot, error) {
	_, span := c.tracer.Start(ctx, "convert")
	defer span.End()

	snapshot, err := domain.BuildSnapshot(payload, domain.WithStrictEdges(c.opts.StrictEdges))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if dropped := snapshot.DroppedEdges(); dropped > 0 {
		span.SetAttribute("dropped_edges", dropped)
		c.logger.Warn(fmt.Sprintf("dropped %d edges referencing unknown %s nodes", dropped, payload.Level()))
	}
	return snapshot, nil
}
