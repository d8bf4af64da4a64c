package levelcache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/claimgraph/internal/adapters/telemetry"
	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports/mocks"
	"go.trai.ch/claimgraph/internal/engine/layout"
	"go.trai.ch/claimgraph/internal/engine/levelcache"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

const waitTimeout = 5 * time.Second

func claims(ids ...int64) *domain.ClaimsPayload {
	p := &domain.ClaimsPayload{Nodes: ids}
	for i := 1; i < len(ids); i++ {
		p.Edges = append(p.Edges, []int64{ids[i-1], ids[i]})
	}
	return p
}

type fixture struct {
	cache   *levelcache.Cache
	fetcher *mocks.MockFetcher
	logger  *mocks.MockLogger
}

func newFixture(t *testing.T, opts levelcache.Options) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()

	cache, err := levelcache.New(fetcher, layout.NewEngine(), telemetry.NewNoOpTracer(), logger, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	return &fixture{cache: cache, fetcher: fetcher, logger: logger}
}

func wait(t *testing.T, c *levelcache.Cache, level domain.Level) domain.LevelView {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	v, err := c.Wait(ctx, level)
	require.NoError(t, err)
	return v
}

func TestCache_FetchesAndLaysOut(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())
	ctx := context.Background()

	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
		Return(claims(1, 2, 3), nil)

	assert.Equal(t, domain.StatusEmpty, f.cache.View(domain.LevelClaims).Status)

	v, err := f.cache.GetOrFetch(ctx, domain.LevelClaims, "video")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLoading, v.Status)
	assert.Equal(t, domain.Key("video"), v.Key)

	v = wait(t, f.cache, domain.LevelClaims)
	require.True(t, v.Ready())
	assert.Len(t, v.Snapshot.Nodes, 3)
	assert.Len(t, v.Snapshot.Edges, 2)
	assert.NoError(t, v.Err)

	n, ok := v.Snapshot.Node("1")
	require.True(t, ok)
	assert.Equal(t, "Unknown", n.Payload.(domain.Claim).Title)
}

func TestCache_ReadyEntryIsNotRefetched(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())
	ctx := context.Background()

	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelStatements, domain.Key("7")).
		Return(&domain.StatementsPayload{Nodes: []int64{1, 2}}, nil).
		Times(1)

	_, err := f.cache.GetOrFetch(ctx, domain.LevelStatements, "7")
	require.NoError(t, err)
	first := wait(t, f.cache, domain.LevelStatements)
	require.True(t, first.Ready())

	again, err := f.cache.GetOrFetch(ctx, domain.LevelStatements, "7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, again.Status)
	assert.Same(t, first.Snapshot, again.Snapshot)
}

func TestCache_ConcurrentRequestsShareOneFetch(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())
	ctx := context.Background()

	release := make(chan struct{})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
		DoAndReturn(func(context.Context, domain.Level, domain.Key) (domain.RawPayload, error) {
			<-release
			return claims(1, 2), nil
		}).
		Times(1)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.cache.GetOrFetch(ctx, domain.LevelClaims, "video")
			assert.NoError(t, err)
			assert.NotEqual(t, domain.StatusEmpty, v.Status)
		}()
	}
	wg.Wait()

	assert.Equal(t, domain.StatusLoading, f.cache.View(domain.LevelClaims).Status)
	close(release)
	assert.True(t, wait(t, f.cache, domain.LevelClaims).Ready())
}

func TestCache_StaleResultIsDiscarded(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())
	ctx := context.Background()

	releaseA := make(chan struct{})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelStatements, domain.Key("1")).
		DoAndReturn(func(context.Context, domain.Level, domain.Key) (domain.RawPayload, error) {
			<-releaseA
			return &domain.StatementsPayload{Nodes: []int64{10, 11}}, nil
		})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelStatements, domain.Key("2")).
		Return(&domain.StatementsPayload{Nodes: []int64{20, 21, 22}}, nil)
	f.logger.EXPECT().Warn(gomock.Any()).Times(1)

	_, err := f.cache.GetOrFetch(ctx, domain.LevelStatements, "1")
	require.NoError(t, err)
	_, err = f.cache.GetOrFetch(ctx, domain.LevelStatements, "2")
	require.NoError(t, err)

	v := wait(t, f.cache, domain.LevelStatements)
	require.True(t, v.Ready())
	assert.Equal(t, domain.Key("2"), v.Key)

	close(releaseA)
	require.NoError(t, f.cache.Close())

	v = f.cache.View(domain.LevelStatements)
	assert.Equal(t, domain.Key("2"), v.Key)
	require.True(t, v.Ready())
	assert.Len(t, v.Snapshot.Nodes, 3)
	_, ok := v.Snapshot.Node("20")
	assert.True(t, ok)
}

func TestCache_ReturningToInFlightKeyReusesFlight(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())
	ctx := context.Background()

	releaseA := make(chan struct{})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelProvenance, domain.Key("1")).
		DoAndReturn(func(context.Context, domain.Level, domain.Key) (domain.RawPayload, error) {
			<-releaseA
			return &domain.ProvenancePayload{Nodes: []int64{5}}, nil
		}).
		Times(1)
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelProvenance, domain.Key("2")).
		Return(&domain.ProvenancePayload{Nodes: []int64{6, 7}}, nil).
		Times(1)
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	_, err := f.cache.GetOrFetch(ctx, domain.LevelProvenance, "1")
	require.NoError(t, err)
	_, err = f.cache.GetOrFetch(ctx, domain.LevelProvenance, "2")
	require.NoError(t, err)
	back, err := f.cache.GetOrFetch(ctx, domain.LevelProvenance, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLoading, back.Status)

	close(releaseA)
	require.NoError(t, f.cache.Close())

	v := f.cache.View(domain.LevelProvenance)
	assert.Equal(t, domain.Key("1"), v.Key)
	require.True(t, v.Ready())
	assert.Len(t, v.Snapshot.Nodes, 1)
}

func TestCache_FailureIsRetried(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())
	ctx := context.Background()

	gomock.InOrder(
		f.fetcher.EXPECT().
			Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
			Return(nil, errors.New("connection refused")),
		f.fetcher.EXPECT().
			Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
			Return(claims(1), nil),
	)
	f.logger.EXPECT().Error(gomock.Any()).Times(1)

	_, err := f.cache.GetOrFetch(ctx, domain.LevelClaims, "video")
	require.NoError(t, err)
	v := wait(t, f.cache, domain.LevelClaims)
	assert.Equal(t, domain.StatusFailed, v.Status)
	require.ErrorIs(t, v.Err, domain.ErrFetchFailed)
	assert.Nil(t, v.Snapshot)

	v, err = f.cache.GetOrFetch(ctx, domain.LevelClaims, "video")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLoading, v.Status)
	assert.NoError(t, v.Err)

	v = wait(t, f.cache, domain.LevelClaims)
	assert.True(t, v.Ready())
}

func TestCache_FetcherErrorKindIsKept(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"not found", domain.ErrNotFound, domain.ErrNotFound},
		{"decode", domain.ErrPayloadDecode, domain.ErrPayloadDecode},
		{"bare fetch failure", domain.ErrFetchFailed, domain.ErrFetchFailed},
		{"wrapped not found", zerr.Wrap(domain.ErrNotFound, "backend has no data"), domain.ErrNotFound},
		{"foreign error", errors.New("connection refused"), domain.ErrFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, levelcache.DefaultOptions())

			f.fetcher.EXPECT().
				Fetch(gomock.Any(), domain.LevelStatements, domain.Key("404")).
				Return(nil, tt.err)
			f.logger.EXPECT().Error(gomock.Any())

			_, err := f.cache.GetOrFetch(context.Background(), domain.LevelStatements, "404")
			require.NoError(t, err)

			v := wait(t, f.cache, domain.LevelStatements)
			assert.Equal(t, domain.StatusFailed, v.Status)
			assert.ErrorIs(t, v.Err, tt.kind)
			assert.ErrorIs(t, v.Err, domain.ErrFetchFailed)

			var zErr *zerr.Error
			require.ErrorAs(t, v.Err, &zErr)
			assert.Equal(t, "statements", zErr.Metadata()["level"])
			assert.Equal(t, "404", zErr.Metadata()["key"])
		})
	}
}

func TestCache_DuplicateNodesFailTheLevel(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())

	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
		Return(&domain.ClaimsPayload{Nodes: []int64{1, 2, 1}}, nil)
	f.logger.EXPECT().Error(gomock.Any())

	_, err := f.cache.GetOrFetch(context.Background(), domain.LevelClaims, "video")
	require.NoError(t, err)

	v := wait(t, f.cache, domain.LevelClaims)
	assert.Equal(t, domain.StatusFailed, v.Status)
	assert.ErrorIs(t, v.Err, domain.ErrDuplicateNode)
	assert.True(t, domain.IsMalformed(v.Err))
}

func TestCache_DanglingEdgesAreDropped(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())

	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
		Return(&domain.ClaimsPayload{Nodes: []int64{1, 2}, Edges: [][]int64{{1, 2}, {2, 9}}}, nil)
	f.logger.EXPECT().Warn(gomock.Any()).Times(1)

	_, err := f.cache.GetOrFetch(context.Background(), domain.LevelClaims, "video")
	require.NoError(t, err)

	v := wait(t, f.cache, domain.LevelClaims)
	require.True(t, v.Ready())
	assert.Equal(t, []domain.Edge{{Source: "1", Target: "2"}}, v.Snapshot.Edges)
}

func TestCache_StrictEdgesFailTheLevel(t *testing.T) {
	opts := levelcache.DefaultOptions()
	opts.StrictEdges = true
	f := newFixture(t, opts)

	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
		Return(&domain.ClaimsPayload{Nodes: []int64{1}, Edges: [][]int64{{1, 2}}}, nil)
	f.logger.EXPECT().Error(gomock.Any())

	_, err := f.cache.GetOrFetch(context.Background(), domain.LevelClaims, "video")
	require.NoError(t, err)

	v := wait(t, f.cache, domain.LevelClaims)
	assert.Equal(t, domain.StatusFailed, v.Status)
	assert.ErrorIs(t, v.Err, domain.ErrDanglingEdge)
}

func TestCache_PayloadForWrongLevelFails(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())

	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelStatements, domain.Key("3")).
		Return(claims(1), nil)
	f.logger.EXPECT().Error(gomock.Any())

	_, err := f.cache.GetOrFetch(context.Background(), domain.LevelStatements, "3")
	require.NoError(t, err)

	v := wait(t, f.cache, domain.LevelStatements)
	assert.Equal(t, domain.StatusFailed, v.Status)
	assert.ErrorIs(t, v.Err, domain.ErrFetchFailed)
}

func TestCache_LevelsAreIndependent(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())
	ctx := context.Background()

	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).Return(claims(1, 2), nil)
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelStatements, domain.Key("1")).
		Return(&domain.StatementsPayload{Nodes: []int64{3}}, nil)

	_, err := f.cache.GetOrFetch(ctx, domain.LevelClaims, "video")
	require.NoError(t, err)
	_, err = f.cache.GetOrFetch(ctx, domain.LevelStatements, "1")
	require.NoError(t, err)

	wait(t, f.cache, domain.LevelClaims)
	wait(t, f.cache, domain.LevelStatements)

	views := f.cache.Views()
	assert.True(t, views[domain.LevelClaims].Ready())
	assert.True(t, views[domain.LevelStatements].Ready())
	assert.Equal(t, domain.StatusEmpty, views[domain.LevelProvenance].Status)
}

func TestCache_RejectsBadInput(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())
	ctx := context.Background()

	_, err := f.cache.GetOrFetch(ctx, domain.Level(7), "x")
	require.ErrorIs(t, err, domain.ErrUnknownLevel)

	_, err = f.cache.GetOrFetch(ctx, domain.LevelClaims, "")
	require.ErrorIs(t, err, domain.ErrInvalidKey)

	_, err = f.cache.GetOrFetch(ctx, domain.LevelStatements, "abc")
	require.ErrorIs(t, err, domain.ErrInvalidKey)

	assert.Equal(t, domain.StatusEmpty, f.cache.View(domain.LevelStatements).Status)
}

func TestCache_SubscribeReceivesTransitions(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())

	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).Return(claims(1), nil)

	updates, cancel := f.cache.Subscribe()
	defer cancel()

	_, err := f.cache.GetOrFetch(context.Background(), domain.LevelClaims, "video")
	require.NoError(t, err)

	var statuses []domain.Status
	timeout := time.After(waitTimeout)
	for len(statuses) < 2 {
		select {
		case v := <-updates:
			assert.Equal(t, domain.LevelClaims, v.Level)
			statuses = append(statuses, v.Status)
		case <-timeout:
			t.Fatal("timed out waiting for updates")
		}
	}
	assert.Equal(t, []domain.Status{domain.StatusLoading, domain.StatusReady}, statuses)
}

func TestCache_CloseStopsFetches(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())

	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
		DoAndReturn(func(ctx context.Context, _ domain.Level, _ domain.Key) (domain.RawPayload, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	f.logger.EXPECT().Error(gomock.Any())

	updates, _ := f.cache.Subscribe()

	_, err := f.cache.GetOrFetch(context.Background(), domain.LevelClaims, "video")
	require.NoError(t, err)
	require.NoError(t, f.cache.Close())

	v := f.cache.View(domain.LevelClaims)
	assert.Equal(t, domain.StatusFailed, v.Status)
	assert.ErrorIs(t, v.Err, context.Canceled)

	_, err = f.cache.GetOrFetch(context.Background(), domain.LevelClaims, "other")
	require.ErrorIs(t, err, domain.ErrCacheClosed)

	for range updates {
	}
}

func TestCache_WaitHonorsContext(t *testing.T) {
	f := newFixture(t, levelcache.DefaultOptions())

	release := make(chan struct{})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelClaims, domain.Key("video")).
		DoAndReturn(func(context.Context, domain.Level, domain.Key) (domain.RawPayload, error) {
			<-release
			return claims(1), nil
		})
	defer close(release)

	_, err := f.cache.GetOrFetch(context.Background(), domain.LevelClaims, "video")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	v, err := f.cache.Wait(ctx, domain.LevelClaims)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.StatusLoading, v.Status)
}

func TestNew_RejectsInvalidParams(t *testing.T) {
	ctrl := gomock.NewController(t)
	opts := levelcache.DefaultOptions()
	opts.Layout.Levels[domain.LevelProvenance].Iterations = 0

	_, err := levelcache.New(mocks.NewMockFetcher(ctrl), layout.NewEngine(), telemetry.NewNoOpTracer(), mocks.NewMockLogger(ctrl), opts)
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
}
