package navigator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/claimgraph/internal/adapters/telemetry"
	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports/mocks"
	"go.trai.ch/claimgraph/internal/engine/layout"
	"go.trai.ch/claimgraph/internal/engine/levelcache"
	"go.trai.ch/claimgraph/internal/engine/navigator"
	"go.uber.org/mock/gomock"
)

const video = "https://www.youtube.com/watch?v=abc"

var (
	claimsPayload = &domain.ClaimsPayload{
		Nodes: []int64{1, 2},
		Names: []string{"Vaccines contain chips", "Moon landing staged"},
		Edges: [][]int64{{1, 2}},
	}
	statementsPayload = &domain.StatementsPayload{
		Nodes: []int64{10, 11},
		Text:  []string{"first", "second"},
		Dates: []domain.Timestamp{domain.ParseTimestamp("01:05"), domain.ParseTimestamp("12")},
	}
	provenancePayload = &domain.ProvenancePayload{
		Nodes:    []int64{100, 101},
		NodeName: []string{"Blog", "Forum"},
		URLs:     []string{"https://blog.example/post"},
		Edge:     [][]int64{{100, 101}},
	}
)

type fixture struct {
	nav     *navigator.Navigator
	fetcher *mocks.MockFetcher
	logger  *mocks.MockLogger
}

func newFixture(t *testing.T, opts navigator.Options) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()

	cache, err := levelcache.New(fetcher, layout.NewEngine(), telemetry.NewNoOpTracer(), logger, levelcache.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	return &fixture{
		nav:     navigator.New(cache, logger, opts),
		fetcher: fetcher,
		logger:  logger,
	}
}

func (f *fixture) wait(t *testing.T, level domain.Level) domain.LevelView {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f.nav.Wait(ctx, level)
	require.NoError(t, err)
	return v
}

func TestNavigator_DrillDownAndBack(t *testing.T) {
	f := newFixture(t, navigator.Options{})
	ctx := context.Background()

	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelClaims, domain.Key(video)).Return(claimsPayload, nil).Times(1)
	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelStatements, domain.Key("1")).Return(statementsPayload, nil).Times(1)
	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelProvenance, domain.Key("10")).Return(provenancePayload, nil).Times(1)

	v, err := f.nav.Navigate(ctx, domain.Location{Level: domain.LevelClaims, Video: video})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLoading, v.Status)
	require.True(t, f.wait(t, domain.LevelClaims).Ready())

	d, err := f.nav.Descend(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.Location{Level: domain.LevelStatements, Video: video, Claim: "1"}, d.Location)
	assert.Empty(t, d.SourceURL)
	require.True(t, f.wait(t, domain.LevelStatements).Ready())

	d, err = f.nav.Descend(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "/misinformation/1/subnode/10", d.Location.Path())
	require.True(t, f.wait(t, domain.LevelProvenance).Ready())

	d, err = f.nav.Descend(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example/post", d.SourceURL)
	assert.Equal(t, domain.LevelProvenance, f.nav.Current().Level)

	_, err = f.nav.Descend(ctx, "101")
	require.ErrorIs(t, err, domain.ErrNoChildLevel)

	views := f.nav.Views()
	for _, level := range domain.Levels {
		assert.True(t, views[level].Ready(), level.String())
	}

	v, err = f.nav.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, v.Status)
	assert.Equal(t, domain.LevelStatements, f.nav.Current().Level)

	v, err = f.nav.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, v.Status)
	assert.Equal(t, domain.Location{Level: domain.LevelClaims, Video: video}, f.nav.Current())
	assert.False(t, f.nav.CanGoBack())

	_, err = f.nav.Back(ctx)
	require.ErrorIs(t, err, domain.ErrNoParentLevel)
}

func TestNavigator_RepeatedNavigationIsIdempotent(t *testing.T) {
	f := newFixture(t, navigator.Options{})
	ctx := context.Background()

	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelClaims, domain.Key(video)).Return(claimsPayload, nil).Times(1)

	loc := domain.Location{Level: domain.LevelClaims, Video: video}
	_, err := f.nav.Navigate(ctx, loc)
	require.NoError(t, err)
	first := f.wait(t, domain.LevelClaims)

	for range 3 {
		v, err := f.nav.Navigate(ctx, loc)
		require.NoError(t, err)
		assert.Same(t, first.Snapshot, v.Snapshot)
	}
	assert.False(t, f.nav.CanGoBack())
}

func TestNavigator_DeepLinkInheritsAndPrefetches(t *testing.T) {
	f := newFixture(t, navigator.Options{PrefetchAncestors: true})
	ctx := context.Background()

	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelStatements, domain.Key("4")).Return(statementsPayload, nil).Times(1)
	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelProvenance, domain.Key("9")).Return(provenancePayload, nil).Times(1)

	_, err := f.nav.NavigatePath(ctx, "/misinformation/4/subnode/9")
	require.NoError(t, err)

	views, err := f.nav.WaitAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEmpty, views[domain.LevelClaims].Status)
	assert.True(t, views[domain.LevelStatements].Ready())
	assert.True(t, views[domain.LevelProvenance].Ready())

	assert.True(t, f.nav.CanGoBack())
	v, err := f.nav.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, v.Status)
	assert.Equal(t, domain.Location{Level: domain.LevelStatements, Claim: "4"}, f.nav.Current())
}

func TestNavigator_PathInheritsVideoFromCurrent(t *testing.T) {
	f := newFixture(t, navigator.Options{PrefetchAncestors: true})
	ctx := context.Background()

	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelClaims, domain.Key(video)).Return(claimsPayload, nil).Times(1)
	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelStatements, domain.Key("2")).Return(statementsPayload, nil).Times(1)

	_, err := f.nav.NavigatePath(ctx, "/analyze/https:%2F%2Fwww.youtube.com%2Fwatch%3Fv=abc")
	require.NoError(t, err)
	_, err = f.nav.NavigatePath(ctx, "/misinformation/2")
	require.NoError(t, err)

	assert.Equal(t, domain.Location{Level: domain.LevelStatements, Video: video, Claim: "2"}, f.nav.Current())
	_, err = f.nav.WaitAll(ctx)
	require.NoError(t, err)
}

func TestNavigator_LatestLocationWins(t *testing.T) {
	f := newFixture(t, navigator.Options{})
	ctx := context.Background()

	release := make(chan struct{})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelStatements, domain.Key("1")).
		DoAndReturn(func(context.Context, domain.Level, domain.Key) (domain.RawPayload, error) {
			<-release
			return statementsPayload, nil
		})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelStatements, domain.Key("2")).
		Return(&domain.StatementsPayload{Nodes: []int64{20}}, nil)
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	_, err := f.nav.Navigate(ctx, domain.Location{Level: domain.LevelStatements, Claim: "1"})
	require.NoError(t, err)
	_, err = f.nav.Navigate(ctx, domain.Location{Level: domain.LevelStatements, Claim: "2"})
	require.NoError(t, err)

	v := f.wait(t, domain.LevelStatements)
	close(release)

	require.True(t, v.Ready())
	assert.Equal(t, domain.Key("2"), v.Key)
	_, ok := v.Snapshot.Node("20")
	assert.True(t, ok)
}

func TestNavigator_DescendErrors(t *testing.T) {
	f := newFixture(t, navigator.Options{})
	ctx := context.Background()

	_, err := f.nav.Descend(ctx, "1")
	require.ErrorIs(t, err, domain.ErrInvalidLocation)

	release := make(chan struct{})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.LevelClaims, domain.Key(video)).
		DoAndReturn(func(context.Context, domain.Level, domain.Key) (domain.RawPayload, error) {
			<-release
			return claimsPayload, nil
		})

	_, err = f.nav.Navigate(ctx, domain.Location{Level: domain.LevelClaims, Video: video})
	require.NoError(t, err)

	_, err = f.nav.Descend(ctx, "1")
	require.ErrorIs(t, err, domain.ErrLevelNotReady)

	close(release)
	f.wait(t, domain.LevelClaims)

	_, err = f.nav.Descend(ctx, "99")
	require.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestNavigator_InvalidLocationKeepsCurrent(t *testing.T) {
	f := newFixture(t, navigator.Options{})
	ctx := context.Background()

	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelClaims, domain.Key(video)).Return(claimsPayload, nil)

	_, err := f.nav.Navigate(ctx, domain.Location{Level: domain.LevelClaims, Video: video})
	require.NoError(t, err)

	_, err = f.nav.Navigate(ctx, domain.Location{Level: domain.LevelStatements, Claim: "abc"})
	require.ErrorIs(t, err, domain.ErrInvalidLocation)

	_, err = f.nav.NavigatePath(ctx, "/elsewhere")
	require.ErrorIs(t, err, domain.ErrInvalidLocation)

	assert.Equal(t, domain.LevelClaims, f.nav.Current().Level)
	assert.False(t, f.nav.CanGoBack())
	f.wait(t, domain.LevelClaims)
}

func TestNavigator_FailedLevelDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t, navigator.Options{})
	ctx := context.Background()

	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelClaims, domain.Key(video)).Return(claimsPayload, nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), domain.LevelStatements, domain.Key("1")).Return(nil, domain.ErrNotFound)
	f.logger.EXPECT().Error(gomock.Any())

	_, err := f.nav.Navigate(ctx, domain.Location{Level: domain.LevelClaims, Video: video})
	require.NoError(t, err)
	f.wait(t, domain.LevelClaims)

	_, err = f.nav.Descend(ctx, "1")
	require.NoError(t, err)
	v := f.wait(t, domain.LevelStatements)
	assert.Equal(t, domain.StatusFailed, v.Status)
	assert.ErrorIs(t, v.Err, domain.ErrNotFound)

	v, err = f.nav.Back(ctx)
	require.NoError(t, err)
	assert.True(t, v.Ready())
	assert.True(t, f.nav.Active().Ready())
}
