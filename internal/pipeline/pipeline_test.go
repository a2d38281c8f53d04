package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/climavida/heatzone-service/internal/domain"
	"github.com/climavida/heatzone-service/internal/observability"
	"github.com/climavida/heatzone-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

var header = []string{"id", "nome", "latitude", "longitude", "temperatura", "ndvi", "densidade_populacional", "regiao"}

// threeZones mirrors the end-to-end examples: one zone per tier.
var threeZones = domain.Table{
	Header: header,
	Records: [][]string{
		{"1", "Centro", "-23.55", "-46.63", "38", "0.1", "15000", "Centro"},
		{"2", "Moema", "-23.60", "-46.66", "22", "0.7", "12000", "Sul"},
		{"3", "Lapa", "-23.52", "-46.70", "30", "0.2", "9000", ""},
	},
}

var oneZone = domain.Table{
	Header:  header,
	Records: [][]string{{"9", "Sé", "-23.55", "-46.63", "n/a", "0.3", "20000", "Centro"}},
}

type step struct {
	table domain.Table
	err   error
}

// mockSource replays steps in order and repeats the last one.
type mockSource struct {
	mu    sync.Mutex
	steps []step
	calls atomic.Int64
}

func (m *mockSource) Fetch(_ context.Context) (domain.Table, error) {
	i := int(m.calls.Add(1) - 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	return m.steps[i].table, m.steps[i].err
}

func (m *mockSource) Name() string { return "mock.csv" }

type mockPublisher struct {
	mu   sync.Mutex
	sets []*domain.ZoneSet
	err  error
}

func (m *mockPublisher) PublishSnapshot(_ context.Context, set *domain.ZoneSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, set)
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(src pipeline.Source, pub pipeline.Publisher) (*pipeline.Pipeline, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return pipeline.New(src, domain.DefaultClassifier(), domain.DefaultRegion, pub, discardLogger(), metrics), metrics
}

// --- tests ---

func TestPipeline_EmptyBeforeFirstLoad(t *testing.T) {
	p, _ := newPipeline(&mockSource{steps: []step{{table: threeZones}}}, nil)

	require.Error(t, p.CheckReadiness(context.Background()))
	assert.Empty(t, p.All())
	assert.Equal(t, domain.Statistics{}, p.Statistics())
	assert.Empty(t, p.ReportRows())
	_, err := p.ByID(1)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPipeline_Reload_HappyPath(t *testing.T) {
	p, metrics := newPipeline(&mockSource{steps: []step{{table: threeZones}}}, nil)

	set, err := p.Reload(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Same(t, set, p.Snapshot())
	assert.Equal(t, "mock.csv", set.Source())

	assert.Len(t, p.All(), 3)
	centro, err := p.ByID(1)
	require.NoError(t, err)
	assert.Equal(t, domain.TierCritical, centro.Tier)

	lapa, err := p.ByID(3)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRegion, lapa.Region)

	want := domain.Statistics{
		TotalZones: 3, CriticalZones: 1, MediumZones: 1, SafeZones: 1,
		AvgTemperature:      30,
		AvgVegetationIndex:  1.0 / 3,
		AvgCriticalityIndex: 80.0 / 3,
	}
	if diff := cmp.Diff(want, p.Statistics(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("statistics mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, p.ByTier(domain.TierMedium), 1)
	assert.Equal(t, 1, p.ReportRows()[0].ZoneID)

	detail, err := p.Detail(2, domain.AudiencePublic)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRecommendations.Safe.Public.Message, detail.Message)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Reloads.WithLabelValues("success")), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(metrics.ZonesLoaded), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ZonesByTier.WithLabelValues("Critical")), 0)
}

func TestPipeline_Reload_CountsCoercionWarnings(t *testing.T) {
	p, metrics := newPipeline(&mockSource{steps: []step{{table: oneZone}}}, nil)

	set, err := p.Reload(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Warnings(), 1)

	z, err := p.ByID(9)
	require.NoError(t, err)
	assert.Nil(t, z.CriticalityIndex)
	assert.Equal(t, domain.TierSafe, z.Tier)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.CoercionWarnings), 0)
}

func TestPipeline_Reload_FailureKeepsPreviousSet(t *testing.T) {
	src := &mockSource{steps: []step{
		{table: threeZones},
		{err: &domain.SourceUnavailableError{Source: "mock.csv", Err: errors.New("disk on fire")}},
		{table: domain.Table{Header: []string{"id", "nome"}, Records: [][]string{{"1", "x"}}}},
	}}
	p, metrics := newPipeline(src, nil)

	before, err := p.Reload(context.Background())
	require.NoError(t, err)

	_, err = p.Reload(context.Background())
	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Same(t, before, p.Snapshot())

	_, err = p.Reload(context.Background())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Same(t, before, p.Snapshot())
	assert.Len(t, p.All(), 3)
	require.NoError(t, p.CheckReadiness(context.Background()))

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Reloads.WithLabelValues("source_error")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Reloads.WithLabelValues("schema_error")), 0)
}

func TestPipeline_Reload_FirstLoadFailureStaysNotReady(t *testing.T) {
	src := &mockSource{steps: []step{{err: &domain.SourceUnavailableError{Source: "mock.csv", Err: errors.New("missing")}}}}
	p, _ := newPipeline(src, nil)

	_, err := p.Reload(context.Background())
	require.Error(t, err)
	require.Error(t, p.CheckReadiness(context.Background()))
	assert.Zero(t, p.Snapshot().Len())
}

func TestPipeline_Reload_PublishesSnapshot(t *testing.T) {
	pub := &mockPublisher{}
	p, metrics := newPipeline(&mockSource{steps: []step{{table: threeZones}}}, pub)

	set, err := p.Reload(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.sets, 1)
	assert.Same(t, set, pub.sets[0])
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SnapshotsPublished.WithLabelValues("success")), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(metrics.SnapshotMessages), 0)
}

func TestPipeline_Reload_PublishFailureIsNotFatal(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	p, metrics := newPipeline(&mockSource{steps: []step{{table: threeZones}}}, pub)

	set, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, set, p.Snapshot())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SnapshotsPublished.WithLabelValues("error")), 0)
}

func TestPipeline_ReadersNeverSeeAPartialSet(t *testing.T) {
	src := &mockSource{}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			src.steps = append(src.steps, step{table: threeZones})
		} else {
			src.steps = append(src.steps, step{table: oneZone})
		}
	}
	p, _ := newPipeline(src, nil)
	_, err := p.Reload(context.Background())
	require.NoError(t, err)

	stop := make(chan struct{})
	var inconsistent atomic.Int64
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				set := p.Snapshot()
				stats := set.Statistics()
				if stats.TotalZones != set.Len() || len(set.ReportRows()) != set.Len() {
					inconsistent.Add(1)
				}
				if n := set.Len(); n != 1 && n != 3 {
					inconsistent.Add(1)
				}
			}
		}()
	}

	var reloads sync.WaitGroup
	for i := 0; i < 2; i++ {
		reloads.Add(1)
		go func() {
			defer reloads.Done()
			for j := 0; j < 24; j++ {
				_, _ = p.Reload(context.Background())
			}
		}()
	}
	reloads.Wait()
	close(stop)
	wg.Wait()

	assert.Zero(t, inconsistent.Load())
	assert.EqualValues(t, 49, src.calls.Load())
}

func TestRefresher_ReloadsOnTick(t *testing.T) {
	src := &mockSource{steps: []step{{table: threeZones}}}
	p, _ := newPipeline(src, nil)
	fakeClock := clockwork.NewFakeClock()
	r := pipeline.NewRefresher(p, time.Minute, fakeClock, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		fakeClock.Advance(time.Minute)
		return p.Snapshot().Len() == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
}

func TestRefresher_RetriesWithBackoff(t *testing.T) {
	failure := step{err: &domain.SourceUnavailableError{Source: "mock.csv", Err: errors.New("timeout")}}
	src := &mockSource{steps: []step{failure, failure, {table: threeZones}}}
	p, metrics := newPipeline(src, nil)
	fakeClock := clockwork.NewFakeClock()
	r := pipeline.NewRefresher(p, time.Minute, fakeClock, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool {
		fakeClock.Advance(10 * time.Second)
		return p.Snapshot().Len() == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, src.calls.Load(), int64(3))
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.Reloads.WithLabelValues("source_error")), 0)
}

func TestRefresher_StopsOnCancelledContext(t *testing.T) {
	p, _ := newPipeline(&mockSource{steps: []step{{table: threeZones}}}, nil)
	r := pipeline.NewRefresher(p, time.Hour, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.Run(ctx))
	assert.Zero(t, p.Snapshot().Len())
}
