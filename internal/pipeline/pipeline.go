package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/climavida/heatzone-service/internal/domain"
	"github.com/climavida/heatzone-service/internal/observability"
)

// Source yields the raw zone table on every call.
type Source interface {
	Fetch(ctx context.Context) (domain.Table, error)
	Name() string
}

// Publisher receives every ZoneSet that becomes active.
type Publisher interface {
	PublishSnapshot(ctx context.Context, set *domain.ZoneSet) error
}

// Pipeline owns the active ZoneSet and rebuilds it on Reload. Readers always
// see one complete ZoneSet; a reload swaps the pointer only after the new set
// is fully classified and aggregated.
type Pipeline struct {
	source        Source
	classifier    *domain.Classifier
	defaultRegion string
	publisher     Publisher
	logger        *slog.Logger
	metrics       *observability.Metrics

	current  atomic.Pointer[domain.ZoneSet]
	ready    atomic.Bool
	reloadMu sync.Mutex
}

// New creates a Pipeline with an empty dataset. Call Reload to load the source.
// publisher may be nil.
func New(src Source, c *domain.Classifier, defaultRegion string, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	p := &Pipeline{
		source:        src,
		classifier:    c,
		defaultRegion: defaultRegion,
		publisher:     publisher,
		logger:        logger,
		metrics:       metrics,
	}
	p.current.Store(domain.EmptyZoneSet(c))
	return p
}

// CheckReadiness returns nil once a dataset has been loaded successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no zone dataset has been loaded yet")
	}
	return nil
}

// Reload fetches, validates, classifies and aggregates the source, then makes
// the result the active ZoneSet. On any fatal error the previous ZoneSet stays
// active and the error is returned. Concurrent calls are serialized.
func (p *Pipeline) Reload(ctx context.Context) (*domain.ZoneSet, error) {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	start := time.Now()

	set, err := p.build(ctx)
	if err != nil {
		p.metrics.Reloads.WithLabelValues(reloadOutcome(err)).Inc()
		p.logger.Error("reload failed, keeping previous dataset",
			"error", err,
			"source", p.source.Name(),
			"zones", p.current.Load().Len(),
		)
		return nil, err
	}

	p.current.Store(set)
	p.ready.Store(true)

	p.recordLoad(set, time.Since(start))
	p.publish(ctx, set)

	return set, nil
}

func (p *Pipeline) build(ctx context.Context) (*domain.ZoneSet, error) {
	tbl, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch zones: %w", err)
	}

	zones, warnings, err := domain.ParseTable(tbl, p.defaultRegion)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.source.Name(), err)
	}

	for _, w := range warnings {
		p.logger.Warn("coercion warning",
			"row", w.Row,
			"zone_id", w.ZoneID,
			"field", w.Field,
			"value", w.Value,
		)
	}

	return domain.NewZoneSet(p.source.Name(), zones, warnings, p.classifier), nil
}

func (p *Pipeline) recordLoad(set *domain.ZoneSet, elapsed time.Duration) {
	stats := set.Statistics()

	p.metrics.Reloads.WithLabelValues("success").Inc()
	p.metrics.ReloadDuration.Observe(elapsed.Seconds())
	p.metrics.ZonesLoaded.Set(float64(set.Len()))
	p.metrics.ZonesByTier.WithLabelValues(domain.TierCritical.String()).Set(float64(stats.CriticalZones))
	p.metrics.ZonesByTier.WithLabelValues(domain.TierMedium.String()).Set(float64(stats.MediumZones))
	p.metrics.ZonesByTier.WithLabelValues(domain.TierSafe.String()).Set(float64(stats.SafeZones))
	p.metrics.CoercionWarnings.Add(float64(len(set.Warnings())))

	p.logger.Info("zone dataset loaded",
		"source", set.Source(),
		"zones", set.Len(),
		"critical", stats.CriticalZones,
		"medium", stats.MediumZones,
		"safe", stats.SafeZones,
		"warnings", len(set.Warnings()),
		"duration", elapsed,
	)
}

// publish forwards the new set to the publisher. Failures are logged and
// counted but never undo the reload.
func (p *Pipeline) publish(ctx context.Context, set *domain.ZoneSet) {
	if p.publisher == nil {
		return
	}
	start := time.Now()
	if err := p.publisher.PublishSnapshot(ctx, set); err != nil {
		p.metrics.SnapshotsPublished.WithLabelValues("error").Inc()
		p.logger.Warn("snapshot publish failed", "error", err, "zones", set.Len())
		return
	}
	p.metrics.SnapshotsPublished.WithLabelValues("success").Inc()
	p.metrics.SnapshotMessages.Add(float64(set.Len()))
	p.metrics.SnapshotPublishTime.Observe(time.Since(start).Seconds())
}

func reloadOutcome(err error) string {
	var schemaErr *domain.SchemaError
	var sourceErr *domain.SourceUnavailableError
	switch {
	case errors.As(err, &schemaErr):
		return "schema_error"
	case errors.As(err, &sourceErr):
		return "source_error"
	default:
		return "error"
	}
}

// Snapshot returns the active ZoneSet. Callers that issue several queries
// should take one snapshot so all answers come from the same dataset.
func (p *Pipeline) Snapshot() *domain.ZoneSet {
	return p.current.Load()
}

// All returns every zone of the active dataset in source order.
func (p *Pipeline) All() []domain.Zone { return p.Snapshot().All() }

// ByID returns the zone with the given id, or domain.ErrNotFound.
func (p *Pipeline) ByID(id int) (domain.Zone, error) { return p.Snapshot().ByID(id) }

// ByTier returns the zones of tier t in source order.
func (p *Pipeline) ByTier(t domain.Tier) []domain.Zone { return p.Snapshot().ByTier(t) }

// Detail returns a zone with its recommendation for audience a.
func (p *Pipeline) Detail(id int, a domain.Audience) (domain.ZoneDetail, error) {
	return p.Snapshot().Detail(id, a)
}

// Statistics returns the aggregate of the active dataset.
func (p *Pipeline) Statistics() domain.Statistics { return p.Snapshot().Statistics() }

// ReportRows returns the report view of the active dataset, most critical first.
func (p *Pipeline) ReportRows() []domain.ReportRow { return p.Snapshot().ReportRows() }
