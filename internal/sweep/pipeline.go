// Package sweep composes the per-domain crawl-and-verify pipeline: robots
// policy, politeness delay, record fetch, pulse check.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openbusinessrecord/obr-registry/internal/metrics"
	"github.com/openbusinessrecord/obr-registry/internal/registry"
	"github.com/openbusinessrecord/obr-registry/internal/submission"
)

// EventRecordAccepted names the event published for each ingested record.
const EventRecordAccepted = "record.accepted"

// PolicyGate evaluates a domain's crawling policy for the record path.
type PolicyGate interface {
	Check(ctx context.Context, domain string) registry.CrawlPolicy
}

// RecordFetcher retrieves a candidate record from a domain.
type RecordFetcher interface {
	Fetch(ctx context.Context, domain string) (registry.FetchResult, error)
}

// Verifier judges record freshness.
type Verifier interface {
	Fresh(record registry.BusinessRecord) (time.Time, bool)
}

// Store persists accepted records. Optional.
type Store interface {
	SaveRecord(ctx context.Context, record registry.AcceptedRecord) error
}

// Publisher announces accepted records. Optional.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Pipeline runs the sync sweep. Each domain attempt is independent: an
// early negative outcome or failure is recorded and never aborts the rest
// of the sweep.
type Pipeline struct {
	gate      PolicyGate
	fetcher   RecordFetcher
	verifier  Verifier
	store     Store
	publisher Publisher
	clock     registry.Clock
	logger    *zap.Logger

	sleep func(context.Context, time.Duration) error
}

// New constructs a Pipeline. Store and publisher may be nil, in which case
// accepted records are only logged and counted.
func New(
	gate PolicyGate,
	fetcher RecordFetcher,
	verifier Verifier,
	store Store,
	publisher Publisher,
	clock registry.Clock,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		gate:      gate,
		fetcher:   fetcher,
		verifier:  verifier,
		store:     store,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		sleep:     sleepWithContext,
	}
}

// Run sweeps every target sequentially and returns one result per domain.
func (p *Pipeline) Run(ctx context.Context, targets []registry.DomainTarget) []registry.SyncResult {
	results := make([]registry.SyncResult, 0, len(targets))
	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		result := p.SyncDomain(ctx, target)
		metrics.ObserveSyncOutcome(string(result.Outcome))
		results = append(results, result)
	}
	return results
}

// SyncDomain runs one domain through the pipeline: policy gate, politeness
// delay, record fetch, freshness check.
func (p *Pipeline) SyncDomain(ctx context.Context, target registry.DomainTarget) registry.SyncResult {
	domain := target.Domain
	logger := p.logger.With(zap.String("domain", domain))

	policy := p.gate.Check(ctx, domain)
	if !policy.Allowed {
		logger.Info("crawl disallowed by robots policy")
		return registry.SyncResult{Domain: domain, Outcome: registry.OutcomeDisallowed}
	}

	if err := p.sleep(ctx, policy.Delay); err != nil {
		return registry.SyncResult{Domain: domain, Outcome: registry.OutcomeFetchError, Err: err}
	}

	fetched, err := p.fetcher.Fetch(ctx, domain)
	if err != nil {
		logger.Warn("record fetch failed", zap.Error(err))
		return registry.SyncResult{Domain: domain, Outcome: registry.OutcomeFetchError, Err: err}
	}
	if !fetched.Found {
		logger.Info("no business record published")
		return registry.SyncResult{Domain: domain, Outcome: registry.OutcomeAbsent}
	}

	pulse, fresh := p.verifier.Fresh(fetched.Record)
	if !fresh {
		logger.Info("record is stale, needs a pulse",
			zap.String("name", fetched.Record.Name),
			zap.Time("last_pulse", pulse))
		return registry.SyncResult{Domain: domain, Outcome: registry.OutcomeStale}
	}

	record := fetched.Record
	p.ingest(ctx, logger, domain, record, pulse, fetched.Raw)

	logger.Info("record verified and accepted", zap.String("name", record.Name))
	return registry.SyncResult{Domain: domain, Outcome: registry.OutcomeAccepted, Record: &record}
}

// ingest persists and announces an accepted record. Side-output failures
// are logged but do not change the accepted outcome.
func (p *Pipeline) ingest(
	ctx context.Context,
	logger *zap.Logger,
	domain string,
	record registry.BusinessRecord,
	pulse time.Time,
	raw []byte,
) {
	accepted := registry.AcceptedRecord{
		Domain:    domain,
		Slug:      submission.Slugify(record.Name),
		Name:      record.Name,
		URL:       record.URL,
		LastPulse: pulse,
		SyncedAt:  p.clock.Now(),
		Raw:       raw,
	}

	if p.store != nil {
		if err := p.store.SaveRecord(ctx, accepted); err != nil {
			logger.Error("save accepted record failed", zap.Error(err))
		}
	}
	if p.publisher != nil {
		if _, err := p.publisher.Publish(ctx, EventRecordAccepted, accepted); err != nil {
			logger.Warn("publish accepted record failed", zap.Error(err))
		}
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("politeness delay interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
