package sweep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	collyfetcher "github.com/openbusinessrecord/obr-registry/internal/fetcher/colly"
	"github.com/openbusinessrecord/obr-registry/internal/policy/robots"
	"github.com/openbusinessrecord/obr-registry/internal/publisher/memory"
	"github.com/openbusinessrecord/obr-registry/internal/registry"
	"github.com/openbusinessrecord/obr-registry/internal/verify"
)

const testAgent = "NoNonsenseDirectoryBot/1.0"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memStore struct {
	records []registry.AcceptedRecord
}

func (s *memStore) SaveRecord(_ context.Context, rec registry.AcceptedRecord) error {
	s.records = append(s.records, rec)
	return nil
}

// domainSite serves robots.txt and a record document for one fake domain.
type domainSite struct {
	robots      string
	record      string
	recordCode  int
	recordsHits atomic.Int64
}

func (d *domainSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/robots.txt":
		if d.robots == "" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(d.robots))
	case "/obr-business.json":
		d.recordsHits.Add(1)
		code := d.recordCode
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(d.record))
	default:
		http.NotFound(w, r)
	}
}

func newTestPipeline(t *testing.T, site *domainSite, now time.Time) (*Pipeline, registry.DomainTarget, *memStore, *memory.Publisher) {
	t.Helper()

	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	gate := robots.New(robots.Config{
		UserAgent:  testAgent,
		RecordPath: "/obr-business.json",
		Scheme:     "http",
		Timeout:    5 * time.Second,
	}, zap.NewNop())
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:  testAgent,
		RecordPath: "/obr-business.json",
		Scheme:     "http",
		Timeout:    5 * time.Second,
	})
	clock := fixedClock{now: now}
	store := &memStore{}
	pub := memory.New()

	p := New(gate, fetcher, verify.New(clock), store, pub, clock, zap.NewNop())
	p.sleep = func(context.Context, time.Duration) error { return nil }

	return p, registry.DomainTarget{Domain: u.Host}, store, pub
}

func TestSyncDomainAcceptsFreshRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	site := &domainSite{
		robots: "User-agent: *\nAllow: /\n",
		record: fmt.Sprintf(`{"name": "Stone's Pizza", "url": "https://stonespizza.com",
			"obp_metadata": {"last_pulse": %q}}`, now.AddDate(0, -1, 0).Format(time.RFC3339)),
	}
	p, target, store, pub := newTestPipeline(t, site, now)

	result := p.SyncDomain(context.Background(), target)
	require.Equal(t, registry.OutcomeAccepted, result.Outcome)
	require.NotNil(t, result.Record)
	require.Equal(t, "Stone's Pizza", result.Record.Name)

	require.Len(t, store.records, 1)
	require.Equal(t, "stone-s-pizza", store.records[0].Slug)
	require.Equal(t, target.Domain, store.records[0].Domain)
	require.True(t, store.records[0].SyncedAt.Equal(now))

	published := pub.AcceptedRecords(EventRecordAccepted)
	require.Len(t, published, 1)
	require.Equal(t, "stone-s-pizza", published[0].Slug)
	require.Equal(t, target.Domain, published[0].Domain)
}

func TestSyncDomainDisallowedSkipsFetch(t *testing.T) {
	t.Parallel()

	site := &domainSite{
		robots: "User-agent: NoNonsenseDirectoryBot\nDisallow: /obr-business.json\n",
		record: `{"name": "Hidden Biz"}`,
	}
	p, target, store, _ := newTestPipeline(t, site, time.Now().UTC())

	result := p.SyncDomain(context.Background(), target)
	require.Equal(t, registry.OutcomeDisallowed, result.Outcome)
	require.Nil(t, result.Err)
	require.Zero(t, site.recordsHits.Load(), "record fetch must not happen when disallowed")
	require.Empty(t, store.records)
}

func TestSyncDomainStaleRecordNotIngested(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	site := &domainSite{
		robots: "User-agent: *\nAllow: /\n",
		record: fmt.Sprintf(`{"name": "Dusty Diner",
			"obp_metadata": {"last_pulse": %q}}`, now.AddDate(0, -13, 0).Format(time.RFC3339)),
	}
	p, target, store, pub := newTestPipeline(t, site, now)

	result := p.SyncDomain(context.Background(), target)
	require.Equal(t, registry.OutcomeStale, result.Outcome)
	require.Equal(t, int64(1), site.recordsHits.Load())
	require.Empty(t, store.records)
	require.Empty(t, pub.Announcements())
}

func TestSyncDomainAbsentRecord(t *testing.T) {
	t.Parallel()

	site := &domainSite{
		robots:     "User-agent: *\nAllow: /\n",
		record:     "not here",
		recordCode: http.StatusNotFound,
	}
	p, target, _, _ := newTestPipeline(t, site, time.Now().UTC())

	result := p.SyncDomain(context.Background(), target)
	require.Equal(t, registry.OutcomeAbsent, result.Outcome)
	require.Nil(t, result.Err)
}

func TestRunContainsPerDomainFailures(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	good := &domainSite{
		robots: "User-agent: *\nAllow: /\n",
		record: fmt.Sprintf(`{"name": "Good Biz",
			"obp_metadata": {"last_pulse": %q}}`, now.AddDate(0, -1, 0).Format(time.RFC3339)),
	}
	p, goodTarget, store, _ := newTestPipeline(t, good, now)

	// An unreachable domain fails its own attempt but never the sweep.
	targets := []registry.DomainTarget{
		{Domain: "127.0.0.1:1"},
		goodTarget,
	}

	results := p.Run(context.Background(), targets)
	require.Len(t, results, 2)
	require.Equal(t, registry.OutcomeFetchError, results[0].Outcome)
	require.Error(t, results[0].Err)
	require.Equal(t, registry.OutcomeAccepted, results[1].Outcome)
	require.Len(t, store.records, 1)
}

func TestSyncDomainCanceledContext(t *testing.T) {
	t.Parallel()

	site := &domainSite{robots: "User-agent: *\nAllow: /\nCrawl-delay: 30\n"}
	p, target, _, _ := newTestPipeline(t, site, time.Now().UTC())
	p.sleep = sleepWithContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := p.SyncDomain(ctx, target)
	require.Equal(t, registry.OutcomeFetchError, result.Outcome)
	require.True(t, errors.Is(result.Err, context.Canceled))
	require.Zero(t, site.recordsHits.Load())
}
