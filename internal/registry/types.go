// Package registry defines the core domain types shared across the service.
package registry

import "time"

// PulseMetadata carries the self-reported freshness proof a business
// publishes alongside its record.
type PulseMetadata struct {
	LastPulse string `json:"last_pulse"`
}

// BusinessRecord is the canonical unit of directory data, as served by a
// participating domain at its well-known record path.
type BusinessRecord struct {
	Name     string         `json:"name"`
	URL      string         `json:"url,omitempty"`
	Metadata *PulseMetadata `json:"obp_metadata,omitempty"`
}

// DomainTarget names a registered hostname to sync. The list of targets is
// supplied by the caller; the pipeline never mutates it.
type DomainTarget struct {
	Domain string
}

// CrawlPolicy is the per-domain verdict derived from robots.txt for one
// sync attempt. It is recomputed on every attempt and never persisted.
type CrawlPolicy struct {
	Allowed bool
	Delay   time.Duration
}

// FetchResult is the outcome of retrieving a record from a domain. Found
// is false when the domain answered with a non-success status; Raw holds
// the body exactly as served.
type FetchResult struct {
	Record BusinessRecord
	Raw    []byte
	Found  bool
}

// Outcome classifies how a single domain sync attempt ended.
type Outcome string

// Sync attempt outcomes. Only OutcomeAccepted yields a durable record;
// the rest are expected negatives, not errors.
const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeDisallowed Outcome = "disallowed"
	OutcomeAbsent     Outcome = "absent"
	OutcomeStale      Outcome = "stale"
	OutcomeFetchError Outcome = "fetch_error"
)

// SyncResult records the terminal state of one domain sync attempt.
type SyncResult struct {
	Domain  string
	Outcome Outcome
	Record  *BusinessRecord
	Err     error
}

// AcceptedRecord is a verified BusinessRecord ready for persistence.
type AcceptedRecord struct {
	Domain    string
	Slug      string
	Name      string
	URL       string
	LastPulse time.Time
	SyncedAt  time.Time
	Raw       []byte
}

// Clock abstracts time.Now so freshness judgments and branch names can be
// pinned in tests.
type Clock interface {
	Now() time.Time
}
