// Package verify judges whether a fetched business record is current
// enough to ingest.
package verify

import (
	"time"

	"github.com/openbusinessrecord/obr-registry/internal/registry"
)

// Verifier applies the pulse check: a record is fresh only if its
// self-reported last_pulse falls strictly inside the past year.
type Verifier struct {
	clock registry.Clock
}

// New builds a Verifier against the given clock.
func New(clock registry.Clock) *Verifier {
	return &Verifier{clock: clock}
}

// Fresh reports whether the record's pulse is recent enough, along with
// the parsed pulse time. A missing or unparsable last_pulse is never
// fresh; a pulse of exactly one year ago is stale.
func (v *Verifier) Fresh(record registry.BusinessRecord) (time.Time, bool) {
	if record.Metadata == nil {
		return time.Time{}, false
	}
	pulse, err := time.Parse(time.RFC3339, record.Metadata.LastPulse)
	if err != nil {
		return time.Time{}, false
	}
	cutoff := v.clock.Now().AddDate(-1, 0, 0)
	return pulse, pulse.After(cutoff)
}
