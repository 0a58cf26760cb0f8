// Package memory provides an in-process announcer, used when no broker is
// configured and as a recording double in pipeline tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/openbusinessrecord/obr-registry/internal/publisher"
	"github.com/openbusinessrecord/obr-registry/internal/registry"
)

// Announcement captures one published event.
type Announcement struct {
	Topic   string
	Payload any
}

// Publisher keeps announcements in memory for inspection.
type Publisher struct {
	mu   sync.RWMutex
	sent []Announcement
}

var _ publisher.Publisher = (*Publisher)(nil)

// New returns an empty in-memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the announcement and returns a pseudo ID derived from the
// topic and the announcement's position.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, Announcement{Topic: topic, Payload: payload})
	return fmt.Sprintf("mem-%s-%d", topic, len(p.sent)), nil
}

// Announcements returns every recorded publish in order.
func (p *Publisher) Announcements() []Announcement {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Announcement, len(p.sent))
	copy(out, p.sent)
	return out
}

// AcceptedRecords returns the accepted-record payloads announced on topic.
// Announcements carrying any other payload type are skipped.
func (p *Publisher) AcceptedRecords(topic string) []registry.AcceptedRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []registry.AcceptedRecord
	for _, a := range p.sent {
		if a.Topic != topic {
			continue
		}
		if rec, ok := a.Payload.(registry.AcceptedRecord); ok {
			out = append(out, rec)
		}
	}
	return out
}
