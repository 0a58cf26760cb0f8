// Package publisher defines the interface for announcing accepted records
// to downstream consumers.
package publisher

import "context"

// Publisher sends a JSON-encoded payload to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
