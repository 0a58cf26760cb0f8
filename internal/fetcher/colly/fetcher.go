// Package collyfetcher retrieves business records using a Colly collector.
package collyfetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/openbusinessrecord/obr-registry/internal/registry"
)

// Config controls collector behavior.
type Config struct {
	UserAgent  string
	RecordPath string
	Scheme     string
	Timeout    time.Duration
}

// Fetcher issues a single GET of the record path on a domain. Robots
// enforcement happens upstream in the policy gate, so the collector's own
// robots handling stays off.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Scheduled sweeps revisit the same record URL every interval.
	c.AllowURLRevisit = true
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch retrieves the record document from a domain. A non-success status
// yields Found=false with a nil error; network failures and malformed
// bodies yield an error.
func (f *Fetcher) Fetch(ctx context.Context, domain string) (registry.FetchResult, error) {
	var (
		status int
		body   []byte
	)

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, _ error) {
		// A non-2xx answer still reaches OnError; record the status so it
		// can be classified as absent rather than a transport failure.
		if r != nil && r.StatusCode > 0 {
			status = r.StatusCode
		}
	})

	recordURL := fmt.Sprintf("%s://%s%s", f.cfg.Scheme, domain, f.cfg.RecordPath)
	visitErr := f.visit(ctx, collector, recordURL)

	switch {
	case status == http.StatusOK:
		var record registry.BusinessRecord
		if err := json.Unmarshal(body, &record); err != nil {
			return registry.FetchResult{}, fmt.Errorf("parse record from %s: %w", domain, err)
		}
		return registry.FetchResult{Record: record, Raw: body, Found: true}, nil
	case status > 0:
		return registry.FetchResult{Found: false}, nil
	case visitErr != nil:
		return registry.FetchResult{}, fmt.Errorf("fetch record from %s: %w", domain, visitErr)
	default:
		return registry.FetchResult{}, fmt.Errorf("fetch record from %s: no response", domain)
	}
}

func (f *Fetcher) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}
