// Package robots decides whether a domain's robots.txt permits fetching
// the record path, and how long to wait before doing so.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/openbusinessrecord/obr-registry/internal/registry"
)

const (
	defaultDelay  = time.Second
	maxRobotsBody = 512 * 1024
)

// Config controls Gate behavior.
type Config struct {
	UserAgent  string
	RecordPath string
	Scheme     string
	Timeout    time.Duration
}

// Gate fetches and evaluates robots.txt per domain. Policy absence or
// malformation fails open: most sites publish no robots.txt at all.
type Gate struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Gate.
func New(cfg Config, logger *zap.Logger) *Gate {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Gate{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Check returns the crawl policy for the record path on the given domain.
// Any failure to retrieve or parse robots.txt yields an allow verdict with
// the default one second delay.
func (g *Gate) Check(ctx context.Context, domain string) registry.CrawlPolicy {
	fallback := registry.CrawlPolicy{Allowed: true, Delay: defaultDelay}

	data, err := g.load(ctx, domain)
	if err != nil {
		g.logger.Debug("robots fetch failed; allowing access",
			zap.String("domain", domain), zap.Error(err))
		return fallback
	}

	group := data.FindGroup(g.cfg.UserAgent)
	if group == nil {
		return fallback
	}

	policy := registry.CrawlPolicy{
		Allowed: group.Test(g.cfg.RecordPath),
		Delay:   group.CrawlDelay,
	}
	if policy.Delay <= 0 {
		policy.Delay = defaultDelay
	}
	return policy
}

func (g *Gate) load(ctx context.Context, domain string) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", g.cfg.Scheme, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			g.logger.Debug("close robots response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}
