// Package main wires together the registry service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/openbusinessrecord/obr-registry/internal/api"
	"github.com/openbusinessrecord/obr-registry/internal/clock/system"
	"github.com/openbusinessrecord/obr-registry/internal/config"
	collyfetcher "github.com/openbusinessrecord/obr-registry/internal/fetcher/colly"
	"github.com/openbusinessrecord/obr-registry/internal/logging"
	"github.com/openbusinessrecord/obr-registry/internal/metrics"
	"github.com/openbusinessrecord/obr-registry/internal/policy/robots"
	"github.com/openbusinessrecord/obr-registry/internal/publisher"
	memorypublisher "github.com/openbusinessrecord/obr-registry/internal/publisher/memory"
	pubsubpublisher "github.com/openbusinessrecord/obr-registry/internal/publisher/pubsub"
	"github.com/openbusinessrecord/obr-registry/internal/registry"
	"github.com/openbusinessrecord/obr-registry/internal/review"
	"github.com/openbusinessrecord/obr-registry/internal/review/github"
	"github.com/openbusinessrecord/obr-registry/internal/storage/postgres"
	"github.com/openbusinessrecord/obr-registry/internal/sweep"
	"github.com/openbusinessrecord/obr-registry/internal/verify"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()

	repoClient, err := github.New(github.Config{
		Token: cfg.GitHub.Token,
		Owner: cfg.GitHub.Owner,
		Repo:  cfg.GitHub.Repo,
	})
	if err != nil {
		logger.Fatal("github client init failed", zap.Error(err))
	}
	workflow := review.New(repoClient, clock, review.Config{
		BaseBranch: cfg.GitHub.BaseBranch,
		RecordsDir: cfg.GitHub.RecordsDir,
	}, logger.Named("review"))

	var store sweep.Store
	if cfg.DB.DSN != "" {
		directoryStore, err := postgres.NewDirectoryStore(ctx, postgres.DirectoryStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: int32(cfg.DB.MaxConns),
			MinConns: int32(cfg.DB.MinConns),
		})
		if err != nil {
			logger.Fatal("directory store init failed", zap.Error(err))
		}
		defer directoryStore.Close()
		store = directoryStore
	} else {
		logger.Info("no db.dsn configured; accepted records will not be persisted")
	}

	var announcer publisher.Publisher = memorypublisher.New()
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub client init failed", zap.Error(err))
		}
		defer func() {
			if cerr := client.Close(); cerr != nil {
				logger.Warn("pubsub client close failed", zap.Error(cerr))
			}
		}()
		topic := client.Topic(cfg.PubSub.TopicName)
		defer topic.Stop()
		announcer = pubsubpublisher.New(topic)
		logger.Info("publishing accepted records", zap.String("topic", cfg.PubSub.TopicName))
	}

	if cfg.Sync.Enabled {
		pipeline := sweep.New(
			robots.New(robots.Config{
				UserAgent:  cfg.Sync.UserAgent,
				RecordPath: cfg.Sync.RecordPath,
				Scheme:     cfg.Sync.Scheme,
				Timeout:    cfg.HTTPTimeout(),
			}, logger.Named("robots")),
			collyfetcher.New(collyfetcher.Config{
				UserAgent:  cfg.Sync.UserAgent,
				RecordPath: cfg.Sync.RecordPath,
				Scheme:     cfg.Sync.Scheme,
				Timeout:    cfg.HTTPTimeout(),
			}),
			verify.New(clock),
			store,
			announcer,
			clock,
			logger.Named("sweep"),
		)
		go runSweeps(ctx, pipeline, cfg, logger.Named("sweep"))
	}

	apiServer := api.NewServer(workflow, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// runSweeps runs one sweep immediately, then on every interval tick until
// the context finishes.
func runSweeps(ctx context.Context, pipeline *sweep.Pipeline, cfg config.Config, logger *zap.Logger) {
	targets := make([]registry.DomainTarget, 0, len(cfg.Sync.Domains))
	for _, d := range cfg.Sync.Domains {
		targets = append(targets, registry.DomainTarget{Domain: d})
	}

	ticker := time.NewTicker(cfg.SyncInterval())
	defer ticker.Stop()

	for {
		results := pipeline.Run(ctx, targets)
		accepted := 0
		for _, r := range results {
			if r.Outcome == registry.OutcomeAccepted {
				accepted++
			}
		}
		logger.Info("sweep finished",
			zap.Int("domains", len(results)),
			zap.Int("accepted", accepted))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
