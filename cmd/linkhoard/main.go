// Command linkhoard runs the bookmark ingestion service: the synchronous
// ingest API, the enrichment consumer endpoint, and the background enqueue
// pool, wired to the configured queue, row-store, and blob storage backends.
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

	gcsclient "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/api"
	"github.com/linkhoard/linkhoard/internal/bookmarks"
	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/dispatcher"
	"github.com/linkhoard/linkhoard/internal/enrich"
	"github.com/linkhoard/linkhoard/internal/ingest"
	"github.com/linkhoard/linkhoard/internal/logging"
	"github.com/linkhoard/linkhoard/internal/metrics"
	"github.com/linkhoard/linkhoard/internal/probe"
	"github.com/linkhoard/linkhoard/internal/queue"
	queuememory "github.com/linkhoard/linkhoard/internal/queue/memory"
	queuepostgres "github.com/linkhoard/linkhoard/internal/queue/postgres"
	queuepubsub "github.com/linkhoard/linkhoard/internal/queue/pubsub"
	"github.com/linkhoard/linkhoard/internal/scrape"
	"github.com/linkhoard/linkhoard/internal/screenshot"
	storagegcs "github.com/linkhoard/linkhoard/internal/storage/gcs"
	storagelocal "github.com/linkhoard/linkhoard/internal/storage/local"
	storagememory "github.com/linkhoard/linkhoard/internal/storage/memory"
	storememory "github.com/linkhoard/linkhoard/internal/store/memory"
	storepostgres "github.com/linkhoard/linkhoard/internal/store/postgres"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var pool *pgxpool.Pool
	if cfg.DB.Provider == "postgres" || cfg.Queue.Provider == "postgres" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DB.DSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
	}

	store, categories, err := buildStores(cfg, pool)
	if err != nil {
		return err
	}
	q, closeQueue, err := buildQueue(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeQueue()
	blobs, closeBlobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBlobs()

	policy := scrape.NewSitePolicy(cfg.Scrape.OGImagePreferredSites, cfg.Scrape.OGImageSkipSites)
	scraper := scrape.New(scrape.Config{
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.ScrapeTimeout(),
		Policy:    policy,
	})
	classifier := scrape.NewClassifier(cfg.ProbeTimeout(), cfg.Scrape.UserAgent)
	embedProbe := probe.New(probe.Config{
		Timeout:      cfg.ProbeTimeout(),
		MaxRedirects: cfg.Probe.MaxRedirects,
		UserAgent:    cfg.Scrape.UserAgent,
	})

	var capturer bookmarks.ScreenshotCapturer
	if cfg.Screenshot.Enabled {
		shots, err := screenshot.New(screenshot.Config{
			MaxParallel:       cfg.Screenshot.MaxParallel,
			UserAgent:         cfg.Scrape.UserAgent,
			NavigationTimeout: time.Duration(cfg.Screenshot.NavTimeoutSeconds) * time.Second,
			Width:             cfg.Screenshot.Width,
			Height:            cfg.Screenshot.Height,
		})
		if err != nil {
			return fmt.Errorf("build screenshot capturer: %w", err)
		}
		defer shots.Close()
		capturer = shots
	}

	disp := dispatcher.New(dispatcher.Config{
		Workers: cfg.Enrich.EnqueueWorkers,
		Depth:   cfg.Enrich.EnqueueDepth,
	}, q, logger.Named("dispatcher"))
	go disp.Run(ctx)

	orchestrator, err := ingest.NewOrchestrator(store,
		ingest.NewAccessGuard(categories), ingest.NewDuplicateGuard(store),
		classifier, scraper, embedProbe, policy, disp, logger.Named("ingest"))
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	fetcher := enrich.NewHTTPFetcher(
		time.Duration(cfg.Enrich.FetchTimeoutSeconds)*time.Second, cfg.Scrape.UserAgent)
	consumer, err := enrich.NewConsumer(enrich.Config{
		BatchSize:  cfg.Enrich.BatchSize,
		Visibility: cfg.Visibility(),
	}, q, store, blobs, capturer, fetcher, logger.Named("enrich"))
	if err != nil {
		return fmt.Errorf("build consumer: %w", err)
	}

	server := api.NewServer(orchestrator, consumer, api.Config{
		InternalKey: cfg.Auth.InternalKey,
	}, logger.Named("api"))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	logger.Info("linkhoard listening",
		zap.Int("port", cfg.Server.Port),
		zap.String("queue", cfg.Queue.Provider),
		zap.String("db", cfg.DB.Provider),
		zap.String("storage", cfg.Storage.Provider))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

func buildStores(cfg config.Config, pool *pgxpool.Pool) (bookmarks.Store, bookmarks.CategoryStore, error) {
	if cfg.DB.Provider == "postgres" {
		store, err := storepostgres.NewStore(pool)
		if err != nil {
			return nil, nil, fmt.Errorf("build bookmark store: %w", err)
		}
		categories, err := storepostgres.NewCategories(pool)
		if err != nil {
			return nil, nil, fmt.Errorf("build category store: %w", err)
		}
		return store, categories, nil
	}
	return storememory.NewStore(), storememory.NewCategories(), nil
}

func buildQueue(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (queue.Queue, func(), error) {
	noop := func() {}
	switch cfg.Queue.Provider {
	case "postgres":
		return queuepostgres.NewQueue(pool, cfg.Queue.Name), noop, nil
	case "pubsub":
		q, err := queuepubsub.NewQueue(ctx, cfg.Queue.ProjectID, cfg.Queue.TopicID, cfg.Queue.SubscriptionID)
		if err != nil {
			return nil, noop, fmt.Errorf("build pubsub queue: %w", err)
		}
		return q, func() { _ = q.Close() }, nil
	default:
		return queuememory.NewQueue(), noop, nil
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (bookmarks.BlobStore, func(), error) {
	noop := func() {}
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("build gcs client: %w", err)
		}
		blobs, err := storagegcs.New(client, storagegcs.Config{
			Bucket: cfg.Storage.GCSBucket,
			Prefix: cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("build gcs blob store: %w", err)
		}
		return blobs, func() { _ = client.Close() }, nil
	case "local":
		blobs, err := storagelocal.New(storagelocal.Config{
			BaseDir: cfg.Storage.LocalDir,
			BaseURL: cfg.Storage.BaseURL,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("build local blob store: %w", err)
		}
		return blobs, noop, nil
	default:
		return storagememory.NewBlobStore(), noop, nil
	}
}
