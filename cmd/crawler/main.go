// Command crawler runs one crawl in the foreground, either against the live
// site through Chrome or against saved result pages.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/adapter/chromedp_crawler"
	"github.com/user/listing-crawler/internal/adapter/htmldom"
	"github.com/user/listing-crawler/internal/adapter/notify"
	"github.com/user/listing-crawler/internal/adapter/postgres"
	"github.com/user/listing-crawler/internal/adapter/sqlite"
	"github.com/user/listing-crawler/internal/engine"
	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
	"github.com/user/listing-crawler/internal/usecase"
	"github.com/user/listing-crawler/pkg/config"
	"github.com/user/listing-crawler/pkg/logger"
	"github.com/user/listing-crawler/pkg/metrics"
)

func main() {
	var (
		envFile = flag.String("env", ".env", "configuration file")
		pages   = flag.Int("pages", 0, "result pages to crawl (default DEFAULT_PAGES)")
		replay  = flag.String("replay", "", "directory of saved result pages to crawl instead of the live site")
		store   = flag.String("store", "", "where to store listings: postgres, sqlite or none (default LISTING_STORE)")
		dryRun  = flag.Bool("dry-run", false, "print the result set as JSON instead of storing it")
	)
	flag.Parse()

	if err := run(*envFile, *pages, *replay, *store, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "crawler:", err)
		os.Exit(1)
	}
}

func run(envFile string, pages int, replay, store string, dryRun bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	metrics.Init()

	if pages == 0 {
		pages = cfg.DefaultPages
	}
	if store == "" {
		store = cfg.ListingStore
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		provider repository.SessionProvider
		opts     []engine.Option
	)
	if replay != "" {
		saved, err := htmldom.LoadDir(replay)
		if err != nil {
			return err
		}
		log.Info("replaying saved result pages", zap.String("dir", replay), zap.Int("pages", len(saved)))
		provider = htmldom.NewReplayProvider(saved)
		opts = append(opts, engine.WithPacer(engine.InstantPacer()))
	} else {
		p := chromedp_crawler.NewProvisioner(log)
		p.ExecPath = cfg.ChromePath
		provider = p
	}
	orchestrator := engine.NewOrchestrator(provider, log, opts...)
	crawlCfg := cfg.CrawlConfig()

	if dryRun || store == "none" {
		set, err := orchestrator.Run(ctx, crawlCfg, pages, engine.WithReporter(logReporter(log)))
		if err != nil {
			return err
		}
		if set == nil {
			set = &entity.ResultSet{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	}

	deps := usecase.CrawlerDeps{
		Runner:   orchestrator,
		Notifier: notify.NewLogNotifier(log),
	}
	switch store {
	case "sqlite":
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer s.Close()
		deps.Listings, deps.History = s, s
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		deps.Listings, deps.History = postgres.NewListingRepo(pool), postgres.NewRunHistoryRepo(pool)
	default:
		return fmt.Errorf("unknown store %q", store)
	}

	crawler := usecase.NewCrawlerUseCase(deps, crawlCfg, cfg.RunLockTTL(), log)
	result, err := crawler.Execute(ctx, &entity.CrawlRequest{RunID: uuid.NewString(), Pages: pages, Source: "cli"})
	if err != nil {
		return err
	}
	log.Info("crawl finished",
		zap.String("run_id", result.RunID),
		zap.String("status", string(result.Status)),
		zap.Int("records", result.Records),
		zap.Int("pages_visited", result.PagesVisited),
	)
	return nil
}

func logReporter(log *zap.Logger) engine.ProgressReporter {
	return engine.ReporterFunc(func(p entity.Progress) {
		log.Info(p.Status, zap.Float64("fraction", p.Fraction), zap.Int("records", p.Records))
	})
}
