// Package main provides the gamealert bot executable: the job scheduler, the
// Discord session and the admin HTTP API.
//
// Usage:
//
//	gamealert-bot [serve]
//	gamealert-bot migrate up|down|status|version
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/adapters/discord"
	"github.com/coregx/gamealert/adapters/itad"
	"github.com/coregx/gamealert/adapters/redislock"
	"github.com/coregx/gamealert/adapters/relica"
	"github.com/coregx/gamealert/adapters/steam"
	"github.com/coregx/gamealert/adapters/topgg"
	"github.com/coregx/gamealert/cmd/gamealert-bot/internal/api"
	"github.com/coregx/gamealert/cmd/gamealert-bot/internal/config"
	"github.com/coregx/gamealert/cmd/gamealert-bot/internal/logging"
	"github.com/coregx/gamealert/cmd/gamealert-bot/internal/migrate"
	"github.com/coregx/gamealert/metrics"
	"github.com/coregx/gamealert/model"
)

const serviceName = "gamealert-bot"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(logging.Options{
		ServiceName: serviceName,
		Level:       logging.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warnf("Failed to close database: %v", closeErr)
		}
	}()

	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		return serve(ctx, cfg, db, logger)
	case "migrate":
		if len(args) < 2 || !slices.Contains(migrate.Commands, args[1]) {
			return fmt.Errorf("usage: migrate %v", migrate.Commands)
		}
		logger.Infof("Running migration %q on %s", args[1], cfg.Database.Driver)
		return migrate.Run(ctx, db, cfg.Database.Driver, args[1], args[2:]...)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newDiagnostics posts to Discord as soon as one diagnostics channel is configured.
// A stream without a channel stays silent there.
func newDiagnostics(cfg config.DiscordConfig, platform gamealert.ChatPlatform, logger gamealert.Logger) gamealert.DiagnosticsReporter {
	if cfg.ExceptionChannelID == "" && cfg.StreamChannelID == "" {
		return gamealert.NewLoggingDiagnostics(logger)
	}
	return gamealert.NewChannelDiagnostics(platform, cfg.ExceptionChannelID, cfg.StreamChannelID)
}

func serve(ctx context.Context, cfg *config.Config, db *sql.DB, logger *logging.Logger) error {
	logger.Infof("Starting %s (env=%s, debug=%t, db=%s)", serviceName, cfg.App.Env, cfg.App.Debug, cfg.Database.Driver)

	repos := relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warnf("Failed to close discord session: %v", closeErr)
		}
	}()
	platform := discord.NewPlatform(session)

	diagnostics := newDiagnostics(cfg.Discord, platform, logger)

	prices := itad.NewClient(cfg.Providers.ITADKey)
	catalog := steam.NewClient()
	votes := topgg.NewClient(cfg.Providers.BotID, cfg.Providers.TopGGToken)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	quota, err := gamealert.NewQuotaPolicy(
		gamealert.WithQuotaSubscriptions(repos.Subscription),
		gamealert.WithReputation(votes),
		gamealert.WithLimits(cfg.Quota.SoftLimit, cfg.Quota.HardLimit),
		gamealert.WithQuotaLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create quota policy: %w", err)
	}

	manager, err := gamealert.NewSubscriptionManager(
		gamealert.WithManagerSubscriptions(repos.Subscription),
		gamealert.WithManagerQuota(quota),
		gamealert.WithManagerLogger(logger),
		gamealert.WithManagerDiagnostics(diagnostics),
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription manager: %w", err)
	}

	dispatcher, err := gamealert.NewDispatcher(
		gamealert.WithSubscriptions(repos.Subscription),
		gamealert.WithPlatform(platform),
		gamealert.WithLogger(logger),
		gamealert.WithDiagnostics(diagnostics),
		gamealert.WithDebugMode(cfg.App.Debug),
		gamealert.WithDispatchObserver(metrics.NewDispatchMetrics(registry)),
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	watcher, err := gamealert.NewPriceWatcher(
		gamealert.WithPriceWatcherSubscriptions(repos.Subscription),
		gamealert.WithPriceProvider(prices),
		gamealert.WithPriceWatcherPlatform(platform),
		gamealert.WithPriceWatcherLogger(logger),
		gamealert.WithPriceWatcherDiagnostics(diagnostics),
		gamealert.WithPriceWatcherDebugMode(cfg.App.Debug),
	)
	if err != nil {
		return fmt.Errorf("failed to create price watcher: %w", err)
	}

	draw, err := gamealert.NewRewardDraw(
		gamealert.WithDrawGiveaways(repos.LocalGiveaway),
		gamealert.WithDrawReputation(votes),
		gamealert.WithDrawPlatform(platform),
		gamealert.WithDrawCatalog(catalog),
		gamealert.WithDrawLogger(logger),
		gamealert.WithDrawDiagnostics(diagnostics),
	)
	if err != nil {
		return fmt.Errorf("failed to create reward draw: %w", err)
	}

	localSource, err := gamealert.NewLocalGiveawaySource(repos.LocalGiveaway, catalog)
	if err != nil {
		return fmt.Errorf("failed to create local giveaway source: %w", err)
	}

	jobs := gamealert.NewRegistry()
	jobs.Register(gamealert.NewDispatchJob(dispatcher, repos.Giveaway, model.KindGiveaway), cfg.Schedule.Giveaway)
	jobs.Register(gamealert.NewDispatchJob(dispatcher, repos.FreeToPlay, model.KindFreeToPlay), cfg.Schedule.FreeToPlay)
	jobs.Register(gamealert.NewDispatchJob(dispatcher, repos.GamePass, model.KindGamePass), cfg.Schedule.GamePass)
	jobs.Register(gamealert.NewDispatchJob(dispatcher, localSource, model.KindLocalGiveaway), cfg.Schedule.LocalGiveaway)
	jobs.Register(gamealert.NewPriceWatchJob(watcher), cfg.Schedule.Price)
	jobs.Register(gamealert.NewRewardDrawJob(draw), cfg.Schedule.RewardDraw)
	jobs.Register(gamealert.NewHeartbeatJob(repos.Subscription, platform, logger), cfg.Schedule.Heartbeat)

	schedulerOpts := []gamealert.SchedulerOption{
		gamealert.WithRegistry(jobs),
		gamealert.WithSchedulerLogger(logger),
		gamealert.WithSchedulerDiagnostics(diagnostics),
		gamealert.WithJobMetrics(metrics.NewJobMetrics(registry)),
	}
	if cfg.Redis.URL != "" {
		client, err := redislock.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = client.Close() }()

		locks, err := redislock.NewProvider(client, "", cfg.Redis.LockTTL)
		if err != nil {
			return fmt.Errorf("failed to create lock provider: %w", err)
		}
		schedulerOpts = append(schedulerOpts, gamealert.WithLockProvider(locks))
		logger.Info("Distributed job locks enabled")
	}

	scheduler, err := gamealert.NewScheduler(schedulerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	handler := api.NewHandler(manager, repos.LocalGiveaway, scheduler, db, logger)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Routes(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // Manual job runs may take a while
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Stopped gracefully")
	return nil
}
