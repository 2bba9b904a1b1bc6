package main

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/forgeops/stocksync/pkg/alerts"
	"github.com/forgeops/stocksync/pkg/config"
	"github.com/forgeops/stocksync/pkg/httpapi"
	"github.com/forgeops/stocksync/pkg/httpserver"
	"github.com/forgeops/stocksync/pkg/live"
	"github.com/forgeops/stocksync/pkg/logger"
	"github.com/forgeops/stocksync/pkg/notifier"
	"github.com/forgeops/stocksync/pkg/pg"
	"github.com/forgeops/stocksync/pkg/redisconn"
	"github.com/forgeops/stocksync/pkg/schedule"
	"github.com/forgeops/stocksync/pkg/stock"
	"github.com/forgeops/stocksync/pkg/syncer"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithLevel(cfg.logLevel()),
		logger.WithFormat(cfg.logFormat()),
		logger.WithService(cfg.ServiceName),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "Server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrationsFS, "migrations", pgCfg, log); err != nil {
		return err
	}

	identities, err := parseIdentities(cfg.AuthTokens)
	if err != nil {
		return err
	}

	// The dedup ledger falls back to process memory when Redis is absent or
	// unreachable, so a single-instance deployment needs no Redis at all.
	var ledger syncer.Ledger = syncer.NewMemoryLedger(cfg.SyncLedgerTTL)
	readyChecks := []func(context.Context) error{pg.Healthcheck(pool)}
	if cfg.RedisEnabled {
		var redisCfg redisconn.Config
		config.MustLoad(&redisCfg)
		client, err := redisconn.Connect(ctx, redisCfg)
		if err != nil {
			log.WarnContext(ctx, "Redis unavailable, keeping sync ledger in memory", logger.Error(err))
		} else {
			defer client.Close()
			ledger = syncer.NewRedisLedger(client, cfg.SyncLedgerTTL)
			readyChecks = append(readyChecks, redisconn.Healthcheck(client))
		}
	}

	levels := stock.NewMemoryProvider()
	hub := live.NewHub(live.WithHubLogger(log))
	defer hub.Close()

	dispatcherOpts := []notifier.DispatcherOption{
		notifier.WithLivePusher(hub),
		notifier.WithDispatcherLogger(log),
	}

	var pmCfg notifier.PostmarkConfig
	config.MustLoad(&pmCfg)
	if sink, err := notifier.NewPostmarkSink(pmCfg); err != nil {
		log.WarnContext(ctx, "Email channel disabled", logger.Error(err))
	} else {
		dispatcherOpts = append(dispatcherOpts, notifier.WithSink(notifier.ChannelEmail, sink))
	}

	notifStore := notifier.NewPGStorage(pool)
	dispatcher := notifier.NewDispatcher(notifStore, dispatcherOpts...)

	var alertCfg alerts.Config
	config.MustLoad(&alertCfg)

	rules := alerts.NewPGStorage(pool)
	evaluator := alerts.NewEvaluator(rules, levels, dispatcher, notifStore,
		alerts.WithCooldowns(alertCfg),
		alerts.WithAnnouncer(hub),
		alerts.WithEvaluatorLogger(log),
	)

	reconciler := syncer.NewReconciler(levels,
		syncer.WithLedger(ledger),
		syncer.WithItemEvaluator(evaluator),
		syncer.WithChangeBroadcaster(hub),
		syncer.WithReconcilerLogger(log),
	)

	runner := schedule.NewRunner(schedule.WithRunnerLogger(log))
	tasks := []schedule.Task{
		{Name: "stock_alerts", Schedule: schedule.Every(cfg.StockCheckInterval), Run: evaluator.EvaluateStock},
		{Name: "expiration_alerts", Schedule: schedule.HourlyAt(0), Run: evaluator.EvaluateExpirations},
		{Name: "daily_summary", Schedule: schedule.DailyAt(9, 0), Run: dailySummaryTask(levels, dispatcher, identities)},
		{Name: "notification_cleanup", Schedule: schedule.DailyAt(2, 0), Run: cleanupTask(dispatcher, cfg.NotificationRetention, log)},
	}
	for _, t := range tasks {
		if err := runner.Add(t); err != nil {
			return err
		}
	}

	runnerDone := make(chan error, 1)
	go func() { runnerDone <- runner.Start(ctx) }()

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	api := httpapi.NewServer(rules, dispatcher, evaluator, reconciler, hub, identities,
		httpapi.WithServerLogger(log),
		httpapi.WithReadiness(httpserver.HealthCheckHandler(ctx, log, readyChecks...)),
	)

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	runErr := srv.Run(ctx, api.Router())
	<-runnerDone
	return runErr
}
