package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/MediSynth-io/contentplanner/internal/api"
	"github.com/MediSynth-io/contentplanner/internal/auth"
	"github.com/MediSynth-io/contentplanner/internal/cache"
	"github.com/MediSynth-io/contentplanner/internal/config"
	"github.com/MediSynth-io/contentplanner/internal/content"
	"github.com/MediSynth-io/contentplanner/internal/database"
	"github.com/MediSynth-io/contentplanner/internal/export"
	"github.com/MediSynth-io/contentplanner/internal/logger"
	"github.com/MediSynth-io/contentplanner/internal/mailer"
	"github.com/MediSynth-io/contentplanner/internal/payment"
	"github.com/MediSynth-io/contentplanner/internal/reminder"
	"github.com/MediSynth-io/contentplanner/internal/storage"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/MediSynth-io/contentplanner/internal/subscription"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

var (
	loadConfig = config.LoadConfig
	initConfig = config.Init
)

type application struct {
	api     *api.Api
	worker  *reminder.Worker
	workers sync.WaitGroup
	closers []func() error
}

// startWorker runs the reminder worker until ctx is cancelled.
func (a *application) startWorker(ctx context.Context) {
	if a.worker == nil {
		return
	}
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		a.worker.Run(ctx)
	}()
}

// Close waits for background workers, then releases resources in reverse order.
func (a *application) Close() {
	a.workers.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// readConfig loads configPath, or app.yml from CONFIG_DIR when no path is given.
func readConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return initConfig()
	}
	return loadConfig(configPath)
}

func initializeAPI(ctx context.Context, configPath string, log zerolog.Logger) (*application, error) {
	cfg, err := readConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Auth.CheckSecrets(cfg.IsDevelopment()); err != nil {
		return nil, err
	}

	app := &application{}
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, db.Close)

	if err := database.RunMigrations(db, log); err != nil {
		app.Close()
		return nil, err
	}
	s := store.FromDB(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sender := mailer.New(cfg.Email, log)
	dispatcher := reminder.NewDispatcher(s, sender, reminder.Options{
		BatchSize:      cfg.Reminders.BatchSize,
		Lease:          cfg.Reminders.Lease,
		SendsPerSecond: cfg.Reminders.SendsPerSecond,
		Metrics:        reminder.NewMetrics(reg),
	}, log)
	if cfg.Reminders.Enabled {
		app.worker = &reminder.Worker{Dispatcher: dispatcher, Interval: cfg.Reminders.Interval, Log: log}
	}

	paypal := payment.NewClient(ctx, cfg.PayPal, log)
	var verifier subscription.OrderVerifier
	if cfg.PayPal.VerifyCapture {
		verifier = paypal
	}

	deps := api.Deps{
		Config:        *cfg,
		Store:         s,
		Auth:          auth.NewService(cfg.Auth, s, cfg.Domains.Secure, log),
		Content:       content.NewManager(s, cfg.Reminders.LeadTime, log),
		Subscriptions: subscription.NewService(s, verifier, log),
		Payments:      paypal,
		Reminders:     dispatcher,
		Registry:      reg,
		Log:           log,
	}

	if cfg.S3.Enabled() {
		s3Client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			app.Close()
			return nil, err
		}
		deps.Publisher = export.NewPublisher(s3Client, cfg.S3.LinkTTL)
	} else {
		log.Info().Msg("S3 not configured, PDF uploads disabled")
	}

	if cfg.Redis.Host != "" {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, rate limiting disabled")
		} else {
			deps.Limiter = rdb
			app.closers = append(app.closers, rdb.Close)
		}
	}

	app.api = api.NewApi(deps)
	return app, nil
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (default: $CONFIG_DIR/app.yml)")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(os.Getenv("ENVIRONMENT"))
	log.Info().Str("version", version).Str("config", *configPath).Msg("Starting content planner API")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initializeAPI(ctx, *configPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize API")
	}

	app.startWorker(ctx)
	if err := app.api.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("API server stopped")
	}
	stop()
	app.Close()
}
