package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/hashicorp/go-hclog"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"field-scheduler-backend/config"
	"field-scheduler-backend/internal/api"
	"field-scheduler-backend/internal/backend"
	"field-scheduler-backend/internal/metrics"
	"field-scheduler-backend/internal/mw"
	"field-scheduler-backend/internal/notification"
	"field-scheduler-backend/internal/store"
)

const (
	configPathEnv = "CONFIG_PATH" // example: /etc/fieldd/config.yaml
	logLevelEnv   = "LOG_LEVEL"   // example: debug
)

func main() {
	var configPath, logLevel string

	rootCmd := &cobra.Command{
		Use:   "fieldd",
		Short: "Practice field reservation backend",
		Long: `Serves the practice field reservation API.
	Configure run by passing flags or environment variables:
CONFIG_PATH                                 // example: /etc/fieldd/config.yaml
LOG_LEVEL                                   // example: debug
DATA_DIR                                    // overrides data.dir
ADVANCE_RESERVATION_DAYS                    // overrides booking.advance_days
FIRST_USER_IS_ADMIN                         // overrides booking.first_user_is_admin
CONTINUE_ON_ERROR                           // overrides booking.continue_on_error
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := hclog.New(&hclog.LoggerOptions{
				Name:  "fieldd",
				Level: hclog.LevelFromString(logLevel),
			})

			// A missing file is only an error when a path was given.
			allowMissing := !cmd.Flags().Changed("config") && os.Getenv(configPathEnv) == ""
			cfg, err := config.Load(configPath, allowMissing, logger.Named("config"))
			if err != nil {
				return fmt.Errorf("load configuration from %s: %w", configPath, err)
			}
			logger.Info("configuration loaded", "path", configPath)

			return run(cfg, logger)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", envOr(configPathEnv, "./config/config.yaml"), "path to the YAML configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", envOr(logLevelEnv, "info"), "log level (trace, debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cfg *config.Config, logger hclog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	year := time.Now().In(cfg.Booking.Location).Year()
	files, err := store.Open(cfg.Data.Dir, year, store.Options{
		ReadOnly: cfg.Data.ReadOnly,
		Logger:   logger.Named("store"),
	})
	if err != nil {
		return fmt.Errorf("open data directory %s: %w", cfg.Data.Dir, err)
	}
	logger.Info("data store opened", "dir", cfg.Data.Dir, "year", year, "read_only", cfg.Data.ReadOnly)

	subs := notification.NewSubscriptionRegistry(files)
	if err := subs.Load(ctx); err != nil {
		return fmt.Errorf("load push subscriptions: %w", err)
	}

	m := metrics.New()
	broadcaster := notification.NewBroadcaster(64, logger.Named("stream"))
	defer broadcaster.Close()
	m.Gauge("stream_subscribers", "Open event streams.", func() float64 { return float64(broadcaster.Subscribers()) })
	m.Counter("stream_dropped_events_total", "Events dropped for slow stream subscribers.", func() float64 { return float64(broadcaster.Dropped()) })
	sinks := notification.Fanout{broadcaster}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, subs, webpushOptions, logger.Named("push"))
		pool.SetMetrics(m)
		pool.Start(ctx)
		sinks = append(sinks, pool)
	} else {
		logger.Warn("VAPID keys are not configured; web push is disabled")
	}

	b := backend.New(files, sinks, backend.Options{
		AdvanceDays:      cfg.Booking.AdvanceDays,
		FirstUserIsAdmin: cfg.Booking.FirstUserAdmin(),
		ContinueOnError:  cfg.Booking.ContinueOnFailure(),
		Location:         cfg.Booking.Location,
		Slots:            cfg.Booking.Slots,
		UserMigration: store.UserMigration{
			DisableAfter: cfg.Booking.UserDisableAfter(),
			ExpireAfter:  cfg.Booking.UserExpireAfter(),
		},
		// Startup and reload replays reach stream clients only, never push.
		Replay:  broadcaster,
		Metrics: m,
	}, logger.Named("backend"))
	m.Gauge("stalled", "1 while a failed strict-mode commit holds the change lock.", func() float64 {
		if b.Stalled() {
			return 1
		}
		return 0
	})

	if err := b.Load(ctx); err != nil {
		logger.Error("failed to load data", "error", err)
		// Leave time for the log to reach its collector before exiting.
		time.Sleep(time.Second)
		return fmt.Errorf("load data: %w", err)
	}
	logger.Info("data loaded")

	responseCache := cache.New(time.Duration(cfg.Server.CacheTTLSeconds)*time.Second, 10*time.Minute)

	if cfg.Data.WatchExternalChanges {
		watcher, err := store.NewWatcher(files, func(kind store.Kind) {
			var err error
			if kind == store.PushSubscriptions {
				err = subs.Load(ctx)
			} else {
				err = b.Reload(ctx, kind)
			}
			if err != nil {
				logger.Error("failed to reload external change", "kind", kind, "error", err)
			}
			responseCache.Flush()
		}, logger.Named("watcher"))
		if err != nil {
			return fmt.Errorf("watch data directory: %w", err)
		}
		go watcher.Run(ctx)
	}

	handler := api.NewHandler(b, subs, broadcaster, webpushOptions, logger.Named("api"))
	router := api.NewRouter(handler, api.RouterOptions{
		RateLimit: rate.Limit(cfg.Server.RateLimitPerSec),
		RateBurst: cfg.Server.RateLimitBurst,
		CacheTTL:  time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		Cache:     responseCache,
		Metrics:   m,
		Identity: mw.IdentityHeaders{
			Subject:  cfg.Auth.SubjectHeader,
			Email:    cfg.Auth.EmailHeader,
			Name:     cfg.Auth.NameHeader,
			Image:    cfg.Auth.ImageHeader,
			ClientIP: cfg.Server.RequestIPHeader,
		},
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	// Open event streams would otherwise hold Shutdown until its deadline.
	server.RegisterOnShutdown(broadcaster.Close)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	rollover := make(chan error, 1)
	go func() { rollover <- b.WatchYear(ctx, time.Second) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig)
	case err := <-rollover:
		logger.Info("stopping for year rollover", "reason", err)
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server: %w", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	logger.Info("server gracefully stopped")
	return runErr
}
