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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"telehealth-server/internal/config"
	"telehealth-server/internal/logging"
	"telehealth-server/internal/metrics"
	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/notify"
	"telehealth-server/internal/routes"
	"telehealth-server/internal/scheduling"
	"telehealth-server/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "telehealth-server",
		Short:        "Telemedicine appointment booking API",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.StoreBackend == config.StoreBackendMongo {
				_, closeStore, err := openAppointmentStore(cmd.Context(), cfg, db)
				if err != nil {
					return err
				}
				closeStore()
			}
			logger.Info("migrations applied", zap.String("driver", cfg.Database.Driver), zap.String("store", cfg.StoreBackend))
			return nil
		},
	}
}

// bootstrap loads config, builds the logger and opens the migrated SQL database.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}

	db, err := models.OpenDatabase(models.DatabaseConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return cfg, logger, db, nil
}

// openAppointmentStore picks the appointment backend. Users always stay in SQL.
func openAppointmentStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (scheduling.AppointmentStore, func(), error) {
	if cfg.StoreBackend != config.StoreBackendMongo {
		return store.NewGormAppointments(db), func() {}, nil
	}

	client, err := store.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, nil, err
	}
	appointments := store.NewMongoAppointments(client.Database(cfg.Mongo.Database))
	if err := appointments.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return appointments, func() { _ = client.Disconnect(context.Background()) }, nil
}

func runServer() error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appointments, closeStore, err := openAppointmentStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	schedulingMetrics := metrics.NewScheduling(registry)

	hub := notify.NewHub(logger)
	var pusher notify.Pusher = hub
	if cfg.Redis.URL != "" {
		client, err := notify.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		fanout := notify.NewRedisFanout(client, cfg.Redis.Channel, hub, logger)
		go func() {
			if err := fanout.Run(ctx, nil); err != nil {
				logger.Error("realtime fanout stopped", zap.Error(err))
			}
		}()
		pusher = fanout
	}

	var sender notify.EmailSender = notify.NewStubSender(logger)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.Mailer.SendGridAPIKey,
		FromEmail: cfg.Mailer.FromEmail,
		FromName:  cfg.Mailer.FromName,
	}, logger); sg != nil {
		sender = sg
	}

	scheduler := scheduling.NewService(
		appointments,
		store.NewGormDirectory(db),
		notify.NewRelay(sender, pusher, schedulingMetrics, logger),
		logger,
		scheduling.WithLocation(cfg.Clinic.Location),
		scheduling.WithMetrics(schedulingMetrics),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		DB:        db,
		Config:    cfg,
		Scheduler: scheduler,
		Doctors:   store.NewGormDirectory(db),
		Hub:       hub,
		Gatherer:  registry,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
