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

	app_service "crypto-donation-tracker/internal/application/service"
	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/domain/repository"
	domain_service "crypto-donation-tracker/internal/domain/service"
	"crypto-donation-tracker/internal/infrastructure/blockchain"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/database"
	"crypto-donation-tracker/internal/infrastructure/email"
	"crypto-donation-tracker/internal/infrastructure/logger"
	"crypto-donation-tracker/internal/infrastructure/messaging"
	"crypto-donation-tracker/internal/infrastructure/web"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.NATS),

		// Infrastructure providers
		fx.Provide(
			newHTTPClient,
			newMilestoneRepository,
			newAssetSources,
			newNotificationSink,
			messaging.NewNATSClient,
			fx.Annotate(blockchain.NewCoinGeckoPriceFeed, fx.As(new(domain_service.PriceFeed))),
			fx.Annotate(email.NewEmailJSClient, fx.As(new(app_service.FormRelay))),
		),

		// Application providers
		fx.Provide(
			newNotificationGate,
			app_service.NewMilestoneService,
			app_service.NewTrackerApplicationService,
			app_service.NewCarousel,
			app_service.NewShareService,
			app_service.NewAddressService,
			app_service.NewContactService,
		),

		// Transport
		fx.Provide(
			web.NewHandler,
			web.NewServer,
		),

		// Lifecycle hooks
		fx.Invoke(startMessaging),
		fx.Invoke(startRefreshLoop),
		fx.Invoke(startCarousel),
		fx.Invoke(startHTTPServer),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

// newHTTPClient is shared by every upstream source
func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Aggregator.RequestTimeout}
}

// newMilestoneRepository selects the seen-flag store by store.driver
func newMilestoneRepository(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	log *logger.Logger,
) (repository.MilestoneRepository, error) {
	switch cfg.Store.Driver {
	case config.StoreNeo4J:
		client := database.NewNeo4JClient(&cfg.Neo4J, log)
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Connect(ctx); err != nil {
					return fmt.Errorf("failed to connect to Neo4J: %w", err)
				}
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return client.Close(ctx)
			},
		})
		return database.NewNeo4JMilestoneRepository(client, log), nil

	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := database.OpenPostgres(ctx, &cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return db.Close()
			},
		})
		return database.NewPostgresMilestoneRepository(db, log), nil

	default:
		log.Warn("Using in-memory milestone store, seen flags will not survive restarts")
		return database.NewMemoryMilestoneRepository(), nil
	}
}

// newAssetSources builds the sources in the fixed BTC, ETH, USDT order
func newAssetSources(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	client *http.Client,
	log *logger.Logger,
) ([]domain_service.AssetSource, error) {
	eth, err := blockchain.NewEthereumSource(cfg, client, log)
	if err != nil {
		return nil, err
	}
	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			eth.Close()
			return nil
		},
	})

	return []domain_service.AssetSource{
		blockchain.NewEsploraSource(cfg, client, log),
		eth,
		blockchain.NewTronscanSource(cfg, client, log),
	}, nil
}

// newNotificationSink fans milestone notifications out to every enabled sink
func newNotificationSink(
	cfg *config.Config,
	natsClient *messaging.NATSClient,
	log *logger.Logger,
) (domain_service.NotificationSink, error) {
	fanout := messaging.NewFanoutNotifier().Add("log", messaging.NewLogNotifier(log))

	if cfg.NATS.Enabled {
		fanout.Add("nats", messaging.NewNATSNotifier(natsClient))
	}
	if cfg.Telegram.Enabled {
		telegram, err := messaging.NewTelegramNotifier(&cfg.Telegram, log)
		if err != nil {
			return nil, err
		}
		fanout.Add("telegram", telegram)
	}
	return fanout, nil
}

func newNotificationGate(
	cfg *config.Config,
	sink domain_service.NotificationSink,
	log *logger.Logger,
) *app_service.NotificationGate {
	initial, ok := entity.ParsePermission(cfg.Notifications.InitialPermission)
	if !ok {
		log.Warn("Unknown initial notification permission, using default",
			zap.String("value", cfg.Notifications.InitialPermission))
	}
	return app_service.NewNotificationGate(initial, sink, log)
}

// startMessaging connects to NATS and listens for refresh requests
func startMessaging(
	lifecycle fx.Lifecycle,
	natsClient *messaging.NATSClient,
	tracker domain_service.TrackerService,
	log *logger.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if err := natsClient.Connect(startCtx); err != nil {
				return err
			}
			return natsClient.SubscribeRefresh(ctx, func(ctx context.Context) error {
				_, err := tracker.RunCycle(ctx)
				return err
			})
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping messaging...")
			cancel()
			return natsClient.Disconnect()
		},
	})
}

// startRefreshLoop runs a cycle at startup and then on every refresh interval
func startRefreshLoop(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	tracker domain_service.TrackerService,
	log *logger.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	runCycle := func() {
		if _, err := tracker.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Aggregation cycle failed", zap.Error(err))
		}
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Starting refresh loop",
				zap.Duration("interval", cfg.Aggregator.RefreshInterval),
				zap.String("failure_policy", cfg.Aggregator.FailurePolicy))

			go func() {
				defer close(done)
				if cfg.Aggregator.RefreshOnStartup {
					runCycle()
				}
				if cfg.Aggregator.RefreshInterval <= 0 {
					<-ctx.Done()
					return
				}

				ticker := time.NewTicker(cfg.Aggregator.RefreshInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						runCycle()
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info("Stopping refresh loop...")
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// startCarousel rotates testimonials for the lifetime of the app
func startCarousel(lifecycle fx.Lifecycle, carousel *app_service.Carousel) {
	ctx, cancel := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go carousel.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// startHTTPServer serves the API and the tracker page
func startHTTPServer(lifecycle fx.Lifecycle, server *web.Server) {
	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
