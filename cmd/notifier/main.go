package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/di"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/config"
	pfirestore "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/jobs"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/observability"
	firestoreRepo "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

// notifier drains the AMQP notification queue and sends email and SMS. The API publishes to the
// same queue when API_NOTIFICATIONS_TRANSPORT=amqp.
func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("notifier")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := di.NewSecretFetcher(ctx, logger, otel.Meter("checkout-notifier"), di.OSEnv)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Notifications.AMQPURL"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.Notifications.Transport != "amqp" {
		logger.Fatal("notifier requires the amqp notification transport", zap.String("transport", cfg.Notifications.Transport))
	}

	registry, err := firestoreRepo.NewRegistry(pfirestore.NewProvider(cfg.Firestore), nil)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	renderer, email, sms, err := di.NotificationChannels(cfg.Notifications, cfg.Shipping.Timeout)
	if err != nil {
		logger.Fatal("failed to initialise notification channels", zap.Error(err))
	}
	dispatcher, err := services.NewNotificationDispatcher(services.NotificationDispatcherDeps{
		Renderer:     renderer,
		Orders:       registry.Orders(),
		Inquiries:    registry.Inquiries(),
		Email:        email,
		SMS:          sms,
		Brand:        cfg.Notifications.BrandName,
		SupportEmail: cfg.Notifications.SupportEmail,
		Logger:       observability.EventLogger(baseLogger.Named("notifications")),
	})
	if err != nil {
		logger.Fatal("failed to initialise notification dispatcher", zap.Error(err))
	}

	conn, err := jobs.DialAMQP(ctx, jobs.AMQPConfig{
		URL:        cfg.Notifications.AMQPURL,
		Exchange:   cfg.Notifications.AMQPExchange,
		Queue:      cfg.Notifications.AMQPQueue,
		RoutingKey: cfg.Notifications.AMQPRoutingKey,
	}, logger.Named("amqp"))
	if err != nil {
		logger.Fatal("failed to connect to amqp broker", zap.Error(err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("amqp close error", zap.Error(err))
		}
	}()

	consumer, _ := os.Hostname()
	deliveries, err := conn.Deliveries(consumer)
	if err != nil {
		logger.Fatal("failed to start consuming", zap.Error(err))
	}

	logger.Info("notifier consuming", zap.String("queue", cfg.Notifications.AMQPQueue))
	err = jobs.Consume(ctx, deliveries, dispatcher.Deliver, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
		return
	}
	logger.Info("shutdown signal received; consumer stopped")
}
