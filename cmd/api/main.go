package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/di"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/handlers"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/invoicing"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/payments"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/auth"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/cache"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/config"
	pfirestore "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/idempotency"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/jobs"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/observability"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/secrets"
	platformstorage "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/storage"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
	firestoreRepo "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/shipping"
)

// webhookSecretName names the HMAC secret that signs courier status callbacks.
const webhookSecretName = "shipping"

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)
	meter := otel.Meter("checkout-api")

	fetcher, err := di.NewSecretFetcher(ctx, logger, meter, di.OSEnv)
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
		config.WithRequiredSecrets(di.RequiredSecretNames(di.OSEnv)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	var redisCache *cache.Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := redisCache.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	healthRepo, err := newHealthRepository(firestoreClient, fetcher, redisCache)
	if err != nil {
		logger.Warn("health: dependency checks unavailable", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider, healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	infra, closeInfra := buildInfrastructure(ctx, logger, cfg, redisCache)
	defer closeInfra()
	infra.Meter = meter
	infra.Logger = baseLogger
	infra.Build = buildInfo

	firebaseClient, err := auth.NewFirebaseClient(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase client", zap.Error(err))
	}
	infra.ResetLinks = firebaseClient
	authenticator := auth.NewAuthenticator(firebaseClient)

	container, err := di.NewContainer(ctx, cfg, registry, infra)
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()
	svc := container.Services

	idempotencyStore := idempotency.NewFirestoreStore(firestoreProvider)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	cleanupTicker := time.NewTicker(cfg.Idempotency.CleanupInterval)
	cleanupWG.Add(1)
	go func() {
		defer cleanupWG.Done()
		cleanupLogger := logger.Named("idempotency")
		for {
			select {
			case <-cleanupTicker.C:
				runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
				removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
				cancel()
				if err != nil {
					cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
					continue
				}
				if removed > 0 {
					cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	var authMetrics auth.MetricsRecorder
	if recorder, err := observability.NewAuthMetrics(meter); err != nil {
		logger.Warn("auth metrics unavailable", zap.Error(err))
	} else {
		authMetrics = recorder
	}
	oidcMiddleware := buildOIDCMiddleware(logger.Named("auth"), cfg, authMetrics)
	hmacMiddleware := buildHMACMiddleware(logger.Named("auth"), cfg, redisCache, authMetrics)

	handlerLogger := observability.EventLogger(baseLogger.Named("handlers"))
	cartHandlers := handlers.NewCartHandlers(authenticator, svc.Cart)
	checkoutHandlers := handlers.NewCheckoutHandlers(authenticator, svc.Checkout, svc.Payments,
		handlers.WithCheckoutIdempotency(idempotencyMiddleware))
	orderHandlers := handlers.NewOrderHandlers(authenticator, svc.Orders)
	adminHandlers := handlers.NewAdminHandlers(authenticator, svc.Orders, svc.Inquiries)
	publicHandlers := handlers.NewPublicHandlers(svc.Inquiries, svc.Accounts)
	meHandlers := handlers.NewMeHandlers(authenticator, svc.Accounts)
	webhookHandlers := handlers.NewWebhookHandlers(svc.Orders, handlerLogger)
	pushHandlers := handlers.NewNotificationPushHandlers(svc.Notifications, handlerLogger)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(),
		observability.RequestLoggerMiddleware(),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(svc.System),
	)

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithShippingRoutes(checkoutHandlers.ShippingRoutes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
		handlers.WithInternalRoutes(pushHandlers.Routes),
	}
	if oidcMiddleware != nil {
		opts = append(opts, handlers.WithInternalMiddlewares(oidcMiddleware))
	}
	if hmacMiddleware != nil {
		opts = append(opts, handlers.WithWebhookMiddlewares(hmacMiddleware))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("checkout api listening", zap.String("notifications", cfg.Notifications.Transport))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupTicker.Stop()
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildInfrastructure creates the vendor clients, cache and notification transport. The returned
// func releases whatever was opened.
func buildInfrastructure(ctx context.Context, logger *zap.Logger, cfg config.Config, redisCache *cache.Redis) (di.Infrastructure, func()) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	var infra di.Infrastructure

	if redisCache != nil {
		infra.Cache = redisCache
		infra.Locker = redisCache
	} else {
		memory := cache.NewMemory(time.Now)
		infra.Cache = memory
		infra.Locker = memory
		logger.Warn("redis not configured; checkout locks and shipping quotes are process-local")
	}

	gateway, err := newPaymentManager(logger.Named("payments"), cfg.Payments)
	if err != nil {
		logger.Fatal("failed to initialise payment providers", zap.Error(err))
	}
	infra.Payments = gateway

	shippingClient, err := shipping.NewClient(shipping.Config{
		BaseURL:       cfg.Shipping.BaseURL,
		APIToken:      cfg.Shipping.APIToken,
		Timeout:       cfg.Shipping.Timeout,
		OriginPincode: cfg.Shipping.OriginPincode,
		Parcel: shipping.Parcel{
			WeightGrams: cfg.Shipping.WeightGrams,
			LengthCM:    cfg.Shipping.LengthCM,
			BreadthCM:   cfg.Shipping.BreadthCM,
			HeightCM:    cfg.Shipping.HeightCM,
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise shipping client", zap.Error(err))
	}
	infra.Shipping = shippingClient

	if strings.TrimSpace(cfg.Invoicing.BaseURL) != "" {
		infra.Invoices = invoicing.NewClient(invoicing.Config{
			BaseURL:  cfg.Invoicing.BaseURL,
			APIToken: cfg.Invoicing.APIToken,
			Timeout:  cfg.Invoicing.Timeout,
		})
	} else {
		logger.Warn("invoicing not configured; invoice requests will be rejected")
	}

	if bucket := strings.TrimSpace(cfg.Storage.InvoicesBucket); bucket != "" {
		storageClient, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		closers = append(closers, func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		})
		archive, err := platformstorage.NewInvoiceArchive(storageClient, bucket,
			platformstorage.WithSignerEmail(cfg.Storage.SignerEmail),
			platformstorage.WithSignedURLTTL(cfg.Storage.SignedURLTTL),
		)
		if err != nil {
			logger.Fatal("failed to initialise invoice archive", zap.Error(err))
		}
		infra.Archive = archive
	}

	renderer, email, sms, err := di.NotificationChannels(cfg.Notifications, cfg.Shipping.Timeout)
	if err != nil {
		logger.Fatal("failed to initialise notification channels", zap.Error(err))
	}
	infra.Renderer, infra.Email, infra.SMS = renderer, email, sms

	switch cfg.Notifications.Transport {
	case "pubsub":
		project := strings.TrimSpace(cfg.Notifications.PubSubProject)
		if project == "" {
			project = traceProjectID(cfg)
		}
		client, err := pubsub.NewClient(ctx, project)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		queue, err := jobs.NewPubSubQueue(client.Topic(cfg.Notifications.PubSubTopic))
		if err != nil {
			logger.Fatal("failed to initialise pubsub queue", zap.Error(err))
		}
		closers = append(closers, func() {
			queue.Stop()
			if err := client.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		})
		infra.Queue = queue
	case "amqp":
		conn, err := jobs.DialAMQP(ctx, jobs.AMQPConfig{
			URL:        cfg.Notifications.AMQPURL,
			Exchange:   cfg.Notifications.AMQPExchange,
			Queue:      cfg.Notifications.AMQPQueue,
			RoutingKey: cfg.Notifications.AMQPRoutingKey,
		}, logger.Named("amqp"))
		if err != nil {
			logger.Fatal("failed to connect to amqp broker", zap.Error(err))
		}
		closers = append(closers, func() {
			if err := conn.Close(); err != nil {
				logger.Warn("amqp close error", zap.Error(err))
			}
		})
		queue, err := conn.Queue()
		if err != nil {
			logger.Fatal("failed to open amqp queue", zap.Error(err))
		}
		infra.Queue = queue
	}

	return infra, closeAll
}

func newPaymentManager(logger *zap.Logger, cfg config.PaymentsConfig) (*payments.Manager, error) {
	eventLogger := payments.Logger(observability.EventLogger(logger))
	var providers []payments.Provider
	if strings.TrimSpace(cfg.Razorpay.KeyID) != "" {
		razorpay, err := payments.NewRazorpayProvider(payments.RazorpayProviderConfig{
			KeyID:     cfg.Razorpay.KeyID,
			KeySecret: cfg.Razorpay.KeySecret,
			BaseURL:   cfg.Razorpay.BaseURL,
			Logger:    eventLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("razorpay: %w", err)
		}
		providers = append(providers, razorpay)
	}
	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		stripe, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:         cfg.Stripe.APIKey,
			AccountID:      cfg.Stripe.AccountID,
			PublishableKey: cfg.Stripe.PublishableKey,
			Logger:         eventLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("stripe: %w", err)
		}
		providers = append(providers, stripe)
	}
	return payments.NewManager(providers, payments.WithDefaultProvider(cfg.DefaultProvider))
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := di.OSEnv("API_BUILD_VERSION")
	if version == "" {
		version = "dev"
	}
	commit := di.OSEnv("API_BUILD_COMMIT_SHA")
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newHealthRepository(client *firestore.Client, fetcher *secrets.Fetcher, redisCache *cache.Redis) (repositories.HealthRepository, error) {
	checks := make([]repositories.DependencyCheck, 0, 3)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	if redisCache != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "redis",
			Timeout: 500 * time.Millisecond,
			Check:   redisCache.Ping,
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	return repositories.NewDependencyHealthRepository(checks)
}

func buildOIDCMiddleware(logger *zap.Logger, cfg config.Config, metrics auth.MetricsRecorder) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.Security.OIDC.JWKSURL) == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	adapter := observability.NewPrintfAdapter(logger)
	opts := []auth.OIDCOption{auth.WithOIDCLogger(adapter)}
	if metrics != nil {
		opts = append(opts, auth.WithOIDCMetrics(metrics))
	}
	validator := auth.NewOIDCValidator(auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL), opts...)

	audience := strings.TrimSpace(cfg.Security.OIDC.Audience)
	if audience == "" {
		logger.Warn("auth: OIDC audience not configured; internal routes will reject requests")
	}
	issuers := cfg.Security.OIDC.Issuers
	if len(issuers) == 0 {
		logger.Warn("auth: OIDC issuers not configured; internal routes will reject requests")
	}
	return validator.RequireOIDC(audience, issuers)
}

func buildHMACMiddleware(logger *zap.Logger, cfg config.Config, redisCache *cache.Redis, metrics auth.MetricsRecorder) func(http.Handler) http.Handler {
	secretsByName := make(map[string]string)
	for key, value := range cfg.Security.HMAC.Secrets {
		if strings.TrimSpace(value) == "" {
			continue
		}
		secretsByName[strings.ToLower(key)] = value
	}
	if _, ok := secretsByName[webhookSecretName]; !ok {
		logger.Warn("auth: shipping webhook secret not configured; webhook routes are unsigned")
		return nil
	}

	var nonces auth.NonceStore = auth.NewInMemoryNonceStore()
	if redisCache != nil {
		nonces = redisCache
	}
	opts := []auth.HMACOption{
		auth.WithHMACLogger(observability.NewPrintfAdapter(logger)),
		auth.WithHMACHeaders(cfg.Security.HMAC.SignatureHeader, cfg.Security.HMAC.TimestampHeader, cfg.Security.HMAC.NonceHeader),
		auth.WithHMACWindow(cfg.Security.HMAC.ClockSkew, cfg.Security.HMAC.NonceTTL),
	}
	if metrics != nil {
		opts = append(opts, auth.WithHMACMetrics(metrics))
	}
	validator := auth.NewHMACValidator(auth.StaticSecrets(secretsByName), nonces, opts...)
	return validator.RequireHMAC(webhookSecretName)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}
