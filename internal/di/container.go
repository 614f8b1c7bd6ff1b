package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/cache"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/config"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/jobs"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/observability"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

const defaultLockTTL = 30 * time.Second

// Infrastructure carries the external collaborators built by the binary. Payments, Shipping,
// Renderer and ResetLinks are required; the rest are optional.
type Infrastructure struct {
	Cache    cache.Store
	Locker   cache.Locker
	Payments services.PaymentGateway
	Shipping services.ShippingCollaborator
	Invoices services.InvoiceIssuer
	Archive  services.InvoiceArchiver
	// Queue carries notifications to the dispatcher. Nil delivers them in-process.
	Queue       services.NotificationQueue
	Renderer    services.NotificationRenderer
	Email       services.EmailSender
	SMS         services.SMSSender
	ResetLinks  services.PasswordResetLinker
	Meter       metric.Meter
	Logger      *zap.Logger
	Build       services.BuildInfo
	Clock       func() time.Time
	IDGenerator func() string
}

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Cart          services.CartService
	Checkout      services.CheckoutService
	Shipping      services.ShippingResolver
	Payments      services.PaymentOrchestrator
	Orders        services.OrderService
	Inquiries     services.InquiryService
	Accounts      services.AccountService
	Notifications services.NotificationDispatcher
	System        services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services

	inline *jobs.InlineQueue
}

// NewContainer constructs the runtime dependencies. Production wiring passes the Firestore
// registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	c := &Container{Config: cfg, Repositories: reg}
	svc, err := c.buildServices(ctx, infra)
	if err != nil {
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// Close drains in-process notification deliveries and releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.inline != nil {
		c.inline.Wait()
	}
	if c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func (c *Container) buildServices(_ context.Context, infra Infrastructure) (Services, error) {
	cfg := c.Config
	reg := c.Repositories
	base := infra.Logger
	if base == nil {
		base = zap.NewNop()
	}
	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := func(name string) services.Logger {
		return observability.EventLogger(base.Named(name))
	}

	var svc Services

	// deliver is bound once the dispatcher exists; the inline queue only runs after wiring completes.
	var deliver services.NotificationDispatcher
	queue := infra.Queue
	if queue == nil {
		inline, err := jobs.NewInlineQueue(func(ctx context.Context, n domain.Notification) error {
			return deliver.Deliver(ctx, n)
		}, func(ctx context.Context, n domain.Notification, err error) {
			logger("notifications")(ctx, "notifications.inline_delivery_failed", map[string]any{
				"notificationId": n.ID,
				"kind":           string(n.Kind),
				"error":          err,
			})
		})
		if err != nil {
			return Services{}, fmt.Errorf("build inline notification queue: %w", err)
		}
		c.inline = inline
		queue = inline
	}

	dispatcher, err := services.NewNotificationDispatcher(services.NotificationDispatcherDeps{
		Queue:        queue,
		Renderer:     infra.Renderer,
		Orders:       reg.Orders(),
		Inquiries:    reg.Inquiries(),
		Email:        infra.Email,
		SMS:          infra.SMS,
		Brand:        cfg.Notifications.BrandName,
		SupportEmail: cfg.Notifications.SupportEmail,
		Clock:        clock,
		IDGenerator:  infra.IDGenerator,
		Logger:       logger("notifications"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build notification dispatcher: %w", err)
	}
	svc.Notifications = dispatcher
	deliver = dispatcher

	cart, err := services.NewCartService(services.CartServiceDeps{
		Carts:    reg.Carts(),
		Products: reg.Products(),
		Coupons:  services.NewCouponValidator(services.DefaultCouponRules()),
		Policy:   deliveryPolicy(cfg.Pricing),
		Clock:    clock,
		Logger:   logger("cart"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cart

	resolver, err := services.NewShippingResolver(services.ShippingResolverDeps{
		Shipping:       infra.Shipping,
		Cache:          infra.Cache,
		DebounceWindow: cfg.Shipping.DebounceWindow,
		FetchTimeout:   cfg.Shipping.Timeout,
		Logger:         logger("shipping"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build shipping resolver: %w", err)
	}
	svc.Shipping = resolver

	assembler, err := services.NewOrderAssembler(services.OrderAssemblerDeps{
		Orders:      reg.Orders(),
		Clock:       clock,
		IDGenerator: infra.IDGenerator,
		Logger:      logger("orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order assembler: %w", err)
	}

	orchestrator, err := services.NewPaymentOrchestrator(services.PaymentOrchestratorDeps{
		Orders:        reg.Orders(),
		Carts:         reg.Carts(),
		Gateway:       infra.Payments,
		Notifications: dispatcher,
		Meter:         infra.Meter,
		Currency:      cfg.Payments.Currency,
		StoreName:     cfg.Notifications.BrandName,
		Clock:         clock,
		IDGenerator:   infra.IDGenerator,
		Logger:        logger("payments"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment orchestrator: %w", err)
	}
	svc.Payments = orchestrator

	locker := infra.Locker
	if locker == nil {
		locker = cache.NewMemory(clock)
	}
	lockTTL := cfg.Checkout.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:     cart,
		Shipping:  resolver,
		Assembler: assembler,
		Payments:  orchestrator,
		Locker:    locker,
		LockTTL:   lockTTL,
		Logger:    logger("checkout"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkout

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        reg.Orders(),
		Notifications: dispatcher,
		Invoices:      infra.Invoices,
		Archive:       infra.Archive,
		Clock:         clock,
		IDGenerator:   infra.IDGenerator,
		Logger:        logger("orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orders

	inquiries, err := services.NewInquiryService(services.InquiryServiceDeps{
		Inquiries:     reg.Inquiries(),
		Notifications: dispatcher,
		Clock:         clock,
		IDGenerator:   infra.IDGenerator,
		Logger:        logger("inquiries"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build inquiry service: %w", err)
	}
	svc.Inquiries = inquiries

	accounts, err := services.NewAccountService(services.AccountServiceDeps{
		Users:         reg.Users(),
		ResetLinks:    infra.ResetLinks,
		Notifications: dispatcher,
		Clock:         clock,
		IDGenerator:   infra.IDGenerator,
		Logger:        logger("accounts"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build account service: %w", err)
	}
	svc.Accounts = accounts

	build := infra.Build
	if strings.TrimSpace(build.Environment) == "" {
		build.Environment = cfg.Security.Environment
	}
	if build.StartedAt.IsZero() {
		build.StartedAt = clock().UTC()
	}
	system, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            clock,
		Build:            build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = system

	return svc, nil
}

func deliveryPolicy(cfg config.PricingConfig) services.DeliveryPolicy {
	policy := domain.DefaultDeliveryPolicy
	if cfg.DeliveryFee > 0 {
		policy.Fee = cfg.DeliveryFee
	}
	if cfg.FreeDeliveryMinimum > 0 {
		policy.FreeDeliveryMinimum = cfg.FreeDeliveryMinimum
	}
	return policy
}
