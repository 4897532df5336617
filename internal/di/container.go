package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crownside/storefront/internal/catalog"
	"github.com/crownside/storefront/internal/notifications"
	"github.com/crownside/storefront/internal/orders"
	"github.com/crownside/storefront/internal/payments"
	"github.com/crownside/storefront/internal/platform/config"
	platformfs "github.com/crownside/storefront/internal/platform/firestore"
	"github.com/crownside/storefront/internal/platform/observability"
	"github.com/crownside/storefront/internal/repositories"
	fsrepo "github.com/crownside/storefront/internal/repositories/firestore"
	"github.com/crownside/storefront/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled in NewContainer.
type Services struct {
	Catalog  services.CatalogService
	Cart     services.CartService
	Checkout services.CheckoutService
	System   services.SystemService
}

// Container wires external clients, repositories, and services for runtime use.
type Container struct {
	Config    config.Config
	Firestore *platformfs.Provider
	Catalog   *catalog.Client
	Services  Services
}

// NewContainer constructs the runtime dependencies from configuration.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	eventLog := observability.EventLogger(logger)

	catalogClient, err := catalog.NewClient(catalog.ClientDeps{
		BaseURL:  cfg.Catalog.BaseURL,
		Currency: cfg.Cart.Currency,
		Timeout:  cfg.Catalog.Timeout,
		Logger:   eventLog,
	})
	if err != nil {
		return nil, fmt.Errorf("build catalog client: %w", err)
	}

	provider := platformfs.NewProvider(cfg.Firestore)

	cartStore, err := fsrepo.NewCartStore(fsrepo.CartStoreDeps{
		Provider: provider,
		Logger:   eventLog,
		Clock:    time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("build cart store: %w", err)
	}

	svc, err := buildServices(cfg, catalogClient, cartStore, provider, eventLog)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:    cfg,
		Firestore: provider,
		Catalog:   catalogClient,
		Services:  svc,
	}, nil
}

// Close releases resources such as database clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}

func buildServices(
	cfg config.Config,
	catalogClient *catalog.Client,
	cartStore repositories.CartStore,
	provider *platformfs.Provider,
	eventLog func(context.Context, string, map[string]any),
) (Services, error) {
	var svc Services

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: catalogClient,
		Clock:   time.Now,
		Logger:  eventLog,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Store:           cartStore,
		Catalog:         catalogSvc,
		Clock:           time.Now,
		Logger:          eventLog,
		MaxLineQuantity: cfg.Cart.MaxLineQuantity,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	manager, err := buildPaymentsManager(cfg)
	if err != nil {
		return Services{}, err
	}

	checkoutDeps := services.CheckoutServiceDeps{
		Store:    cartStore,
		Catalog:  catalogSvc,
		Payments: manager,
		Clock:    time.Now,
		Logger:   eventLog,
		Currency: cfg.Cart.Currency,
	}

	if cfg.Orders.SinkURL != "" {
		recorder, err := orders.NewHTTPRecorder(orders.HTTPRecorderDeps{
			SinkURL: cfg.Orders.SinkURL,
			Timeout: cfg.Orders.Timeout,
			Logger:  eventLog,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build order recorder: %w", err)
		}
		checkoutDeps.Recorder = recorder
	}

	if cfg.Mail.SendGridAPIKey != "" {
		notifier, err := notifications.NewSendGridNotifier(notifications.SendGridNotifierDeps{
			APIKey:      cfg.Mail.SendGridAPIKey,
			FromAddress: cfg.Mail.FromAddress,
			FromName:    cfg.Mail.FromName,
			Logger:      eventLog,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build sendgrid notifier: %w", err)
		}
		checkoutDeps.Notifier = notifier
	}

	checkoutSvc, err := services.NewCheckoutService(checkoutDeps)
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	healthRepo, err := buildHealthRepository(catalogClient, provider)
	if err != nil {
		return Services{}, fmt.Errorf("build health repository: %w", err)
	}

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Clock:            time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}

func buildPaymentsManager(cfg config.Config) (*payments.Manager, error) {
	if cfg.PSP.StripeAPIKey == "" {
		return nil, errors.New("di: stripe api key is required")
	}

	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.PSP.StripeAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("build stripe provider: %w", err)
	}

	manager, err := payments.NewManager(
		map[string]payments.Provider{"stripe": stripeProvider},
		payments.WithDefaultProvider("stripe"),
	)
	if err != nil {
		return nil, fmt.Errorf("build payments manager: %w", err)
	}
	return manager, nil
}

func buildHealthRepository(catalogClient *catalog.Client, provider *platformfs.Provider) (repositories.HealthRepository, error) {
	checks := []repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 3 * time.Second,
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		},
		{
			Name:    "catalog",
			Timeout: 5 * time.Second,
			Check: func(ctx context.Context) error {
				_, err := catalogClient.ListProducts(ctx)
				return err
			},
		},
	}
	return repositories.NewDependencyHealthRepository(checks)
}
