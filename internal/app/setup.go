// Package app wires the checkout service from its configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Nerzal/gocloak/v13"
	"github.com/abgdnv/supermarket/internal/access"
	"github.com/abgdnv/supermarket/internal/config"
	"github.com/abgdnv/supermarket/internal/directory"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/service"
	"github.com/abgdnv/supermarket/internal/store"
	"github.com/abgdnv/supermarket/internal/transport/rest"
	"github.com/abgdnv/supermarket/pkg/auth"
	"github.com/abgdnv/supermarket/pkg/bootstrap"
	"github.com/abgdnv/supermarket/pkg/kafka"
	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/abgdnv/supermarket/pkg/nats"
	"github.com/abgdnv/supermarket/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

type Dependencies struct {
	CartService     *service.CartService
	CheckoutService *service.CheckoutService
	OrderService    *service.OrderService
	Authn           func(http.Handler) http.Handler
	Logger          *slog.Logger

	closers []func()
}

// Close releases broker and database connections in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// storage is the set of adapters selected by the backend settings.
type storage struct {
	catalog     store.ItemCatalog
	carts       store.CartStore
	orders      store.OrderStore
	tx          store.Transactor
	idempotency store.IdempotencyStore
	users       directory.Directory
}

// SetupDependencies connects to the configured backends and builds the services.
// On error every connection opened so far is closed.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger}
	if err := deps.build(ctx, cfg); err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func (deps *Dependencies) build(ctx context.Context, cfg *config.Config) error {
	logger := deps.Logger
	st, err := setupStorage(ctx, cfg, logger, deps)
	if err != nil {
		return err
	}
	for _, item := range cfg.Catalog.Seed {
		if _, err := st.catalog.Put(ctx, model.Item{ID: item.ID, Name: item.Name, UnitPrice: item.Price, StockQuantity: item.Stock}); err != nil {
			return fmt.Errorf("failed to seed item %s: %w", item.ID, err)
		}
	}
	if len(cfg.Directory.Users) > 0 {
		writer, ok := st.users.(directory.Writer)
		if !ok {
			return fmt.Errorf("directory %s does not accept seed users", cfg.Directory.Backend)
		}
		for _, user := range cfg.Directory.Users {
			if err := writer.Put(ctx, model.User{ID: user.ID, Email: user.Email}); err != nil {
				return fmt.Errorf("failed to seed user %s: %w", user.ID, err)
			}
		}
	}

	publisher, err := setupPublisher(ctx, cfg, deps)
	if err != nil {
		return err
	}

	authn, err := setupAuth(ctx, cfg)
	if err != nil {
		return err
	}
	deps.Authn = authn

	guard := access.NewGuard(st.users)
	deps.CartService = service.NewCartService(st.carts, st.catalog, guard, logger)
	deps.CheckoutService = service.NewCheckoutService(st.carts, st.catalog, st.orders, st.tx, st.idempotency, guard, publisher, logger)
	deps.OrderService = service.NewOrderService(st.orders, st.catalog, st.tx, guard, publisher, cfg.Checkout.StatusAttempts, logger)
	return nil
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (*storage, error) {
	st := &storage{}

	var pool *pgxpool.Pool
	if cfg.Storage.Backend == config.BackendPostgres || cfg.Catalog.Backend == config.BackendPostgres || cfg.Directory.Backend == config.BackendPostgres {
		if cfg.Database.Migrate {
			if err := store.Migrate(cfg.Database.URL); err != nil {
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		var err error
		pool, err = bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, pool.Close)
		logger.Info("Successfully connected to the database!")
	}

	var redisClient *redis.Client
	if cfg.Catalog.Backend == config.BackendRedis || cfg.Checkout.Idempotency == config.BackendRedis {
		var err error
		redisClient, err = bootstrap.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, func() { _ = redisClient.Close() })
		logger.Info("Successfully connected to redis", slog.String("addr", cfg.Redis.Addr))
	}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		st.carts = store.NewPgCartStore(pool)
		st.orders = store.NewPgOrderStore(pool)
		st.tx = store.NewPgTransactor(pool)
	default:
		st.carts = store.NewInMemoryCartStore()
		st.orders = store.NewInMemoryOrderStore()
		st.tx = store.NoopTransactor{}
	}

	switch cfg.Catalog.Backend {
	case config.BackendPostgres:
		st.catalog = store.NewPgCatalog(pool)
	case config.BackendRedis:
		st.catalog = store.NewRedisCatalog(redisClient)
	default:
		st.catalog = store.NewInMemoryCatalog()
	}

	switch cfg.Checkout.Idempotency {
	case config.BackendRedis:
		st.idempotency = store.NewRedisIdempotencyStore(redisClient, cfg.Checkout.IdempotencyTTL)
	default:
		st.idempotency = store.NewInMemoryIdempotencyStore(cfg.Checkout.IdempotencyTTL)
	}

	switch cfg.Directory.Backend {
	case config.BackendPostgres:
		st.users = directory.NewPgDirectory(pool)
	case config.BackendKeycloak:
		client := gocloak.NewClient(cfg.Keycloak.URL)
		// fail fast on bad credentials
		if _, err := client.LoginClient(ctx, cfg.Keycloak.ClientID, cfg.Keycloak.ClientSecret, cfg.Keycloak.Realm); err != nil {
			return nil, fmt.Errorf("keycloak login failed: %w", err)
		}
		st.users = directory.NewKeycloakDirectory(client, cfg.Keycloak, cfg.CircuitBreaker, logger)
	default:
		st.users = directory.NewInMemory()
	}
	return st, nil
}

func setupPublisher(ctx context.Context, cfg *config.Config, deps *Dependencies) (messaging.Publisher, error) {
	switch cfg.Events.Backend {
	case config.BackendNATS:
		nc, err := nats.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, nc.Close)
		js, err := nats.NewJetStreamContext(nc)
		if err != nil {
			return nil, err
		}
		if cfg.NATS.Stream != "" {
			if err := nats.EnsureStream(ctx, js, cfg.NATS.Stream); err != nil {
				return nil, err
			}
		}
		return nats.NewNatsPublisher(js), nil
	case config.BackendKafka:
		writer := kafka.NewWriter(cfg.Kafka)
		deps.closers = append(deps.closers, func() { _ = writer.Close() })
		return kafka.NewPublisher(writer), nil
	default:
		return messaging.NopPublisher{}, nil
	}
}

func setupAuth(ctx context.Context, cfg *config.Config) (func(http.Handler) http.Handler, error) {
	if cfg.Auth.Mode == config.AuthJWT {
		verifier, err := auth.NewJWTVerifier(ctx, cfg.IdP)
		if err != nil {
			return nil, err
		}
		return auth.BearerMiddleware(verifier, cfg.IdP.AdminRole), nil
	}
	return auth.HeaderMiddleware(cfg.Auth.AdminRole), nil
}

// SetupHttpHandler builds the router with the REST API and, when metrics is not nil, /metrics.
func SetupHttpHandler(deps *Dependencies, metrics http.Handler) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	if metrics != nil {
		mux.Method(http.MethodGet, "/metrics", metrics)
	}
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.CartService, deps.CheckoutService, deps.OrderService, deps.Logger)
	handler.RegisterRoutes(mux, deps.Authn)
}

// SetupHttpServer creates and configures the HTTP server of the checkout service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config, serviceName string, metrics http.Handler) *http.Server {
	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	return server.NewHTTPServer(httpCfg, serviceName, SetupHttpHandler(deps, metrics))
}

// SetupGrpcServer creates the gRPC server that serves the health protocol.
func SetupGrpcServer(deps *Dependencies, cfg *config.Config) (*grpc.Server, *health.Server) {
	healthServer := health.NewServer()
	grpcServer := server.NewGRPCServer(deps.Logger, cfg.GRPC.ReflectionEnabled, server.HealthRegistration(healthServer))
	return grpcServer, healthServer
}
