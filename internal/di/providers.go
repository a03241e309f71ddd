package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/app"
	"github.com/orgstack/identity-admin/internal/authz"
	"github.com/orgstack/identity-admin/internal/config"
	"github.com/orgstack/identity-admin/internal/database"
	"github.com/orgstack/identity-admin/internal/health"
	"github.com/orgstack/identity-admin/internal/http/handler"
	"github.com/orgstack/identity-admin/internal/http/middleware"
	"github.com/orgstack/identity-admin/internal/http/router"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
	"github.com/orgstack/identity-admin/internal/security"
	"github.com/orgstack/identity-admin/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewRoleRepository,
	repository.NewPermissionRepository,
	repository.NewGroupRepository,
	repository.NewCategoryRepository,
	repository.NewContactRepository,
	repository.NewThemeRepository,
	repository.NewCredentialRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
)

var ServiceSet = wire.NewSet(
	provideResolver,
	provideSnapshotCache,
	wire.Bind(new(service.SnapshotCache), new(*service.RedisSnapshotCache)),
	wire.Bind(new(service.SnapshotInvalidator), new(*service.RedisSnapshotCache)),
	provideNotifier,
	wire.Bind(new(notify.Publisher), new(*notify.RedisNotifier)),
	wire.Bind(new(notify.Subscriber), new(*notify.RedisNotifier)),
	notify.NewBroker,
	provideAuthService,
	provideAuthzService,
	service.NewUserService,
	service.NewRoleService,
	service.NewPermissionService,
	service.NewGroupService,
	service.NewContactService,
	service.NewCategoryService,
	service.NewThemeService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(middleware.TokenVerifier), new(*service.AuthService)),
	wire.Bind(new(service.AuthzServiceInterface), new(*service.AuthzService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
	wire.Bind(new(service.RoleServiceInterface), new(*service.RoleService)),
	wire.Bind(new(service.PermissionServiceInterface), new(*service.PermissionService)),
	wire.Bind(new(service.GroupServiceInterface), new(*service.GroupService)),
	wire.Bind(new(service.ContactServiceInterface), new(*service.ContactService)),
	wire.Bind(new(service.CategoryServiceInterface), new(*service.CategoryService)),
	wire.Bind(new(service.ThemeServiceInterface), new(*service.ThemeService)),
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewAdminHandler,
	handler.NewEventsHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) Run() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	report, err := database.Seed(m.db, m.cfg.RBACSuperRole, m.cfg.BootstrapAdminUsername, m.cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	fmt.Printf("migration complete: %d permissions, %d roles, %d groups, %d themes seeded\n",
		report.CreatedPermissions, report.CreatedRoles, report.CreatedGroups, report.CreatedThemes)
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if _, err := database.Seed(db, cfg.RBACSuperRole, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	observability.InstrumentRedisClient(client, logger)
	return client, nil
}

func provideResolver(cfg *config.Config) *authz.Resolver {
	return authz.NewResolver(authz.Config{
		SuperRole:        cfg.RBACSuperRole,
		PrivilegedGroups: cfg.RBACPrivilegedGroups,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer)
}

func provideSnapshotCache(client redis.UniversalClient) *service.RedisSnapshotCache {
	return service.NewRedisSnapshotCache(client, "authz_snapshot")
}

func provideNotifier(cfg *config.Config, client redis.UniversalClient, logger *slog.Logger) *notify.RedisNotifier {
	return notify.NewRedisNotifier(client, cfg.RedisEventPrefix, logger)
}

func provideAuthService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	credRepo repository.CredentialRepository,
	jwtMgr *security.JWTManager,
) *service.AuthService {
	return service.NewAuthService(userRepo, credRepo, jwtMgr, cfg.JWTAccessTTL)
}

func provideAuthzService(
	cfg *config.Config,
	resolver *authz.Resolver,
	userRepo repository.UserRepository,
	cache service.SnapshotCache,
) *service.AuthzService {
	return service.NewAuthzService(resolver, userRepo, cache, cfg.AuthzSnapshotTTL)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	limiter := middleware.NewRedisFixedWindowLimiter(redisClient, "ratelimit:api")
	return router.GlobalRateLimiterFunc(middleware.NewDistributedRateLimiter(
		limiter,
		cfg.APIRateLimitPerMin,
		time.Minute,
		middleware.FailOpen,
		"api",
	).Middleware())
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	limiter := middleware.NewRedisFixedWindowLimiter(redisClient, "ratelimit:auth")
	return router.AuthRateLimiterFunc(middleware.NewDistributedRateLimiter(
		limiter,
		cfg.AuthRateLimitPerMin,
		time.Minute,
		middleware.FailClosed,
		"auth",
	).Middleware())
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	adminHandler *handler.AdminHandler,
	eventsHandler *handler.EventsHandler,
	verifier middleware.TokenVerifier,
	authzSvc service.AuthzServiceInterface,
	globalRateLimiter router.GlobalRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		UserHandler:       userHandler,
		AdminHandler:      adminHandler,
		EventsHandler:     eventsHandler,
		TokenVerifier:     verifier,
		Authz:             authzSvc,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: globalRateLimiter,
		AuthRateLimiter:   authRateLimiter,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{
		health.NewDBChecker(db),
		health.NewRedisChecker(redisClient),
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness)
}
