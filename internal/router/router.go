package router

import (
	"database/sql"
	"net/http"
	"time"

	mem "crm-access-engine/internal/adapters/storage/memory"
	pg "crm-access-engine/internal/adapters/storage/postgres"
	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/audit"
	"crm-access-engine/internal/domain/authz"
	"crm-access-engine/internal/domain/claims"
	"crm-access-engine/internal/domain/entities"
	"crm-access-engine/internal/domain/evalcache"
	"crm-access-engine/internal/domain/rules"
	"crm-access-engine/internal/domain/users"
	"crm-access-engine/internal/middleware"
	"crm-access-engine/internal/platform/logger"
	"crm-access-engine/internal/ports/auth"

	_ "crm-access-engine/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Logger logger.Logger

	// Default: DefaultGlobalAccessConfig fija.
	AccessConfig access.ConfigSource

	// Opcional: store del cache de evaluación (valkey o memoria). Nil => sin cache.
	CacheStore   evalcache.Store
	EvalCacheTTL time.Duration

	// Opcional: sink de audit alternativo (sqlite embebido). Nil => mismo backend que el resto.
	AuditRepo audit.Repository
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	cfg := opts.AccessConfig
	if cfg == nil {
		cfg = access.StaticConfig(access.DefaultGlobalAccessConfig())
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	var (
		ruleRepo   rules.Repository
		entityRepo entities.Repository
		userRepo   users.Repository
		auditRepo  audit.Repository
	)

	if opts.DB != nil {
		ruleRepo = pg.NewRulesRepo(opts.DB)
		entityRepo = pg.NewEntitiesRepo(opts.DB)
		userRepo = pg.NewUsersRepo(opts.DB)
		auditRepo = pg.NewAuditRepo(opts.DB)
	} else {
		ruleRepo = mem.NewRuleRepo()
		entityRepo = mem.NewEntityRepo()
		userRepo = mem.NewUserRepo()
		auditRepo = mem.NewAuditRepo()
	}
	if opts.AuditRepo != nil {
		auditRepo = opts.AuditRepo
	}

	// Services por módulo
	auditLog := audit.NewLog(auditRepo, log)

	engineOpts := []rules.EngineOption{rules.WithLogger(log)}
	if opts.CacheStore != nil {
		engineOpts = append(engineOpts, rules.WithCache(evalcache.New(opts.CacheStore, opts.EvalCacheTTL, log)))
	}
	engine := rules.NewEngine(ruleRepo, auditLog, engineOpts...)
	rulesSvc := rules.NewService(ruleRepo, auditLog, auditLog, log)

	usersSvc := users.NewService(userRepo)
	entitiesSvc := entities.NewService(entityRepo, auditLog, log)
	authzSvc := authz.NewService(engine, entitiesSvc, usersSvc, cfg, auditLog, log)
	coordinator := claims.NewCoordinator(entityRepo, cfg, auditLog, usersSvc, log)

	// Rutas por módulo
	rules.RegisterRoutes(r, rulesSvc)
	users.RegisterRoutes(r, usersSvc)
	entities.RegisterRoutes(r, entitiesSvc, authzSvc)
	claims.RegisterRoutes(r, coordinator)
	authz.RegisterRoutes(r, authzSvc)
	audit.RegisterRoutes(r, auditLog)

	return r
}
