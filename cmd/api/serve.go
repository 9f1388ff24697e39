package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"crm-access-engine/internal/adapters/auth/idp"
	"crm-access-engine/internal/adapters/auth/jwtverifier"
	"crm-access-engine/internal/adapters/cache/valkeystore"
	"crm-access-engine/internal/adapters/storage/gormaudit"
	mem "crm-access-engine/internal/adapters/storage/memory"
	pg "crm-access-engine/internal/adapters/storage/postgres"
	"crm-access-engine/internal/config"
	"crm-access-engine/internal/domain/audit"
	"crm-access-engine/internal/domain/evalcache"
	"crm-access-engine/internal/platform/logger"
	"crm-access-engine/internal/platform/valkey"
	"crm-access-engine/internal/ports/auth"
	"crm-access-engine/internal/router"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), config.Load(v))
		},
	}

	cmd.Flags().String("config", "", "archivo de GlobalAccessConfig (yaml); se recarga al cambiar")
	cmd.Flags().String("port", "", "puerto HTTP (default APP_PORT o 8080)")
	_ = v.BindPFlag("access_config_file", cmd.Flags().Lookup("config"))
	_ = v.BindPFlag("app_port", cmd.Flags().Lookup("port"))

	return cmd
}

func serve(parent context.Context, cfg config.AppConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	accessCfg, watcher, err := config.LoadAccessConfig(cfg.AccessConfigFile)
	if err != nil {
		return err
	}
	holder := config.NewAccessConfigHolder(accessCfg, log)
	holder.WatchAccessConfig(watcher)

	opts := router.Options{
		Logger:       log,
		AccessConfig: holder,
		EvalCacheTTL: cfg.EvalCacheTTL,
	}

	// Postgres si hay DSN; si no, in-memory
	if cfg.DBDSN != "" {
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := pg.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		opts.DB = db
	} else {
		log.Warn("DB_DSN not set, using in-memory storage", nil)
	}

	opts.CacheStore = newCacheStore(ctx, cfg, log)

	if cfg.AuditSQLitePath != "" {
		repo, err := openAuditSink(ctx, cfg.AuditSQLitePath)
		if err != nil {
			return err
		}
		opts.AuditRepo = repo
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}
	if verifier == nil {
		log.Warn("no JWT_SECRET or IDP_BASE_URL, dev auth headers enabled", nil)
	}
	opts.AuthVerifier = verifier

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down", nil)
	return srv.Shutdown(shutdownCtx)
}

// newCacheStore usa valkey si está configurado y responde; si no, memoria con sweeper.
func newCacheStore(ctx context.Context, cfg config.AppConfig, log logger.Logger) evalcache.Store {
	if cfg.UsesValkey() {
		client, err := valkey.NewClient(cfg.Valkey)
		if err == nil {
			go func() {
				<-ctx.Done()
				client.Close()
			}()
			log.Info("evalcache backed by valkey", map[string]any{"address": cfg.Valkey.Address})
			return valkeystore.New(client)
		}
		log.Warn("valkey unavailable, falling back to memory cache", map[string]any{"error": err.Error()})
	}

	store := mem.NewEvalCacheStore()
	go store.RunSweeper(ctx, cfg.EvalCacheTTL, log)
	return store
}

func openAuditSink(ctx context.Context, path string) (audit.Repository, error) {
	db, err := gormaudit.Open(path)
	if err != nil {
		return nil, err
	}
	repo := gormaudit.NewRepository(db)
	if err := repo.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return repo, nil
}

func newVerifier(cfg config.AppConfig) (auth.AuthVerifier, error) {
	switch {
	case cfg.JWTSecret != "":
		v, err := jwtverifier.New(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, err
		}
		return v, nil
	case cfg.IDPBaseURL != "":
		client, err := idp.NewClient(idp.Config{BaseURL: cfg.IDPBaseURL, APIKey: cfg.IDPAPIKey})
		if err != nil {
			return nil, fmt.Errorf("idp client: %w", err)
		}
		return client, nil
	default:
		return nil, nil
	}
}
