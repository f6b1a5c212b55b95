package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"opsgrid.org/internal/config"
	"opsgrid.org/internal/httpapi"
	"opsgrid.org/internal/obs"
	"opsgrid.org/internal/org"
	"opsgrid.org/internal/platform"
	"opsgrid.org/internal/token"
	"opsgrid.org/internal/user"
)

var (
	version = "0.4.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", os.Getenv("OPSGRID_CONFIG"), "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := obs.InitLogger(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer obs.Sync()
	obs.Init()
	obs.InitBuildInfo(version, commit)
	logger := obs.Logger()

	if cfg.Database.DSN == "" {
		logger.Fatal("missing database DSN: set database.dsn or OPSGRID_PG_DSN")
	}
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	tokens := token.NewPGStore(db)
	users := user.NewPGStore(db)
	orgs := org.NewPGStore(db)

	platformClient := platform.NewClient(
		cfg.Platform.BaseURL,
		cfg.Platform.RequestTimeout,
		platform.WithSigningSecret(cfg.Platform.SigningSecret),
	)

	var resolverOpts []org.ResolverOption
	if cfg.Tenancy.License == config.LicenseCloud {
		resolverOpts = append(resolverOpts, org.WithCloudLicense())
	} else {
		resolverOpts = append(resolverOpts,
			org.WithSelfHostedSlugs(cfg.Tenancy.OrgSlug, cfg.Tenancy.StackSlug))
	}
	resolver := org.NewResolver(orgs, platformClient, resolverOpts...)

	api := httpapi.New(httpapi.Deps{
		Version:           version,
		Ready:             httpapi.ReadyProbe{DB: db},
		Tokens:            tokens,
		Users:             users,
		Orgs:              orgs,
		Syncer:            user.NewStoreSyncer(users),
		Checker:           platformClient,
		Resolver:          resolver,
		IncidentStaticKey: cfg.Auth.IncidentStaticKey,
	})

	handler := api.Handler()
	handler = httpapi.Logging(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.RateLimit(handler, cfg.Server.RateLimitBurst, cfg.Server.RateLimitPerSec)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.RequestID(handler)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	logger.Info("starting opsgrid-api",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
		zap.String("license", cfg.Tenancy.License),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	logger.Info("stopped")
}
