package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradeline-labs/tradeline-go/internal/pipeline"
	"github.com/tradeline-labs/tradeline-go/internal/platform/auditlog"
	"github.com/tradeline-labs/tradeline-go/internal/platform/auth"
	"github.com/tradeline-labs/tradeline-go/internal/platform/env"
	"github.com/tradeline-labs/tradeline-go/internal/platform/httpserver"
	"github.com/tradeline-labs/tradeline-go/internal/platform/objectstore"
	"github.com/tradeline-labs/tradeline-go/internal/platform/postgres"
	pgrepo "github.com/tradeline-labs/tradeline-go/internal/repo/postgres"
	"github.com/tradeline-labs/tradeline-go/internal/service/transitions"
	"github.com/tradeline-labs/tradeline-go/internal/storage/documents"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("PIPELINE_HTTP_ADDR", ":8081")
	shutdownTimeout, err := env.Duration("PIPELINE_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	rules, err := pipeline.LoadRulesFile(env.String("PIPELINE_RULES_FILE", ""))
	if err != nil {
		logger.Error("invalid pipeline rules", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()

	vault := documents.NewVault(storeClient, storeCfg.BucketDocuments, rules)
	providers := pipeline.NewProviderSet()
	providers.Register(pipeline.CheckDocumentsComplete, vault.Complete)
	providers.Register(pipeline.CheckCardConfigComplete, pipeline.CardConfigComplete(rules.CardConfigFields))

	registry := pipeline.NewRegistry()
	guard := pipeline.NewGuard(registry, providers)
	entities := pgrepo.NewEntityStore(db)
	trail := pgrepo.NewTrailStore(db)
	svc := transitions.New(entities, registry, guard)
	if guard == nil || svc == nil {
		logger.Error("service wiring failed")
		os.Exit(2)
	}

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}

	var authenticator auth.Authenticator
	var oidcService *auth.OIDCService
	switch authCfg.Mode {
	case auth.ModeDev:
		logger.Warn("dev auth mode enabled; do not use in production")
		authenticator = auth.NewDevAuthenticator(authCfg)
	case auth.ModeOIDC:
		oidcService, err = auth.NewOIDCService(ctx, authCfg)
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			os.Exit(2)
		}
		authenticator = oidcService
	default:
		logger.Error("unsupported auth mode", "mode", string(authCfg.Mode))
		os.Exit(2)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("pipeline"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"pipeline",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
			httpserver.ReadinessCheck{
				Name: "minio",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return objectstore.CheckBuckets(checkCtx, storeClient, storeCfg)
				},
			},
		),
	)

	if oidcService != nil {
		registerAuthRoutes(logger, mux, authCfg, oidcService)
	}

	api := newPipelineAPI(logger, svc, trail, registry)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		Authorize:     auth.MethodRoleAuthorizer(),
		Audit: func(ctx context.Context, event auth.DenyEvent) error {
			auditCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			return auditlog.InsertAuthDeny(auditCtx, db, "pipeline", event)
		},
		SkipPrefixes: []string{"/healthz", "/readyz", "/auth/"},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "pipeline",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "pipeline", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func registerAuthRoutes(logger *slog.Logger, mux *http.ServeMux, authCfg auth.Config, oidcService *auth.OIDCService) {
	mux.HandleFunc("/auth/logout", oidcService.LogoutHandler())
	mux.HandleFunc("/auth/session", oidcService.SessionHandler())

	if err := authCfg.ValidateForLogin(); err != nil {
		logger.Warn("oidc login flow not configured", "error", err)
		notConfigured := func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotImplemented)
			_, _ = w.Write([]byte("{\"error\":\"login_not_configured\"}\n"))
		}
		mux.HandleFunc("/auth/login", notConfigured)
		mux.HandleFunc("/auth/callback", notConfigured)
		return
	}

	login, err := oidcService.LoginHandler()
	if err != nil {
		logger.Error("oidc login handler init failed", "error", err)
		os.Exit(2)
	}
	callback, err := oidcService.CallbackHandler()
	if err != nil {
		logger.Error("oidc callback handler init failed", "error", err)
		os.Exit(2)
	}
	mux.HandleFunc("/auth/login", login)
	mux.HandleFunc("/auth/callback", callback)
}
