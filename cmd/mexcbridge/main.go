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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/mexcbridge/internal/adapter/driven/aesgcm"
	"github.com/ericfisherdev/mexcbridge/internal/adapter/driven/jwtauth"
	"github.com/ericfisherdev/mexcbridge/internal/adapter/driven/mexc"
	sqliteadapter "github.com/ericfisherdev/mexcbridge/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/mexcbridge/internal/adapter/driving/http"
	"github.com/ericfisherdev/mexcbridge/internal/application"
	"github.com/ericfisherdev/mexcbridge/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"exchange_base_url", cfg.ExchangeBaseURL,
		"exchange_timeout", cfg.ExchangeTimeout,
		"log_level", cfg.LogLevel.String(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	logger.Info("database opened", "path", db.Path())

	// 4. Run migrations on writer connection.
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "schema_version", version)

	// 5. Wire driven adapters.
	cipher, err := aesgcm.New(cfg.SecretKey)
	if err != nil {
		return err
	}
	clear(cfg.SecretKey)

	verifier, err := jwtauth.NewVerifier(cfg.JWTSecret, jwtauth.Options{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   30 * time.Second,
	})
	if err != nil {
		return err
	}

	credentialStore := sqliteadapter.NewCredentialRepo(db)
	tradeStore := sqliteadapter.NewTradeRepo(db)
	exchange := mexc.NewClient(cfg.ExchangeBaseURL, cfg.ExchangeTimeout, logger)

	// 6. Create application services.
	gate := application.NewAccessGate(verifier)
	credentialSvc := application.NewCredentialService(credentialStore, cipher, logger)
	orderSvc := application.NewOrderService(credentialStore, cipher, exchange, tradeStore, logger)

	// 7. Create HTTP handler with routes and middleware.
	apiHandler := httphandler.NewHandler(gate, credentialSvc, orderSvc, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, logger, cfg.CORSOrigin),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ExchangeTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("mexcbridge started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		return err
	}

	// 9. Graceful shutdown; in-flight orders get the full exchange deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ExchangeTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
