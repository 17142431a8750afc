package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aripzuan/BackEndAPI/pkg/bookings"
	"github.com/aripzuan/BackEndAPI/pkg/circuitbreaker"
	"github.com/aripzuan/BackEndAPI/pkg/config"
	"github.com/aripzuan/BackEndAPI/pkg/courts"
	"github.com/aripzuan/BackEndAPI/pkg/database"
	"github.com/aripzuan/BackEndAPI/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New(logger.Config{Service: "courts-api"})
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "courts-api"})
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("dsn", cfg.RedactedDSN()).Msg("connecting to database")
	db, err := database.Open(ctx, database.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectRetries:  cfg.DBConnectRetries,
		RetryDelay:      cfg.DBConnectRetryDelay,
		Log:             log,
	})
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(ctx, db, log); err != nil {
		return err
	}

	cb := newStorageBreaker(cfg, log)
	registry := courts.NewRegistry(db, cb)
	ledger := bookings.NewLedger(db, cb)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := registerValidators(); err != nil {
		return err
	}
	router := newRouter(db, registry, ledger, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           withCORS(cfg.CORSAllowedOrigins, router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("courts api listening")
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

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func newStorageBreaker(cfg config.Config, log zerolog.Logger) *circuitbreaker.CircuitBreaker {
	cb := circuitbreaker.NewCircuitBreakerWithWindow(cfg.BreakerMaxFailures, cfg.BreakerTimeout, cfg.BreakerWindow)
	cb.Ignore = isExpectedOutcome
	cb.OnChange = func(from, to circuitbreaker.State) {
		log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("storage circuit breaker changed state")
	}
	return cb
}

// isExpectedOutcome reports errors that say nothing about database health.
func isExpectedOutcome(err error) bool {
	return courts.IsExpected(err) ||
		bookings.IsExpected(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
