// Package main initializes and starts the authentication server, wiring
// configuration, logging, user and session storage, services, handlers and
// optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/config"
	"github.com/atinyakov/authkeeper/internal/db"
	"github.com/atinyakov/authkeeper/internal/logger"
	"github.com/atinyakov/authkeeper/internal/middleware"
	"github.com/atinyakov/authkeeper/internal/repository"
	"github.com/atinyakov/authkeeper/internal/security"
	"github.com/atinyakov/authkeeper/internal/server/handler/http"
	"github.com/atinyakov/authkeeper/internal/service"
	"github.com/atinyakov/authkeeper/internal/session"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

// stores bundles the storage backends selected by configuration.
type stores struct {
	users    service.AuthRepository
	sessions service.SessionStore
	close    func()
}

// openStores selects PostgreSQL or memory for users and Redis or memory for
// sessions. The in-memory session store is swept until ctx ends.
func openStores(ctx context.Context, options *config.Options, log *zap.Logger) (*stores, error) {
	s := &stores{close: func() {}}
	ttl := options.SessionTTL.Duration

	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("cannot init database: %w", err)
		}
		s.users = repository.NewPostgresAuthRepository(postgresDB)
		prev := s.close
		s.close = func() { prev(); _ = postgresDB.Close() }
		log.Info("user store: postgres")
	} else {
		s.users = repository.NewMemoryAuthRepository()
		log.Warn("user store: memory, accounts are lost on restart")
	}

	if options.RedisURL != "" {
		rdb, err := session.NewRedisClient(ctx, options.RedisURL)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("cannot init redis: %w", err)
		}
		s.sessions = session.NewRedisStore(rdb, ttl)
		prev := s.close
		s.close = func() { prev(); _ = rdb.Close() }
		log.Info("session store: redis")
	} else {
		mem := session.NewMemoryStore(ttl)
		mem.StartSweeper(ctx, sweepInterval, log)
		s.sessions = mem
		log.Info("session store: memory")
	}

	return s, nil
}

// newRouter wires services and handlers on top of the stores.
func newRouter(options *config.Options, st *stores, log *zap.Logger) nethttp.Handler {
	authService := service.NewAuthService(
		st.users,
		st.sessions,
		security.NewBcryptHasher(0),
		security.NewTOTPProvider(options.TOTPIssuer),
		log,
	)

	cookie := middleware.Cookie{
		Name:   options.CookieName,
		Secure: options.CookieSecure || options.TLSEnabled(),
		TTL:    options.SessionTTL.Duration,
	}
	authHandler := &http.AuthHandler{AuthService: authService, Cookie: cookie, Log: log}
	mfaHandler := &http.MFAHandler{MFAService: authService, Log: log}

	return http.NewRouter(authHandler, mfaHandler, authService, log)
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, options *config.Options, log *zap.Logger) error {
	st, err := openStores(ctx, options, log)
	if err != nil {
		return err
	}
	defer st.close()

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           newRouter(options, st, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if options.TLSEnabled() {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSEnabled() {
			log.Info("starting HTTPS server", zap.String("addr", options.Port))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		log.Info("starting HTTP server", zap.String("addr", options.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
