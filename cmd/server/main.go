// Package main initializes and starts the JobBoard web gateway, setting up
// configuration, logging, the visitor session database, the content backend
// client, services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/JobBoard/internal/client/storage"
	"github.com/atinyakov/JobBoard/internal/config"
	"github.com/atinyakov/JobBoard/internal/contentapi"
	"github.com/atinyakov/JobBoard/internal/db"
	"github.com/atinyakov/JobBoard/internal/logger"
	"github.com/atinyakov/JobBoard/internal/repository"
	"github.com/atinyakov/JobBoard/internal/server/handler/http"
	"github.com/atinyakov/JobBoard/internal/service"
	"github.com/atinyakov/JobBoard/internal/session"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	// Parse command-line, environment and file configuration.
	fs := pflag.NewFlagSet("jobboard-server", pflag.ExitOnError)
	config.AddServerFlags(fs)
	_ = fs.Parse(os.Args[1:])

	v, err := config.New(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	options, err := config.Load(v)
	if err == nil {
		err = options.ValidateServer()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Drop visitor sessions nobody has used for the retention period.
	db.StartSessionCleaner(ctx, postgresDB, options.CleanerInterval, options.SessionRetention, zapLogger)

	// Content backend client.
	httpClient, err := contentapi.NewHTTPClient(options.APICAFile, options.RequestTimeout)
	if err != nil {
		zapLogger.Fatal("failed to build backend client", zap.Error(err))
	}
	api := contentapi.NewClient(contentapi.Config{
		BaseURL:    options.APIURL,
		HTTPClient: httpClient,
		RateLimit:  options.RateLimit,
		Logger:     zapLogger.Named("contentapi"),
	})

	// One session per visitor, persisted in PostgreSQL.
	sessionRepo := repository.NewPostgresSessionRepository(postgresDB)
	registry := session.NewRegistry(api, func(visitorID string) storage.Store {
		return sessionRepo.ForVisitor(visitorID, options.RequestTimeout)
	}, options.SessionIdle, zapLogger.Named("session"))
	registry.StartSweeper(ctx, max(options.SessionIdle/2, time.Second))

	// Initialize business-logic services.
	catalog := service.NewCatalog(api, zapLogger.Named("catalog"))
	applications := service.NewApplications(api, zapLogger.Named("applications"))

	// Create HTTP handlers.
	sessionHandler := &http.SessionHandler{Sessions: registry, Log: zapLogger}
	jobHandler := &http.JobHandler{Catalog: catalog, Log: zapLogger}
	applicationHandler := &http.ApplicationHandler{
		Sessions:     registry,
		Catalog:      catalog,
		Applications: applications,
		Log:          zapLogger,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(sessionHandler, jobHandler, applicationHandler, zapLogger, options.TLSEnabled())

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if options.TLSEnabled() {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSEnabled() {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address), zap.String("backend", api.BaseURL()))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address), zap.String("backend", api.BaseURL()))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
