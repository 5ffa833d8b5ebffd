package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/skillstown/server/cliparse"
	"github.com/skillstown/server/db"
	"github.com/skillstown/server/logging"
	"github.com/skillstown/server/router"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logger, flush := logging.SetupLogger(cfg.SeqURL, cfg.LogLevel)
	slog.SetDefault(logger)

	// Open the database; the driver is picked from DATABASE_TYPE or the URL
	dbConn, dialect, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database open failed", "error", err)
		flush()
		os.Exit(1)
	}

	ctx := context.Background()

	// Standalone migration: reconcile and report through the exit code
	if cfg.Migrate {
		res := db.Reconcile(ctx, dbConn, dialect)
		dbConn.Close()
		flush()
		if !res.Success {
			os.Exit(1)
		}
		os.Exit(0)
	}

	defer flush()
	defer dbConn.Close()

	// The server still starts when the database is down; /health reports it
	if err := dbConn.PingContext(ctx); err != nil {
		slog.Error("database ping failed", "error", err, "dialect", dialect.Name())
	}

	var migration *db.Result
	if cfg.Production() {
		res := db.Reconcile(ctx, dbConn, dialect)
		migration = &res
	} else {
		if err := db.CreateSchema(ctx, dbConn, dialect); err != nil {
			slog.Error("schema creation failed", "error", err)
		} else {
			slog.Info("Database schema ready", "dialect", dialect.Name())
		}
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, migration)

	// Create server
	server := http.Server{
		Handler: mux,
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "environment", cfg.Environment)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
