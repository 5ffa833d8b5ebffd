// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/skillstown/server/cliparse"
	"github.com/skillstown/server/db"
	"github.com/skillstown/server/handlers"
	"github.com/skillstown/server/middleware"
)

// NewRouter registers the API routes. migration is the startup
// reconciliation result, or nil when none ran.
func NewRouter(conn *sql.DB, cfg cliparse.Config, migration *db.Result) *http.ServeMux {
	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(conn, cfg, migration)

	// Health checks
	mux.HandleFunc("GET /health", middleware.WithLogging(healthHandler.Health))
	mux.HandleFunc("GET /health/migration", middleware.WithLogging(healthHandler.Migration))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("skillstown API v1"))
	})

	return mux
}
