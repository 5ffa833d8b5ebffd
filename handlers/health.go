// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/skillstown/server/cliparse"
	"github.com/skillstown/server/db"
	"github.com/skillstown/server/middleware"
	"github.com/skillstown/server/models"
)

const (
	serviceName = "skillstown"
	pingTimeout = 2 * time.Second
)

type HealthHandler struct {
	conn      *sql.DB
	cfg       cliparse.Config
	migration *db.Result
}

// NewHealthHandler creates a health handler. migration is the startup
// reconciliation run, or nil when none ran.
func NewHealthHandler(conn *sql.DB, cfg cliparse.Config, migration *db.Result) *HealthHandler {
	return &HealthHandler{conn: conn, cfg: cfg, migration: migration}
}

// Health handles GET /health
// Reports database reachability and the startup migration outcome
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	dbStatus := models.StatusHealthy
	if err := h.conn.PingContext(ctx); err != nil {
		slog.Warn("health check database ping failed", "error", err)
		dbStatus = models.StatusUnhealthy + ": " + err.Error()
	}

	middleware.JSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:      models.StatusHealthy,
		Database:    dbStatus,
		Environment: h.cfg.Environment,
		Service:     serviceName,
		Timestamp:   time.Now().UTC(),
		Migration:   MigrationStatusFrom(h.migration),
	})
}

// Migration handles GET /health/migration
// Returns the startup reconciliation run in detail
func (h *HealthHandler) Migration(w http.ResponseWriter, r *http.Request) {
	if h.migration == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "no schema reconciliation has run")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, MigrationStatusFrom(h.migration))
}

// MigrationStatusFrom converts a reconciliation result to its JSON form.
func MigrationStatusFrom(res *db.Result) *models.MigrationStatus {
	if res == nil {
		return nil
	}

	status := &models.MigrationStatus{
		RunID:            res.RunID,
		Dialect:          res.Dialect,
		Success:          res.Success,
		StartedAt:        res.StartedAt,
		DurationMS:       res.Duration.Milliseconds(),
		TablesCreated:    nonNil(res.TablesCreated),
		ColumnsAdded:     nonNil(res.ColumnsAdded),
		IndexesCreated:   nonNil(res.IndexesCreated),
		ForeignKeysAdded: res.ForeignKeysAdded,
		RowsBackfilled:   res.RowsBackfilled,
	}
	if res.Err != nil {
		status.Error = res.Err.Error()
	}
	return status
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
