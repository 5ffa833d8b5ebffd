package models

import "time"

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Response types

type HealthResponse struct {
	Status      string           `json:"status"`
	Database    string           `json:"database"`
	Environment string           `json:"environment"`
	Service     string           `json:"service"`
	Timestamp   time.Time        `json:"timestamp"`
	Migration   *MigrationStatus `json:"migration,omitempty"`
}

// MigrationStatus summarizes the schema reconciliation run done at startup.
type MigrationStatus struct {
	RunID            string    `json:"run_id"`
	Dialect          string    `json:"dialect"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	DurationMS       int64     `json:"duration_ms"`
	TablesCreated    []string  `json:"tables_created"`
	ColumnsAdded     []string  `json:"columns_added"`
	IndexesCreated   []string  `json:"indexes_created"`
	ForeignKeysAdded []string  `json:"foreign_keys_added,omitempty"`
	RowsBackfilled   int64     `json:"rows_backfilled"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
