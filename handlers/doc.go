// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the SkillsTown API.

# Handler Types

  - HealthHandler: Database reachability and schema migration status

Handlers are created via constructor functions that accept *sql.DB and Config:

	healthHandler := handlers.NewHealthHandler(db, cfg, &result)

The last argument is the startup reconciliation result, or nil when the
server started without one (development mode).

# Health

	GET /health           → Health (always 200, database status in body)
	GET /health/migration → Migration (404 until a reconciliation ran)

The database ping is bounded to two seconds so a stalled database cannot
hang the health check.
*/
package handlers
