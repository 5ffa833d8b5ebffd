// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the JSON response types of the SkillsTown server.

# Health

HealthResponse is returned by GET /health:

	{
	  "status": "healthy",
	  "database": "healthy",
	  "environment": "production",
	  "service": "skillstown",
	  "timestamp": "2025-01-01T00:00:00Z",
	  "migration": { ... }
	}

MigrationStatus is the startup reconciliation run, also served alone by
GET /health/migration. Slices are never null in JSON.

# Errors

All error responses use ErrorResponse:

	{
	  "error": "Not Found",
	  "message": "no schema reconciliation has run"
	}
*/
package models
