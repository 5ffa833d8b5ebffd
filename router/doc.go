// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the SkillsTown API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, &result)

# Endpoints

	GET /                 - API banner
	GET /health           - Service and database health
	GET /health/migration - Last schema reconciliation run

Other paths return 404; other methods on known paths return 405.
*/
package router
