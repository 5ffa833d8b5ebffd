// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the SkillsTown API server.

SkillsTown tracks students, their course enrollments, quizzes and learning
progress. This server owns the database schema and keeps it current on
startup.

# Starting the Server

Configuration comes from environment variables, a .env file, or CLI flags:

	DATABASE_URL=postgres://... go run .

Or with flags:

	go run . -p 3318 -d "sqlite:///skillstown.db"

# Startup

  - Production: reconcile the schema (create missing tables, columns and
    indexes), then serve. A failed reconciliation is logged and reported on
    /health; the server still starts.
  - Development: create missing tables only, then serve.

# Migration Mode

	go run . -migrate

Reconciles the schema and exits with status 0 on success, 1 on failure.

# Configuration

  - DATABASE_URL (-d): postgres://, mysql:// or sqlite:/// URL
  - DATABASE_TYPE (-t): overrides the type inferred from the URL
  - APP_ENV (-env): production or development
  - PORT (-p): Server port (default: 3318)
  - SEQ_URL (-seq): ship logs to a Seq server
  - LOG_LEVEL (-log-level): debug, info, warn or error

# Architecture

  - handlers: Health and migration status handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: Logging, JSON helpers
  - models: Response types
  - db: Schema descriptors, dialects and the reconciler
  - logging: slog setup with optional Seq sink
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
