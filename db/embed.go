// Package db bundles the SQL schema and seed fixtures with the binary so
// deployments never depend on migration files being present on disk.
package db

import _ "embed"

// Schema is the full database schema, applied idempotently at startup.
//
//go:embed migrations/001_schema.sql
var Schema string
