// Package db embeds the database schema.
package db

import _ "embed"

// Schema creates every table and loads the province, district and category
// reference data. It is safe to run on every start.
//
//go:embed migrations/001_schema.sql
var Schema string
