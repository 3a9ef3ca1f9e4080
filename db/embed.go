// Package db embeds the database schema and seed data.
package db

import _ "embed"

// Schema contains the idempotent DDL for products, sales and sale items.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the default product catalog used by seed-db.
//
//go:embed seed/products.json
var Products []byte
