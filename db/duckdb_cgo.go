//go:build cgo

package db

// The DuckDB driver requires cgo; it is unavailable in CGO_ENABLED=0 builds.
import _ "github.com/marcboeker/go-duckdb"
