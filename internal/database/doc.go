// Package database provides connection pool management for the
// optional PostgreSQL dispatch archive.
package database
