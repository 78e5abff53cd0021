// Package archive persists the dispatch status stream to PostgreSQL.
//
// The archive is optional and purely observational: it records what
// happened to each dispatched message (route, endpoint, terminal
// status) for debugging, and never feeds back into routing or
// connection decisions. Records that cannot be buffered are dropped.
package archive
