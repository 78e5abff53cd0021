// Package model defines shared message types used across the relay daemon.
//
// Conventions:
//   - Timestamps on the wire: int64 milliseconds since Unix epoch
//   - IDs: uuid strings for dispatch correlation
//   - Payloads: opaque json.RawMessage, never inspected
package model
