// Package connection implements the Connection Lifecycle Manager.
//
// The manager:
//   - Owns the single outbound WebSocket connection
//   - Dials with bounded exponential backoff under a connect timeout
//   - Tears the connection down after a fixed idle period
//   - Discards the old connection unconditionally on a target switch
//   - Reports per-send progress through status callbacks instead of
//     raised faults
package connection
