// Package dispatch implements the Dispatcher component.
//
// The Dispatcher:
//   - Resolves an endpoint for each inbound pointer message
//   - Records the matched rule per tab for introspection
//   - Hands the payload to the Connection Lifecycle Manager and relays
//     status transitions to the log stream and the optional archive
//   - Acknowledges dispatch synchronously; delivery status is
//     asynchronous
package dispatch
