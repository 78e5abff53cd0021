// Package routing implements the Route Resolution component.
//
// Route resolution:
//   - Matches a message's source URL against the ordered rule list
//   - First enabled match wins; disabled rules are skipped
//   - An invalid regex pattern never matches and never errors
//   - Resolves the concrete (host, port) endpoint for a message,
//     taking the host from the URL itself and the port from the
//     matched rule or the configured default
package routing
