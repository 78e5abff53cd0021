package model

import (
	"encoding/json"
	"time"
)

// MessageTypePointed is the message type for pointer-selection events,
// both on the inbound capture side and the outbound wire envelope.
const MessageTypePointed = "DOM_ELEMENT_POINTED"

// DefaultRouteName is the route name reported when no rule matched.
const DefaultRouteName = "default"

// PointerMessage is an inbound dispatch message from the capture side.
type PointerMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	SourceURL string          `json:"sourceUrl"`
	TabID     *int            `json:"tabId,omitempty"`
}

// Envelope is the outbound wire format, transmitted as a single text
// frame per send.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // epoch ms
}

// Ack acknowledges dispatch of a message. It confirms the message was
// accepted for routing, not that it was delivered; delivery status
// arrives asynchronously on the status stream.
type Ack struct {
	Accepted  bool   `json:"accepted"`
	RouteName string `json:"routeName"`
	Endpoint  string `json:"endpoint"`
}

// DispatchRecord is the terminal outcome of one dispatched message,
// emitted to the status archive. Observational only; it never feeds
// back into routing.
type DispatchRecord struct {
	MessageID    string
	TabID        *int
	SourceURL    string
	RouteID      string // empty when the default endpoint was used
	RouteName    string
	Host         string
	Port         int
	Status       string // last status emitted: SENT or ERROR
	Error        string // last ERROR detail, empty on success
	DispatchedAt time.Time
	CompletedAt  time.Time
}

// RouteInfo is the route portion of an active-route query response.
type RouteInfo struct {
	Name string `json:"name"`
	Port int    `json:"port"`
}

// ConfigSummary is the config portion of an active-route query response.
type ConfigSummary struct {
	Enabled     bool `json:"enabled"`
	AutoRouting bool `json:"autoRouting"`
	RouteCount  int  `json:"routeCount"`
}

// ActiveRoute answers a GET_ACTIVE_ROUTE query for one tab.
type ActiveRoute struct {
	Route  *RouteInfo    `json:"route"`
	Config ConfigSummary `json:"config"`
}

// TestedRoute answers a TEST_ROUTE query: what a URL would resolve to,
// without sending anything.
type TestedRoute struct {
	Matched  bool           `json:"matched"`
	Route    *TestRouteInfo `json:"route"`
	Endpoint EndpointInfo   `json:"endpoint"`
}

// TestRouteInfo identifies the rule a test query matched.
type TestRouteInfo struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
}

// EndpointInfo is a (host, port) pair in query responses.
type EndpointInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}
