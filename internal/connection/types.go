package connection

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrConnectFailed   = errors.New("connection attempt failed")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Endpoint is a concrete (host, port) target for the socket.
type Endpoint struct {
	Host string
	Port int
}

// String returns "host:port".
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the WebSocket URL for this endpoint.
func (e Endpoint) URL() string {
	return "ws://" + e.String()
}

// Validate checks host and port ranges. Performed before any state
// transition so a bad endpoint never touches connection state.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return errors.New("host must not be empty")
	}
	if e.Port < 1 || e.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}

// State is the lifecycle state of the single logical connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Status is a per-send progress signal. For a single send, statuses are
// emitted in the fixed order CONNECTING → CONNECTED → SENDING → SENT,
// with ERROR truncating the sequence at the point of failure.
type Status string

const (
	StatusConnecting Status = "CONNECTING"
	StatusConnected  Status = "CONNECTED"
	StatusSending    Status = "SENDING"
	StatusSent       Status = "SENT"
	StatusError      Status = "ERROR"
)

// StatusFunc receives status transitions for one send. The detail
// string carries the endpoint or error message where relevant.
type StatusFunc func(status Status, detail string)

// TimestampedMessage wraps raw inbound message data with a receive
// timestamp.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// ClientConfig configures a single WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL (e.g. ws://localhost:7007)
	PingTimeout  time.Duration // Max time without ping before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	DialTimeout  time.Duration // Handshake timeout for a single dial
	BufferSize   int           // Inbound message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		DialTimeout:  10 * time.Second,
		BufferSize:   100,
	}
}

// ManagerConfig configures the Connection Lifecycle Manager.
type ManagerConfig struct {
	ConnectTimeout     time.Duration // Total wait for a connection to reach Open
	IdleTimeout        time.Duration // Inactivity period before teardown
	ReconnectBaseDelay time.Duration // Initial backoff delay between attempts
	ReconnectMaxDelay  time.Duration // Backoff cap
	ReconnectFactor    float64       // Backoff growth factor
	MaxRetries         int           // Attempts per send before giving up
	WriteTimeout       time.Duration // Write deadline for sends
	PingTimeout        time.Duration // Staleness threshold for the live socket
	BufferSize         int           // Inbound message channel buffer size
}

// DefaultManagerConfig returns the standard lifecycle parameters:
// 10 s connect timeout and idle timeout, backoff starting at 1 s
// growing by 1.5x up to 10 s, at most 10 attempts per send.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ConnectTimeout:     10 * time.Second,
		IdleTimeout:        10 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  10 * time.Second,
		ReconnectFactor:    1.5,
		MaxRetries:         10,
		WriteTimeout:       5 * time.Second,
		PingTimeout:        30 * time.Second,
		BufferSize:         100,
	}
}
