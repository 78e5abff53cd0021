package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pointer-relay/internal/model"
)

// Manager owns the single outbound socket and its lifecycle. All state
// transitions happen under one mutex, so at most one connection attempt
// is ever outstanding and two sends can never interleave their status
// sequences.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	target    Endpoint
	hasTarget bool
	client    Client
	idleGen   uint64 // invalidates idle timers from earlier lifecycles
	idleTimer *time.Timer
	closed    bool
}

// NewManager creates a Connection Lifecycle Manager in the
// Disconnected state with no target.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:    cfg,
		logger: logger,
		state:  StateDisconnected,
	}
}

// State returns the current lifecycle state and target.
func (m *Manager) State() (State, Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.target
}

// Send transmits one payload to target, reusing the live connection
// when the target is unchanged and establishing one otherwise.
//
// Failures are reported through status and the returned error; they are
// never raised as faults, and a send that cannot establish a connection
// is dropped, not queued. The manager stays Disconnected after a
// failure and the next send starts a fresh attempt cycle.
func (m *Manager) Send(target Endpoint, payload json.RawMessage, status StatusFunc) error {
	if status == nil {
		status = func(Status, string) {}
	}

	// Validation happens before any state transition.
	if err := target.Validate(); err != nil {
		status(StatusError, err.Error())
		return fmt.Errorf("%w: %s", ErrInvalidEndpoint, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		status(StatusError, "manager closed")
		return ErrAlreadyClosed
	}

	m.stopIdleLocked()

	// A target switch, including the very first send, discards any old
	// connection before the new target is adopted. In-flight frames on
	// the old socket are not drained.
	if !m.hasTarget || m.target != target {
		m.teardownLocked()
		m.target = target
		m.hasTarget = true
	}

	// The socket may have died since the last send (remote close,
	// staleness). Treat it as Disconnected rather than failing the write.
	if m.state == StateOpen && (m.client == nil || !m.client.IsConnected()) {
		m.teardownLocked()
	}

	if m.state == StateDisconnected {
		if err := m.connectLocked(status); err != nil {
			return err
		}
	}

	status(StatusConnected, m.target.String())
	status(StatusSending, m.target.String())

	if err := m.transmitLocked(payload); err != nil {
		// Reported via status, otherwise swallowed; the connection is
		// left as-is and the caller may simply send again.
		status(StatusError, err.Error())
		m.logger.Warn("transmission failed", "target", m.target.String(), "error", err)
		m.resetIdleLocked()
		return nil
	}

	status(StatusSent, m.target.String())
	m.resetIdleLocked()

	return nil
}

// Close tears down the live connection and clears timers. The manager
// accepts no sends afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.teardownLocked()

	return nil
}

// connectLocked drives Disconnected → Connecting → Open with bounded
// exponential backoff under the connect timeout. On failure it emits
// exactly one ERROR, tears down, and leaves the manager Disconnected.
func (m *Manager) connectLocked(status StatusFunc) error {
	m.state = StateConnecting
	status(StatusConnecting, m.target.String())

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	defer cancel()

	clientCfg := ClientConfig{
		URL:          m.target.URL(),
		PingTimeout:  m.cfg.PingTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		DialTimeout:  m.cfg.ConnectTimeout,
		BufferSize:   m.cfg.BufferSize,
	}

	delay := m.cfg.ReconnectBaseDelay
	var lastErr error

	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		client := NewClient(clientCfg, m.logger.With("target", m.target.String()))

		err := client.Connect(ctx)
		if err == nil {
			m.client = client
			m.state = StateOpen
			m.logger.Debug("connection open",
				"target", m.target.String(),
				"attempt", attempt,
			)
			return nil
		}
		lastErr = err

		m.logger.Debug("connection attempt failed",
			"target", m.target.String(),
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return m.connectFailedLocked(status, fmt.Errorf(
				"connection to %s not open within %s: %w",
				m.target.String(), m.cfg.ConnectTimeout, lastErr))
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * m.cfg.ReconnectFactor)
		if delay > m.cfg.ReconnectMaxDelay {
			delay = m.cfg.ReconnectMaxDelay
		}
	}

	return m.connectFailedLocked(status, fmt.Errorf(
		"connection to %s failed after %d attempts: %w",
		m.target.String(), m.cfg.MaxRetries, lastErr))
}

// connectFailedLocked reports a failed attempt cycle. The retry cap is
// per attempt sequence, not global: the next send starts a brand-new
// cycle.
func (m *Manager) connectFailedLocked(status StatusFunc, err error) error {
	m.teardownLocked()
	status(StatusError, err.Error())
	m.logger.Warn("connection failed", "target", m.target.String(), "error", err)
	return fmt.Errorf("%w: %s", ErrConnectFailed, err)
}

// transmitLocked serializes the payload into the wire envelope and
// writes it as one text frame.
func (m *Manager) transmitLocked(payload json.RawMessage) error {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	frame, err := json.Marshal(model.Envelope{
		Type:      model.MessageTypePointed,
		Data:      payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	return m.client.Send(frame)
}

// teardownLocked drives any state to Disconnected. Idempotent.
func (m *Manager) teardownLocked() {
	m.stopIdleLocked()

	if m.state == StateDisconnected && m.client == nil {
		return
	}

	m.state = StateClosing
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.state = StateDisconnected

	m.logger.Debug("connection torn down", "target", m.target.String())
}

// resetIdleLocked (re)starts the idle teardown timer. The generation
// counter keeps a timer from an earlier lifecycle from tearing down a
// fresh connection.
func (m *Manager) resetIdleLocked() {
	m.stopIdleLocked()

	gen := m.idleGen
	m.idleTimer = time.AfterFunc(m.cfg.IdleTimeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.idleGen != gen || m.state != StateOpen {
			return
		}

		m.logger.Info("idle teardown",
			"target", m.target.String(),
			"idle", m.cfg.IdleTimeout,
		)
		m.teardownLocked()
	})
}

// stopIdleLocked cancels any pending idle teardown.
func (m *Manager) stopIdleLocked() {
	m.idleGen++
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
}
