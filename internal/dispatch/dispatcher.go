package dispatch

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pointer-relay/internal/config"
	"pointer-relay/internal/connection"
	"pointer-relay/internal/model"
	"pointer-relay/internal/routing"
)

// Sender is the slice of the lifecycle manager the dispatcher drives.
type Sender interface {
	Send(target connection.Endpoint, payload json.RawMessage, status connection.StatusFunc) error
}

// Sink receives the terminal record of each dispatched message. The
// archive writer implements it; a nil sink disables recording.
type Sink interface {
	Enqueue(rec model.DispatchRecord)
}

// Dispatcher routes inbound pointer messages to the lifecycle manager.
//
// Config snapshots are held behind an atomic pointer and treated as
// immutable; a reload swaps the whole snapshot.
type Dispatcher struct {
	resolver *routing.Resolver
	sender   Sender
	tracker  *Tracker
	sink     Sink
	logger   *slog.Logger

	cfg atomic.Pointer[config.RoutingConfig]
}

// NewDispatcher creates a Dispatcher with the given collaborators.
// sink may be nil.
func NewDispatcher(cfg *config.RoutingConfig, sender Sender, tracker *Tracker, sink Sink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		resolver: routing.NewResolver(),
		sender:   sender,
		tracker:  tracker,
		sink:     sink,
		logger:   logger,
	}
	d.cfg.Store(cfg)
	return d
}

// SetConfig swaps in a new routing configuration snapshot.
func (d *Dispatcher) SetConfig(cfg *config.RoutingConfig) {
	d.cfg.Store(cfg)
}

// Dispatch resolves and routes one message, returning a synchronous
// acknowledgement of dispatch. Delivery happens asynchronously and is
// reported on the status/log stream.
func (d *Dispatcher) Dispatch(msg model.PointerMessage) model.Ack {
	cfg := d.cfg.Load()

	if !cfg.Enabled {
		d.logger.Debug("dispatch rejected, routing disabled", "source_url", msg.SourceURL)
		return model.Ack{Accepted: false, RouteName: model.DefaultRouteName}
	}

	resolved := d.resolver.Resolve(msg.SourceURL, cfg)

	if msg.TabID != nil {
		d.tracker.Set(*msg.TabID, resolved.Rule)
	}

	routeName := model.DefaultRouteName
	routeID := ""
	if resolved.Rule != nil {
		routeName = resolved.Rule.Name
		routeID = resolved.Rule.ID
	}

	target := connection.Endpoint{Host: resolved.Host, Port: resolved.Port}
	messageID := uuid.NewString()

	d.logger.Info("dispatching pointer event",
		"message_id", messageID,
		"source_url", msg.SourceURL,
		"route", routeName,
		"endpoint", target.String(),
	)

	go d.send(messageID, target, routeID, routeName, msg)

	return model.Ack{
		Accepted:  true,
		RouteName: routeName,
		Endpoint:  target.String(),
	}
}

// send drives one message through the lifecycle manager, logging every
// status transition and recording the terminal outcome.
func (d *Dispatcher) send(messageID string, target connection.Endpoint, routeID, routeName string, msg model.PointerMessage) {
	logger := d.logger.With("message_id", messageID, "endpoint", target.String())

	rec := model.DispatchRecord{
		MessageID:    messageID,
		TabID:        msg.TabID,
		SourceURL:    msg.SourceURL,
		RouteID:      routeID,
		RouteName:    routeName,
		Host:         target.Host,
		Port:         target.Port,
		DispatchedAt: time.Now(),
	}

	d.sender.Send(target, msg.Data, func(status connection.Status, detail string) {
		switch status {
		case connection.StatusError:
			logger.Warn("send status", "status", status, "detail", detail)
			rec.Error = detail
		default:
			logger.Debug("send status", "status", status)
		}
		rec.Status = string(status)
	})

	rec.CompletedAt = time.Now()

	if d.sink != nil {
		d.sink.Enqueue(rec)
	}
}

// ActiveRoute answers what route is live for one tab, with a summary
// of the current configuration.
func (d *Dispatcher) ActiveRoute(tabID int) model.ActiveRoute {
	cfg := d.cfg.Load()

	out := model.ActiveRoute{
		Config: model.ConfigSummary{
			Enabled:     cfg.Enabled,
			AutoRouting: cfg.AutoRouting,
			RouteCount:  len(cfg.Routes),
		},
	}

	if rule, ok := d.tracker.Get(tabID); ok && rule != nil {
		out.Route = &model.RouteInfo{Name: rule.Name, Port: rule.MCPPort}
	}

	return out
}

// TestRoute answers what a URL would resolve to, without sending.
func (d *Dispatcher) TestRoute(url string) model.TestedRoute {
	cfg := d.cfg.Load()
	resolved := d.resolver.Resolve(url, cfg)

	out := model.TestedRoute{
		Matched: resolved.Rule != nil,
		Endpoint: model.EndpointInfo{
			Host: resolved.Host,
			Port: resolved.Port,
		},
	}
	if resolved.Rule != nil {
		out.Route = &model.TestRouteInfo{
			Name:    resolved.Rule.Name,
			Pattern: resolved.Rule.Pattern,
		}
	}

	return out
}

// TabClosed clears a closed tab's tracking entry.
func (d *Dispatcher) TabClosed(tabID int) {
	d.tracker.Remove(tabID)
}
