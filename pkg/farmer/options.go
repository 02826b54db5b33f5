package farmer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/farmer/internal/ports"
)

// Option configures optional behavior of Farmer.
type Option func(*options)

type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	farmClient   ports.FarmClient
	eventHandler EventHandler
	plugins      []Plugin
	registerer   prometheus.Registerer
}

// WithHTTPClient sets the HTTP client used by the built-in ledger client.
// If not provided, a client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFarmClient replaces the built-in ledger client. ServiceURL and
// StateDir are then optional.
func WithFarmClient(client FarmClient) Option {
	return func(o *options) {
		o.farmClient = client
	}
}

// WithEventHandler sets a handler for farmer events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Farmer starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetrics registers Prometheus collectors for transitions and remote
// operations with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
