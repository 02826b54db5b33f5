package farmer

import "context"

// Plugin extends a Farmer with optional behavior. Plugins are initialized
// in registration order when the Farmer starts and shut down in reverse
// order when it stops.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on Initialize.
type PluginConfig struct {
	ServiceURL string
	ChainID    string
	Owner      string
	StateDir   string
	Logger     Logger

	// Send submits an event to the orchestrator. It is safe to call from
	// any goroutine. Events sent before Start returns are rejected with
	// ErrNotRunning.
	Send func(Event) error
}

// BasePlugin provides no-op implementations of Plugin.
type BasePlugin struct {
	PluginName string
}

func (p BasePlugin) Name() string                                         { return p.PluginName }
func (BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }
func (BasePlugin) Shutdown(ctx context.Context) error                     { return nil }
