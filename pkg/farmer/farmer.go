package farmer

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bft-labs/farmer/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/farmer/internal/adapters/http"
	logAdapter "github.com/bft-labs/farmer/internal/adapters/log"
	"github.com/bft-labs/farmer/internal/adapters/metrics"
	"github.com/bft-labs/farmer/internal/app"
	"github.com/bft-labs/farmer/internal/domain"
	"github.com/bft-labs/farmer/internal/ports"
)

// Farmer drives a user's farm through its lifecycle. Use New() to create
// an instance, Start() to begin processing events and Send() (or one of
// the intent helpers) to submit user intents.
type Farmer struct {
	config      Config
	client      ports.FarmClient
	interpreter *app.Interpreter
	logger      ports.Logger
	plugins     []Plugin

	mu     sync.Mutex
	cancel context.CancelFunc
	active []Plugin
}

// New creates a Farmer. The instance starts in StateInitial and RunIdle;
// call Start() to begin processing events.
func New(cfg Config, opts ...Option) (*Farmer, error) {
	cfg.SetDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.farmClient == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else if cfg.OperationTimeout < 0 {
		return nil, fmt.Errorf("%w: operation timeout must not be negative", ErrInvalidConfig)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	client := o.farmClient
	if client == nil {
		httpClient := o.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
		}
		client = httpAdapter.NewLedgerClient(httpAdapter.LedgerConfig{
			ServiceURL: cfg.ServiceURL,
			AuthKey:    cfg.AuthKey,
			ChainID:    cfg.ChainID,
			Owner:      cfg.Owner,
		}, httpClient, fs.NewFarmFile(cfg.StateDir), logger)
	}

	var emitter multiEmitter
	if o.registerer != nil {
		collector, err := metrics.NewCollector(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		emitter = append(emitter, collector)
	}
	if o.eventHandler != nil {
		emitter = append(emitter, handlerEmitter{handler: o.eventHandler})
	}

	var observer app.EventEmitter
	if len(emitter) > 0 {
		observer = emitter
	}

	interpreter := app.NewInterpreter(app.Config{
		OperationTimeout: cfg.OperationTimeout,
		ShutdownTimeout:  cfg.ShutdownTimeout,
	}, client, logger, observer)

	return &Farmer{
		config:      cfg,
		client:      client,
		interpreter: interpreter,
		logger:      logger,
		plugins:     o.plugins,
	}, nil
}

// Start initializes plugins and launches the event loop. If a plugin
// fails to initialize, the plugins already initialized are shut down and
// the Farmer stays idle.
func (f *Farmer) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.interpreter.RunState() {
	case RunRunning, RunStopping:
		return ErrAlreadyRunning
	case RunStopped:
		return ErrAlreadyStopped
	}

	runCtx, cancel := context.WithCancel(ctx)

	pluginCfg := PluginConfig{
		ServiceURL: f.config.ServiceURL,
		ChainID:    f.config.ChainID,
		Owner:      f.config.Owner,
		StateDir:   f.config.StateDir,
		Logger:     f.logger,
		Send:       f.Send,
	}
	active := make([]Plugin, 0, len(f.plugins))
	for _, p := range f.plugins {
		if err := initializePlugin(runCtx, p, pluginCfg); err != nil {
			f.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			shutdownPlugins(active, f.logger)
			cancel()
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		active = append(active, p)
		f.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if err := f.interpreter.Start(runCtx); err != nil {
		shutdownPlugins(active, f.logger)
		cancel()
		return err
	}

	f.cancel = cancel
	f.active = active
	return nil
}

// Stop cancels any in-flight operation, waits for the event loop to exit
// and shuts plugins down in reverse order. It returns ErrShutdownTimeout
// if the event loop did not exit in time.
func (f *Farmer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.interpreter.RunState() != RunRunning {
		return ErrNotRunning
	}

	err := f.interpreter.Stop()

	shutdownPlugins(f.active, f.logger)
	f.active = nil

	if f.cancel != nil {
		f.cancel()
	}
	return err
}

// Send submits an event. It never blocks; events are processed in order.
func (f *Farmer) Send(ev Event) error {
	return f.interpreter.Send(ev)
}

// GetStarted asks the farmer to connect and load the owner's farm.
func (f *Farmer) GetStarted() error { return f.Send(domain.NewEvent(EventGetStarted)) }

// Donate registers a new farm that donates to charity.
func (f *Farmer) Donate(charity Charity) error { return f.Send(domain.Donate(charity)) }

// Save persists the farm.
func (f *Farmer) Save() error { return f.Send(domain.NewEvent(EventSave)) }

// Upgrade levels the farm up.
func (f *Farmer) Upgrade() error { return f.Send(domain.NewEvent(EventUpgrade)) }

// Trial switches to a local trial farm after a failure.
func (f *Farmer) Trial() error { return f.Send(domain.NewEvent(EventTrial)) }

// NetworkChanged retries initialization after the wallet switched network.
func (f *Farmer) NetworkChanged() error { return f.Send(domain.NewEvent(EventNetworkChanged)) }

// Snapshot returns the current state and error code.
func (f *Farmer) Snapshot() Snapshot {
	return f.interpreter.Snapshot()
}

// Subscribe registers fn for state-change notifications. fn receives the
// current snapshot immediately, then one per transition. The returned func
// unsubscribes.
func (f *Farmer) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return f.interpreter.Subscribe(fn)
}

// Status returns the run state of the instance.
// Safe to call concurrently from any goroutine.
func (f *Farmer) Status() RunState {
	return f.interpreter.RunState()
}

// Farm returns the farm the client currently holds, if the client exposes it.
func (f *Farmer) Farm() (Farm, bool) {
	src, ok := f.client.(interface{ Farm() (domain.Farm, bool) })
	if !ok {
		return Farm{}, false
	}
	return src.Farm()
}

// ID returns the session identifier used in logs.
func (f *Farmer) ID() string {
	return f.interpreter.ID()
}

func initializePlugin(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during initialize: %v", r)
		}
	}()
	return p.Initialize(ctx, cfg)
}

func shutdownPlugins(plugins []Plugin, logger ports.Logger) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := shutdownPlugin(ctx, p); err != nil {
			logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

func shutdownPlugin(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during shutdown: %v", r)
		}
	}()
	return p.Shutdown(ctx)
}
