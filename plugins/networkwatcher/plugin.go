// Package networkwatcher reports wallet network switches to farmer.
// It watches the wallet's network file and sends NETWORK_CHANGED whenever
// the chain id in it changes, so a farm stuck on the wrong network
// retries on its own.
package networkwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/farmer/internal/adapters/fs"
	"github.com/bft-labs/farmer/internal/ports"
	"github.com/bft-labs/farmer/pkg/farmer"
)

// Plugin watches the wallet network file.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	networkFile    string
	debounceDelay  time.Duration
	backoffInitial time.Duration
	backoffMax     time.Duration

	// Runtime state
	chainID string
	send    func(farmer.Event) error
	logger  farmer.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Config holds configuration options for the network watcher plugin.
type Config struct {
	// NetworkFile is the wallet's TOML network file (chain_id = "...").
	// The plugin is disabled when empty.
	NetworkFile string

	// DebounceDelay is the delay to wait after a file change before reading it.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// BackoffInitial and BackoffMax bound retries when the watcher cannot
	// be created.
	// Default: 500 milliseconds, 10 seconds
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:  100 * time.Millisecond,
		BackoffInitial: 500 * time.Millisecond,
		BackoffMax:     10 * time.Second,
	}
}

// New creates a new network watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = max(def.BackoffMax, cfg.BackoffInitial)
	}

	return &Plugin{
		networkFile:    cfg.NetworkFile,
		debounceDelay:  cfg.DebounceDelay,
		backoffInitial: cfg.BackoffInitial,
		backoffMax:     cfg.BackoffMax,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "networkwatcher"
}

// Initialize records the current chain and starts watching.
func (p *Plugin) Initialize(ctx context.Context, cfg farmer.PluginConfig) error {
	p.mu.Lock()
	p.send = cfg.Send
	p.logger = cfg.Logger
	p.chainID = cfg.ChainID
	p.mu.Unlock()

	if p.networkFile == "" {
		p.logger.Warn("network watcher disabled: no network file configured")
		return nil
	}

	if info, err := fs.ReadNetworkFile(p.networkFile); err == nil && info.ChainID != "" {
		p.mu.Lock()
		p.chainID = info.ChainID
		p.mu.Unlock()
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("network watcher plugin initialized",
		ports.String("file", p.networkFile),
		ports.String("chain_id", p.ChainID()),
	)

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// ChainID returns the last chain id seen.
func (p *Plugin) ChainID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID
}

func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := p.newWatcher(ctx)
	if err != nil {
		return
	}
	defer watcher.Close()

	target := filepath.Base(p.networkFile)

	var debounce *time.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(p.debounceDelay)
			} else {
				debounce.Reset(p.debounceDelay)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			p.check()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("network watcher error", ports.Err(err))
		}
	}
}

// newWatcher watches the network file's directory, retrying with backoff
// until it succeeds or ctx ends.
func (p *Plugin) newWatcher(ctx context.Context) (*fsnotify.Watcher, error) {
	dir := filepath.Dir(p.networkFile)
	b := newBackoff(p.backoffInitial, p.backoffMax)

	for {
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			if err = watcher.Add(dir); err == nil {
				return watcher, nil
			}
			watcher.Close()
		}

		p.logger.Warn("network watcher: cannot watch directory",
			ports.String("dir", dir),
			ports.Duration("retry_in", b.Current()),
			ports.Err(err),
		)
		if werr := b.Wait(ctx); werr != nil {
			return nil, werr
		}
	}
}

// check reads the network file and reports a chain switch.
func (p *Plugin) check() {
	info, err := fs.ReadNetworkFile(p.networkFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("network watcher: unreadable network file", ports.Err(err))
		}
		return
	}
	if info.ChainID == "" {
		return
	}

	p.mu.Lock()
	previous := p.chainID
	changed := info.ChainID != previous
	if changed {
		p.chainID = info.ChainID
	}
	send := p.send
	p.mu.Unlock()

	if !changed {
		return
	}

	p.logger.Info("wallet network changed",
		ports.String("from", previous),
		ports.String("to", info.ChainID),
	)
	if send == nil {
		return
	}
	if err := send(farmer.Event{Kind: farmer.EventNetworkChanged}); err != nil {
		p.logger.Warn("network watcher: send failed", ports.Err(err))
	}
}

// Ensure Plugin implements farmer.Plugin.
var _ farmer.Plugin = (*Plugin)(nil)
