package farmer

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/farmer/internal/app"
)

// Config holds the configuration for a Farmer instance.
type Config struct {
	// ServiceURL is the ledger gateway base URL. Required unless a
	// FarmClient is supplied with WithFarmClient.
	ServiceURL string

	// AuthKey is sent as a bearer token when set.
	AuthKey string

	// ChainID is the network the wallet must be on. Empty accepts any.
	ChainID string

	// Owner is the wallet address that owns the farm.
	Owner string

	// StateDir holds the local trial farm. Required unless a FarmClient
	// is supplied.
	StateDir string

	// HTTPTimeout bounds a single gateway request.
	// Default: 15 seconds
	HTTPTimeout time.Duration

	// OperationTimeout bounds each remote operation. Zero disables it.
	// Default: 2 minutes
	OperationTimeout time.Duration

	// ShutdownTimeout bounds Stop.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default timeouts.
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:      15 * time.Second,
		OperationTimeout: app.DefaultOperationTimeout,
		ShutdownTimeout:  app.ShutdownTimeout,
	}
}

// SetDefaults fills unset timeouts. OperationTimeout is left alone since
// zero disables it.
func (c *Config) SetDefaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = app.ShutdownTimeout
	}
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
}

// Validate checks the fields the built-in ledger client needs.
func (c Config) Validate() error {
	if c.ServiceURL == "" {
		return fmt.Errorf("%w: service URL is required", ErrInvalidConfig)
	}
	if c.StateDir == "" {
		return fmt.Errorf("%w: state dir is required", ErrInvalidConfig)
	}
	if c.OperationTimeout < 0 {
		return fmt.Errorf("%w: operation timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}
