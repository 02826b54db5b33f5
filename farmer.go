// Package farmer runs a ledger farm session.
//
// Example usage:
//
//	cfg := farmer.DefaultConfig()
//	cfg.ServiceURL = farmer.DefaultServiceURL
//	cfg.Owner = "0xabc"
//	cfg.StateDir = "/var/lib/farmer"
//	if err := farmer.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For finer control, including sending user intents, use
// github.com/bft-labs/farmer/pkg/farmer directly.
package farmer

import (
	"context"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/farmer/internal/adapters/log"
	"github.com/bft-labs/farmer/internal/cliconfig"
	pkgfarmer "github.com/bft-labs/farmer/pkg/farmer"
)

// Config holds the configuration for a farm session.
type Config = pkgfarmer.Config

// Option configures optional behavior of a session.
type Option = pkgfarmer.Option

// DefaultServiceURL is the default ledger gateway endpoint.
const DefaultServiceURL = cliconfig.DefaultServiceURL

// DefaultConfig returns a Config with default timeouts.
func DefaultConfig() Config {
	return pkgfarmer.DefaultConfig()
}

// Run starts a session, asks it to load the owner's farm and blocks until
// ctx is cancelled, then stops it. The farm keeps whatever state it
// reached; use pkg/farmer to drive it further.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	f, err := pkgfarmer.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := f.Start(ctx); err != nil {
		return err
	}
	if err := f.GetStarted(); err != nil {
		_ = f.Stop()
		return err
	}

	<-ctx.Done()
	return f.Stop()
}

// Logger returns a console zerolog logger at the given level.
func Logger(level zerolog.Level) zerolog.Logger {
	return logAdapter.NewConsoleLogger(level)
}
