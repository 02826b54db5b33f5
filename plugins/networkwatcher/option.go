package networkwatcher

import "github.com/bft-labs/farmer/pkg/farmer"

// WithNetworkWatcher returns a farmer Option that enables network file
// watching.
//
// Usage:
//
//	f, err := farmer.New(cfg,
//	    networkwatcher.WithNetworkWatcher(networkwatcher.Config{
//	        NetworkFile:   "/home/me/.wallet/network.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithNetworkWatcher(cfg Config) farmer.Option {
	return farmer.WithPlugin(New(cfg))
}
