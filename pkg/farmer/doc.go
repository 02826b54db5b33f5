// Package farmer provides an embeddable orchestrator for a user's
// ledger-backed farm.
//
// A Farmer moves the farm through its lifecycle: connecting to the ledger
// gateway, registering a new farm with a charity, saving and upgrading it,
// and recovering from failures either by retrying after a network change
// or by switching to a local trial farm.
//
// # Basic Usage
//
//	cfg := farmer.DefaultConfig()
//	cfg.ServiceURL = "http://127.0.0.1:8645"
//	cfg.Owner = "0xabc"
//	cfg.StateDir = "/var/lib/farmer"
//
//	f, err := farmer.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := f.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Stop()
//
//	f.Subscribe(func(s farmer.Snapshot) {
//	    fmt.Println(s.State, s.ErrorCode)
//	})
//	_ = f.GetStarted()
//
// # Events
//
// Intents are queued and processed one at a time. An intent the current
// state has no handler for is ignored. While a remote operation is in
// flight (loading, creating, saving, upgrading) every intent is ignored.
//
// # Plugins
//
// Plugins registered with [WithPlugin] are initialized on Start and may
// submit events through [PluginConfig].Send. The networkwatcher plugin
// uses this to report wallet network changes.
package farmer
