package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (FARMER_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", os.Getenv("FARMER_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", os.Getenv("FARMER_AUTH_KEY"), &cfg.AuthKey)
	s.setString("chain-id", os.Getenv("FARMER_CHAIN_ID"), &cfg.ChainID)
	s.setString("network-file", os.Getenv("FARMER_NETWORK_FILE"), &cfg.NetworkFile)
	s.setString("owner", os.Getenv("FARMER_OWNER"), &cfg.Owner)
	s.setString("state-dir", os.Getenv("FARMER_STATE_DIR"), &cfg.StateDir)
	s.setString("metrics-addr", os.Getenv("FARMER_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("FARMER_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("timeout", os.Getenv("FARMER_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("op-timeout", os.Getenv("FARMER_OP_TIMEOUT"), &cfg.OpTimeout); err != nil {
		return err
	}

	return nil
}
