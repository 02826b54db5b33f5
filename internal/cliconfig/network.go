package cliconfig

import (
	"errors"
	"fmt"
	"os"

	"github.com/bft-labs/farmer/internal/adapters/fs"
)

// LoadNetworkInfo fills ChainID from the wallet network file when it is
// not set. A missing network file leaves ChainID empty, which accepts any
// chain.
func LoadNetworkInfo(cfg *Config) error {
	if cfg.ChainID != "" || cfg.NetworkFile == "" {
		return nil
	}

	info, err := fs.ReadNetworkFile(cfg.NetworkFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	cfg.ChainID = info.ChainID
	return nil
}
