package fs

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// NetworkInfo is the wallet's view of the network it is connected to.
type NetworkInfo struct {
	ChainID string `toml:"chain_id"`
}

// ReadNetworkFile parses the wallet network file at path.
func ReadNetworkFile(path string) (NetworkInfo, error) {
	var info NetworkInfo
	b, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := toml.Unmarshal(b, &info); err != nil {
		return info, fmt.Errorf("parse %s: %w", path, err)
	}
	return info, nil
}
