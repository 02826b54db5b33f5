package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/bft-labs/farmer/internal/domain"
)

const farmFileName = "farm.json"

// FarmFile implements ports.FarmStore using a JSON file.
type FarmFile struct {
	dir string
}

// NewFarmFile creates a FarmFile in the given directory.
func NewFarmFile(dir string) *FarmFile {
	return &FarmFile{dir: dir}
}

// Load reads the stored farm. Returns ok=false and a nil error if no farm file exists.
func (f *FarmFile) Load(ctx context.Context) (domain.Farm, bool, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Farm{}, false, nil
		}
		return domain.Farm{}, false, err
	}

	var farm domain.Farm
	if err := json.Unmarshal(data, &farm); err != nil {
		return domain.Farm{}, false, fmt.Errorf("decode %s: %w", f.Path(), err)
	}
	return farm, true, nil
}

// Save writes the farm atomically.
func (f *FarmFile) Save(ctx context.Context, farm domain.Farm) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(farm, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(f.Path(), data, 0o600)
}

// Path returns the full path to the farm file.
func (f *FarmFile) Path() string {
	return filepath.Join(f.dir, farmFileName)
}
