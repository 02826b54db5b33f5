package ports

import (
	"context"

	"github.com/bft-labs/farmer/internal/domain"
)

// FarmClient is the remote-resource collaborator the orchestrator drives.
//
// The orchestrator calls at most one of the context-taking methods at a time.
// Implementations must still guard their own state: a call abandoned after a
// timeout may keep running while the next one starts.
type FarmClient interface {
	// Initialize establishes connectivity and discovers whether the owner
	// already has a farm. Called once per loading attempt.
	Initialize(ctx context.Context) error

	// CreateFarm creates the owner's farm for the given donation target.
	CreateFarm(ctx context.Context, charity domain.Charity) error

	// Save persists the current farm.
	Save(ctx context.Context) error

	// LevelUp upgrades the farm. On error the previous level must remain
	// the observable one.
	LevelUp(ctx context.Context) error

	// EnterTrialMode switches to a degraded mode that needs no ownership.
	EnterTrialMode()

	// IsTrial reports whether trial mode is active.
	IsTrial() bool

	// HasFarm reports whether the owner's farm is known to exist.
	HasFarm() bool
}

// FarmStore persists a farm snapshot locally.
// Implementations persist atomically so a crash never leaves a torn snapshot.
type FarmStore interface {
	// Load returns the stored farm. ok is false and err nil when nothing is stored.
	Load(ctx context.Context) (farm domain.Farm, ok bool, err error)

	// Save replaces the stored farm.
	Save(ctx context.Context, farm domain.Farm) error
}
