package domain

import "time"

// Farm is the user-owned ledger resource.
type Farm struct {
	Owner   string    `json:"owner"`
	Charity Charity   `json:"charity"`
	Level   int       `json:"level"`
	Trial   bool      `json:"trial,omitempty"`
	SavedAt time.Time `json:"saved_at,omitempty"`
}

// NewTrialFarm returns a level-1 farm that exists only locally.
func NewTrialFarm(owner string) Farm {
	return Farm{Owner: owner, Level: 1, Trial: true}
}
