package core

import "math"

// Reputation point grants per qualifying action.
const (
	// PointsInitiate is granted for creating an epoch's auction.
	PointsInitiate uint64 = 100

	// PointsBid is granted for every accepted bid.
	PointsBid uint64 = 10

	// PointsWin is granted for claiming a won auction.
	PointsWin uint64 = 50
)

// Reputation is the per-identity contribution score. The record binds
// to its contributor exactly once and the score only ever grows.
type Reputation struct {
	Contributor string `json:"contributor"`
	Score       uint64 `json:"score"`
	Initialized bool   `json:"initialized"`
}

// InitIfNeeded binds a fresh record to contributor with a zero score.
// Calling it on an already-bound record is a no-op.
func (r *Reputation) InitIfNeeded(contributor string) {
	if r.Initialized {
		return
	}
	r.Contributor = contributor
	r.Score = 0
	r.Initialized = true
}

// Increment adds amount to the score on behalf of contributor. The
// acting identity must match the bound contributor, and the addition is
// checked: on overflow the whole operation fails instead of wrapping.
func (r *Reputation) Increment(amount uint64, contributor string) error {
	if r.Contributor != contributor {
		return ErrInvalidContributor
	}
	if r.Score > math.MaxUint64-amount {
		return ErrOverflow
	}
	r.Score += amount
	return nil
}
