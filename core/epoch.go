package core

import "time"

// EpochOracle reports the current global epoch. The production oracle
// derives it from wall-clock time; tests inject a fixed oracle so every
// epoch check is deterministic.
type EpochOracle interface {
	CurrentEpoch() uint64
}

// ValidateEpoch requires inputEpoch to equal the oracle's current epoch
// and returns the current epoch on success. The future/past split exists
// only to give the caller a more specific error than a bare mismatch.
func ValidateEpoch(oracle EpochOracle, inputEpoch uint64) (uint64, error) {
	current := oracle.CurrentEpoch()
	if inputEpoch > current {
		return 0, ErrEpochFuture
	}
	if inputEpoch < current {
		return 0, ErrEpochPast
	}
	return current, nil
}

// VerifyEpochPassed fails with ErrEpochFuture unless targetEpoch is
// strictly behind the current epoch. Claim uses this: an auction can be
// settled only once its epoch is no longer the live one.
func VerifyEpochPassed(oracle EpochOracle, targetEpoch uint64) error {
	if targetEpoch >= oracle.CurrentEpoch() {
		return ErrEpochFuture
	}
	return nil
}

// ClockOracle derives the current epoch from wall-clock time against a
// configured genesis instant and fixed epoch duration. Instants before
// genesis map to epoch 0.
type ClockOracle struct {
	Genesis  time.Time
	Duration time.Duration

	// Now is the time source; nil means time.Now.
	Now func() time.Time
}

func (o *ClockOracle) CurrentEpoch() uint64 {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	elapsed := now().Sub(o.Genesis)
	if elapsed < 0 || o.Duration <= 0 {
		return 0
	}
	return uint64(elapsed / o.Duration)
}

// FixedOracle is an EpochOracle pinned to a settable epoch, used by
// tests to step time forward explicitly.
type FixedOracle struct {
	Epoch uint64
}

func (o *FixedOracle) CurrentEpoch() uint64 { return o.Epoch }
