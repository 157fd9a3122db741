package core

// MintPrice is the fixed redemption price of the retroactive minter,
// in base units.
const MintPrice uint64 = StandardUnit

// Minter is a fixed-supply redemption counter for retroactive epochs.
// It hands out one item per redemption, walking epochs 1..ItemsAvailable
// in order, and deactivates itself once exhausted.
type Minter struct {
	ItemsAvailable uint64 `json:"items_available"`
	ItemsRedeemed  uint64 `json:"items_redeemed"`
	StartTime      int64  `json:"start_time"`
	Active         bool   `json:"active"`
}

// Initialize arms the minter. The start time must be in the future, the
// supply must be non-empty, and the supply may not exceed the epochs
// that have actually occurred.
func (m *Minter) Initialize(itemsAvailable uint64, startTime, nowUnix int64, currentEpoch uint64) error {
	if startTime <= nowUnix {
		return ErrMinterStartInPast
	}
	if itemsAvailable == 0 {
		return ErrMinterEmpty
	}
	if itemsAvailable >= currentEpoch {
		return ErrMinterTooManyItems
	}
	m.ItemsAvailable = itemsAvailable
	m.ItemsRedeemed = 0
	m.StartTime = startTime
	m.Active = true
	return nil
}

func (m *Minter) isActive(nowUnix int64) error {
	if !m.Active {
		return ErrMinterNotActive
	}
	if m.ItemsAvailable <= m.ItemsRedeemed {
		return ErrMinterEmpty
	}
	if nowUnix <= m.StartTime {
		return ErrMinterNotStarted
	}
	return nil
}

// Redeem consumes one item and returns the retroactive epoch it
// represents. The minter deactivates itself on the final redemption.
func (m *Minter) Redeem(nowUnix int64) (uint64, error) {
	if err := m.isActive(nowUnix); err != nil {
		return 0, err
	}
	m.ItemsRedeemed++
	if m.ItemsRedeemed == m.ItemsAvailable {
		m.Active = false
	}
	return m.ItemsRedeemed, nil
}

// MintReceipt records a single identity's redemption. At most one
// exists per identity; the storage layer enforces uniqueness on the
// claimer key.
type MintReceipt struct {
	Claimer     string `json:"claimer"`
	MintedEpoch uint64 `json:"minted_epoch"`
}
