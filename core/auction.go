package core

import "math"

// StandardUnit is one standard unit of the base currency, expressed in
// base units. The first bid on an auction must be at least one standard
// unit, and every raise must clear the previous high bid by at least
// this much.
const StandardUnit uint64 = 1_000_000_000

// AuctionState tracks the one-way settlement transition of an auction.
type AuctionState uint8

const (
	// AuctionUnclaimed is the initial state: bidding is open and the
	// winning bid has not been settled.
	AuctionUnclaimed AuctionState = iota

	// AuctionClaimed is terminal: proceeds distributed, item
	// transferred. Never reverses.
	AuctionClaimed
)

func (s AuctionState) String() string {
	switch s {
	case AuctionUnclaimed:
		return "unclaimed"
	case AuctionClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// Auction is the per-epoch auction record. Exactly one exists per
// epoch; the epoch doubles as the record's lookup key.
type Auction struct {
	Epoch         uint64       `json:"epoch"`
	ItemRef       string       `json:"item_ref"`
	State         AuctionState `json:"state"`
	HighBidder    string       `json:"high_bidder"`
	HighBidAmount uint64       `json:"high_bid_amount"`
}

// NewAuction returns a fresh unclaimed auction for epoch. The creator
// is recorded as the initial high bidder with a zero high bid, which is
// the record's way of saying "no real bid yet".
func NewAuction(epoch uint64, itemRef, creator string) *Auction {
	return &Auction{
		Epoch:      epoch,
		ItemRef:    itemRef,
		State:      AuctionUnclaimed,
		HighBidder: creator,
	}
}

// MinimumBid returns the lowest acceptable next bid. With no real bid
// yet the floor is one standard unit. Otherwise the bid must raise the
// current high bid by at least 5%, but never by less than one flat
// standard unit.
func (a *Auction) MinimumBid() (uint64, error) {
	if a.HighBidAmount == 0 {
		return StandardUnit, nil
	}
	raise := a.HighBidAmount / 20
	if raise < StandardUnit {
		raise = StandardUnit
	}
	if a.HighBidAmount > math.MaxUint64-raise {
		return 0, ErrOverflow
	}
	return a.HighBidAmount + raise, nil
}

// ValidateBid checks that the auction is still open and that amount
// clears MinimumBid. It performs no mutation; the bid protocol calls it
// before any funds move.
func (a *Auction) ValidateBid(amount uint64) error {
	if a.State != AuctionUnclaimed {
		return ErrAuctionAlreadyClaimed
	}
	min, err := a.MinimumBid()
	if err != nil {
		return err
	}
	if amount < min {
		return ErrBidTooLow
	}
	return nil
}

// Bid records bidder as the new high bidder at amount after
// revalidating the threshold rule.
func (a *Auction) Bid(bidder string, amount uint64) error {
	if err := a.ValidateBid(amount); err != nil {
		return err
	}
	a.HighBidAmount = amount
	a.HighBidder = bidder
	return nil
}

// Claim flips the auction to its terminal state. This is the sole guard
// against double settlement, so it must be applied atomically with the
// fund distribution and item transfer.
func (a *Auction) Claim() error {
	if a.State != AuctionUnclaimed {
		return ErrAuctionAlreadyClaimed
	}
	a.State = AuctionClaimed
	return nil
}
