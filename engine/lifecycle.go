package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/epochmint/epochauction/core"
	"github.com/epochmint/epochauction/receipt"
	"github.com/epochmint/epochauction/store"
)

// CreateAuction mints the item for epoch and opens its auction. An
// auction can only be created within its own epoch, and at most one
// exists per epoch. The creator's reputation is granted the initiate
// points, creating the record lazily.
func (e *Engine) CreateAuction(epoch uint64, creator string) (*core.Auction, error) {
	if creator == "" {
		return nil, fmt.Errorf("create auction: empty creator")
	}
	if e.group == "" {
		return nil, fmt.Errorf("create auction: collection not initialized")
	}
	if _, err := core.ValidateEpoch(e.oracle, epoch); err != nil {
		return nil, err
	}

	content, traits, err := e.generator.Generate(epoch, creator)
	if err != nil {
		return nil, fmt.Errorf("generate content for epoch %d: %w", epoch, err)
	}

	itemRef, err := e.registry.CreateItem(e.authority, e.group, content)
	if err != nil {
		return nil, fmt.Errorf("create item for epoch %d: %w", epoch, err)
	}

	auction := core.NewAuction(epoch, itemRef, creator)
	err = e.store.Update(func(tx *store.Tx) error {
		if _, err := tx.Auction(epoch); err == nil {
			return core.ErrAuctionExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.PutAuction(auction); err != nil {
			return err
		}
		return reputationGrant(tx, creator, core.PointsInitiate)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: Auction created for epoch %d by %s (item %s, traits %+v)",
		epoch, creator, itemRef, traits)
	return auction, nil
}

// PlaceBid submits a bid on the live epoch's auction. prevBidder must
// name the auction's recorded high bidder; it routes the refund and
// guards against racing a stale view of the record.
//
// The step order is load-bearing: the bid amount moves into escrow
// before the previous high bid is refunded, and both transfers happen
// before the record advances. A failure at any step rolls back the
// whole transaction, so no partial effect ever survives.
func (e *Engine) PlaceBid(epoch uint64, bidder string, amount uint64, prevBidder string) error {
	if bidder == "" {
		return fmt.Errorf("place bid: empty bidder")
	}
	if _, err := core.ValidateEpoch(e.oracle, epoch); err != nil {
		return err
	}

	err := e.store.Update(func(tx *store.Tx) error {
		auction, err := tx.Auction(epoch)
		if err != nil {
			return fmt.Errorf("load auction %d: %w", epoch, err)
		}

		if auction.HighBidder != prevBidder {
			return core.ErrInvalidPreviousBidder
		}
		if err := auction.ValidateBid(amount); err != nil {
			return err
		}

		// Funds in: custody the new bid before anything else moves.
		if err := tx.Transfer(bidder, store.EscrowAccount, amount); err != nil {
			return err
		}

		// Refund out: the previous high bidder gets back exactly what
		// they escrowed. A zero high bid means no real bid yet, so
		// nothing to return.
		if auction.HighBidAmount > 0 {
			if err := tx.Transfer(store.EscrowAccount, auction.HighBidder, auction.HighBidAmount); err != nil {
				return err
			}
		}

		if err := auction.Bid(bidder, amount); err != nil {
			return err
		}
		if err := tx.PutAuction(auction); err != nil {
			return err
		}
		return reputationGrant(tx, bidder, core.PointsBid)
	})
	if err != nil {
		return err
	}

	log.Printf("INFO: Bid accepted on epoch %d: %s bid %d", epoch, bidder, amount)
	return nil
}

// Claim settles a won auction once its epoch has passed: the high bid
// is distributed across the payee table, the item transfers to the
// winner, and the auction flips to its terminal claimed state. The
// state check is the sole guard against double settlement, so it
// commits atomically with the distribution.
//
// payeeAccounts are the caller-supplied destinations, validated
// position-by-position against the configured table so a caller cannot
// redirect funds.
func (e *Engine) Claim(epoch uint64, claimant string, payeeAccounts []string) (*receipt.Settlement, error) {
	if claimant == "" {
		return nil, fmt.Errorf("claim: empty claimant")
	}

	var settlement *receipt.Settlement
	err := e.store.Update(func(tx *store.Tx) error {
		auction, err := tx.Auction(epoch)
		if err != nil {
			return fmt.Errorf("load auction %d: %w", epoch, err)
		}
		if epoch != auction.Epoch {
			return core.ErrEpochMismatch
		}
		if err := core.VerifyEpochPassed(e.oracle, auction.Epoch); err != nil {
			return err
		}
		if auction.HighBidder != claimant {
			return core.ErrInvalidWinner
		}
		if auction.State != core.AuctionUnclaimed {
			return core.ErrAuctionAlreadyClaimed
		}

		total := auction.HighBidAmount
		shares, err := e.distribute(tx, total, payeeAccounts)
		if err != nil {
			return err
		}

		if err := e.registry.TransferItem(auction.ItemRef, e.authority, claimant); err != nil {
			return fmt.Errorf("transfer item %s: %w", auction.ItemRef, err)
		}

		if err := auction.Claim(); err != nil {
			return err
		}
		if err := tx.PutAuction(auction); err != nil {
			return err
		}
		if err := reputationGrant(tx, claimant, core.PointsWin); err != nil {
			return err
		}

		settlement = &receipt.Settlement{
			Epoch:     auction.Epoch,
			Winner:    claimant,
			Amount:    total,
			Shares:    shares,
			ItemRef:   auction.ItemRef,
			SettledAt: e.now().Unix(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: Auction %d claimed by %s: distributed %d across %d payees",
		epoch, claimant, settlement.Amount, len(settlement.Shares))
	return settlement, nil
}

// distribute splits total across the payee table and moves each share
// from escrow to its validated destination. The caller-supplied
// accounts must match the configured table exactly: slot zero is the
// treasury, the rest are creators.
func (e *Engine) distribute(tx *store.Tx, total uint64, payeeAccounts []string) ([]receipt.Share, error) {
	if len(payeeAccounts) != len(e.payees) {
		return nil, fmt.Errorf("claim: %d payee accounts supplied, want %d: %w",
			len(payeeAccounts), len(e.payees), core.ErrInvalidTreasury)
	}
	for i, account := range payeeAccounts {
		if account != e.payees[i].Account {
			if i == 0 {
				return nil, core.ErrInvalidTreasury
			}
			return nil, core.ErrInvalidCreator
		}
	}

	amounts, err := core.SplitAmount(total, e.payees)
	if err != nil {
		return nil, err
	}

	shares := make([]receipt.Share, len(e.payees))
	for i, p := range e.payees {
		if err := tx.Transfer(store.EscrowAccount, p.Account, amounts[i]); err != nil {
			return nil, err
		}
		shares[i] = receipt.Share{Account: p.Account, Amount: amounts[i]}
	}
	return shares, nil
}
