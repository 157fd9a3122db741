// Package engine implements the epoch auction lifecycle: epoch-gated
// auction creation, the bid protocol with escrow custody and
// refund-on-outbid, claim settlement with fixed-percentage
// distribution, the reputation ledger, and the retroactive minter.
//
// Every operation executes inside a single store transaction, so its
// effects on the auction record, the account ledger, and the reputation
// record commit together or not at all. Concurrent operations on the
// same record are fully ordered by the store's single-writer
// transactions; the loser observes the winner's committed state.
package engine

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/epochmint/epochauction/core"
	"github.com/epochmint/epochauction/registry"
	"github.com/epochmint/epochauction/store"
)

// Config assembles an Engine.
type Config struct {
	Store     *store.Store
	Oracle    core.EpochOracle
	Registry  registry.AssetRegistry
	Generator registry.ContentGenerator

	// Payees is the settlement percentage table. The first entry is the
	// treasury; the rest are creators. Percentages must sum to 100.
	Payees []core.Payee

	// Authority is the identity that holds minted items in custody
	// until they are claimed.
	Authority string

	// RoyaltyBasisPoints is attached to the item group at collection
	// init.
	RoyaltyBasisPoints uint64

	// Now is the wall-clock source for minter gating; nil means
	// time.Now.
	Now func() time.Time
}

// Engine runs the auction lifecycle against a store, an epoch oracle,
// and the external asset registry.
type Engine struct {
	store        *store.Store
	oracle       core.EpochOracle
	registry     registry.AssetRegistry
	generator    registry.ContentGenerator
	payees       []core.Payee
	minterPayees []core.Payee
	authority    string
	royaltyBPS   uint64
	group        string
	now          func() time.Time
}

// New validates cfg and returns a ready engine. The item group is not
// created yet; call InitCollection once before the first auction.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine config: store is required")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("engine config: epoch oracle is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine config: asset registry is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("engine config: content generator is required")
	}
	if cfg.Authority == "" {
		return nil, fmt.Errorf("engine config: authority is required")
	}
	if err := core.ValidatePayees(cfg.Payees); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	// The minter settles its fixed price 80/20 between the treasury and
	// the first creator; with a treasury-only table it takes all.
	minterPayees := []core.Payee{{Account: cfg.Payees[0].Account, Percent: 100}}
	if len(cfg.Payees) > 1 {
		minterPayees = []core.Payee{
			{Account: cfg.Payees[0].Account, Percent: 80},
			{Account: cfg.Payees[1].Account, Percent: 20},
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store:        cfg.Store,
		oracle:       cfg.Oracle,
		registry:     cfg.Registry,
		generator:    cfg.Generator,
		payees:       cfg.Payees,
		minterPayees: minterPayees,
		authority:    cfg.Authority,
		royaltyBPS:   cfg.RoyaltyBasisPoints,
		now:          now,
	}, nil
}

// InitCollection creates the item group that every epoch's item is
// minted into and attaches the royalty metadata. Call once at startup;
// subsequent auctions reuse the group.
func (e *Engine) InitCollection() (string, error) {
	if e.group != "" {
		return e.group, nil
	}

	group, err := e.registry.CreateGroup(e.authority)
	if err != nil {
		return "", fmt.Errorf("create item group: %w", err)
	}

	payees := make([]string, len(e.payees))
	for i, p := range e.payees {
		payees[i] = p.Account
	}
	if err := e.registry.AttachRoyalties(group, e.royaltyBPS, payees); err != nil {
		return "", fmt.Errorf("attach royalties: %w", err)
	}

	e.group = group
	log.Printf("INFO: Collection group %s initialized (royalty %d bps)", group, e.royaltyBPS)
	return group, nil
}

// Deposit credits an account's ledger balance. This is the external
// funding entry point: bidders must hold a balance before they can bid.
func (e *Engine) Deposit(account string, amount uint64) error {
	if account == "" {
		return fmt.Errorf("deposit: empty account")
	}
	return e.store.Update(func(tx *store.Tx) error {
		return tx.Credit(account, amount)
	})
}

// GetAuction returns the auction record for epoch.
func (e *Engine) GetAuction(epoch uint64) (*core.Auction, error) {
	var a *core.Auction
	err := e.store.View(func(tx *store.Tx) error {
		var err error
		a, err = tx.Auction(epoch)
		return err
	})
	return a, err
}

// GetReputation returns the reputation record bound to contributor.
func (e *Engine) GetReputation(contributor string) (*core.Reputation, error) {
	var r *core.Reputation
	err := e.store.View(func(tx *store.Tx) error {
		var err error
		r, err = tx.Reputation(contributor)
		return err
	})
	return r, err
}

// Balance returns an account's ledger balance.
func (e *Engine) Balance(account string) (uint64, error) {
	var balance uint64
	err := e.store.View(func(tx *store.Tx) error {
		balance = tx.Balance(account)
		return nil
	})
	return balance, err
}

// EscrowBalance returns the shared escrow pool balance.
func (e *Engine) EscrowBalance() (uint64, error) {
	return e.Balance(store.EscrowAccount)
}

// reputationGrant applies a point grant to identity's reputation
// record, creating and binding it on first contact.
func reputationGrant(tx *store.Tx, identity string, points uint64) error {
	rep, err := tx.Reputation(identity)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		rep = &core.Reputation{}
	}
	rep.InitIfNeeded(identity)
	if err := rep.Increment(points, identity); err != nil {
		return err
	}
	return tx.PutReputation(rep)
}
