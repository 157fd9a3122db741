package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/epochmint/epochauction/core"
	"github.com/epochmint/epochauction/store"
)

// InitMinter arms the retroactive minter with a fixed supply and a
// future start time. One-time: re-initializing an armed minter fails.
func (e *Engine) InitMinter(itemsAvailable uint64, startTime int64) error {
	currentEpoch := e.oracle.CurrentEpoch()
	nowUnix := e.now().Unix()

	err := e.store.Update(func(tx *store.Tx) error {
		if _, err := tx.Minter(); err == nil {
			return fmt.Errorf("minter already initialized")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		var m core.Minter
		if err := m.Initialize(itemsAvailable, startTime, nowUnix, currentEpoch); err != nil {
			return err
		}
		return tx.PutMinter(&m)
	})
	if err != nil {
		return err
	}

	log.Printf("INFO: Minter initialized: %d items, starts at %d", itemsAvailable, startTime)
	return nil
}

// Redeem consumes one minter item for claimer: it charges the fixed
// mint price (split between treasury and creator), records the
// one-per-identity receipt, and mints the retroactive epoch's item to
// the claimer. A second redemption by the same identity fails.
//
// The mint happens inside the store transaction, so a registry failure
// rolls back the charge, the supply decrement, and the receipt. The
// claimer can only lose funds once they hold the item.
func (e *Engine) Redeem(claimer string) (*core.MintReceipt, string, error) {
	if claimer == "" {
		return nil, "", fmt.Errorf("redeem: empty claimer")
	}
	if e.group == "" {
		return nil, "", fmt.Errorf("redeem: collection not initialized")
	}

	var mintReceipt *core.MintReceipt
	var itemRef string
	err := e.store.Update(func(tx *store.Tx) error {
		m, err := tx.Minter()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return core.ErrMinterNotActive
			}
			return err
		}

		if _, err := tx.MintReceipt(claimer); err == nil {
			return core.ErrAlreadyRedeemed
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		mintedEpoch, err := m.Redeem(e.now().Unix())
		if err != nil {
			return err
		}

		amounts, err := core.SplitAmount(core.MintPrice, e.minterPayees)
		if err != nil {
			return err
		}
		for i, p := range e.minterPayees {
			if err := tx.Transfer(claimer, p.Account, amounts[i]); err != nil {
				return err
			}
		}

		if err := tx.PutMinter(m); err != nil {
			return err
		}
		mintReceipt = &core.MintReceipt{Claimer: claimer, MintedEpoch: mintedEpoch}
		if err := tx.PutMintReceipt(mintReceipt); err != nil {
			return err
		}

		content, _, err := e.generator.Generate(mintedEpoch, claimer)
		if err != nil {
			return fmt.Errorf("generate content for epoch %d: %w", mintedEpoch, err)
		}
		itemRef, err = e.registry.CreateItem(claimer, e.group, content)
		if err != nil {
			return fmt.Errorf("create item for epoch %d: %w", mintedEpoch, err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	log.Printf("INFO: Minter redemption by %s: epoch %d, item %s", claimer, mintReceipt.MintedEpoch, itemRef)
	return mintReceipt, itemRef, nil
}
