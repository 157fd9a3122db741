package store

import (
	"encoding/binary"
	"math"

	"github.com/epochmint/epochauction/core"
)

// The account ledger tracks base-unit balances per identity, including
// the shared escrow pool. All arithmetic is checked: credits fail on
// overflow, debits fail when they exceed the balance. Balances are
// stored as big-endian uint64 so the on-disk form is fixed-width and
// byte-comparable.

// Balance returns the current balance of account. Accounts that never
// received funds have a zero balance.
func (tx *Tx) Balance(account string) uint64 {
	raw := tx.btx.Bucket(bucketAccounts).Get([]byte(account))
	if raw == nil {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func (tx *Tx) putBalance(account string, balance uint64) error {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, balance)
	return tx.btx.Bucket(bucketAccounts).Put([]byte(account), raw)
}

// Credit adds amount to account's balance.
func (tx *Tx) Credit(account string, amount uint64) error {
	balance := tx.Balance(account)
	if balance > math.MaxUint64-amount {
		return core.ErrOverflow
	}
	return tx.putBalance(account, balance+amount)
}

// Debit removes amount from account's balance, failing if the account
// does not hold enough.
func (tx *Tx) Debit(account string, amount uint64) error {
	balance := tx.Balance(account)
	if amount > balance {
		return core.ErrInsufficientFunds
	}
	return tx.putBalance(account, balance-amount)
}

// Transfer moves amount from one account to another. A zero-amount
// transfer is a no-op so that zero settlement shares and absent refunds
// cost nothing.
func (tx *Tx) Transfer(from, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := tx.Debit(from, amount); err != nil {
		return err
	}
	return tx.Credit(to, amount)
}
