// Package store persists auction, reputation, and minter records plus
// the account balance ledger in a single BoltDB file.
//
// Every engine operation runs inside one bolt Update transaction. Bolt
// serializes writers and commits all-or-nothing, which supplies the two
// guarantees the lifecycle protocol depends on: atomicity of an
// operation's effects across records, and full ordering of concurrent
// writers to the same record.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/fxamacker/cbor/v2"

	"github.com/epochmint/epochauction/core"
)

// Bucket names. One bucket per record type; keys are deterministic so
// lookups never scan.
var (
	bucketAuctions     = []byte("auctions")
	bucketReputations  = []byte("reputations")
	bucketAccounts     = []byte("accounts")
	bucketMinter       = []byte("minter")
	bucketMintReceipts = []byte("mint_receipts")
)

// minterKey is the single key under bucketMinter; there is one minter
// per deployment.
var minterKey = []byte("minter")

// EscrowAccount is the ledger key of the shared escrow pool that holds
// every open auction's live high bid.
const EscrowAccount = "escrow"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps a BoltDB database holding all auction engine state.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at path and ensures all buckets
// exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAuctions, bucketReputations, bucketAccounts, bucketMinter, bucketMintReceipts} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Update runs fn inside a writable transaction. If fn returns an error
// the transaction rolls back and none of its effects survive.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// View runs fn inside a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// Tx exposes typed record access on top of a bolt transaction.
type Tx struct {
	btx *bolt.Tx
}

func epochKey(epoch uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, epoch)
	return key
}

// Auction loads the auction record for epoch, or ErrNotFound.
func (tx *Tx) Auction(epoch uint64) (*core.Auction, error) {
	raw := tx.btx.Bucket(bucketAuctions).Get(epochKey(epoch))
	if raw == nil {
		return nil, ErrNotFound
	}
	var a core.Auction
	if err := cbor.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode auction %d: %w", epoch, err)
	}
	return &a, nil
}

// PutAuction writes the auction record keyed by its epoch.
func (tx *Tx) PutAuction(a *core.Auction) error {
	raw, err := cbor.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode auction %d: %w", a.Epoch, err)
	}
	return tx.btx.Bucket(bucketAuctions).Put(epochKey(a.Epoch), raw)
}

// Reputation loads the reputation record bound to contributor, or
// ErrNotFound.
func (tx *Tx) Reputation(contributor string) (*core.Reputation, error) {
	raw := tx.btx.Bucket(bucketReputations).Get([]byte(contributor))
	if raw == nil {
		return nil, ErrNotFound
	}
	var r core.Reputation
	if err := cbor.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode reputation %s: %w", contributor, err)
	}
	return &r, nil
}

// PutReputation writes the reputation record keyed by its contributor.
func (tx *Tx) PutReputation(r *core.Reputation) error {
	raw, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reputation %s: %w", r.Contributor, err)
	}
	return tx.btx.Bucket(bucketReputations).Put([]byte(r.Contributor), raw)
}

// Minter loads the minter record, or ErrNotFound if it was never
// initialized.
func (tx *Tx) Minter() (*core.Minter, error) {
	raw := tx.btx.Bucket(bucketMinter).Get(minterKey)
	if raw == nil {
		return nil, ErrNotFound
	}
	var m core.Minter
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode minter: %w", err)
	}
	return &m, nil
}

// PutMinter writes the minter record.
func (tx *Tx) PutMinter(m *core.Minter) error {
	raw, err := cbor.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode minter: %w", err)
	}
	return tx.btx.Bucket(bucketMinter).Put(minterKey, raw)
}

// MintReceipt loads the redemption receipt for claimer, or ErrNotFound.
func (tx *Tx) MintReceipt(claimer string) (*core.MintReceipt, error) {
	raw := tx.btx.Bucket(bucketMintReceipts).Get([]byte(claimer))
	if raw == nil {
		return nil, ErrNotFound
	}
	var r core.MintReceipt
	if err := cbor.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode mint receipt %s: %w", claimer, err)
	}
	return &r, nil
}

// PutMintReceipt writes the redemption receipt keyed by its claimer.
func (tx *Tx) PutMintReceipt(r *core.MintReceipt) error {
	raw, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode mint receipt %s: %w", r.Claimer, err)
	}
	return tx.btx.Bucket(bucketMintReceipts).Put([]byte(r.Claimer), raw)
}
