package engine

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/epochmint/epochauction/core"
	"github.com/epochmint/epochauction/registry"
	"github.com/epochmint/epochauction/store"
)

func TestMinter_RedeemFlow(t *testing.T) {
	f := newFixture(t)
	start := f.now.Unix() + 60

	assert.NoError(t, f.engine.InitMinter(3, start))

	// Double init is rejected.
	check.Error(t, f.engine.InitMinter(3, start+120))

	f.fund(t, "alice", 2*core.MintPrice)

	// Before the start time redemption is gated.
	_, _, err := f.engine.Redeem("alice")
	check.True(t, errors.Is(err, core.ErrMinterNotStarted))

	*f.now = f.now.Add(2 * time.Minute)

	mintReceipt, itemRef, err := f.engine.Redeem("alice")
	assert.NoError(t, err)
	check.Equal(t, "alice", mintReceipt.Claimer)
	check.Equal(t, uint64(1), mintReceipt.MintedEpoch)

	// The fixed price is charged and split 80/20.
	check.Equal(t, uint64(core.MintPrice), f.balance(t, "alice"))
	check.Equal(t, uint64(800_000_000), f.balance(t, treasury))
	check.Equal(t, uint64(200_000_000), f.balance(t, creatorA))

	// The minted item belongs to the redeemer.
	owner, ok := f.registry.Owner(itemRef)
	assert.True(t, ok)
	check.Equal(t, "alice", owner)
}

func TestMinter_OneRedemptionPerIdentity(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.engine.InitMinter(3, f.now.Unix()+60))
	*f.now = f.now.Add(2 * time.Minute)

	f.fund(t, "alice", 10*core.MintPrice)

	_, _, err := f.engine.Redeem("alice")
	assert.NoError(t, err)

	balanceAfterFirst := f.balance(t, "alice")

	_, _, err = f.engine.Redeem("alice")
	check.True(t, errors.Is(err, core.ErrAlreadyRedeemed))
	check.Equal(t, balanceAfterFirst, f.balance(t, "alice"))
}

func TestMinter_ExhaustionWalksEpochs(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.engine.InitMinter(2, f.now.Unix()+60))
	*f.now = f.now.Add(2 * time.Minute)

	f.fund(t, "alice", core.MintPrice)
	f.fund(t, "bob", core.MintPrice)
	f.fund(t, "carol", core.MintPrice)

	r1, _, err := f.engine.Redeem("alice")
	assert.NoError(t, err)
	check.Equal(t, uint64(1), r1.MintedEpoch)

	r2, _, err := f.engine.Redeem("bob")
	assert.NoError(t, err)
	check.Equal(t, uint64(2), r2.MintedEpoch)

	// Supply exhausted: the minter deactivated itself.
	_, _, err = f.engine.Redeem("carol")
	check.True(t, errors.Is(err, core.ErrMinterNotActive))
	check.Equal(t, uint64(core.MintPrice), f.balance(t, "carol"))
}

func TestMinter_UnfundedRedeemerRollsBack(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.engine.InitMinter(3, f.now.Unix()+60))
	*f.now = f.now.Add(2 * time.Minute)

	_, _, err := f.engine.Redeem("pauper")
	check.True(t, errors.Is(err, core.ErrInsufficientFunds))

	// The failed redemption consumed nothing: the next redeemer still
	// gets epoch 1.
	f.fund(t, "alice", core.MintPrice)
	r, _, err := f.engine.Redeem("alice")
	assert.NoError(t, err)
	check.Equal(t, uint64(1), r.MintedEpoch)
}

func TestMinter_NotInitialized(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", core.MintPrice)

	_, _, err := f.engine.Redeem("alice")
	check.True(t, errors.Is(err, core.ErrMinterNotActive))
}

// flakyRegistry rejects a configurable number of item creations before
// behaving normally.
type flakyRegistry struct {
	*registry.MemoryRegistry
	failCreates int
}

func (r *flakyRegistry) CreateItem(owner, group string, content []byte) (string, error) {
	if r.failCreates > 0 {
		r.failCreates--
		return "", errors.New("registry unavailable")
	}
	return r.MemoryRegistry.CreateItem(owner, group, content)
}

func TestMinter_RegistryFailureRollsBack(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "auction.db"))
	assert.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	reg := &flakyRegistry{MemoryRegistry: registry.NewMemoryRegistry(), failCreates: 1}
	now := time.Unix(1_700_000_000, 0)
	eng, err := New(Config{
		Store:     s,
		Oracle:    &core.FixedOracle{Epoch: 100},
		Registry:  reg,
		Generator: registry.HashGenerator{},
		Payees:    payeeTable(),
		Authority: "authority",
		Now:       func() time.Time { return now },
	})
	assert.NoError(t, err)
	_, err = eng.InitCollection()
	assert.NoError(t, err)

	assert.NoError(t, eng.InitMinter(3, now.Unix()+60))
	now = now.Add(2 * time.Minute)

	assert.NoError(t, eng.Deposit("alice", core.MintPrice))

	// The registry rejects the mint; the charge, the supply decrement,
	// and the one-per-identity receipt all roll back with it.
	_, _, err = eng.Redeem("alice")
	check.Error(t, err)

	balance, err := eng.Balance("alice")
	assert.NoError(t, err)
	check.Equal(t, uint64(core.MintPrice), balance)

	// Nothing was consumed: the retry succeeds and still mints epoch 1.
	r, itemRef, err := eng.Redeem("alice")
	assert.NoError(t, err)
	check.Equal(t, uint64(1), r.MintedEpoch)
	owner, ok := reg.Owner(itemRef)
	assert.True(t, ok)
	check.Equal(t, "alice", owner)
}

func TestMinter_SupplyBoundByEpoch(t *testing.T) {
	f := newFixture(t)

	// Current epoch is 100: the retroactive supply must stay below it.
	err := f.engine.InitMinter(100, f.now.Unix()+60)
	check.True(t, errors.Is(err, core.ErrMinterTooManyItems))

	err = f.engine.InitMinter(99, f.now.Unix()+60)
	check.NoError(t, err)
}
