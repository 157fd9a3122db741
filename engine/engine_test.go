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

const (
	treasury = "treasury"
	creatorA = "creator_a"
	creatorB = "creator_b"
)

func payeeTable() []core.Payee {
	return []core.Payee{
		{Account: treasury, Percent: 80},
		{Account: creatorA, Percent: 5},
		{Account: creatorB, Percent: 15},
	}
}

func payeeAccounts() []string {
	return []string{treasury, creatorA, creatorB}
}

type fixture struct {
	engine   *Engine
	store    *store.Store
	oracle   *core.FixedOracle
	registry *registry.MemoryRegistry
	now      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "auction.db"))
	assert.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	oracle := &core.FixedOracle{Epoch: 100}
	reg := registry.NewMemoryRegistry()
	now := time.Unix(1_700_000_000, 0)

	eng, err := New(Config{
		Store:              s,
		Oracle:             oracle,
		Registry:           reg,
		Generator:          registry.HashGenerator{},
		Payees:             payeeTable(),
		Authority:          "authority",
		RoyaltyBasisPoints: 500,
		Now:                func() time.Time { return now },
	})
	assert.NoError(t, err)

	_, err = eng.InitCollection()
	assert.NoError(t, err)

	return &fixture{engine: eng, store: s, oracle: oracle, registry: reg, now: &now}
}

func (f *fixture) fund(t *testing.T, account string, amount uint64) {
	t.Helper()
	assert.NoError(t, f.engine.Deposit(account, amount))
}

func (f *fixture) balance(t *testing.T, account string) uint64 {
	t.Helper()
	balance, err := f.engine.Balance(account)
	assert.NoError(t, err)
	return balance
}

func TestCreateAuction(t *testing.T) {
	f := newFixture(t)

	a, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)
	check.Equal(t, uint64(100), a.Epoch)
	check.Equal(t, core.AuctionUnclaimed, a.State)
	check.Equal(t, "creator", a.HighBidder)
	check.Equal(t, uint64(0), a.HighBidAmount)
	check.NotEqual(t, "", a.ItemRef)

	// The minted item sits in engine custody until claimed.
	owner, ok := f.registry.Owner(a.ItemRef)
	assert.True(t, ok)
	check.Equal(t, "authority", owner)

	// Initiating grants reputation, creating the record lazily.
	rep, err := f.engine.GetReputation("creator")
	assert.NoError(t, err)
	check.Equal(t, core.PointsInitiate, rep.Score)
}

func TestCreateAuction_OnePerEpoch(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	_, err = f.engine.CreateAuction(100, "someone_else")
	check.True(t, errors.Is(err, core.ErrAuctionExists))
}

func TestCreateAuction_EpochGating(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateAuction(101, "creator")
	check.True(t, errors.Is(err, core.ErrEpochFuture))

	_, err = f.engine.CreateAuction(99, "creator")
	check.True(t, errors.Is(err, core.ErrEpochPast))
}

func TestPlaceBid_FirstBid(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "bidder_a", 10*core.StandardUnit)

	// Below one standard unit is rejected and nothing moves.
	err = f.engine.PlaceBid(100, "bidder_a", core.StandardUnit-1, "creator")
	check.True(t, errors.Is(err, core.ErrBidTooLow))
	check.Equal(t, uint64(10*core.StandardUnit), f.balance(t, "bidder_a"))

	err = f.engine.PlaceBid(100, "bidder_a", core.StandardUnit, "creator")
	assert.NoError(t, err)

	a, err := f.engine.GetAuction(100)
	assert.NoError(t, err)
	check.Equal(t, "bidder_a", a.HighBidder)
	check.Equal(t, core.StandardUnit, a.HighBidAmount)

	// The bid is custodied in escrow.
	check.Equal(t, uint64(9*core.StandardUnit), f.balance(t, "bidder_a"))
	escrow, err := f.engine.EscrowBalance()
	assert.NoError(t, err)
	check.Equal(t, core.StandardUnit, escrow)

	rep, err := f.engine.GetReputation("bidder_a")
	assert.NoError(t, err)
	check.Equal(t, core.PointsBid, rep.Score)
}

func TestPlaceBid_RefundOnOutbid(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	// B1 bids 1e9 units, B2 outbids with 1.1e9; B1 must get back
	// exactly 1e9.
	f.fund(t, "b1", 1_000_000_000)
	f.fund(t, "b2", 1_100_000_000)

	assert.NoError(t, f.engine.PlaceBid(100, "b1", 1_000_000_000, "creator"))
	check.Equal(t, uint64(0), f.balance(t, "b1"))

	assert.NoError(t, f.engine.PlaceBid(100, "b2", 1_100_000_000, "b1"))

	check.Equal(t, uint64(1_000_000_000), f.balance(t, "b1"))
	check.Equal(t, uint64(0), f.balance(t, "b2"))

	a, err := f.engine.GetAuction(100)
	assert.NoError(t, err)
	check.Equal(t, "b2", a.HighBidder)
	check.Equal(t, uint64(1_100_000_000), a.HighBidAmount)

	// Escrow holds exactly the live high bid.
	escrow, err := f.engine.EscrowBalance()
	assert.NoError(t, err)
	check.Equal(t, a.HighBidAmount, escrow)
}

func TestPlaceBid_InvalidPreviousBidder(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "b1", 2*core.StandardUnit)
	f.fund(t, "b2", 4*core.StandardUnit)
	assert.NoError(t, f.engine.PlaceBid(100, "b1", 2*core.StandardUnit, "creator"))

	// A stale view of the record names the wrong previous bidder; the
	// bid is rejected and no funds move.
	err = f.engine.PlaceBid(100, "b2", 4*core.StandardUnit, "creator")
	check.True(t, errors.Is(err, core.ErrInvalidPreviousBidder))
	check.Equal(t, uint64(4*core.StandardUnit), f.balance(t, "b2"))
	check.Equal(t, uint64(0), f.balance(t, "b1"))
}

func TestPlaceBid_ThresholdAgainstPreviousBid(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "b1", 1000*core.StandardUnit)
	f.fund(t, "b2", 1000*core.StandardUnit)

	assert.NoError(t, f.engine.PlaceBid(100, "b1", 100*core.StandardUnit, "creator"))

	// A raise under 5% of the standing bid fails.
	err = f.engine.PlaceBid(100, "b2", 104*core.StandardUnit, "b1")
	check.True(t, errors.Is(err, core.ErrBidTooLow))

	assert.NoError(t, f.engine.PlaceBid(100, "b2", 105*core.StandardUnit, "b1"))

	a, err := f.engine.GetAuction(100)
	assert.NoError(t, err)
	check.Equal(t, uint64(105*core.StandardUnit), a.HighBidAmount)
}

func TestPlaceBid_InsufficientFundsRollsBack(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "b1", 2*core.StandardUnit)
	assert.NoError(t, f.engine.PlaceBid(100, "b1", 2*core.StandardUnit, "creator"))

	// b2 never deposited; the escrow transfer fails and the record and
	// ledger stay exactly as they were.
	err = f.engine.PlaceBid(100, "b2", 4*core.StandardUnit, "b1")
	check.True(t, errors.Is(err, core.ErrInsufficientFunds))

	a, err := f.engine.GetAuction(100)
	assert.NoError(t, err)
	check.Equal(t, "b1", a.HighBidder)
	escrow, err := f.engine.EscrowBalance()
	assert.NoError(t, err)
	check.Equal(t, uint64(2*core.StandardUnit), escrow)
}

func TestPlaceBid_WrongEpoch(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "b1", 10*core.StandardUnit)

	err = f.engine.PlaceBid(101, "b1", core.StandardUnit, "creator")
	check.True(t, errors.Is(err, core.ErrEpochFuture))

	f.oracle.Epoch = 101
	err = f.engine.PlaceBid(100, "b1", core.StandardUnit, "creator")
	check.True(t, errors.Is(err, core.ErrEpochPast))
}

func TestClaim_SettlesExactly(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "winner", 1_000_000_000_000)
	assert.NoError(t, f.engine.PlaceBid(100, "winner", 1_000_000_000_000, "creator"))

	f.oracle.Epoch = 101

	settlement, err := f.engine.Claim(100, "winner", payeeAccounts())
	assert.NoError(t, err)

	check.Equal(t, uint64(1_000_000_000_000), settlement.Amount)
	check.Equal(t, "winner", settlement.Winner)

	// Conservation: shares sum exactly to the high bid.
	var sum uint64
	for _, s := range settlement.Shares {
		sum += s.Amount
	}
	check.Equal(t, settlement.Amount, sum)

	check.Equal(t, uint64(800_000_000_000), f.balance(t, treasury))
	check.Equal(t, uint64(50_000_000_000), f.balance(t, creatorA))
	check.Equal(t, uint64(150_000_000_000), f.balance(t, creatorB))

	// Escrow is drained of exactly this auction's slice.
	escrow, err := f.engine.EscrowBalance()
	assert.NoError(t, err)
	check.Equal(t, uint64(0), escrow)

	// The item now belongs to the winner.
	a, err := f.engine.GetAuction(100)
	assert.NoError(t, err)
	check.Equal(t, core.AuctionClaimed, a.State)
	owner, ok := f.registry.Owner(a.ItemRef)
	assert.True(t, ok)
	check.Equal(t, "winner", owner)

	rep, err := f.engine.GetReputation("winner")
	assert.NoError(t, err)
	check.Equal(t, core.PointsBid+core.PointsWin, rep.Score)
}

func TestClaim_SecondClaimFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "winner", 5*core.StandardUnit)
	assert.NoError(t, f.engine.PlaceBid(100, "winner", 5*core.StandardUnit, "creator"))

	f.oracle.Epoch = 101
	_, err = f.engine.Claim(100, "winner", payeeAccounts())
	assert.NoError(t, err)

	treasuryBefore := f.balance(t, treasury)

	// Idempotence: a second claim fails and moves nothing.
	_, err = f.engine.Claim(100, "winner", payeeAccounts())
	check.True(t, errors.Is(err, core.ErrAuctionAlreadyClaimed))
	check.Equal(t, treasuryBefore, f.balance(t, treasury))
}

func TestClaim_BeforeEpochPassedFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "winner", 5*core.StandardUnit)
	assert.NoError(t, f.engine.PlaceBid(100, "winner", 5*core.StandardUnit, "creator"))

	// The auctioned epoch is still live.
	_, err = f.engine.Claim(100, "winner", payeeAccounts())
	check.True(t, errors.Is(err, core.ErrEpochFuture))

	a, err := f.engine.GetAuction(100)
	assert.NoError(t, err)
	check.Equal(t, core.AuctionUnclaimed, a.State)
}

func TestClaim_OnlyWinner(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "winner", 5*core.StandardUnit)
	assert.NoError(t, f.engine.PlaceBid(100, "winner", 5*core.StandardUnit, "creator"))

	f.oracle.Epoch = 101
	_, err = f.engine.Claim(100, "loser", payeeAccounts())
	check.True(t, errors.Is(err, core.ErrInvalidWinner))
}

func TestClaim_PayeeValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "winner", 5*core.StandardUnit)
	assert.NoError(t, f.engine.PlaceBid(100, "winner", 5*core.StandardUnit, "creator"))
	f.oracle.Epoch = 101

	// Redirecting the treasury slot is rejected.
	_, err = f.engine.Claim(100, "winner", []string{"attacker", creatorA, creatorB})
	check.True(t, errors.Is(err, core.ErrInvalidTreasury))

	// Redirecting a creator slot is rejected.
	_, err = f.engine.Claim(100, "winner", []string{treasury, "attacker", creatorB})
	check.True(t, errors.Is(err, core.ErrInvalidCreator))

	// Nothing moved while the payees were wrong.
	check.Equal(t, uint64(0), f.balance(t, treasury))

	_, err = f.engine.Claim(100, "winner", payeeAccounts())
	check.NoError(t, err)
}

func TestClaim_ZeroBidAuction(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.oracle.Epoch = 101

	// No real bid: the creator holds the high-bidder slot and claims a
	// zero settlement, keeping the item.
	settlement, err := f.engine.Claim(100, "creator", payeeAccounts())
	assert.NoError(t, err)
	check.Equal(t, uint64(0), settlement.Amount)

	a, err := f.engine.GetAuction(100)
	assert.NoError(t, err)
	owner, ok := f.registry.Owner(a.ItemRef)
	assert.True(t, ok)
	check.Equal(t, "creator", owner)
}

func TestEscrowPoolInvariant_AcrossAuctions(t *testing.T) {
	f := newFixture(t)

	// Two auctions in consecutive epochs share the escrow pool; the
	// pool always covers the sum of the open high bids.
	_, err := f.engine.CreateAuction(100, "creator")
	assert.NoError(t, err)

	f.fund(t, "b1", 10*core.StandardUnit)
	f.fund(t, "b2", 20*core.StandardUnit)
	assert.NoError(t, f.engine.PlaceBid(100, "b1", 10*core.StandardUnit, "creator"))

	f.oracle.Epoch = 101
	_, err = f.engine.CreateAuction(101, "creator")
	assert.NoError(t, err)
	assert.NoError(t, f.engine.PlaceBid(101, "b2", 20*core.StandardUnit, "creator"))

	escrow, err := f.engine.EscrowBalance()
	assert.NoError(t, err)
	check.Equal(t, uint64(30*core.StandardUnit), escrow)

	// Settling the first auction drains only its own slice.
	f.oracle.Epoch = 102
	_, err = f.engine.Claim(100, "b1", payeeAccounts())
	assert.NoError(t, err)

	escrow, err = f.engine.EscrowBalance()
	assert.NoError(t, err)
	check.Equal(t, uint64(20*core.StandardUnit), escrow)
}

func TestReputation_AccruesAcrossOperations(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateAuction(100, "alice")
	assert.NoError(t, err)

	f.fund(t, "alice", 100*core.StandardUnit)
	f.fund(t, "bob", 100*core.StandardUnit)

	assert.NoError(t, f.engine.PlaceBid(100, "alice", core.StandardUnit, "alice"))
	assert.NoError(t, f.engine.PlaceBid(100, "bob", 2*core.StandardUnit, "alice"))
	assert.NoError(t, f.engine.PlaceBid(100, "alice", 3*core.StandardUnit, "bob"))

	f.oracle.Epoch = 101
	_, err = f.engine.Claim(100, "alice", payeeAccounts())
	assert.NoError(t, err)

	alice, err := f.engine.GetReputation("alice")
	assert.NoError(t, err)
	check.Equal(t, core.PointsInitiate+2*core.PointsBid+core.PointsWin, alice.Score)

	bob, err := f.engine.GetReputation("bob")
	assert.NoError(t, err)
	check.Equal(t, core.PointsBid, bob.Score)
}
