package core

import "errors"

// Epoch errors: the caller supplied a stale or premature epoch. Always
// recoverable by resubmitting against the current epoch.
var (
	ErrEpochFuture   = errors.New("input epoch is in the future")
	ErrEpochPast     = errors.New("input epoch is in the past")
	ErrEpochMismatch = errors.New("input epoch does not match the auction epoch")
)

// Auction errors: a protocol precondition was violated. Surfaced to the
// caller verbatim, never retried internally.
var (
	ErrAuctionExists         = errors.New("auction already exists for epoch")
	ErrBidTooLow             = errors.New("bid does not meet minimum bid threshold")
	ErrInvalidPreviousBidder = errors.New("previous bidder does not match current high bidder")
	ErrInvalidWinner         = errors.New("claimant did not win the auction")
	ErrAuctionAlreadyClaimed = errors.New("auction has already been claimed")
)

// Arithmetic errors: a value near the uint64 limits or a payee-table
// bug. Fatal for the operation, never silently clamped.
var (
	ErrOverflow  = errors.New("integer overflow")
	ErrUnderflow = errors.New("integer underflow")
)

// Identity errors: a mismatched identity was supplied. Always rejected,
// never auto-corrected.
var (
	ErrInvalidContributor = errors.New("contributor does not match record owner")
	ErrInvalidTreasury    = errors.New("invalid treasury account")
	ErrInvalidCreator     = errors.New("invalid creator account")
)

// ErrInsufficientFunds is returned by the account ledger when a debit
// exceeds the account balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Minter errors.
var (
	ErrMinterNotActive    = errors.New("minter is not active")
	ErrMinterEmpty        = errors.New("minter is empty")
	ErrMinterNotStarted   = errors.New("minter has not started")
	ErrMinterStartInPast  = errors.New("minter start time is in the past")
	ErrMinterTooManyItems = errors.New("minter cannot hold more items than the current epoch")
	ErrAlreadyRedeemed    = errors.New("identity has already redeemed from the minter")
)
