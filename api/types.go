// Package api defines the JSON wire protocol of the auction server.
// Every request carries a type discriminator; every response echoes a
// type, a success flag, and a human-readable message.
package api

// Request type discriminators.
const (
	TypePing          = "ping"
	TypeCreateAuction = "create_auction"
	TypePlaceBid      = "place_bid"
	TypeClaim         = "claim"
	TypeDeposit       = "deposit"
	TypeGetAuction    = "get_auction"
	TypeGetReputation = "get_reputation"
	TypeInitMinter    = "init_minter"
	TypeRedeem        = "redeem"
)

// BaseRequest is decoded first to discover the request type.
type BaseRequest struct {
	Type string `json:"type"`
}

type CreateAuctionRequest struct {
	Type    string `json:"type"`
	Epoch   uint64 `json:"epoch"`
	Creator string `json:"creator"`
}

type PlaceBidRequest struct {
	Type   string `json:"type"`
	Epoch  uint64 `json:"epoch"`
	Bidder string `json:"bidder"`

	// Amount is a decimal string in standard units.
	Amount string `json:"amount"`

	// PreviousBidder must name the auction's recorded high bidder; it
	// routes the refund.
	PreviousBidder string `json:"previous_bidder"`
}

type ClaimRequest struct {
	Type     string `json:"type"`
	Epoch    uint64 `json:"epoch"`
	Claimant string `json:"claimant"`

	// Payees are the settlement destinations, validated against the
	// server's configured table.
	Payees []string `json:"payees"`
}

type DepositRequest struct {
	Type    string `json:"type"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type GetAuctionRequest struct {
	Type  string `json:"type"`
	Epoch uint64 `json:"epoch"`
}

type GetReputationRequest struct {
	Type        string `json:"type"`
	Contributor string `json:"contributor"`
}

type InitMinterRequest struct {
	Type           string `json:"type"`
	ItemsAvailable uint64 `json:"items_available"`
	StartTime      int64  `json:"start_time"`
}

type RedeemRequest struct {
	Type    string `json:"type"`
	Claimer string `json:"claimer"`
}

// Response is the generic reply envelope. Operation-specific replies
// embed it and add their payload.
type Response struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AuctionView is the wire form of an auction record. The high bid is a
// decimal string in standard units.
type AuctionView struct {
	Epoch         uint64 `json:"epoch"`
	ItemRef       string `json:"item_ref"`
	State         string `json:"state"`
	HighBidder    string `json:"high_bidder"`
	HighBidAmount string `json:"high_bid_amount"`
}

type AuctionResponse struct {
	Response
	Auction *AuctionView `json:"auction,omitempty"`
}

type ReputationView struct {
	Contributor string `json:"contributor"`
	Score       uint64 `json:"score"`
}

type ReputationResponse struct {
	Response
	Reputation *ReputationView `json:"reputation,omitempty"`
}

type DepositResponse struct {
	Response
	Balance string `json:"balance,omitempty"`
}

// ShareView is one payee's slice in a settlement reply.
type ShareView struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type ClaimResponse struct {
	Response
	Epoch   uint64      `json:"epoch,omitempty"`
	ItemRef string      `json:"item_ref,omitempty"`
	Amount  string      `json:"amount,omitempty"`
	Shares  []ShareView `json:"shares,omitempty"`

	// ReceiptCOSEBase64 is the base64-encoded COSE_Sign1 settlement
	// receipt, verifiable against the server's receipt public key.
	ReceiptCOSEBase64 string `json:"receipt_cose_base64,omitempty"`
}

type RedeemResponse struct {
	Response
	MintedEpoch uint64 `json:"minted_epoch,omitempty"`
	ItemRef     string `json:"item_ref,omitempty"`
}

type PingResponse struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
