package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/epochmint/epochauction/api"
	"github.com/epochmint/epochauction/core"
)

// dispatch decodes the base request type and routes to the matching
// handler. Every branch returns exactly one response value.
func (s *Server) dispatch(raw []byte) any {
	var base api.BaseRequest
	if err := json.Unmarshal(raw, &base); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return failure("error", fmt.Errorf("malformed request: %w", err))
	}

	log.Printf("INFO: Received request type: %s", base.Type)

	switch base.Type {
	case api.TypePing:
		return api.PingResponse{
			Type:      "pong",
			Message:   "auction server is healthy",
			Timestamp: time.Now().Unix(),
		}
	case api.TypeCreateAuction:
		return s.handleCreateAuction(raw)
	case api.TypePlaceBid:
		return s.handlePlaceBid(raw)
	case api.TypeClaim:
		return s.handleClaim(raw)
	case api.TypeDeposit:
		return s.handleDeposit(raw)
	case api.TypeGetAuction:
		return s.handleGetAuction(raw)
	case api.TypeGetReputation:
		return s.handleGetReputation(raw)
	case api.TypeInitMinter:
		return s.handleInitMinter(raw)
	case api.TypeRedeem:
		return s.handleRedeem(raw)
	default:
		return failure("error", fmt.Errorf("unknown request type: %s", base.Type))
	}
}

func failure(respType string, err error) api.Response {
	return api.Response{Type: respType, Success: false, Message: err.Error()}
}

func auctionView(a *core.Auction) *api.AuctionView {
	return &api.AuctionView{
		Epoch:         a.Epoch,
		ItemRef:       a.ItemRef,
		State:         a.State.String(),
		HighBidder:    a.HighBidder,
		HighBidAmount: api.FormatAmount(a.HighBidAmount),
	}
}

func (s *Server) handleCreateAuction(raw []byte) any {
	var req api.CreateAuctionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure("create_auction_response", fmt.Errorf("malformed request: %w", err))
	}

	auction, err := s.engine.CreateAuction(req.Epoch, req.Creator)
	if err != nil {
		log.Printf("ERROR: Create auction failed for epoch %d: %v", req.Epoch, err)
		return failure("create_auction_response", err)
	}

	return api.AuctionResponse{
		Response: api.Response{
			Type:    "create_auction_response",
			Success: true,
			Message: fmt.Sprintf("auction created for epoch %d", req.Epoch),
		},
		Auction: auctionView(auction),
	}
}

func (s *Server) handlePlaceBid(raw []byte) any {
	var req api.PlaceBidRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure("place_bid_response", fmt.Errorf("malformed request: %w", err))
	}

	amount, err := api.ParseAmount(req.Amount)
	if err != nil {
		return failure("place_bid_response", err)
	}

	if err := s.engine.PlaceBid(req.Epoch, req.Bidder, amount, req.PreviousBidder); err != nil {
		log.Printf("ERROR: Bid failed on epoch %d: %v", req.Epoch, err)
		return failure("place_bid_response", err)
	}

	auction, err := s.engine.GetAuction(req.Epoch)
	if err != nil {
		return failure("place_bid_response", err)
	}

	return api.AuctionResponse{
		Response: api.Response{
			Type:    "place_bid_response",
			Success: true,
			Message: fmt.Sprintf("bid accepted on epoch %d", req.Epoch),
		},
		Auction: auctionView(auction),
	}
}

func (s *Server) handleClaim(raw []byte) any {
	var req api.ClaimRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure("claim_response", fmt.Errorf("malformed request: %w", err))
	}

	settlement, err := s.engine.Claim(req.Epoch, req.Claimant, req.Payees)
	if err != nil {
		log.Printf("ERROR: Claim failed on epoch %d: %v", req.Epoch, err)
		return failure("claim_response", err)
	}

	signed, signErr := s.signer.Sign(settlement)
	if signErr != nil {
		// The settlement is committed; losing the receipt is not a
		// reason to report failure.
		log.Printf("ERROR: Failed to sign settlement receipt for epoch %d: %v", req.Epoch, signErr)
	}

	shares := make([]api.ShareView, len(settlement.Shares))
	for i, sh := range settlement.Shares {
		shares[i] = api.ShareView{Account: sh.Account, Amount: api.FormatAmount(sh.Amount)}
	}

	return api.ClaimResponse{
		Response: api.Response{
			Type:    "claim_response",
			Success: true,
			Message: claimMessage(req.Epoch, signErr),
		},
		Epoch:             settlement.Epoch,
		ItemRef:           settlement.ItemRef,
		Amount:            api.FormatAmount(settlement.Amount),
		Shares:            shares,
		ReceiptCOSEBase64: base64.StdEncoding.EncodeToString(signed),
	}
}

// claimMessage tells the caller whether the settled claim carries its
// receipt, so an empty receipt field is distinguishable from a
// truncated response.
func claimMessage(epoch uint64, signErr error) string {
	if signErr != nil {
		return fmt.Sprintf("auction %d settled, settlement receipt unavailable", epoch)
	}
	return fmt.Sprintf("auction %d settled", epoch)
}

func (s *Server) handleDeposit(raw []byte) any {
	var req api.DepositRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure("deposit_response", fmt.Errorf("malformed request: %w", err))
	}

	amount, err := api.ParseAmount(req.Amount)
	if err != nil {
		return failure("deposit_response", err)
	}

	if err := s.engine.Deposit(req.Account, amount); err != nil {
		return failure("deposit_response", err)
	}

	balance, err := s.engine.Balance(req.Account)
	if err != nil {
		return failure("deposit_response", err)
	}

	return api.DepositResponse{
		Response: api.Response{
			Type:    "deposit_response",
			Success: true,
			Message: fmt.Sprintf("credited %s to %s", req.Amount, req.Account),
		},
		Balance: api.FormatAmount(balance),
	}
}

func (s *Server) handleGetAuction(raw []byte) any {
	var req api.GetAuctionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure("get_auction_response", fmt.Errorf("malformed request: %w", err))
	}

	auction, err := s.engine.GetAuction(req.Epoch)
	if err != nil {
		return failure("get_auction_response", err)
	}

	return api.AuctionResponse{
		Response: api.Response{Type: "get_auction_response", Success: true},
		Auction:  auctionView(auction),
	}
}

func (s *Server) handleGetReputation(raw []byte) any {
	var req api.GetReputationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure("get_reputation_response", fmt.Errorf("malformed request: %w", err))
	}

	rep, err := s.engine.GetReputation(req.Contributor)
	if err != nil {
		return failure("get_reputation_response", err)
	}

	return api.ReputationResponse{
		Response: api.Response{Type: "get_reputation_response", Success: true},
		Reputation: &api.ReputationView{
			Contributor: rep.Contributor,
			Score:       rep.Score,
		},
	}
}

func (s *Server) handleInitMinter(raw []byte) any {
	var req api.InitMinterRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure("init_minter_response", fmt.Errorf("malformed request: %w", err))
	}

	if err := s.engine.InitMinter(req.ItemsAvailable, req.StartTime); err != nil {
		return failure("init_minter_response", err)
	}

	return api.Response{
		Type:    "init_minter_response",
		Success: true,
		Message: fmt.Sprintf("minter armed with %d items", req.ItemsAvailable),
	}
}

func (s *Server) handleRedeem(raw []byte) any {
	var req api.RedeemRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure("redeem_response", fmt.Errorf("malformed request: %w", err))
	}

	mintReceipt, itemRef, err := s.engine.Redeem(req.Claimer)
	if err != nil {
		log.Printf("ERROR: Redeem failed for %s: %v", req.Claimer, err)
		return failure("redeem_response", err)
	}

	return api.RedeemResponse{
		Response: api.Response{
			Type:    "redeem_response",
			Success: true,
			Message: fmt.Sprintf("minted retroactive epoch %d", mintReceipt.MintedEpoch),
		},
		MintedEpoch: mintReceipt.MintedEpoch,
		ItemRef:     itemRef,
	}
}
