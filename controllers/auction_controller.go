package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gavelhub/gavel/auctionerrors"
	"github.com/gavelhub/gavel/middleware"
	"github.com/gavelhub/gavel/services"
	"github.com/gavelhub/gavel/utils"
)

// AuctionController exposes the bidding engine and lifecycle controller over HTTP.
type AuctionController struct {
	svc *services.AuctionService
}

// NewAuctionController creates an AuctionController.
func NewAuctionController(svc *services.AuctionService) *AuctionController {
	return &AuctionController{svc: svc}
}

// PlaceBid validates and applies a bid on a listing.
func (a *AuctionController) PlaceBid(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid listing id")
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	listing, err := a.svc.PlaceBid(id, userID, req.Amount)
	if err != nil {
		countBidRejection(err)
		respondAuctionError(ctx, err)
		return
	}

	middleware.BidsAccepted.Inc()
	invalidateListingCaches()
	utils.Success(ctx, gin.H{
		"listing": listing,
		"message": "bid accepted",
	})
}

// CloseAuction freezes a listing's final price and winner. Re-closing an
// already closed listing answers with the same frozen state.
func (a *AuctionController) CloseAuction(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid listing id")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	listing, transitioned, err := a.svc.CloseAuction(id, userID)
	if err != nil {
		respondAuctionError(ctx, err)
		return
	}

	// Re-closing is a no-op: nothing changed, so neither the transition
	// counter nor the cache moves.
	if transitioned {
		middleware.AuctionsClosed.Inc()
		invalidateListingCaches()
	}

	payload := gin.H{"listing": listing, "message": "auction closed"}
	if listing.CurrentBid != nil {
		payload["winner"] = listing.CurrentBid.User.Username
		payload["final_price"] = listing.CurrentBid.Amount
	}
	utils.Success(ctx, payload)
}

// Watch adds the listing to the caller's watchlist.
func (a *AuctionController) Watch(ctx *gin.Context) {
	a.mutateWatch(ctx, a.svc.Watch, "added to watchlist")
}

// Unwatch removes the listing from the caller's watchlist.
func (a *AuctionController) Unwatch(ctx *gin.Context) {
	a.mutateWatch(ctx, a.svc.Unwatch, "removed from watchlist")
}

func (a *AuctionController) mutateWatch(ctx *gin.Context, op func(listingID, userID uint) error, message string) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid listing id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}
	if err := op(id, userID); err != nil {
		respondAuctionError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": message})
}

// respondAuctionError maps domain errors onto the response taxonomy.
// Rejections render as user-visible messages, not generic failures.
func respondAuctionError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, auctionerrors.ErrListingNotFound):
		utils.Error(ctx, http.StatusNotFound, 40440, "listing not found")
	case errors.Is(err, auctionerrors.ErrCategoryNotFound):
		utils.Error(ctx, http.StatusNotFound, 40430, "category not found")
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		utils.Error(ctx, http.StatusBadRequest, 40051, "bid must be a non-negative number")
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		// The rejection tells the bidder what to beat.
		var tooLow *auctionerrors.BidTooLowError
		if errors.As(err, &tooLow) {
			utils.Respond(ctx, http.StatusConflict, 40910, "bid must exceed the current price",
				gin.H{"current_price": tooLow.CurrentPrice})
			return
		}
		utils.Error(ctx, http.StatusConflict, 40910, "bid must exceed the current price")
	case errors.Is(err, auctionerrors.ErrBidConflict):
		utils.Error(ctx, http.StatusConflict, 40911, "listing price changed, retry your bid")
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		utils.Error(ctx, http.StatusConflict, 40912, "auction is closed")
	case errors.Is(err, auctionerrors.ErrOwnerBid):
		utils.Error(ctx, http.StatusForbidden, 40310, "owners may not bid on their own listing")
	case errors.Is(err, auctionerrors.ErrNotOwner):
		utils.Error(ctx, http.StatusForbidden, 40311, "only the owner may close this auction")
	default:
		if utils.Sugar != nil {
			utils.Sugar.Errorf("auction operation failed: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50040, "operation failed")
	}
}

func countBidRejection(err error) {
	switch {
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		middleware.BidsRejected.WithLabelValues("too_low").Inc()
	case errors.Is(err, auctionerrors.ErrBidConflict):
		middleware.BidsRejected.WithLabelValues("conflict").Inc()
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		middleware.BidsRejected.WithLabelValues("closed").Inc()
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		middleware.BidsRejected.WithLabelValues("invalid").Inc()
	case errors.Is(err, auctionerrors.ErrOwnerBid):
		middleware.BidsRejected.WithLabelValues("owner").Inc()
	}
}
