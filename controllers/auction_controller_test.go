package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/gavelhub/gavel/auctionerrors"
	"github.com/gavelhub/gavel/middleware"
	"github.com/gavelhub/gavel/models"
	"github.com/gavelhub/gavel/services"
)

func TestMain(m *testing.M) {
	// config.Load refuses to run without a JWT secret; the cache helpers
	// reach for it when bids invalidate the browse lists.
	os.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeStore implements services.ListingStore for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	listings map[uint]*models.Listing
	bids     map[uint]models.Bid
	watchers map[uint]map[uint]struct{}
	nextBid  uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings: map[uint]*models.Listing{},
		bids:     map[uint]models.Bid{},
		watchers: map[uint]map[uint]struct{}{},
	}
}

func (f *fakeStore) addListing(id, ownerID uint, ask float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextBid++
	bidID := f.nextBid
	f.bids[bidID] = models.Bid{ID: bidID, Amount: ask, UserID: ownerID}
	f.listings[id] = &models.Listing{ID: id, Title: "test listing", Active: true, OwnerID: ownerID, CurrentBidID: &bidID}
	f.watchers[id] = map[uint]struct{}{}
}

func (f *fakeStore) GetListing(id uint) (models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return models.Listing{}, auctionerrors.ErrListingNotFound
	}
	out := *l
	if l.CurrentBidID != nil {
		bid := f.bids[*l.CurrentBidID]
		out.CurrentBid = &bid
	}
	return out, nil
}

func (f *fakeStore) ReplaceCurrentBid(listingID uint, prevBidID *uint, bid *models.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok {
		return auctionerrors.ErrListingNotFound
	}
	if !l.Active {
		return auctionerrors.ErrBidConflict
	}
	if l.CurrentBidID != nil && prevBidID != nil && *l.CurrentBidID != *prevBidID {
		return auctionerrors.ErrBidConflict
	}
	f.nextBid++
	bid.ID = f.nextBid
	f.bids[bid.ID] = *bid
	id := bid.ID
	l.CurrentBidID = &id
	return nil
}

func (f *fakeStore) MarkClosed(listingID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok {
		return auctionerrors.ErrListingNotFound
	}
	l.Active = false
	return nil
}

func (f *fakeStore) AddWatcher(listingID, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.watchers[listingID]
	if !ok {
		return auctionerrors.ErrListingNotFound
	}
	set[userID] = struct{}{}
	return nil
}

func (f *fakeStore) RemoveWatcher(listingID, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.watchers[listingID]
	if !ok {
		return auctionerrors.ErrListingNotFound
	}
	delete(set, userID)
	return nil
}

// newAuctionRouter wires the auction endpoints behind a stub identity.
func newAuctionRouter(store *fakeStore, userID uint, policy services.Policy) *gin.Engine {
	svc := services.NewAuctionService(store, policy)
	ctrl := NewAuctionController(svc)

	r := gin.New()
	identity := func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, userID)
		ctx.Next()
	}
	r.POST("/api/v1/listings/:id/bids", identity, ctrl.PlaceBid)
	r.POST("/api/v1/listings/:id/close", identity, ctrl.CloseAuction)
	r.POST("/api/v1/listings/:id/watch", identity, ctrl.Watch)
	r.DELETE("/api/v1/listings/:id/watch", identity, ctrl.Unwatch)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func TestPlaceBidHandler(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(s *fakeStore)
		policy         services.Policy
		path           string
		body           any
		expectedStatus int
		expectedCode   float64
	}{
		{
			name:           "accepted",
			setup:          func(s *fakeStore) { s.addListing(1, 1, 10) },
			path:           "/api/v1/listings/1/bids",
			body:           gin.H{"amount": 15},
			expectedStatus: http.StatusOK,
			expectedCode:   0,
		},
		{
			name:           "tie_rejected",
			setup:          func(s *fakeStore) { s.addListing(1, 1, 10) },
			path:           "/api/v1/listings/1/bids",
			body:           gin.H{"amount": 10},
			expectedStatus: http.StatusConflict,
			expectedCode:   40910,
		},
		{
			name: "closed_rejected",
			setup: func(s *fakeStore) {
				s.addListing(1, 1, 10)
				_ = s.MarkClosed(1)
			},
			path:           "/api/v1/listings/1/bids",
			body:           gin.H{"amount": 1000},
			expectedStatus: http.StatusConflict,
			expectedCode:   40912,
		},
		{
			name:           "negative_amount",
			setup:          func(s *fakeStore) { s.addListing(1, 1, 10) },
			path:           "/api/v1/listings/1/bids",
			body:           gin.H{"amount": -1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   40051,
		},
		{
			name:           "listing_not_found",
			setup:          func(s *fakeStore) {},
			path:           "/api/v1/listings/42/bids",
			body:           gin.H{"amount": 15},
			expectedStatus: http.StatusNotFound,
			expectedCode:   40440,
		},
		{
			name:           "bad_listing_id",
			setup:          func(s *fakeStore) {},
			path:           "/api/v1/listings/abc/bids",
			body:           gin.H{"amount": 15},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   40040,
		},
		{
			name:           "owner_bid_denied_by_policy",
			setup:          func(s *fakeStore) { s.addListing(1, 2, 10) },
			policy:         services.Policy{DenyOwnerBid: true},
			path:           "/api/v1/listings/1/bids",
			body:           gin.H{"amount": 15},
			expectedStatus: http.StatusForbidden,
			expectedCode:   40310,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			tc.setup(store)
			router := newAuctionRouter(store, 2, tc.policy)

			w, parsed := doJSON(t, router, http.MethodPost, tc.path, tc.body)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedCode, parsed["code"])
		})
	}
}

func TestPlaceBidHandler_UpdatesPrice(t *testing.T) {
	store := newFakeStore()
	store.addListing(1, 1, 10)
	router := newAuctionRouter(store, 2, services.Policy{})

	w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/listings/1/bids", gin.H{"amount": 15})
	require.Equal(t, http.StatusOK, w.Code)

	data := parsed["data"].(map[string]any)
	listing := data["listing"].(map[string]any)
	current := listing["current_bid"].(map[string]any)
	require.Equal(t, 15.0, current["amount"])
	require.Equal(t, 2.0, current["user_id"])
}

func TestPlaceBidHandler_RejectionCarriesPrice(t *testing.T) {
	store := newFakeStore()
	store.addListing(1, 1, 10)
	router := newAuctionRouter(store, 2, services.Policy{})

	w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/listings/1/bids", gin.H{"amount": 10})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, 40910.0, parsed["code"])

	// The bidder learns what the rejected amount failed to beat.
	data, ok := parsed["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 10.0, data["current_price"])
}

func TestCloseAuctionHandler(t *testing.T) {
	store := newFakeStore()
	store.addListing(1, 1, 10)
	router := newAuctionRouter(store, 2, services.Policy{})

	// Raise the price first so the final price is a real bid.
	_, _ = doJSON(t, router, http.MethodPost, "/api/v1/listings/1/bids", gin.H{"amount": 20})

	closedBefore := testutil.ToFloat64(middleware.AuctionsClosed)

	w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/listings/1/close", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := parsed["data"].(map[string]any)
	require.Equal(t, 20.0, data["final_price"])
	listing := data["listing"].(map[string]any)
	require.Equal(t, false, listing["active"])

	// Closing again is a no-op returning the same frozen state.
	w, parsed = doJSON(t, router, http.MethodPost, "/api/v1/listings/1/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = parsed["data"].(map[string]any)
	require.Equal(t, 20.0, data["final_price"])

	// Only the real open-to-closed transition is counted.
	require.Equal(t, closedBefore+1, testutil.ToFloat64(middleware.AuctionsClosed))

	// A later bid of any size is rejected.
	w, parsed = doJSON(t, router, http.MethodPost, "/api/v1/listings/1/bids", gin.H{"amount": 1000})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, 40912.0, parsed["code"])
}

func TestCloseAuctionHandler_OwnerOnlyPolicy(t *testing.T) {
	store := newFakeStore()
	store.addListing(1, 1, 10)
	router := newAuctionRouter(store, 2, services.Policy{OwnerOnlyClose: true})

	w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/listings/1/close", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, 40311.0, parsed["code"])
}

func TestWatchHandlers(t *testing.T) {
	store := newFakeStore()
	store.addListing(1, 1, 10)
	router := newAuctionRouter(store, 2, services.Policy{})

	// Watch twice, membership stays at one.
	for i := 0; i < 2; i++ {
		w, _ := doJSON(t, router, http.MethodPost, "/api/v1/listings/1/watch", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	require.Len(t, store.watchers[1], 1)

	// Unwatch twice, second call still succeeds.
	for i := 0; i < 2; i++ {
		w, _ := doJSON(t, router, http.MethodDelete, "/api/v1/listings/1/watch", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	require.Len(t, store.watchers[1], 0)

	w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/listings/99/watch", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 40440.0, parsed["code"])
}
