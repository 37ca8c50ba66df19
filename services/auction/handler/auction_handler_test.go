package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-core/internal/auctionerrors"
	model "auction-core/internal/models"
	"auction-core/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*MockAuctionServiceInterface, *MockSettlementServiceInterface, *gin.Engine) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockAuctions := NewMockAuctionServiceInterface(ctrl)
	mockSettlement := NewMockSettlementServiceInterface(ctrl)
	h := NewAuctionHandler(mockAuctions, mockSettlement)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bids", h.PlaceBidHandler)
	router.POST("/auctions", h.CreateAuctionHandler)
	router.GET("/auctions/:auction_id", h.GetAuctionHandler)
	router.POST("/auctions/:auction_id/close", h.CloseAuctionHandler)
	router.POST("/auctions/:auction_id/cancel", h.CancelAuctionHandler)
	router.POST("/escrows/pay", h.PayHandler)
	router.PUT("/escrows/:escrow_id/release", h.ReleaseEscrowHandler)
	router.PUT("/escrows/:escrow_id/refund", h.RefundEscrowHandler)
	router.GET("/escrows/held", h.GetHeldEscrowsHandler)

	return mockAuctions, mockSettlement, router
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func(mockAuctions *MockAuctionServiceInterface)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success_valid_bid",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "a1",
				BidderID:  "user1",
				Amount:    150,
			},
			mockSetup: func(mockAuctions *MockAuctionServiceInterface) {
				mockAuctions.EXPECT().
					PlaceBid("a1", "user1", 150.0).
					Return(model.Bid{
						BidID:          uuid.NewString(),
						AuctionID:      "a1",
						BidderID:       "user1",
						Amount:         150.0,
						SequenceNumber: 1,
						PlacedAt:       now,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid accepted successfully",
		},
		{
			name:           "invalid_json",
			requestBody:    "{auction_id: 'missing quotes'}",
			mockSetup:      func(*MockAuctionServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "stale_bid_conflict",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "a1",
				BidderID:  "user2",
				Amount:    140,
			},
			mockSetup: func(mockAuctions *MockAuctionServiceInterface) {
				mockAuctions.EXPECT().
					PlaceBid("a1", "user2", 140.0).
					Return(model.Bid{}, auctionerrors.ErrStaleBid)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "bid must exceed current high bid",
		},
		{
			name: "auction_not_open_conflict",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "a1",
				BidderID:  "user2",
				Amount:    300,
			},
			mockSetup: func(mockAuctions *MockAuctionServiceInterface) {
				mockAuctions.EXPECT().
					PlaceBid("a1", "user2", 300.0).
					Return(model.Bid{}, auctionerrors.ErrAuctionNotOpen)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction is not open for bidding",
		},
		{
			name: "unknown_auction",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "ghost",
				BidderID:  "user1",
				Amount:    150,
			},
			mockSetup: func(mockAuctions *MockAuctionServiceInterface) {
				mockAuctions.EXPECT().
					PlaceBid("ghost", "user1", 150.0).
					Return(model.Bid{}, auctionerrors.ErrAuctionNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
		{
			name: "internal_error_is_generic",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "a1",
				BidderID:  "user1",
				Amount:    150,
			},
			mockSetup: func(mockAuctions *MockAuctionServiceInterface) {
				mockAuctions.EXPECT().
					PlaceBid("a1", "user1", 150.0).
					Return(model.Bid{}, errors.New("store corrupted"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockAuctions, _, router := setupHandlerTest(t)
			tc.mockSetup(mockAuctions)

			w, resp := doJSON(t, router, http.MethodPost, "/bids", tc.requestBody)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedMsg, resp["message"])

			if tc.expectedStatus == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.Equal(t, "a1", data["auction_id"])
				require.Equal(t, 150.0, data["amount"])
				require.NotEmpty(t, data["bid_id"])
			}

			if tc.expectedStatus == http.StatusInternalServerError {
				// The raw internal fault must never reach the caller.
				require.NotContains(t, resp["error"], "store corrupted")
			}
		})
	}
}

// Test CreateAuctionHandler
func TestCreateAuctionHandler(t *testing.T) {
	deadline := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	t.Run("success", func(t *testing.T) {
		mockAuctions, _, router := setupHandlerTest(t)
		mockAuctions.EXPECT().
			CreateAuction("product1", "seller1", 100.0, gomock.Any()).
			Return(model.Auction{
				AuctionID:     uuid.NewString(),
				ProductID:     "product1",
				SellerID:      "seller1",
				StartingPrice: 100,
				Deadline:      deadline,
				Status:        model.AuctionOpen,
			}, nil)

		w, resp := doJSON(t, router, http.MethodPost, "/auctions", helpers.CreateAuctionRequest{
			ProductID:     "product1",
			SellerID:      "seller1",
			StartingPrice: 100,
			Deadline:      deadline,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		data := resp["data"].(map[string]any)
		require.Equal(t, "product1", data["product_id"])
		require.Equal(t, string(model.AuctionOpen), data["status"])
	})

	t.Run("missing_fields", func(t *testing.T) {
		_, _, router := setupHandlerTest(t)
		w, _ := doJSON(t, router, http.MethodPost, "/auctions", map[string]any{"product_id": "p1"})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// Test CloseAuctionHandler
func TestCloseAuctionHandler(t *testing.T) {
	t.Run("close_settles_and_returns_snapshot", func(t *testing.T) {
		mockAuctions, mockSettlement, router := setupHandlerTest(t)
		mockSettlement.EXPECT().CloseAndSettle("a1").Return(nil)
		mockAuctions.EXPECT().GetAuction("a1").Return(model.Auction{
			AuctionID:    "a1",
			Status:       model.AuctionClosed,
			WinningBidID: "bid9",
		}, nil)

		w, resp := doJSON(t, router, http.MethodPost, "/auctions/a1/close", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := resp["data"].(map[string]any)
		require.Equal(t, string(model.AuctionClosed), data["status"])
		require.Equal(t, "bid9", data["winning_bid_id"])
	})

	t.Run("unknown_auction", func(t *testing.T) {
		_, mockSettlement, router := setupHandlerTest(t)
		mockSettlement.EXPECT().CloseAndSettle("ghost").Return(auctionerrors.ErrAuctionNotFound)

		w, _ := doJSON(t, router, http.MethodPost, "/auctions/ghost/close", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

// Test CancelAuctionHandler
func TestCancelAuctionHandler(t *testing.T) {
	t.Run("cancel_after_close_conflicts", func(t *testing.T) {
		mockAuctions, _, router := setupHandlerTest(t)
		mockAuctions.EXPECT().Cancel("a1").Return(model.Auction{}, auctionerrors.ErrInvalidTransition)

		w, resp := doJSON(t, router, http.MethodPost, "/auctions/a1/cancel", nil)
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "invalid auction state transition", resp["message"])
	})
}

// Test escrow handlers
func TestEscrowHandlers(t *testing.T) {
	t.Run("release_success", func(t *testing.T) {
		_, mockSettlement, router := setupHandlerTest(t)
		mockSettlement.EXPECT().Release("e1").Return(model.EscrowAccount{
			EscrowID: "e1",
			PayeeID:  "seller1",
			Amount:   200,
			State:    model.EscrowReleased,
		}, nil)

		w, resp := doJSON(t, router, http.MethodPut, "/escrows/e1/release", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := resp["data"].(map[string]any)
		require.Equal(t, string(model.EscrowReleased), data["state"])
		require.Equal(t, 200.0, data["amount"])
	})

	t.Run("second_release_conflicts", func(t *testing.T) {
		_, mockSettlement, router := setupHandlerTest(t)
		mockSettlement.EXPECT().Release("e1").Return(model.EscrowAccount{}, auctionerrors.ErrAlreadyResolved)

		w, resp := doJSON(t, router, http.MethodPut, "/escrows/e1/release", nil)
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "escrow already released or refunded", resp["message"])
	})

	t.Run("refund_success", func(t *testing.T) {
		_, mockSettlement, router := setupHandlerTest(t)
		mockSettlement.EXPECT().Refund("e1").Return(model.EscrowAccount{
			EscrowID: "e1",
			PayerID:  "user1",
			Amount:   150,
			State:    model.EscrowRefunded,
		}, nil)

		w, resp := doJSON(t, router, http.MethodPut, "/escrows/e1/refund", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := resp["data"].(map[string]any)
		require.Equal(t, string(model.EscrowRefunded), data["state"])
	})

	t.Run("pay_insufficient_funds", func(t *testing.T) {
		_, mockSettlement, router := setupHandlerTest(t)
		mockSettlement.EXPECT().
			Pay("buyer1", "seller1", "product1", 500.0).
			Return(model.Order{}, auctionerrors.ErrInsufficientFunds)

		w, resp := doJSON(t, router, http.MethodPost, "/escrows/pay", helpers.PayRequest{
			BuyerID:   "buyer1",
			SellerID:  "seller1",
			ProductID: "product1",
			Amount:    500,
		})
		require.Equal(t, http.StatusPaymentRequired, w.Code)
		require.Equal(t, "insufficient funds", resp["message"])
	})

	t.Run("held_listing", func(t *testing.T) {
		_, mockSettlement, router := setupHandlerTest(t)
		mockSettlement.EXPECT().HeldEscrows().Return([]model.EscrowAccount{
			{EscrowID: "e1", State: model.EscrowHeld, Amount: 100},
			{EscrowID: "e2", State: model.EscrowHeld, Amount: 250},
		}, nil)

		w, resp := doJSON(t, router, http.MethodGet, "/escrows/held", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, resp["data"], 2)
	})
}
