package integrationtests

import (
	auction "auction-core/internal/auctionService"
	"auction-core/internal/keyedlock"
	"auction-core/internal/ledger"
	model "auction-core/internal/models"
	"auction-core/internal/repository"
	"auction-core/internal/scheduler"
	"auction-core/internal/server"
	settlement "auction-core/internal/settlementService"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// testEnv wires the full settlement core over the in-memory store for
// end-to-end API testing.
type testEnv struct {
	Router     *gin.Engine
	Store      *repository.MemoryStore
	Ledger     *ledger.CreditLedger
	Auctions   *auction.Service
	Settlement *settlement.Service
	Scheduler  *scheduler.Scheduler
}

// SetupTestEnv initializes the services and router with seeded card accounts.
func SetupTestEnv(t *testing.T, cards ...model.CreditCardAccount) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	creditLedger := ledger.NewCreditLedger()
	for _, card := range cards {
		require.NoError(t, creditLedger.Register(card))
	}

	locks := keyedlock.NewTable()
	auctions := auction.NewService(store, locks)
	settlementSvc := settlement.NewService(store, creditLedger, auctions, locks)

	sched := scheduler.NewScheduler(store, settlementSvc)
	auctions.OnSchedule(sched.Add)

	return &testEnv{
		Router:     server.SetupRouter(auctions, settlementSvc),
		Store:      store,
		Ledger:     creditLedger,
		Auctions:   auctions,
		Settlement: settlementSvc,
		Scheduler:  sched,
	}
}

func card(ownerID string, balance float64) model.CreditCardAccount {
	return model.CreditCardAccount{
		Number:  "4532-" + ownerID,
		OwnerID: ownerID,
		Balance: balance,
		Expiry:  "12/27",
	}
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses the response
func (env *testEnv) ExecuteRequestAndParse(t *testing.T, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	env.Router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return resp, w
}

// data unwraps the data envelope of a successful response
func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return d
}
