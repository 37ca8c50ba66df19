package scheduler

import (
	"auction-core/internal/models"
	"auction-core/internal/repository"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingCloser counts CloseAndSettle invocations per auction and marks the
// auction closed in the store, the way the settlement service does.
type recordingCloser struct {
	mu    sync.Mutex
	calls map[string]int
	store *repository.MemoryStore
	fail  map[string]error
}

func newRecordingCloser(store *repository.MemoryStore) *recordingCloser {
	return &recordingCloser{
		calls: make(map[string]int),
		store: store,
		fail:  make(map[string]error),
	}
}

func (c *recordingCloser) CloseAndSettle(auctionID string) error {
	c.mu.Lock()
	c.calls[auctionID]++
	failErr := c.fail[auctionID]
	c.mu.Unlock()

	if failErr != nil {
		return failErr
	}

	a, err := c.store.GetAuction(auctionID)
	if err != nil {
		return err
	}
	a.Status = models.AuctionClosed
	return c.store.UpdateAuction(a)
}

func (c *recordingCloser) callCount(auctionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[auctionID]
}

func seedOpenAuction(t *testing.T, store *repository.MemoryStore, auctionID string, deadline time.Time) {
	t.Helper()
	require.NoError(t, store.CreateAuction(models.Auction{
		AuctionID:     auctionID,
		ProductID:     "product-" + auctionID,
		SellerID:      "seller1",
		StartingPrice: 100,
		Deadline:      deadline,
		Status:        models.AuctionOpen,
		CreatedAt:     time.Now().UTC(),
	}))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// A freshly added auction closes once its deadline passes.
func TestScheduler_ClosesAtDeadline(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	closer := newRecordingCloser(store)
	sched := NewScheduler(store, closer)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	seedOpenAuction(t, store, "a1", time.Now().UTC().Add(30*time.Millisecond))
	sched.Add("a1", time.Now().UTC().Add(30*time.Millisecond))

	waitFor(t, 2*time.Second, func() bool { return closer.callCount("a1") == 1 })
}

// Recovery: an Open auction whose deadline passed while the process was down
// is closed on the first sweep after restart.
func TestScheduler_RecoversPastDeadlineOnStart(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	seedOpenAuction(t, store, "overdue", time.Now().UTC().Add(-time.Minute))

	closer := newRecordingCloser(store)
	sched := NewScheduler(store, closer)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	waitFor(t, 2*time.Second, func() bool { return closer.callCount("overdue") == 1 })

	a, err := store.GetAuction("overdue")
	require.NoError(t, err)
	require.Equal(t, models.AuctionClosed, a.Status)
}

// Already-terminal auctions are skipped at fire time without touching the closer.
func TestScheduler_SkipsStaleEntries(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	closer := newRecordingCloser(store)
	sched := NewScheduler(store, closer)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	seedOpenAuction(t, store, "cancelled", time.Now().UTC().Add(30*time.Millisecond))
	sched.Add("cancelled", time.Now().UTC().Add(30*time.Millisecond))

	// Cancel before the deadline fires; the schedule entry goes stale.
	a, err := store.GetAuction("cancelled")
	require.NoError(t, err)
	a.Status = models.AuctionCancelled
	require.NoError(t, store.UpdateAuction(a))

	// Add a sibling auction so we can observe that the sweep ran.
	seedOpenAuction(t, store, "live", time.Now().UTC().Add(40*time.Millisecond))
	sched.Add("live", time.Now().UTC().Add(40*time.Millisecond))

	waitFor(t, 2*time.Second, func() bool { return closer.callCount("live") == 1 })
	require.Equal(t, 0, closer.callCount("cancelled"))
}

// A failure closing one due auction must not prevent the rest of the batch
// from closing.
func TestScheduler_PartialFailureIsolation(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	closer := newRecordingCloser(store)
	closer.fail["bad"] = errors.New("settlement blew up")
	sched := NewScheduler(store, closer)

	past := time.Now().UTC().Add(-time.Second)
	seedOpenAuction(t, store, "bad", past)
	seedOpenAuction(t, store, "good1", past)
	seedOpenAuction(t, store, "good2", past)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return closer.callCount("good1") == 1 && closer.callCount("good2") == 1
	})
	require.Equal(t, 1, closer.callCount("bad"))
}

// The timer re-arms for the next-nearest deadline after each sweep.
func TestScheduler_ReArmsAfterSweep(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	closer := newRecordingCloser(store)
	sched := NewScheduler(store, closer)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	now := time.Now().UTC()
	seedOpenAuction(t, store, "first", now.Add(20*time.Millisecond))
	seedOpenAuction(t, store, "second", now.Add(60*time.Millisecond))
	sched.Add("first", now.Add(20*time.Millisecond))
	sched.Add("second", now.Add(60*time.Millisecond))

	waitFor(t, 2*time.Second, func() bool { return closer.callCount("first") == 1 })
	waitFor(t, 2*time.Second, func() bool { return closer.callCount("second") == 1 })
}

// Stop drains in-flight work and is safe to call after the context is done.
func TestScheduler_StopDrains(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	closer := newRecordingCloser(store)
	sched := NewScheduler(store, closer)

	seedOpenAuction(t, store, "a1", time.Now().UTC().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(ctx))

	waitFor(t, 2*time.Second, func() bool { return closer.callCount("a1") == 1 })

	cancel()
	sched.Stop()

	a, err := store.GetAuction("a1")
	require.NoError(t, err)
	require.Equal(t, models.AuctionClosed, a.Status)
}
