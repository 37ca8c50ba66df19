package scheduler

import (
	"auction-core/internal/models"
	"auction-core/internal/repository"
	"auction-core/utils"
	"container/heap"
	"context"
	"sync"
	"time"
)

// AuctionCloser drives one due auction to its terminal state. Implemented by
// the settlement service; must be safe to invoke repeatedly for the same id.
type AuctionCloser interface {
	CloseAndSettle(auctionID string) error
}

// parkInterval bounds how long the loop sleeps when the queue is empty.
const parkInterval = time.Minute

type entry struct {
	deadline  time.Time
	auctionID string
}

// deadlineHeap is a min-heap ordered by deadline, earliest first.
type deadlineHeap []entry

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x interface{}) { *h = append(*h, x.(entry)) }
func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Scheduler maintains a time-ordered queue of auction deadlines and wakes a
// single background goroutine at the nearest one. Each sweep pops every due
// auction and closes it in its own goroutine, so one slow or failing auction
// never stalls the rest of the batch or the timer loop.
type Scheduler struct {
	mu     sync.Mutex
	queue  deadlineHeap
	wake   chan struct{}
	store  repository.AuctionStore
	closer AuctionCloser
	now    func() time.Time

	cancel   context.CancelFunc
	done     chan struct{}
	inFlight sync.WaitGroup // in-flight close/settle work
}

// NewScheduler creates a scheduler over the given store and closer
func NewScheduler(store repository.AuctionStore, closer AuctionCloser) *Scheduler {
	return &Scheduler{
		wake:   make(chan struct{}, 1),
		store:  store,
		closer: closer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the time source. Intended for tests only.
func (s *Scheduler) SetNow(now func() time.Time) {
	s.now = now
}

// Start reloads every Open auction from the store and launches the timer
// loop. Auctions whose deadline already passed while the process was down are
// due immediately and close on the first sweep.
func (s *Scheduler) Start(ctx context.Context) error {
	open, err := s.store.ListOpenAuctions()
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, a := range open {
		heap.Push(&s.queue, entry{deadline: a.Deadline, auctionID: a.AuctionID})
	}
	pending := s.queue.Len()
	s.mu.Unlock()

	utils.Info("scheduler started", map[string]any{"pending_deadlines": pending})

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx)
	return nil
}

// Stop halts the timer loop and waits for in-flight settlements to drain
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.inFlight.Wait()
	utils.Info("scheduler stopped", nil)
}

// Add enqueues a deadline for a newly created auction, re-arming the timer
// when the new entry is the nearest.
func (s *Scheduler) Add(auctionID string, deadline time.Time) {
	s.mu.Lock()
	heap.Push(&s.queue, entry{deadline: deadline, auctionID: auctionID})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(parkInterval)
	defer timer.Stop()

	for {
		wait := s.untilNext()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			// New nearest deadline may have arrived; recompute.
		case <-timer.C:
			s.sweep()
		}
	}
}

// untilNext returns the time until the nearest deadline, or the park
// interval when the queue is empty. A past deadline yields an immediate fire.
func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return parkInterval
	}
	wait := s.queue[0].deadline.Sub(s.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// sweep pops every due entry and drives each auction to close in its own
// goroutine. Stale entries (auctions already cancelled or closed) are skipped
// after a status recheck; a failure on one auction is logged and the rest of
// the batch proceeds.
func (s *Scheduler) sweep() {
	now := s.now()

	s.mu.Lock()
	var due []entry
	for s.queue.Len() > 0 && !s.queue[0].deadline.After(now) {
		due = append(due, heap.Pop(&s.queue).(entry))
	}
	s.mu.Unlock()

	for _, e := range due {
		s.inFlight.Add(1)
		go func(e entry) {
			defer s.inFlight.Done()
			s.closeDue(e.auctionID)
		}(e)
	}
}

func (s *Scheduler) closeDue(auctionID string) {
	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		utils.Error("scheduler: failed to load due auction", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}
	if auction.Status != models.AuctionOpen {
		// Stale schedule entry; the auction was cancelled or closed early.
		return
	}

	if err := s.closer.CloseAndSettle(auctionID); err != nil {
		utils.Error("scheduler: failed to close due auction", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	utils.Info("scheduler: auction closed at deadline", map[string]any{
		"auction_id": auctionID,
	})
}
