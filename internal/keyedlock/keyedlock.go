package keyedlock

import "sync"

// Table provides a mutex per key. The auction id is the unit of
// serialization: bid admission, close, cancel and settle for one auction all
// take its lock, while different auctions proceed in parallel.
type Table struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTable creates an empty lock table
func NewTable() *Table {
	return &Table{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use
func (t *Table) Lock(key string) {
	t.mu.Lock()
	m, ok := t.locks[key]
	if !ok {
		m = &sync.Mutex{}
		t.locks[key] = m
	}
	t.mu.Unlock()

	m.Lock()
}

// Unlock releases the mutex for key. Must follow a matching Lock.
func (t *Table) Unlock(key string) {
	t.mu.Lock()
	m := t.locks[key]
	t.mu.Unlock()

	m.Unlock()
}
