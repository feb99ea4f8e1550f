package service

import "sync"

// roundRobin keeps one rotating cursor per campaign over its account pool.
// Process-local state: losing it on restart costs fairness, not correctness.
type roundRobin struct {
	mu    sync.Mutex
	pools map[string][]string
}

func newRoundRobin() *roundRobin {
	return &roundRobin{pools: make(map[string][]string)}
}

// Next returns the account at the front of the campaign's rotation and moves
// it to the back. The pool is seeded from the campaign options on first use.
func (r *roundRobin) Next(campaignID string, seed []string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[campaignID]
	if !ok {
		pool = make([]string, len(seed))
		copy(pool, seed)
	}
	if len(pool) == 0 {
		return ""
	}

	head := pool[0]
	pool = append(pool[1:], head)
	r.pools[campaignID] = pool
	return head
}
