package pipeline

import (
	"sync"
	"time"
)

// queue is the handoff between the capture thread and the transcription
// workers: an unbounded FIFO with a non-blocking push. Unbounded is a
// deliberate trade-off — slow transcription grows the queue instead of
// blocking the audio callback or dropping audio.
//
// A nil utterance is the shutdown sentinel; push one per worker.
type queue struct {
	mu    sync.Mutex
	items []*Utterance
	wake  chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

// Push appends u and wakes one waiting consumer. Never blocks.
func (q *queue) Push(u *Utterance) {
	q.mu.Lock()
	q.items = append(q.items, u)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes the oldest item, waiting up to timeout for one to arrive.
// The wake channel collapses concurrent signals, so consumers re-check the
// queue in a loop; a missed wake costs at most one timeout period.
func (q *queue) Pop(timeout time.Duration) (*Utterance, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			u := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return u, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
			return nil, false
		}
	}
}

// Drain discards all queued items and returns how many were dropped.
func (q *queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Len reports the number of queued items.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
