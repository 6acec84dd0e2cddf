package pipeline

import (
	"sync/atomic"
	"time"
)

// BlockQueue is the backpressure boundary between the real-time
// capture producer and the chunk worker. Push never blocks; when the
// queue is full the incoming block is dropped and counted. Pop blocks
// up to a short timeout so the consumer can check the stop signal
// without busy-waiting.
type BlockQueue struct {
	blocks  chan []float32
	dropped atomic.Uint64
}

// NewBlockQueue creates a queue with the given fixed capacity
func NewBlockQueue(capacity int) *BlockQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &BlockQueue{
		blocks: make(chan []float32, capacity),
	}
}

// Push enqueues a block without blocking. Returns false if the queue
// is full and the block was dropped.
func (q *BlockQueue) Push(block []float32) bool {
	select {
	case q.blocks <- block:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop dequeues a block, waiting up to timeout. Returns false if no
// block arrived within the timeout.
func (q *BlockQueue) Pop(timeout time.Duration) ([]float32, bool) {
	select {
	case block := <-q.blocks:
		return block, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case block := <-q.blocks:
		return block, true
	case <-timer.C:
		return nil, false
	}
}

// TryPop dequeues a block without waiting
func (q *BlockQueue) TryPop() ([]float32, bool) {
	select {
	case block := <-q.blocks:
		return block, true
	default:
		return nil, false
	}
}

// Len returns the number of queued blocks
func (q *BlockQueue) Len() int {
	return len(q.blocks)
}

// Dropped returns the number of blocks lost to a full queue
func (q *BlockQueue) Dropped() uint64 {
	return q.dropped.Load()
}
