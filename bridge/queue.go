package bridge

import "sync"

// commandQueue is an unbounded multi-producer single-consumer FIFO. There is
// no backpressure: push never blocks, and a producer that never awaits its
// response leaks one queued command at worst, never the worker.
type commandQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []command
	closed bool
}

func newCommandQueue() *commandQueue {
	q := &commandQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends cmd in send order. Returns false once the queue stopped
// accepting commands.
func (q *commandQueue) push(cmd command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, cmd)
	q.cond.Signal()
	return true
}

// pop blocks until a command is available. Returns false when the queue is
// closed and empty.
func (q *commandQueue) pop() (command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	cmd := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return cmd, true
}

// close stops accepting commands. Items already queued stay poppable.
func (q *commandQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// drain removes and returns everything still queued.
func (q *commandQueue) drain() []command {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
