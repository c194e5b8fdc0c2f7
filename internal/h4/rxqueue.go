package h4

import "github.com/andrewleech/micropython-sub002/internal/hal"

// DefaultRXQueueDepth is the RX queue's default slot count (spec §3: "bounded
// ring of buffer pointers, default 32 slots").
const DefaultRXQueueDepth = 32

// RXQueue is the bounded ring buffer sitting between a transport's
// interrupt-equivalent byte feed and the main pump's dispatch stage. Producer
// and consumer may run from different logical contexts (an ISR-simulated
// callback versus the pump), so every access goes through a spinlock, the
// same discipline the teacher applies to its DMA descriptor rings.
//
// Overflow policy (spec §3): when the ring is full, Enqueue drops the buffer
// and increments Dropped rather than blocking or growing the ring — an ISR
// context must never block waiting on the pump.
type RXQueue struct {
	lock hal.Spinlock

	slots []*Buffer
	head  int // next slot to Dequeue
	tail  int // next slot to Enqueue
	count int

	Dropped uint32
}

// NewRXQueue creates a queue with the given slot capacity. A capacity <= 0
// uses DefaultRXQueueDepth.
func NewRXQueue(capacity int) *RXQueue {
	if capacity <= 0 {
		capacity = DefaultRXQueueDepth
	}
	return &RXQueue{slots: make([]*Buffer, capacity)}
}

// Enqueue adds a completed packet buffer to the ring. It returns false and
// releases buf if the ring is full, after incrementing Dropped.
func (q *RXQueue) Enqueue(buf *Buffer) bool {
	key := q.lock.Lock()
	defer q.lock.Unlock(key)

	if q.count == len(q.slots) {
		q.Dropped++
		buf.Release()
		return false
	}

	q.slots[q.tail] = buf
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	return true
}

// Dequeue removes and returns the oldest buffered packet, or nil, false if
// the ring is empty.
func (q *RXQueue) Dequeue() (*Buffer, bool) {
	key := q.lock.Lock()
	defer q.lock.Unlock(key)

	if q.count == 0 {
		return nil, false
	}

	buf := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	return buf, true
}

// Len returns the number of buffered packets currently queued.
func (q *RXQueue) Len() int {
	key := q.lock.Lock()
	defer q.lock.Unlock(key)
	return q.count
}

// DrainBatch dequeues up to max buffers in FIFO order, for the dispatcher to
// then priority-sort (spec §4.7). Returns fewer than max if the queue empties
// first.
func (q *RXQueue) DrainBatch(max int) []*Buffer {
	out := make([]*Buffer, 0, max)
	for i := 0; i < max; i++ {
		buf, ok := q.Dequeue()
		if !ok {
			break
		}
		out = append(out, buf)
	}
	return out
}
