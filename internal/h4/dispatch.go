package h4

// DefaultBatchSize is the dispatcher's default drain size (spec §4.7: "a
// batch (<= batch size, e.g. 16)").
const DefaultBatchSize = 16

// HCI event codes the priority sort cares about. These are the standard
// Bluetooth Core event codes, not something the retrieved examples define;
// recorded in DESIGN.md as a standard-library-equivalent case (well-known
// protocol constants, not a library concern).
const (
	eventDisconnectionComplete = 0x05
	eventLEMeta                = 0x3e
	leSubConnectionComplete    = 0x01
	leSubEnhancedConnComplete  = 0x0a
)

// rank classifies a buffer for the priority sort (spec §4.7): connection-setup
// events sort before ordinary events, which sort before teardown events, for
// buffers sharing the same connection handle. Buffers with no recognizable
// handle (or with a different handle) are left in their relative FIFO order
// by the stable insertion sort.
func rank(buf *Buffer) (handle uint16, group int, hasHandle bool) {
	switch buf.Type {
	case TypeEvt:
		if len(buf.Data) < 2 {
			return 0, 1, false
		}
		code := buf.Data[0]
		switch {
		case code == eventDisconnectionComplete && len(buf.Data) >= 5:
			// Disconnection Complete: [code][len][status][handle_lo][handle_hi]...
			h := uint16(buf.Data[3]) | uint16(buf.Data[4])<<8
			return h & 0x0fff, 2, true
		case code == eventLEMeta && len(buf.Data) >= 6:
			sub := buf.Data[2]
			if sub == leSubConnectionComplete || sub == leSubEnhancedConnComplete {
				// LE (Enhanced) Connection Complete: [0x3e][len][sub][status][handle_lo][handle_hi]...
				h := uint16(buf.Data[4]) | uint16(buf.Data[5])<<8
				return h & 0x0fff, 0, true
			}
		}
		return 0, 1, false
	case TypeACL, TypeISO:
		if len(buf.Data) < 2 {
			return 0, 1, false
		}
		return ConnHandle(buf.Data), 1, true
	default:
		return 0, 1, false
	}
}

// PrioritySort reorders batch in place per spec §4.7: within buffers sharing
// a connection handle, connection-setup events precede ordinary traffic,
// which precedes teardown events. Buffers with no recognizable handle, or
// belonging to different handles, retain their relative order — the
// insertion sort only swaps past strictly-lower-ranked same-handle buffers,
// which is what keeps unrelated events stable (spec §8 invariant 5).
func PrioritySort(batch []*Buffer) {
	for i := 1; i < len(batch); i++ {
		j := i
		for j > 0 {
			hb, gb, okb := rank(batch[j])
			ha, ga, oka := rank(batch[j-1])
			if !okb || !oka || ha != hb || ga <= gb {
				break
			}
			batch[j-1], batch[j] = batch[j], batch[j-1]
			j--
		}
	}
}

// Dispatcher drains an RXQueue in batches, priority-sorts each batch, and
// hands every buffer to deliver in order. deliver is the host's installed
// receive callback (spec §4.7's "hand each buffer to the host recv_cb").
type Dispatcher struct {
	queue   *RXQueue
	deliver func(*Buffer)
	batch   int
}

// NewDispatcher creates a Dispatcher draining queue in batches of at most
// batchSize (DefaultBatchSize if <= 0), handing each buffer to deliver.
func NewDispatcher(queue *RXQueue, deliver func(*Buffer), batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{queue: queue, deliver: deliver, batch: batchSize}
}

// Pump drains and delivers one batch. It returns the number of buffers
// delivered; callers loop calling Pump until it returns 0 to fully drain a
// burst larger than one batch.
func (d *Dispatcher) Pump() int {
	buffers := d.queue.DrainBatch(d.batch)
	if len(buffers) == 0 {
		return 0
	}

	PrioritySort(buffers)

	for _, buf := range buffers {
		d.deliver(buf)
	}

	return len(buffers)
}
