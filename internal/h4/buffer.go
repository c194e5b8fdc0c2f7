package h4

import "github.com/andrewleech/micropython-sub002/internal/hal"

// Buffer is a parsed H:4 packet, header and payload concatenated exactly as
// received (minus the leading type byte, which the caller already consumed
// to pick the pool — see spec §9's open question: the type byte itself must
// still be preserved non-destructively for diagnostics, so Type is carried
// alongside rather than stripped from Data).
type Buffer struct {
	Type Type
	Data []byte

	pool *Pools
	raw  []byte
}

// Release returns the buffer's backing block to its pool. It is always safe
// to call exactly once; the ownership-baton discipline in spec §9 requires
// every receive-path error branch to call this exactly once per buffer.
func (b *Buffer) Release() {
	if b == nil || b.pool == nil || b.raw == nil {
		return
	}
	b.pool.release(b.Type, b.raw)
	b.raw = nil
	b.Data = nil
}

// Pools groups the per-type memory slabs the parser allocates buffers from.
// Sizing these independently (spec §6 "ACL/EVT buffer counts and sizes")
// lets a board give ACL data much larger blocks than events without wasting
// that space on the EVT pool.
type Pools struct {
	evt *hal.Slab
	acl *hal.Slab
	iso *hal.Slab
}

// NewPools creates the three packet-buffer pools. Each backing slice must be
// sized blockSize*count for its pool.
func NewPools(evtBlockSize, evtCount int, evtBacking []byte,
	aclBlockSize, aclCount int, aclBacking []byte,
	isoBlockSize, isoCount int, isoBacking []byte) *Pools {
	return &Pools{
		evt: hal.NewSlab(evtBlockSize, evtCount, evtBacking),
		acl: hal.NewSlab(aclBlockSize, aclCount, aclBacking),
		iso: hal.NewSlab(isoBlockSize, isoCount, isoBacking),
	}
}

func (p *Pools) slabFor(t Type) (*hal.Slab, bool) {
	switch t {
	case TypeEvt:
		return p.evt, true
	case TypeACL:
		return p.acl, true
	case TypeISO:
		return p.iso, true
	default:
		return nil, false
	}
}

// Alloc reserves a block for t, sized at least n bytes, returning a Buffer
// whose Data slice is empty but capacitated. Returns hal.ErrOutOfMemory if
// the pool is exhausted. Exported for board glue and tests that need to
// exercise pool exhaustion directly; the parser itself calls alloc.
func (p *Pools) Alloc(t Type, n int) (*Buffer, error) {
	return p.alloc(t, n)
}

func (p *Pools) alloc(t Type, n int) (*Buffer, error) {
	slab, ok := p.slabFor(t)
	if !ok {
		return nil, hal.ErrOutOfMemory
	}

	block, err := slab.Alloc(hal.NoWait)
	if err != nil {
		return nil, err
	}

	if n > len(block) {
		slab.Free(block)
		return nil, hal.ErrOutOfMemory
	}

	return &Buffer{Type: t, Data: block[:0], raw: block, pool: p}, nil
}

func (p *Pools) release(t Type, raw []byte) {
	slab, ok := p.slabFor(t)
	if !ok {
		return
	}
	slab.Free(raw)
}
