package h4

import (
	"log/slog"

	"github.com/andrewleech/micropython-sub002/internal/hal"
)

type parserState int

const (
	stateIdle parserState = iota
	stateHeader
	statePayload
)

// Parser implements the H:4 byte-stream state machine (spec §4.7): IDLE ->
// HEADER -> PAYLOAD -> deliver-or-reset. It owns at most one outstanding
// buffer at a time, consistent with spec §3's invariant that the outstanding
// buffer is non-nil iff the parser is past the header stage.
type Parser struct {
	pools  *Pools
	logger *slog.Logger

	state parserState

	typ       Type
	hdr       [4]byte
	hdrLen    int
	hdrNeed   int
	remaining int
	buf       *Buffer
}

// NewParser creates a Parser that allocates completed buffers from pools.
func NewParser(pools *Pools, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{pools: pools, logger: logger}
}

// Feed consumes a single byte. It returns a completed Buffer when a full
// packet has just been assembled, nil otherwise. The caller (the RX pipeline
// or a transport's interrupt-equivalent handler) must stop feeding bytes and
// retry later if Feed reports stalled=true: the parser is holding header
// state waiting for a pool buffer to free up (spec §4.7's allocation-failure
// recovery, exercised by spec §8 scenario 5).
func (p *Parser) Feed(b byte) (complete *Buffer, stalled bool) {
	switch p.state {
	case stateIdle:
		return p.feedIdle(b)
	case stateHeader:
		return p.feedHeader(b)
	case statePayload:
		return p.feedPayload(b)
	default:
		return nil, false
	}
}

func (p *Parser) feedIdle(b byte) (*Buffer, bool) {
	n, ok := headerLen(Type(b))
	if !ok {
		// spec §7 ProtocolError: unknown H:4 type byte. Parser stays in
		// IDLE (there's nothing to reset) and continues with the next byte.
		hal.Oops(p.logger, "h4: unknown packet type, dropping byte", "byte", b)
		return nil, false
	}

	p.typ = Type(b)
	p.hdrLen = 0
	p.hdrNeed = n
	p.state = stateHeader

	return nil, false
}

func (p *Parser) feedHeader(b byte) (*Buffer, bool) {
	p.hdr[p.hdrLen] = b
	p.hdrLen++

	if p.hdrLen < p.hdrNeed {
		return nil, false
	}

	// Header complete: derive payload length and allocate a buffer.
	n := payloadLen(p.typ, p.hdr[:p.hdrLen])

	buf, err := p.pools.alloc(p.typ, p.hdrLen+n)
	if err != nil {
		// spec §4.7: do NOT reset on allocation failure. Stay in HEADER
		// with the outstanding header already buffered (hdrLen == hdrNeed
		// marks the stall) so the caller can pump the work queue to free
		// buffers and call Retry, instead of feeding more bytes.
		// spec §7 ResourceExhausted: stall rather than drop or reset.
		hal.Oops(p.logger, "h4: packet pool exhausted, stalling parser", "type", p.typ)
		return nil, true
	}

	return p.completeHeader(buf, n), false
}

func (p *Parser) completeHeader(buf *Buffer, payload int) *Buffer {
	buf.Data = append(buf.Data, p.hdr[:p.hdrLen]...)
	p.remaining = payload
	p.buf = buf

	if payload == 0 {
		p.state = stateIdle
		done := p.buf
		p.buf = nil
		return done
	}

	p.state = statePayload
	return nil
}

func (p *Parser) feedPayload(b byte) (*Buffer, bool) {
	p.buf.Data = append(p.buf.Data, b)
	p.remaining--

	if p.remaining > 0 {
		return nil, false
	}

	done := p.buf
	p.buf = nil
	p.state = stateIdle

	return done, false
}

// Retry re-attempts the allocation that stalled the parser in feedHeader,
// without consuming a new byte. Callers pump the work queue (to free
// buffers) and then call Retry until stalled becomes false.
func (p *Parser) Retry() (complete *Buffer, stalled bool) {
	if p.state != stateHeader || p.hdrLen != p.hdrNeed {
		return nil, false
	}

	n := payloadLen(p.typ, p.hdr[:p.hdrLen])
	buf, err := p.pools.alloc(p.typ, p.hdrLen+n)
	if err != nil {
		return nil, true
	}

	return p.completeHeader(buf, n), false
}

// Stalled reports whether the parser is blocked waiting for a buffer.
func (p *Parser) Stalled() bool {
	return p.state == stateHeader && p.hdrLen == p.hdrNeed
}

// Reset releases any outstanding buffer and returns the parser to IDLE,
// matching spec §3's reset invariant. Used on transport open and close; an
// unknown type byte does not reset the parser (see feedIdle).
func (p *Parser) Reset() {
	if p.buf != nil {
		p.buf.Release()
		p.buf = nil
	}
	p.state = stateIdle
}
