package hci

import (
	"github.com/pkg/errors"

	"github.com/andrewleech/micropython-sub002/internal/h4"
)

// BufferKind is the host's abstract outgoing buffer type (spec §4.8: "Map
// the buffer's abstract type {CMD, ACL-OUT, others rejected} to the H:4 type
// byte").
type BufferKind int

const (
	// BufferCmd is an HCI command, framed with the H:4 CMD type byte.
	BufferCmd BufferKind = iota
	// BufferACLOut is outgoing ACL data, framed with the H:4 ACL type byte.
	BufferACLOut
)

// ErrUnsupportedBufferKind is returned by Send for any kind other than
// BufferCmd or BufferACLOut (spec §4.8: "others rejected").
var ErrUnsupportedBufferKind = errors.New("hci: unsupported buffer kind")

func (k BufferKind) wireType() (h4.Type, bool) {
	switch k {
	case BufferCmd:
		return h4.TypeCmd, true
	case BufferACLOut:
		return h4.TypeACL, true
	default:
		return 0, false
	}
}

// Send frames payload (the host-built command or ACL header+data, without
// the H:4 type byte) and writes it to the transport in one call, per spec
// §4.8. The caller's buffer is considered consumed whether or not Send
// succeeds — matching "release the host buffer" in the same paragraph.
func (d *Device) Send(kind BufferKind, payload []byte) error {
	wireType, ok := kind.wireType()
	if !ok {
		return ErrUnsupportedBufferKind
	}

	d.mu.Lock()
	tp := d.transport
	d.mu.Unlock()

	if tp == nil {
		return ErrNotOpen
	}

	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, byte(wireType))
	frame = append(frame, payload...)

	if d.cfg.Debug {
		d.logger.Debug("hci: sending packet", "type", wireType, "len", len(payload))
	}

	err := tp.Write(frame)

	d.mu.Lock()
	if err != nil {
		d.stats.ErrTX++
	} else {
		d.stats.ByteTX += uint32(len(frame))
		if kind == BufferCmd {
			d.stats.CmdTX++
		} else {
			d.stats.ACLTX++
		}
	}
	d.mu.Unlock()

	return errors.Wrap(err, "hci: transport write")
}
