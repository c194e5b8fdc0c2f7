//go:build linux

// Package linuxhci is a supplemented bottom-half port: a raw
// AF_BLUETOOTH/BTPROTO_HCI user-channel socket, letting the adapter drive a
// real local controller (or a vhci virtual one) without board-specific
// mailbox hardware. Grounded on
// _examples/other_examples/3203a813_kirbo-ble__linux-hci-socket-socket.go.go,
// adapted from its cgo-using device-info helper into a plain
// golang.org/x/sys/unix user-channel socket that satisfies transport.Transport.
package linuxhci

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/andrewleech/micropython-sub002/transport"
)

// ioW mirrors the teacher's ioctl request-code builder for a write-direction
// ioctl (the kernel's _IOW macro), used to construct HCIDEVUP/HCIDEVDOWN.
func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

const (
	ioctlSize = 4
	typHCI    = 72 // 'H'
)

var (
	hciUpDevice   = ioW(typHCI, 201, ioctlSize)
	hciDownDevice = ioW(typHCI, 202, ioctlSize)
)

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

// Port is a transport.Transport backed by a Linux HCI user-channel socket
// (HCI_CHANNEL_USER), bound to a single adapter identified by DevID.
type Port struct {
	DevID int

	fd int

	rxBuf [4096]byte
	rxLen int
	rxPos int
}

var _ transport.Transport = (*Port)(nil)

// New creates a Port for the given HCI device index (as reported by
// `hciconfig`, or 0 for the first adapter).
func New(devID int) *Port {
	return &Port{DevID: devID, fd: -1}
}

// Setup creates the raw socket, cycles the device down/up to clear any
// leftover state, then binds it exclusively as a user channel — mirroring
// the teacher's open() three-step dance (down, up, down-then-bind).
func (p *Port) Setup() error {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, unix.BTPROTO_HCI)
	if err != nil {
		return errors.Wrap(err, "linuxhci: create socket")
	}

	if err := ioctl(uintptr(fd), hciDownDevice, uintptr(p.DevID)); err != nil {
		unix.Close(fd)
		return errors.Wrap(err, "linuxhci: down device")
	}
	if err := ioctl(uintptr(fd), hciUpDevice, uintptr(p.DevID)); err != nil {
		unix.Close(fd)
		return errors.Wrap(err, "linuxhci: up device")
	}
	// A user-channel bind requires the device down again at bind time.
	if err := ioctl(uintptr(fd), hciDownDevice, uintptr(p.DevID)); err != nil {
		unix.Close(fd)
		return errors.Wrap(err, "linuxhci: down device for bind")
	}

	sa := &unix.SockaddrHCI{Dev: uint16(p.DevID), Channel: unix.HCI_CHANNEL_USER}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return errors.Wrap(err, "linuxhci: bind user channel")
	}

	p.fd = fd
	return nil
}

// Teardown closes the user-channel socket.
func (p *Port) Teardown() error {
	if p.fd < 0 {
		return nil
	}
	err := unix.Close(p.fd)
	p.fd = -1
	return errors.Wrap(err, "linuxhci: close")
}

// ReadByte drains one byte from a small internal staging buffer, refilling
// it with a non-blocking read (MSG_DONTWAIT) when empty — the kernel's HCI
// user-channel socket hands back whole H:4 frames per read, not single
// bytes, so this simply re-slices the most recent datagram.
func (p *Port) ReadByte() (byte, bool) {
	if p.fd < 0 {
		return 0, false
	}
	if p.rxPos >= p.rxLen {
		n, _, err := unix.Recvfrom(p.fd, p.rxBuf[:], unix.MSG_DONTWAIT)
		if err != nil || n <= 0 {
			return 0, false
		}
		p.rxLen = n
		p.rxPos = 0
	}
	b := p.rxBuf[p.rxPos]
	p.rxPos++
	return b, true
}

// Write sends a fully framed H:4 packet as a single datagram.
func (p *Port) Write(frame []byte) error {
	if p.fd < 0 {
		return transport.ErrClosed
	}
	_, err := unix.Write(p.fd, frame)
	return errors.Wrap(err, "linuxhci: write")
}
