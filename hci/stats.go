package hci

// Stats are read-only packet counters exposed for diagnostics (spec §6
// ADDED), grounded on
// _examples/other_examples/3203a813_kirbo-ble__linux-hci-socket-socket.go.go's
// HciDevStats (ErrRX/ErrTX/CmdTX/EvtRX/ACLTX/ACLRX/ByteRX/ByteTX) — the
// pack's one precedent for HCI-level counters.
type Stats struct {
	ErrRX  uint32
	ErrTX  uint32
	CmdTX  uint32
	EvtRX  uint32
	ACLTX  uint32
	ACLRX  uint32
	ISORX  uint32
	ByteRX uint32
	ByteTX uint32
}
