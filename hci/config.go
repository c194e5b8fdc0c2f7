// Package hci implements the host-facing HCI device façade (spec §4.8,
// §4.9): open/close/send, the H:4 send path, and the compile-time
// configuration surface the imported host reads at Enable time.
package hci

// Config is the compile-time feature-flag surface spec §6 names: "boolean/
// integer toggles consumed by the host". It is built by construction, not
// parsed from flags or environment — matching the teacher's package-level
// `var` board knobs rather than a CLI config parser (SPEC_FULL §2 ambient
// stack), since the consumer here is a library, not a program.
type Config struct {
	// MaxConnections bounds simultaneous connections (spec §6 MAX_CONN).
	MaxConnections int

	// GAP roles.
	Broadcaster bool
	Observer    bool
	Peripheral  bool
	Central     bool

	// Buffer pools (spec §6 "ACL/EVT buffer counts and sizes").
	EVTBufferCount int
	EVTBufferSize  int
	ACLBufferCount int
	ACLBufferSize  int
	ISOBufferCount int
	ISOBufferSize  int

	// Security.
	SMP     bool // enable pairing
	Privacy bool // enable resolvable private addresses

	// L2CAP/ATT.
	ATTPrepareCount int
	L2CAPTxBufCount int
	L2CAPTxMTU      int

	// Debug enables diagnostic logging in the adapter (spec §6 DEBUG).
	Debug bool

	// RXQueueDepth overrides h4.DefaultRXQueueDepth; 0 keeps the default.
	RXQueueDepth int

	// DispatchBatchSize overrides h4.DefaultBatchSize; 0 keeps the default.
	DispatchBatchSize int

	// SchedTickMillis overrides sched.DefaultTickMillis; 0 keeps the
	// default.
	SchedTickMillis uint32
}

// DefaultConfig returns a Config sized for a single-role peripheral, the
// smallest role a constrained board typically needs.
func DefaultConfig() Config {
	return Config{
		MaxConnections: 1,
		Peripheral:     true,

		EVTBufferCount: 8,
		EVTBufferSize:  70,
		ACLBufferCount: 4,
		ACLBufferSize:  251 + 4,
		ISOBufferCount: 2,
		ISOBufferSize:  251 + 4,

		ATTPrepareCount: 4,
		L2CAPTxBufCount: 3,
		L2CAPTxMTU:      247,
	}
}
