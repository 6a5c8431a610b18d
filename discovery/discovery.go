// Package discovery tracks which devices are present on an N2K bus by
// observing ISO Address Claim traffic, independent of the core claim FSM
// that arbitrates this device's own address. Adapted from the node-tracking
// half of the address mapper this package was grounded on; the product-info
// and configuration-info request/response machinery of that original is
// dropped, since this core speaks no PGN beyond ISO Address Claim.
package discovery

import (
	"sync"
	"time"

	"github.com/j1939dev/n2k-core"
)

// NodeName is the decoded form of a 64-bit N2K DeviceName, per SAE J1939
// NAME field layout.
type NodeName struct {
	UniqueNumber        uint32 // ISO identity number (21 bits)
	Manufacturer        uint16 // (11 bits)
	DeviceInstanceLower uint8  // (3 bits)
	DeviceInstanceUpper uint8  // (5 bits)
	DeviceFunction      uint8  // (8 bits)
	DeviceClass         uint8  // (7 bits)
	SystemInstance      uint8  // (4 bits)
	IndustryGroup       uint8  // (3 bits)

	// ArbitraryAddressCapable indicates whether this device resolves
	// address-claim conflicts by selecting a new address from [128,247]
	// rather than yielding to whichever name has arbitration priority.
	ArbitraryAddressCapable bool
}

// DecodeNodeName splits a DeviceName into its SAE J1939 NAME subfields.
func DecodeNodeName(name n2k.DeviceName) NodeName {
	var b [8]byte
	for i := range b {
		b[i] = byte(name >> (8 * (7 - i)))
	}
	return NodeName{
		UniqueNumber:            uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2]&0b11111)<<16,
		Manufacturer:            uint16(b[3])<<3 | uint16(b[2]>>5),
		DeviceInstanceLower:     b[4] & 0b111,
		DeviceInstanceUpper:     b[4] >> 3,
		DeviceFunction:          b[5],
		DeviceClass:             b[6] >> 1,
		SystemInstance:          b[7] & 0b1111,
		IndustryGroup:           (b[7] >> 4) & 0b111,
		ArbitraryAddressCapable: b[7]>>7 != 0,
	}
}

// Node is one device this Tracker has ever seen claim an address.
type Node struct {
	Source  uint8
	Name    n2k.DeviceName
	Decoded NodeName
	Claimed time.Time
}

// Tracker accumulates Node observations from ISO Address Claim frames. It is
// safe for concurrent use; feed it via EventLoop.SetClaimObserver.
type Tracker struct {
	mu sync.Mutex

	knownNodes    map[n2k.DeviceName]*Node
	addressToName map[uint8]n2k.DeviceName

	now func() time.Time
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		knownNodes:    make(map[n2k.DeviceName]*Node),
		addressToName: make(map[uint8]n2k.DeviceName),
		now:           time.Now,
	}
}

// Observe records one ISO Address Claim, implementing the same
// lower-name-wins precedence the bus itself uses when two names contest the
// same address: a later claim for an address already attributed to a
// lower-priority (numerically larger) name supersedes it. It reports whether
// the address-to-node mapping changed; a name seen for the first time is
// added to Nodes even when its claim is outranked and false is returned.
func (t *Tracker) Observe(src uint8, name n2k.DeviceName) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, known := t.knownNodes[name]
	if !known {
		node = &Node{Source: src, Name: name, Decoded: DecodeNodeName(name), Claimed: t.now()}
		t.knownNodes[name] = node
	}

	prevName, hadOwner := t.addressToName[src]
	if hadOwner && prevName == name {
		return false
	}
	if hadOwner && prevName < name {
		// The address's current owner outranks this claim; ignore it, per
		// spec §4.6 arbitration (lower DeviceName wins).
		return false
	}

	node.Source = src
	node.Claimed = t.now()
	t.addressToName[src] = name
	return true
}

// Nodes returns every node this Tracker has ever observed.
func (t *Tracker) Nodes() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Node, 0, len(t.knownNodes))
	for _, n := range t.knownNodes {
		out = append(out, *n)
	}
	return out
}

// NodeAt returns the node currently believed to hold src, if any.
func (t *Tracker) NodeAt(src uint8) (Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name, ok := t.addressToName[src]
	if !ok {
		return Node{}, false
	}
	return *t.knownNodes[name], true
}
