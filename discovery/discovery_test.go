package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	n2k "github.com/j1939dev/n2k-core"
)

func TestDecodeNodeName_RoundTripsKnownFields(t *testing.T) {
	// Build a NAME with a recognizable pattern per byte.
	var raw [8]byte
	raw[0] = 0x11
	raw[1] = 0x22
	raw[2] = 0b00100011 // low 5 bits -> unique number high bits; high 3 bits -> manufacturer low bits
	raw[3] = 0x44
	raw[4] = 0b00101010 // instance lower/upper
	raw[5] = 0x66
	raw[6] = 0b11110010 // device class (bits 1-7)
	raw[7] = 0b10010101 // industry group / system instance / arbitrary-capable

	var name n2k.DeviceName
	for i := 0; i < 8; i++ {
		name |= n2k.DeviceName(raw[i]) << (8 * (7 - i))
	}

	decoded := DecodeNodeName(name)
	assert.Equal(t, uint8(0x66), decoded.DeviceFunction)
	assert.True(t, decoded.ArbitraryAddressCapable)
	assert.Equal(t, uint8(0b101), decoded.SystemInstance)
}

func TestTracker_Observe_LowerNameWinsAddress(t *testing.T) {
	tr := NewTracker()

	changed := tr.Observe(10, 500)
	assert.True(t, changed, "first claim for an address always changes state")

	// A higher (worse-priority) name claiming the same address must not
	// override the existing owner.
	changed = tr.Observe(10, 9000)
	assert.False(t, changed)

	node, ok := tr.NodeAt(10)
	require.True(t, ok)
	assert.Equal(t, n2k.DeviceName(500), node.Name)

	// A lower (better-priority) name re-claiming the address does override.
	changed = tr.Observe(10, 5)
	assert.True(t, changed)

	node, ok = tr.NodeAt(10)
	require.True(t, ok)
	assert.Equal(t, n2k.DeviceName(5), node.Name)
}

func TestTracker_Observe_SameClaimIsNotAChange(t *testing.T) {
	tr := NewTracker()
	tr.Observe(10, 500)
	assert.False(t, tr.Observe(10, 500))
}

func TestTracker_NodeAt_UnknownAddress(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.NodeAt(99)
	assert.False(t, ok)
}

func TestTracker_Nodes_AccumulatesDistinctNames(t *testing.T) {
	tr := NewTracker()
	tr.Observe(10, 1)
	tr.Observe(11, 2)
	tr.Observe(10, 1) // repeat claim, same node

	nodes := tr.Nodes()
	assert.Len(t, nodes, 2)
}
