package n2k

// PGNISOAddressClaim is the Parameter Group Number of the ISO Address Claim
// message, the only "well-known" message the core itself consumes.
const PGNISOAddressClaim uint32 = 60928

// DeviceName is the 64-bit opaque identifier used for address-claim
// arbitration. Smaller names have higher arbitration priority, per spec §3.
type DeviceName uint64

// ISOAddressClaim is the well-known PGN 60928 message: the 64-bit device
// name, little-endian encoded over exactly 8 bytes.
type ISOAddressClaim struct {
	Name DeviceName
}

// PGN implements Message.
func (ISOAddressClaim) PGN() uint32 { return PGNISOAddressClaim }

// EncodedLen implements Message.
func (ISOAddressClaim) EncodedLen() int { return 8 }

// Encode implements Message.
func (c ISOAddressClaim) Encode(out []byte) {
	w := NewWriter(out)
	w.PutU64(uint64(c.Name))
}

// DecodeISOAddressClaim decodes an ISO Address Claim payload. Per spec §4.8
// this cannot fail: any 8 bytes decode to a valid DeviceName, so the
// FastPacketReader/EventLoop call sites that invoke it never need to
// propagate a decode error for this particular message.
func DecodeISOAddressClaim(data []byte) (ISOAddressClaim, error) {
	r := NewReader(data)
	return ISOAddressClaim{Name: DeviceName(r.U64())}, nil
}
