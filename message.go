package n2k

// Message is the contract a user-defined N2K message type satisfies: a
// fixed PGN, a fixed encoded length, and infallible encoding. See spec §4.5
// / §9 "Polymorphism over messages" — Go has no const generics, so
// EncodedLen is a method rather than a compile-time associated constant;
// the observable contract (Encode always writes exactly EncodedLen() bytes)
// is unchanged. Decoding is deliberately not part of this interface: the
// teacher's own message types (e.g. PGN60928ToNodeName) decode via
// free-standing functions rather than methods, and NewFastPacketReader takes
// its decode function as a constructor argument, so no decode method is needed
// here.
type Message interface {
	// PGN is this message's Parameter Group Number.
	PGN() uint32
	// EncodedLen is the number of bytes Encode writes.
	EncodedLen() int
	// Encode writes exactly EncodedLen() bytes to out. Callers guarantee
	// len(out) == EncodedLen().
	Encode(out []byte)
}
