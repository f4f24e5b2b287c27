// The hamming package checks the error-detection code of a GLONASS
// navigation string.  The last eight bits of the 85-bit data block (ICD
// bits 1-8) are check bits.  Each of check bits 1-7 is the parity of a
// fixed subset of the data bits; check bit 8 covers the whole string.
// The bit subsets are from section 4.7 of the ICD and can also be found
// in the RTKLIB decoder.
//
// A string is accepted only when all eight recomputed check bits agree
// with the transmitted ones.  (The ICD describes a scheme for correcting
// some single-bit errors; this decoder does not attempt correction - a
// corrupted string is simply dropped and the satellite retransmits the
// same data in the next cycle.)
package hamming

// Each mask selects the bits of the 85-bit data block (packed MSB-first
// into 11 bytes) that feed one check bit, including the check bit itself,
// so a valid string gives even parity under every mask.
var masks = [8][11]byte{
	{0x55, 0x55, 0x5a, 0xaa, 0xaa, 0xaa, 0xb5, 0x55, 0x6a, 0xd8, 0x08},
	{0x66, 0x66, 0x6c, 0xcc, 0xcc, 0xcc, 0xd9, 0x99, 0xb3, 0x68, 0x10},
	{0x87, 0x87, 0x8f, 0x0f, 0x0f, 0x0f, 0x1e, 0x1e, 0x3c, 0x70, 0x20},
	{0x07, 0xf8, 0x0f, 0xf0, 0x0f, 0xf0, 0x1f, 0xe0, 0x3f, 0x80, 0x40},
	{0xf8, 0x00, 0x0f, 0xff, 0xf0, 0x00, 0x1f, 0xff, 0xc0, 0x00, 0x80},
	{0x00, 0x00, 0x0f, 0xff, 0xff, 0xff, 0xe0, 0x00, 0x00, 0x01, 0x00},
	{0xff, 0xff, 0xf0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00},
	{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xf8},
}

// parity8 gives the parity of each possible byte value.
var parity8 [256]byte

func init() {
	for i := 0; i < 256; i++ {
		v := byte(i)
		v ^= v >> 4
		v ^= v >> 2
		v ^= v >> 1
		parity8[i] = v & 1
	}
}

// parityUnderMask gives the parity of the data block bits selected by
// the mask.
func parityUnderMask(block []byte, mask *[11]byte) byte {
	var p byte
	for j := 0; j < 11; j++ {
		p ^= parity8[block[j]&mask[j]]
	}
	return p
}

// Syndrome recomputes the eight check bits of the data block and returns
// the mismatches, one bit per check, check 1 in the least significant
// position.  A valid string gives zero.
func Syndrome(block []byte) byte {
	var syndrome byte
	for i := 0; i < 8; i++ {
		syndrome |= parityUnderMask(block, &masks[i]) << i
	}
	return syndrome
}

// Check reports whether the 85-bit data block passes the check bits.
// It's a pure function - rerunning it on the same block always gives the
// same answer.
func Check(block []byte) bool {
	return Syndrome(block) == 0
}

// ownCheckBit finds the position (zero-based from the most significant
// bit of the block) of the check bit belonging to the given mask: the
// single mask bit within the check-bit field at positions 77-84.
func ownCheckBit(mask *[11]byte) uint {
	for pos := uint(77); pos < 85; pos++ {
		if mask[pos/8]&(1<<(7-pos%8)) != 0 {
			return pos
		}
	}
	// The mask table is static and always has a check bit.
	panic("hamming: mask has no check bit")
}

// Apply computes the eight check bits for the first 77 bits of the data
// block and stores them in the last eight bit positions.  It's used to
// build valid strings for testing and simulation.
func Apply(block []byte) {
	// Clear the check-bit field (bits 77-84, plus the three padding bits).
	block[9] &= 0xf8
	block[10] = 0

	// Checks 1-7 each cover disjoint check bits, so they can be set
	// independently.  Check 8 covers everything including checks 1-7, so
	// it must be set last.
	for i := 0; i < 8; i++ {
		if parityUnderMask(block, &masks[i]) == 1 {
			pos := ownCheckBit(&masks[i])
			block[pos/8] |= 1 << (7 - pos%8)
		}
	}
}
