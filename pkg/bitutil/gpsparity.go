package bitutil

// GPSWordParity implements the IS-GPS-200 navigation-message parity
// algorithm, shared by GPS LNAV subframe words (pkg/subframe) and RTCM2's
// SC-104 word format, which borrows the same 30-bit-word/6-bit-parity
// scheme (spec.md §4.F.2, §4.F.5).
//
// data is the word's 24 data bits as transmitted, D1..D24, in its low 24
// bits with D1 the most significant (bit 23). d29Star and d30Star are the
// last two bits of the previous word: when d30Star is set the data bits
// are inverted back to source bits before the parity equations are
// applied, and both seed parity equations, per the ICD-GPS-200
// definition.
//
// It returns the six computed parity bits d25..d30 in its low 6 bits,
// d25 at bit 5 and d30 at bit 0.
func GPSWordParity(data uint32, d29Star, d30Star bool) uint8 {
	d := data & 0xFFFFFF
	if d30Star {
		d = (^d) & 0xFFFFFF
	}
	bit := func(n int) uint32 {
		// n is 1-based (d1..d24); bit 1 is the MSB of the 24-bit field.
		return (d >> uint(24-n)) & 1
	}
	xor := func(bits ...int) uint32 {
		var v uint32
		for _, n := range bits {
			v ^= bit(n)
		}
		return v
	}
	b2u := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}

	d25 := b2u(d29Star) ^ xor(1, 2, 3, 5, 6, 10, 11, 12, 13, 14, 17, 18, 20, 23)
	d26 := b2u(d30Star) ^ xor(2, 3, 4, 6, 7, 11, 12, 13, 14, 15, 18, 19, 21, 24)
	d27 := b2u(d29Star) ^ xor(1, 3, 4, 5, 7, 8, 12, 13, 14, 15, 16, 19, 20, 22)
	d28 := b2u(d30Star) ^ xor(2, 4, 5, 6, 8, 9, 13, 14, 15, 16, 17, 20, 21, 23)
	d29 := b2u(d30Star) ^ xor(1, 3, 5, 6, 7, 9, 10, 14, 15, 16, 17, 18, 21, 22, 24)
	d30 := b2u(d29Star) ^ xor(3, 5, 6, 8, 9, 10, 11, 13, 15, 19, 22, 23, 24)

	return uint8(d25<<5 | d26<<4 | d27<<3 | d28<<2 | d29<<1 | d30)
}

// ValidateGPSWord checks a full 30-bit word (bits 0-23 data, bits 24-29
// parity, MSB-first within the lower 30 bits of word) against its
// expected parity given the previous word's last two bits, returning the
// un-inverted 24-bit data field and whether parity matched.
func ValidateGPSWord(word uint32, d29Star, d30Star bool) (data uint32, ok bool) {
	raw := (word >> 6) & 0xFFFFFF
	gotParity := uint8(word & 0x3F)
	wantParity := GPSWordParity(raw, d29Star, d30Star)
	data = raw
	if d30Star {
		data = (^raw) & 0xFFFFFF
	}
	return data, gotParity == wantParity
}
