// Package rtcm2 decodes RTCM SC-104 version 2 differential-GPS messages
// (spec.md §4.F.2): a word stream of 30-bit words, each carrying 24 data
// bits and 6 parity bits computed with the same algorithm GPS navigation
// messages use, framed by a fixed two-word header.
package rtcm2

import (
	"fmt"

	"github.com/northfall/gnssmux/pkg/bitutil"
)

// preamble is the fixed 8-bit pattern (01100110) that opens every RTCM2
// message, occupying the top 8 bits of the first word's 24 data bits.
const preamble = 0x66

// Frame is the decoded header plus type-tagged payload of spec.md §3's
// "RTCM2 frame": {type, length, zcount, refstaid, seqnum, station-health}
// plus a payload union.
type Frame struct {
	Type          int
	Length        int // number of data words following the header
	ZCount        float64 // seconds; the 13-bit field counts tenths of a second, so it wraps at 819.2 s
	RefStaID      int
	SeqNum        int
	StationHealth int

	RangeCorrections *RangeCorrections // types 1, 9
	ReferenceStation *ReferenceStation // types 3, 22, 24
	Text             string            // type 16

	// Raw preserves the data words for types not decoded into a typed
	// payload above.
	Raw []uint32
}

// RangeCorrections is the type 1 (and type 9, a subset keyed by a
// shorter satellite list) differential range/range-rate correction
// payload.
type RangeCorrections struct {
	Corrections []SatCorrection
}

// SatCorrection is one satellite's entry within a type 1/9 message.
type SatCorrection struct {
	SatID       int
	UDRE        int // user differential range error indicator
	PRC         float64 // pseudorange correction, meters
	RRC         float64 // range-rate correction, meters/sec
	IOD         int
}

// ReferenceStation is the type 3/22/24 reference-station ECEF position
// payload.
type ReferenceStation struct {
	X, Y, Z float64 // meters, ECEF
}

// wordReader pulls successive 30-bit words from a byte buffer and tracks
// the previous word's last two bits for the chained GPS parity check.
type wordReader struct {
	buf       []byte
	bitOffset int
	d29Star   bool
	d30Star   bool
}

func newWordReader(buf []byte) *wordReader {
	return &wordReader{buf: buf}
}

// next reads and parity-validates the next 30-bit word, returning its
// 24-bit data field.
func (r *wordReader) next() (data uint32, ok bool, err error) {
	if r.bitOffset+30 > len(r.buf)*8 {
		return 0, false, fmt.Errorf("rtcm2: truncated word stream")
	}
	word := uint32(bitutil.GetBEU(r.buf, r.bitOffset, 30))
	r.bitOffset += 30
	data, valid := bitutil.ValidateGPSWord(word, r.d29Star, r.d30Star)
	r.d29Star = word&(1<<1) != 0
	r.d30Star = word&1 != 0
	return data, valid, nil
}

// Decode reads one RTCM2 message starting at the beginning of buf, which
// must begin on a word boundary already located by the caller. Decode
// does no preamble search or bit realignment, and neither the lexer
// (which has no RTCM2 framing state) nor the RTCM2 driver does one
// before calling it.
func Decode(buf []byte) (Frame, error) {
	r := newWordReader(buf)

	w1, ok, err := r.next()
	if err != nil {
		return Frame{}, err
	}
	if !ok {
		return Frame{}, fmt.Errorf("rtcm2: word 1 parity failed")
	}
	if byte(w1>>16) != preamble {
		return Frame{}, fmt.Errorf("rtcm2: preamble mismatch (got 0x%02X)", byte(w1>>16))
	}
	msgType := int((w1 >> 10) & 0x3F)
	refStaID := int(w1 & 0x3FF)

	w2, ok, err := r.next()
	if err != nil {
		return Frame{}, err
	}
	if !ok {
		return Frame{}, fmt.Errorf("rtcm2: word 2 parity failed")
	}
	zcount := float64((w2>>11)&0x1FFF) / 10.0
	seq := int((w2 >> 8) & 0x7)
	length := int((w2 >> 3) & 0x1F)
	health := int(w2 & 0x7)

	frame := Frame{
		Type:          msgType,
		Length:        length,
		ZCount:        zcount,
		RefStaID:      refStaID,
		SeqNum:        seq,
		StationHealth: health,
	}

	words := make([]uint32, 0, length)
	for i := 0; i < length; i++ {
		w, ok, err := r.next()
		if err != nil {
			return Frame{}, err
		}
		if !ok {
			return Frame{}, fmt.Errorf("rtcm2: data word %d parity failed", i+1)
		}
		words = append(words, w)
	}

	switch msgType {
	case 1, 9:
		frame.RangeCorrections = decodeRangeCorrections(words)
	case 3, 22, 24:
		frame.ReferenceStation = decodeReferenceStation(words)
	case 16:
		frame.Text = decodeText(words)
	default:
		frame.Raw = words
	}
	return frame, nil
}

// decodeRangeCorrections unpacks type 1/9: each satellite entry is two
// 24-bit data words split into six sub-fields (scale, UDRE, sat id, PRC,
// RRC, IOD), per the RTCM SC-104 v2.3 message-1 layout.
func decodeRangeCorrections(words []uint32) *RangeCorrections {
	rc := &RangeCorrections{}
	for i := 0; i+1 < len(words); i += 2 {
		w1, w2 := words[i], words[i+1]
		scale := 1.0
		if w1&(1<<23) != 0 {
			scale = 2.0
		}
		entry := SatCorrection{
			UDRE:  int((w1 >> 21) & 0x3),
			SatID: int((w1 >> 16) & 0x1F),
			PRC:   signExtend(int32((w1>>0)&0xFFFF), 16) * 0.02 * scale,
			RRC:   signExtend(int32((w2>>16)&0xFF), 8) * 0.002 * scale,
			IOD:   int((w2 >> 8) & 0xFF),
		}
		rc.Corrections = append(rc.Corrections, entry)
	}
	return rc
}

func signExtend(v int32, bits uint) float64 {
	shift := 32 - bits
	return float64((v << shift) >> shift)
}

// decodeReferenceStation unpacks type 3/22/24's ECEF coordinates, each
// carried as a 32-bit signed value spread across 24-bit words at
// 0.01-meter resolution.
func decodeReferenceStation(words []uint32) *ReferenceStation {
	if len(words) < 4 {
		return &ReferenceStation{}
	}
	x := int32(words[0]<<8 | words[1]>>16&0xFF)
	y := int32((words[1]&0xFFFF)<<16 | words[2]>>8&0xFFFF)
	z := int32((words[2]&0xFF)<<24 | words[3]&0xFFFFFF)
	return &ReferenceStation{
		X: float64(x) / 100.0,
		Y: float64(y) / 100.0,
		Z: float64(z) / 100.0,
	}
}

// decodeText unpacks type 16's free-text message: 3 ASCII characters
// packed per 24-bit data word.
func decodeText(words []uint32) string {
	out := make([]byte, 0, len(words)*3)
	for _, w := range words {
		out = append(out, byte(w>>16), byte(w>>8), byte(w))
	}
	return string(out)
}
