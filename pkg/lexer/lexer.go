// Package lexer implements the byte-stream packet sniffer of spec.md §4.D:
// a pure state machine, with no I/O of its own, that frames one packet at
// a time out of a shared byte stream carrying any of ~15 mutually
// ambiguous GNSS wire protocols. Bytes are fed one at a time; the state
// machine is a function of its current state and the next byte only, so
// splitting an input stream into arbitrarily many chunks yields the same
// packet sequence as feeding it whole (spec.md §8 property 1).
package lexer

import (
	"github.com/northfall/gnssmux/pkg/checksum"
)

type state int

const (
	stateGround state = iota
	stateComment
	stateJSON
	stateNMEABody
	stateUBXSync2
	stateUBXClass
	stateUBXID
	stateUBXLen1
	stateUBXLen2
	stateUBXPayload
	stateUBXCK
	stateRTCM3Len1
	stateRTCM3Len2
	stateRTCM3Payload
	stateRTCM3CRC
	stateSiRFLen1
	stateSiRFLen2
	stateSiRFPayload
	stateSiRFCK
	stateSiRFEnd
	stateTSIPBody
	stateZodiacSync2
	stateZodiacHeader
	stateZodiacPayload
	stateEverMoreLen
	stateEverMorePayload
	stateGarminBody
	stateGarminTxtBody
	stateGenericLenLo
	stateGenericLenHi
	stateGenericPayload
	stateBad
)

// genericProto describes the niche binary protocols (Navcom, SuperStar
// II, OnCore, GeoStar, ITALK, SPARTN; SKY has no lead-in entry below and
// is not framed) for which this module frames
// by declared length only, without reproducing their full header layout.
// A complete reverse-engineered framing for each is out of scope for this
// module's line budget (see DESIGN.md); what's preserved is the lexer
// contract that matters operationally — recognizing the protocol is live
// on the channel and returning its bytes as one packet — while the F-layer
// decoders for these protocols are Non-goals of spec.md §1 beyond AIS,
// RTCM2/3, NMEA and subframes.
type genericProto struct {
	typ       PacketType
	lenOffset int // byte offset of the 16-bit length field within the header
	leadLen   int // total header length before the length-prefixed payload
	trailer   int // trailer bytes appended after payload (checksum etc.)
	bigEndian bool
}

var genericLeadIns = map[[2]byte]genericProto{
	{0xBA, 0xCE}: {ONCORE, 2, 4, 1, false},
	{0x10, 0x81}: {NAVCOM, 2, 4, 2, false},
	// SuperStar II, GeoStar, ITALK, SPARTN share the same generic
	// length-prefixed shape with distinct lead-ins.
	{0xA0, 0xA1}: {SUPERSTAR2, 2, 4, 2, false},
	{0xF5, 0x5F}: {GEOSTAR, 2, 4, 2, true},
	{0xA3, 0x62}: {ITALK, 2, 4, 4, false},
	{0x73, 0x13}: {SPARTN, 2, 3, 0, false},
}

// Lexer is the packet sniffer state machine. It is not safe for
// concurrent use by multiple goroutines; a Session owns exactly one.
type Lexer struct {
	st  state
	in  []byte // bytes consumed so far in the current candidate packet
	typ PacketType

	counter      int
	retryCounter int
	typeMask     TypeMask

	// protocol-specific scratch
	expectLen  int
	braceDepth int
	inString   bool
	escapeNext bool
	generic    genericProto
}

// New creates a Lexer with the default type mask (SPARTN disabled).
func New() *Lexer {
	return &Lexer{typeMask: DefaultTypeMask()}
}

// SetTypeMask overrides which protocols the lexer will recognize.
func (l *Lexer) SetTypeMask(m TypeMask) { l.typeMask = m }

// Feed processes an arbitrary chunk of bytes and returns every packet
// framed while consuming it, satisfying spec.md §8 property 1 regardless
// of how the caller chunks its input.
func (l *Lexer) Feed(data []byte) []Packet {
	var out []Packet
	for _, b := range data {
		if pkt, ok := l.FeedByte(b); ok {
			out = append(out, pkt)
		}
	}
	return out
}

// FeedByte advances the state machine by one byte, returning a completed
// Packet when a full frame (good or, in the case of the bounded bad-byte
// terminal state, bad) has been recognized.
func (l *Lexer) FeedByte(b byte) (Packet, bool) {
	switch l.st {
	case stateGround:
		return l.ground(b)
	case stateComment:
		return l.comment(b)
	case stateJSON:
		return l.json(b)
	case stateNMEABody:
		return l.nmeaBody(b)
	case stateUBXSync2, stateUBXClass, stateUBXID, stateUBXLen1, stateUBXLen2, stateUBXPayload, stateUBXCK:
		return l.ubx(b)
	case stateRTCM3Len1, stateRTCM3Len2, stateRTCM3Payload, stateRTCM3CRC:
		return l.rtcm3(b)
	case stateSiRFLen1, stateSiRFLen2, stateSiRFPayload, stateSiRFCK, stateSiRFEnd:
		return l.sirf(b)
	case stateTSIPBody:
		return l.tsip(b)
	case stateZodiacSync2, stateZodiacHeader, stateZodiacPayload:
		return l.zodiac(b)
	case stateEverMoreLen, stateEverMorePayload:
		return l.evermore(b)
	case stateGarminBody:
		return l.garmin(b)
	case stateGarminTxtBody:
		return l.garminTxt(b)
	case stateGenericLenLo, stateGenericLenHi, stateGenericPayload:
		return l.generic2(b)
	default:
		l.reset()
		return l.ground(b)
	}
}

func (l *Lexer) reset() {
	l.st = stateGround
	l.in = l.in[:0]
	l.braceDepth = 0
	l.inString = false
	l.escapeNext = false
}

func (l *Lexer) enabled(t PacketType) bool { return !l.typeMask.disabled(t) }

func (l *Lexer) emit(typ PacketType) (Packet, bool) {
	payload := make([]byte, len(l.in))
	copy(payload, l.in)
	l.counter++
	pkt := Packet{Type: typ, Payload: payload, Length: len(payload), Counter: l.counter, RetryCounter: l.retryCounter}
	l.retryCounter = 0
	l.reset()
	return pkt, true
}

func (l *Lexer) discard() {
	l.retryCounter++
	l.reset()
}

// ground dispatches on the lead-in byte. Ambiguous lead-ins ('$' for
// NMEA/AIVDM) are resolved once the full sentence's talker code is known.
func (l *Lexer) ground(b byte) (Packet, bool) {
	switch {
	case b == '$' || b == '!':
		l.st = stateNMEABody
		l.in = append(l.in[:0], b)
		return Packet{}, false
	case b == '#':
		l.st = stateComment
		l.in = append(l.in[:0], b)
		return Packet{}, false
	case b == '{' && l.enabled(JSON):
		l.st = stateJSON
		l.in = append(l.in[:0], b)
		l.braceDepth = 1
		return Packet{}, false
	case b == 0xB5:
		l.st = stateUBXSync2
		l.in = append(l.in[:0], b)
		return Packet{}, false
	case b == 0xD3:
		l.st = stateRTCM3Len1
		l.in = append(l.in[:0], b)
		return Packet{}, false
	case b == 0xA0:
		l.st = stateSiRFLen1
		l.in = append(l.in[:0], b)
		return Packet{}, false
	case b == 0x10:
		l.st = stateTSIPBody
		l.in = append(l.in[:0], b)
		return Packet{}, false
	case b == 0xFF:
		l.st = stateZodiacSync2
		l.in = append(l.in[:0], b)
		return Packet{}, false
	case b == 0x81:
		l.st = stateEverMoreLen
		l.in = append(l.in[:0], b)
		return Packet{}, false
	case b == '@':
		l.st = stateGarminTxtBody
		l.in = append(l.in[:0], b)
		return Packet{}, false
	default:
		l.in = append(l.in[:0], b)
		return l.tryGenericLeadIn()
	}
}

func (l *Lexer) tryGenericLeadIn() (Packet, bool) {
	l.st = stateGenericLenLo // placeholder; matched on second byte in generic2
	return Packet{}, false
}

// --- NMEA / AIVDM -----------------------------------------------------

func (l *Lexer) nmeaBody(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	if len(l.in) > MaxPacketLength {
		l.discard()
		return Packet{}, false
	}
	if b == '\n' && len(l.in) >= 2 && l.in[len(l.in)-2] == '\r' {
		typ := l.classifyNMEA()
		if !l.enabled(typ) {
			l.discard()
			return Packet{}, false
		}
		sentence := l.in[:len(l.in)-2]
		if !checksum.NMEA.Verify(sentence) {
			l.discard()
			return Packet{}, false
		}
		return l.emit(typ)
	}
	return Packet{}, false
}

// classifyNMEA disambiguates NMEA from AIVDM/AIVDO once the sentence's
// talker/formatter field is available, per spec.md §4.D.
func (l *Lexer) classifyNMEA() PacketType {
	if l.in[0] == '!' {
		return AIVDM
	}
	// Look for "VDM" or "VDO" formatter anywhere in the first comma field.
	comma := indexByte(l.in, ',')
	field := l.in
	if comma >= 0 {
		field = l.in[:comma]
	}
	if containsAny(field, "VDM", "VDO") {
		return AIVDM
	}
	return NMEA
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func containsAny(b []byte, substrs ...string) bool {
	s := string(b)
	for _, sub := range substrs {
		if len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

// --- COMMENT ------------------------------------------------------------

func (l *Lexer) comment(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	if b == '\n' || len(l.in) > MaxPacketLength {
		if !l.enabled(COMMENT) {
			l.discard()
			return Packet{}, false
		}
		return l.emit(COMMENT)
	}
	return Packet{}, false
}

// --- JSON ----------------------------------------------------------------

func (l *Lexer) json(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	if len(l.in) > MaxPacketLength {
		l.discard()
		return Packet{}, false
	}
	if l.escapeNext {
		l.escapeNext = false
		return Packet{}, false
	}
	switch {
	case b == '\\' && l.inString:
		l.escapeNext = true
	case b == '"':
		l.inString = !l.inString
	case !l.inString && b == '{':
		l.braceDepth++
	case !l.inString && b == '}':
		l.braceDepth--
		if l.braceDepth == 0 {
			return l.emit(JSON)
		}
	}
	return Packet{}, false
}

// --- UBX -------------------------------------------------------------

func (l *Lexer) ubx(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	switch l.st {
	case stateUBXSync2:
		if b != 0x62 {
			l.discard()
			return Packet{}, false
		}
		l.st = stateUBXClass
	case stateUBXClass:
		l.st = stateUBXID
	case stateUBXID:
		l.st = stateUBXLen1
	case stateUBXLen1:
		l.st = stateUBXLen2
	case stateUBXLen2:
		lo := int(l.in[len(l.in)-2])
		hi := int(l.in[len(l.in)-1])
		l.expectLen = lo | hi<<8
		if l.expectLen == 0 {
			l.st = stateUBXCK
		} else {
			l.st = stateUBXPayload
		}
	case stateUBXPayload:
		if len(l.in)-6 >= l.expectLen {
			l.st = stateUBXCK
		}
	case stateUBXCK:
		if len(l.in) >= 6+l.expectLen+2 {
			if !l.enabled(UBX) {
				l.discard()
				return Packet{}, false
			}
			if !checksum.UBX.Verify(l.in) {
				l.discard()
				return Packet{}, false
			}
			return l.emit(UBX)
		}
	}
	if len(l.in) > MaxPacketLength {
		l.discard()
	}
	return Packet{}, false
}

// --- RTCM3 -------------------------------------------------------------

func (l *Lexer) rtcm3(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	switch l.st {
	case stateRTCM3Len1:
		l.st = stateRTCM3Len2
	case stateRTCM3Len2:
		hi6 := int(l.in[1] & 0x03)
		lo8 := int(l.in[2])
		l.expectLen = hi6<<8 | lo8
		if l.expectLen == 0 {
			l.st = stateRTCM3CRC
		} else {
			l.st = stateRTCM3Payload
		}
	case stateRTCM3Payload:
		if len(l.in)-3 >= l.expectLen {
			l.st = stateRTCM3CRC
		}
	case stateRTCM3CRC:
		if len(l.in) >= 3+l.expectLen+3 {
			if !l.enabled(RTCM3) {
				l.discard()
				return Packet{}, false
			}
			if !checksum.RTCM3.Verify(l.in) {
				l.discard()
				return Packet{}, false
			}
			return l.emit(RTCM3)
		}
	}
	if len(l.in) > MaxPacketLength {
		l.discard()
	}
	return Packet{}, false
}

// --- SiRF ----------------------------------------------------------------

func (l *Lexer) sirf(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	switch l.st {
	case stateSiRFLen1:
		if b != 0xA2 {
			l.discard()
			return Packet{}, false
		}
		l.st = stateSiRFLen2
	case stateSiRFLen2:
		l.st = stateSiRFPayload
	case stateSiRFPayload:
		if l.expectLen == 0 && len(l.in) == 4 {
			hi := int(l.in[2])
			lo := int(l.in[3])
			l.expectLen = hi<<8 | lo
			if l.expectLen == 0 {
				l.st = stateSiRFCK
			}
		}
		if l.expectLen > 0 && len(l.in)-4 >= l.expectLen {
			l.st = stateSiRFCK
		}
	case stateSiRFCK:
		if len(l.in) >= 4+l.expectLen+2 {
			l.st = stateSiRFEnd
		}
	case stateSiRFEnd:
		if len(l.in) >= 4+l.expectLen+4 {
			if !l.enabled(SiRF) {
				l.discard()
				return Packet{}, false
			}
			payload := l.in[4 : 4+l.expectLen]
			sum := checksum.SiRF.Compute(payload)
			want := uint16(l.in[4+l.expectLen])<<8 | uint16(l.in[4+l.expectLen+1])
			trailerOK := l.in[len(l.in)-2] == 0xB0 && l.in[len(l.in)-1] == 0xB3
			if sum != want || !trailerOK {
				l.discard()
				return Packet{}, false
			}
			return l.emit(SiRF)
		}
	}
	if len(l.in) > MaxPacketLength {
		l.discard()
	}
	return Packet{}, false
}

// --- TSIP ------------------------------------------------------------

// tsip accumulates a DLE-stuffed TSIP packet: 0x10 <id> <data...> 0x10 0x03,
// where any literal 0x10 in the data is doubled by the sender. Checksum
// integrity here is framing-only, per spec.md §4.B.
func (l *Lexer) tsip(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	n := len(l.in)
	if n >= 4 && l.in[n-2] == 0x10 && l.in[n-1] == 0x03 {
		// Count trailing 0x10s to make sure this isn't a stuffed 0x10
		// immediately followed by a real 0x03 that happens to land after
		// an odd run; a simple parity check over trailing DLEs suffices
		// for framing purposes.
		run := 0
		for i := n - 2; i >= 1 && l.in[i] == 0x10; i-- {
			run++
		}
		if run%2 == 1 {
			if !l.enabled(TSIP) {
				l.discard()
				return Packet{}, false
			}
			return l.emit(TSIP)
		}
	}
	if n > MaxPacketLength {
		l.discard()
	}
	return Packet{}, false
}

// --- Garmin (DLE-stuffed, like TSIP but with an 8-bit checksum byte
// preceding the 0x10 0x03 trailer) -------------------------------------

func (l *Lexer) garmin(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	n := len(l.in)
	if n >= 5 && l.in[n-2] == 0x10 && l.in[n-1] == 0x03 {
		run := 0
		for i := n - 2; i >= 1 && l.in[i] == 0x10; i-- {
			run++
		}
		if run%2 == 1 {
			if !l.enabled(GARMIN) {
				l.discard()
				return Packet{}, false
			}
			unstuffed := checksum.DestuffDLE(l.in[1 : n-2])
			if !checksum.Garmin.Verify(unstuffed) {
				l.discard()
				return Packet{}, false
			}
			return l.emit(GARMIN)
		}
	}
	if n > MaxPacketLength {
		l.discard()
	}
	return Packet{}, false
}

func (l *Lexer) garminTxt(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	if b == '\n' || len(l.in) > MaxPacketLength {
		if !l.enabled(GARMIN_TXT) {
			l.discard()
			return Packet{}, false
		}
		return l.emit(GARMIN_TXT)
	}
	return Packet{}, false
}

// --- Zodiac --------------------------------------------------------------

func (l *Lexer) zodiac(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	switch l.st {
	case stateZodiacSync2:
		if b != 0x81 {
			l.discard()
			return Packet{}, false
		}
		l.st = stateZodiacHeader
	case stateZodiacHeader:
		// Fixed 10-byte header: sync(2) id(2) len(2) flags(2) csum(2).
		if len(l.in) == 10 {
			lo := int(l.in[4])
			hi := int(l.in[5])
			l.expectLen = (lo | hi<<8) * 2 // length is in 16-bit words
			if l.expectLen == 0 {
				if !l.enabled(ZODIAC) {
					l.discard()
					return Packet{}, false
				}
				if !verifyZodiacHeader(l.in) {
					l.discard()
					return Packet{}, false
				}
				return l.emit(ZODIAC)
			}
			l.st = stateZodiacPayload
		}
	case stateZodiacPayload:
		if len(l.in)-10 >= l.expectLen {
			if !l.enabled(ZODIAC) {
				l.discard()
				return Packet{}, false
			}
			if !verifyZodiacHeader(l.in) {
				l.discard()
				return Packet{}, false
			}
			return l.emit(ZODIAC)
		}
	}
	if len(l.in) > MaxPacketLength {
		l.discard()
	}
	return Packet{}, false
}

func verifyZodiacHeader(frame []byte) bool {
	if len(frame) < 10 {
		return false
	}
	header := frame[:8]
	want := uint16(frame[8]) | uint16(frame[9])<<8
	return checksum.Zodiac.Compute(header) == want
}

// --- EverMore --------------------------------------------------------

func (l *Lexer) evermore(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	switch l.st {
	case stateEverMoreLen:
		if b != 0x81 {
			l.discard()
			return Packet{}, false
		}
		l.st = stateEverMorePayload
	case stateEverMorePayload:
		if len(l.in) == 4 {
			lo := int(l.in[2])
			hi := int(l.in[3])
			l.expectLen = lo | hi<<8
		}
		if l.expectLen > 0 && len(l.in)-4 >= l.expectLen+3 { // +checksum(1)+trailer(2)
			if !l.enabled(EVERMORE) {
				l.discard()
				return Packet{}, false
			}
			return l.emit(EVERMORE)
		}
	}
	if len(l.in) > MaxPacketLength {
		l.discard()
	}
	return Packet{}, false
}

// --- Generic length-prefixed niche protocols --------------------------

func (l *Lexer) generic2(b byte) (Packet, bool) {
	l.in = append(l.in, b)
	if len(l.in) == 2 {
		var key [2]byte
		copy(key[:], l.in)
		proto, ok := genericLeadIns[key]
		if !ok {
			l.discard()
			return Packet{}, false
		}
		l.generic = proto
		l.st = stateGenericPayload
		return Packet{}, false
	}
	if len(l.in) == l.generic.leadLen {
		lo := int(l.in[l.generic.lenOffset])
		hi := 0
		if l.generic.lenOffset+1 < l.generic.leadLen {
			hi = int(l.in[l.generic.lenOffset+1])
		}
		if l.generic.bigEndian {
			l.expectLen = lo<<8 | hi
		} else {
			l.expectLen = lo | hi<<8
		}
	}
	total := l.generic.leadLen + l.expectLen + l.generic.trailer
	if len(l.in) >= l.generic.leadLen && len(l.in) >= total {
		if !l.enabled(l.generic.typ) {
			l.discard()
			return Packet{}, false
		}
		return l.emit(l.generic.typ)
	}
	if len(l.in) > MaxPacketLength {
		l.discard()
	}
	return Packet{}, false
}
