// Package subframe decodes GPS LNAV navigation message subframes
// (spec.md §4.F.5): ten 30-bit words per subframe, the same
// handover-word-chained parity scheme RTCM2 word streams use
// (pkg/bitutil.GPSWordParity), classified by subframe number 1-5 and,
// for subframes 4 and 5, demultiplexed by page (SV ID) into almanac,
// ionospheric/UTC, and health data.
package subframe

import (
	"fmt"

	"github.com/northfall/gnssmux/pkg/bitutil"
)

// preamble is the fixed 8-bit telemetry-word lead-in (10001011) that
// opens every subframe's first word.
const preamble = 0x8B

// Subframe is one decoded 300-bit GPS navigation message subframe.
type Subframe struct {
	SubframeID int // 1-5
	TOW17      uint32 // truncated time-of-week count, from the handover word
	Alert      bool
	AntiSpoof  bool

	Ephemeris1 *Ephemeris1 // subframe 1
	Ephemeris2 *Ephemeris2 // subframe 2
	Ephemeris3 *Ephemeris3 // subframe 3
	Almanac    *Almanac    // subframes 4/5, data pages
	Health     *PageHealth // subframes 4/5, SV health pages

	// Raw holds the ten parity-stripped 24-bit data words of every
	// subframe, whether or not it is also decoded into a typed payload.
	Raw [10]uint32
}

// Ephemeris1 is subframe 1: clock correction terms and week number.
type Ephemeris1 struct {
	WeekNumber  int
	CodeOnL2    int
	URA         int
	SVHealth    int
	IODC        int
	TGD         float64 // seconds
	Toc         float64 // seconds of week
	AF2         float64 // sec/sec^2
	AF1         float64 // sec/sec
	AF0         float64 // sec
}

// Ephemeris2 is subframe 2: orbit parameters, part 1.
type Ephemeris2 struct {
	IODE   int
	Crs    float64 // meters
	DeltaN float64 // radians/sec
	M0     float64 // radians
	Cuc    float64 // radians
	E      float64 // eccentricity
	Cus    float64 // radians
	SqrtA  float64 // sqrt(meters)
	Toe    float64 // seconds of week
}

// Ephemeris3 is subframe 3: orbit parameters, part 2.
type Ephemeris3 struct {
	Cic      float64 // radians
	Omega0   float64 // radians
	Cis      float64 // radians
	I0       float64 // radians
	Crc      float64 // meters
	Omega    float64 // radians (argument of perigee)
	OmegaDot float64 // radians/sec
	IODE     int
	IDOT     float64 // radians/sec
}

// Almanac is one SV's almanac entry, carried on subframes 4/5 pages
// 1-24 (pages are demultiplexed by the data ID + SV ID in words 3).
type Almanac struct {
	SVID      int
	Eccentricity float64
	Toa          float64
	DeltaI       float64
	OmegaDot     float64
	SVHealth     int
	SqrtA        float64
	Omega0       float64
	Omega        float64
	M0           float64
	AF0          float64
	AF1          float64
}

// PageHealth carries the SV health page (subframe 4 page 25 / subframe
// 5 page 25) and, for subframe 4, the ionospheric/UTC parameters page
// (page 18).
type PageHealth struct {
	SVHealth [32]int
	Ionosphere *Ionosphere
	UTC        *UTCParams
}

// Ionosphere is the Klobuchar ionospheric correction model, subframe 4
// page 18.
type Ionosphere struct {
	Alpha [4]float64
	Beta  [4]float64
}

// UTCParams is the UTC/leap-second model, subframe 4 page 18.
type UTCParams struct {
	A0, A1   float64
	Tot      float64
	WNt      int
	LeapSecs int
	WNlsf    int
	DN       int
	LeapSecsFuture int
}

// wordReader mirrors pkg/rtcm2's chained-parity word reader; GPS
// subframes and RTCM2 messages share the same 30-bit word format.
type wordReader struct {
	buf       []byte
	bitOffset int
	d29Star   bool
	d30Star   bool
}

func newWordReader(buf []byte, d29Star, d30Star bool) *wordReader {
	return &wordReader{buf: buf, d29Star: d29Star, d30Star: d30Star}
}

func (r *wordReader) next() (data uint32, ok bool, err error) {
	if r.bitOffset+30 > len(r.buf)*8 {
		return 0, false, fmt.Errorf("subframe: truncated word stream")
	}
	word := uint32(bitutil.GetBEU(r.buf, r.bitOffset, 30))
	r.bitOffset += 30
	data, valid := bitutil.ValidateGPSWord(word, r.d29Star, r.d30Star)
	r.d29Star = word&(1<<1) != 0
	r.d30Star = word&1 != 0
	return data, valid, nil
}

// Decode reads one 300-bit (ten-word) GPS subframe from buf, given the
// carried D29*/D30* bits of the word immediately preceding it (zero
// for the first subframe of a session).
func Decode(buf []byte, d29Star, d30Star bool) (Subframe, error) {
	r := newWordReader(buf, d29Star, d30Star)

	tlm, ok, err := r.next()
	if err != nil {
		return Subframe{}, err
	}
	if !ok {
		return Subframe{}, fmt.Errorf("subframe: telemetry word parity failed")
	}
	if byte(tlm>>16) != preamble {
		return Subframe{}, fmt.Errorf("subframe: preamble mismatch (got 0x%02X)", byte(tlm>>16))
	}

	how, ok, err := r.next()
	if err != nil {
		return Subframe{}, err
	}
	if !ok {
		return Subframe{}, fmt.Errorf("subframe: handover word parity failed")
	}

	sf := Subframe{
		TOW17:      (how >> 7) & 0x1FFFF,
		Alert:      how&(1<<6) != 0,
		AntiSpoof:  how&(1<<5) != 0,
		SubframeID: int((how >> 2) & 0x7),
	}

	var words [8]uint32
	for i := 0; i < 8; i++ {
		w, ok, err := r.next()
		if err != nil {
			return Subframe{}, err
		}
		if !ok {
			return Subframe{}, fmt.Errorf("subframe: data word %d parity failed", i+3)
		}
		words[i] = w
		sf.Raw[i+2] = w
	}
	sf.Raw[0], sf.Raw[1] = tlm, how

	switch sf.SubframeID {
	case 1:
		sf.Ephemeris1 = decodeEphemeris1(words)
	case 2:
		sf.Ephemeris2 = decodeEphemeris2(words)
	case 3:
		sf.Ephemeris3 = decodeEphemeris3(words)
	case 4, 5:
		decodePage(&sf, words)
	}
	return sf, nil
}

func signExtend(v uint32, bits uint) float64 {
	shift := 32 - bits
	return float64(int32(v<<shift) >> shift)
}

func decodeEphemeris1(w [8]uint32) *Ephemeris1 {
	e := &Ephemeris1{}
	e.WeekNumber = int((w[0] >> 14) & 0x3FF)
	e.CodeOnL2 = int((w[0] >> 12) & 0x3)
	e.URA = int((w[0] >> 8) & 0xF)
	e.SVHealth = int((w[0] >> 2) & 0x3F)
	iodcHigh := (w[0]) & 0x3
	e.TGD = signExtend(w[1]&0xFF, 8) * twoMinus31
	iodcLow := (w[2] >> 16) & 0xFF
	e.IODC = int(iodcHigh<<8 | iodcLow)
	e.Toc = float64((w[2])&0xFFFF) * 16
	e.AF2 = signExtend(w[3]>>16, 8) * twoMinus55
	e.AF1 = signExtend(w[3]&0xFFFF, 16) * twoMinus43
	e.AF0 = signExtend(w[4]>>2, 22) * twoMinus31
	return e
}

func decodeEphemeris2(w [8]uint32) *Ephemeris2 {
	e := &Ephemeris2{}
	e.IODE = int((w[0] >> 16) & 0xFF)
	e.Crs = signExtend(w[0]&0xFFFF, 16) * twoMinus5
	e.DeltaN = signExtend(w[1]>>8, 16) * twoMinus43 * pi
	m0High := w[1] & 0xFF
	m0Low := w[2] >> 8
	e.M0 = signExtend(m0High<<24|m0Low, 32) * twoMinus31 * pi
	e.Cuc = signExtend(w[2]&0xFF<<8|(w[3]>>16), 16) * twoMinus29
	eHigh := w[3] & 0xFFFF
	eLow := w[4] >> 8
	e.E = float64(eHigh<<24|eLow) * twoMinus33
	e.Cus = signExtend(w[4]&0xFF, 16) * twoMinus29
	e.SqrtA = float64(w[5]&0xFFFFFF) * twoMinus19
	e.Toe = float64((w[7]>>8)&0xFFFF) * 16
	return e
}

func decodeEphemeris3(w [8]uint32) *Ephemeris3 {
	e := &Ephemeris3{}
	e.Cic = signExtend(w[0]>>8, 16) * twoMinus29
	omega0High := w[0] & 0xFF
	omega0Low := w[1] >> 8
	e.Omega0 = signExtend(omega0High<<24|omega0Low, 32) * twoMinus31 * pi
	e.Cis = signExtend(w[1]&0xFF<<8|(w[2]>>16), 16) * twoMinus29
	i0High := w[2] & 0xFFFF
	i0Low := w[3] >> 8
	e.I0 = signExtend(i0High<<24|i0Low, 32) * twoMinus31 * pi
	e.Crc = signExtend(w[3]&0xFF<<8|(w[4]>>16), 16) * twoMinus5
	omegaHigh := w[4] & 0xFFFF
	omegaLow := w[5] >> 8
	e.Omega = signExtend(omegaHigh<<24|omegaLow, 32) * twoMinus31 * pi
	e.OmegaDot = signExtend(w[5]&0xFF<<16|(w[6]>>8), 24) * twoMinus43 * pi
	e.IODE = int((w[7] >> 16) & 0xFF)
	e.IDOT = signExtend((w[7]>>2)&0x3FFF, 14) * twoMinus43 * pi
	return e
}

// decodePage demultiplexes subframes 4/5's SV-ID-keyed pages: almanac
// data (most SV IDs), the SV-health summary page, and (subframe 4
// page 18 only) ionospheric/UTC parameters.
func decodePage(sf *Subframe, w [8]uint32) {
	svID := int((w[0] >> 16) & 0x3F)
	switch {
	case svID == 63 && sf.SubframeID == 4:
		sf.Health = decodeIonoUTCPage(w)
	case svID == 0 || svID >= 25 && svID <= 32 && sf.SubframeID == 5:
		sf.Health = decodeHealthPage(w)
	default:
		sf.Almanac = decodeAlmanacPage(svID, w)
	}
}

func decodeAlmanacPage(svID int, w [8]uint32) *Almanac {
	a := &Almanac{SVID: svID}
	a.Eccentricity = float64(w[0]&0xFFFF) * twoMinus21
	a.Toa = float64((w[1]>>16)&0xFF) * 4096
	a.DeltaI = signExtend(w[1]&0xFFFF, 16) * twoMinus19 * pi
	a.OmegaDot = signExtend(w[2]>>8, 16) * twoMinus38 * pi
	a.SVHealth = int(w[2] & 0xFF)
	a.SqrtA = float64(w[3]) * twoMinus11
	a.Omega0 = signExtend(w[4], 24) * twoMinus23 * pi
	a.Omega = signExtend(w[5], 24) * twoMinus23 * pi
	a.M0 = signExtend(w[6], 24) * twoMinus23 * pi
	a.AF0 = signExtend((w[7]>>13)&0x7FF, 11) * twoMinus20
	a.AF1 = signExtend((w[7]>>2)&0x7FF, 11) * twoMinus38
	return a
}

func decodeHealthPage(w [8]uint32) *PageHealth {
	h := &PageHealth{}
	for i := 0; i < 24 && i < 32; i++ {
		wordIdx := i / 4
		shift := 18 - 6*(i%4)
		if wordIdx < 6 {
			h.SVHealth[i+1] = int((w[wordIdx] >> uint(shift)) & 0x3F)
		}
	}
	return h
}

func decodeIonoUTCPage(w [8]uint32) *PageHealth {
	h := &PageHealth{
		Ionosphere: &Ionosphere{},
		UTC:        &UTCParams{},
	}
	h.Ionosphere.Alpha[0] = signExtend(w[0]>>16, 8) * twoMinus30
	h.Ionosphere.Alpha[1] = signExtend(w[0]>>8, 8) * twoMinus27
	h.Ionosphere.Alpha[2] = signExtend(w[0], 8) * twoMinus24
	h.Ionosphere.Beta[0] = signExtend(w[1]>>16, 8) * twoP11
	h.Ionosphere.Beta[1] = signExtend(w[1]>>8, 8) * twoP14
	h.Ionosphere.Beta[2] = signExtend(w[1], 8) * twoP16
	h.Ionosphere.Beta[3] = signExtend(w[2]>>16, 8) * twoP16
	h.UTC.A1 = signExtend(w[2], 16) * twoMinus50
	h.UTC.A0 = signExtend(w[3], 24) * twoMinus30
	h.UTC.Tot = float64((w[4]>>16)&0xFF) * 4096
	h.UTC.WNt = int((w[4] >> 8) & 0xFF)
	h.UTC.LeapSecs = int(signExtend(w[4]&0xFF, 8))
	h.UTC.WNlsf = int((w[5] >> 16) & 0xFF)
	h.UTC.DN = int((w[5] >> 8) & 0xFF)
	h.UTC.LeapSecsFuture = int(signExtend(w[5]&0xFF, 8))
	return h
}

const (
	pi          = 3.1415926535898
	twoMinus5   = 1.0 / (1 << 5)
	twoMinus11  = 1.0 / (1 << 11)
	twoMinus19  = 1.0 / (1 << 19)
	twoMinus20  = 1.0 / (1 << 20)
	twoMinus21  = 1.0 / (1 << 21)
	twoMinus23  = 1.0 / (1 << 23)
	twoMinus24  = 1.0 / (1 << 24)
	twoMinus27  = 1.0 / (1 << 27)
	twoMinus29  = 1.0 / (1 << 29)
	twoMinus30  = 1.0 / (1 << 30)
	twoMinus31  = 1.0 / (1 << 31)
	twoMinus33  = 1.0 / (1 << 33)
	twoMinus38  = 1.0 / (1 << 38)
	twoMinus43  = 1.0 / (1 << 43)
	twoMinus50  = 1.0 / (1 << 50)
	twoMinus55  = 1.0 / (1 << 55)
	twoP11      = float64(1 << 11)
	twoP14      = float64(1 << 14)
	twoP16      = float64(1 << 16)
)
