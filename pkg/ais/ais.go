// Package ais decodes AIVDM-wrapped AIS payloads (spec.md §4.F.1): the
// six-bit ASCII armoring, multi-sentence reassembly for fragmented
// messages, and the fixed-layout fields of the more common message
// types. Less common or vendor DAC/FID binary payloads are preserved
// unscaled as a Raw case rather than dropped, per spec.md's "tagged
// unions over very wide type spaces" guidance.
package ais

import (
	"fmt"
)

// MessageType is the AIS message type field (bits 0-5 of every payload).
type MessageType int

const (
	TypePositionReportA        MessageType = 1
	TypePositionReportAAssigned MessageType = 2
	TypePositionReportAResponse MessageType = 3
	TypeBaseStation             MessageType = 4
	TypeStaticAndVoyage         MessageType = 5
	TypeBinaryAddressed         MessageType = 6
	TypeBinaryAcknowledge       MessageType = 7
	TypeBinaryBroadcast         MessageType = 8
	TypeSARAircraft             MessageType = 9
	TypeUTCInquiry              MessageType = 10
	TypeUTCResponse             MessageType = 11
	TypeSafetyAddressed         MessageType = 12
	TypeSafetyAcknowledge       MessageType = 13
	TypeSafetyBroadcast         MessageType = 14
	TypeInterrogation           MessageType = 15
	TypeAssignment              MessageType = 16
	TypeDGNSSBroadcast          MessageType = 17
	TypeClassBPositionReport    MessageType = 18
	TypeClassBExtendedReport    MessageType = 19
	TypeDataLinkManagement      MessageType = 20
	TypeAidToNavigation         MessageType = 21
	TypeChannelManagement       MessageType = 22
	TypeGroupAssignment         MessageType = 23
	TypeStaticDataReport        MessageType = 24
	TypeSingleSlotBinary        MessageType = 25
	TypeMultiSlotBinary         MessageType = 26
	TypeLongRangeReport         MessageType = 27
)

// Message is the decoded tagged union (ais_t of spec.md §3). Exactly one
// of the typed fields is populated according to Type; Raw is that field
// for the message types this decoder does not interpret.
type Message struct {
	Type MessageType
	MMSI uint32

	PositionReport *PositionReport
	BaseStation    *BaseStationReport
	StaticVoyage   *StaticVoyageData
	ClassBPosition *ClassBPositionReport
	StaticPartA    *StaticDataPartA
	StaticPartB    *StaticDataPartB

	// Raw preserves the undecoded bit payload for message types (or
	// DAC/FID combinations within type 6/8) this decoder does not
	// interpret, so round-tripping is still possible.
	Raw *RawPayload
}

// RawPayload is the fallback case for unrecognized message types or
// DAC/FID pairs: the original payload with its bit count, so a six-bit
// re-armoring round-trips exactly.
type RawPayload struct {
	BitCount int
	Bits     []byte // one bit per byte, MSB-first order, length == BitCount
}

// PositionReport covers message types 1, 2 and 3 (Class A position
// report), which share one field layout differing only by semantics of
// a couple of status fields.
type PositionReport struct {
	Status           int
	RateOfTurn       int
	SpeedOverGround   float64 // knots: the raw field divided by 10
	PositionAccuracy bool
	Longitude        float64 // decimal degrees
	Latitude         float64
	CourseOverGround float64 // degrees
	TrueHeading      int
	Timestamp        int // UTC second
	ManeuverIndicator int
	RAIM             bool
}

// BaseStationReport covers message type 4.
type BaseStationReport struct {
	Year, Month, Day, Hour, Minute, Second int
	PositionAccuracy                       bool
	Longitude, Latitude                    float64
	EPFDType                               int
	RAIM                                   bool
}

// StaticVoyageData covers message type 5.
type StaticVoyageData struct {
	AISVersion    int
	IMONumber     uint32
	CallSign      string
	ShipName      string
	ShipType      int
	Dimension     [4]int // to bow, to stern, to port, to starboard, meters
	EPFDType      int
	ETAMonth, ETADay, ETAHour, ETAMinute int
	Draught       float64
	Destination   string
}

// ClassBPositionReport covers message types 18 and 19.
type ClassBPositionReport struct {
	SpeedOverGround   float64
	PositionAccuracy  bool
	Longitude, Latitude float64
	CourseOverGround  float64
	TrueHeading       int
	Timestamp         int
}

// StaticDataPartA is message type 24, part number 0.
type StaticDataPartA struct {
	ShipName string
}

// StaticDataPartB is message type 24, part number 1.
type StaticDataPartB struct {
	ShipType  int
	VendorID  string
	CallSign  string
	Dimension [4]int
}

// sixBitValue decodes one character of the AIS payload armoring
// alphabet (ITU-R M.1371 Table 47): ASCII 48-87 map directly to 0-39,
// ASCII 96-119 map to 40-63.
func sixBitValue(c byte) (int, error) {
	switch {
	case c >= 48 && c <= 87:
		return int(c) - 48, nil
	case c >= 96 && c <= 119:
		return int(c) - 56, nil
	default:
		return 0, fmt.Errorf("ais: byte %q is not in the six-bit payload alphabet", c)
	}
}

// armorToBits expands a six-bit-armored payload string into a packed bit
// array, dropping the trailing fillBits padding bits.
func armorToBits(payload string, fillBits int) ([]byte, error) {
	bits := make([]byte, 0, len(payload)*6)
	for i := 0; i < len(payload); i++ {
		v, err := sixBitValue(payload[i])
		if err != nil {
			return nil, err
		}
		for shift := 5; shift >= 0; shift-- {
			bits = append(bits, byte((v>>shift)&1))
		}
	}
	if fillBits > 0 && fillBits <= len(bits) {
		bits = bits[:len(bits)-fillBits]
	}
	return bits, nil
}

func bitsToUint(bits []byte, offset, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<1 | uint64(bits[offset+i])
	}
	return v
}

func bitsToInt(bits []byte, offset, width int) int64 {
	u := bitsToUint(bits, offset, width)
	if bits[offset] == 1 {
		return int64(u) - (1 << uint(width))
	}
	return int64(u)
}

func bitsToString(bits []byte, offset, width int) string {
	const alphabet = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^- !\"#$%&'()*+,-./0123456789:;<=>?"
	n := width / 6
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		v := bitsToUint(bits, offset+i*6, 6)
		if int(v) < len(alphabet) {
			out = append(out, alphabet[v])
		}
	}
	return trimTrailing(string(out))
}

func trimTrailing(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == '@' || s[end-1] == ' ') {
		end--
	}
	return s[:end]
}

// Fragment is one AIVDM sentence's payload, already split from its
// comma-delimited wrapper, ready to either decode standalone (total
// fragments == 1) or be added to a Reassembler.
type Fragment struct {
	Channel        string
	TotalFragments int
	FragmentNumber int
	SequenceID     int
	Payload        string
	FillBits       int
}

// Reassembler accumulates fragments of a multipart AIS message (types 5,
// 8, 24, or any type split across sentences) keyed by channel and
// sequence id, per spec.md §4.F.1 and the completeness property of
// spec.md §8 item 4.
type Reassembler struct {
	pending map[string][]Fragment
}

// NewReassembler creates an empty multipart-message reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{pending: make(map[string][]Fragment)}
}

func key(f Fragment) string {
	return fmt.Sprintf("%s/%d", f.Channel, f.SequenceID)
}

// Add folds in one fragment. When the fragment completes a message (its
// FragmentNumber equals TotalFragments, and every prior fragment for the
// same channel/sequence id has been seen in order), Add returns the
// concatenated payload and fill-bit count ready for Decode.
func (r *Reassembler) Add(f Fragment) (payload string, fillBits int, complete bool) {
	if f.TotalFragments <= 1 {
		return f.Payload, f.FillBits, true
	}
	k := key(f)
	r.pending[k] = append(r.pending[k], f)
	frags := r.pending[k]
	if len(frags) != f.FragmentNumber {
		// Out of order or a gap: not yet complete. The fragments stay
		// in r.pending; nothing in the Reassembler removes an entry that
		// never completes.
		return "", 0, false
	}
	if f.FragmentNumber < f.TotalFragments {
		return "", 0, false
	}
	var combined string
	for _, frag := range frags {
		combined += frag.Payload
	}
	delete(r.pending, k)
	return combined, f.FillBits, true
}

// Decode interprets an armored AIS payload (already reassembled if it
// was fragmented) into a Message.
func Decode(payload string, fillBits int) (Message, error) {
	bits, err := armorToBits(payload, fillBits)
	if err != nil {
		return Message{}, err
	}
	if len(bits) < 38 {
		return Message{}, fmt.Errorf("ais: payload too short for a message type and MMSI (%d bits)", len(bits))
	}
	typ := MessageType(bitsToUint(bits, 0, 6))
	mmsi := uint32(bitsToUint(bits, 8, 30))

	msg := Message{Type: typ, MMSI: mmsi}
	switch typ {
	case TypePositionReportA, TypePositionReportAAssigned, TypePositionReportAResponse:
		msg.PositionReport = decodePositionReport(bits)
	case TypeBaseStation:
		msg.BaseStation = decodeBaseStation(bits)
	case TypeStaticAndVoyage:
		msg.StaticVoyage = decodeStaticVoyage(bits)
	case TypeClassBPositionReport, TypeClassBExtendedReport:
		msg.ClassBPosition = decodeClassBPosition(bits)
	case TypeStaticDataReport:
		part := bitsToUint(bits, 38, 2)
		if part == 0 {
			msg.StaticPartA = &StaticDataPartA{ShipName: bitsToString(bits, 40, 120)}
		} else {
			msg.StaticPartB = decodeStaticPartB(bits)
		}
	default:
		msg.Raw = &RawPayload{BitCount: len(bits), Bits: bits}
	}
	return msg, nil
}

func decodePositionReport(bits []byte) *PositionReport {
	return &PositionReport{
		Status:            int(bitsToUint(bits, 38, 4)),
		RateOfTurn:        int(bitsToInt(bits, 42, 8)),
		SpeedOverGround:   float64(bitsToUint(bits, 50, 10)) / 10.0,
		PositionAccuracy:  bitsToUint(bits, 60, 1) == 1,
		Longitude:         float64(bitsToInt(bits, 61, 28)) / 600000.0,
		Latitude:          float64(bitsToInt(bits, 89, 27)) / 600000.0,
		CourseOverGround:  float64(bitsToUint(bits, 116, 12)) / 10.0,
		TrueHeading:       int(bitsToUint(bits, 128, 9)),
		Timestamp:         int(bitsToUint(bits, 137, 6)),
		ManeuverIndicator: int(bitsToUint(bits, 143, 2)),
		RAIM:              bitsToUint(bits, 148, 1) == 1,
	}
}

func decodeBaseStation(bits []byte) *BaseStationReport {
	return &BaseStationReport{
		Year:             int(bitsToUint(bits, 38, 14)),
		Month:            int(bitsToUint(bits, 52, 4)),
		Day:              int(bitsToUint(bits, 56, 5)),
		Hour:             int(bitsToUint(bits, 61, 5)),
		Minute:           int(bitsToUint(bits, 66, 6)),
		Second:           int(bitsToUint(bits, 72, 6)),
		PositionAccuracy: bitsToUint(bits, 78, 1) == 1,
		Longitude:        float64(bitsToInt(bits, 79, 28)) / 600000.0,
		Latitude:         float64(bitsToInt(bits, 107, 27)) / 600000.0,
		EPFDType:         int(bitsToUint(bits, 134, 4)),
		RAIM:             bitsToUint(bits, 148, 1) == 1,
	}
}

func decodeStaticVoyage(bits []byte) *StaticVoyageData {
	s := &StaticVoyageData{
		AISVersion: int(bitsToUint(bits, 38, 2)),
		IMONumber:  uint32(bitsToUint(bits, 40, 30)),
		CallSign:   bitsToString(bits, 70, 42),
		ShipName:   bitsToString(bits, 112, 120),
		ShipType:   int(bitsToUint(bits, 232, 8)),
	}
	s.Dimension = [4]int{
		int(bitsToUint(bits, 240, 9)),
		int(bitsToUint(bits, 249, 9)),
		int(bitsToUint(bits, 258, 6)),
		int(bitsToUint(bits, 264, 6)),
	}
	s.EPFDType = int(bitsToUint(bits, 270, 4))
	s.ETAMonth = int(bitsToUint(bits, 274, 4))
	s.ETADay = int(bitsToUint(bits, 278, 5))
	s.ETAHour = int(bitsToUint(bits, 283, 5))
	s.ETAMinute = int(bitsToUint(bits, 288, 6))
	s.Draught = float64(bitsToUint(bits, 294, 8)) / 10.0
	s.Destination = bitsToString(bits, 302, 120)
	return s
}

func decodeClassBPosition(bits []byte) *ClassBPositionReport {
	return &ClassBPositionReport{
		SpeedOverGround:  float64(bitsToUint(bits, 46, 10)) / 10.0,
		PositionAccuracy: bitsToUint(bits, 56, 1) == 1,
		Longitude:        float64(bitsToInt(bits, 57, 28)) / 600000.0,
		Latitude:         float64(bitsToInt(bits, 85, 27)) / 600000.0,
		CourseOverGround: float64(bitsToUint(bits, 112, 12)) / 10.0,
		TrueHeading:      int(bitsToUint(bits, 124, 9)),
		Timestamp:        int(bitsToUint(bits, 133, 6)),
	}
}

func decodeStaticPartB(bits []byte) *StaticDataPartB {
	b := &StaticDataPartB{
		ShipType: int(bitsToUint(bits, 40, 8)),
		VendorID: bitsToString(bits, 48, 18),
		CallSign: bitsToString(bits, 90, 42),
	}
	b.Dimension = [4]int{
		int(bitsToUint(bits, 132, 9)),
		int(bitsToUint(bits, 141, 9)),
		int(bitsToUint(bits, 150, 6)),
		int(bitsToUint(bits, 156, 6)),
	}
	return b
}
