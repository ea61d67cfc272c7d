package lexer

// PacketType tags a framed packet with the wire protocol the lexer
// recognized it as (spec.md §3, "Packet (lexer output)").
type PacketType int

const (
	BAD PacketType = iota
	NMEA
	AIVDM
	UBX
	SiRF
	TSIP
	ZODIAC
	EVERMORE
	GARMIN
	GARMIN_TXT
	ITALK
	NAVCOM
	SUPERSTAR2
	ONCORE
	GEOSTAR
	SKY
	RTCM2
	RTCM3
	JSON
	SPARTN
	COMMENT
)

func (t PacketType) String() string {
	switch t {
	case NMEA:
		return "NMEA"
	case AIVDM:
		return "AIVDM"
	case UBX:
		return "UBX"
	case SiRF:
		return "SiRF"
	case TSIP:
		return "TSIP"
	case ZODIAC:
		return "ZODIAC"
	case EVERMORE:
		return "EVERMORE"
	case GARMIN:
		return "GARMIN"
	case GARMIN_TXT:
		return "GARMIN_TXT"
	case ITALK:
		return "ITALK"
	case NAVCOM:
		return "NAVCOM"
	case SUPERSTAR2:
		return "SUPERSTAR2"
	case ONCORE:
		return "ONCORE"
	case GEOSTAR:
		return "GEOSTAR"
	case SKY:
		return "SKY"
	case RTCM2:
		return "RTCM2"
	case RTCM3:
		return "RTCM3"
	case JSON:
		return "JSON"
	case SPARTN:
		return "SPARTN"
	case COMMENT:
		return "COMMENT"
	default:
		return "BAD"
	}
}

// MaxPacketLength bounds the lexer's internal buffers (spec.md §4.D).
const MaxPacketLength = 12288

// Packet is one framed unit of output from the lexer: the protocol tag,
// the raw framed bytes (including any lead-in/trailer), and bookkeeping
// counters carried from spec.md §3.
type Packet struct {
	Type         PacketType
	Payload      []byte
	Length       int
	Counter      int
	RetryCounter int
}

// TypeMask lets a caller suppress recognition of specific protocols —
// used by default to disable SPARTN, whose lead-in pattern collides with
// ordinary binary noise (spec.md §4.D).
type TypeMask uint32

func MaskFor(t PacketType) TypeMask { return TypeMask(1) << uint(t) }

// DefaultTypeMask disables SPARTN recognition by default.
func DefaultTypeMask() TypeMask { return MaskFor(SPARTN) }

func (m TypeMask) disabled(t PacketType) bool { return m&MaskFor(t) != 0 }
