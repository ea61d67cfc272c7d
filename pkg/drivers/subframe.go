package drivers

import (
	"encoding/binary"
	"fmt"
	"regexp"

	"github.com/northfall/gnssmux/pkg/bitutil"
	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/lexer"
	"github.com/northfall/gnssmux/pkg/subframe"
)

// ubxSFRBXClass/ID identify the UBX-RXM-SFRBX message that carries raw
// GPS LNAV subframe words, the only UBX message this module decodes
// further (everything else UBX-framed is preserved only as far as the
// lexer's lead-in/checksum recognition, per the genericProto note in
// pkg/lexer).
const (
	ubxSFRBXClass = 0x02
	ubxSFRBXID    = 0x13
	ubxHeaderLen  = 6 // sync(2) + class + id + length(2)
	sfrbxBodyLen  = 8 // gnssId, svId, reserved1, freqId, numWords, chn, version, reserved2
	subframeWords = 10
)

// SubframeDriver extracts UBX-RXM-SFRBX payloads and decodes the GPS
// LNAV subframe they carry, tracking each SV's carried handover-word
// parity bits across calls so a subframe's first word can be validated
// against the previous subframe's last word, per spec.md §4.F.5.
type SubframeDriver struct {
	parityBySV map[int][2]bool // [d29Star, d30Star]
}

// NewSubframeDriver creates a subframe driver with empty per-SV parity
// state.
func NewSubframeDriver() *SubframeDriver {
	return &SubframeDriver{parityBySV: make(map[int][2]bool)}
}

func (d *SubframeDriver) Name() string                    { return "UBX-RXM-SFRBX" }
func (d *SubframeDriver) PacketTypes() []lexer.PacketType { return []lexer.PacketType{lexer.UBX} }
func (d *SubframeDriver) Trigger() *regexp.Regexp         { return nil }
func (d *SubframeDriver) Hooks() driver.EventHooks        { return driver.EventHooks{} }

// Parse ignores every UBX message except RXM-SFRBX, decodes the
// enclosed subframe, and publishes it under the SUBFRAME class.
func (d *SubframeDriver) Parse(h driver.Host, pkt lexer.Packet) error {
	fh, ok := asFixHost(h)
	if !ok {
		return nil
	}
	frame := pkt.Payload
	if len(frame) < ubxHeaderLen+sfrbxBodyLen+2 {
		return nil
	}
	class, id := frame[2], frame[3]
	if class != ubxSFRBXClass || id != ubxSFRBXID {
		return nil
	}

	body := frame[ubxHeaderLen : len(frame)-2]
	svID := int(body[1])
	dwrds := body[sfrbxBodyLen:]
	if len(dwrds) < subframeWords*4 {
		return nil
	}

	packed, lastWord := packSubframeWords(dwrds)

	parity := d.parityBySV[svID]
	sf, err := subframe.Decode(packed, parity[0], parity[1])
	if err != nil {
		return fmt.Errorf("subframe: decode sv %d: %w", svID, err)
	}
	d.parityBySV[svID] = [2]bool{lastWord&(1<<1) != 0, lastWord&1 != 0}

	return fh.PublishRaw("SUBFRAME", sf)
}

// packSubframeWords repacks ten UBX-RXM-SFRBX DWRD fields — each a
// 4-byte container holding one 30-bit GPS navigation word right-
// aligned in its low 30 bits — into the continuous 300-bit buffer
// subframe.Decode expects, and returns the final word (masked to its
// low 30 bits) for handover-word parity carry into the next subframe.
func packSubframeWords(dwrds []byte) (packed []byte, lastWord uint32) {
	packed = make([]byte, (subframeWords*30+7)/8)
	bitOffset := 0
	for i := 0; i < subframeWords; i++ {
		word := binary.BigEndian.Uint32(dwrds[i*4:]) & 0x3FFFFFFF
		bitutil.PutBEU(packed, bitOffset, 30, uint64(word))
		bitOffset += 30
		if i == subframeWords-1 {
			lastWord = word
		}
	}
	return packed, lastWord
}
