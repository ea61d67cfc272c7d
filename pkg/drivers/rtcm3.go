package drivers

import (
	"fmt"
	"regexp"

	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/gnssgo/rtcm"
	"github.com/northfall/gnssmux/pkg/lexer"
)

// RTCM3Driver decodes RTCM3 messages claimed by the lexer as
// lexer.RTCM3 packets, reusing pkg/gnssgo/rtcm's parser/decoder rather
// than reimplementing CRC-24Q framing and the per-message-type bit
// layouts it already covers.
type RTCM3Driver struct {
	parser *rtcm.RTCMParser
}

// NewRTCM3Driver creates an RTCM3 driver wrapping a fresh RTCMParser.
func NewRTCM3Driver() *RTCM3Driver {
	return &RTCM3Driver{parser: rtcm.NewRTCMParser()}
}

func (d *RTCM3Driver) Name() string                    { return "RTCM3" }
func (d *RTCM3Driver) PacketTypes() []lexer.PacketType { return []lexer.PacketType{lexer.RTCM3} }
func (d *RTCM3Driver) Trigger() *regexp.Regexp         { return nil }
func (d *RTCM3Driver) Hooks() driver.EventHooks        { return driver.EventHooks{} }

// Parse re-extracts and CRC-validates the already-lexer-framed payload
// (ParseRTCMMessage re-finds the 0xD3 preamble the lexer already
// located; redundant but cheap, and it keeps this driver from having to
// duplicate the parser's length/CRC bookkeeping) and publishes the
// typed decode under the RTCM3 class.
func (d *RTCM3Driver) Parse(h driver.Host, pkt lexer.Packet) error {
	fh, ok := asFixHost(h)
	if !ok {
		return nil
	}
	messages, _, err := d.parser.ParseRTCMMessage(pkt.Payload)
	if err != nil {
		return fmt.Errorf("rtcm3: parse: %w", err)
	}
	for i := range messages {
		decoded, err := rtcm.DecodeRTCMMessage(&messages[i])
		if err != nil {
			if perr := fh.PublishRaw("RTCM3", messages[i]); perr != nil {
				return perr
			}
			continue
		}
		if err := fh.PublishRaw("RTCM3", decoded); err != nil {
			return err
		}
	}
	return nil
}
