package drivers

import (
	"fmt"
	"regexp"

	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/lexer"
	"github.com/northfall/gnssmux/pkg/rtcm2"
)

// RTCM2Driver decodes RTCM SC-104 version 2 frames claimed by the
// lexer as lexer.RTCM2 packets.
type RTCM2Driver struct{}

// NewRTCM2Driver creates an RTCM2 driver.
func NewRTCM2Driver() *RTCM2Driver { return &RTCM2Driver{} }

func (d *RTCM2Driver) Name() string                    { return "RTCM2" }
func (d *RTCM2Driver) PacketTypes() []lexer.PacketType { return []lexer.PacketType{lexer.RTCM2} }
func (d *RTCM2Driver) Trigger() *regexp.Regexp         { return nil }
func (d *RTCM2Driver) Hooks() driver.EventHooks        { return driver.EventHooks{} }

// Parse decodes one framed RTCM2 message and publishes it under the
// RTCM2 class; it never contributes to the fix-merge accumulator,
// since the differential corrections it carries are consumed
// upstream of gnssmux by an RTK engine, not by the lexer/driver layer.
func (d *RTCM2Driver) Parse(h driver.Host, pkt lexer.Packet) error {
	fh, ok := asFixHost(h)
	if !ok {
		return nil
	}
	frame, err := rtcm2.Decode(pkt.Payload)
	if err != nil {
		return fmt.Errorf("rtcm2: decode: %w", err)
	}
	return fh.PublishRaw("RTCM2", frame)
}
