package drivers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/northfall/gnssmux/pkg/ais"
	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/lexer"
)

// AISDriver decodes AIVDM-wrapped AIS payloads claimed by the lexer as
// lexer.AIVDM packets, reassembling multi-fragment messages before
// handing complete payloads to pkg/ais.Decode.
type AISDriver struct {
	reassembler *ais.Reassembler
}

// NewAISDriver creates an AIS driver with its own fragment reassembler.
func NewAISDriver() *AISDriver {
	return &AISDriver{reassembler: ais.NewReassembler()}
}

func (d *AISDriver) Name() string                    { return "AIS" }
func (d *AISDriver) PacketTypes() []lexer.PacketType { return []lexer.PacketType{lexer.AIVDM} }
func (d *AISDriver) Trigger() *regexp.Regexp         { return nil }
func (d *AISDriver) Hooks() driver.EventHooks        { return driver.EventHooks{} }

// Parse splits one !AIVDM/!AIVDO sentence into its comma-delimited
// fields, feeds the armored payload through the reassembler, and
// publishes the decoded message once a complete (possibly multi-
// fragment) payload is assembled.
func (d *AISDriver) Parse(h driver.Host, pkt lexer.Packet) error {
	fh, ok := asFixHost(h)
	if !ok {
		return nil
	}
	frag, err := parseAIVDM(string(pkt.Payload))
	if err != nil {
		return nil
	}
	payload, fillBits, complete := d.reassembler.Add(frag)
	if !complete {
		return nil
	}
	msg, err := ais.Decode(payload, fillBits)
	if err != nil {
		return fmt.Errorf("ais: decode: %w", err)
	}
	return fh.PublishRaw("AIS", msg)
}

// parseAIVDM splits a raw "!AIVDM,total,num,seqid,channel,payload,fill*CC"
// sentence into an ais.Fragment, the same comma-split approach
// pkg/gnssgo/nmea.ParseNMEA uses for NMEA proper (AIVDM reuses the
// NMEA-0183 wrapper syntax even though its payload is AIS, not NMEA).
func parseAIVDM(sentence string) (ais.Fragment, error) {
	body := sentence
	if i := strings.IndexByte(body, '*'); i >= 0 {
		body = body[:i]
	}
	body = strings.TrimPrefix(strings.TrimSpace(body), "!")
	fields := strings.Split(body, ",")
	if len(fields) < 7 {
		return ais.Fragment{}, fmt.Errorf("ais: malformed AIVDM sentence")
	}

	total, err := strconv.Atoi(fields[1])
	if err != nil {
		return ais.Fragment{}, fmt.Errorf("ais: fragment count: %w", err)
	}
	num, err := strconv.Atoi(fields[2])
	if err != nil {
		return ais.Fragment{}, fmt.Errorf("ais: fragment number: %w", err)
	}
	seqID := 0
	if fields[3] != "" {
		seqID, _ = strconv.Atoi(fields[3])
	}
	fillBits, err := strconv.Atoi(fields[6])
	if err != nil {
		return ais.Fragment{}, fmt.Errorf("ais: fill bits: %w", err)
	}

	return ais.Fragment{
		Channel:        fields[4],
		TotalFragments: total,
		FragmentNumber: num,
		SequenceID:     seqID,
		Payload:        fields[5],
		FillBits:       fillBits,
	}, nil
}
