package drivers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/fix"
	"github.com/northfall/gnssmux/pkg/gnssgo/nmea"
	"github.com/northfall/gnssmux/pkg/lexer"
)

// knotsToMPS converts NMEA's knots-denominated speeds to the meters-
// per-second unit fix.Fix carries (spec.md §3's Fix always stores SI
// units; unit conversion is the driver's job, not the merge layer's).
const knotsToMPS = 0.514444

// NMEADriver decodes $--GGA/$--RMC/$--VTG/$--GSA/$--GSV sentences into
// fix-merge contributions, accumulating a multi-sentence GSV skyview
// the same way pkg/ais.Reassembler accumulates multipart AIVDM payloads.
type NMEADriver struct {
	gsv []fix.SatelliteInfo
}

// NewNMEADriver creates an NMEA0183 driver with empty GSV accumulator
// state.
func NewNMEADriver() *NMEADriver { return &NMEADriver{} }

func (d *NMEADriver) Name() string                    { return "NMEA0183" }
func (d *NMEADriver) PacketTypes() []lexer.PacketType { return []lexer.PacketType{lexer.NMEA} }
func (d *NMEADriver) Trigger() *regexp.Regexp         { return nil }
func (d *NMEADriver) Hooks() driver.EventHooks        { return driver.EventHooks{} }

// Parse dispatches one NMEA sentence to its field decoder and merges
// the result into the session's fix/skyview via the FixHost contract.
func (d *NMEADriver) Parse(h driver.Host, pkt lexer.Packet) error {
	fh, ok := asFixHost(h)
	if !ok {
		return nil
	}
	// pkt.Payload is the lexer's full framed buffer, trailing CRLF
	// included; nmea.ParseNMEA's checksum comparison is a bare substring
	// match against the two hex digits after '*', so it must be trimmed
	// here first or every sentence would fail checksum verification.
	sentence := strings.TrimRight(string(pkt.Payload), "\r\n")
	parsed, err := nmea.ParseNMEA(sentence)
	if err != nil || !parsed.Valid {
		return nil
	}
	name := sentenceKind(parsed.Type)

	switch name {
	case "GGA":
		return d.parseGGA(fh, sentence)
	case "RMC":
		return d.parseRMC(fh, sentence)
	case "VTG":
		return d.parseVTG(fh, sentence)
	case "GSA":
		return d.parseGSA(fh, sentence)
	case "GSV":
		return d.parseGSV(fh, sentence)
	}
	return nil
}

func sentenceKind(typ string) string {
	if len(typ) <= 3 {
		return typ
	}
	return typ[len(typ)-3:]
}

func (d *NMEADriver) parseGGA(fh FixHost, sentence string) error {
	gga, err := nmea.ParseGGA(sentence)
	if err != nil {
		return nil
	}
	mode := fix.ModeNoFix
	status := fix.StatusNoFix
	switch gga.Quality {
	case 1:
		mode, status = fix.Mode3D, fix.StatusGPS
	case 2:
		mode, status = fix.Mode3D, fix.StatusDGPS
	case 4:
		mode, status = fix.Mode3D, fix.StatusRTKFixed
	case 5:
		mode, status = fix.Mode3D, fix.StatusRTKFloat
	case 6:
		mode, status = fix.Mode3D, fix.StatusDeadReckoning
	}
	closed := fh.ApplyFix("GGA", fix.LatLonSet|fix.AltitudeSet|fix.ModeSet|fix.StatusSet|fix.DopSet, fix.Fix{
		Latitude:  gga.Latitude,
		Longitude: gga.Longitude,
		Altitude:  gga.Altitude,
		Mode:      mode,
		Status:    status,
		HDOP:      gga.HDOP,
	})
	if closed {
		return fh.CloseReportingCycle()
	}
	return nil
}

func (d *NMEADriver) parseRMC(fh FixHost, sentence string) error {
	rmc, err := nmea.ParseRMC(sentence)
	if err != nil {
		return nil
	}
	mode := fix.ModeNoFix
	if strings.EqualFold(rmc.Status, "A") {
		mode = fix.Mode2D
	}
	mask := fix.LatLonSet | fix.SpeedSet | fix.TrackSet | fix.ModeSet
	if !rmc.DateTime.IsZero() {
		mask |= fix.TimeSet
	}
	closed := fh.ApplyFix("RMC", mask, fix.Fix{
		Time:      rmc.DateTime,
		Latitude:  rmc.Latitude,
		Longitude: rmc.Longitude,
		Speed:     rmc.Speed * knotsToMPS,
		Track:     rmc.Course,
		Mode:      mode,
	})
	if closed {
		return fh.CloseReportingCycle()
	}
	return nil
}

func (d *NMEADriver) parseVTG(fh FixHost, sentence string) error {
	vtg, err := nmea.ParseVTG(sentence)
	if err != nil {
		return nil
	}
	closed := fh.ApplyFix("VTG", fix.SpeedSet|fix.TrackSet, fix.Fix{
		Speed: vtg.SpeedKnots * knotsToMPS,
		Track: vtg.TrackTrue,
	})
	if closed {
		return fh.CloseReportingCycle()
	}
	return nil
}

func (d *NMEADriver) parseGSA(fh FixHost, sentence string) error {
	gsa, err := nmea.ParseGSA(sentence)
	if err != nil {
		return nil
	}
	mode := fix.ModeNoFix
	switch gsa.Mode2 {
	case 2:
		mode = fix.Mode2D
	case 3:
		mode = fix.Mode3D
	}
	closed := fh.ApplyFix("GSA", fix.ModeSet|fix.DopSet, fix.Fix{
		Mode: mode,
		HDOP: gsa.HDOP,
		VDOP: gsa.VDOP,
		PDOP: gsa.PDOP,
	})
	if closed {
		return fh.CloseReportingCycle()
	}
	return nil
}

// parseGSV accumulates satellites across a GSV message group and
// replaces the skyview once the final message in the group (spec.md's
// "GSV message group" epoch, same shape as the fix reporting cycle
// closure driven by a terminator sentence) arrives.
func (d *NMEADriver) parseGSV(fh FixHost, sentence string) error {
	gsv, err := nmea.ParseGSV(sentence)
	if err != nil {
		return nil
	}
	if gsv.MessageNumber == 1 {
		d.gsv = d.gsv[:0]
	}
	for _, s := range gsv.Satellites {
		prn := 0
		if v, err := parsePRN(s.ID); err == nil {
			prn = v
		}
		d.gsv = append(d.gsv, fix.SatelliteInfo{
			PRN:       prn,
			Elevation: float64(s.Elevation),
			Azimuth:   float64(s.Azimuth),
			SNR:       float64(s.SNR),
			Used:      s.SNR >= 0,
		})
	}
	if gsv.MessageNumber == gsv.TotalMessages {
		fh.ReplaceSkyview(append([]fix.SatelliteInfo(nil), d.gsv...))
	}
	return nil
}

func parsePRN(id string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(id))
}
