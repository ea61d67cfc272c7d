package nmea

import (
	"errors"
	"strconv"
	"strings"
)

// GLLData represents parsed GLL sentence data (Geographic Position).
type GLLData struct {
	Latitude  float64
	LatDir    string
	Longitude float64
	LonDir    string
	Time      string
	Status    string
	Mode      string
}

// GNSData represents parsed GNS sentence data (GNSS fix data, multi-constellation).
type GNSData struct {
	Time      string
	Latitude  float64
	Longitude float64
	Mode      string // one mode letter per constellation, e.g. "AA"
	NumSats   int
	HDOP      float64
	Altitude  float64
}

// ZDAData represents parsed ZDA sentence data (time and date).
type ZDAData struct {
	Time           string
	Day, Month, Year int
	LocalZoneHours, LocalZoneMinutes int
}

// HDTData represents parsed HDT sentence data (true heading).
type HDTData struct {
	Heading float64
}

// MWVData represents parsed MWV sentence data (wind speed and angle).
type MWVData struct {
	Angle     float64
	Reference string // R=relative, T=true
	Speed     float64
	SpeedUnit string
	Status    string
}

// VHWData represents parsed VHW sentence data (water speed and heading).
type VHWData struct {
	HeadingTrue     float64
	HeadingMagnetic float64
	SpeedKnots      float64
	SpeedKmh        float64
}

// DBTData represents parsed DBT sentence data (depth below transducer).
type DBTData struct {
	DepthFeet, DepthMeters, DepthFathoms float64
}

// MTWData represents parsed MTW sentence data (water temperature).
type MTWData struct {
	Temperature float64
}

// GSTData represents parsed GST sentence data (position error statistics).
type GSTData struct {
	Time                    string
	RMS                     float64
	SemiMajorError          float64
	SemiMinorError          float64
	Orientation             float64
	LatitudeError           float64
	LongitudeError          float64
	AltitudeError           float64
}

// TXTData represents parsed TXT sentence data (free-text status message).
type TXTData struct {
	TotalMessages int
	MessageNumber int
	MessageType   int
	Text          string
}

func parseFloatField(f string) float64 {
	v, _ := strconv.ParseFloat(f, 64)
	return v
}

func parseLatLon(value, dir string, negDir string) float64 {
	if value == "" {
		return 0
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	deg := float64(int(v / 100))
	min := v - deg*100
	result := deg + min/60
	if dir == negDir {
		result = -result
	}
	return result
}

// ParseGLL parses a GLL sentence.
func ParseGLL(sentence string) (GLLData, error) {
	var data GLLData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "GLL") {
		return data, errors.New("not a GLL sentence")
	}
	if len(parsed.Fields) < 6 {
		return data, errors.New("not enough fields in GLL sentence")
	}
	data.LatDir = parsed.Fields[1]
	data.Latitude = parseLatLon(parsed.Fields[0], parsed.Fields[1], "S")
	data.LonDir = parsed.Fields[3]
	data.Longitude = parseLatLon(parsed.Fields[2], parsed.Fields[3], "W")
	data.Time = parsed.Fields[4]
	data.Status = parsed.Fields[5]
	if len(parsed.Fields) > 6 {
		data.Mode = parsed.Fields[6]
	}
	return data, nil
}

// ParseGNS parses a GNS sentence.
func ParseGNS(sentence string) (GNSData, error) {
	var data GNSData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "GNS") {
		return data, errors.New("not a GNS sentence")
	}
	if len(parsed.Fields) < 12 {
		return data, errors.New("not enough fields in GNS sentence")
	}
	data.Time = parsed.Fields[0]
	data.Latitude = parseLatLon(parsed.Fields[1], parsed.Fields[2], "S")
	data.Longitude = parseLatLon(parsed.Fields[3], parsed.Fields[4], "W")
	data.Mode = parsed.Fields[5]
	data.NumSats, _ = strconv.Atoi(parsed.Fields[6])
	data.HDOP = parseFloatField(parsed.Fields[7])
	data.Altitude = parseFloatField(parsed.Fields[8])
	return data, nil
}

// ParseZDA parses a ZDA sentence (time/date, no year ambiguity unlike
// RMC's two-digit year: ZDA already carries a four-digit year).
func ParseZDA(sentence string) (ZDAData, error) {
	var data ZDAData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "ZDA") {
		return data, errors.New("not a ZDA sentence")
	}
	if len(parsed.Fields) < 6 {
		return data, errors.New("not enough fields in ZDA sentence")
	}
	data.Time = parsed.Fields[0]
	data.Day, _ = strconv.Atoi(parsed.Fields[1])
	data.Month, _ = strconv.Atoi(parsed.Fields[2])
	data.Year, _ = strconv.Atoi(parsed.Fields[3])
	data.LocalZoneHours, _ = strconv.Atoi(parsed.Fields[4])
	data.LocalZoneMinutes, _ = strconv.Atoi(parsed.Fields[5])
	return data, nil
}

// ParseHDT parses an HDT sentence.
func ParseHDT(sentence string) (HDTData, error) {
	var data HDTData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "HDT") {
		return data, errors.New("not an HDT sentence")
	}
	if len(parsed.Fields) < 1 {
		return data, errors.New("not enough fields in HDT sentence")
	}
	data.Heading = parseFloatField(parsed.Fields[0])
	return data, nil
}

// ParseMWV parses an MWV sentence.
func ParseMWV(sentence string) (MWVData, error) {
	var data MWVData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "MWV") {
		return data, errors.New("not an MWV sentence")
	}
	if len(parsed.Fields) < 5 {
		return data, errors.New("not enough fields in MWV sentence")
	}
	data.Angle = parseFloatField(parsed.Fields[0])
	data.Reference = parsed.Fields[1]
	data.Speed = parseFloatField(parsed.Fields[2])
	data.SpeedUnit = parsed.Fields[3]
	data.Status = parsed.Fields[4]
	return data, nil
}

// ParseVHW parses a VHW sentence.
func ParseVHW(sentence string) (VHWData, error) {
	var data VHWData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "VHW") {
		return data, errors.New("not a VHW sentence")
	}
	if len(parsed.Fields) < 8 {
		return data, errors.New("not enough fields in VHW sentence")
	}
	data.HeadingTrue = parseFloatField(parsed.Fields[0])
	data.HeadingMagnetic = parseFloatField(parsed.Fields[2])
	data.SpeedKnots = parseFloatField(parsed.Fields[4])
	data.SpeedKmh = parseFloatField(parsed.Fields[6])
	return data, nil
}

// ParseDBT parses a DBT sentence.
func ParseDBT(sentence string) (DBTData, error) {
	var data DBTData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "DBT") {
		return data, errors.New("not a DBT sentence")
	}
	if len(parsed.Fields) < 6 {
		return data, errors.New("not enough fields in DBT sentence")
	}
	data.DepthFeet = parseFloatField(parsed.Fields[0])
	data.DepthMeters = parseFloatField(parsed.Fields[2])
	data.DepthFathoms = parseFloatField(parsed.Fields[4])
	return data, nil
}

// ParseMTW parses an MTW sentence.
func ParseMTW(sentence string) (MTWData, error) {
	var data MTWData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "MTW") {
		return data, errors.New("not an MTW sentence")
	}
	if len(parsed.Fields) < 1 {
		return data, errors.New("not enough fields in MTW sentence")
	}
	data.Temperature = parseFloatField(parsed.Fields[0])
	return data, nil
}

// ParseGST parses a GST sentence.
func ParseGST(sentence string) (GSTData, error) {
	var data GSTData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "GST") {
		return data, errors.New("not a GST sentence")
	}
	if len(parsed.Fields) < 8 {
		return data, errors.New("not enough fields in GST sentence")
	}
	data.Time = parsed.Fields[0]
	data.RMS = parseFloatField(parsed.Fields[1])
	data.SemiMajorError = parseFloatField(parsed.Fields[2])
	data.SemiMinorError = parseFloatField(parsed.Fields[3])
	data.Orientation = parseFloatField(parsed.Fields[4])
	data.LatitudeError = parseFloatField(parsed.Fields[5])
	data.LongitudeError = parseFloatField(parsed.Fields[6])
	data.AltitudeError = parseFloatField(parsed.Fields[7])
	return data, nil
}

// ParseTXT parses a TXT sentence (free-text status/info message).
func ParseTXT(sentence string) (TXTData, error) {
	var data TXTData
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}
	if !parsed.Valid || !strings.HasSuffix(parsed.Type, "TXT") {
		return data, errors.New("not a TXT sentence")
	}
	if len(parsed.Fields) < 4 {
		return data, errors.New("not enough fields in TXT sentence")
	}
	data.TotalMessages, _ = strconv.Atoi(parsed.Fields[0])
	data.MessageNumber, _ = strconv.Atoi(parsed.Fields[1])
	data.MessageType, _ = strconv.Atoi(parsed.Fields[2])
	data.Text = parsed.Fields[3]
	return data, nil
}

// IsProprietary reports whether a sentence is a vendor-proprietary
// $P... sentence, which carries a vendor-specific field layout this
// package does not attempt to interpret beyond exposing its raw fields.
func IsProprietary(sentence string) bool {
	return strings.HasPrefix(strings.TrimSpace(sentence), "$P")
}
