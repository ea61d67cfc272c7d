// Package publish implements the JSON publisher of spec.md §4.I: a
// discriminated-union record per report cycle or PPS event, tagged by
// a "class" field, plus the WATCH/POLICY client control records of
// spec.md §6. Client-supplied option structs are validated with
// github.com/go-playground/validator/v10, the same struct-tag
// validation style de-bkg-gognss's site package uses for its
// externally-sourced data.
package publish

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/northfall/gnssmux/pkg/fix"
)

// Class is the discriminator spec.md's Publisher interface names.
type Class string

const (
	ClassTPV      Class = "TPV"
	ClassSKY      Class = "SKY"
	ClassATT      Class = "ATT"
	ClassIMU      Class = "IMU"
	ClassGST      Class = "GST"
	ClassRAW      Class = "RAW"
	ClassAIS      Class = "AIS"
	ClassRTCM2    Class = "RTCM2"
	ClassRTCM3    Class = "RTCM3"
	ClassSubframe Class = "SUBFRAME"
	ClassPPS      Class = "PPS"
	ClassTOFF     Class = "TOFF"
	ClassOSC      Class = "OSC"
	ClassVersion  Class = "VERSION"
	ClassDevices  Class = "DEVICES"
	ClassDevice   Class = "DEVICE"
	ClassWatch    Class = "WATCH"
	ClassPolicy   Class = "POLICY"
	ClassError    Class = "ERROR"
)

// TPV is the TPV-class record: spec.md's merged navigation fix,
// reshaped into the JSON field names §6's interface contract uses.
type TPV struct {
	Class     Class   `json:"class"`
	Device    string  `json:"device"`
	Time      string  `json:"time,omitempty"`
	Mode      int     `json:"mode"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
	Alt       float64 `json:"alt,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Track     float64 `json:"track,omitempty"`
	Climb     float64 `json:"climb,omitempty"`
	EPX       float64 `json:"epx,omitempty"`
	EPY       float64 `json:"epy,omitempty"`
	EPV       float64 `json:"epv,omitempty"`
}

// SKYSatellite is one satellite entry of a SKY-class record.
type SKYSatellite struct {
	PRN int     `json:"PRN"`
	El  float64 `json:"el"`
	Az  float64 `json:"az"`
	SS  float64 `json:"ss"`
	Used bool   `json:"used"`
}

// SKY is the SKY-class record: the skyview table.
type SKY struct {
	Class      Class          `json:"class"`
	Device     string         `json:"device"`
	HDOP       float64        `json:"hdop,omitempty"`
	VDOP       float64        `json:"vdop,omitempty"`
	PDOP       float64        `json:"pdop,omitempty"`
	Satellites []SKYSatellite `json:"satellites"`
}

// PPSReport is the PPS-class record, one per captured edge.
type PPSReport struct {
	Class     Class  `json:"class"`
	Device    string `json:"device"`
	RealSec   int64  `json:"real_sec"`
	RealNSec  int64  `json:"real_nsec"`
	ClockSec  int64  `json:"clock_sec"`
	ClockNSec int64  `json:"clock_nsec"`
	Precision int32  `json:"precision"`
}

// DeviceRecord is one entry of a DEVICES-class record / a DEVICE-class
// record on its own, describing one open sensor.
type DeviceRecord struct {
	Class     Class  `json:"class"`
	Path      string `json:"path"`
	Driver    string `json:"driver,omitempty"`
	Activated string `json:"activated,omitempty"`
	BaudRate  int    `json:"bps,omitempty"`
	Parity    string `json:"parity,omitempty"`
	StopBits  int    `json:"stopbits,omitempty"`
}

// Devices is the DEVICES-class record: a snapshot of every open
// device.
type Devices struct {
	Class   Class          `json:"class"`
	Devices []DeviceRecord `json:"devices"`
}

// Version is the VERSION-class record.
type Version struct {
	Class     Class  `json:"class"`
	Release   string `json:"release"`
	Rev       string `json:"rev"`
	ProtoMajor int   `json:"proto_major"`
	ProtoMinor int   `json:"proto_minor"`
}

// ErrorRecord is the ERROR-class record, elicited by an unknown client
// class or a malformed control record.
type ErrorRecord struct {
	Class   Class  `json:"class"`
	Message string `json:"message"`
}

// RawRecord is the shared envelope for classes whose payload is a
// whole decoded protocol message rather than a fix contribution (AIS,
// RTCM2, RTCM3, SUBFRAME): spec.md §4.I asks for these to pass the
// decoder's own structure through mostly unreshaped, tagged with the
// class and originating device.
type RawRecord struct {
	Class   Class       `json:"class"`
	Device  string      `json:"device"`
	Payload interface{} `json:"payload"`
}

// WatchOptions is spec.md §6's `?WATCH={...}` control record, with
// validator tags enforcing the option contract (e.g. a device path,
// when present, must be a non-empty string).
type WatchOptions struct {
	Enable  bool    `json:"enable"`
	JSON    bool    `json:"json"`
	NMEA    bool    `json:"nmea"`
	Raw     int     `json:"raw" validate:"gte=0,lte=2"`
	Scaled  bool    `json:"scaled"`
	Timing  bool    `json:"timing"`
	Split24 bool    `json:"split24"`
	PPS     bool    `json:"pps"`
	Device  *string `json:"device,omitempty" validate:"omitempty,min=1"`
}

// DefaultWatchOptions returns spec.md's documented WATCH defaults:
// {enable:true, json:true, nmea:false, raw:0, scaled:false,
// timing:false, split24:false, pps:false, device:null}.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{Enable: true, JSON: true}
}

// PolicyOptions is spec.md §6's `?POLICY={...}` control record,
// mapping onto pkg/fix.Policy's class subscription set.
type PolicyOptions struct {
	Classes []string `json:"classes" validate:"omitempty,dive,oneof=TPV SKY ATT IMU GST RAW AIS RTCM2 RTCM3 SUBFRAME PPS TOFF OSC"`
}

// ToFixPolicy converts client-facing PolicyOptions into pkg/fix's
// internal Policy representation.
func (p PolicyOptions) ToFixPolicy() fix.Policy {
	if len(p.Classes) == 0 {
		return fix.Policy{}
	}
	classes := make(map[string]bool, len(p.Classes))
	for _, c := range p.Classes {
		classes[c] = true
	}
	return fix.Policy{Classes: classes}
}

// validate is a single cached validator.Validate instance, the same
// "use a single instance, it caches struct info" idiom the pack's
// go-playground/validator consumer follows.
var validate = validator.New()

// ValidateWatch validates a client-supplied WatchOptions record.
func ValidateWatch(opts WatchOptions) error {
	if err := validate.Struct(opts); err != nil {
		return fmt.Errorf("publish: invalid WATCH options: %w", err)
	}
	return nil
}

// ValidatePolicy validates a client-supplied PolicyOptions record.
func ValidatePolicy(opts PolicyOptions) error {
	if err := validate.Struct(opts); err != nil {
		return fmt.Errorf("publish: invalid POLICY options: %w", err)
	}
	return nil
}

// Publisher emits one JSON object per line to an underlying writer,
// per spec.md §6's line-oriented JSON-over-TCP client protocol.
type Publisher struct {
	write func([]byte) error
}

// NewPublisher builds a Publisher that hands each encoded line to
// writeLine (already responsible for framing, e.g. appending "\n" and
// flushing to a client socket).
func NewPublisher(writeLine func([]byte) error) *Publisher {
	return &Publisher{write: writeLine}
}

// Emit marshals record (expected to carry a Class-tagged "class" field)
// and writes it as one line.
func (p *Publisher) Emit(record interface{}) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("publish: marshal %T: %w", record, err)
	}
	return p.write(line)
}

// EmitTPV builds and emits a TPV-class record from a merged Fix.
func (p *Publisher) EmitTPV(device string, f fix.Fix) error {
	return p.Emit(TPV{
		Class:  ClassTPV,
		Device: device,
		Mode:   int(f.Mode),
		Lat:    f.Latitude,
		Lon:    f.Longitude,
		Alt:    f.Altitude,
		Speed:  f.Speed,
		Track:  f.Track,
		Climb:  f.Climb,
		EPX:    f.EPX,
		EPY:    f.EPY,
		EPV:    f.EPV,
	})
}

// EmitSky builds and emits a SKY-class record from a skyview table.
func (p *Publisher) EmitSky(device string, sky fix.Skyview) error {
	sats := make([]SKYSatellite, 0, len(sky.Satellites))
	for _, s := range sky.Satellites {
		sats = append(sats, SKYSatellite{PRN: s.PRN, El: s.Elevation, Az: s.Azimuth, SS: s.SNR, Used: s.Used})
	}
	return p.Emit(SKY{Class: ClassSKY, Device: device, Satellites: sats})
}

// EmitError builds and emits an ERROR-class record.
func (p *Publisher) EmitError(message string) error {
	return p.Emit(ErrorRecord{Class: ClassError, Message: message})
}

// EmitAIS wraps a decoded AIS message in an AIS-class record.
func (p *Publisher) EmitAIS(device string, payload interface{}) error {
	return p.Emit(RawRecord{Class: ClassAIS, Device: device, Payload: payload})
}

// EmitRTCM2 wraps a decoded RTCM2 frame in an RTCM2-class record.
func (p *Publisher) EmitRTCM2(device string, payload interface{}) error {
	return p.Emit(RawRecord{Class: ClassRTCM2, Device: device, Payload: payload})
}

// EmitRTCM3 wraps a decoded RTCM3 message in an RTCM3-class record.
func (p *Publisher) EmitRTCM3(device string, payload interface{}) error {
	return p.Emit(RawRecord{Class: ClassRTCM3, Device: device, Payload: payload})
}

// EmitSubframe wraps a decoded GPS subframe in a SUBFRAME-class record.
func (p *Publisher) EmitSubframe(device string, payload interface{}) error {
	return p.Emit(RawRecord{Class: ClassSubframe, Device: device, Payload: payload})
}
