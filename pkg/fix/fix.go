// Package fix implements the fix-merge and session-state accumulator of
// spec.md §4.G: decoders from pkg/driver write partial updates into a
// shared Fix via Merge, mode is promoted monotonically within a
// reporting cycle, and a reporting cycle closes when a driver reports a
// report-group terminator sentence, at which point the merged fix is
// handed to a Policy filter for publication.
package fix

import "time"

// Mask is a set of feature flags identifying which fields of a Fix a
// given Merge call is allowed to overwrite: explicit bitmask-style
// flags instead of a partial-struct diff.
type Mask uint32

const (
	TimeSet Mask = 1 << iota
	LatLonSet
	AltitudeSet
	SpeedSet
	TrackSet
	ClimbSet
	ModeSet
	StatusSet
	DopSet
	ErrSet
)

// Mode is the fix mode, ranked for promotion purposes as
// ModeNotSeen < ModeNoFix < Mode2D < Mode3D.
type Mode int

const (
	ModeNotSeen Mode = iota
	ModeNoFix
	Mode2D
	Mode3D
)

// Status is the fix status (GPS/DGPS/RTK/...), independent of Mode:
// spec.md is explicit that "status does not override mode and vice
// versa" — they are two orthogonal axes of the same Fix.
type Status int

const (
	StatusNoFix Status = iota
	StatusGPS
	StatusDGPS
	StatusRTKFixed
	StatusRTKFloat
	StatusDeadReckoning
)

// Fix is the merged navigation solution spec.md §3 calls the Session's
// "current fix": the superset of fields any supported protocol's
// position sentence/message can contribute.
type Fix struct {
	Time time.Time

	Latitude  float64
	Longitude float64
	Altitude  float64

	Speed float64 // meters/sec over ground
	Track float64 // degrees true
	Climb float64 // meters/sec vertical

	Mode   Mode
	Status Status

	HDOP, VDOP, PDOP float64

	EPX, EPY, EPV float64 // estimated position errors, meters

	Device string
}

// promote returns the higher-ranked of two modes, implementing
// spec.md's "3D > 2D > NO_FIX > NOT_SEEN" rule: a merge can raise the
// mode but a later, lower-confidence sentence cannot silently downgrade
// it within the same reporting cycle.
func promote(cur, incoming Mode) Mode {
	if incoming > cur {
		return incoming
	}
	return cur
}

// Merge overwrites only the fields indicated by mask, reading from
// source into target. Fields with the same timestamp: later values
// replace earlier ones, since Merge applies unconditionally to the
// fields named by mask regardless of timestamp ordering between calls
// (arrival order is irrelevant per spec.md §4.G).
func Merge(target *Fix, mask Mask, source Fix) {
	if mask&TimeSet != 0 {
		target.Time = source.Time
	}
	if mask&LatLonSet != 0 {
		target.Latitude = source.Latitude
		target.Longitude = source.Longitude
	}
	if mask&AltitudeSet != 0 {
		target.Altitude = source.Altitude
	}
	if mask&SpeedSet != 0 {
		target.Speed = source.Speed
	}
	if mask&TrackSet != 0 {
		target.Track = source.Track
	}
	if mask&ClimbSet != 0 {
		target.Climb = source.Climb
	}
	if mask&ModeSet != 0 {
		target.Mode = promote(target.Mode, source.Mode)
	}
	if mask&StatusSet != 0 {
		target.Status = source.Status
	}
	if mask&DopSet != 0 {
		target.HDOP = source.HDOP
		target.VDOP = source.VDOP
		target.PDOP = source.PDOP
	}
	if mask&ErrSet != 0 {
		target.EPX = source.EPX
		target.EPY = source.EPY
		target.EPV = source.EPV
	}
	if source.Device != "" {
		target.Device = source.Device
	}
}

// SatelliteInfo is one entry of the skyview table (spec.md's SKY class
// payload): per-satellite tracking status reported by GSV/UBX-NAV-SAT/
// similar sentences.
type SatelliteInfo struct {
	PRN       int
	Elevation float64
	Azimuth   float64
	SNR       float64
	Used      bool
}

// Skyview is the per-session satellite tracking table, replaced
// wholesale on each update (unlike Fix, which merges field-by-field),
// since GSV-family sentences always report a complete snapshot.
type Skyview struct {
	Satellites []SatelliteInfo
}

// Session accumulates one device's fix, skyview, and reporting-cycle
// state across however many sentences/messages a report group takes to
// arrive.
type Session struct {
	Device string

	Fix     Fix
	Sky     Skyview
	changed Mask

	// terminators names the sentence/message identifiers that close a
	// reporting cycle for this device's protocol (e.g. "RMC", "NAV-EOE").
	terminators map[string]bool
}

// NewSession creates per-device fix-merge state, closing reporting
// cycles on the given set of terminator sentence/message names.
func NewSession(device string, terminators []string) *Session {
	m := make(map[string]bool, len(terminators))
	for _, t := range terminators {
		m[t] = true
	}
	return &Session{Device: device, terminators: m, Fix: Fix{Device: device}}
}

// Apply merges a decoded sentence/message's contribution into the
// session's fix, tracking which fields changed this cycle for the
// policy filter, and reports whether this sentence closes the
// reporting cycle.
func (s *Session) Apply(name string, mask Mask, source Fix) (cycleClosed bool) {
	Merge(&s.Fix, mask, source)
	s.changed |= mask
	if s.terminators[name] {
		cycleClosed = true
	}
	return cycleClosed
}

// CloseCycle returns the fix as it stands and the mask of fields
// changed since the last close, then resets the changed mask for the
// next reporting cycle. Mode is NOT reset — spec.md's promotion rule
// applies across the life of the session, not per cycle: Merge only
// ever raises Mode, so once a session has reached a mode it keeps it.
func (s *Session) CloseCycle() (Fix, Mask) {
	changed := s.changed
	s.changed = 0
	return s.Fix, changed
}

// ReplaceSkyview installs a freshly decoded satellite table, replacing
// the previous one (GSV-family sentences are self-contained snapshots,
// not incremental updates).
func (s *Session) ReplaceSkyview(sats []SatelliteInfo) {
	s.Sky = Skyview{Satellites: sats}
}

// Policy is a client's subscription filter (spec.md §6's WATCH
// options), controlling which changed classes are published to it.
type Policy struct {
	Classes map[string]bool // nil or empty means "all classes"
}

// Filter reports whether a record of the given class (e.g. "TPV",
// "SKY") should be published to a client under the given policy. An
// empty Classes set publishes everything; otherwise only the classes
// named in it are published.
func (p Policy) Filter(class string) bool {
	if len(p.Classes) == 0 {
		return true
	}
	return p.Classes[class]
}
