// Package session ties together the per-device state spec.md §3
// describes as the Session struct — byte buffer, lexer, driver
// arbitration, fix/skyview accumulator, and baud-hunt cursor — plus a
// non-owning reference to the process-wide Context, and wires decoded
// output into a publish.Publisher.
package session

import (
	"fmt"
	"io"
	"time"

	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/fix"
	"github.com/northfall/gnssmux/pkg/gnsstime"
	"github.com/northfall/gnssmux/pkg/lexer"
	"github.com/northfall/gnssmux/pkg/publish"
)

// Device is the I/O capability a Session needs from its underlying
// sensor connection: reading framed bytes and writing driver
// configuration/wakeup bytes back. hardware/serial's wrapper around
// go.bug.st/serial satisfies this, as does any io.ReadWriter.
type Device interface {
	io.Reader
	io.Writer
}

// Session is one open sensor device: it owns its buffer, lexer state,
// currently selected driver, fix accumulator, skyview table, and
// baud-hunt cursor, per spec.md §3. The Context is shared, not owned.
type Session struct {
	Path   string
	device Device

	Context *gnsstime.Context // shared, non-owning reference

	table      *driver.Table
	lexer      *lexer.Lexer
	arbitrator *driver.Arbitrator
	hunter     *driver.BaudHunter
	fix        *fix.Session
	publisher  *publish.Publisher
	policy     fix.Policy
}

// New builds a Session for an already-open device, bound to a shared
// Context, a driver table, and the reporting-cycle terminator sentence
// names its decoders recognize (spec.md §4.G: "xxRMC", a UBX-NAV-EOE,
// a Garmin epoch marker, ...).
func New(path string, device Device, ctx *gnsstime.Context, table *driver.Table, terminators []string, publisher *publish.Publisher) *Session {
	s := &Session{
		Path:      path,
		device:    device,
		Context:   ctx,
		table:     table,
		lexer:     lexer.New(),
		fix:       fix.NewSession(path, terminators),
		publisher: publisher,
		hunter:    driver.NewBaudHunter(),
	}
	s.arbitrator = driver.NewArbitrator(table, s)
	return s
}

// Write implements driver.Host by delegating to the underlying device,
// letting a driver's event hooks push configuration/wakeup bytes. A
// Session is passed directly as the Arbitrator's Host (rather than
// through a separate adapter type) so that drivers in pkg/drivers can
// also type-assert it to the richer FixHost contract and reach
// ApplyFix/ReplaceSkyview without pkg/driver itself depending on
// pkg/fix or pkg/session.
func (s *Session) Write(data []byte) (int, error) { return s.device.Write(data) }

// SetPolicy installs the client-facing WATCH/POLICY subscription
// filter controlling which changed classes this session publishes.
func (s *Session) SetPolicy(p fix.Policy) { s.policy = p }

// Feed processes one read's worth of raw bytes: lexes it into zero or
// more packets, dispatches each to the driver table, and records the
// bytes/packets for the baud hunter's quiet-window and byte-threshold
// triggers. Reporting cycles that close along the way are published.
func (s *Session) Feed(data []byte) error {
	now := time.Now()
	s.hunter.ObserveBytes(len(data), now)
	packets := s.lexer.Feed(data)
	for _, pkt := range packets {
		s.hunter.ObserveGoodPacket(now)
		if err := s.arbitrator.Dispatch(pkt); err != nil {
			return fmt.Errorf("session %s: dispatch %s packet: %w", s.Path, pkt.Type, err)
		}
	}
	return nil
}

// CheckBaudHunt reports whether the baud/framing hunt is due to
// advance given the current silence/byte-count state, and if so
// returns the next framing to apply to the device.
func (s *Session) CheckBaudHunt() (driver.Framing, bool) {
	now := time.Now()
	if !s.hunter.Due(now) {
		return driver.Framing{}, false
	}
	return s.hunter.Advance(), true
}

// CloseReportingCycle closes the current fix-merge reporting cycle
// (spec.md §4.G) and, if a publisher is attached, emits a TPV (and, if
// the skyview changed, a SKY) record filtered through the session's
// policy.
func (s *Session) CloseReportingCycle() error {
	merged, changed := s.fix.CloseCycle()
	if s.publisher == nil || changed == 0 {
		return nil
	}
	if !s.policy.Filter(string(publishClassTPV)) {
		return nil
	}
	return s.publisher.EmitTPV(s.Path, merged)
}

// publishClassTPV avoids importing publish.Class just for this literal
// comparison in Filter.
const publishClassTPV = "TPV"

// ApplyFix lets a driver's Parse method merge a partial fix update
// into this session's accumulator, returning whether the named
// sentence/message closes the reporting cycle.
func (s *Session) ApplyFix(name string, mask fix.Mask, source fix.Fix) bool {
	return s.fix.Apply(name, mask, source)
}

// ReplaceSkyview lets a driver install a freshly decoded satellite
// table.
func (s *Session) ReplaceSkyview(sats []fix.SatelliteInfo) {
	s.fix.ReplaceSkyview(sats)
}

// PublishRaw emits a whole decoded protocol message (AIS, RTCM2,
// RTCM3, SUBFRAME) under its own class, independent of the fix-merge
// reporting cycle, filtered through the same session policy as TPV/SKY.
func (s *Session) PublishRaw(class string, payload interface{}) error {
	if s.publisher == nil || !s.policy.Filter(class) {
		return nil
	}
	switch class {
	case "AIS":
		return s.publisher.EmitAIS(s.Path, payload)
	case "RTCM2":
		return s.publisher.EmitRTCM2(s.Path, payload)
	case "RTCM3":
		return s.publisher.EmitRTCM3(s.Path, payload)
	case "SUBFRAME":
		return s.publisher.EmitSubframe(s.Path, payload)
	default:
		return fmt.Errorf("session %s: publish raw: unknown class %s", s.Path, class)
	}
}

// Reopen re-establishes the device connection after a close, resuming
// the baud hunt from the previously saved framing if one was recorded
// (spec.md §5: "the lexer's saved_baud is persisted in the session so
// reconnects skip the hunt"), rather than starting over at the bottom
// of the speed table.
func (s *Session) Reopen(device Device) error {
	s.device = device
	s.arbitrator = driver.NewArbitrator(s.table, s)
	if saved, ok := s.hunter.SavedFraming(); ok {
		s.hunter.Resume(saved)
	}
	return s.arbitrator.Wakeup()
}
