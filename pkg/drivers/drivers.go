// Package drivers adapts the concrete wire-protocol decoders in
// pkg/ais, pkg/rtcm2, pkg/gnssgo/nmea, pkg/gnssgo/rtcm, and
// pkg/subframe into driver.Driver implementations for the driver table
// built in pkg/driver: each Parse method is a thin dispatcher over its
// own standalone decoder package rather than inlining protocol logic.
package drivers

import (
	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/fix"
)

// FixHost is the richer capability set these drivers need beyond
// driver.Host's bare Write: merging a partial fix contribution,
// replacing the skyview table, and publishing a whole decoded message
// under its own class. *session.Session implements this; pkg/driver
// itself only knows about the narrower Host interface, so drivers type
// assert their driver.Host argument to FixHost rather than pkg/driver
// importing pkg/fix or pkg/session (see session.Session.Write's
// doc comment for the reasoning).
type FixHost interface {
	driver.Host
	ApplyFix(name string, mask fix.Mask, source fix.Fix) bool
	ReplaceSkyview(sats []fix.SatelliteInfo)
	PublishRaw(class string, payload interface{}) error
	CloseReportingCycle() error
}

// asFixHost type-asserts a driver.Host to the richer FixHost contract.
// Every driver in this package needs it; a Host that doesn't implement
// it (a test double exercising only the narrow interface) makes Parse
// a no-op rather than panicking, so lexer-level tests that don't care
// about fix merging still pass.
func asFixHost(h driver.Host) (FixHost, bool) {
	fh, ok := h.(FixHost)
	return fh, ok
}
