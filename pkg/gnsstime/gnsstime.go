// Package gnsstime implements the GPS-week/TOW <-> UTC time model of
// spec.md §4.C: rollover-compensated week counting, two-digit-year century
// recovery for NMEA, and leap-second tracking shared by every session
// through a Context (spec.md §3).
package gnsstime

import (
	"time"
)

// GPSEpoch is 1980-01-06T00:00:00Z, the origin of the GPS week/TOW clock.
var GPSEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// SecondsPerWeek is the length of one GPS week.
const SecondsPerWeek = 7 * 24 * 3600

// RolloverWeeks is the span of the 10-bit week counter broadcast in GPS
// navigation messages and NMEA ZDA-adjacent fields.
const RolloverWeeks = 1024

// knownWrapBugThreshold is the spec.md §4.C sanity check: a reported
// leap-second count of 18 or more combined with a resolved UTC time
// before this date indicates the classic 1024-week wraparound bug, and
// the result should be shifted forward by one rollover era.
var knownWrapBugThreshold = time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC)

// Context is the process-wide, shared time state of spec.md §3: the
// current leap-second value, the NMEA century, and the GPS week rollover
// counter. Sessions hold a non-owning reference; only time-model routines
// mutate it, and because the main loop is single-threaded (spec.md §5) no
// lock is required.
type Context struct {
	LeapSeconds int  // current leap-second offset (UTC = GPS - LeapSeconds)
	LeapValid   bool // false until a source (almanac, build default) has set it

	Century int // e.g. 2000, used to resolve two-digit NMEA years

	lastWeek   int // last full GPS week observed, for rollover detection
	rollovers  int // number of 1024-week wraps folded in so far
	haveWeek   bool
	buildEpoch time.Time // build/start time, used as a sanity backstop
}

// NewContext builds a Context seeded with build-time defaults: the
// current host century and a leap-second value that must be refined by
// almanac/subframe data as it arrives. buildEpoch anchors the century
// recovery and the pre-epoch sanity check of spec.md §4.C.
func NewContext(buildEpoch time.Time, defaultLeapSeconds int) *Context {
	c := &Context{
		LeapSeconds: defaultLeapSeconds,
		LeapValid:   defaultLeapSeconds > 0,
		Century:     (buildEpoch.Year() / 100) * 100,
		buildEpoch:  buildEpoch,
	}
	return c
}

// SetLeapSeconds records a leap-second value learned from a subframe or
// almanac. Per spec.md §4.C, leap-second events broadcast by satellites
// are only honored when observed in March, June, September or December
// (the ITU-R TF.460-6 scheduled insertion months); observedMonth is the
// month in which the announcement was received.
func (c *Context) SetLeapSeconds(seconds int, observedMonth time.Month) {
	switch observedMonth {
	case time.March, time.June, time.September, time.December:
		c.LeapSeconds = seconds
		c.LeapValid = true
	}
}

// SetCenturyFromComment updates the century from a COMMENT pseudo-packet
// in a replay log (spec.md §4.D), which may carry a literal date such as
// "# 2024-03-01T00:00:00". year is the four-digit year parsed from it.
func (c *Context) SetCenturyFromComment(year int) {
	c.Century = (year / 100) * 100
}

// ResolveNMEAYear combines a two-digit NMEA year with the context's
// century, rolling the century forward if the result would otherwise sit
// more than ~50 years from the build epoch (spec.md §4.C).
func (c *Context) ResolveNMEAYear(twoDigitYear int) int {
	year := c.Century + twoDigitYear
	delta := year - c.buildEpoch.Year()
	if delta > 50 {
		c.Century -= 100
		year -= 100
	} else if delta < -50 {
		c.Century += 100
		year += 100
	}
	return year
}

// ObserveWeek folds a raw (mod-1024) GPS week number into the full week
// count, detecting rollover by comparing against the last observed full
// week modulo 1024 (spec.md §4.C, tested by spec.md §8 property 5).
func (c *Context) ObserveWeek(rawWeek int) (fullWeek int) {
	if !c.haveWeek {
		// Bootstrap: assume the rollover era implied by the build epoch.
		c.rollovers = elapsedRollovers(c.buildEpoch)
		c.haveWeek = true
	} else if rawWeek < c.lastWeek%RolloverWeeks {
		c.rollovers++
	}
	full := c.rollovers*RolloverWeeks + rawWeek
	c.lastWeek = full
	return full
}

// elapsedRollovers estimates how many 1024-week eras have elapsed between
// the GPS epoch and t, used only to bootstrap rollover tracking before
// any week has been observed.
func elapsedRollovers(t time.Time) int {
	weeks := int(t.Sub(GPSEpoch).Hours() / 24 / 7)
	if weeks < 0 {
		return 0
	}
	return weeks / RolloverWeeks
}

// UTC converts a full GPS week and time-of-week (seconds, 0 <= tow <
// SecondsPerWeek) into UTC, applying the context's current leap-second
// offset and the known wraparound-bug correction from spec.md §4.C.
func (c *Context) UTC(fullWeek int, tow float64) time.Time {
	gps := GPSEpoch.Add(time.Duration(fullWeek)*SecondsPerWeek*time.Second +
		time.Duration(tow*float64(time.Second)))
	utc := gps.Add(-time.Duration(c.LeapSeconds) * time.Second)

	if c.LeapSeconds >= 18 && utc.Before(knownWrapBugThreshold) {
		utc = utc.Add(RolloverWeeks * SecondsPerWeek * time.Second)
	}
	return utc
}

// GPSTime converts a full GPS week and time-of-week into GPS time
// (without the leap-second correction applied), the distinct entry point
// spec.md §4.C requires for "time of measurement" raw-observation exports
// such as RINEX.
func (c *Context) GPSTime(fullWeek int, tow float64) time.Time {
	return GPSEpoch.Add(time.Duration(fullWeek)*SecondsPerWeek*time.Second +
		time.Duration(tow*float64(time.Second)))
}

// ToWeekTOW is the inverse of UTC/GPSTime restricted to the GPS
// timescale: it re-encodes a GPS instant as (week mod 1024, tow), as
// required by the round-trip property in spec.md §8 property 5.
func ToWeekTOW(gps time.Time) (weekMod1024 int, tow float64) {
	elapsed := gps.Sub(GPSEpoch).Seconds()
	full := int(elapsed / SecondsPerWeek)
	tow = elapsed - float64(full)*SecondsPerWeek
	return full % RolloverWeeks, tow
}
