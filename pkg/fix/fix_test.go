package fix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMerge_OnlyTouchesMaskedFields(t *testing.T) {
	target := Fix{Latitude: 1, Longitude: 2, Altitude: 3}
	Merge(&target, LatLonSet, Fix{Latitude: 10, Longitude: 20, Altitude: 999})
	assert.Equal(t, 10.0, target.Latitude)
	assert.Equal(t, 20.0, target.Longitude)
	assert.Equal(t, 3.0, target.Altitude, "altitude must be untouched: AltitudeSet was not in the mask")
}

func TestMerge_ModePromotesButDoesNotDowngrade(t *testing.T) {
	target := Fix{Mode: Mode3D}
	Merge(&target, ModeSet, Fix{Mode: Mode2D})
	assert.Equal(t, Mode3D, target.Mode, "a lower-confidence mode must not downgrade an existing 3D fix")

	Merge(&target, ModeSet, Fix{Mode: ModeNoFix})
	assert.Equal(t, Mode3D, target.Mode)
}

func TestMerge_StatusIndependentOfMode(t *testing.T) {
	target := Fix{Mode: Mode3D, Status: StatusGPS}
	Merge(&target, StatusSet, Fix{Status: StatusRTKFixed})
	assert.Equal(t, Mode3D, target.Mode, "status merge must not touch mode")
	assert.Equal(t, StatusRTKFixed, target.Status)
}

func TestSession_CycleClosesOnTerminatorSentence(t *testing.T) {
	s := NewSession("/dev/ttyUSB0", []string{"RMC"})

	closed := s.Apply("GGA", LatLonSet|AltitudeSet, Fix{Latitude: 1, Longitude: 2, Altitude: 3})
	assert.False(t, closed)

	closed = s.Apply("RMC", SpeedSet|TrackSet, Fix{Speed: 5, Track: 90})
	assert.True(t, closed)

	merged, changed := s.CloseCycle()
	assert.Equal(t, 1.0, merged.Latitude)
	assert.Equal(t, 5.0, merged.Speed)
	assert.Equal(t, LatLonSet|AltitudeSet|SpeedSet|TrackSet, changed)

	_, changedAfter := s.CloseCycle()
	assert.Equal(t, Mask(0), changedAfter, "changed mask must reset after a cycle close")
}

func TestSession_ModeSurvivesAcrossCycles(t *testing.T) {
	s := NewSession("/dev/ttyUSB0", []string{"RMC"})
	s.Apply("GGA", ModeSet, Fix{Mode: Mode3D})
	s.Apply("RMC", TimeSet, Fix{Time: time.Unix(0, 0)})
	s.CloseCycle()

	s.Apply("GGA", ModeSet, Fix{Mode: ModeNotSeen})
	merged, _ := s.CloseCycle()
	assert.Equal(t, Mode3D, merged.Mode, "mode promotion must not reset between reporting cycles")
}

func TestPolicy_FilterEmptyClassesAllowsEverything(t *testing.T) {
	p := Policy{}
	assert.True(t, p.Filter("TPV"))
	assert.True(t, p.Filter("SKY"))
}

func TestPolicy_FilterRestrictsToSubscribedClasses(t *testing.T) {
	p := Policy{Classes: map[string]bool{"TPV": true}}
	assert.True(t, p.Filter("TPV"))
	assert.False(t, p.Filter("SKY"))
}

func TestReplaceSkyview_OverwritesWhollyRatherThanMerging(t *testing.T) {
	s := NewSession("/dev/ttyUSB0", nil)
	s.ReplaceSkyview([]SatelliteInfo{{PRN: 1, Used: true}, {PRN: 2, Used: true}})
	s.ReplaceSkyview([]SatelliteInfo{{PRN: 3, Used: false}})
	assert.Len(t, s.Sky.Satellites, 1)
	assert.Equal(t, 3, s.Sky.Satellites[0].PRN)
}
