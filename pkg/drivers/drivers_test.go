package drivers

import (
	"testing"

	"github.com/northfall/gnssmux/pkg/fix"
	"github.com/northfall/gnssmux/pkg/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost is a minimal FixHost double recording every call a driver
// makes, so these tests can assert on dispatched mask/fix content
// without pulling in pkg/session.
type fakeHost struct {
	applied      []appliedFix
	skyview      []fix.SatelliteInfo
	raw          []rawPublish
	writeErr     error
	cyclesClosed int
}

type appliedFix struct {
	name   string
	mask   fix.Mask
	source fix.Fix
}

type rawPublish struct {
	class   string
	payload interface{}
}

func (h *fakeHost) Write(data []byte) (int, error) { return len(data), h.writeErr }
func (h *fakeHost) ApplyFix(name string, mask fix.Mask, source fix.Fix) bool {
	h.applied = append(h.applied, appliedFix{name, mask, source})
	return name == "RMC"
}
func (h *fakeHost) ReplaceSkyview(sats []fix.SatelliteInfo) { h.skyview = sats }
func (h *fakeHost) PublishRaw(class string, payload interface{}) error {
	h.raw = append(h.raw, rawPublish{class, payload})
	return nil
}
func (h *fakeHost) CloseReportingCycle() error {
	h.cyclesClosed++
	return nil
}

const testGGA = "$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,-25.669,M,2.0,0031*4F\r\n"

func TestNMEADriver_GGA_MergesLatLonAltitudeAndStatus(t *testing.T) {
	d := NewNMEADriver()
	h := &fakeHost{}

	err := d.Parse(h, lexer.Packet{Type: lexer.NMEA, Payload: []byte(testGGA)})
	require.NoError(t, err)
	require.Len(t, h.applied, 1)

	got := h.applied[0]
	assert.Equal(t, "GGA", got.name)
	assert.Equal(t, fix.Mode3D, got.source.Mode)
	assert.Equal(t, fix.StatusDGPS, got.source.Status)
	assert.InDelta(t, 37.39109795, got.source.Latitude, 1e-6)
	assert.Zero(t, h.cyclesClosed, "GGA is not a reporting-cycle terminator")
}

func TestNMEADriver_RMCTerminatesReportingCycle(t *testing.T) {
	d := NewNMEADriver()
	h := &fakeHost{}

	sentence := "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n"
	err := d.Parse(h, lexer.Packet{Type: lexer.NMEA, Payload: []byte(sentence)})
	require.NoError(t, err)
	assert.Equal(t, 1, h.cyclesClosed, "RMC should close the reporting cycle")
}

func TestNMEADriver_GSV_ReplacesSkyviewOnFinalMessage(t *testing.T) {
	d := NewNMEADriver()
	h := &fakeHost{}

	first := "$GPGSV,2,1,08,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45*75\r\n"
	second := "$GPGSV,2,2,08,15,25,175,39,18,34,164,42,21,12,098,33,24,05,215,30*77\r\n"

	require.NoError(t, d.Parse(h, lexer.Packet{Type: lexer.NMEA, Payload: []byte(first)}))
	assert.Empty(t, h.skyview, "skyview should not publish until the final GSV message arrives")

	require.NoError(t, d.Parse(h, lexer.Packet{Type: lexer.NMEA, Payload: []byte(second)}))
	assert.NotEmpty(t, h.skyview)
}

func TestAISDriver_SingleFragmentDecodesAndPublishes(t *testing.T) {
	d := NewAISDriver()
	h := &fakeHost{}

	sentence := "!AIVDM,1,1,,A,15M67FC000G?ufbE`FepT@3n00Sa,0*5C\r\n"
	err := d.Parse(h, lexer.Packet{Type: lexer.AIVDM, Payload: []byte(sentence)})
	require.NoError(t, err)
	require.Len(t, h.raw, 1)
	assert.Equal(t, "AIS", h.raw[0].class)
}

func TestAISDriver_NarrowHostIsANoOp(t *testing.T) {
	d := NewAISDriver()
	var h narrowHost
	sentence := "!AIVDM,1,1,,A,15M67FC000G?ufbE`FepT@3n00Sa,0*5C\r\n"
	err := d.Parse(&h, lexer.Packet{Type: lexer.AIVDM, Payload: []byte(sentence)})
	assert.NoError(t, err)
}

// narrowHost implements only driver.Host, exercising the
// asFixHost type-assertion failure path.
type narrowHost struct{}

func (narrowHost) Write(data []byte) (int, error) { return len(data), nil }
