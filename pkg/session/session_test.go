package session

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/fix"
	"github.com/northfall/gnssmux/pkg/gnsstime"
	"github.com/northfall/gnssmux/pkg/lexer"
	"github.com/northfall/gnssmux/pkg/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// loopDevice is an in-memory Device double: writes are captured, reads
// are never used directly (tests drive Feed explicitly).
type loopDevice struct {
	written bytes.Buffer
}

func (d *loopDevice) Read(p []byte) (int, error)  { return 0, nil }
func (d *loopDevice) Write(p []byte) (int, error) { return d.written.Write(p) }

// fakeNMEADriver claims NMEA packets and merges a fixed fix update on
// every packet, closing the reporting cycle by naming itself as its
// own terminator sentence.
type fakeNMEADriver struct {
	host    *Session
	parsed  int
}

func (d *fakeNMEADriver) Name() string                    { return "fake-nmea" }
func (d *fakeNMEADriver) PacketTypes() []lexer.PacketType { return []lexer.PacketType{lexer.NMEA} }
func (d *fakeNMEADriver) Trigger() *regexp.Regexp         { return nil }
func (d *fakeNMEADriver) Hooks() driver.EventHooks        { return driver.EventHooks{} }
func (d *fakeNMEADriver) Parse(h driver.Host, pkt lexer.Packet) error {
	d.parsed++
	d.host.ApplyFix("GGA", fix.LatLonSet, fix.Fix{Latitude: 12.5, Longitude: -1.25})
	return nil
}

func newTestSession(t *testing.T) (*Session, *fakeNMEADriver, *[][]byte) {
	table := driver.NewTable()
	dev := &loopDevice{}
	ctx := gnsstime.NewContext(fixedEpoch, 18)

	var emitted [][]byte
	pub := publish.NewPublisher(func(b []byte) error {
		emitted = append(emitted, append([]byte(nil), b...))
		return nil
	})

	s := New("/dev/fake0", dev, ctx, table, []string{"GGA"}, pub)
	fd := &fakeNMEADriver{host: s}
	table.Register(fd)
	return s, fd, &emitted
}

func TestSession_FeedDispatchesToDriverAndClosesCycleOnTerminator(t *testing.T) {
	s, fd, emitted := newTestSession(t)

	err := s.Feed([]byte(testGGA))
	require.NoError(t, err)
	assert.Equal(t, 1, fd.parsed)

	require.NoError(t, s.CloseReportingCycle())
	require.Len(t, *emitted, 1)
}

func TestSession_PolicyFiltersPublication(t *testing.T) {
	s, _, emitted := newTestSession(t)
	s.SetPolicy(fix.Policy{Classes: map[string]bool{"SKY": true}})

	require.NoError(t, s.Feed([]byte(testGGA)))
	require.NoError(t, s.CloseReportingCycle())
	assert.Empty(t, *emitted, "TPV must not publish when the policy only subscribes to SKY")
}

func TestSession_ReopenWithoutSavedFramingSucceeds(t *testing.T) {
	s, _, _ := newTestSession(t)
	dev2 := &loopDevice{}
	err := s.Reopen(dev2)
	require.NoError(t, err)
}

var fixedEpoch = mustParseTime("2024-01-01T00:00:00Z")

// testGGA is the literal S1 scenario sentence from spec.md, already
// trusted (and checksum-verified in anger) by pkg/lexer's own tests.
const testGGA = "$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,-25.669,M,2.0,0031*4F\r\n"
