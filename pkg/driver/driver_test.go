package driver

import (
	"regexp"
	"testing"

	"github.com/northfall/gnssmux/pkg/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	written [][]byte
}

func (h *fakeHost) Write(data []byte) (int, error) {
	h.written = append(h.written, append([]byte{}, data...))
	return len(data), nil
}

type fakeDriver struct {
	name    string
	types   []lexer.PacketType
	trigger *regexp.Regexp
	hooks   EventHooks
	parsed  []lexer.Packet
}

func (d *fakeDriver) Name() string                       { return d.name }
func (d *fakeDriver) PacketTypes() []lexer.PacketType     { return d.types }
func (d *fakeDriver) Trigger() *regexp.Regexp             { return d.trigger }
func (d *fakeDriver) Hooks() EventHooks                   { return d.hooks }
func (d *fakeDriver) Parse(h Host, pkt lexer.Packet) error {
	d.parsed = append(d.parsed, pkt)
	return nil
}

func TestTable_MatchSingleCandidate(t *testing.T) {
	table := NewTable()
	generic := &fakeDriver{name: "generic-nmea", types: []lexer.PacketType{lexer.NMEA}}
	table.Register(generic)

	got := table.Match(lexer.Packet{Type: lexer.NMEA, Payload: []byte("$GPGGA,...")})
	assert.Equal(t, generic, got)
}

func TestTable_MatchPrefersTriggerMatch(t *testing.T) {
	table := NewTable()
	generic := &fakeDriver{name: "generic-nmea", types: []lexer.PacketType{lexer.NMEA}}
	ubloxSub := &fakeDriver{
		name:    "ublox-nmea",
		types:   []lexer.PacketType{lexer.NMEA},
		trigger: regexp.MustCompile(`^\$PUBX`),
	}
	table.Register(generic)
	table.Register(ubloxSub)

	got := table.Match(lexer.Packet{Type: lexer.NMEA, Payload: []byte("$PUBX,00,...")})
	assert.Equal(t, ubloxSub, got)

	got2 := table.Match(lexer.Packet{Type: lexer.NMEA, Payload: []byte("$GPGGA,...")})
	assert.Equal(t, generic, got2, "falls back to the first registered driver when no trigger matches")
}

func TestArbitrator_IdentifiedFiresOnce(t *testing.T) {
	table := NewTable()
	calls := 0
	d := &fakeDriver{
		name:  "nmea-generic",
		types: []lexer.PacketType{lexer.NMEA},
		hooks: EventHooks{Identified: func(h Host) error { calls++; return nil }},
	}
	table.Register(d)
	host := &fakeHost{}
	arb := NewArbitrator(table, host)

	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.NMEA, Payload: []byte("$GPGGA,1"), Length: 8}))
	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.NMEA, Payload: []byte("$GPGGA,2"), Length: 8}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, d, arb.Active())
}

func TestArbitrator_DriverSwitchFiresOnSubDriverTakeover(t *testing.T) {
	table := NewTable()
	var switched bool
	generic := &fakeDriver{name: "nmea-generic", types: []lexer.PacketType{lexer.NMEA}}
	sub := &fakeDriver{
		name:    "ublox-nmea",
		types:   []lexer.PacketType{lexer.NMEA},
		trigger: regexp.MustCompile(`^\$PUBX`),
		hooks:   EventHooks{DriverSwitch: func(h Host, newDriver string) error { switched = true; return nil }},
	}
	table.Register(generic)
	table.Register(sub)
	host := &fakeHost{}
	arb := NewArbitrator(table, host)

	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.NMEA, Payload: []byte("$GPGGA,1"), Length: 8}))
	assert.Equal(t, generic, arb.Active())

	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.NMEA, Payload: []byte("$PUBX,00,1"), Length: 10}))
	assert.True(t, switched)
	assert.Equal(t, sub, arb.Active())
}

func TestArbitrator_MinLengthTracksMinimum(t *testing.T) {
	table := NewTable()
	d := &fakeDriver{name: "nmea-generic", types: []lexer.PacketType{lexer.NMEA}}
	table.Register(d)
	arb := NewArbitrator(table, &fakeHost{})

	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.NMEA, Length: 40}))
	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.NMEA, Length: 20}))
	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.NMEA, Length: 30}))

	got, ok := arb.MinLength(lexer.NMEA)
	require.True(t, ok)
	assert.Equal(t, 20, got)
}

func TestArbitrator_SeenTypesAccumulates(t *testing.T) {
	table := NewTable()
	table.Register(&fakeDriver{name: "nmea", types: []lexer.PacketType{lexer.NMEA}})
	table.Register(&fakeDriver{name: "ubx", types: []lexer.PacketType{lexer.UBX}})
	arb := NewArbitrator(table, &fakeHost{})

	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.NMEA}))
	require.NoError(t, arb.Dispatch(lexer.Packet{Type: lexer.UBX}))

	seen := arb.SeenTypes()
	assert.True(t, seen[lexer.NMEA])
	assert.True(t, seen[lexer.UBX])
	assert.False(t, seen[lexer.RTCM3])
}
