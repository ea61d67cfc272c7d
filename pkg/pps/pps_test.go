package pps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_RoundTripsAClockSample(t *testing.T) {
	seg := NewSegment(2)
	clock := time.Unix(1700000000, 123456000)
	receive := time.Unix(1700000000, 123999000)
	seg.Write(clock, receive, 0, PrecisionSerial)

	sample, ok := seg.Read(4)
	require.True(t, ok)
	assert.True(t, sample.Valid)
	assert.Equal(t, PrecisionSerial, sample.Precision)
	assert.Equal(t, clock.Unix(), sample.ClockTime.Unix())
}

func TestSegment_KeyOffsetsFromNTPBase(t *testing.T) {
	seg := NewSegment(3)
	assert.Equal(t, int32(NTPBase+3), seg.Key())
}

func TestSegment_RootOnlyUnitsAreZeroAndOne(t *testing.T) {
	assert.True(t, NewSegment(0).root)
	assert.True(t, NewSegment(1).root)
	assert.False(t, NewSegment(2).root)
}

func TestChronySample_MarshalLayout(t *testing.T) {
	s := ChronySample{Sec: 1700000000, USec: 500000, Offset: 0.000123, Pulse: 0, Leap: 0}
	buf := s.Marshal()
	require.Len(t, buf, 40)
	assert.Equal(t, uint32(MagicChrony), readLE32(buf[36:40]))
	assert.Equal(t, uint32(0), readLE32(buf[24:28])) // pulse
}

func readLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// fakeSource fires a fixed number of assert edges, then sleeps for the
// full timeout on every later fetch,
// letting the test exercise Stop/Wait without a real PPS line.
type fakeSource struct {
	fired int
	max   int
}

func (f *fakeSource) Fetch(timeout time.Duration) (time.Time, Edge, error) {
	if f.fired >= f.max {
		time.Sleep(timeout)
		return time.Time{}, EdgeAssert, nil
	}
	f.fired++
	return time.Now(), EdgeAssert, nil
}

func (f *fakeSource) Precision() int32 { return PrecisionUSB }

func TestThread_StopIsObservableViaWait(t *testing.T) {
	src := &fakeSource{max: 3}
	seg := NewSegment(2)
	thread := NewThread(src, seg, nil, nil)

	go thread.Run()
	time.Sleep(10 * time.Millisecond)
	thread.Stop()

	done := make(chan struct{})
	go func() {
		thread.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second): // Stop takes effect after the 3 s fetch timeout
		t.Fatal("thread did not shut down after Stop")
	}
}

func TestThread_HookCanAdjustEvent(t *testing.T) {
	src := &fakeSource{max: 100}
	seg := NewSegment(2)
	var hookCalls int
	hook := func(ev Event) Event {
		hookCalls++
		return ev
	}
	thread := NewThread(src, seg, nil, hook)

	go thread.Run()
	time.Sleep(20 * time.Millisecond)
	thread.Stop()
	thread.Wait()

	assert.Greater(t, hookCalls, 0)
}
