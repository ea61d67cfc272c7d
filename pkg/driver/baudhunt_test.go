package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaudHunter_AdvancesCyclesFramingBeforeSpeed(t *testing.T) {
	h := NewBaudHunter()
	start := h.Current()
	assert.Equal(t, 4800, start.Speed)
	assert.Equal(t, ParityNone, start.Parity)

	next := h.Advance()
	assert.Equal(t, 4800, next.Speed, "framing cycles before the speed advances")
	assert.Equal(t, ParityEven, next.Parity)
}

func TestBaudHunter_AdvancesSpeedAfterFramingExhausted(t *testing.T) {
	h := NewBaudHunter()
	var last Framing
	for i := 0; i < len(framingTable); i++ {
		last = h.Advance()
	}
	assert.Equal(t, 9600, last.Speed)
	assert.Equal(t, ParityNone, last.Parity)
}

func TestBaudHunter_DueAfterQuietWindow(t *testing.T) {
	h := NewBaudHunter()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.ObserveGoodPacket(base)
	assert.False(t, h.Due(base.Add(2*time.Second)))
	assert.True(t, h.Due(base.Add(3*time.Second)))
}

func TestBaudHunter_DueAfterByteThreshold(t *testing.T) {
	h := NewBaudHunter()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.ObserveGoodPacket(base)
	h.ObserveBytes(byteThreshold, base)
	assert.True(t, h.Due(base))
}

func TestBaudHunter_PinDisablesHunt(t *testing.T) {
	h := NewBaudHunter()
	h.Pin(Framing{Speed: 115200, Parity: ParityNone, StopBits: 1})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, h.Due(base.Add(time.Hour)))
	assert.Equal(t, 115200, h.Current().Speed)
}

func TestBaudHunter_ResumeSkipsHunt(t *testing.T) {
	h := NewBaudHunter()
	h.Resume(Framing{Speed: 38400, Parity: ParityEven, StopBits: 1})
	cur := h.Current()
	assert.Equal(t, 38400, cur.Speed)
	assert.Equal(t, ParityEven, cur.Parity)
}

func TestBaudHunter_SavedFramingPersistsLastGood(t *testing.T) {
	h := NewBaudHunter()
	h.Advance()
	h.Advance()
	now := time.Now()
	h.ObserveGoodPacket(now)
	saved, ok := h.SavedFraming()
	assert.True(t, ok)
	assert.Equal(t, h.Current(), saved)
}
