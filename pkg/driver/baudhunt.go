package driver

import "time"

// Parity is the serial framing parity setting cycled by the baud hunt.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// Framing is one point in the baud/framing hunt space: a speed, parity
// and stop-bit count.
type Framing struct {
	Speed    int
	Parity   Parity
	StopBits int
}

// speedTable is the fixed speed ladder spec.md §4.E specifies.
var speedTable = []int{4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

// framingTable cycles parity/stop-bits combinations (N1, E1, N2, ...) at
// each speed before advancing, per spec.md §4.E.
var framingTable = []struct {
	Parity   Parity
	StopBits int
}{
	{ParityNone, 1},
	{ParityEven, 1},
	{ParityNone, 2},
	{ParityOdd, 1},
}

// quietWindow is the 3-second silence threshold spec.md §4.E specifies
// for triggering a hunt step.
const quietWindow = 3 * time.Second

// byteThreshold triggers a hunt step after this many bytes without a
// good packet, independent of elapsed time (spec.md §4.E,
// "MAX_PACKET_LENGTH + 128").
const byteThreshold = 12288 + 128

// BaudHunter tracks a session's position in the speed/framing hunt
// table and decides when it's time to advance. It holds no I/O handle
// of its own; the session applies the Framing it returns to the device.
type BaudHunter struct {
	speedIdx   int
	framingIdx int
	pinned     bool
	pinnedAt   Framing

	lastGood     time.Time
	bytesSince   int
	savedFraming *Framing
}

// NewBaudHunter creates a hunter starting at the first speed/framing
// combination.
func NewBaudHunter() *BaudHunter {
	return &BaudHunter{lastGood: time.Time{}}
}

// Pin disables the hunt at a fixed framing, per spec.md §4.E ("a fixed
// speed or framing pinned by configuration disables the hunt").
func (h *BaudHunter) Pin(f Framing) {
	h.pinned = true
	h.pinnedAt = f
}

// Resume seeds the hunter with a previously saved framing (spec.md §4.C
// closing-a-session note: "the lexer's saved_baud is persisted in the
// session so reconnects skip the hunt"), starting there instead of at
// the bottom of the speed table.
func (h *BaudHunter) Resume(f Framing) {
	h.savedFraming = &f
	for i, s := range speedTable {
		if s == f.Speed {
			h.speedIdx = i
			break
		}
	}
	for i, fr := range framingTable {
		if fr.Parity == f.Parity && fr.StopBits == f.StopBits {
			h.framingIdx = i
			break
		}
	}
}

// Current returns the framing the hunter is presently parked on.
func (h *BaudHunter) Current() Framing {
	if h.pinned {
		return h.pinnedAt
	}
	fr := framingTable[h.framingIdx%len(framingTable)]
	return Framing{
		Speed:    speedTable[h.speedIdx%len(speedTable)],
		Parity:   fr.Parity,
		StopBits: fr.StopBits,
	}
}

// ObserveGoodPacket resets the quiet-window and byte-threshold counters,
// and persists the current framing as the saved baud for future
// reconnects (spec.md §4.C, §4.E).
func (h *BaudHunter) ObserveGoodPacket(now time.Time) {
	h.lastGood = now
	h.bytesSince = 0
	cur := h.Current()
	h.savedFraming = &cur
}

// ObserveBytes accumulates bytes consumed without a good packet yet
// being framed; Due reports whether a hunt step should now be taken.
func (h *BaudHunter) ObserveBytes(n int, now time.Time) {
	h.bytesSince += n
	_ = now
}

// Due reports whether the hunt should advance: either the quiet window
// has elapsed since the last good packet, or byteThreshold bytes have
// been consumed without one (spec.md §4.E; exercised by spec.md §8
// scenario S6).
func (h *BaudHunter) Due(now time.Time) bool {
	if h.pinned {
		return false
	}
	if h.bytesSince >= byteThreshold {
		return true
	}
	if h.lastGood.IsZero() {
		return false
	}
	return now.Sub(h.lastGood) >= quietWindow
}

// Advance steps to the next framing in the hunt table: cycling parity
// and stop-bits at the current speed before moving to the next speed.
func (h *BaudHunter) Advance() Framing {
	h.bytesSince = 0
	h.framingIdx++
	if h.framingIdx >= len(framingTable) {
		h.framingIdx = 0
		h.speedIdx = (h.speedIdx + 1) % len(speedTable)
	}
	return h.Current()
}

// SavedFraming returns the last framing a good packet was observed
// under, for persisting across a session close/reopen.
func (h *BaudHunter) SavedFraming() (Framing, bool) {
	if h.savedFraming == nil {
		return Framing{}, false
	}
	return *h.savedFraming, true
}
