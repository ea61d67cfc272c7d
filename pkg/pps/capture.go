package pps

import (
	"sync"
	"time"
)

// Edge distinguishes the PPS "assert" (rising) and "clear" (falling)
// edges, each with its own sequence counter per spec.md §4.H.
type Edge int

const (
	EdgeAssert Edge = iota
	EdgeClear
)

// Precision codes spec.md assigns per transport: -10 for a USB-attached
// source (roughly 1ms jitter), -20 for a native serial UART source
// (roughly 1us jitter). Values are log2(seconds), the NTP convention.
const (
	PrecisionUSB    int32 = -10
	PrecisionSerial int32 = -20
)

// Event is one captured PPS edge, handed to the session's pps_hook
// before publication.
type Event struct {
	Edge      Edge
	Real      time.Time // GPS_top_of_second: the modeled true time of the edge
	Capture   time.Time // the kernel/driver capture timestamp
	Sequence  uint32
	Precision int32
}

// Source is the capability a PPS thread needs from the underlying
// kernel handle: RFC 2783's time_pps_fetch, abstracted so the thread
// loop itself is portable and testable without a real PPS line. The
// module includes no production Source implementation; this package
// defines the contract and the thread's cooperative-shutdown behavior.
type Source interface {
	// Fetch blocks for up to timeout for the next PPS edge, returning
	// the capture timestamp and which edge fired.
	Fetch(timeout time.Duration) (capture time.Time, edge Edge, err error)
	Precision() int32
}

// Thread runs one device's PPS capture loop: fetch an edge, compute
// the modeled top-of-second time, apply the session hook, publish to
// the SHM segment and (if configured) the chrony socket. It owns no
// lock-shared state with the main loop beyond the Segment's bookend
// counters and the chrony socket, both already safe for a single
// writer, per spec.md §5's concurrency model.
type Thread struct {
	source Source
	segment *Segment
	chrony  *ChronyClient
	hook    func(Event) Event

	assertSeq, clearSeq uint32

	deactivate chan struct{}
	done       chan struct{}
	once       sync.Once
}

// NewThread builds a PPS capture thread for one device. hook may be
// nil; when set, it is spec.md's "session's pps_hook", applied to each
// Event before publication (e.g. to adjust for a known cable delay).
func NewThread(source Source, segment *Segment, chrony *ChronyClient, hook func(Event) Event) *Thread {
	return &Thread{
		source:     source,
		segment:    segment,
		chrony:     chrony,
		hook:       hook,
		deactivate: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run executes the capture loop until Stop is called (a Fetch error is
// skipped and the loop fetches again); it returns once the loop has fully exited,
// making the shutdown the join spec.md requires observable — a caller
// that wants the thread to run in the background should invoke this in
// its own goroutine and rely on Stop and Wait.
func (t *Thread) Run() {
	defer close(t.done)
	const fetchTimeout = 3 * time.Second

	for {
		select {
		case <-t.deactivate:
			return
		default:
		}

		capture, edge, err := t.source.Fetch(fetchTimeout)
		if err != nil {
			continue
		}

		var seq uint32
		switch edge {
		case EdgeAssert:
			t.assertSeq++
			seq = t.assertSeq
		case EdgeClear:
			t.clearSeq++
			seq = t.clearSeq
		}

		ev := Event{
			Edge:      edge,
			Real:      capture.Truncate(time.Second).Add(time.Second),
			Capture:   capture,
			Sequence:  seq,
			Precision: t.source.Precision(),
		}
		if t.hook != nil {
			ev = t.hook(ev)
		}

		if t.segment != nil {
			t.segment.Write(ev.Real, ev.Capture, 0, ev.Precision)
		}
		if t.chrony != nil {
			offset := ev.Real.Sub(ev.Capture).Seconds()
			_ = t.chrony.Send(ChronySample{
				Sec:    ev.Capture.Unix(),
				USec:   int64(ev.Capture.Nanosecond() / 1000),
				Offset: offset,
				Pulse:  0,
				Leap:   0,
			})
		}
	}
}

// Stop signals the capture loop to exit at its next timeout boundary.
// Safe to call multiple times.
func (t *Thread) Stop() {
	t.once.Do(func() { close(t.deactivate) })
}

// Wait blocks until Run has returned, making thread shutdown
// observable to the caller (spec.md §5: "the join is observable").
func (t *Thread) Wait() {
	<-t.done
}
