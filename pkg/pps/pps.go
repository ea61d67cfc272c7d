// Package pps implements the two time-sync export mechanisms of
// spec.md §4.H: a lock-free bookend-protocol SHM segment compatible
// with ntpd's shmTime record, and a chrony SOCK refclock datagram.
// The chrony datagram is a fixed little-endian wire layout, encoded the
// same way the pack's NTP packet code (see other_examples' NTP Packet
// type) lays out a protocol header with encoding/binary rather than
// unsafe pointer casts. Segment holds the shmTime fields in a Go struct;
// this package gives it no byte encoding.
package pps

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"sync/atomic"
	"time"
)

// NTPBase is the SHM key base ntpd's shared-memory refclock driver
// uses; gpsd-style instances key segments at NTPBase+unit.
const NTPBase = 0x4e545030 // "NTP0"

// MagicChrony is the fixed magic number stamped into every chrony
// datagram sample, spec.md's literal 0x534F434B ("SOCK").
const MagicChrony = 0x534F434B

// Segment is one shmTime-compatible record (spec.md's 96-byte layout),
// guarded by the two-counter bookend protocol instead of a lock: the
// writer bumps b2, writes the payload, then sets b1 = b2; a reader
// that observes b1 == b2 unchanged across its own read saw a
// consistent snapshot.
type Segment struct {
	unit int
	root bool // true if this instance grabbed a root-only unit (0 or 1)

	b1, b2 int32 // atomic bookend counters

	mode                                         int32
	clockTimeStampSec, clockTimeStampUSec         int32
	receiveTimeStampSec, receiveTimeStampUSec     int32
	leap, precision, nsamples, valid              int32
	clockTimeStampNSec, receiveTimeStampNSec       int32
}

// NewSegment allocates the (clock, PPS) unit pair's clock-side segment
// for unit. Units 0-1 are root-only (0600); units 2+ are world
// accessible (0666), per the ntpd convention spec.md documents. The
// permission bit itself is a filesystem concern of whatever transport
// maps this struct onto a real SysV/POSIX shared memory segment; this
// package models the record and its bookend protocol, leaving the
// actual OS shm attachment to the caller's platform-specific glue.
func NewSegment(unit int) *Segment {
	return &Segment{unit: unit, root: unit < 2, mode: 1}
}

// Unit reports this segment's NTP unit number.
func (s *Segment) Unit() int { return s.unit }

// Key returns this segment's SHM key, NTP_BASE + unit.
func (s *Segment) Key() int32 { return int32(NTPBase + s.unit) }

// Write publishes one clock sample using the bookend protocol: bump
// b2, write fields, then publish by setting b1 = b2. Using
// sync/atomic's memory-ordering guarantees stands in for the explicit
// compiler/CPU barriers spec.md describes, since Go's happens-before
// rules for atomic stores/loads give the same ordering without a
// hand-rolled barrier primitive.
func (s *Segment) Write(clock, receive time.Time, leap int, precision int32) {
	b2 := atomic.AddInt32(&s.b2, 1)

	atomic.StoreInt32(&s.clockTimeStampSec, int32(clock.Unix()))
	atomic.StoreInt32(&s.clockTimeStampUSec, int32(clock.Nanosecond()/1000))
	atomic.StoreInt32(&s.clockTimeStampNSec, int32(clock.Nanosecond()))
	atomic.StoreInt32(&s.receiveTimeStampSec, int32(receive.Unix()))
	atomic.StoreInt32(&s.receiveTimeStampUSec, int32(receive.Nanosecond()/1000))
	atomic.StoreInt32(&s.receiveTimeStampNSec, int32(receive.Nanosecond()))
	atomic.StoreInt32(&s.leap, int32(leap))
	atomic.StoreInt32(&s.precision, precision)
	atomic.AddInt32(&s.nsamples, 1)
	atomic.StoreInt32(&s.valid, 1)

	atomic.StoreInt32(&s.b1, b2)
}

// Sample is a consistent, already-validated snapshot of a Segment.
type Sample struct {
	ClockTime   time.Time
	ReceiveTime time.Time
	Leap        int
	Precision   int32
	Valid       bool
}

// Read performs one bookend-protocol read, retrying while the writer
// is mid-update (b1 read before the copy must equal b2 read both before
// and after the copy, per spec.md's consistency rule).
// It gives up and returns ok=false after maxRetries to avoid spinning
// forever against a stalled writer.
func (s *Segment) Read(maxRetries int) (sample Sample, ok bool) {
	for i := 0; i < maxRetries; i++ {
		b1Before := atomic.LoadInt32(&s.b1)
		b2Before := atomic.LoadInt32(&s.b2)

		clockSec := atomic.LoadInt32(&s.clockTimeStampSec)
		clockNSec := atomic.LoadInt32(&s.clockTimeStampNSec)
		recvSec := atomic.LoadInt32(&s.receiveTimeStampSec)
		recvNSec := atomic.LoadInt32(&s.receiveTimeStampNSec)
		leap := atomic.LoadInt32(&s.leap)
		precision := atomic.LoadInt32(&s.precision)
		valid := atomic.LoadInt32(&s.valid)

		b2After := atomic.LoadInt32(&s.b2)

		if b1Before == b2After && b2After == b2Before {
			return Sample{
				ClockTime:   time.Unix(int64(clockSec), int64(clockNSec)),
				ReceiveTime: time.Unix(int64(recvSec), int64(recvNSec)),
				Leap:        int(leap),
				Precision:   precision,
				Valid:       valid != 0,
			}, true
		}
	}
	return Sample{}, false
}

// ChronySample is the fixed 40-byte (on LP64) sock_sample record
// spec.md's chrony datagram interface describes:
// {timeval tv, double offset, int32 pulse, int32 leap, int32 _pad, int32 magic}.
type ChronySample struct {
	Sec, USec int64
	Offset    float64
	Pulse     int32
	Leap      int32
}

// Marshal encodes a ChronySample into its 40-byte wire layout,
// little-endian (the chronyd SOCK refclock driver's native byte
// order on the platforms gpsd targets).
func (c ChronySample) Marshal() []byte {
	buf := make([]byte, 40)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(c.Sec))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(c.USec))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(c.Offset))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(c.Pulse))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(c.Leap))
	binary.LittleEndian.PutUint32(buf[32:36], 0) // _pad
	binary.LittleEndian.PutUint32(buf[36:40], MagicChrony)
	return buf
}

// ChronyClient sends PPS-edge samples to a chronyd SOCK refclock
// listening on a Unix datagram socket, one socket per device as
// spec.md specifies (RUNDIR/chrony.<devname>.sock, or /tmp/... when
// unprivileged).
type ChronyClient struct {
	conn *net.UnixConn
}

// DialChrony opens the datagram socket at sockPath. The caller is
// responsible for choosing RUNDIR vs /tmp based on privilege, per
// spec.md — that choice depends on process-level facts (euid, RUNDIR
// existence) outside this package's scope.
func DialChrony(sockPath string) (*ChronyClient, error) {
	addr, err := net.ResolveUnixAddr("unixgram", sockPath)
	if err != nil {
		return nil, fmt.Errorf("pps: resolve chrony socket %s: %w", sockPath, err)
	}
	conn, err := net.DialUnix("unixgram", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("pps: dial chrony socket %s: %w", sockPath, err)
	}
	return &ChronyClient{conn: conn}, nil
}

// Send transmits one sample datagram.
func (c *ChronyClient) Send(s ChronySample) error {
	_, err := c.conn.Write(s.Marshal())
	return err
}

// Close closes the chrony datagram socket.
func (c *ChronyClient) Close() error {
	return c.conn.Close()
}
