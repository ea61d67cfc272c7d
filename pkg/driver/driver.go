// Package driver implements the per-session driver table and arbitration
// layer of spec.md §4.E: matching a framed packet to the driver that owns
// it, switching to more specific sub-drivers as distinguishing messages
// arrive, and running the baud/framing hunt when the stream goes quiet.
package driver

import (
	"regexp"

	"github.com/northfall/gnssmux/pkg/lexer"
)

// Host is the capability set a driver's event hooks need from the
// session that owns it: writing configuration/wakeup bytes back to the
// device. Kept minimal and defined here, rather than
// depending on pkg/session directly, to avoid a import cycle between the
// session (which drives the table) and the table (whose hooks act on the
// session's device).
type Host interface {
	Write(data []byte) (int, error)
}

// EventHooks are the lifecycle callbacks spec.md §4.E attaches to each
// driver. Any hook may be nil.
type EventHooks struct {
	// Identified fires once, the first time this driver becomes active
	// for a session.
	Identified func(h Host) error
	// Configure fires after Identified, and again after DriverSwitch, to
	// push any receiver configuration this driver wants.
	Configure func(h Host) error
	// Wakeup fires when the session (re)opens the device, before any
	// packet has been seen, to nudge an idle receiver into talking.
	Wakeup func(h Host) error
	// DriverSwitch fires when a sub-driver takes over from a more
	// general one (e.g. u-blox generic NMEA -> u-blox binary).
	DriverSwitch func(h Host, newDriver string) error
	// Deactivate fires when this driver stops being the active one,
	// either because the session closed or another driver took over.
	Deactivate func(h Host) error
}

// Driver is one entry in the driver table. A driver owns decoding for one
// or more lexer.PacketType values; Trigger, if non-nil, lets a more
// specific sub-driver claim ownership away from a generic one once its
// distinctive first message is seen (spec.md §4.E point 3).
type Driver interface {
	Name() string
	PacketTypes() []lexer.PacketType
	Trigger() *regexp.Regexp
	Hooks() EventHooks
	// Parse consumes one framed packet, mutating whatever per-session
	// accumulator state (fix, skyview, ...) the decoder owns.
	Parse(h Host, pkt lexer.Packet) error
}

// Table is the process-wide registry of known drivers, indexed by the
// packet types they can claim. Multiple drivers may register for the
// same type; the first whose Trigger matches (or the first registered,
// if none declares a trigger) wins.
type Table struct {
	byType map[lexer.PacketType][]Driver
}

// NewTable builds an empty driver table.
func NewTable() *Table {
	return &Table{byType: make(map[lexer.PacketType][]Driver)}
}

// Register adds a driver to the table for every packet type it declares.
func (t *Table) Register(d Driver) {
	for _, pt := range d.PacketTypes() {
		t.byType[pt] = append(t.byType[pt], d)
	}
}

// Candidates returns every driver registered for a packet type, in
// registration order.
func (t *Table) Candidates(pt lexer.PacketType) []Driver {
	return t.byType[pt]
}

// Match picks the driver for a freshly framed packet: if more than one
// driver claims the type, the first whose Trigger matches the payload
// wins; otherwise the first registered driver for that type is used.
func (t *Table) Match(pkt lexer.Packet) Driver {
	candidates := t.byType[pkt.Type]
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	for _, d := range candidates {
		if tr := d.Trigger(); tr != nil && tr.Match(pkt.Payload) {
			return d
		}
	}
	return candidates[0]
}

// Arbitrator is the per-session state spec.md §3's Session struct holds:
// which driver currently owns the stream, the set of packet types seen
// so far, and the per-packet-type minimum length counter read through
// MinLength. Neither CLI reports that counter; gpsdecode's --minlength
// flag is a length floor for dropping packets, not a report of it.
type Arbitrator struct {
	table  *Table
	host   Host
	active Driver

	seen      map[lexer.PacketType]bool
	minLength map[lexer.PacketType]int
}

// NewArbitrator creates per-session arbitration state bound to a driver
// table and the session's I/O host (used to fire hook-triggered writes).
func NewArbitrator(table *Table, host Host) *Arbitrator {
	return &Arbitrator{
		table:     table,
		host:      host,
		seen:      make(map[lexer.PacketType]bool),
		minLength: make(map[lexer.PacketType]int),
	}
}

// Active returns the currently selected driver, or nil if none has been
// identified yet.
func (a *Arbitrator) Active() Driver { return a.active }

// Dispatch routes one framed packet to its driver, switching the active
// driver and firing Identified/DriverSwitch/Configure hooks as needed
// per spec.md §4.E's selection protocol, then invokes the driver's Parse.
func (a *Arbitrator) Dispatch(pkt lexer.Packet) error {
	a.recordMinLength(pkt)
	a.seen[pkt.Type] = true

	next := a.table.Match(pkt)
	if next == nil {
		return nil
	}
	if a.active == nil {
		a.active = next
		if hook := next.Hooks().Identified; hook != nil {
			if err := hook(a.host); err != nil {
				return err
			}
		}
		if hook := next.Hooks().Configure; hook != nil {
			if err := hook(a.host); err != nil {
				return err
			}
		}
	} else if next.Name() != a.active.Name() {
		prev := a.active
		if hook := prev.Hooks().Deactivate; hook != nil {
			if err := hook(a.host); err != nil {
				return err
			}
		}
		a.active = next
		if hook := next.Hooks().DriverSwitch; hook != nil {
			if err := hook(a.host, next.Name()); err != nil {
				return err
			}
		}
		if hook := next.Hooks().Configure; hook != nil {
			if err := hook(a.host); err != nil {
				return err
			}
		}
	}
	return next.Parse(a.host, pkt)
}

// recordMinLength updates the per-packet-type minimum observed payload
// length that MinLength returns.
func (a *Arbitrator) recordMinLength(pkt lexer.Packet) {
	cur, ok := a.minLength[pkt.Type]
	if !ok || pkt.Length < cur {
		a.minLength[pkt.Type] = pkt.Length
	}
}

// MinLength returns the minimum payload length observed so far for a
// packet type, and whether any packet of that type has been seen.
func (a *Arbitrator) MinLength(pt lexer.PacketType) (int, bool) {
	v, ok := a.minLength[pt]
	return v, ok
}

// SeenTypes reports which packet types have appeared on this session so
// far (the Session "seen-packet-types" bitmap of spec.md §3).
func (a *Arbitrator) SeenTypes() map[lexer.PacketType]bool {
	out := make(map[lexer.PacketType]bool, len(a.seen))
	for k, v := range a.seen {
		out[k] = v
	}
	return out
}

// Wakeup fires the active driver's Wakeup hook, or does nothing if no
// driver is active yet, used when a session (re)opens its device.
func (a *Arbitrator) Wakeup() error {
	if a.active == nil {
		return nil
	}
	if hook := a.active.Hooks().Wakeup; hook != nil {
		return hook(a.host)
	}
	return nil
}
