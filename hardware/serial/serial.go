// Package serial wraps go.bug.st/serial into the session.Device
// contract: open/read/write over a physical port, but baud-hunt aware
// — ApplyFraming lets a driver.BaudHunter step change the live
// connection's speed/parity/stop-bits without closing and reopening
// the port, and the port remembers its last-applied framing for
// session.Session.Reopen.
package serial

import (
	"fmt"
	"sync"
	"time"

	"github.com/northfall/gnssmux/pkg/driver"
	"go.bug.st/serial"
)

// defaultReadTimeout bounds each Read call so a session's feed loop
// can still poll CheckBaudHunt between reads.
const defaultReadTimeout = 100 * time.Millisecond

// Port is an open serial connection to a GNSS device.
type Port struct {
	mu      sync.Mutex
	path    string
	io      serial.Port
	framing driver.Framing
}

// Open opens path at the given framing, mapping driver.Framing's
// stop-bits/parity values onto the go.bug.st/serial enums.
func Open(path string, framing driver.Framing) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: framing.Speed,
		DataBits: 8,
		StopBits: stopBitsOf(framing.StopBits),
		Parity:   parityOf(framing.Parity),
	}
	io, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", path, err)
	}
	if err := io.SetReadTimeout(defaultReadTimeout); err != nil {
		io.Close()
		return nil, fmt.Errorf("serial: set read timeout on %s: %w", path, err)
	}
	return &Port{path: path, io: io, framing: framing}, nil
}

func stopBitsOf(n int) serial.StopBits {
	switch n {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

func parityOf(p driver.Parity) serial.Parity {
	switch p {
	case driver.ParityEven:
		return serial.EvenParity
	case driver.ParityOdd:
		return serial.OddParity
	default:
		return serial.NoParity
	}
}

// Read implements session.Device.
func (p *Port) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.io.Read(buf)
}

// Write implements session.Device.
func (p *Port) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.io.Write(buf)
}

// ApplyFraming reconfigures the live port to a new speed/parity/
// stop-bits combination, the action a baud hunt step or a Pin/Resume
// call drives. go.bug.st/serial changes mode in place via SetMode, so
// no close/reopen cycle is needed even though the hunt cycles parity
// and stop-bits as well as baud rate.
func (p *Port) ApplyFraming(f driver.Framing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	mode := &serial.Mode{
		BaudRate: f.Speed,
		DataBits: 8,
		StopBits: stopBitsOf(f.StopBits),
		Parity:   parityOf(f.Parity),
	}
	if err := p.io.SetMode(mode); err != nil {
		return fmt.Errorf("serial: set mode on %s: %w", p.path, err)
	}
	p.framing = f
	return nil
}

// Framing returns the currently applied speed/parity/stop-bits.
func (p *Port) Framing() driver.Framing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.framing
}

// Close closes the underlying serial connection.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.io.Close()
}

// AvailablePorts lists serial device paths the host currently exposes,
// as enumerated by go.bug.st/serial's GetPortsList.
func AvailablePorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serial: enumerate ports: %w", err)
	}
	return ports, nil
}
