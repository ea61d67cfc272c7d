package main

import (
	"errors"
	"io"
	"time"

	"github.com/northfall/gnssmux/hardware/serial"
	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/gnsstime"
	"github.com/northfall/gnssmux/pkg/publish"
	"github.com/northfall/gnssmux/pkg/session"
	"github.com/sirupsen/logrus"
)

// gsvFamilyTerminators is the default NMEA0183 reporting-cycle
// terminator list: both RMC and GGA close a cycle, so a receiver that
// emits both closes two cycles per epoch (spec.md §4.G allows more than
// one terminator name per device).
var gsvFamilyTerminators = []string{"RMC", "GGA"}

// openDevice opens one serial device at its initial framing, builds a
// session bound to the shared time context/driver table/hub publisher,
// and starts its read loop, which also steps the baud hunt. It returns
// once the device is open; the loop runs in one background goroutine
// until stop fires.
func openDevice(path string, baud int, ctx *gnsstime.Context, table *driver.Table, pub *publish.Publisher, log logrus.FieldLogger, stop <-chan struct{}) error {
	framing := driver.Framing{Speed: baud, Parity: driver.ParityNone, StopBits: 1}
	port, err := serial.Open(path, framing)
	if err != nil {
		return err
	}

	sess := session.New(path, port, ctx, table, gsvFamilyTerminators, pub)

	go runDevice(path, port, sess, log, stop)
	return nil
}

// runDevice is one device's lifetime: read, feed the session, apply
// any baud-hunt step the session decides is due, and retry on a
// transient read error rather than killing the whole daemon.
func runDevice(path string, port *serialPort, sess *session.Session, log logrus.FieldLogger, stop <-chan struct{}) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-stop:
			port.Close()
			return
		default:
		}

		n, err := port.Read(buf)
		if n > 0 {
			if feedErr := sess.Feed(buf[:n]); feedErr != nil {
				log.WithError(feedErr).WithField("device", path).Warn("gnssd: session feed error")
			}
		}
		if framing, due := sess.CheckBaudHunt(); due {
			log.WithField("device", path).WithField("speed", framing.Speed).Info("gnssd: advancing baud hunt")
			if applyErr := port.ApplyFraming(framing); applyErr != nil {
				log.WithError(applyErr).WithField("device", path).Warn("gnssd: baud hunt apply failed")
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			log.WithError(err).WithField("device", path).Warn("gnssd: read error, retrying")
			time.Sleep(time.Second)
		}
	}
}

// serialPort is an alias of serial.Port, named locally so this file
// doesn't repeat the hardware/serial import alias at every call site.
type serialPort = serial.Port
