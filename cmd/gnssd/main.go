// Command gnssd is the always-on daemon: it opens one or more GNSS
// serial devices, runs each through the lexer/driver/fix-merge pipeline
// of pkg/session, and serves the merged result to any number of
// clients over a line-oriented JSON-over-TCP protocol (spec.md §6) —
// one long-running process, many short-lived client sockets, fanned
// out through this module's own session/driver/publish stack.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/northfall/gnssmux/hardware/serial"
	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/drivers"
	"github.com/northfall/gnssmux/pkg/gnsstime"
	"github.com/northfall/gnssmux/pkg/publish"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// versionRelease is the client-facing VERSION record's release string.
const versionRelease = "gnssmux-gnssd-1.0"

// defaultLeapSeconds seeds gnsstime.Context before any almanac/subframe
// data has refined it; 18 matches the leap-second count in force since
// 2017-01-01, the same default spec.md §4.C's build-epoch backstop
// assumes.
const defaultLeapSeconds = 18

func main() {
	app := &cli.App{
		Name:  "gnssd",
		Usage: "serve one or more GNSS receivers as a merged, policy-filtered JSON fix stream",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "device", Aliases: []string{"d"}, Usage: "serial device path to open (repeatable)"},
			&cli.IntFlag{Name: "baud", Aliases: []string{"b"}, Value: 4800, Usage: "initial baud rate for every --device (baud hunt takes over from here)"},
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Value: ":2947", Usage: "address to serve the JSON client protocol on"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level (debug, info, warn, error)"},
			&cli.BoolFlag{Name: "list-ports", Usage: "list available serial ports and exit"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gnssd:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := newLogger(c.String("log-level"))

	if c.Bool("list-ports") {
		return listPorts(log)
	}

	devices := c.StringSlice("device")
	if len(devices) == 0 {
		return fmt.Errorf("gnssd: at least one --device is required (or --list-ports to enumerate candidates)")
	}

	ctx := gnsstime.NewContext(time.Now(), defaultLeapSeconds)
	table := buildTable()
	h := newHub(log)
	pub := publish.NewPublisher(h.broadcast)

	stop := make(chan struct{})
	baud := c.Int("baud")
	for _, path := range devices {
		if err := openDevice(path, baud, ctx, table, pub, log, stop); err != nil {
			close(stop)
			return fmt.Errorf("gnssd: open %s: %w", path, err)
		}
		log.WithField("device", path).WithField("baud", baud).Info("gnssd: device opened")
	}

	listener, err := net.Listen("tcp", c.String("listen"))
	if err != nil {
		close(stop)
		return fmt.Errorf("gnssd: listen on %s: %w", c.String("listen"), err)
	}
	log.WithField("addr", c.String("listen")).Info("gnssd: serving JSON client protocol")

	go acceptLoop(listener, h, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("gnssd: shutting down")
	close(stop)
	return listener.Close()
}

// acceptLoop registers each incoming connection with the hub and runs
// its control-record loop in its own goroutine, the standard one-
// goroutine-per-connection shape for a line-oriented TCP protocol.
func acceptLoop(listener net.Listener, h *hub, log logrus.FieldLogger) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.WithError(err).Info("gnssd: listener closed")
			return
		}
		c := h.register(conn)
		log.WithField("client", c.id).WithField("remote", conn.RemoteAddr()).Info("gnssd: client connected")
		go h.serveClient(c)
	}
}

// buildTable wires every protocol driver this daemon understands into
// one shared table, identical in composition to gpsdecode's (the two
// binaries differ in how they report decoded output, not in what they
// can decode).
func buildTable() *driver.Table {
	t := driver.NewTable()
	t.Register(drivers.NewNMEADriver())
	t.Register(drivers.NewAISDriver())
	t.Register(drivers.NewRTCM2Driver())
	t.Register(drivers.NewRTCM3Driver())
	t.Register(drivers.NewSubframeDriver())
	return t
}

// listPorts enumerates available serial devices and prints them, for
// picking a --device value before starting the daemon for real.
func listPorts(log logrus.FieldLogger) error {
	ports, err := serial.AvailablePorts()
	if err != nil {
		return fmt.Errorf("gnssd: list ports: %w", err)
	}
	if len(ports) == 0 {
		log.Info("gnssd: no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}
