// Command gpsdecode reads a raw GNSS receiver byte stream from stdin
// and writes one JSON object per decoded packet to stdout: a small,
// single-purpose binary rather than a flag folded into gnssd.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/northfall/gnssmux/pkg/driver"
	"github.com/northfall/gnssmux/pkg/drivers"
	"github.com/northfall/gnssmux/pkg/fix"
	"github.com/northfall/gnssmux/pkg/lexer"
	"github.com/northfall/gnssmux/pkg/publish"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "gpsdecode",
		Usage: "decode a raw GNSS wire stream into JSON, one object per packet",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ais", Usage: "decode only AIVDM/AIS traffic"},
			&cli.StringFlag{Name: "decode", Usage: "accepted and ignored; use --types to restrict decoding"},
			&cli.BoolFlag{Name: "json", Usage: "emit JSON (default on; kept for command-line compatibility)", Value: true},
			&cli.BoolFlag{Name: "nmea", Usage: "accepted and ignored; only JSON is emitted"},
			&cli.BoolFlag{Name: "split24", Usage: "accepted and ignored; AIS type 24 parts A and B are always decoded as separate records"},
			&cli.BoolFlag{Name: "spartn", Usage: "enable SPARTN recognition (masked off by default)"},
			&cli.IntFlag{Name: "minlength", Usage: "suppress packets shorter than this many bytes"},
			&cli.StringFlag{Name: "types", Usage: "restrict decoding to this comma-separated packet type list"},
			&cli.BoolFlag{Name: "unscaled", Usage: "accepted and ignored; AIS fields are always emitted scaled"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log one diagnostic line per packet to stderr"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gpsdecode:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	lx := lexer.New()
	if c.Bool("spartn") {
		lx.SetTypeMask(0)
	}
	table := buildTable()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	pub := publish.NewPublisher(func(line []byte) error {
		_, err := out.Write(append(line, '\n'))
		return err
	})

	host := &decodeHost{publisher: pub, minLength: c.Int("minlength")}
	arb := driver.NewArbitrator(table, host)

	allow := splitCSV(c.String("types"))
	if c.Bool("ais") {
		allow = []string{"AIVDM"}
	}

	reader := bufio.NewReader(os.Stdin)
	buf := make([]byte, 8192)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			for _, pkt := range lx.Feed(buf[:n]) {
				if len(pkt.Payload) < host.minLength {
					continue
				}
				if !typeAllowed(pkt.Type, allow) {
					continue
				}
				if c.Bool("verbose") {
					fmt.Fprintf(os.Stderr, "gpsdecode: %s packet, %d bytes\n", pkt.Type, pkt.Length)
				}
				if dispatchErr := arb.Dispatch(pkt); dispatchErr != nil && c.Bool("verbose") {
					fmt.Fprintln(os.Stderr, "gpsdecode:", dispatchErr)
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
}

func buildTable() *driver.Table {
	t := driver.NewTable()
	t.Register(drivers.NewNMEADriver())
	t.Register(drivers.NewAISDriver())
	t.Register(drivers.NewRTCM2Driver())
	t.Register(drivers.NewRTCM3Driver())
	t.Register(drivers.NewSubframeDriver())
	return t
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func typeAllowed(t lexer.PacketType, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if strings.EqualFold(a, t.String()) {
			return true
		}
	}
	return false
}

// decodeHost implements drivers.FixHost by publishing one JSON object
// per decoded packet directly to stdout, rather than accumulating a
// merged fix across a reporting cycle the way session.Session does —
// gpsdecode's contract is "one object per packet decoded", not "one
// object per epoch".
type decodeHost struct {
	publisher *publish.Publisher
	minLength int
}

func (h *decodeHost) Write(data []byte) (int, error) { return len(data), nil }

func (h *decodeHost) ApplyFix(name string, mask fix.Mask, source fix.Fix) bool {
	_ = h.publisher.EmitTPV("-", source)
	return false
}

func (h *decodeHost) ReplaceSkyview(sats []fix.SatelliteInfo) {
	_ = h.publisher.EmitSky("-", fix.Skyview{Satellites: sats})
}

// CloseReportingCycle is a no-op: gpsdecode emits one TPV record per
// packet decoded (see ApplyFix), not one per merged reporting cycle.
func (h *decodeHost) CloseReportingCycle() error { return nil }

func (h *decodeHost) PublishRaw(class string, payload interface{}) error {
	switch class {
	case "AIS":
		return h.publisher.EmitAIS("-", payload)
	case "RTCM2":
		return h.publisher.EmitRTCM2("-", payload)
	case "RTCM3":
		return h.publisher.EmitRTCM3("-", payload)
	case "SUBFRAME":
		return h.publisher.EmitSubframe("-", payload)
	default:
		return fmt.Errorf("gpsdecode: unknown publish class %s", class)
	}
}
