package main

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/northfall/gnssmux/pkg/fix"
	"github.com/northfall/gnssmux/pkg/publish"
	"github.com/sirupsen/logrus"
)

// client is one connected JSON-client-protocol socket: its own
// subscription policy (spec.md §6's WATCH/POLICY control records),
// set independently of every other client's, and a write mutex since
// session goroutines broadcast to it concurrently with its own control
// loop responding to WATCH/POLICY.
type client struct {
	id     string
	conn   net.Conn
	mu     sync.Mutex
	policy fix.Policy
	watch  publish.WatchOptions
}

func (c *client) writeLine(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conn.Write(line); err != nil {
		return err
	}
	_, err := c.conn.Write([]byte("\n"))
	return err
}

// hub fans out every record a session publishes to every connected
// client, filtered through that client's own policy, the same
// "broadcast with per-subscriber filter" shape the spec's gpsd-style
// WATCH protocol calls for: one merged fix stream, many independently
// configured listeners.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	log     logrus.FieldLogger
}

func newHub(log logrus.FieldLogger) *hub {
	return &hub{clients: make(map[string]*client), log: log}
}

func (h *hub) register(conn net.Conn) *client {
	c := &client{id: uuid.New().String(), conn: conn, watch: publish.DefaultWatchOptions()}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

// classOf peeks at a marshaled record's "class" field without knowing
// its concrete Go type, so the hub can apply each client's Policy
// filter to an already-encoded line.
func classOf(line []byte) string {
	var probe struct {
		Class string `json:"class"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return ""
	}
	return probe.Class
}

// broadcast is the hub's publish.NewPublisher writeLine callback: every
// session in the daemon shares one hub, so a record from any device
// reaches every subscribed client.
func (h *hub) broadcast(line []byte) error {
	class := classOf(line)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.watch.Enable || !c.policy.Filter(class) {
			continue
		}
		if err := c.writeLine(line); err != nil {
			h.log.WithError(err).WithField("client", c.id).Warn("gnssd: dropping client after write error")
			// Closing the connection ends serveClient's read loop, which
			// then unregisters the client.
			c.conn.Close()
		}
	}
	return nil
}

// serveClient runs one client connection's control loop: reading
// newline-delimited WATCH/POLICY JSON control records and updating
// that client's policy, until the connection closes. Every record this
// client should receive is instead pushed by hub.broadcast from the
// device read-loop goroutines; this loop writes only the initial
// VERSION record and ERROR replies to malformed control records.
func (h *hub) serveClient(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	_ = c.writeLine(mustMarshal(publish.Version{
		Class:      publish.ClassVersion,
		Release:    versionRelease,
		ProtoMajor: 3,
		ProtoMinor: 14,
	}))

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	for scanner.Scan() {
		h.handleControl(c, scanner.Bytes())
	}
}

// handleControl dispatches one client-sent control line by its leading
// "?WATCH=" / "?POLICY=" tag, spec.md §6's client-to-daemon command
// syntax, replying with an ERROR record for anything malformed.
func (h *hub) handleControl(c *client, line []byte) {
	switch {
	case hasPrefix(line, "?WATCH="):
		var opts publish.WatchOptions
		if err := json.Unmarshal(line[len("?WATCH="):], &opts); err != nil {
			h.reportError(c, "malformed WATCH: "+err.Error())
			return
		}
		if err := publish.ValidateWatch(opts); err != nil {
			h.reportError(c, err.Error())
			return
		}
		c.watch = opts
	case hasPrefix(line, "?POLICY="):
		var opts publish.PolicyOptions
		if err := json.Unmarshal(line[len("?POLICY="):], &opts); err != nil {
			h.reportError(c, "malformed POLICY: "+err.Error())
			return
		}
		if err := publish.ValidatePolicy(opts); err != nil {
			h.reportError(c, err.Error())
			return
		}
		c.policy = opts.ToFixPolicy()
	default:
		h.reportError(c, "unrecognized control record")
	}
}

func (h *hub) reportError(c *client, message string) {
	_ = c.writeLine(mustMarshal(publish.ErrorRecord{Class: publish.ClassError, Message: message}))
}

func hasPrefix(line []byte, prefix string) bool {
	return len(line) >= len(prefix) && string(line[:len(prefix)]) == prefix
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"class":"ERROR","message":"internal marshal failure"}`)
	}
	return b
}
