// Package expert collects non-fatal diagnostics raised while dissecting a frame.
//
// Events are advisory data attached to protocol tree nodes: they never abort
// a dissection pass.
package expert

import (
	"log/slog"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/internal"
	"github.com/soypat/dissect/ptree"
)

// Group classifies an anomaly.
type Group uint8

const (
	GroupMalformed Group = iota + 1 // Malformed
	GroupUndecoded                  // Undecoded
	GroupProtocol                   // Protocol
)

func (g Group) String() string {
	switch g {
	case GroupMalformed:
		return "Malformed"
	case GroupUndecoded:
		return "Undecoded"
	case GroupProtocol:
		return "Protocol"
	}
	return "Unknown"
}

// Info describes a kind of anomaly. Infos are registered once at startup.
type Info struct {
	// Abbrev is the stable code of the anomaly, i.e: "icq.unknown_command".
	Abbrev   string
	Severity dissect.Severity
	Group    Group
	// Summary is the default event text.
	Summary string
}

// Anomalies raised by the engine itself.
var (
	Truncated = &Info{
		Abbrev:   "malformed.truncated",
		Severity: dissect.SeverityError,
		Group:    GroupMalformed,
		Summary:  "Length exceeds packet",
	}
	DepthExceeded = &Info{
		Abbrev:   "malformed.depth_exceeded",
		Severity: dissect.SeverityError,
		Group:    GroupMalformed,
		Summary:  "Maximum nesting depth exceeded",
	}
	BadLength = &Info{
		Abbrev:   "malformed.bad_length",
		Severity: dissect.SeverityWarn,
		Group:    GroupMalformed,
		Summary:  "Reported length less than captured length",
	}
)

// Registry holds the anomaly kinds known to the process.
type Registry struct {
	byAbbrev map[string]*Info
	sealed   bool
}

// NewRegistry returns a registry containing the engine's own anomalies.
func NewRegistry() *Registry {
	r := &Registry{byAbbrev: make(map[string]*Info)}
	r.Register(Truncated, DepthExceeded, BadLength)
	return r
}

// Register adds infos to the registry. It panics on duplicate abbreviations
// or if called after Seal.
func (r *Registry) Register(infos ...*Info) {
	if r.sealed {
		panic("expert: register after seal")
	}
	for _, info := range infos {
		if info.Abbrev == "" || info.Severity == 0 || info.Group == 0 {
			panic("expert: incomplete info " + info.Abbrev)
		}
		if _, dup := r.byAbbrev[info.Abbrev]; dup {
			panic("expert: duplicate abbrev " + info.Abbrev)
		}
		r.byAbbrev[info.Abbrev] = info
	}
}

// Lookup returns the info registered under abbrev.
func (r *Registry) Lookup(abbrev string) (*Info, bool) {
	info, ok := r.byAbbrev[abbrev]
	return info, ok
}

// Seal forbids further registration.
func (r *Registry) Seal() { r.sealed = true }

// Event is one anomaly raised on a node.
type Event struct {
	Info *Info
	Text string
	Node *ptree.Node
}

// Severity returns the severity of the event's info.
func (ev *Event) Severity() dissect.Severity { return ev.Info.Severity }

// Collector accumulates the events of a single dissection pass.
type Collector struct {
	events []Event
	logger *slog.Logger
}

// NewCollector returns a collector. Events are logged at debug level to
// logger if it is not nil.
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{logger: logger}
}

// Add raises info on node n with the info's summary as text.
func (c *Collector) Add(n *ptree.Node, info *Info) *Event {
	return c.add(n, info, info.Summary)
}

// Addf raises info on node n with custom text.
func (c *Collector) Addf(n *ptree.Node, info *Info, text string) *Event {
	return c.add(n, info, text)
}

func (c *Collector) add(n *ptree.Node, info *Info, text string) *Event {
	if n == nil {
		panic("expert: nil node")
	}
	if info.Group == GroupMalformed {
		n.Flags |= ptree.FlagTruncated
	}
	ev := internal.SliceReclaim(&c.events)
	*ev = Event{Info: info, Text: text, Node: n}
	internal.LogAttrs(c.logger, slog.LevelDebug, "expert:event",
		slog.String("code", info.Abbrev),
		slog.String("severity", info.Severity.String()),
		slog.String("text", text),
		slog.Int("offset", n.AbsOffset()),
	)
	return ev
}

// Events returns all events in the order they were raised.
func (c *Collector) Events() []Event { return c.events }

// Len returns the amount of events raised.
func (c *Collector) Len() int { return len(c.events) }

// ForNode returns the events raised on n.
func (c *Collector) ForNode(n *ptree.Node) []Event {
	var evs []Event
	for i := range c.events {
		if c.events[i].Node == n {
			evs = append(evs, c.events[i])
		}
	}
	return evs
}

// Count returns the amount of events of the given info.
func (c *Collector) Count(info *Info) int {
	n := 0
	for i := range c.events {
		if c.events[i].Info == info {
			n++
		}
	}
	return n
}

// MaxSeverity returns the highest severity raised or 0 if there are no events.
func (c *Collector) MaxSeverity() dissect.Severity {
	var s dissect.Severity
	for i := range c.events {
		s = max(s, c.events[i].Info.Severity)
	}
	return s
}

// Reset discards all events keeping allocated memory.
func (c *Collector) Reset() {
	c.events = c.events[:0]
}
