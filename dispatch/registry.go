// Package dispatch binds dissectors to transport ports and drives the
// per-frame dissection pass.
package dispatch

import (
	"github.com/soypat/dissect"
	"github.com/soypat/dissect/expert"
	"github.com/soypat/dissect/field"
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

// Dissector interprets bytes of buf as a protocol, adding nodes under parent.
// It returns the amount of bytes consumed. A return of 0 means the bytes
// failed the dissector's sniff test and the frame is not its to decode.
// Dissectors must not retain buf, pkt or parent after returning.
type Dissector interface {
	Dissect(buf *tvb.Buffer, pkt *Packet, parent *ptree.Node) int
}

// DissectorFunc adapts a function to the Dissector interface.
type DissectorFunc func(buf *tvb.Buffer, pkt *Packet, parent *ptree.Node) int

func (fn DissectorFunc) Dissect(buf *tvb.Buffer, pkt *Packet, parent *ptree.Node) int {
	return fn(buf, pkt, parent)
}

// Protocol identifies a registered protocol.
type Protocol struct {
	// Name is the long name, i.e: "ICQ Protocol".
	Name string
	// Short is the column name, i.e: "ICQ".
	Short string
	// Filter is the filter path prefix of the protocol's fields, i.e: "icq".
	Filter string
	// Field is the field of the protocol's top level node.
	Field field.ID
}

type binding struct {
	proto *Protocol
	d     Dissector
}

// Registry maps (transport, port) keys to dissectors and holds the field and
// anomaly metadata of every registered protocol. It is populated once at startup.
// After [Registry.Seal] it is read only and safe for concurrent use.
type Registry struct {
	fields    *field.Registry
	expert    *expert.Registry
	protocols map[string]*Protocol
	ports     map[dissect.PortKey][]binding
	sealed    bool
	frame     frameFields
}

// NewRegistry returns a registry with the frame and data pseudo-protocols registered.
func NewRegistry() *Registry {
	r := &Registry{
		fields:    field.NewRegistry(),
		expert:    expert.NewRegistry(),
		protocols: make(map[string]*Protocol),
		ports:     make(map[dissect.PortKey][]binding),
	}
	r.frame.register(r)
	return r
}

// Fields returns the field registry.
func (r *Registry) Fields() *field.Registry { return r.fields }

// Expert returns the anomaly registry.
func (r *Registry) Expert() *expert.Registry { return r.expert }

// RegisterProtocol registers a protocol and the field of its top level node.
// It panics if filter is already registered.
func (r *Registry) RegisterProtocol(name, short, filter string) *Protocol {
	r.mustNotBeSealed()
	if _, dup := r.protocols[filter]; dup {
		panic("dispatch: duplicate protocol " + filter)
	}
	p := &Protocol{Name: name, Short: short, Filter: filter}
	p.Field = r.fields.Register(&field.Descriptor{Name: name, Abbrev: filter, Type: field.TypeBytes})
	r.protocols[filter] = p
	return p
}

// Protocol returns the protocol registered under filter.
func (r *Registry) Protocol(filter string) (*Protocol, bool) {
	p, ok := r.protocols[filter]
	return p, ok
}

// RegisterFields registers descriptors in the field registry.
func (r *Registry) RegisterFields(ds ...*field.Descriptor) {
	r.mustNotBeSealed()
	r.fields.RegisterAll(ds...)
}

// RegisterSubtree registers a subtree kind.
func (r *Registry) RegisterSubtree(name string) field.SubtreeID {
	r.mustNotBeSealed()
	return r.fields.RegisterSubtree(name)
}

// RegisterExpert registers anomaly kinds.
func (r *Registry) RegisterExpert(infos ...*expert.Info) {
	r.mustNotBeSealed()
	r.expert.Register(infos...)
}

// RegisterPort binds d to (tr, port). Several dissectors may share a key;
// they are tried in registration order.
func (r *Registry) RegisterPort(proto *Protocol, tr dissect.Transport, port uint16, d Dissector) {
	r.mustNotBeSealed()
	if proto == nil || d == nil {
		panic("dispatch: nil protocol or dissector")
	}
	key := dissect.PortKey{Transport: tr, Port: port}
	r.ports[key] = append(r.ports[key], binding{proto: proto, d: d})
}

// Bound reports whether any dissector is bound to (tr, port).
func (r *Registry) Bound(tr dissect.Transport, port uint16) bool {
	return len(r.ports[dissect.PortKey{Transport: tr, Port: port}]) > 0
}

// Dispatch runs the dissectors bound to (tr, port) on buf until one claims it.
// It returns the bytes consumed by the claiming dissector or [dissect.ErrNotMine].
// A rejecting dissector is never retried.
func (r *Registry) Dispatch(tr dissect.Transport, port uint16, buf *tvb.Buffer, pkt *Packet, parent *ptree.Node) (int, error) {
	n, _, err := r.dispatch(tr, port, buf, pkt, parent)
	return n, err
}

func (r *Registry) dispatch(tr dissect.Transport, port uint16, buf *tvb.Buffer, pkt *Packet, parent *ptree.Node) (int, *Protocol, error) {
	for _, b := range r.ports[dissect.PortKey{Transport: tr, Port: port}] {
		n := b.d.Dissect(buf, pkt, parent)
		if n > 0 {
			return n, b.proto, nil
		}
	}
	return 0, nil, dissect.ErrNotMine
}

// Seal forbids further registration on r and its field and anomaly registries.
func (r *Registry) Seal() {
	r.sealed = true
	r.fields.Seal()
	r.expert.Seal()
}

func (r *Registry) mustNotBeSealed() {
	if r.sealed {
		panic(dissect.ErrSealed)
	}
}
