package field

import (
	"errors"
	"fmt"
)

var errUnknownID = errors.New("field: unknown id")

// Registry stores field descriptors and subtree kinds. It is populated once
// at startup and sealed; afterwards it is read only and safe for concurrent use.
// Registration mistakes are programming errors and panic.
type Registry struct {
	fields   []*Descriptor
	byAbbrev map[string]ID
	subtrees []string
	sealed   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		// ID 0 is reserved for free text.
		fields:   []*Descriptor{nil},
		byAbbrev: make(map[string]ID),
		subtrees: []string{""},
	}
}

// Register stores d and returns its newly assigned ID. It panics if the
// registry is sealed, d's Abbrev is empty or already registered.
func (r *Registry) Register(d *Descriptor) ID {
	switch {
	case r.sealed:
		panic("field: register after seal: " + d.Abbrev)
	case d.Abbrev == "" || d.Name == "":
		panic("field: descriptor requires name and abbrev")
	case d.Type == TypeNone:
		panic("field: descriptor requires type: " + d.Abbrev)
	case d.ID != 0:
		panic("field: descriptor already registered: " + d.Abbrev)
	}
	if _, dup := r.byAbbrev[d.Abbrev]; dup {
		panic("field: duplicate abbrev: " + d.Abbrev)
	}
	id := ID(len(r.fields))
	d.ID = id
	r.fields = append(r.fields, d)
	r.byAbbrev[d.Abbrev] = id
	return id
}

// RegisterAll registers all descriptors in order.
func (r *Registry) RegisterAll(ds ...*Descriptor) {
	for _, d := range ds {
		r.Register(d)
	}
}

// RegisterSubtree registers a subtree kind by name and returns its ID.
func (r *Registry) RegisterSubtree(name string) SubtreeID {
	if r.sealed {
		panic("field: register subtree after seal: " + name)
	}
	r.subtrees = append(r.subtrees, name)
	return SubtreeID(len(r.subtrees) - 1)
}

// Resolve returns the descriptor of id. It panics on unknown IDs.
func (r *Registry) Resolve(id ID) *Descriptor {
	if id <= 0 || int(id) >= len(r.fields) {
		panic(fmt.Errorf("%w: %d", errUnknownID, id))
	}
	return r.fields[id]
}

// ByAbbrev looks up a descriptor by its filter path.
func (r *Registry) ByAbbrev(abbrev string) (*Descriptor, bool) {
	id, ok := r.byAbbrev[abbrev]
	if !ok {
		return nil, false
	}
	return r.fields[id], true
}

// SubtreeName returns the name a subtree kind was registered with.
func (r *Registry) SubtreeName(id SubtreeID) string {
	if id <= 0 || int(id) >= len(r.subtrees) {
		return ""
	}
	return r.subtrees[id]
}

// Len returns the number of registered fields.
func (r *Registry) Len() int { return len(r.fields) - 1 }

// Seal forbids further registration.
func (r *Registry) Seal() { r.sealed = true }

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool { return r.sealed }
