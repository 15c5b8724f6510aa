package field

// Unknown is the default label for values absent from a value-label table.
const Unknown = "Unknown"

// ValueString pairs a numeric code with its label.
type ValueString struct {
	Value uint64
	Label string
}

// ValueStrings is an ordered value-label table. Lookup is linear and the
// first matching entry wins, so earlier duplicates shadow later ones.
type ValueStrings struct {
	entries []ValueString
	// Default is returned for missing values by [ValueStrings.LabelOr] callers
	// that pass an empty default. Defaults to [Unknown].
	Default string
}

// NewValueStrings returns a table over entries. entries must not be modified afterwards.
func NewValueStrings(entries ...ValueString) *ValueStrings {
	return &ValueStrings{entries: entries}
}

// Lookup returns the label of the first entry matching v.
func (vs *ValueStrings) Lookup(v uint64) (string, bool) {
	if vs == nil {
		return "", false
	}
	for i := range vs.entries {
		if vs.entries[i].Value == v {
			return vs.entries[i].Label, true
		}
	}
	return "", false
}

// LabelOr returns the label of v or def if v is not in the table.
// An empty def falls back to the table's Default.
func (vs *ValueStrings) LabelOr(v uint64, def string) string {
	label, ok := vs.Lookup(v)
	if ok {
		return label
	}
	if def == "" {
		return vs.unknownLabel()
	}
	return def
}

// Len returns the number of entries in the table.
func (vs *ValueStrings) Len() int {
	if vs == nil {
		return 0
	}
	return len(vs.entries)
}

func (vs *ValueStrings) unknownLabel() string {
	if vs == nil || vs.Default == "" {
		return Unknown
	}
	return vs.Default
}
