package field

import "testing"

var statusVals = NewValueStrings(
	ValueString{0x0000, "ONLINE"},
	ValueString{0x0001, "AWAY"},
	ValueString{0x0013, "DND"},
)

func TestValueStringsFallback(t *testing.T) {
	d := &Descriptor{Name: "Status", Abbrev: "test.status", Type: TypeUint32, Base: BaseDec, Strings: statusVals}
	if got := d.FormatUint(1); got != "AWAY (1)" {
		t.Errorf("want %q, got %q", "AWAY (1)", got)
	}
	if got := d.FormatUint(0x4242); got != "Unknown (16962)" {
		t.Errorf("want %q, got %q", "Unknown (16962)", got)
	}
	hex := &Descriptor{Name: "Cmd", Abbrev: "test.cmd", Type: TypeUint16, Base: BaseHex, Strings: statusVals}
	if got := hex.FormatUint(0x77); got != "Unknown (0x0077)" {
		t.Errorf("want %q, got %q", "Unknown (0x0077)", got)
	}
	if got := statusVals.LabelOr(7, ""); got != Unknown {
		t.Errorf("want %q, got %q", Unknown, got)
	}
	if got := statusVals.LabelOr(7, "n/a"); got != "n/a" {
		t.Errorf("want %q, got %q", "n/a", got)
	}
}

func TestValueStringsFirstMatchWins(t *testing.T) {
	vs := NewValueStrings(ValueString{1, "first"}, ValueString{1, "second"})
	if got, _ := vs.Lookup(1); got != "first" {
		t.Errorf("want first, got %q", got)
	}
	var nilvs *ValueStrings
	if _, ok := nilvs.Lookup(1); ok {
		t.Error("nil table must not match")
	}
}

func TestFormatHexPadding(t *testing.T) {
	d := &Descriptor{Name: "Key", Abbrev: "test.key", Type: TypeUint32, Base: BaseHex}
	if got := d.FormatUint(0xbeef); got != "0x0000beef" {
		t.Errorf("want 0x0000beef, got %q", got)
	}
	b := &Descriptor{Name: "Client/Server", Abbrev: "test.client", Type: TypeBool, TrueFalse: &TrueFalse{"Client", "Server"}}
	if got := b.FormatUint(1); got != "Client" {
		t.Errorf("want Client, got %q", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	d := &Descriptor{Name: "Version", Abbrev: "test.version", Type: TypeUint16, Base: BaseDec}
	id := r.Register(d)
	if id == 0 || r.Resolve(id) != d || d.ID != id {
		t.Fatalf("bad registration id=%d", id)
	}
	if got, ok := r.ByAbbrev("test.version"); !ok || got != d {
		t.Error("lookup by abbrev failed")
	}
	mustPanic(t, "duplicate abbrev", func() {
		r.Register(&Descriptor{Name: "Version2", Abbrev: "test.version", Type: TypeUint16})
	})
	mustPanic(t, "unknown id", func() { r.Resolve(id + 100) })
	sub := r.RegisterSubtree("test.header")
	if r.SubtreeName(sub) != "test.header" {
		t.Errorf("want subtree name test.header, got %q", r.SubtreeName(sub))
	}
	r.Seal()
	mustPanic(t, "register after seal", func() {
		r.Register(&Descriptor{Name: "Other", Abbrev: "test.other", Type: TypeUint8})
	})
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
