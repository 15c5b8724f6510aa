package ptree

import (
	"errors"
	"testing"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/field"
	"github.com/soypat/dissect/tvb"
)

func testRegistry() (*field.Registry, field.ID, field.ID, field.ID) {
	reg := field.NewRegistry()
	status := reg.Register(&field.Descriptor{
		Name: "Status", Abbrev: "t.status", Type: field.TypeUint32, Base: field.BaseDec,
		Strings: field.NewValueStrings(field.ValueString{Value: 1, Label: "AWAY"}),
	})
	nick := reg.Register(&field.Descriptor{Name: "Nick", Abbrev: "t.nick", Type: field.TypeString})
	ip := reg.Register(&field.Descriptor{Name: "IP", Abbrev: "t.ip", Type: field.TypeIPv4})
	return reg, status, nick, ip
}

func TestAddItem(t *testing.T) {
	reg, status, nick, ip := testRegistry()
	data := []byte{1, 0, 0, 0, 9, 0, 0, 0, 'b', 'o', 'b', 0x01, 192, 168, 0, 1}
	buf, _ := tvb.New("Frame", data, len(data))
	tree := New(reg)
	root := tree.SetRoot(buf, "Frame 1")
	n, err := tree.AddItem(root, status, buf, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n.Text != "Status: AWAY (1)" || n.Length != 4 {
		t.Errorf("unexpected node %q len=%d", n.Text, n.Length)
	}
	n, _ = tree.AddItem(root, status, buf, 4, 0)
	if n.Text != "Status: Unknown (9)" {
		t.Errorf("want unknown fallback, got %q", n.Text)
	}
	n, _ = tree.AddItem(root, nick, buf, 8, 4)
	if n.Text != `Nick: bob\x01` {
		t.Errorf("want escaped text, got %q", n.Text)
	}
	n, _ = tree.AddItem(root, ip, buf, 12, 4)
	if n.Text != "IP: 192.168.0.1" {
		t.Errorf("want IP text, got %q", n.Text)
	}
	if tree.Len() != 5 || len(root.Children) != 4 {
		t.Errorf("want 5 nodes, got %d", tree.Len())
	}
}

func TestAddItemTruncated(t *testing.T) {
	reg, status, _, _ := testRegistry()
	buf, _ := tvb.New("Frame", []byte{1, 0}, 4)
	tree := New(reg)
	root := tree.SetRoot(buf, "Frame")
	n, err := tree.AddItem(root, status, buf, 0, 0)
	if !errors.Is(err, dissect.ErrTruncated) || n != nil {
		t.Fatalf("want truncated and no node, got %v %v", n, err)
	}
	if len(root.Children) != 0 {
		t.Error("truncated item must not be added")
	}
	if _, err := tree.AddText(root, buf, 1, 2, "x"); err == nil {
		t.Error("want error on text leaf past captured data")
	}
	if _, err := tree.AddText(root, buf, 2, 0, "No parameters"); err != nil {
		t.Errorf("zero length leaf at end must be legal: %v", err)
	}
}

func TestSubtreeAndWalk(t *testing.T) {
	reg, status, _, _ := testRegistry()
	kind := reg.RegisterSubtree("t.body")
	buf, _ := tvb.New("Frame", []byte{1, 0, 0, 0}, 16)
	tree := New(reg)
	root := tree.SetRoot(buf, "Frame")
	body := tree.AddSubtree(root, kind, buf, 0, 16, "Body")
	if body.Length != 4 {
		t.Errorf("subtree span must clamp to captured data, got %d", body.Length)
	}
	leaf, _ := tree.AddUint(body, status, buf, 0, 0, 1)
	leaf.SetGenerated()
	if !leaf.IsGenerated() || leaf.Depth() != 2 {
		t.Errorf("unexpected generated leaf depth=%d", leaf.Depth())
	}
	var depths []int
	tree.Walk(func(n *Node, depth int) bool {
		depths = append(depths, depth)
		return true
	})
	if len(depths) != 3 || depths[2] != 2 {
		t.Errorf("unexpected walk %v", depths)
	}
	if found := tree.FindField(status); len(found) != 1 || found[0] != leaf {
		t.Errorf("FindField returned %v", found)
	}
}
