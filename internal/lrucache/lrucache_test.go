package lrucache

import (
	"testing"
)

// model is a trivially correct cache the ring implementation is checked against.
type model struct {
	keys []int8
	vals []string
	size int
}

func (m *model) Get(k int8) (string, bool) {
	for i := len(m.keys) - 1; i >= 0; i-- {
		if m.keys[i] == k {
			return m.vals[i], true
		}
	}
	return "", false
}

func (m *model) Push(k int8, v string) {
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
	if len(m.keys) > m.size {
		m.keys = m.keys[1:]
		m.vals = m.vals[1:]
	}
}

func TestEviction(t *testing.T) {
	c := New[int, string](2)
	c.Push(1, "Frame 1")
	c.Push(2, "Frame 2")
	c.Push(3, "Frame 3")
	if _, ok := c.Get(1); ok {
		t.Error("oldest entry not evicted")
	}
	if v, ok := c.Get(3); !ok || v != "Frame 3" {
		t.Errorf("got %q,%v", v, ok)
	}
	c.Push(2, "Frame 2 hex")
	if v, _ := c.Get(2); v != "Frame 2 hex" {
		t.Errorf("want newest value, got %q", v)
	}
	if c.Len() != 2 {
		t.Errorf("len=%d", c.Len())
	}
	c.Reset()
	if _, ok := c.Get(2); ok || c.Len() != 0 {
		t.Error("reset kept entries")
	}
}

func FuzzCache(f *testing.F) {
	f.Add(uint8(0), []byte{0x81, 0x01})
	f.Add(uint8(2), []byte{0x81, 0x82, 0x83, 0x84, 0x01, 0x02, 0x04})
	f.Add(uint8(3), []byte{0x81, 0x81, 0x02, 0x01, 0x82})
	f.Fuzz(func(t *testing.T, sizeM1 uint8, ops []byte) {
		size := int(sizeM1%16) + 1
		c := New[int8, string](size)
		m := model{size: size}
		for i, op := range ops {
			key := int8(op & 0x7f)
			if op&0x80 != 0 {
				v := string(rune('a' + i%26))
				c.Push(key, v)
				m.Push(key, v)
				continue
			}
			got, okGot := c.Get(key)
			want, okWant := m.Get(key)
			if got != want || okGot != okWant {
				t.Fatalf("op %d get(%d): want %q,%v got %q,%v", i, key, want, okWant, got, okGot)
			}
		}
	})
}
