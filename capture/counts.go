package capture

import (
	"strconv"
)

// Class is the coarse protocol class a captured packet is tallied under.
type Class uint8

const (
	ClassOther Class = iota
	ClassTCP
	ClassUDP
	ClassICMP
	ClassOSPF
	ClassGRE
	ClassNetBIOS
	numClasses
)

var classNames = [numClasses]string{
	ClassOther:   "Other",
	ClassTCP:     "TCP",
	ClassUDP:     "UDP",
	ClassICMP:    "ICMP",
	ClassOSPF:    "OSPF",
	ClassGRE:     "GRE",
	ClassNetBIOS: "NetBIOS",
}

func (c Class) String() string {
	if c >= numClasses {
		return "Class(" + strconv.Itoa(int(c)) + ")"
	}
	return classNames[c]
}

// Counts tallies packets by protocol class.
type Counts struct {
	Total   int
	byClass [numClasses]int
}

// Add tallies one packet of class c.
func (c *Counts) Add(class Class) {
	if class >= numClasses {
		class = ClassOther
	}
	c.Total++
	c.byClass[class]++
}

// Merge adds the tallies of other to c.
func (c *Counts) Merge(other Counts) {
	c.Total += other.Total
	for i := range c.byClass {
		c.byClass[i] += other.byClass[i]
	}
}

// Count returns the number of packets tallied under class.
func (c *Counts) Count(class Class) int {
	if class >= numClasses {
		return 0
	}
	return c.byClass[class]
}

// Percent returns the share of class over all packets, in percent.
func (c *Counts) Percent(class Class) float64 {
	if c.Total == 0 {
		return 0
	}
	return 100 * float64(c.Count(class)) / float64(c.Total)
}

// AppendText appends one line per class, in the order TCP, UDP, ICMP, OSPF, GRE,
// NetBIOS and Other, preceded by the total count.
//
//	Count: 12
//	TCP: 3 (25.0%)
func (c *Counts) AppendText(b []byte) []byte {
	b = append(b, "Count: "...)
	b = strconv.AppendInt(b, int64(c.Total), 10)
	b = append(b, '\n')
	for _, class := range [...]Class{ClassTCP, ClassUDP, ClassICMP, ClassOSPF, ClassGRE, ClassNetBIOS, ClassOther} {
		b = append(b, class.String()...)
		b = append(b, ": "...)
		b = strconv.AppendInt(b, int64(c.Count(class)), 10)
		b = append(b, " ("...)
		b = strconv.AppendFloat(b, c.Percent(class), 'f', 1, 64)
		b = append(b, "%)\n"...)
	}
	return b
}

func (c Counts) String() string { return string(c.AppendText(nil)) }
