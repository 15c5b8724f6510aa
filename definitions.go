package dissect

// Transport identifies the transport protocol a frame payload arrived on.
// It is the first half of the key dissectors are bound to.
type Transport uint8

const (
	TransportNone Transport = iota // none
	TransportUDP                   // udp
	TransportTCP                   // tcp
)

func (t Transport) String() string {
	switch t {
	case TransportUDP:
		return "udp"
	case TransportTCP:
		return "tcp"
	}
	return "none"
}

// PortKey is the (transport, port) pair used to select a dissector.
type PortKey struct {
	Transport Transport
	Port      uint16
}

// Severity of an anomaly attached to a decoded frame.
type Severity uint8

const (
	SeverityChat  Severity = iota + 1 // chat
	SeverityNote                      // note
	SeverityWarn                      // warning
	SeverityError                     // error
)

func (s Severity) String() string {
	switch s {
	case SeverityChat:
		return "Chat"
	case SeverityNote:
		return "Note"
	case SeverityWarn:
		return "Warning"
	case SeverityError:
		return "Error"
	}
	return "Unknown"
}
