package internal

import (
	"encoding/binary"
	"log/slog"
)

// SlogAddr4 returns an attribute holding an IPv4 address as a big endian
// integer, avoiding the string allocation of a formatted address.
func SlogAddr4(key string, addr *[4]byte) slog.Attr {
	return slog.Uint64(key, uint64(binary.BigEndian.Uint32(addr[:])))
}
