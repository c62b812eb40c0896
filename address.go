package gancube

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// HardwareAddr is a 6-byte Bluetooth device address in display order,
// so "AB:12:..." has 0xAB as its first byte.
type HardwareAddr [6]byte

// ParseHardwareAddr parses an address written as colon- or dash-separated
// octets, or as 12 plain hex digits.
func ParseHardwareAddr(s string) (HardwareAddr, error) {
	var addr HardwareAddr
	s = strings.TrimSpace(s)

	if len(s) == 12 {
		b, err := hex.DecodeString(s)
		if err != nil {
			return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		copy(addr[:], b)
		return addr, nil
	}

	mac, err := net.ParseMAC(s)
	if err != nil || len(mac) != len(addr) {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	copy(addr[:], mac)
	return addr, nil
}

// MustParseHardwareAddr is like ParseHardwareAddr but panics on error.
func MustParseHardwareAddr(s string) HardwareAddr {
	addr, err := ParseHardwareAddr(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// String formats the address as upper-case colon-separated octets.
func (a HardwareAddr) String() string {
	return strings.ToUpper(net.HardwareAddr(a[:]).String())
}

// IsZero reports whether the address is all zeros (unknown).
func (a HardwareAddr) IsZero() bool {
	return a == HardwareAddr{}
}

// MarshalText implements encoding.TextMarshaler.
func (a HardwareAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *HardwareAddr) UnmarshalText(text []byte) error {
	parsed, err := ParseHardwareAddr(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
