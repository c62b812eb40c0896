package gancube

import (
	"fmt"
	"strings"
)

// CryptKey identifies the base key material of a cube family.
type CryptKey int

const (
	// KeyGAN is used by GAN Gen2, Gen3 and Gen4 cubes.
	KeyGAN CryptKey = iota
	// KeyMoYu is used by the MoYu AI 2023.
	KeyMoYu
)

type keyMaterial struct {
	key [16]byte
	iv  [16]byte
}

var cryptKeys = [...]keyMaterial{
	KeyGAN: {
		key: [16]byte{0x01, 0x02, 0x42, 0x28, 0x31, 0x91, 0x16, 0x07, 0x20, 0x05, 0x18, 0x54, 0x42, 0x11, 0x12, 0x53},
		iv:  [16]byte{0x11, 0x03, 0x32, 0x28, 0x21, 0x01, 0x76, 0x27, 0x20, 0x95, 0x78, 0x14, 0x32, 0x12, 0x02, 0x43},
	},
	KeyMoYu: {
		key: [16]byte{0x05, 0x12, 0x02, 0x45, 0x02, 0x01, 0x29, 0x56, 0x12, 0x78, 0x12, 0x76, 0x81, 0x01, 0x08, 0x03},
		iv:  [16]byte{0x01, 0x44, 0x28, 0x06, 0x86, 0x21, 0x22, 0x28, 0x51, 0x05, 0x08, 0x31, 0x82, 0x02, 0x21, 0x06},
	},
}

// Bytes returns copies of the family's base key and IV.
// It panics for a value outside the defined families.
func (k CryptKey) Bytes() (key, iv [16]byte) {
	if !k.Valid() {
		panic(fmt.Sprintf("gancube: invalid CryptKey %d", int(k)))
	}
	m := cryptKeys[k]
	return m.key, m.iv
}

// Valid reports whether k names a known family.
func (k CryptKey) Valid() bool {
	return k >= 0 && int(k) < len(cryptKeys)
}

// String returns the family name as used in configuration files.
func (k CryptKey) String() string {
	switch k {
	case KeyGAN:
		return "gan"
	case KeyMoYu:
		return "moyu"
	default:
		return fmt.Sprintf("CryptKey(%d)", int(k))
	}
}

// ParseCryptKey parses a family name ("gan" or "moyu", case-insensitive).
func ParseCryptKey(s string) (CryptKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gan":
		return KeyGAN, nil
	case "moyu":
		return KeyMoYu, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCryptKey, s)
	}
}

// deriveKey salts the family's key and IV with the hardware address.
// The address is applied in reverse byte order to the first six bytes of
// each, modulo 255.
func deriveKey(k CryptKey, addr HardwareAddr) (key, iv [16]byte) {
	key, iv = k.Bytes()
	for i := range addr {
		salt := uint16(addr[len(addr)-1-i])
		key[i] = byte((uint16(key[i]) + salt) % 255)
		iv[i] = byte((uint16(iv[i]) + salt) % 255)
	}
	return key, iv
}

// MarshalText implements encoding.TextMarshaler.
func (k CryptKey) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCryptKey, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CryptKey) UnmarshalText(text []byte) error {
	parsed, err := ParseCryptKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
