package gancube

// NewPipeline composes decryption and decoding over a source of raw
// notifications from the device at addr.
func NewPipeline(raw Source[[]byte], key CryptKey, addr HardwareAddr) *DecodeSource {
	return NewDecodeSource(NewDecryptSource(raw, key, addr))
}

// DecodePacket decrypts and decodes a single raw notification. The packet
// is decrypted in place.
func DecodePacket(d *Decryptor, packet []byte) (Event, error) {
	plain, err := d.Decrypt(packet)
	if err != nil {
		return nil, err
	}
	return Decode(plain)
}
