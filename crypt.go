package gancube

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
)

// BlockSize is the AES block size used by the cube protocol.
const BlockSize = aes.BlockSize

// Decryptor decrypts notifications from a single device. The effective key
// and IV are derived once from the family key and the device address.
//
// The device encrypts two independent blocks, one at each end of the
// packet. Each block is decrypted with a fresh CBC state initialised with
// the same key and IV, so the result differs from a chained decrypt of the
// whole buffer.
type Decryptor struct {
	block cipher.Block
	iv    [16]byte
}

// NewDecryptor creates a Decryptor for the device with the given address.
func NewDecryptor(key CryptKey, addr HardwareAddr) *Decryptor {
	k, iv := deriveKey(key, addr)
	block, err := aes.NewCipher(k[:])
	if err != nil {
		// A 16-byte key is always valid for AES-128.
		panic(err)
	}
	return &Decryptor{block: block, iv: iv}
}

// Decrypt decrypts data in place and returns it. The last 16 bytes are
// decrypted first, then the first 16; bytes in between are left alone.
// Returns ErrShortPacket if data is not longer than one block.
func (d *Decryptor) Decrypt(data []byte) ([]byte, error) {
	if len(data) <= BlockSize {
		return nil, ErrShortPacket
	}
	d.decryptBlock(data[len(data)-BlockSize:])
	d.decryptBlock(data[:BlockSize])
	return data, nil
}

func (d *Decryptor) decryptBlock(b []byte) {
	cipher.NewCBCDecrypter(d.block, d.iv[:]).CryptBlocks(b, b)
}

// DecryptSource decrypts every buffer of an upstream Source.
//
// Buffers too short to decrypt are never handed to the Decryptor; they are
// replaced by an empty buffer so the item count is preserved and the
// decoder reports them as ErrInvalidLength.
type DecryptSource struct {
	upstream  Source[[]byte]
	decryptor *Decryptor
}

// NewDecryptSource wraps upstream with a Decryptor bound to one device.
func NewDecryptSource(upstream Source[[]byte], key CryptKey, addr HardwareAddr) *DecryptSource {
	return &DecryptSource{
		upstream:  upstream,
		decryptor: NewDecryptor(key, addr),
	}
}

// Next pulls one buffer from upstream and decrypts it.
func (s *DecryptSource) Next() ([]byte, Status) {
	data, status := s.upstream.Next()
	if status != Ready {
		return nil, status
	}
	if len(data) <= BlockSize {
		return []byte{}, Ready
	}
	out, _ := s.decryptor.Decrypt(data)
	return out, Ready
}

// Wait waits on the upstream source.
func (s *DecryptSource) Wait(ctx context.Context) error {
	return s.upstream.Wait(ctx)
}
