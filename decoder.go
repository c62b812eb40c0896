package gancube

import (
	"context"
	"fmt"
	"time"
)

// Bit layout of a decrypted notification. Bit 0 is the most significant
// bit of byte 0. Ranges are half-open.
const (
	typeBits = 4

	serialFrom, serialTo   = 4, 12
	faceFrom, faceTo       = 12, 16
	primeBit               = 16
	elapsedFrom, elapsedTo = 47, 63

	moveBits = elapsedTo
)

// bitfield reads big-endian unsigned integers from arbitrary bit ranges of
// a byte slice.
type bitfield []byte

func (b bitfield) len() int {
	return len(b) * 8
}

func (b bitfield) bit(i int) bool {
	return b[i/8]>>(7-uint(i%8))&1 == 1
}

// load returns bits [from, to) as an unsigned integer, first bit most
// significant.
func (b bitfield) load(from, to int) uint64 {
	var v uint64
	for i := from; i < to; i++ {
		v <<= 1
		if b.bit(i) {
			v |= 1
		}
	}
	return v
}

// Decode decodes a decrypted notification.
//
// It returns ErrUnknownEventType for any discriminant other than a move and
// ErrInvalidLength for a move shorter than 8 bytes. Bits outside the
// decoded fields are ignored.
func Decode(data []byte) (Event, error) {
	bits := bitfield(data)
	if bits.len() < typeBits {
		return nil, ErrInvalidLength
	}

	switch EventType(bits.load(0, typeBits)) {
	case EventMove:
		m, err := decodeMove(bits)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, ErrUnknownEventType
	}
}

func decodeMove(bits bitfield) (*Move, error) {
	if bits.len() < moveBits {
		return nil, ErrInvalidLength
	}

	code := bits.load(faceFrom, faceTo)
	if code >= uint64(len(faceCodes)) {
		// The cube only ever reports faces 0-5.
		panic(fmt.Sprintf("gancube: face code %d out of range", code))
	}

	return &Move{
		Serial:  uint8(bits.load(serialFrom, serialTo)),
		Face:    faceCodes[code],
		Prime:   bits.bit(primeBit),
		Elapsed: time.Duration(bits.load(elapsedFrom, elapsedTo)) * time.Millisecond,
	}, nil
}

// DecodeSource decodes every buffer of an upstream Source of decrypted
// notifications. A failed decode is yielded as a Result with Err set and
// does not end the stream.
type DecodeSource struct {
	upstream Source[[]byte]
}

// NewDecodeSource wraps upstream.
func NewDecodeSource(upstream Source[[]byte]) *DecodeSource {
	return &DecodeSource{upstream: upstream}
}

// Next pulls one buffer from upstream and decodes it.
func (s *DecodeSource) Next() (Result, Status) {
	data, status := s.upstream.Next()
	if status != Ready {
		return Result{}, status
	}
	ev, err := Decode(data)
	return Result{Event: ev, Err: err}, Ready
}

// Wait waits on the upstream source.
func (s *DecodeSource) Wait(ctx context.Context) error {
	return s.upstream.Wait(ctx)
}
