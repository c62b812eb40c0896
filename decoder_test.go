package gancube

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBits(b []byte, from, to int, v uint64) {
	for i := to - 1; i >= from; i-- {
		mask := byte(1) << (7 - uint(i%8))
		if v&1 == 1 {
			b[i/8] |= mask
		} else {
			b[i/8] &^= mask
		}
		v >>= 1
	}
}

// movePacket builds a plaintext move notification of length n.
func movePacket(n int, serial uint8, face int, prime bool, elapsedMs uint16) []byte {
	b := make([]byte, n)
	setBits(b, 0, 4, uint64(EventMove))
	setBits(b, 4, 12, uint64(serial))
	setBits(b, 12, 16, uint64(face))
	if prime {
		setBits(b, 16, 17, 1)
	}
	setBits(b, 47, 63, uint64(elapsedMs))
	return b
}

func TestDecodeExampleMove(t *testing.T) {
	data := []byte{0x20, 0x50, 0x00, 0x00, 0x00, 0x00, 0x0B, 0xB8}

	ev, err := Decode(data)
	require.NoError(t, err)

	m, ok := ev.(*Move)
	require.True(t, ok)
	assert.Equal(t, &Move{Serial: 5, Face: FaceU, Prime: false, Elapsed: 1500 * time.Millisecond}, m)
	assert.Equal(t, Command{Face: FaceU, Turns: 1}, m.Command())
	assert.Equal(t, EventMove, m.EventType())
}

func TestDecodeFaces(t *testing.T) {
	want := []Face{FaceU, FaceR, FaceF, FaceD, FaceL, FaceB}
	for code, face := range want {
		ev, err := Decode(movePacket(20, 1, code, false, 0))
		require.NoError(t, err)
		assert.Equal(t, face, ev.(*Move).Face)
	}
}

func TestDecodePrime(t *testing.T) {
	ev, err := Decode(movePacket(20, 9, 1, true, 250))
	require.NoError(t, err)

	m := ev.(*Move)
	assert.True(t, m.Prime)
	assert.Equal(t, Command{Face: FaceR, Turns: -1}, m.Command())
	assert.Equal(t, "R'", m.Notation())
}

func TestDecodeFieldLimits(t *testing.T) {
	ev, err := Decode(movePacket(8, 0xFF, 5, true, 0xFFFF))
	require.NoError(t, err)

	m := ev.(*Move)
	assert.Equal(t, uint8(0xFF), m.Serial)
	assert.Equal(t, FaceB, m.Face)
	assert.Equal(t, 65535*time.Millisecond, m.Elapsed)
}

func TestDecodeInvalidLength(t *testing.T) {
	for n := 0; n < 8; n++ {
		data := make([]byte, n)
		if n > 0 {
			data[0] = 0x2F
		}
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrInvalidLength, "len=%d", n)
	}
}

func TestDecodeUnknownEventType(t *testing.T) {
	for typ := 0; typ < 16; typ++ {
		if EventType(typ) == EventMove {
			continue
		}
		for _, n := range []int{1, 8, 20} {
			data := make([]byte, n)
			data[0] = byte(typ << 4)
			ev, err := Decode(data)
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, ErrUnknownEventType, "type=%d len=%d", typ, n)
		}
	}
}

func TestDecodeIgnoresReservedBits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := movePacket(20, 42, 3, true, 1234)
	want, err := Decode(base)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		noisy := append([]byte(nil), base...)
		setBits(noisy, 17, 47, uint64(rng.Int63()))
		for bit := 63; bit < len(noisy)*8; bit++ {
			setBits(noisy, bit, bit+1, uint64(rng.Intn(2)))
		}

		got, err := Decode(noisy)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeFaceOutOfRangePanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = Decode(movePacket(8, 0, 6, false, 0))
	})
}

func TestDecodeSourceContinuesAfterFailure(t *testing.T) {
	garbage := make([]byte, 20)
	garbage[0] = 0xF0

	src := NewDecodeSource(NewSliceSource(
		movePacket(20, 1, 0, false, 100),
		garbage,
		movePacket(20, 2, 1, true, 200),
	))

	results, err := Collect[Result](testContext(t), src)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, uint8(1), results[0].Move().Serial)

	assert.Nil(t, results[1].Event)
	assert.Nil(t, results[1].Move())
	assert.ErrorIs(t, results[1].Err, ErrUnknownEventType)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "R'", results[2].Move().Notation())
}

func TestDecodeSourcePropagatesStatus(t *testing.T) {
	up := &scriptedSource{steps: []step{{status: Pending}, {status: Done}}}
	src := NewDecodeSource(up)

	_, status := src.Next()
	assert.Equal(t, Pending, status)
	require.NoError(t, src.Wait(testContext(t)))
	assert.Equal(t, 1, up.waits)

	_, status = src.Next()
	assert.Equal(t, Done, status)
}

func TestDecodeErrorReason(t *testing.T) {
	assert.Equal(t, "invalid_length", ErrInvalidLength.Reason())
	assert.Equal(t, "unknown_event_type", ErrUnknownEventType.Reason())
	assert.EqualError(t, ErrUnknownEventType, "gancube: unknown event type")
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "", FailureReason(nil))
	assert.Equal(t, "invalid_length", FailureReason(ErrInvalidLength))
	assert.Equal(t, "unknown_event_type", FailureReason(fmt.Errorf("wrapped: %w", ErrUnknownEventType)))
	assert.Equal(t, "short_packet", FailureReason(ErrShortPacket))
	assert.Equal(t, "unknown", FailureReason(errors.New("boom")))
}
