package gancube

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineDecodesEncryptedNotifications(t *testing.T) {
	addr := MustParseHardwareAddr("C4:6A:11:90:0D:7E")

	garbage := make([]byte, 20)
	garbage[0] = 0x70

	plain := [][]byte{
		movePacket(20, 10, 1, false, 120),
		garbage,
		movePacket(20, 11, 0, true, 80),
	}

	packets := make([][]byte, len(plain))
	for i, p := range plain {
		packets[i] = encryptPacket(t, KeyGAN, addr, p)
	}

	ch := make(chan []byte)
	go func() {
		defer close(ch)
		for _, p := range packets {
			ch <- p
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := Collect[Result](ctx, NewPipeline(NewChanSource(ch), KeyGAN, addr))
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, &Move{Serial: 10, Face: FaceR, Elapsed: 120 * time.Millisecond}, results[0].Move())

	assert.ErrorIs(t, results[1].Err, ErrUnknownEventType)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "U'", results[2].Move().Notation())
}

func TestPipelineShortNotification(t *testing.T) {
	addr := MustParseHardwareAddr("C4:6A:11:90:0D:7E")
	src := NewPipeline(NewSliceSource([]byte{0x20, 0x01}), KeyGAN, addr)

	r, status := src.Next()
	require.Equal(t, Ready, status)
	assert.ErrorIs(t, r.Err, ErrInvalidLength)

	_, status = src.Next()
	assert.Equal(t, Done, status)
}

func TestDecodePacket(t *testing.T) {
	addr := MustParseHardwareAddr("C4:6A:11:90:0D:7E")
	packet := encryptPacket(t, KeyMoYu, addr, movePacket(20, 3, 2, false, 10))

	ev, err := DecodePacket(NewDecryptor(KeyMoYu, addr), append([]byte(nil), packet...))
	require.NoError(t, err)
	assert.Equal(t, FaceF, ev.(*Move).Face)

	_, err = DecodePacket(NewDecryptor(KeyMoYu, addr), packet[:10])
	assert.ErrorIs(t, err, ErrShortPacket)
}
