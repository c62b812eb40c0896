package ble

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

// connectedClient returns a client in the connected state without a real
// adapter, so the notification path can be exercised directly.
func connectedClient(t *testing.T, buffer int) (*Client, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	o := defaultOptions()
	WithLogger(logger)(o)
	WithBufferSize(buffer)(o)
	return &Client{
		opts:          o,
		log:           o.logger,
		connected:     true,
		deviceName:    "GANi3_1234",
		addr:          gancube.MustParseHardwareAddr("AB:CD:EF:01:23:45"),
		notifications: make(chan []byte, o.bufferSize),
	}, hook
}

func TestHandleNotificationCopiesBuffer(t *testing.T) {
	c, _ := connectedClient(t, 4)

	buf := []byte{1, 2, 3}
	c.handleNotification(buf)
	buf[0] = 9

	src, err := c.Notifications()
	require.NoError(t, err)

	got, status := src.Next()
	require.Equal(t, gancube.Ready, status)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestHandleNotificationDropsWhenFull(t *testing.T) {
	c, hook := connectedClient(t, 1)

	c.handleNotification([]byte{1})
	c.handleNotification([]byte{2})

	received, dropped := c.Stats()
	assert.Equal(t, uint64(2), received)
	assert.Equal(t, uint64(1), dropped)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestDisconnectEndsStream(t *testing.T) {
	c, _ := connectedClient(t, 4)

	var called bool
	c.SetDisconnectCallback(func() { called = true })

	c.handleNotification([]byte{7})
	src, err := c.Notifications()
	require.NoError(t, err)

	require.NoError(t, c.Disconnect())
	assert.True(t, called)
	assert.False(t, c.IsConnected())
	assert.True(t, c.Address().IsZero())

	// Queued notifications are still delivered before Done.
	items, err := gancube.Collect[[]byte](context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{7}}, items)

	// Late notifications are ignored rather than sent on a closed channel.
	c.handleNotification([]byte{8})

	_, err = c.Notifications()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDisconnectWhenNotConnected(t *testing.T) {
	c := &Client{opts: defaultOptions()}
	assert.NoError(t, c.Disconnect())
}

func TestMatchesTarget(t *testing.T) {
	prefixes := gancube.DefaultNamePrefixes

	tests := []struct {
		name   string
		target string
		dev    string
		addr   string
		want   bool
	}{
		{"any cube", "", "GAN12ui_ABCD", "AB:CD:EF:01:23:45", true},
		{"any non-cube", "", "Headphones", "AB:CD:EF:01:23:45", false},
		{"by name", "MG3_1", "MG3_1", "AB:CD:EF:01:23:45", true},
		{"by other name", "MG3_1", "MG3_2", "AB:CD:EF:01:23:45", false},
		{"by mac", "ab:cd:ef:01:23:45", "x", "AB:CD:EF:01:23:45", true},
		{"by plain hex", "ABCDEF012345", "x", "AB:CD:EF:01:23:45", true},
		{"by platform id", "9f1c2b1e-0000-4000-8000-000000000001", "x", "9f1c2b1e-0000-4000-8000-000000000001", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesTarget(tt.target, tt.dev, tt.addr, prefixes))
		})
	}
}

func TestOptions(t *testing.T) {
	o := defaultOptions()
	assert.Equal(t, gancube.DefaultNamePrefixes, o.namePrefixes)

	WithNamePrefixes("Custom")(o)
	WithAddress(gancube.MustParseHardwareAddr("01:02:03:04:05:06"))(o)
	WithBufferSize(0)(o)
	WithLogger(nil)(o)

	assert.Equal(t, []string{"Custom"}, o.namePrefixes)
	assert.Equal(t, "01:02:03:04:05:06", o.address.String())
	assert.Equal(t, 64, o.bufferSize)
	assert.NotNil(t, o.logger)
}

func TestRemoteDisconnectEndsStream(t *testing.T) {
	c, hook := connectedClient(t, 4)
	c.hasDevice = true

	var called bool
	c.SetDisconnectCallback(func() { called = true })

	c.handleNotification([]byte{7})
	src, err := c.Notifications()
	require.NoError(t, err)

	// A connect event for the same device is not a drop.
	c.handleConnectionEvent(bluetooth.Device{}, true)
	assert.True(t, c.IsConnected())

	c.handleConnectionEvent(bluetooth.Device{}, false)
	assert.True(t, called)
	assert.False(t, c.IsConnected())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	items, err := gancube.Collect[[]byte](context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{7}}, items)

	// A second event after teardown is ignored.
	c.handleConnectionEvent(bluetooth.Device{}, false)
}

func TestConnectionEventIgnoredWithoutDevice(t *testing.T) {
	c, _ := connectedClient(t, 4)

	c.handleConnectionEvent(bluetooth.Device{}, false)
	assert.True(t, c.IsConnected())
}
