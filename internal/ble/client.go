// Package ble provides low-level BLE communication with GAN smart cubes.
//
// The client finds a cube, subscribes to its state characteristic and
// exposes the raw encrypted notifications as a gancube.Source. Decryption
// and decoding are left to the caller.
package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

// Errors
var (
	ErrNotConnected       = errors.New("ble: not connected to device")
	ErrAlreadyConnected   = errors.New("ble: already connected to a device")
	ErrDeviceNotFound     = errors.New("ble: device not found")
	ErrNoStateChar        = errors.New("ble: no supported state characteristic")
	ErrAddressUnavailable = errors.New("ble: device hardware address unknown")
)

// ScanResult represents a discovered cube.
type ScanResult struct {
	Name    string
	RSSI    int16
	Address bluetooth.Address
	// MAC is the device's hardware address when the platform reports one.
	// It is zero on platforms that hide it behind a per-host identifier.
	MAC gancube.HardwareAddr
}

// Client manages the BLE connection to a cube.
type Client struct {
	adapter   *bluetooth.Adapter
	device    bluetooth.Device
	hasDevice bool
	opts      *options
	log       logrus.FieldLogger

	mu            sync.RWMutex
	connected     bool
	deviceName    string
	addr          gancube.HardwareAddr
	generation    gancube.Generation
	notifications chan []byte
	received      uint64
	dropped       uint64

	onDisconnect func()
}

// NewClient enables the default adapter and creates a client.
func NewClient(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("failed to enable BLE adapter: %w", err)
	}

	c := &Client{
		adapter: adapter,
		opts:    o,
		log:     o.logger.WithField("component", "ble"),
	}
	adapter.SetConnectHandler(c.handleConnectionEvent)
	return c, nil
}

// SetDisconnectCallback sets the callback for disconnection events.
func (c *Client) SetDisconnectCallback(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = cb
}

// Scan scans for cubes until timeout or ctx ends.
func (c *Client) Scan(ctx context.Context, timeout time.Duration) ([]ScanResult, error) {
	c.mu.RLock()
	if c.connected {
		c.mu.RUnlock()
		return nil, ErrAlreadyConnected
	}
	c.mu.RUnlock()

	var results []ScanResult
	var mu sync.Mutex
	seen := make(map[string]bool)
	done := make(chan error, 1)

	go func() {
		done <- c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			name := result.LocalName()
			if !gancube.IsCubeName(name, c.opts.namePrefixes...) {
				return
			}

			key := result.Address.String()
			mu.Lock()
			defer mu.Unlock()
			if seen[key] {
				return
			}
			seen[key] = true

			r := ScanResult{Name: name, RSSI: result.RSSI, Address: result.Address}
			r.MAC, _ = gancube.ParseHardwareAddr(key)
			c.log.WithFields(logrus.Fields{"name": name, "address": key, "rssi": r.RSSI}).Debug("found cube")
			results = append(results, r)
		})
	}()

	select {
	case <-time.After(timeout):
	case <-ctx.Done():
	}

	c.adapter.StopScan()
	if err := <-done; err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return results, nil
}

// Find scans until a cube matching target appears. target is an advertised
// name or a platform address string; an empty target matches the first cube
// seen.
func (c *Client) Find(ctx context.Context, target string, timeout time.Duration) (ScanResult, error) {
	found := make(chan ScanResult, 1)
	var once sync.Once

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			name := result.LocalName()
			addr := result.Address.String()
			if !matchesTarget(target, name, addr, c.opts.namePrefixes) {
				return
			}
			once.Do(func() {
				r := ScanResult{Name: name, RSSI: result.RSSI, Address: result.Address}
				r.MAC, _ = gancube.ParseHardwareAddr(addr)
				found <- r
			})
		})
	}()

	var (
		result ScanResult
		err    error
	)
	select {
	case result = <-found:
	case <-ctx.Done():
		err = ErrDeviceNotFound
	}
	c.adapter.StopScan()
	<-done

	return result, err
}

func matchesTarget(target, name, addr string, prefixes []string) bool {
	if target == "" {
		return gancube.IsCubeName(name, prefixes...)
	}
	if name == target {
		return true
	}
	want, err := gancube.ParseHardwareAddr(target)
	if err != nil {
		return addr == target
	}
	got, err := gancube.ParseHardwareAddr(addr)
	return err == nil && got == want
}

// Connect connects to a scanned cube, finds its state characteristic and
// starts buffering notifications.
func (c *Client) Connect(ctx context.Context, result ScanResult) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	addr := result.MAC
	if !c.opts.address.IsZero() {
		addr = c.opts.address
	}
	if addr.IsZero() {
		return ErrAddressUnavailable
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	device, err := c.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	char, gen, err := findStateCharacteristic(device)
	if err != nil {
		device.Disconnect()
		return err
	}

	c.mu.Lock()
	c.device = device
	c.hasDevice = true
	c.connected = true
	c.deviceName = result.Name
	c.addr = addr
	c.generation = gen
	c.notifications = make(chan []byte, c.opts.bufferSize)
	c.received, c.dropped = 0, 0
	c.mu.Unlock()

	if err := char.EnableNotifications(c.handleNotification); err != nil {
		c.Disconnect()
		return fmt.Errorf("failed to enable notifications: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"name":       result.Name,
		"address":    addr.String(),
		"generation": gen.Name,
	}).Info("connected")

	return nil
}

// findStateCharacteristic walks every service because filtered discovery
// fails on some platforms when a listed UUID is absent.
func findStateCharacteristic(device bluetooth.Device) (bluetooth.DeviceCharacteristic, gancube.Generation, error) {
	services, err := device.DiscoverServices(nil)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, gancube.Generation{}, fmt.Errorf("failed to discover services: %w", err)
	}

	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			continue
		}
		for _, ch := range chars {
			u, err := uuid.Parse(ch.UUID().String())
			if err != nil {
				continue
			}
			if gen, ok := gancube.GenerationForCharacteristic(u); ok {
				return ch, gen, nil
			}
		}
	}
	return bluetooth.DeviceCharacteristic{}, gancube.Generation{}, ErrNoStateChar
}

// Notifications returns the raw notification stream. The source reports
// Done after Disconnect.
func (c *Client) Notifications() (*gancube.ChanSource[[]byte], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil, ErrNotConnected
	}
	return gancube.NewChanSource[[]byte](c.notifications), nil
}

// Disconnect disconnects from the current device.
func (c *Client) Disconnect() error {
	return c.teardown(true)
}

// teardown ends the notification stream. The link itself is only closed
// when dropLink is set; after a remote disconnect it is already gone.
func (c *Client) teardown(dropLink bool) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}

	device, hasDevice := c.device, c.hasDevice
	c.device, c.hasDevice = bluetooth.Device{}, false
	c.connected = false
	c.deviceName = ""
	c.addr = gancube.HardwareAddr{}
	close(c.notifications)
	cb := c.onDisconnect
	c.mu.Unlock()

	var err error
	if hasDevice && dropLink {
		err = device.Disconnect()
	}
	if cb != nil {
		cb()
	}
	return err
}

// IsConnected returns true if connected to a device.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// DeviceName returns the connected device name.
func (c *Client) DeviceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceName
}

// Address returns the hardware address used to derive the decryption key.
func (c *Client) Address() gancube.HardwareAddr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addr
}

// Generation returns the hardware generation of the connected cube.
func (c *Client) Generation() gancube.Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Stats returns the number of notifications received and dropped because
// the buffer was full.
func (c *Client) Stats() (received, dropped uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.received, c.dropped
}

// handleNotification runs on the BLE stack's goroutine and must not block.
// The stack reuses buf, so it is copied before being queued.
func (c *Client) handleNotification(buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}

	c.received++
	data := make([]byte, len(buf))
	copy(data, buf)

	select {
	case c.notifications <- data:
	default:
		c.dropped++
		c.log.WithField("dropped", c.dropped).Warn("notification buffer full, dropping packet")
	}
}

// handleConnectionEvent ends the stream when the connected cube drops the
// link, e.g. when it powers off or goes out of range.
func (c *Client) handleConnectionEvent(device bluetooth.Device, connected bool) {
	if connected {
		return
	}

	c.mu.RLock()
	ours := c.connected && c.hasDevice && c.device.Address.String() == device.Address.String()
	name := c.deviceName
	c.mu.RUnlock()
	if !ours {
		return
	}

	c.log.WithField("name", name).Warn("cube disconnected")
	c.teardown(false)
}
