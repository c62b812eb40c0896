package cli

import (
	"context"
	"errors"
	"fmt"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
	"github.com/SeamusWaldron/gancube_ble_library/internal/ble"
)

// connectFlags are shared by commands that talk to a cube.
type connectFlags struct {
	address string
	key     string
}

// connection is an open cube connection with everything needed to build
// the decode pipeline.
type connection struct {
	client *ble.Client
	name   string
	addr   gancube.HardwareAddr
	key    gancube.CryptKey
}

// pipeline returns the decoded stream of the connection.
func (c *connection) pipeline() (*gancube.DecodeSource, error) {
	raw, err := c.client.Notifications()
	if err != nil {
		return nil, err
	}
	return gancube.NewPipeline(raw, c.key, c.addr), nil
}

// resolveKey returns the key family from the flag, the device entry in the
// config, or the configured default.
func resolveKey(flag, deviceName string) (gancube.CryptKey, error) {
	if flag != "" {
		return gancube.ParseCryptKey(flag)
	}
	return cfg.KeyFor(deviceName), nil
}

// connect finds the cube matching target (name, address or "" for the
// first one seen) and subscribes to its notifications.
func connect(ctx context.Context, target string, flags connectFlags) (*connection, error) {
	opts := []ble.Option{
		ble.WithLogger(log),
		ble.WithNamePrefixes(cfg.NamePrefixes...),
	}
	if flags.address != "" {
		addr, err := gancube.ParseHardwareAddr(flags.address)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ble.WithAddress(addr))
	}

	client, err := ble.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("BLE not available: %w", err)
	}

	log.WithField("timeout", cfg.ScanTimeout).Info("scanning for cube")
	result, err := client.Find(ctx, target, cfg.ScanTimeout)
	if err != nil {
		return nil, err
	}

	if result.MAC.IsZero() {
		result.MAC = cfg.AddressFor(result.Name)
	}

	key, err := resolveKey(flags.key, result.Name)
	if err != nil {
		return nil, err
	}

	if err := client.Connect(ctx, result); err != nil {
		if errors.Is(err, ble.ErrAddressUnavailable) {
			return nil, fmt.Errorf("%w: pass --address or set devices.%s.address in the config", err, result.Name)
		}
		return nil, err
	}

	return &connection{
		client: client,
		name:   result.Name,
		addr:   client.Address(),
		key:    key,
	}, nil
}
