package ble

import (
	"github.com/sirupsen/logrus"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	logger       logrus.FieldLogger
	namePrefixes []string
	address      gancube.HardwareAddr
	bufferSize   int
}

func defaultOptions() *options {
	return &options{
		logger:       logrus.StandardLogger(),
		namePrefixes: gancube.DefaultNamePrefixes,
		bufferSize:   64,
	}
}

// WithLogger sets the logger used for connection events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNamePrefixes overrides the advertised name prefixes used to recognise
// cubes while scanning.
func WithNamePrefixes(prefixes ...string) Option {
	return func(o *options) {
		if len(prefixes) > 0 {
			o.namePrefixes = prefixes
		}
	}
}

// WithAddress sets the device's hardware address. It is required on
// platforms that do not expose the address during scanning, since the
// decryption key is derived from it.
func WithAddress(addr gancube.HardwareAddr) Option {
	return func(o *options) {
		o.address = addr
	}
}

// WithBufferSize sets how many notifications are queued before new ones
// are dropped.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}
