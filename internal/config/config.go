// Package config loads and saves the gancube configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

const (
	// Dir is the configuration directory under the user's home.
	Dir = ".gancube"
	// File is the configuration file name.
	File = "config.yaml"
	// DBFile is the default database file name.
	DBFile = "gancube.db"
)

// ErrInvalidConfig is returned when the configuration file cannot be
// decoded or fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Device holds per-device overrides keyed by advertised name.
type Device struct {
	// Address is the device's hardware address. Needed where the BLE stack
	// does not expose it.
	Address gancube.HardwareAddr `mapstructure:"address" yaml:"address,omitempty"`
	// Key overrides the default key family for this device.
	Key string `mapstructure:"key" yaml:"key,omitempty"`
}

// Config is the gancube configuration.
type Config struct {
	Key          gancube.CryptKey  `mapstructure:"key" yaml:"key"`
	DBPath       string            `mapstructure:"db_path" yaml:"db_path"`
	LogLevel     string            `mapstructure:"log_level" yaml:"log_level"`
	LogFormat    string            `mapstructure:"log_format" yaml:"log_format"`
	MetricsAddr  string            `mapstructure:"metrics_addr" yaml:"metrics_addr,omitempty"`
	ScanTimeout  time.Duration     `mapstructure:"scan_timeout" yaml:"scan_timeout"`
	NamePrefixes []string          `mapstructure:"name_prefixes" yaml:"name_prefixes"`
	Devices      map[string]Device `mapstructure:"devices" yaml:"devices,omitempty"`
}

// DefaultPath returns ~/.gancube/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), Dir, File)
}

// Default returns the built-in configuration.
func Default() *Config {
	prefixes := make([]string, len(gancube.DefaultNamePrefixes))
	copy(prefixes, gancube.DefaultNamePrefixes)
	return &Config{
		Key:          gancube.KeyGAN,
		DBPath:       filepath.Join(homeDir(), Dir, DBFile),
		LogLevel:     "info",
		LogFormat:    "text",
		ScanTimeout:  10 * time.Second,
		NamePrefixes: prefixes,
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load reads the configuration at path on top of the defaults. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config file '%s': %w", path, err)
	}

	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals into a generic map first so unknown keys can be
// rejected and string fields converted by hooks.
func (c *Config) decode(data []byte) error {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			cryptKeyHook,
			hardwareAddrHook,
		),
		ErrorUnused: true,
		ZeroFields:  true,
		Result:      c,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

var (
	cryptKeyType     = reflect.TypeOf(gancube.CryptKey(0))
	hardwareAddrType = reflect.TypeOf(gancube.HardwareAddr{})
)

func cryptKeyHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != cryptKeyType || from.Kind() != reflect.String {
		return data, nil
	}
	return gancube.ParseCryptKey(data.(string))
}

func hardwareAddrHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != hardwareAddrType || from.Kind() != reflect.String {
		return data, nil
	}
	return gancube.ParseHardwareAddr(data.(string))
}

// Validate checks field values that the decoder cannot.
func (c *Config) Validate() error {
	if !c.Key.Valid() {
		return fmt.Errorf("%w: key %d", ErrInvalidConfig, int(c.Key))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("%w: scan_timeout must be positive", ErrInvalidConfig)
	}
	for name, d := range c.Devices {
		if d.Key == "" {
			continue
		}
		if _, err := gancube.ParseCryptKey(d.Key); err != nil {
			return fmt.Errorf("%w: devices.%s: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Device returns the overrides for the named device. Names are matched
// case-insensitively.
func (c *Config) Device(name string) (Device, bool) {
	if d, ok := c.Devices[name]; ok {
		return d, true
	}
	for n, d := range c.Devices {
		if strings.EqualFold(n, name) {
			return d, true
		}
	}
	return Device{}, false
}

// KeyFor returns the key family for the named device, falling back to the
// default key.
func (c *Config) KeyFor(name string) gancube.CryptKey {
	if d, ok := c.Device(name); ok && d.Key != "" {
		if k, err := gancube.ParseCryptKey(d.Key); err == nil {
			return k
		}
	}
	return c.Key
}

// AddressFor returns the configured hardware address for the named device,
// or the zero address.
func (c *Config) AddressFor(name string) gancube.HardwareAddr {
	d, _ := c.Device(name)
	return d.Address
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write config file '%s': %w", path, err)
	}
	return nil
}
