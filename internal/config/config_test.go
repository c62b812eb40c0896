package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, gancube.KeyGAN, cfg.Key)
	assert.Equal(t, 10*time.Second, cfg.ScanTimeout)
	assert.Equal(t, gancube.DefaultNamePrefixes, cfg.NamePrefixes)
	assert.Equal(t, DBFile, filepath.Base(cfg.DBPath))
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
key: moyu
log_level: debug
log_format: json
metrics_addr: ":9102"
scan_timeout: 30s
name_prefixes: [GAN]
devices:
  GANi3_1234:
    address: "AB:CD:EF:01:23:45"
  MoYu_AI:
    address: "010203040506"
    key: gan
`))
	require.NoError(t, err)

	assert.Equal(t, gancube.KeyMoYu, cfg.Key)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
	assert.Equal(t, 30*time.Second, cfg.ScanTimeout)
	assert.Equal(t, []string{"GAN"}, cfg.NamePrefixes)

	assert.Equal(t, "AB:CD:EF:01:23:45", cfg.AddressFor("GANi3_1234").String())
	assert.Equal(t, "01:02:03:04:05:06", cfg.AddressFor("moyu_ai").String())
	assert.True(t, cfg.AddressFor("unknown").IsZero())

	assert.Equal(t, gancube.KeyMoYu, cfg.KeyFor("GANi3_1234"))
	assert.Equal(t, gancube.KeyGAN, cfg.KeyFor("MoYu_AI"))
	assert.Equal(t, gancube.KeyMoYu, cfg.KeyFor("unknown"))
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log_level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, Default().ScanTimeout, cfg.ScanTimeout)
	assert.Equal(t, Default().DBPath, cfg.DBPath)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key family", "key: rubik\n"},
		{"bad address", "devices:\n  x:\n    address: nope\n"},
		{"bad device key", "devices:\n  x:\n    key: nope\n"},
		{"bad log level", "log_level: loud\n"},
		{"bad log format", "log_format: xml\n"},
		{"bad duration", "scan_timeout: soon\n"},
		{"negative duration", "scan_timeout: -1s\n"},
		{"unknown field", "colour: blue\n"},
		{"not yaml", "key: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", File)

	cfg := Default()
	cfg.Key = gancube.KeyMoYu
	cfg.ScanTimeout = 5 * time.Second
	cfg.Devices = map[string]Device{
		"GAN12_ABCD": {Address: gancube.MustParseHardwareAddr("AB:CD:EF:01:23:45"), Key: "gan"},
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
