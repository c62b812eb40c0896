package cli

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
	"github.com/SeamusWaldron/gancube_ble_library/internal/cube"
	"github.com/SeamusWaldron/gancube_ble_library/internal/recorder"
	"github.com/SeamusWaldron/gancube_ble_library/internal/storage"
)

var testAddr = gancube.MustParseHardwareAddr("AB:CD:EF:01:23:45")

// runCLI executes the root command with fresh flag values and a config
// file that does not exist, so defaults apply.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return runCLIWithConfig(t, filepath.Join(t.TempDir(), "missing.yaml"), stdin, args...)
}

func runCLIWithConfig(t *testing.T, file, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgPath, dbPath, verbose = "", "", false
	decodeFlags, decodeDevice, decodePlain = connectFlags{}, "", false
	sessionsLimit, movesReplay = 20, false
	deviceAddress, deviceKey = "", ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", file}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

// encryptPacket is the inverse of the device decryption: first block, then
// last block, each with a fresh CBC state.
func encryptPacket(t *testing.T, key gancube.CryptKey, addr gancube.HardwareAddr, plain []byte) []byte {
	t.Helper()
	k, iv := key.Bytes()
	for i := range addr {
		salt := uint16(addr[len(addr)-1-i])
		k[i] = byte((uint16(k[i]) + salt) % 255)
		iv[i] = byte((uint16(iv[i]) + salt) % 255)
	}
	block, err := aes.NewCipher(k[:])
	require.NoError(t, err)

	out := append([]byte(nil), plain...)
	first := out[:aes.BlockSize]
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(first, first)
	last := out[len(out)-aes.BlockSize:]
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(last, last)
	return out
}

// examplePacket is a move U with serial 5 at 1500ms, padded to 20 bytes.
func examplePacket() []byte {
	p := make([]byte, 20)
	copy(p, []byte{0x20, 0x50, 0x00, 0x00, 0x00, 0x00, 0x0B, 0xB8})
	return p
}

func TestFormatResult(t *testing.T) {
	m := &gancube.Move{Serial: 5, Face: gancube.FaceU, Elapsed: 1500 * time.Millisecond}
	assert.Equal(t, "   0  move   #5   U   1500ms", formatResult(0, gancube.Result{Event: m}))
	assert.Equal(t, "   3  error  gancube: invalid event length", formatResult(3, gancube.Result{Err: gancube.ErrInvalidLength}))
}

func TestDecodePlain(t *testing.T) {
	out, err := runCLI(t, "", "decode", "--plain", "2050000000000BB8", "20")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "   0  move   #5   U   1500ms", lines[0])
	assert.Contains(t, lines[1], "invalid event length")
}

func TestDecodeEncryptedFromStdin(t *testing.T) {
	packet := encryptPacket(t, gancube.KeyGAN, testAddr, examplePacket())
	stdin := strings.Join([]string{
		"# captured notifications",
		hex.EncodeToString(packet),
		"",
		"00 11 22", // too short to decrypt
	}, "\n")

	out, err := runCLI(t, stdin, "decode", "--address", testAddr.String())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "   0  move   #5   U   1500ms", lines[0])
	assert.Contains(t, lines[1], "invalid event length")
}

func TestDecodeRequiresAddress(t *testing.T) {
	_, err := runCLI(t, "", "decode", "00")
	assert.ErrorIs(t, err, gancube.ErrInvalidAddress)
}

func TestDecodeBadHex(t *testing.T) {
	_, err := runCLI(t, "", "decode", "--plain", "zz")
	assert.ErrorContains(t, err, "packet 1")
}

func TestParseHex(t *testing.T) {
	b, err := parseHex("0x20:50-00 0b\tB8")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x50, 0x00, 0x0b, 0xb8}, b)
}

func TestSessionsAndMoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	db, err := storage.Open(path)
	require.NoError(t, err)

	s := recorder.NewSession(recorder.WithStore(db))
	require.NoError(t, s.Start("GANi3_1234", testAddr, gancube.KeyGAN, ""))
	for _, r := range []gancube.Result{
		{Event: &gancube.Move{Serial: 1, Face: gancube.FaceR}},
		{Err: gancube.ErrUnknownEventType},
		{Event: &gancube.Move{Serial: 2, Face: gancube.FaceR, Prime: true}},
	} {
		require.NoError(t, s.Handle(r))
	}
	require.NoError(t, s.End())
	id := s.SessionID()
	require.NoError(t, db.Close())

	out, err := runCLI(t, "", "sessions", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "GANi3_1234")
	assert.Contains(t, out, "AB:CD:EF:01:23:45")

	out, err = runCLI(t, "", "moves", "--db", path, "--replay", id)
	require.NoError(t, err)
	assert.Contains(t, out, "   1  error  unknown_event_type")
	assert.Contains(t, out, "2 moves, 1 failures")
	assert.Contains(t, out, "R R'")
	assert.Contains(t, out, "Stage: Solved")

	_, err = runCLI(t, "", "moves", "--db", path, "missing")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	out, err = runCLI(t, "", "sessions", "delete", "--db", path, id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted session")

	out, err = runCLI(t, "", "sessions", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded")
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gancube "+version))
}

func TestWatchModel(t *testing.T) {
	tracker := cube.NewTracker()
	session := recorder.NewSession(recorder.WithTracker(tracker), recorder.WithLogger(log))
	require.NoError(t, session.Start("GAN", testAddr, gancube.KeyGAN, ""))

	results := make(chan gancube.Result)
	done := make(chan error, 1)
	m := newWatchModel("GANi3", "info", results, done, session, tracker)

	_, cmd := m.Update(resultMsg(gancube.Result{Event: &gancube.Move{Serial: 1, Face: gancube.FaceR}}))
	assert.NotNil(t, cmd, "model should keep listening")
	m.Update(resultMsg(gancube.Result{Err: gancube.ErrInvalidLength}))

	view := m.View()
	assert.Contains(t, view, "GANi3")
	assert.Contains(t, view, "R")
	assert.Contains(t, view, "moves 1  failures 1  missed 0")
	assert.Contains(t, view, "invalid event length")
	assert.Equal(t, 1, tracker.MoveCount())

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.True(t, tracker.IsSolved())
	assert.Empty(t, m.recent)

	m.Update(streamDoneMsg{})
	assert.Contains(t, m.View(), "disconnected")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.NotNil(t, cmd)
	assert.Equal(t, "Goodbye!\n", m.View())
}

func TestPump(t *testing.T) {
	src := gancube.NewSliceSource(gancube.Result{Err: gancube.ErrInvalidLength}, gancube.Result{Err: gancube.ErrUnknownEventType})
	results, done := pump(testContext(t), src)

	var got []gancube.Result
	for r := range results {
		got = append(got, r)
	}
	assert.Len(t, got, 2)
	assert.NoError(t, <-done)
}

func TestConfigDevice(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")

	_, err := runCLIWithConfig(t, file, "", "config", "device", "GAN12ui_ABCD", "--address", "ab:cd:ef:01:23:45", "--key", "moyu")
	require.NoError(t, err)

	out, err := runCLIWithConfig(t, file, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "GAN12ui_ABCD")
	assert.Contains(t, out, "AB:CD:EF:01:23:45")
	assert.Contains(t, out, "moyu")

	// Decoding with --device picks up the stored address and key.
	packet := encryptPacket(t, gancube.KeyMoYu, testAddr, examplePacket())
	out, err = runCLIWithConfig(t, file, "", "decode", "--device", "GAN12ui_ABCD", hex.EncodeToString(packet))
	require.NoError(t, err)
	assert.Contains(t, out, "#5")
}

func TestConfigDeviceRequiresChange(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	_, err := runCLIWithConfig(t, file, "", "config", "device", "GAN12ui_ABCD")
	assert.Error(t, err)
}

func TestConfigDeviceBadKey(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	_, err := runCLIWithConfig(t, file, "", "config", "device", "GAN12ui_ABCD", "--key", "rubik")
	assert.ErrorIs(t, err, gancube.ErrUnknownCryptKey)
}
