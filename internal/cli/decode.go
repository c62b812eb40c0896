package cli

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

var (
	decodeFlags  connectFlags
	decodeDevice string
	decodePlain  bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode captured notifications offline",
	Long: `Decrypt and decode notifications captured from a cube, for example
with a BLE sniffer. Each argument is one notification in hex; separators
such as spaces, colons and dashes are ignored. Without arguments,
notifications are read from stdin, one per line.

The decryption key is derived from the device address, given with
--address or taken from the config entry named by --device. Use --plain
for notifications that are already decrypted.`,
	Example: `  gancube decode --address AB:CD:EF:01:23:45 3f9c...e1
  gancube decode --device GANi3_1234 < capture.txt
  gancube decode --plain 2050000000000BB8`,
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVar(&decodeFlags.address, "address", "", "Device hardware address")
	decodeCmd.Flags().StringVar(&decodeFlags.key, "key", "", "Key family: gan or moyu (default from config)")
	decodeCmd.Flags().StringVar(&decodeDevice, "device", "", "Take address and key from this config device entry")
	decodeCmd.Flags().BoolVar(&decodePlain, "plain", false, "Input is already decrypted")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	packets, err := readPackets(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	src := gancube.NewSliceSource(packets...)
	var results gancube.Source[gancube.Result]

	if decodePlain {
		results = gancube.NewDecodeSource(src)
	} else {
		addr, key, err := decodeKeyMaterial()
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"address": addr.String(), "key": key.String()}).Debug("decrypting")
		results = gancube.NewPipeline(src, key, addr)
	}

	out := cmd.OutOrStdout()
	var seq int64
	return gancube.ForEach(cmd.Context(), results, func(r gancube.Result) error {
		fmt.Fprintln(out, formatResult(seq, r))
		seq++
		return nil
	})
}

// decodeKeyMaterial resolves the address and key family for decryption.
func decodeKeyMaterial() (gancube.HardwareAddr, gancube.CryptKey, error) {
	var addr gancube.HardwareAddr
	if decodeFlags.address != "" {
		a, err := gancube.ParseHardwareAddr(decodeFlags.address)
		if err != nil {
			return addr, 0, err
		}
		addr = a
	} else if decodeDevice != "" {
		addr = cfg.AddressFor(decodeDevice)
	}
	if addr.IsZero() {
		return addr, 0, fmt.Errorf("%w: --address or --device with a configured address is required", gancube.ErrInvalidAddress)
	}

	key, err := resolveKey(decodeFlags.key, decodeDevice)
	return addr, key, err
}

// readPackets parses hex notifications from args, or from r when there are
// none. Blank lines and lines starting with # are skipped.
func readPackets(r io.Reader, args []string) ([][]byte, error) {
	lines := args
	if len(lines) == 0 {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}

	var packets [][]byte
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		packet, err := parseHex(line)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", i+1, err)
		}
		packets = append(packets, packet)
	}
	return packets, nil
}

func parseHex(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ':', '-':
			return -1
		}
		return r
	}, s)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	return hex.DecodeString(clean)
}
