package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SeamusWaldron/gancube_ble_library/internal/ble"
)

var scanTimeout time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nearby cubes",
	Long: `Scan for cubes advertising one of the configured name prefixes and
print their name, address and signal strength.

On platforms that hide the hardware address, the address column shows the
platform identifier instead. Set devices.<name>.address in the config file
so the decryption key can be derived.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVarP(&scanTimeout, "timeout", "t", 0, "Scan duration (default from config)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	timeout := scanTimeout
	if timeout <= 0 {
		timeout = cfg.ScanTimeout
	}

	client, err := ble.NewClient(ble.WithLogger(log), ble.WithNamePrefixes(cfg.NamePrefixes...))
	if err != nil {
		return fmt.Errorf("BLE not available: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning for %s...\n", timeout)

	results, err := client.Scan(cmd.Context(), timeout)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No cubes found")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Tips:")
		fmt.Fprintln(out, "  - Turn a face to wake the cube")
		fmt.Fprintln(out, "  - Make sure it is not connected to another app")
		return nil
	}

	fmt.Fprintf(out, "Found %d cube(s):\n", len(results))
	for _, r := range results {
		addr := r.Address.String()
		if !r.MAC.IsZero() {
			addr = r.MAC.String()
		} else if configured := cfg.AddressFor(r.Name); !configured.IsZero() {
			addr = fmt.Sprintf("%s (configured %s)", addr, configured)
		}
		fmt.Fprintf(out, "  - %s  %s  RSSI %d  key %s\n", r.Name, addr, r.RSSI, cfg.KeyFor(r.Name))
	}
	return nil
}
