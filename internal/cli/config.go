package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
	"github.com/SeamusWaldron/gancube_ble_library/internal/config"
)

var (
	deviceAddress string
	deviceKey     string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("could not marshal config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", configFile, data)
		return nil
	},
}

var configDeviceCmd = &cobra.Command{
	Use:   "device <name>",
	Short: "Store the address or key family of a cube",
	Long: `Store per-device settings under the cube's advertised name.

On platforms that hide the hardware address during scanning (macOS), the
address must be stored here or passed with --address, since the
decryption key is derived from it.`,
	Example: `  gancube config device GAN12ui_ABCD --address AB:CD:EF:01:23:45
  gancube config device MG3_1234 --key moyu`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigDevice,
}

func init() {
	configDeviceCmd.Flags().StringVar(&deviceAddress, "address", "", "Device hardware address")
	configDeviceCmd.Flags().StringVar(&deviceKey, "key", "", "Key family: gan or moyu")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configDeviceCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigDevice(cmd *cobra.Command, args []string) error {
	if deviceAddress == "" && deviceKey == "" {
		return errors.New("nothing to set: pass --address and/or --key")
	}

	name := args[0]
	dev, _ := cfg.Device(name)

	if deviceAddress != "" {
		addr, err := gancube.ParseHardwareAddr(deviceAddress)
		if err != nil {
			return err
		}
		dev.Address = addr
	}
	if deviceKey != "" {
		key, err := gancube.ParseCryptKey(deviceKey)
		if err != nil {
			return err
		}
		dev.Key = key.String()
	}

	if cfg.Devices == nil {
		cfg.Devices = make(map[string]config.Device)
	}
	cfg.Devices[name] = dev

	if err := cfg.Save(configFile); err != nil {
		return err
	}
	log.WithField("device", name).Info("device saved")
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", name, configFile)
	return nil
}
