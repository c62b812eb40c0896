// BLE Raw Data Debug - dumps the GATT table and raw notifications of a GAN cube.
//
// Each notification is printed as hex, followed by the decrypted bytes when
// the hardware address is known. The [RAW] lines can be fed to
// "gancube decode" unchanged.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

func main() {
	addrFlag := flag.String("address", "", "Device hardware address (needed where the OS hides it)")
	keyFlag := flag.String("key", "gan", "Key family: gan or moyu")
	timeout := flag.Duration("timeout", 10*time.Second, "Scan timeout")
	flag.Parse()

	fmt.Println("BLE Raw Data Debug")
	fmt.Println("==================")
	fmt.Println()

	key, err := gancube.ParseCryptKey(*keyFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		fmt.Printf("Failed to enable adapter: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Scanning for cube...")

	var target bluetooth.ScanResult
	found := make(chan struct{})
	var foundOnce sync.Once

	go func() {
		adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if gancube.IsCubeName(result.LocalName()) {
				foundOnce.Do(func() {
					target = result
					close(found)
				})
			}
		})
	}()

	select {
	case <-found:
		adapter.StopScan()
	case <-time.After(*timeout):
		adapter.StopScan()
		fmt.Println("No cube found")
		os.Exit(1)
	}

	// Give time for StopScan to take effect
	time.Sleep(100 * time.Millisecond)

	fmt.Printf("Found: %s (%s, RSSI %d)\n", target.LocalName(), target.Address.String(), target.RSSI)

	var addr gancube.HardwareAddr
	if *addrFlag != "" {
		addr, err = gancube.ParseHardwareAddr(*addrFlag)
	} else {
		addr, err = gancube.ParseHardwareAddr(target.Address.String())
	}
	var decryptor *gancube.Decryptor
	if err == nil {
		decryptor = gancube.NewDecryptor(key, addr)
		fmt.Printf("Decrypting with key %s and address %s\n", key, addr)
	} else {
		fmt.Println("Hardware address unknown, showing encrypted data only (use -address)")
	}
	fmt.Println()

	fmt.Println("Connecting...")
	device, err := adapter.Connect(target.Address, bluetooth.ConnectionParams{})
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Connected!")
	fmt.Println()

	// Discover ALL services
	fmt.Println("Discovering services...")
	services, err := device.DiscoverServices(nil)
	if err != nil {
		fmt.Printf("Failed to discover services: %v\n", err)
		device.Disconnect()
		os.Exit(1)
	}

	var stateChar *bluetooth.DeviceCharacteristic
	for i, svc := range services {
		fmt.Printf("  [%d] service %s%s\n", i, svc.UUID().String(), serviceLabel(svc.UUID()))

		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			fmt.Printf("       failed to discover characteristics: %v\n", err)
			continue
		}
		for j := range chars {
			ch := chars[j]
			label := ""
			if gen, ok := generationOf(ch.UUID()); ok {
				label = fmt.Sprintf("  <- %s state", gen.Name)
				if stateChar == nil {
					stateChar = &ch
				}
			}
			fmt.Printf("       char %s%s\n", ch.UUID().String(), label)
		}
	}
	fmt.Println()

	if stateChar == nil {
		fmt.Println("No supported state characteristic found!")
		device.Disconnect()
		os.Exit(1)
	}

	fmt.Println("Enabling notifications...")
	err = stateChar.EnableNotifications(func(data []byte) {
		fmt.Printf("[RAW] %s\n", hex.EncodeToString(data))
		if decryptor == nil {
			return
		}

		buf := append([]byte(nil), data...)
		plain, err := decryptor.Decrypt(buf)
		if err != nil {
			fmt.Printf("      %v\n", err)
			return
		}
		fmt.Printf("      plain %s\n", hex.EncodeToString(plain))
		if len(plain) > 0 {
			fmt.Printf("      type  %d\n", plain[0]>>4)
		}
	})
	if err != nil {
		fmt.Printf("Failed to enable notifications: %v\n", err)
		device.Disconnect()
		os.Exit(1)
	}
	fmt.Println("Notifications enabled!")
	fmt.Println()

	fmt.Println("Turn the cube to see data...")
	fmt.Println("Press Ctrl+C to exit")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nDisconnecting...")
	device.Disconnect()
}

func toUUID(u bluetooth.UUID) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(u.String())
	return parsed, err == nil
}

func generationOf(u bluetooth.UUID) (gancube.Generation, bool) {
	parsed, ok := toUUID(u)
	if !ok {
		return gancube.Generation{}, false
	}
	return gancube.GenerationForCharacteristic(parsed)
}

func serviceLabel(u bluetooth.UUID) string {
	parsed, ok := toUUID(u)
	if !ok {
		return ""
	}
	if gen, ok := gancube.GenerationForService(parsed); ok {
		return fmt.Sprintf("  <- %s", gen.Name)
	}
	return ""
}
