// gancube connects to GAN smart cubes over Bluetooth and decodes their moves.
package main

import (
	"github.com/SeamusWaldron/gancube_ble_library/internal/cli"
)

func main() {
	cli.Execute()
}
