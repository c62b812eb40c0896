// Package gancube decodes the BLE notification protocol of GAN smart cubes
// (Gen2, Gen3, Gen4) and the MoYu AI 2023.
//
// # Features
//
//   - Address-salted AES decryption of state notifications
//   - Bit-exact decoding of move events
//   - Pull-based sources that compose into a decrypt/decode pipeline
//   - GATT service and characteristic identifiers for each generation
//
// The package does no Bluetooth I/O itself. Feed it the raw notification
// payloads from any BLE stack together with the cube's hardware address.
//
// # Quick Start
//
// Decode notifications arriving on a channel:
//
//	notifications := make(chan []byte, 16)
//	// ... subscribe to the state characteristic and send payloads ...
//
//	addr := gancube.MustParseHardwareAddr("AB:12:34:56:78:9A")
//	src := gancube.NewPipeline(gancube.NewChanSource(notifications), gancube.KeyGAN, addr)
//
//	err := gancube.ForEach(ctx, src, func(r gancube.Result) error {
//	    if r.Err != nil {
//	        log.Println("decode:", r.Err)
//	        return nil
//	    }
//	    if m := r.Move(); m != nil {
//	        fmt.Println("Move:", m.Notation())
//	    }
//	    return nil
//	})
//
// # Sources
//
// A Source is polled with Next, which never blocks and returns Ready,
// Pending or Done. On Pending the consumer calls Wait, which blocks in the
// innermost producer. DecryptSource and DecodeSource wrap an upstream
// Source and do their work only when polled.
//
// # Decode Failures
//
// A notification that cannot be decoded yields a Result with Err set to
// ErrInvalidLength or ErrUnknownEventType. The stream continues with the
// next notification.
package gancube
