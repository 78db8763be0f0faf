//go:build cgo

// Command lsdaq lists Measurement Computing devices on the USB bus.  It
// looks at the bus directly rather than through the vendor library, so it
// works even when the board is claimed by another process or the vendor
// library is misbehaving.
package main

import (
	"fmt"
	"log"

	"github.com/google/gousb"
)

// MCCVID is the Measurement Computing USB vendor ID
const MCCVID = 0x09db

func main() {
	ctx := gousb.NewContext()
	defer ctx.Close()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(MCCVID)
	})
	for _, d := range devs {
		defer d.Close()
	}
	if err != nil {
		// OpenDevices can return both devices and an error, e.g. when one
		// device is claimed; report and keep going with what we got
		log.Println("error opening some devices:", err)
	}
	if len(devs) == 0 {
		fmt.Println("no MCC devices found")
		return
	}
	for i, d := range devs {
		product, err := d.Product()
		if err != nil {
			product = "(unknown)"
		}
		serial, err := d.SerialNumber()
		if err != nil {
			serial = "(unknown)"
		}
		fmt.Printf("%d: %s  serial %s  bus %03d addr %03d\n", i, product, serial, d.Desc.Bus, d.Desc.Address)
	}
}
