//go:build linux && cgo

package main

import (
	"github.com/PaulKGrimes/go-mccdaq/daq"
	"github.com/PaulKGrimes/go-mccdaq/uldaq"
)

// openDriver opens the board through the vendor library for this platform
func openDriver(boardNum int) (daq.Driver, error) {
	return uldaq.Open(boardNum)
}
