//go:build windows && cgo

package main

import (
	"github.com/PaulKGrimes/go-mccdaq/daq"
	"github.com/PaulKGrimes/go-mccdaq/mcculw"
)

// openDriver opens the board through the vendor library for this platform
func openDriver(boardNum int) (daq.Driver, error) {
	return mcculw.Open(boardNum)
}
