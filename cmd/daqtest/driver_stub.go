//go:build !cgo || (!linux && !windows)

package main

import (
	"errors"

	"github.com/PaulKGrimes/go-mccdaq/daq"
)

// openDriver has no vendor library to bind on this platform
func openDriver(boardNum int) (daq.Driver, error) {
	return nil, errors.New("no vendor DAQ library on this platform, use -mock")
}
