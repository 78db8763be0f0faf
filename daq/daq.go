// Package daq provides a uniform interface to Measurement Computing data
// acquisition boards.  The hardware I/O is delegated to the vendor libraries
// (uldaq on Linux, the Universal Library on Windows) through the Driver
// interface; this package contributes the configuration contract, parameter
// validation, and the session state machine with its poll-based scan loop.
package daq

import (
	"errors"
	"fmt"
	"strings"
)

// InputMode is the wiring mode of the analog inputs
type InputMode int

const (
	// Differential measures the voltage between the + and - pins of a channel
	Differential InputMode = iota

	// SingleEnded measures the voltage between a channel pin and analog ground
	SingleEnded
)

// ParseInputMode converts a string to an InputMode
func ParseInputMode(s string) (InputMode, error) {
	switch strings.ToLower(s) {
	case "differential":
		return Differential, nil
	case "single_ended":
		return SingleEnded, nil
	default:
		return 0, fmt.Errorf("input mode %q is not valid, must be differential or single_ended", s)
	}
}

// String satisfies fmt.Stringer
func (m InputMode) String() string {
	switch m {
	case Differential:
		return "differential"
	case SingleEnded:
		return "single_ended"
	default:
		return ""
	}
}

// Polarity is the interpretation of converter counts
type Polarity int

const (
	// Bipolar ranges span -full scale to +full scale
	Bipolar Polarity = iota

	// Unipolar ranges span zero to +full scale
	Unipolar

	// MilliAmp ranges are current loops spanning zero to full scale milliamps
	MilliAmp
)

// ParsePolarity converts a string to a Polarity
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(s) {
	case "bipolar":
		return Bipolar, nil
	case "unipolar":
		return Unipolar, nil
	case "ma":
		return MilliAmp, nil
	default:
		return 0, fmt.Errorf("polarity %q is not valid, must be bipolar, unipolar, or ma", s)
	}
}

// String satisfies fmt.Stringer
func (p Polarity) String() string {
	switch p {
	case Bipolar:
		return "bipolar"
	case Unipolar:
		return "unipolar"
	case MilliAmp:
		return "ma"
	default:
		return ""
	}
}

// Range is a converter range, a polarity paired with the full scale value.
// For voltage polarities FullScale is in volts, for MilliAmp it is in mA.
type Range struct {
	Polarity Polarity

	FullScale float64
}

// Bounds returns the lowest and highest representable values of the range
func (r Range) Bounds() (float64, float64) {
	if r.Polarity == Bipolar {
		return -r.FullScale, r.FullScale
	}
	return 0, r.FullScale
}

// String satisfies fmt.Stringer
func (r Range) String() string {
	lo, hi := r.Bounds()
	unit := "V"
	if r.Polarity == MilliAmp {
		unit = "mA"
	}
	return fmt.Sprintf("%g,%g %s", lo, hi, unit)
}

// supportedRanges is the set of ranges common to the vendor SDK enums.  The
// bindings map each of these onto their native constant; anything else is a
// configuration error before hardware is touched.
var supportedRanges = []Range{
	{Bipolar, 20},
	{Bipolar, 10},
	{Bipolar, 5},
	{Bipolar, 4},
	{Bipolar, 2.5},
	{Bipolar, 2},
	{Bipolar, 1.25},
	{Bipolar, 1},
	{Unipolar, 10},
	{Unipolar, 5},
	{Unipolar, 4},
	{Unipolar, 2.5},
	{Unipolar, 2},
	{Unipolar, 1.25},
	{Unipolar, 1},
	{MilliAmp, 20},
}

// LookupRange finds the range with the given polarity and full scale value.
// It mirrors the lookup the original Universal Library performs: match the
// polarity prefix, then the range maximum.
func LookupRange(p Polarity, fullScale float64) (Range, error) {
	for _, r := range supportedRanges {
		if r.Polarity == p && r.FullScale == fullScale {
			return r, nil
		}
	}
	return Range{}, fmt.Errorf("no %v range with full scale %g", p, fullScale)
}

// PortType is the symbolic name of a digital port on the board
type PortType int

const (
	// AuxPort is the auxiliary digital port
	AuxPort PortType = iota

	// FirstPortA is the A port of the first digital port bank
	FirstPortA

	// FirstPortB is the B port of the first digital port bank
	FirstPortB

	// FirstPortCL is the low nibble of the first C port
	FirstPortCL

	// FirstPortCH is the high nibble of the first C port
	FirstPortCH
)

// ParsePortType converts a vendor symbolic port name to a PortType
func ParsePortType(s string) (PortType, error) {
	switch strings.ToUpper(s) {
	case "AUXPORT":
		return AuxPort, nil
	case "FIRSTPORTA":
		return FirstPortA, nil
	case "FIRSTPORTB":
		return FirstPortB, nil
	case "FIRSTPORTCL":
		return FirstPortCL, nil
	case "FIRSTPORTCH":
		return FirstPortCH, nil
	default:
		return 0, fmt.Errorf("digital port %q is not valid", s)
	}
}

// String satisfies fmt.Stringer
func (p PortType) String() string {
	switch p {
	case AuxPort:
		return "AUXPORT"
	case FirstPortA:
		return "FIRSTPORTA"
	case FirstPortB:
		return "FIRSTPORTB"
	case FirstPortCL:
		return "FIRSTPORTCL"
	case FirstPortCH:
		return "FIRSTPORTCH"
	default:
		return ""
	}
}

// ScanStatus is the progress of a background acquisition
type ScanStatus struct {
	// Running is true while the acquisition is in progress
	Running bool

	// ScanCount is the number of complete scans (one sample on each channel)
	// transferred so far
	ScanCount int64

	// Index is the buffer index of the most recent transfer
	Index int64
}

// Driver is the capability set consumed from the vendor SDK.  Implementations
// wrap uldaq (Linux), the Universal Library (Windows), or a mock.  A Driver
// is exclusively owned by one Session for its lifetime; no concurrent access
// is supported.
type Driver interface {
	// AIn performs a single-shot conversion on a channel and returns the value
	// in the units of the range
	AIn(channel int, mode InputMode, rng Range) (float64, error)

	// AOut writes a single value to an output channel
	AOut(channel int, rng Range, value float64) error

	// AInScan begins a buffered background acquisition on channels low..high
	// inclusive.  buf must hold samplesPerChan*(high-low+1) values; the driver
	// fills it interleaved, one scan at a time.  The achieved rate is returned.
	AInScan(low, high int, mode InputMode, rng Range, samplesPerChan int, rate float64, buf []float64) (float64, error)

	// AInScanStatus reports the progress of the background acquisition
	AInScanStatus() (ScanStatus, error)

	// AInScanStop halts the background acquisition.  Stopping an idle driver
	// is not an error.
	AInScanStop() error

	// DConfigPort sets the direction of a digital port
	DConfigPort(port PortType, output bool) error

	// DIn reads all bits of a digital port
	DIn(port PortType) (uint64, error)

	// DOut writes all bits of a digital port
	DOut(port PortType, bits uint64) error

	// DBitOut writes a single bit of a digital port
	DBitOut(port PortType, bit int, value bool) error

	// Close releases the device handle
	Close() error
}

// ErrHardwareUnavailable is generated when no boards are found on the bus or
// the requested board cannot be claimed
var ErrHardwareUnavailable = errors.New("no DAQ devices detected")
