//go:build linux && cgo

// Package uldaq binds the MCC uldaq library for Linux, satisfying daq.Driver.
// The library must be installed per the instructions at
// github.com/mccdaq/uldaq; linking happens against /usr/local/lib by default.
package uldaq

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -luldaq
#include <stdlib.h>
#include <uldaq.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/PaulKGrimes/go-mccdaq/daq"
)

const maxDevices = 16

// Board is an open connection to an MCC board through uldaq
type Board struct {
	handle C.DaqDeviceHandle

	// buf pins the scan buffer so the background transfer has a stable target
	buf []float64
}

// enrich converts a uldaq status code to a Go error, decorated with the
// procedure that generated it.  OK maps to nil.
func enrich(code C.UlError, procedure string) error {
	if code == C.ERR_NO_ERROR {
		return nil
	}
	var msg [C.ERR_MSG_LEN]C.char
	C.ulGetErrMsg(code, &msg[0])
	return fmt.Errorf("%s: %s [%d]", procedure, C.GoString(&msg[0]), int(code))
}

// Open connects to the USB board at the given inventory index
func Open(boardNum int) (*Board, error) {
	var (
		descs   [maxDevices]C.DaqDeviceDescriptor
		numdevs C.uint = maxDevices
	)
	errC := C.ulGetDaqDeviceInventory(C.USB_IFC, &descs[0], &numdevs)
	if err := enrich(errC, "ulGetDaqDeviceInventory"); err != nil {
		return nil, err
	}
	if numdevs == 0 {
		return nil, daq.ErrHardwareUnavailable
	}
	if boardNum < 0 || boardNum >= int(numdevs) {
		return nil, fmt.Errorf("board %d requested but only %d device(s) present", boardNum, int(numdevs))
	}
	handle := C.ulCreateDaqDevice(descs[boardNum])
	if handle == 0 {
		return nil, fmt.Errorf("ulCreateDaqDevice: could not create device handle")
	}
	errC = C.ulConnectDaqDevice(handle)
	if err := enrich(errC, "ulConnectDaqDevice"); err != nil {
		C.ulReleaseDaqDevice(handle)
		return nil, err
	}
	return &Board{handle: handle}, nil
}

// ulRange maps a daq.Range onto the uldaq Range enum
func ulRange(r daq.Range) (C.Range, error) {
	switch r.Polarity {
	case daq.Bipolar:
		switch r.FullScale {
		case 20:
			return C.BIP20VOLTS, nil
		case 10:
			return C.BIP10VOLTS, nil
		case 5:
			return C.BIP5VOLTS, nil
		case 4:
			return C.BIP4VOLTS, nil
		case 2.5:
			return C.BIP2PT5VOLTS, nil
		case 2:
			return C.BIP2VOLTS, nil
		case 1.25:
			return C.BIP1PT25VOLTS, nil
		case 1:
			return C.BIP1VOLTS, nil
		}
	case daq.Unipolar:
		switch r.FullScale {
		case 10:
			return C.UNI10VOLTS, nil
		case 5:
			return C.UNI5VOLTS, nil
		case 4:
			return C.UNI4VOLTS, nil
		case 2.5:
			return C.UNI2PT5VOLTS, nil
		case 2:
			return C.UNI2VOLTS, nil
		case 1.25:
			return C.UNI1PT25VOLTS, nil
		case 1:
			return C.UNI1VOLTS, nil
		}
	case daq.MilliAmp:
		if r.FullScale == 20 {
			return C.MA0TO20, nil
		}
	}
	return 0, fmt.Errorf("range %v is not supported by uldaq", r)
}

// ulMode maps a daq.InputMode onto the uldaq AiInputMode enum
func ulMode(m daq.InputMode) C.AiInputMode {
	if m == daq.SingleEnded {
		return C.AI_SINGLE_ENDED
	}
	return C.AI_DIFFERENTIAL
}

// ulPort maps a daq.PortType onto the uldaq DigitalPortType enum
func ulPort(p daq.PortType) C.DigitalPortType {
	switch p {
	case daq.AuxPort:
		return C.AUXPORT
	case daq.FirstPortA:
		return C.FIRSTPORTA
	case daq.FirstPortB:
		return C.FIRSTPORTB
	case daq.FirstPortCL:
		return C.FIRSTPORTCL
	case daq.FirstPortCH:
		return C.FIRSTPORTCH
	default:
		return C.FIRSTPORTA
	}
}

// AIn satisfies daq.Driver
func (b *Board) AIn(channel int, mode daq.InputMode, rng daq.Range) (float64, error) {
	cRng, err := ulRange(rng)
	if err != nil {
		return 0, err
	}
	var data C.double
	errC := C.ulAIn(b.handle, C.int(channel), ulMode(mode), cRng, C.AIN_FF_DEFAULT, &data)
	if err := enrich(errC, "ulAIn"); err != nil {
		return 0, err
	}
	return float64(data), nil
}

// AOut satisfies daq.Driver
func (b *Board) AOut(channel int, rng daq.Range, value float64) error {
	cRng, err := ulRange(rng)
	if err != nil {
		return err
	}
	errC := C.ulAOut(b.handle, C.int(channel), cRng, C.AOUT_FF_DEFAULT, C.double(value))
	return enrich(errC, "ulAOut")
}

// AInScan satisfies daq.Driver.  The acquisition runs in the background; the
// caller polls AInScanStatus and stops with AInScanStop.
func (b *Board) AInScan(low, high int, mode daq.InputMode, rng daq.Range, samplesPerChan int, rate float64, buf []float64) (float64, error) {
	cRng, err := ulRange(rng)
	if err != nil {
		return 0, err
	}
	channels := high - low + 1
	if len(buf) < channels*samplesPerChan {
		return 0, fmt.Errorf("buffer holds %d values, need %d", len(buf), channels*samplesPerChan)
	}
	b.buf = buf
	cRate := C.double(rate)
	errC := C.ulAInScan(b.handle, C.int(low), C.int(high), ulMode(mode), cRng,
		C.int(samplesPerChan), &cRate, C.SO_DEFAULTIO, C.AINSCAN_FF_DEFAULT,
		(*C.double)(unsafe.Pointer(&buf[0])))
	if err := enrich(errC, "ulAInScan"); err != nil {
		b.buf = nil
		return 0, err
	}
	return float64(cRate), nil
}

// AInScanStatus satisfies daq.Driver
func (b *Board) AInScanStatus() (daq.ScanStatus, error) {
	var (
		status C.ScanStatus
		xfer   C.TransferStatus
	)
	errC := C.ulAInScanStatus(b.handle, &status, &xfer)
	if err := enrich(errC, "ulAInScanStatus"); err != nil {
		return daq.ScanStatus{}, err
	}
	return daq.ScanStatus{
		Running:   status == C.SS_RUNNING,
		ScanCount: int64(xfer.currentScanCount),
		Index:     int64(xfer.currentIndex),
	}, nil
}

// AInScanStop satisfies daq.Driver
func (b *Board) AInScanStop() error {
	errC := C.ulAInScanStop(b.handle)
	b.buf = nil
	return enrich(errC, "ulAInScanStop")
}

// DConfigPort satisfies daq.Driver
func (b *Board) DConfigPort(port daq.PortType, output bool) error {
	dir := C.DigitalDirection(C.DD_INPUT)
	if output {
		dir = C.DD_OUTPUT
	}
	errC := C.ulDConfigPort(b.handle, ulPort(port), dir)
	return enrich(errC, "ulDConfigPort")
}

// DIn satisfies daq.Driver
func (b *Board) DIn(port daq.PortType) (uint64, error) {
	var data C.ulonglong
	errC := C.ulDIn(b.handle, ulPort(port), &data)
	if err := enrich(errC, "ulDIn"); err != nil {
		return 0, err
	}
	return uint64(data), nil
}

// DOut satisfies daq.Driver
func (b *Board) DOut(port daq.PortType, bits uint64) error {
	errC := C.ulDOut(b.handle, ulPort(port), C.ulonglong(bits))
	return enrich(errC, "ulDOut")
}

// DBitOut satisfies daq.Driver
func (b *Board) DBitOut(port daq.PortType, bit int, value bool) error {
	v := C.uint(0)
	if value {
		v = 1
	}
	errC := C.ulDBitOut(b.handle, ulPort(port), C.int(bit), v)
	return enrich(errC, "ulDBitOut")
}

// Close disconnects and releases the device
func (b *Board) Close() error {
	errC := C.ulDisconnectDaqDevice(b.handle)
	if err := enrich(errC, "ulDisconnectDaqDevice"); err != nil {
		return err
	}
	errC = C.ulReleaseDaqDevice(b.handle)
	return enrich(errC, "ulReleaseDaqDevice")
}
