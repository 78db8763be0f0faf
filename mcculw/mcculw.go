//go:build windows && cgo

// Package mcculw binds the MCC Universal Library for Windows, satisfying
// daq.Driver.  The UL must be installed; linking happens against cbw64.
//
// The UL is board-number oriented rather than handle oriented, and its scan
// buffer lives in memory the library allocates.  Both differences are hidden
// behind the Driver interface: the board number plays the role of the handle,
// and transferred samples are copied into the caller's buffer when the scan
// is stopped.
package mcculw

/*
#cgo LDFLAGS: -lcbw64
#include <stdlib.h>
#include <windows.h>
#include "cbw.h"
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/PaulKGrimes/go-mccdaq/daq"
)

const maxDevices = 16

func init() {
	// stop InstaCal configurations being used to manage DAQ devices
	C.cbIgnoreInstaCal()
}

// Board is a connection to an MCC board through the Universal Library
type Board struct {
	num C.int

	// scan bookkeeping; the UL owns the transfer buffer
	mem      C.HGLOBAL
	buf      []float64
	channels int
	total    int
}

// enrich converts a UL status code to a Go error, decorated with the
// procedure that generated it.  NOERRORS maps to nil.
func enrich(code C.int, procedure string) error {
	if code == C.NOERRORS {
		return nil
	}
	var msg [C.ERRSTRLEN]C.char
	C.cbGetErrMsg(code, &msg[0])
	return fmt.Errorf("%s: %s [%d]", procedure, C.GoString(&msg[0]), int(code))
}

// Open connects to the USB board at the given inventory index
func Open(boardNum int) (*Board, error) {
	var (
		descs   [maxDevices]C.DaqDeviceDescriptor
		numdevs C.INT = maxDevices
	)
	errC := C.cbGetDaqDeviceInventory(C.USB_IFC, &descs[0], &numdevs)
	if err := enrich(errC, "cbGetDaqDeviceInventory"); err != nil {
		return nil, err
	}
	if numdevs == 0 {
		return nil, daq.ErrHardwareUnavailable
	}
	if boardNum < 0 || boardNum >= int(numdevs) {
		return nil, fmt.Errorf("board %d requested but only %d device(s) present", boardNum, int(numdevs))
	}
	errC = C.cbCreateDaqDevice(C.int(boardNum), descs[boardNum])
	if err := enrich(errC, "cbCreateDaqDevice"); err != nil {
		return nil, err
	}
	return &Board{num: C.int(boardNum)}, nil
}

// cbRange maps a daq.Range onto the UL range constants
func cbRange(r daq.Range) (C.int, error) {
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
	return 0, fmt.Errorf("range %v is not supported by the Universal Library", r)
}

// cbPort maps a daq.PortType onto the UL port constants
func cbPort(p daq.PortType) C.int {
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

// AIn satisfies daq.Driver.  The UL applies the input mode through board
// configuration; the per-call mode argument selects nothing here.
func (b *Board) AIn(channel int, mode daq.InputMode, rng daq.Range) (float64, error) {
	cRng, err := cbRange(rng)
	if err != nil {
		return 0, err
	}
	var data C.float
	errC := C.cbVIn(b.num, C.int(channel), cRng, &data, 0)
	if err := enrich(errC, "cbVIn"); err != nil {
		return 0, err
	}
	return float64(data), nil
}

// AOut satisfies daq.Driver
func (b *Board) AOut(channel int, rng daq.Range, value float64) error {
	cRng, err := cbRange(rng)
	if err != nil {
		return err
	}
	errC := C.cbVOut(b.num, C.int(channel), cRng, C.float(value), 0)
	return enrich(errC, "cbVOut")
}

// AInScan satisfies daq.Driver.  The UL transfers into its own buffer in the
// background; samples are copied out to buf when the scan stops.
func (b *Board) AInScan(low, high int, mode daq.InputMode, rng daq.Range, samplesPerChan int, rate float64, buf []float64) (float64, error) {
	cRng, err := cbRange(rng)
	if err != nil {
		return 0, err
	}
	channels := high - low + 1
	total := channels * samplesPerChan
	if len(buf) < total {
		return 0, fmt.Errorf("buffer holds %d values, need %d", len(buf), total)
	}
	mem := C.cbScaledWinBufAlloc(C.long(total))
	if mem == nil {
		return 0, fmt.Errorf("cbScaledWinBufAlloc: allocation of %d samples failed", total)
	}
	cRate := C.long(rate)
	errC := C.cbAInScan(b.num, C.int(low), C.int(high), C.long(total), &cRate,
		cRng, mem, C.BACKGROUND|C.SCALEDATA)
	if err := enrich(errC, "cbAInScan"); err != nil {
		C.cbWinBufFree(mem)
		return 0, err
	}
	b.mem = mem
	b.buf = buf
	b.channels = channels
	b.total = total
	return float64(cRate), nil
}

// AInScanStatus satisfies daq.Driver.  The UL counts individual samples;
// this is normalized to complete scans.
func (b *Board) AInScanStatus() (daq.ScanStatus, error) {
	var (
		status   C.short
		curCount C.long
		curIndex C.long
	)
	errC := C.cbGetStatus(b.num, &status, &curCount, &curIndex, C.AIFUNCTION)
	if err := enrich(errC, "cbGetStatus"); err != nil {
		return daq.ScanStatus{}, err
	}
	channels := b.channels
	if channels == 0 {
		channels = 1
	}
	return daq.ScanStatus{
		Running:   status == C.RUNNING,
		ScanCount: int64(curCount) / int64(channels),
		Index:     int64(curIndex),
	}, nil
}

// AInScanStop satisfies daq.Driver.  The transferred samples are copied into
// the caller's buffer before the UL buffer is freed.
func (b *Board) AInScanStop() error {
	errC := C.cbStopBackground(b.num, C.AIFUNCTION)
	err := enrich(errC, "cbStopBackground")
	if b.mem != nil {
		if b.buf != nil && b.total > 0 {
			copyErrC := C.cbScaledWinBufToArray(b.mem, (*C.double)(unsafe.Pointer(&b.buf[0])), 0, C.long(b.total))
			if err == nil {
				err = enrich(copyErrC, "cbScaledWinBufToArray")
			}
		}
		C.cbWinBufFree(b.mem)
		b.mem = nil
	}
	b.buf = nil
	b.channels = 0
	b.total = 0
	return err
}

// DConfigPort satisfies daq.Driver
func (b *Board) DConfigPort(port daq.PortType, output bool) error {
	dir := C.int(C.DIGITALIN)
	if output {
		dir = C.DIGITALOUT
	}
	errC := C.cbDConfigPort(b.num, cbPort(port), dir)
	return enrich(errC, "cbDConfigPort")
}

// DIn satisfies daq.Driver
func (b *Board) DIn(port daq.PortType) (uint64, error) {
	var data C.USHORT
	errC := C.cbDIn(b.num, cbPort(port), &data)
	if err := enrich(errC, "cbDIn"); err != nil {
		return 0, err
	}
	return uint64(data), nil
}

// DOut satisfies daq.Driver
func (b *Board) DOut(port daq.PortType, bits uint64) error {
	errC := C.cbDOut(b.num, cbPort(port), C.USHORT(bits))
	return enrich(errC, "cbDOut")
}

// DBitOut satisfies daq.Driver
func (b *Board) DBitOut(port daq.PortType, bit int, value bool) error {
	v := C.USHORT(0)
	if value {
		v = 1
	}
	errC := C.cbDBitOut(b.num, cbPort(port), C.int(bit), v)
	return enrich(errC, "cbDBitOut")
}

// Close releases the board
func (b *Board) Close() error {
	errC := C.cbReleaseDaqDevice(b.num)
	return enrich(errC, "cbReleaseDaqDevice")
}
