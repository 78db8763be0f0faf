package daq

import (
	"fmt"
	"sync"
	"time"
)

// SessionState is the lifecycle state of a Session
type SessionState int

const (
	// Uninitialized is the zero state, before configuration is applied
	Uninitialized SessionState = iota

	// Configured means the board is open and the config has been applied
	Configured

	// Scanning means a background acquisition is in progress
	Scanning

	// Idle means a scan has completed or been stopped and another may start
	Idle

	// Closed means the vendor handle has been released
	Closed
)

// String satisfies fmt.Stringer
func (s SessionState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Configured:
		return "configured"
	case Scanning:
		return "scanning"
	case Idle:
		return "idle"
	case Closed:
		return "closed"
	default:
		return ""
	}
}

// Session is an acquisition session: a validated configuration bound to an
// exclusively owned board handle.  Sessions are not safe for concurrent use;
// the one concession is that Scan.Stop may be called from the thread that is
// polling Collect.
type Session struct {
	drv Driver

	cfg Config

	settings Settings

	mu sync.Mutex

	state SessionState

	scan *Scan
}

// NewSession validates cfg, applies it to the driver, and returns a session
// in the Configured state.  A validation failure prevents the session from
// ever reaching Configured; the driver is left untouched.
func NewSession(drv Driver, cfg Config) (*Session, error) {
	settings, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	s := &Session{drv: drv, cfg: cfg, settings: settings}
	if err := drv.DConfigPort(settings.DOut, true); err != nil {
		return nil, err
	}
	if err := drv.DConfigPort(settings.DIn, false); err != nil {
		return nil, err
	}
	s.state = Configured
	return s, nil
}

// Config returns the configuration the session was built from
func (s *Session) Config() Config {
	return s.cfg
}

// Settings returns the resolved settings
func (s *Session) Settings() Settings {
	return s.settings
}

// State returns the lifecycle state of the session
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// usable returns nil if single-shot I/O is allowed in the current state
func (s *Session) usable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Closed:
		return ErrClosed
	case Uninitialized:
		return fmt.Errorf("session is not configured")
	default:
		return nil
	}
}

// ReadAnalog performs a single-shot conversion on a channel, in the
// configured mode and range
func (s *Session) ReadAnalog(channel int) (float64, error) {
	if err := s.usable(); err != nil {
		return 0, err
	}
	if channel < 0 {
		return 0, fmt.Errorf("channel index must be 0 or positive")
	}
	return s.drv.AIn(channel, s.settings.AIMode, s.settings.AIRange)
}

// WriteAnalog writes a single value to an output channel.  Values outside
// the bounds of the configured DAC range are rejected before any hardware
// call; nothing is ever clamped.
func (s *Session) WriteAnalog(channel int, voltage float64) error {
	if err := s.usable(); err != nil {
		return err
	}
	if channel < 0 {
		return fmt.Errorf("channel index must be 0 or positive")
	}
	lo, hi := s.settings.AORange.Bounds()
	if voltage < lo {
		return ErrVoltageTooLow
	}
	if voltage > hi {
		return ErrVoltageTooHigh
	}
	return s.drv.AOut(channel, s.settings.AORange, voltage)
}

// ReadDigital reads all bits of a digital port, configuring it for input
// first as the original does
func (s *Session) ReadDigital(port PortType) (uint64, error) {
	if err := s.usable(); err != nil {
		return 0, err
	}
	if err := s.drv.DConfigPort(port, false); err != nil {
		return 0, err
	}
	return s.drv.DIn(port)
}

// WriteDigital writes all bits of a digital port, configuring it for output
// first
func (s *Session) WriteDigital(port PortType, bits uint64) error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.drv.DConfigPort(port, true); err != nil {
		return err
	}
	return s.drv.DOut(port, bits)
}

// WriteDigitalBit writes a single bit of a digital port
func (s *Session) WriteDigitalBit(port PortType, bit int, value bool) error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.drv.DConfigPort(port, true); err != nil {
		return err
	}
	return s.drv.DBitOut(port, bit, value)
}

// Scan is a handle to a background acquisition.  It owns the sample buffer
// for the lifetime of the scan.
type Scan struct {
	s *Session

	low, high int

	channels int

	samples int

	// Rate is the achieved sample rate, which the hardware may round from
	// the requested one
	Rate float64

	buf []float64

	// collected is the highest per-channel scan count observed from the
	// driver, guarded by the session mutex
	collected int64
}

// record notes the scan count observed from the driver
func (sc *Scan) record(n int64) {
	sc.s.mu.Lock()
	if n > sc.collected {
		sc.collected = n
	}
	sc.s.mu.Unlock()
}

// transferred returns the highest scan count observed from the driver
func (sc *Scan) transferred() int64 {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	return sc.collected
}

// StartScan begins a buffered acquisition on channels low..high inclusive at
// the requested per-channel rate.  Starting while a scan is in progress
// fails with ErrAlreadyScanning rather than silently restarting.
func (s *Session) StartScan(low, high int, rate float64, samplesPerChannel int) (*Scan, error) {
	if low < 0 || high < low {
		return nil, fmt.Errorf("channel span %d..%d is not valid", low, high)
	}
	if samplesPerChannel <= 0 {
		return nil, fmt.Errorf("samples per channel must be positive")
	}
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}
	// the lock is held across the check, the driver call, and the commit so
	// that a second caller waits and then sees Scanning, never a driver error
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Scanning:
		return nil, ErrAlreadyScanning
	case Closed:
		return nil, ErrClosed
	case Uninitialized:
		return nil, fmt.Errorf("session is not configured")
	}

	channels := high - low + 1
	sc := &Scan{
		s:        s,
		low:      low,
		high:     high,
		channels: channels,
		samples:  samplesPerChannel,
		buf:      make([]float64, channels*samplesPerChannel),
	}
	actual, err := s.drv.AInScan(low, high, s.settings.AIMode, s.settings.AIRange, samplesPerChannel, rate, sc.buf)
	if err != nil {
		return nil, err
	}
	sc.Rate = actual
	s.state = Scanning
	s.scan = sc
	return sc, nil
}

// Status reports the progress of the acquisition
func (sc *Scan) Status() (ScanStatus, error) {
	if sc.s.State() != Scanning {
		return ScanStatus{}, ErrNotScanning
	}
	return sc.s.drv.AInScanStatus()
}

// Stop halts the acquisition.  It is the cooperative cancellation point for
// Collect and is safe to call when the scan has already finished.
func (sc *Scan) Stop() error {
	sc.s.mu.Lock()
	if sc.s.state != Scanning || sc.s.scan != sc {
		sc.s.mu.Unlock()
		return nil
	}
	sc.s.state = Idle
	sc.s.scan = nil
	sc.s.mu.Unlock()
	// capture how far the transfer got before tearing it down, so a later
	// Collect can still hand back the partial data
	if st, err := sc.s.drv.AInScanStatus(); err == nil {
		sc.record(st.ScanCount)
	}
	return sc.s.drv.AInScanStop()
}

// Collect polls the scan status at the configured interval until every
// requested sample has been transferred, stops the acquisition, and returns
// the samples shaped [samplesPerChannel][channels].  If the scan is stopped
// early the samples transferred so far are returned.
func (sc *Scan) Collect() ([][]float64, error) {
	interval := sc.s.settings.PollInterval
	for sc.s.State() == Scanning {
		st, err := sc.s.drv.AInScanStatus()
		if err != nil {
			sc.Stop()
			return nil, err
		}
		sc.record(st.ScanCount)
		if st.ScanCount >= int64(sc.samples) || !st.Running {
			break
		}
		time.Sleep(interval)
	}
	if err := sc.Stop(); err != nil {
		return nil, err
	}
	count := sc.transferred()
	if count > int64(sc.samples) {
		count = int64(sc.samples)
	}
	out := make([][]float64, count)
	for i := range out {
		row := make([]float64, sc.channels)
		copy(row, sc.buf[i*sc.channels:(i+1)*sc.channels])
		out[i] = row
	}
	return out, nil
}

// ReadAnalogScan runs a scan to completion: StartScan followed by Collect
func (s *Session) ReadAnalogScan(low, high int, rate float64, samplesPerChannel int) ([][]float64, error) {
	sc, err := s.StartScan(low, high, rate, samplesPerChannel)
	if err != nil {
		return nil, err
	}
	return sc.Collect()
}

// StopScan halts the in-progress scan, if any
func (s *Session) StopScan() error {
	s.mu.Lock()
	sc := s.scan
	s.mu.Unlock()
	if sc == nil {
		return nil
	}
	return sc.Stop()
}

// Close stops any in-progress scan and releases the vendor handle.  It is
// idempotent; closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	wasScanning := s.state == Scanning
	s.state = Closed
	s.scan = nil
	s.mu.Unlock()
	if wasScanning {
		// best effort; the handle is going away regardless
		s.drv.AInScanStop()
	}
	return s.drv.Close()
}
