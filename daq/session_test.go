package daq

import (
	"errors"
	"testing"
	"time"
)

func newTestSession(t *testing.T) (*Session, *Mock) {
	t.Helper()
	m := NewMock()
	cfg := DefaultConfig()
	cfg.SleepTime = 0.0005
	s, err := NewSession(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s, m
}

func TestNewSessionConfiguresPorts(t *testing.T) {
	s, m := newTestSession(t)
	defer s.Close()
	if s.State() != Configured {
		t.Errorf("state %v, expected configured", s.State())
	}
	if out, ok := m.Directions[FirstPortA]; !ok || !out {
		t.Error("DOutPort was not configured for output")
	}
	if out, ok := m.Directions[FirstPortB]; !ok || out {
		t.Error("DInPort was not configured for input")
	}
}

func TestNewSessionRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ADCPolarity = "tripolar"
	_, err := NewSession(NewMock(), cfg)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}

func TestWriteAnalogRangeEnforcement(t *testing.T) {
	s, m := newTestSession(t)
	defer s.Close()
	// DAC range is unipolar 0..5
	cases := []struct {
		name    string
		voltage float64
		err     error
	}{
		{"below", -0.1, ErrVoltageTooLow},
		{"above", 5.1, ErrVoltageTooHigh},
		{"lower bound", 0, nil},
		{"upper bound", 5, nil},
		{"interior", 2.5, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.WriteAnalog(0, tc.voltage)
			if !errors.Is(err, tc.err) {
				t.Errorf("got %v, expected %v", err, tc.err)
			}
		})
	}
	// the out of range values must never have reached the hardware
	if v := m.Outputs[0]; v != 2.5 {
		t.Errorf("last value at the driver is %g, expected 2.5", v)
	}
}

func TestWriteAnalogOutOfRangePerformsNoWrite(t *testing.T) {
	s, m := newTestSession(t)
	defer s.Close()
	if err := s.WriteAnalog(1, 100); !errors.Is(err, ErrVoltageTooHigh) {
		t.Fatalf("got %v, expected ErrVoltageTooHigh", err)
	}
	if _, ok := m.Outputs[1]; ok {
		t.Error("out of range write reached the driver")
	}
}

func TestReadAnalogUsesConfiguredRange(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()
	m := s.drv.(*Mock)
	var got Range
	m.AInFunc = func(channel int, mode InputMode, rng Range) (float64, error) {
		got = rng
		return 1.25, nil
	}
	v, err := s.ReadAnalog(3)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1.25 {
		t.Errorf("read %g, expected 1.25", v)
	}
	if got != (Range{Bipolar, 5}) {
		t.Errorf("driver saw range %v, expected bipolar 5", got)
	}
}

func TestScanLifecycle(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()
	sc, err := s.StartScan(0, 1, 50000, 100)
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != Scanning {
		t.Errorf("state %v, expected scanning", s.State())
	}
	data, err := sc.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != Idle {
		t.Errorf("state %v after collect, expected idle", s.State())
	}
	if len(data) != 100 {
		t.Fatalf("collected %d scans, expected 100", len(data))
	}
	for i, row := range data {
		if len(row) != 2 {
			t.Fatalf("scan %d has %d channels, expected 2", i, len(row))
		}
	}
	// idle sessions can scan again
	if _, err := s.StartScan(0, 0, 50000, 10); err != nil {
		t.Fatal(err)
	}
}

func TestStartScanWhileScanning(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()
	if _, err := s.StartScan(0, 0, 100, 1000); err != nil {
		t.Fatal(err)
	}
	_, err := s.StartScan(0, 0, 100, 1000)
	if !errors.Is(err, ErrAlreadyScanning) {
		t.Errorf("got %v, expected ErrAlreadyScanning", err)
	}
}

func TestScanStopIsCooperative(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()
	// slow scan that would take 10 seconds to finish
	sc, err := s.StartScan(0, 0, 100, 1000)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := sc.Stop(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Idle {
		t.Errorf("state %v after stop, expected idle", s.State())
	}
	// stopping again is a no-op
	if err := sc.Stop(); err != nil {
		t.Fatal(err)
	}
	// partial data is still retrievable
	data, err := sc.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("collected no scans from a stopped scan, expected the partial set")
	}
	if len(data) >= 1000 {
		t.Errorf("collected %d scans from a stopped scan, expected a partial set", len(data))
	}
}

func TestCollectAfterStopReturnsTransferredSamples(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()
	sc, err := s.StartScan(0, 0, 1000, 10000)
	if err != nil {
		t.Fatal(err)
	}
	// wait for a handful of scans to land before stopping
	var n int64
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := sc.Status()
		if err != nil {
			t.Fatal(err)
		}
		n = st.ScanCount
		if n >= 5 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if n < 5 {
		t.Fatalf("only %d scans transferred before the deadline", n)
	}
	if err := sc.Stop(); err != nil {
		t.Fatal(err)
	}
	data, err := sc.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) < n {
		t.Errorf("collected %d scans, at least %d had been transferred before the stop", len(data), n)
	}
}

func TestStartScanConcurrentOneWinner(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()
	m := s.drv.(*Mock)
	m.AInScanFunc = func(low, high int, mode InputMode, rng Range, samples int, rate float64, buf []float64) (float64, error) {
		// a slow start widens the window between the state check and the
		// commit, which a second caller must not slip through
		time.Sleep(20 * time.Millisecond)
		return rate, nil
	}
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := s.StartScan(0, 0, 100, 1000)
			errs <- err
		}()
	}
	var ok, busy int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyScanning):
			busy++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || busy != 1 {
		t.Errorf("%d starts succeeded and %d saw ErrAlreadyScanning, expected 1 and 1", ok, busy)
	}
}

func TestScanBadArguments(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()
	if _, err := s.StartScan(-1, 0, 100, 10); err == nil {
		t.Error("negative low channel accepted")
	}
	if _, err := s.StartScan(1, 0, 100, 10); err == nil {
		t.Error("inverted channel span accepted")
	}
	if _, err := s.StartScan(0, 0, 100, 0); err == nil {
		t.Error("zero samples accepted")
	}
	if _, err := s.StartScan(0, 0, 0, 10); err == nil {
		t.Error("zero rate accepted")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Closed {
		t.Errorf("state %v, expected closed", s.State())
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close errored: %v", err)
	}
}

func TestClosedSessionRefusesIO(t *testing.T) {
	s, _ := newTestSession(t)
	s.Close()
	if _, err := s.ReadAnalog(0); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadAnalog: got %v, expected ErrClosed", err)
	}
	if err := s.WriteAnalog(0, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteAnalog: got %v, expected ErrClosed", err)
	}
	if _, err := s.ReadDigital(FirstPortB); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadDigital: got %v, expected ErrClosed", err)
	}
	if _, err := s.StartScan(0, 0, 100, 10); !errors.Is(err, ErrClosed) {
		t.Errorf("StartScan: got %v, expected ErrClosed", err)
	}
}

func TestCloseWhileScanningStopsTheScan(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.StartScan(0, 0, 100, 1000); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Closed {
		t.Errorf("state %v, expected closed", s.State())
	}
}

func TestDigitalRoundTrip(t *testing.T) {
	s, m := newTestSession(t)
	defer s.Close()
	if err := s.WriteDigital(FirstPortA, 0xA5); err != nil {
		t.Fatal(err)
	}
	if m.Ports[FirstPortA] != 0xA5 {
		t.Errorf("port holds %#x, expected 0xa5", m.Ports[FirstPortA])
	}
	if err := s.WriteDigitalBit(FirstPortA, 2, false); err != nil {
		t.Fatal(err)
	}
	if m.Ports[FirstPortA] != 0xA1 {
		t.Errorf("port holds %#x after bit clear, expected 0xa1", m.Ports[FirstPortA])
	}
	m.Ports[FirstPortB] = 0x3C
	bits, err := s.ReadDigital(FirstPortB)
	if err != nil {
		t.Fatal(err)
	}
	if bits != 0x3C {
		t.Errorf("read %#x, expected 0x3c", bits)
	}
}

func TestReadAnalogScan(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()
	data, err := s.ReadAnalogScan(0, 3, 100000, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 50 || len(data[0]) != 4 {
		t.Fatalf("shape %dx%d, expected 50x4", len(data), len(data[0]))
	}
}
