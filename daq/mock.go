package daq

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// Mock is a Driver backed by no hardware.  Analog inputs replay a sine wave,
// digital reads return the last written bits, and scans are produced by a
// goroutine paced to the requested sample rate.  The function fields allow
// tests to inject failures for any call.
type Mock struct {
	mu sync.Mutex

	// Outputs records the last value written to each analog output channel
	Outputs map[int]float64

	// Ports records the last bits written to each digital port
	Ports map[PortType]uint64

	// Directions records the configured direction of each port, true for output
	Directions map[PortType]bool

	closed bool

	scanning bool

	scanCount int64

	scanCancel context.CancelFunc

	scanDone chan struct{}

	// AInFunc overrides AIn when non-nil
	AInFunc func(channel int, mode InputMode, rng Range) (float64, error)

	// AOutFunc overrides AOut when non-nil
	AOutFunc func(channel int, rng Range, value float64) error

	// AInScanFunc overrides AInScan when non-nil
	AInScanFunc func(low, high int, mode InputMode, rng Range, samplesPerChan int, rate float64, buf []float64) (float64, error)

	// DInFunc overrides DIn when non-nil
	DInFunc func(port PortType) (uint64, error)
}

// NewMock returns a Mock with empty state
func NewMock() *Mock {
	return &Mock{
		Outputs:    map[int]float64{},
		Ports:      map[PortType]uint64{},
		Directions: map[PortType]bool{},
	}
}

// AIn satisfies Driver
func (m *Mock) AIn(channel int, mode InputMode, rng Range) (float64, error) {
	if m.AInFunc != nil {
		return m.AInFunc(channel, mode, rng)
	}
	_, hi := rng.Bounds()
	return hi * math.Sin(float64(channel)) / 2, nil
}

// AOut satisfies Driver
func (m *Mock) AOut(channel int, rng Range, value float64) error {
	if m.AOutFunc != nil {
		return m.AOutFunc(channel, rng, value)
	}
	m.mu.Lock()
	m.Outputs[channel] = value
	m.mu.Unlock()
	return nil
}

// AInScan satisfies Driver.  A goroutine fills buf one scan at a time, paced
// by a rate limiter so status polling observes realistic progress.
func (m *Mock) AInScan(low, high int, mode InputMode, rng Range, samplesPerChan int, rateHz float64, buf []float64) (float64, error) {
	if m.AInScanFunc != nil {
		return m.AInScanFunc(low, high, mode, rng, samplesPerChan, rateHz, buf)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanning {
		return 0, ErrAlreadyScanning
	}
	channels := high - low + 1
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.scanning = true
	m.scanCount = 0
	m.scanCancel = cancel
	m.scanDone = done
	limiter := rate.NewLimiter(rate.Limit(rateHz), 1)
	_, hiV := rng.Bounds()
	go func() {
		defer close(done)
		for i := 0; i < samplesPerChan; i++ {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			for c := 0; c < channels; c++ {
				buf[i*channels+c] = hiV * math.Sin(2*math.Pi*float64(i)/float64(samplesPerChan)+float64(c))
			}
			m.mu.Lock()
			m.scanCount = int64(i + 1)
			m.mu.Unlock()
		}
	}()
	return rateHz, nil
}

// AInScanStatus satisfies Driver
func (m *Mock) AInScanStatus() (ScanStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	running := m.scanning
	if m.scanDone != nil {
		select {
		case <-m.scanDone:
			running = false
		default:
		}
	}
	return ScanStatus{Running: running, ScanCount: m.scanCount, Index: m.scanCount - 1}, nil
}

// AInScanStop satisfies Driver
func (m *Mock) AInScanStop() error {
	m.mu.Lock()
	cancel := m.scanCancel
	done := m.scanDone
	m.scanning = false
	m.scanCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}

// DConfigPort satisfies Driver
func (m *Mock) DConfigPort(port PortType, output bool) error {
	m.mu.Lock()
	m.Directions[port] = output
	m.mu.Unlock()
	return nil
}

// DIn satisfies Driver
func (m *Mock) DIn(port PortType) (uint64, error) {
	if m.DInFunc != nil {
		return m.DInFunc(port)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Ports[port], nil
}

// DOut satisfies Driver
func (m *Mock) DOut(port PortType, bits uint64) error {
	m.mu.Lock()
	m.Ports[port] = bits
	m.mu.Unlock()
	return nil
}

// DBitOut satisfies Driver
func (m *Mock) DBitOut(port PortType, bit int, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value {
		m.Ports[port] |= 1 << uint(bit)
	} else {
		m.Ports[port] &^= 1 << uint(bit)
	}
	return nil
}

// Close satisfies Driver
func (m *Mock) Close() error {
	m.AInScanStop()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
