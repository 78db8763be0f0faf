package daq

import (
	"encoding/json"
	"errors"
	"go/types"
	"net/http"

	"github.com/PaulKGrimes/go-mccdaq/generichttp"
)

// HTTPWrapper provides HTTP bindings on top of a Session
type HTTPWrapper struct {
	// Session is the underlying acquisition session
	*Session

	// RouteTable maps method+path pairs to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(s *Session) HTTPWrapper {
	w := HTTPWrapper{Session: s}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/config"}:              w.GetConfig,
		{Method: http.MethodGet, Path: "/state"}:               w.GetState,
		{Method: http.MethodGet, Path: "/analog-input"}:        w.AnalogInput,
		{Method: http.MethodPost, Path: "/analog-output"}:      w.AnalogOutput,
		{Method: http.MethodGet, Path: "/digital-input"}:       w.DigitalInput,
		{Method: http.MethodPost, Path: "/digital-output"}:     w.DigitalOutput,
		{Method: http.MethodPost, Path: "/digital-output-bit"}: w.DigitalOutputBit,
		{Method: http.MethodPost, Path: "/scan/start"}:         w.ScanStart,
		{Method: http.MethodGet, Path: "/scan/status"}:         w.ScanStatus,
		{Method: http.MethodPost, Path: "/scan/stop"}:          w.ScanStop,
		{Method: http.MethodGet, Path: "/scan/collect"}:        w.ScanCollect,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

// httpCode maps the error taxonomy onto status codes: caller mistakes are
// 4xx, hardware and driver failures are 5xx
func httpCode(err error) int {
	var ce *ConfigError
	switch {
	case errors.As(err, &ce),
		errors.Is(err, ErrVoltageTooLow),
		errors.Is(err, ErrVoltageTooHigh),
		errors.Is(err, ErrNotScanning):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyScanning):
		return http.StatusConflict
	case errors.Is(err, ErrClosed):
		return http.StatusGone
	case errors.Is(err, ErrHardwareUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetConfig returns the session's configuration as JSON
func (h HTTPWrapper) GetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(h.Session.Config())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetState returns the session lifecycle state as {"str": ...}
func (h HTTPWrapper) GetState(w http.ResponseWriter, r *http.Request) {
	hp := generichttp.HumanPayload{T: types.String, Str: h.Session.State().String()}
	hp.EncodeAndRespond(w, r)
}

type channelVoltage struct {
	Channel int `json:"channel"`

	Voltage float64 `json:"voltage"`
}

type portBits struct {
	Port string `json:"port"`

	Bits uint64 `json:"bits"`
}

type portBit struct {
	Port string `json:"port"`

	Bit int `json:"bit"`

	Value bool `json:"value"`
}

// AnalogInput performs a single-shot conversion on the channel given in the
// request body and returns it as {"f64": ...}
func (h HTTPWrapper) AnalogInput(w http.ResponseWriter, r *http.Request) {
	var input channelVoltage
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := h.Session.ReadAnalog(input.Channel)
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	hp := generichttp.HumanPayload{T: types.Float64, Float: v}
	hp.EncodeAndRespond(w, r)
}

// AnalogOutput writes a voltage to a channel
func (h HTTPWrapper) AnalogOutput(w http.ResponseWriter, r *http.Request) {
	var input channelVoltage
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Session.WriteAnalog(input.Channel, input.Voltage)
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DigitalInput reads the bits of the port named in the request body
func (h HTTPWrapper) DigitalInput(w http.ResponseWriter, r *http.Request) {
	var input portBits
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	port, err := ParsePortType(input.Port)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bits, err := h.Session.ReadDigital(port)
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	hp := generichttp.HumanPayload{T: types.Uint64, Uint: bits}
	hp.EncodeAndRespond(w, r)
}

// DigitalOutput writes the bits of a port
func (h HTTPWrapper) DigitalOutput(w http.ResponseWriter, r *http.Request) {
	var input portBits
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	port, err := ParsePortType(input.Port)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Session.WriteDigital(port, input.Bits)
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DigitalOutputBit writes a single bit of a port
func (h HTTPWrapper) DigitalOutputBit(w http.ResponseWriter, r *http.Request) {
	var input portBit
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	port, err := ParsePortType(input.Port)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Session.WriteDigitalBit(port, input.Bit, input.Value)
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

type scanRequest struct {
	LowChannel int `json:"lowChannel"`

	HighChannel int `json:"highChannel"`

	Rate float64 `json:"rate"`

	SamplesPerChannel int `json:"samplesPerChannel"`
}

type scanStarted struct {
	Rate float64 `json:"rate"`
}

type scanStatus struct {
	Running bool `json:"running"`

	ScanCount int64 `json:"scanCount"`
}

// ScanStart begins a background acquisition
func (h HTTPWrapper) ScanStart(w http.ResponseWriter, r *http.Request) {
	var input scanRequest
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sc, err := h.Session.StartScan(input.LowChannel, input.HighChannel, input.Rate, input.SamplesPerChannel)
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(scanStarted{Rate: sc.Rate})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ScanStatus reports the progress of the in-progress acquisition
func (h HTTPWrapper) ScanStatus(w http.ResponseWriter, r *http.Request) {
	h.Session.mu.Lock()
	sc := h.Session.scan
	h.Session.mu.Unlock()
	if sc == nil {
		http.Error(w, ErrNotScanning.Error(), httpCode(ErrNotScanning))
		return
	}
	st, err := sc.Status()
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(scanStatus{Running: st.Running, ScanCount: st.ScanCount})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ScanStop halts the in-progress acquisition
func (h HTTPWrapper) ScanStop(w http.ResponseWriter, r *http.Request) {
	err := h.Session.StopScan()
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ScanCollect polls the acquisition to completion and returns the samples as
// a 2D JSON array shaped [samples][channels]
func (h HTTPWrapper) ScanCollect(w http.ResponseWriter, r *http.Request) {
	h.Session.mu.Lock()
	sc := h.Session.scan
	h.Session.mu.Unlock()
	if sc == nil {
		http.Error(w, ErrNotScanning.Error(), httpCode(ErrNotScanning))
		return
	}
	data, err := sc.Collect()
	if err != nil {
		http.Error(w, err.Error(), httpCode(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
