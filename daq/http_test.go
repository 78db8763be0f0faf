package daq

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"goji.io"
)

func newTestServer(t *testing.T) (*httptest.Server, *Session) {
	t.Helper()
	m := NewMock()
	cfg := DefaultConfig()
	cfg.SleepTime = 0.0005
	sess, err := NewSession(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	w := NewHTTPWrapper(sess)
	mux := goji.NewMux()
	w.RT().Bind(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { sess.Close() })
	return srv, sess
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", buf)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func getJSON(t *testing.T, url string, body interface{}, out interface{}) int {
	t.Helper()
	buf := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(http.MethodGet, url, buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestHTTPConfigRoundTrip(t *testing.T) {
	srv, sess := newTestServer(t)
	var cfg Config
	code := getJSON(t, srv.URL+"/config", nil, &cfg)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if cfg != sess.Config() {
		t.Errorf("served config %+v, expected %+v", cfg, sess.Config())
	}
}

func TestHTTPState(t *testing.T) {
	srv, _ := newTestServer(t)
	var out struct {
		Str string `json:"str"`
	}
	code := getJSON(t, srv.URL+"/state", nil, &out)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Str != "configured" {
		t.Errorf("state %q, expected configured", out.Str)
	}
}

func TestHTTPAnalogInput(t *testing.T) {
	srv, _ := newTestServer(t)
	var out struct {
		F64 float64 `json:"f64"`
	}
	code := getJSON(t, srv.URL+"/analog-input", map[string]int{"channel": 0}, &out)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
}

func TestHTTPHardwareUnavailable(t *testing.T) {
	srv, sess := newTestServer(t)
	m := sess.drv.(*Mock)
	m.AInFunc = func(channel int, mode InputMode, rng Range) (float64, error) {
		return 0, ErrHardwareUnavailable
	}
	code := getJSON(t, srv.URL+"/analog-input", map[string]int{"channel": 0}, nil)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status %d with the board gone, expected 503", code)
	}
}

func TestHTTPAnalogOutputRangeError(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/analog-output", map[string]interface{}{"channel": 0, "voltage": 100.0})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d for out of range write, expected 400", resp.StatusCode)
	}
	resp = postJSON(t, srv.URL+"/analog-output", map[string]interface{}{"channel": 0, "voltage": 2.5})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d for in range write, expected 200", resp.StatusCode)
	}
}

func TestHTTPDigital(t *testing.T) {
	srv, sess := newTestServer(t)
	resp := postJSON(t, srv.URL+"/digital-output", map[string]interface{}{"port": "FIRSTPORTA", "bits": 7})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	m := sess.drv.(*Mock)
	if m.Ports[FirstPortA] != 7 {
		t.Errorf("port holds %#x, expected 7", m.Ports[FirstPortA])
	}
	var out struct {
		Uint uint64 `json:"uint"`
	}
	code := getJSON(t, srv.URL+"/digital-input", map[string]string{"port": "FIRSTPORTA"}, &out)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Uint != 7 {
		t.Errorf("read %d, expected 7", out.Uint)
	}
}

func TestHTTPDigitalBadPort(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/digital-output", map[string]interface{}{"port": "PORTQ", "bits": 1})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d for bad port, expected 400", resp.StatusCode)
	}
}

func TestHTTPScan(t *testing.T) {
	srv, _ := newTestServer(t)
	body := map[string]interface{}{"lowChannel": 0, "highChannel": 1, "rate": 50000.0, "samplesPerChannel": 50}
	resp := postJSON(t, srv.URL+"/scan/start", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scan start status %d", resp.StatusCode)
	}
	// a second start conflicts rather than silently restarting
	resp2 := postJSON(t, srv.URL+"/scan/start", body)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Errorf("second scan start status %d, expected 409", resp2.StatusCode)
	}
	var data [][]float64
	code := getJSON(t, srv.URL+"/scan/collect", nil, &data)
	if code != http.StatusOK {
		t.Fatalf("collect status %d", code)
	}
	if len(data) != 50 {
		t.Errorf("collected %d scans, expected 50", len(data))
	}
	// with no scan in progress, status is a caller error
	code = getJSON(t, srv.URL+"/scan/status", nil, nil)
	if code != http.StatusBadRequest {
		t.Errorf("status with no scan %d, expected 400", code)
	}
}
