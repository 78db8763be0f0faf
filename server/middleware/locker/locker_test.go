package locker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckBouncesProtectedRoutesWhileLocked(t *testing.T) {
	l := New()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(l.Check(inner))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/analog-input")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unlocked status %d, expected 200", resp.StatusCode)
	}

	l.Lock()
	resp, err = http.Get(srv.URL + "/analog-input")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusLocked {
		t.Errorf("locked status %d, expected 423", resp.StatusCode)
	}

	// the lock route itself stays reachable
	resp, err = http.Get(srv.URL + "/lock")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("lock route status %d while locked, expected 200", resp.StatusCode)
	}

	l.Unlock()
	resp, err = http.Get(srv.URL + "/analog-input")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unlocked again status %d, expected 200", resp.StatusCode)
	}
}

func TestHTTPSetAndGet(t *testing.T) {
	l := New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/lock", strings.NewReader(`{"bool": true}`))
	l.HTTPSet(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("set status %d", rec.Code)
	}
	if !l.Locked() {
		t.Error("locker did not lock")
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/lock", nil)
	l.HTTPGet(rec, req)
	if !strings.Contains(rec.Body.String(), "true") {
		t.Errorf("get body %q, expected true", rec.Body.String())
	}
}
