package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"goji.io"
	"goji.io/pat"

	"github.com/PaulKGrimes/go-mccdaq/daq"
	"github.com/PaulKGrimes/go-mccdaq/server/middleware/locker"
)

// BoardSetup holds the arguments needed to put one board on the network
type BoardSetup struct {
	// URL is the stem the board's routes are served under,
	// ex. URL="/lab/daq" produces routes of /lab/daq/analog-input, etc.
	URL string `koanf:"endpoint" yaml:"endpoint"`

	// Config is the path to the board's acquisition config file
	Config string `koanf:"config" yaml:"config"`

	// Mock serves a simulated board instead of opening hardware
	Mock bool `koanf:"mock" yaml:"mock"`
}

// Config is the top-level server configuration
type Config struct {
	// Addr is the address to listen at
	Addr string `koanf:"addr" yaml:"addr"`

	// Boards is the list of boards to serve
	Boards []BoardSetup `koanf:"boards" yaml:"boards"`
}

// openSession opens the board described by setup, retrying while the
// hardware enumerates.  USB boards can take a moment to appear after plug-in
// or a reboot, so a short exponential backoff smooths over that window.
func openSession(setup BoardSetup) (*daq.Session, error) {
	cfg, err := daq.LoadConfig(setup.Config)
	if err != nil {
		return nil, err
	}
	if setup.Mock {
		return daq.NewSession(daq.NewMock(), cfg)
	}
	var drv daq.Driver
	op := func() error {
		var err error
		drv, err = openDriver(cfg.BoardNum)
		return err
	}
	err = backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      5 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		return nil, err
	}
	return daq.NewSession(drv, cfg)
}

// BuildMux opens every configured board and returns the root mux with the
// boards mounted under their stems, plus the sessions for shutdown.  A board
// that cannot be opened is logged and skipped so one missing device does not
// take down the rest.
func BuildMux(c Config) (*goji.Mux, []*daq.Session) {
	root := goji.NewMux()
	sessions := []*daq.Session{}
	supergraph := map[string][]string{}
	for _, setup := range c.Boards {
		sess, err := openSession(setup)
		if err != nil {
			log.Printf("error opening board at %s, remote access will not be configured: %v", setup.URL, err)
			continue
		}
		sessions = append(sessions, sess)
		httper := daq.NewHTTPWrapper(sess)
		lock := locker.New()
		locker.Inject(httper, lock)
		stem := setup.URL
		if !strings.HasPrefix(stem, "/") {
			stem = "/" + stem
		}
		if !strings.HasSuffix(stem, "/") {
			stem = stem + "/"
		}
		supergraph[stem] = httper.RT().Endpoints()
		mux := goji.SubMux()
		mux.Use(lock.Check)
		httper.RT().Bind(mux)
		root.Handle(pat.New(stem+"*"), mux)
	}
	root.HandleFunc(pat.Get("/endpoints"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root, sessions
}
