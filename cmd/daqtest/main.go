// Command daqtest is an operator smoke test: it opens a board with the given
// config, reads an analog input, runs a short scan, pulses the digital output
// port, and closes.  Run it after cabling a new board to check the config
// before putting daqsrv on it.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/theckman/yacspin"

	"github.com/PaulKGrimes/go-mccdaq/daq"
)

func main() {
	var (
		configPath = flag.String("config", "daq.json", "path to the acquisition config file")
		channel    = flag.Int("channel", 0, "analog input channel to read")
		rate       = flag.Float64("rate", 10000, "scan sample rate, Hz per channel")
		samples    = flag.Int("samples", 1000, "samples per channel to acquire")
		mock       = flag.Bool("mock", false, "use a simulated board instead of hardware")
	)
	flag.Parse()

	cfg, err := daq.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	var drv daq.Driver
	if *mock {
		drv = daq.NewMock()
	} else {
		drv, err = openDriver(cfg.BoardNum)
		if err != nil {
			log.Fatal(err)
		}
	}
	sess, err := daq.NewSession(drv, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	v, err := sess.ReadAnalog(*channel)
	if err != nil {
		log.Fatal("analog input: ", err)
	}
	fmt.Printf("channel %d reads %.6f\n", *channel, v)

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " scanning",
		SuffixAutoColon: true,
		StopCharacter:   "done",
	})
	if err != nil {
		log.Fatal(err)
	}
	spinner.Start()
	sc, err := sess.StartScan(*channel, *channel, *rate, *samples)
	if err != nil {
		spinner.StopFail()
		log.Fatal("scan start: ", err)
	}
	spinner.Message(fmt.Sprintf("at %.0f Hz", sc.Rate))
	data, err := sc.Collect()
	if err != nil {
		spinner.StopFail()
		log.Fatal("scan: ", err)
	}
	spinner.Stop()
	fmt.Printf("acquired %d scans\n", len(data))
	if len(data) > 0 {
		fmt.Printf("first %v ... last %v\n", data[0], data[len(data)-1])
	}

	settings := sess.Settings()
	err = sess.WriteDigitalBit(settings.DOut, 0, true)
	if err != nil {
		log.Fatal("digital output: ", err)
	}
	time.Sleep(100 * time.Millisecond)
	err = sess.WriteDigitalBit(settings.DOut, 0, false)
	if err != nil {
		log.Fatal("digital output: ", err)
	}
	bits, err := sess.ReadDigital(settings.DIn)
	if err != nil {
		log.Fatal("digital input: ", err)
	}
	fmt.Printf("%v reads %#x\n", settings.DIn, bits)
}
