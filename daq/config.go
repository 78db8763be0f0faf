package daq

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

// Config is the declarative description of how a board is to be used.  The
// keys match the configuration files of the original python_mccdaq tool, so
// existing config files carry over unchanged.
type Config struct {
	// BoardNum selects which physical board to address
	BoardNum int `koanf:"boardnum" json:"boardnum"`

	// DACRange is the full scale output voltage of the analog outputs
	DACRange float64 `koanf:"DACrange" json:"DACrange"`

	// ADCMode is the input wiring mode, differential or single_ended
	ADCMode string `koanf:"ADCmode" json:"ADCmode"`

	// ADCPolarity is bipolar, unipolar, or ma
	ADCPolarity string `koanf:"ADCpolarity" json:"ADCpolarity"`

	// ADCRange is the full scale value of the analog inputs
	ADCRange float64 `koanf:"ADCrange" json:"ADCrange"`

	// DOutPort is the symbolic name of the port used for digital output
	DOutPort string `koanf:"DOutPort" json:"DOutPort"`

	// DInPort is the symbolic name of the port used for digital input
	DInPort string `koanf:"DInPort" json:"DInPort"`

	// SleepTime is the wait in seconds between scan status polls
	SleepTime float64 `koanf:"sleepTime" json:"sleepTime"`
}

// DefaultConfig returns the configuration used when keys are absent from the
// user's file.  The values match the defaults shipped with the original tool.
func DefaultConfig() Config {
	return Config{
		BoardNum:    0,
		DACRange:    5.0,
		ADCMode:     "differential",
		ADCPolarity: "bipolar",
		ADCRange:    5,
		DOutPort:    "FIRSTPORTA",
		DInPort:     "FIRSTPORTB",
		SleepTime:   0.002,
	}
}

// Settings is a Config with every enumerated field resolved against the
// values the vendor SDK recognizes.  It is immutable after construction and
// owned exclusively by the acquisition session.
type Settings struct {
	// Board is the physical board index
	Board int

	// AORange is the analog output range.  The original always resolves the
	// DAC range with unipolar polarity; that behavior is kept.
	AORange Range

	// AIMode is the analog input wiring mode
	AIMode InputMode

	// AIRange is the analog input range
	AIRange Range

	// DOut is the digital output port
	DOut PortType

	// DIn is the digital input port
	DIn PortType

	// PollInterval is the wait between scan status checks
	PollInterval time.Duration
}

// Resolve validates every field of the Config against the enumerated legal
// values and returns the resolved Settings.  The first invalid field is
// reported as a *ConfigError; nothing is ever clamped or defaulted here.
func (c Config) Resolve() (Settings, error) {
	var s Settings
	if c.BoardNum < 0 {
		return s, &ConfigError{Field: "boardnum", Value: c.BoardNum, Err: errors.New("board number must be non-negative")}
	}
	s.Board = c.BoardNum
	if c.DACRange <= 0 {
		return s, &ConfigError{Field: "DACrange", Value: c.DACRange, Err: errors.New("DAC range must be positive")}
	}
	aoRng, err := LookupRange(Unipolar, c.DACRange)
	if err != nil {
		return s, &ConfigError{Field: "DACrange", Value: c.DACRange, Err: err}
	}
	s.AORange = aoRng
	mode, err := ParseInputMode(c.ADCMode)
	if err != nil {
		return s, &ConfigError{Field: "ADCmode", Value: c.ADCMode, Err: err}
	}
	s.AIMode = mode
	pol, err := ParsePolarity(c.ADCPolarity)
	if err != nil {
		return s, &ConfigError{Field: "ADCpolarity", Value: c.ADCPolarity, Err: err}
	}
	aiRng, err := LookupRange(pol, c.ADCRange)
	if err != nil {
		return s, &ConfigError{Field: "ADCrange", Value: c.ADCRange, Err: err}
	}
	s.AIRange = aiRng
	dout, err := ParsePortType(c.DOutPort)
	if err != nil {
		return s, &ConfigError{Field: "DOutPort", Value: c.DOutPort, Err: err}
	}
	s.DOut = dout
	din, err := ParsePortType(c.DInPort)
	if err != nil {
		return s, &ConfigError{Field: "DInPort", Value: c.DInPort, Err: err}
	}
	s.DIn = din
	if c.SleepTime < 0 {
		return s, &ConfigError{Field: "sleepTime", Value: c.SleepTime, Err: errors.New("sleep time must be non-negative")}
	}
	s.PollInterval = time.Duration(c.SleepTime * float64(time.Second))
	return s, nil
}

// LoadConfig reads a configuration file and merges it over the defaults.
// The file is JSON tolerant of //, # and /* */ comments and trailing commas,
// matching the hjson files used by the original tool.  Missing keys take
// their default values; unknown values surface from Resolve, not from here.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return cfg, err
	}
	if err := k.Load(file.Provider(path), commentJSON{}); err != nil {
		return cfg, err
	}
	err := k.Unmarshal("", &cfg)
	return cfg, err
}

// commentJSON is a koanf.Parser for JSON with comments and trailing commas
type commentJSON struct{}

// Unmarshal satisfies koanf.Parser
func (commentJSON) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	err := json.Unmarshal(stripComments(b), &out)
	return out, err
}

// Marshal satisfies koanf.Parser
func (commentJSON) Marshal(m map[string]interface{}) ([]byte, error) {
	return json.MarshalIndent(m, "", "    ")
}

// stripComments removes //, # and /* */ comments and trailing commas from
// JSON text, leaving string literals untouched.  Positions of surviving
// bytes are preserved where possible so decode errors still point near the
// right place.
func stripComments(b []byte) []byte {
	var (
		out      bytes.Buffer
		inString bool
		escaped  bool
	)
	out.Grow(len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			out.WriteByte(c)
		case c == '#':
			i = skipLine(b, i)
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			i = skipLine(b, i)
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			for i += 2; i+1 < len(b); i++ {
				if b[i] == '*' && b[i+1] == '/' {
					i++
					break
				}
			}
		case c == ',':
			// drop the comma if the next token closes the container
			if nextSignificant(b, i+1) == '}' || nextSignificant(b, i+1) == ']' {
				continue
			}
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

// skipLine returns the index of the byte before the next newline
func skipLine(b []byte, i int) int {
	for ; i < len(b); i++ {
		if b[i] == '\n' {
			return i - 1
		}
	}
	return len(b)
}

// nextSignificant returns the next byte that is not whitespace or a comment
func nextSignificant(b []byte, i int) byte {
	for ; i < len(b); i++ {
		c := b[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		case c == '#':
			i = skipLine(b, i)
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			i = skipLine(b, i)
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			for i += 2; i+1 < len(b); i++ {
				if b[i] == '*' && b[i+1] == '/' {
					i++
					break
				}
			}
		default:
			return c
		}
	}
	return 0
}
