// Package generichttp provides the plumbing shared by HTTP wrappers around
// lab hardware: a route table keyed on (method, path), JSON payload types,
// and adapters from Go getter/setter functions to http.HandlerFuncs.
package generichttp

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"

	"goji.io"
	"goji.io/pat"
)

// MethodPath is a tuple of an HTTP method and a URL path
type MethodPath struct {
	Method string

	Path string
}

// RouteTable maps MethodPaths to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints returns the path portion of each route in the table
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for mp := range rt {
		routes = append(routes, mp.Path)
	}
	return routes
}

// Bind attaches each route in the table to a goji mux
func (rt RouteTable) Bind(mux *goji.Mux) {
	for mp, handler := range rt {
		var p *pat.Pattern
		switch mp.Method {
		case http.MethodGet:
			p = pat.Get(mp.Path)
		case http.MethodPost:
			p = pat.Post(mp.Path)
		case http.MethodDelete:
			p = pat.Delete(mp.Path)
		case http.MethodPut:
			p = pat.Put(mp.Path)
		default:
			p = pat.New(mp.Path)
		}
		mux.HandleFunc(p, handler)
	}
}

// HTTPer is an object which can yield its route table
type HTTPer interface {
	RT() RouteTable
}

// FloatT is a struct with a single f64 field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field
type IntT struct {
	Int int `json:"int"`
}

// UintT is a struct with a single uint field
type UintT struct {
	Uint uint64 `json:"uint"`
}

// StrT is a struct with a single str field
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a struct containing the basic types web servers know how to
// deal with.  T tags which field is populated.
type HumanPayload struct {
	// T is the type of the payload
	T types.BasicKind

	// Int holds an integer
	Int int

	// Uint holds an unsigned integer
	Uint uint64

	// Float holds a float
	Float float64

	// Str holds a string
	Str string

	// Bool holds a boolean
	Bool bool
}

// EncodeAndRespond writes the payload to w as JSON with the single-field
// conventions used throughout this package
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var (
		obj interface{}
		err error
	)
	switch hp.T {
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.Uint64:
		obj = UintT{Uint: hp.Uint}
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.String:
		obj = StrT{Str: hp.Str}
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	default:
		err = fmt.Errorf("payload type %v not supported", hp.T)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = json.NewEncoder(w).Encode(obj)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// SetFloat parses a JSON input of {'f64': value} and calls fcn with it
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(f.F64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.String, Str: s}
		hp.EncodeAndRespond(w, r)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}

// SetBool parses a JSON input of {'bool': value} and calls fcn with it
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := BoolT{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(b.Bool)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
