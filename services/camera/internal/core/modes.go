package core

import (
	"fmt"

	"vcmipi-go/errcode"
)

type modeKey struct {
	format  DataType
	lanes   int
	binning int
}

// Registry indexes the modes of a descriptor by their lookup triple.
type Registry struct {
	modes map[modeKey]Mode
}

// NewRegistry fails if two modes share a triple.
func NewRegistry(modes []Mode) (*Registry, error) {
	r := &Registry{modes: make(map[modeKey]Mode, len(modes))}
	for _, m := range modes {
		k := modeKey{m.Format, m.Lanes, m.Binning}
		if _, dup := r.modes[k]; dup {
			return nil, fmt.Errorf("duplicate mode format=%s lanes=%d binning=%d", m.Format, m.Lanes, m.Binning)
		}
		r.modes[k] = m
	}
	return r, nil
}

// Lookup returns the mode for the triple or ModeNotFound.
func (r *Registry) Lookup(format DataType, lanes, binning int) (Mode, error) {
	m, ok := r.modes[modeKey{format, lanes, binning}]
	if !ok {
		return Mode{}, &errcode.E{
			C:   errcode.ModeNotFound,
			Op:  "resolve_mode",
			Msg: fmt.Sprintf("format=%s lanes=%d binning=%d", format, lanes, binning),
		}
	}
	return m, nil
}

// Resolve looks up the mode for a bus code.
func (r *Registry) Resolve(code BusCode, lanes, binning int) (Mode, error) {
	dt, ok := MIPIFormatOf(code)
	if !ok {
		return Mode{}, errcode.New(errcode.UnsupportedFormat, "resolve_mode", code.String())
	}
	return r.Lookup(dt, lanes, binning)
}

func (r *Registry) Len() int { return len(r.modes) }
