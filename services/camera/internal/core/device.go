// Package core is the control plane of a VC MIPI sensor: mode lookup,
// controls, format and crop negotiation, bound recalculation, streaming
// and power. One Device serialises every operation behind a single mutex
// and talks to the chip only through Sensor.
package core

import (
	"sync"

	"github.com/golang/glog"

	"vcmipi-go/errcode"
)

// State is the mutable per-device state. Snapshot returns a copy.
type State struct {
	Code      BusCode `json:"code"`
	Crop      Rect    `json:"crop"`
	Mode      Mode    `json:"mode"`
	Streaming bool    `json:"streaming"`
	Powered   bool    `json:"powered"`
	PowerRefs int     `json:"power_refs"`

	Exposure     int64 `json:"exposure"`
	Gain         int64 `json:"gain"`
	AnalogueGain int64 `json:"analogue_gain"`
	BlackLevel   int64 `json:"black_level"`
	FrameRate    int64 `json:"frame_rate"`
	BinningMode  int64 `json:"binning_mode"`
	TriggerMode  int64 `json:"trigger_mode"`
	IOMode       int64 `json:"io_mode"`
	HBlank       int64 `json:"hblank"`
	VBlank       int64 `json:"vblank"`
	HFlip        int64 `json:"hflip"`
	VFlip        int64 `json:"vflip"`
}

type Options struct {
	Rail   PowerRail // nil: the power flag is bookkeeping only
	Notify Notifier
}

type Device struct {
	mu sync.Mutex

	desc   Descriptor
	board  Board
	sensor Sensor
	rail   PowerRail
	notify Notifier

	modes  *Registry
	codes  []BusCode
	regime exposureRegime
	ctrls  map[ControlID]*control
	order  []ControlID
	bounds Bounds

	st         State
	phase      Phase
	session    string
	exposureUs int64
}

// New attaches to a sensor: lanes are set, the first offered code with a
// matching mode becomes the active format, and the bounds are published.
func New(desc Descriptor, board Board, s Sensor, opts Options) (*Device, error) {
	switch board.Lanes {
	case 1, 2, 4:
	default:
		return nil, errcode.New(errcode.InvalidParams, "attach", "lanes must be 1, 2 or 4")
	}
	reg, err := NewRegistry(desc.Modes)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "attach", err)
	}
	d := &Device{
		desc:   desc,
		board:  board,
		sensor: s,
		rail:   opts.Rail,
		notify: opts.Notify,
		modes:  reg,
		regime: regimeFor(board),
	}
	if d.notify == nil {
		d.notify = nopNotifier{}
	}
	for _, c := range desc.Codes {
		if board.RestrictedHost && restrictedExclude[c] {
			continue
		}
		d.codes = append(d.codes, c)
	}
	if len(d.codes) == 0 {
		return nil, errcode.New(errcode.UnsupportedFormat, "attach", "no usable bus codes")
	}
	d.buildControls()

	if err := d.sensorErr("set_num_lanes", s.SetNumLanes(board.Lanes)); err != nil {
		return nil, err
	}
	applied := false
	for _, c := range d.codes {
		if _, err = d.applyFormatLocked(c, 0, desc.Frame.Width, desc.Frame.Height); err == nil {
			applied = true
			break
		}
	}
	if !applied {
		return nil, err
	}
	d.exposureUs = d.regime.toMicros(d.st.Exposure, s.TimePerLineNs())
	glog.Infof("camera %s: attached lanes=%d codes=%d exposure_unit=%s",
		desc.Name, board.Lanes, len(d.codes), d.regime.unit())
	return d, nil
}

// Close forces streaming off and drops every power reference.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.st.PowerRefs = 0
	if err := d.setPowerLocked(false); err != nil {
		glog.Errorf("camera %s: close: %v", d.desc.Name, err)
	}
}

func (d *Device) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st
}

func (d *Device) Bounds() Bounds {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bounds
}

func (d *Device) Descriptor() Descriptor { return d.desc }

func (d *Device) Board() Board { return d.board }

func (d *Device) ExposureUnit() ExposureUnit { return d.regime.unit() }
