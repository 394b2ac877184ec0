package core

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/glog"

	"vcmipi-go/errcode"
	"vcmipi-go/x/mathx"
)

type Kind int

const (
	KindInteger Kind = iota + 1
	KindInteger64
	KindIntMenu
	KindMenu
	KindButton
	KindString
	KindBoolean
)

var kindNames = [...]string{
	KindInteger:   "integer",
	KindInteger64: "integer64",
	KindIntMenu:   "int_menu",
	KindMenu:      "menu",
	KindButton:    "button",
	KindString:    "string",
	KindBoolean:   "boolean",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

type Flags uint32

const (
	FlagReadOnly Flags = 1 << iota
	FlagVolatile
	FlagExecuteOnWrite
	FlagModifyLayout
)

// ControlDescriptor describes one control as the host sees it.
type ControlDescriptor struct {
	ID      ControlID `json:"id"`
	Name    string    `json:"name"`
	Kind    Kind      `json:"kind"`
	Min     int64     `json:"min"`
	Max     int64     `json:"max"`
	Def     int64     `json:"def"`
	Step    int64     `json:"step"`
	Flags   Flags     `json:"flags"`
	Menu    []string  `json:"menu,omitempty"`
	IntMenu []int64   `json:"int_menu,omitempty"`
}

func (c ControlDescriptor) ReadOnly() bool { return c.Flags&FlagReadOnly != 0 }

// Value is a control value. Str is only set for string controls.
type Value struct {
	Int int64  `json:"int"`
	Str string `json:"str,omitempty"`
}

// MenuItem is one entry of a menu or integer-menu control.
type MenuItem struct {
	Index int64  `json:"index"`
	Name  string `json:"name,omitempty"`
	Value int64  `json:"value,omitempty"`
}

var triggerModes = []string{
	"Off",
	"External",
	"Pulse Width",
	"Self",
	"Single",
	"Sync",
	"Stream Edge",
	"Stream Level",
}

var orientations = []string{"Front", "Back", "External"}

const nameMax = 10

// control binds a descriptor to its behaviour. value points into State for
// stored controls; read computes volatile and derived values.
type control struct {
	desc       ControlDescriptor
	checkRange bool
	value      func(*State) *int64
	check      func(d *Device, v int64) error
	apply      func(d *Device, v int64) error
	read       func(d *Device) Value
}

func (d *Device) buildControls() {
	exp := d.regime.limits(d.desc.Exposure)
	gain := Range{
		Min: d.desc.Gain.Min,
		Max: d.desc.Gain.Max + d.desc.DGain.Max,
		Def: d.desc.Gain.Def,
	}
	table := []*control{
		{
			desc:       ControlDescriptor{ID: CtrlExposure, Name: "Exposure", Kind: KindInteger, Min: exp.Min, Max: exp.Max, Def: exp.Def, Step: 1},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.Exposure },
			apply:      (*Device).applyExposure,
		},
		{
			desc:       ControlDescriptor{ID: CtrlGain, Name: "Gain", Kind: KindInteger, Min: gain.Min, Max: gain.Max, Def: gain.Def, Step: 1},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.Gain },
			apply:      (*Device).applyGain,
		},
		{
			desc:       ControlDescriptor{ID: CtrlAnalogueGain, Name: "Analogue Gain", Kind: KindInteger, Min: gain.Min, Max: gain.Max, Def: gain.Def, Step: 1},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.AnalogueGain },
			apply:      (*Device).applyGain,
		},
		{
			desc:       ControlDescriptor{ID: CtrlBlackLevel, Name: "Black Level", Kind: KindInteger, Min: d.desc.BlackLevel.Min, Max: d.desc.BlackLevel.Max, Def: d.desc.BlackLevel.Def, Step: 1},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.BlackLevel },
			apply: func(d *Device, v int64) error {
				return d.sensorErr("set_black_level", d.sensor.SetBlackLevel(v))
			},
		},
		{
			desc:  ControlDescriptor{ID: CtrlHBlank, Name: "Horizontal Blanking", Kind: KindInteger, Step: 1},
			value: func(s *State) *int64 { return &s.HBlank },
			check: func(d *Device, v int64) error {
				if v < 0 {
					return errcode.New(errcode.OutOfRange, "set_ctrl", "hblank must not be negative")
				}
				lanes := int64(d.board.Lanes)
				if (v&^lanes)/lanes > math.MaxUint32-int64(d.st.Mode.HMax) {
					return errcode.New(errcode.OutOfRange, "set_ctrl",
						fmt.Sprintf("hblank %d overflows hmax", v))
				}
				return nil
			},
			apply: (*Device).applyHBlank,
		},
		{
			desc:       ControlDescriptor{ID: CtrlVBlank, Name: "Vertical Blanking", Kind: KindInteger, Step: 1},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.VBlank },
		},
		{
			desc:       ControlDescriptor{ID: CtrlHFlip, Name: "Horizontal Flip", Kind: KindBoolean, Max: 1, Step: 1},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.HFlip },
		},
		{
			desc:       ControlDescriptor{ID: CtrlVFlip, Name: "Vertical Flip", Kind: KindBoolean, Max: 1, Step: 1},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.VFlip },
		},
		{
			desc:  ControlDescriptor{ID: CtrlTriggerMode, Name: "Trigger Mode", Kind: KindMenu, Max: int64(len(triggerModes) - 1), Step: 1, Menu: triggerModes},
			value: func(s *State) *int64 { return &s.TriggerMode },
			apply: func(d *Device, v int64) error {
				return d.sensorErr("set_trigger_mode", d.sensor.SetTriggerMode(v))
			},
		},
		{
			desc:  ControlDescriptor{ID: CtrlIOMode, Name: "IO Mode", Kind: KindInteger, Max: 5, Step: 1},
			value: func(s *State) *int64 { return &s.IOMode },
			apply: func(d *Device, v int64) error {
				return d.sensorErr("set_io_mode", d.sensor.SetIOMode(v))
			},
		},
		{
			desc:       ControlDescriptor{ID: CtrlFrameRate, Name: "Frame Rate", Kind: KindInteger, Max: 1000000, Step: 1},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.FrameRate },
			apply:      (*Device).applyFrameRate,
		},
		{
			desc: ControlDescriptor{ID: CtrlSingleTrigger, Name: "Single Trigger", Kind: KindButton, Max: 1, Step: 1, Flags: FlagExecuteOnWrite},
			apply: func(d *Device, _ int64) error {
				return d.sensorErr("single_trigger", d.sensor.SingleTrigger())
			},
		},
		{
			desc:       ControlDescriptor{ID: CtrlBinningMode, Name: "Binning Mode", Kind: KindInteger, Max: 4, Step: 1, Flags: FlagModifyLayout},
			checkRange: true,
			value:      func(s *State) *int64 { return &s.BinningMode },
			apply:      (*Device).applyBinning,
		},
		{
			desc:       ControlDescriptor{ID: CtrlLiveROI, Name: "Live ROI", Kind: KindInteger64, Max: 999999999, Step: 1, Flags: FlagVolatile | FlagExecuteOnWrite},
			checkRange: true,
			apply:      (*Device).applyLiveROI,
			read: func(d *Device) Value {
				return Value{Int: d.st.BinningMode*100000000 + int64(d.st.Crop.Left)*10000 + int64(d.st.Crop.Top)}
			},
		},
		{
			desc: ControlDescriptor{ID: CtrlName, Name: "Name", Kind: KindString, Max: nameMax, Step: 1, Flags: FlagReadOnly | FlagVolatile},
			read: func(d *Device) Value {
				n := d.desc.Name
				if len(n) > nameMax {
					n = n[:nameMax]
				}
				return Value{Str: n}
			},
		},
		{
			desc: ControlDescriptor{ID: CtrlLinkFreq, Name: "Link Frequency", Kind: KindIntMenu, Flags: FlagReadOnly},
			read: func(*Device) Value { return Value{Int: 0} },
		},
		{
			desc: ControlDescriptor{ID: CtrlPixelRate, Name: "Pixel Rate", Kind: KindInteger64, Step: 1, Flags: FlagReadOnly},
			read: func(d *Device) Value { return Value{Int: d.bounds.PixelRate} },
		},
		{
			desc: ControlDescriptor{ID: CtrlOrientation, Name: "Camera Orientation", Kind: KindMenu, Max: int64(len(orientations) - 1), Def: d.board.Orientation, Step: 1, Flags: FlagReadOnly, Menu: orientations},
			read: func(d *Device) Value { return Value{Int: d.board.Orientation} },
		},
		{
			desc: ControlDescriptor{ID: CtrlRotation, Name: "Camera Sensor Rotation", Kind: KindInteger, Max: 360, Def: d.board.Rotation, Step: 1, Flags: FlagReadOnly},
			read: func(d *Device) Value { return Value{Int: d.board.Rotation} },
		},
	}

	d.order = make([]ControlID, 0, len(table))
	d.ctrls = make(map[ControlID]*control, len(table))
	for _, c := range table {
		d.order = append(d.order, c.desc.ID)
		d.ctrls[c.desc.ID] = c
		if c.value != nil {
			*c.value(&d.st) = c.desc.Def
		}
	}
}

// ---- Host surface ----

// Enumerate lists all control descriptors in registration order.
func (d *Device) Enumerate() []ControlDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ControlDescriptor, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.ctrls[id].desc)
	}
	return out
}

func (d *Device) Query(id ControlID) (ControlDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.lookupCtrl("query_ctrl", id)
	if err != nil {
		return ControlDescriptor{}, err
	}
	return c.desc, nil
}

// QueryMenu returns one item of a menu or integer-menu control.
func (d *Device) QueryMenu(id ControlID, index int64) (MenuItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.lookupCtrl("query_menu", id)
	if err != nil {
		return MenuItem{}, err
	}
	switch c.desc.Kind {
	case KindMenu:
		if index < 0 || index >= int64(len(c.desc.Menu)) {
			return MenuItem{}, errcode.New(errcode.InvalidParams, "query_menu", "index out of range")
		}
		return MenuItem{Index: index, Name: c.desc.Menu[index]}, nil
	case KindIntMenu:
		if index < 0 || index >= int64(len(c.desc.IntMenu)) {
			return MenuItem{}, errcode.New(errcode.InvalidParams, "query_menu", "index out of range")
		}
		return MenuItem{Index: index, Value: c.desc.IntMenu[index]}, nil
	}
	return MenuItem{}, errcode.New(errcode.InvalidParams, "query_menu", "not a menu control")
}

func (d *Device) Get(id ControlID) (Value, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.lookupCtrl("get_ctrl", id)
	if err != nil {
		return Value{}, err
	}
	return d.readLocked(c), nil
}

// Set writes one control. The device must be powered and in use.
func (d *Device) Set(id ControlID, v int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setLocked(id, v)
}

func (d *Device) lookupCtrl(op string, id ControlID) (*control, error) {
	c, ok := d.ctrls[id]
	if !ok {
		glog.Warningf("camera %s: unknown control %s", d.desc.Name, id)
		return nil, errcode.New(errcode.UnsupportedControl, op, id.String())
	}
	return c, nil
}

func (d *Device) readLocked(c *control) Value {
	if c.read != nil {
		return c.read(d)
	}
	if c.value != nil {
		return Value{Int: *c.value(&d.st)}
	}
	return Value{}
}

func (d *Device) setLocked(id ControlID, v int64) error {
	c, err := d.lookupCtrl("set_ctrl", id)
	if err != nil {
		return err
	}
	if !d.getIfInUseLocked() {
		return errcode.New(errcode.PoweredOff, "set_ctrl", c.desc.Name)
	}
	defer d.releaseLocked()

	if c.desc.ReadOnly() {
		return errcode.New(errcode.ReadOnly, "set_ctrl", c.desc.Name)
	}
	if c.checkRange && !mathx.Within(v, c.desc.Min, c.desc.Max) {
		return errcode.New(errcode.OutOfRange, "set_ctrl",
			fmt.Sprintf("%s=%d not in [%d,%d]", c.desc.Name, v, c.desc.Min, c.desc.Max))
	}
	if c.check != nil {
		if err := c.check(d, v); err != nil {
			return err
		}
	}

	if c.apply != nil {
		if err := c.apply(d, v); err != nil {
			return err
		}
	}
	if c.value != nil {
		*c.value(&d.st) = v
	}
	glog.V(2).Infof("camera %s: %s = %d", d.desc.Name, c.desc.Name, v)
	d.notify.ControlChanged(id, d.readLocked(c))
	return nil
}

// ---- Apply functions ----

func (d *Device) sensorErr(op string, err error) error {
	if err == nil {
		return nil
	}
	glog.Errorf("camera %s: %s: %v", d.desc.Name, op, err)
	return errcode.Wrap(errcode.DeviceIO, op, err)
}

func (d *Device) applyExposure(v int64) error {
	us := d.regime.toMicros(v, d.sensor.TimePerLineNs())
	if err := d.sensorErr("set_exposure", d.sensor.SetExposure(us)); err != nil {
		return err
	}
	d.exposureUs = us
	return nil
}

func (d *Device) applyGain(v int64) error {
	return d.sensorErr("set_gain", d.sensor.SetGain(v, true))
}

// applyHBlank stretches the line by the blanking value spread over the
// lanes.
func (d *Device) applyHBlank(v int64) error {
	hmax := d.hmaxFor(v)
	glog.Infof("camera %s: hblank %d -> hmax %d", d.desc.Name, v, hmax)
	return d.sensorErr("set_hmax", d.sensor.SetHMax(uint32(hmax)))
}

func (d *Device) hmaxFor(hblank int64) int64 {
	lanes := int64(d.board.Lanes)
	return int64(d.st.Mode.HMax) + (hblank&^lanes)/lanes
}

// applyFrameRate recalculates the bounds whether or not the sensor
// accepted the rate.
func (d *Device) applyFrameRate(v int64) error {
	err := d.sensorErr("set_frame_rate", d.sensor.SetFrameRate(v))
	if perr := d.publishBoundsLocked(); perr != nil && err == nil {
		err = perr
	}
	return err
}

func (d *Device) applyBinning(v int64) error {
	hs, vs := d.binningEntry(v).scale()
	_, err := d.applyFormatLocked(d.st.Code, v, d.desc.Frame.Width/hs, d.desc.Frame.Height/vs)
	return err
}

func (d *Device) applyLiveROI(v int64) error {
	if err := d.sensorErr("set_live_roi", d.sensor.SetLiveROI(v)); err != nil {
		return err
	}
	d.st.Crop.Left = int32((v / 10000) % 10000)
	d.st.Crop.Top = int32(v % 10000)
	return nil
}
