package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNack = errors.New("i2c nack")

// fakeSensor records every call by name and returns the error registered
// for that name, if any.
type fakeSensor struct {
	calls []string
	fail  map[string]error

	lanes     int
	code      BusCode
	frame     Rect
	mode      Mode
	bin       Binning
	exposure  int64
	gain      int64
	split     bool
	black     int64
	hmax      uint32
	frameRate int64
	trigger   int64
	io        int64
	singles   int
	liveROI   int64
	streaming bool

	tpl     int64
	frRange Range
}

func newFakeSensor() *fakeSensor {
	return &fakeSensor{
		fail:    map[string]error{},
		tpl:     14814,
		frRange: Range{Min: 100, Max: 60000, Def: 60000},
	}
}

func (f *fakeSensor) do(name string) error {
	f.calls = append(f.calls, name)
	return f.fail[name]
}

func (f *fakeSensor) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeSensor) SetNumLanes(n int) error {
	if err := f.do("SetNumLanes"); err != nil {
		return err
	}
	f.lanes = n
	return nil
}

func (f *fakeSensor) SetFormat(c BusCode) error {
	if err := f.do("SetFormat"); err != nil {
		return err
	}
	f.code = c
	return nil
}

func (f *fakeSensor) SetFrame(r Rect) error {
	if err := f.do("SetFrame"); err != nil {
		return err
	}
	f.frame = r
	return nil
}

func (f *fakeSensor) SetMode(m Mode, b Binning) error {
	if err := f.do("SetMode"); err != nil {
		return err
	}
	f.mode, f.bin = m, b
	return nil
}

func (f *fakeSensor) SetExposure(us int64) error {
	if err := f.do("SetExposure"); err != nil {
		return err
	}
	f.exposure = us
	return nil
}

func (f *fakeSensor) SetGain(mdB int64, split bool) error {
	if err := f.do("SetGain"); err != nil {
		return err
	}
	f.gain, f.split = mdB, split
	return nil
}

func (f *fakeSensor) SetBlackLevel(v int64) error {
	if err := f.do("SetBlackLevel"); err != nil {
		return err
	}
	f.black = v
	return nil
}

func (f *fakeSensor) SetHMax(h uint32) error {
	if err := f.do("SetHMax"); err != nil {
		return err
	}
	f.hmax = h
	return nil
}

func (f *fakeSensor) SetFrameRate(mHz int64) error {
	if err := f.do("SetFrameRate"); err != nil {
		return err
	}
	f.frameRate = mHz
	return nil
}

func (f *fakeSensor) FrameRateRange() Range { return f.frRange }
func (f *fakeSensor) TimePerLineNs() int64 { return f.tpl }

func (f *fakeSensor) SetTriggerMode(m int64) error {
	if err := f.do("SetTriggerMode"); err != nil {
		return err
	}
	f.trigger = m
	return nil
}

func (f *fakeSensor) SetIOMode(m int64) error {
	if err := f.do("SetIOMode"); err != nil {
		return err
	}
	f.io = m
	return nil
}

func (f *fakeSensor) SingleTrigger() error {
	if err := f.do("SingleTrigger"); err != nil {
		return err
	}
	f.singles++
	return nil
}

func (f *fakeSensor) SetLiveROI(v int64) error {
	if err := f.do("SetLiveROI"); err != nil {
		return err
	}
	f.liveROI = v
	return nil
}

func (f *fakeSensor) StartStream() error {
	if err := f.do("StartStream"); err != nil {
		return err
	}
	f.streaming = true
	return nil
}

func (f *fakeSensor) StopStream() error {
	f.streaming = false
	return f.do("StopStream")
}

type fakeRail struct {
	on, off int
	failOn  error
}

func (r *fakeRail) SetPower(on bool) error {
	if on {
		if r.failOn != nil {
			return r.failOn
		}
		r.on++
		return nil
	}
	r.off++
	return nil
}

type streamEvent struct {
	streaming bool
	session   string
}

type recNotifier struct {
	ctrls   map[ControlID][]Value
	formats []Format
	streams []streamEvent
}

func newRecNotifier() *recNotifier {
	return &recNotifier{ctrls: map[ControlID][]Value{}}
}

func (n *recNotifier) ControlChanged(id ControlID, v Value) { n.ctrls[id] = append(n.ctrls[id], v) }
func (n *recNotifier) FormatChanged(f Format) { n.formats = append(n.formats, f) }
func (n *recNotifier) StreamChanged(on bool, session string) {
	n.streams = append(n.streams, streamEvent{on, session})
}

const testClk = 74_250_000

func testDescriptor() Descriptor {
	modes := []Mode{
		{Format: RAW10, Lanes: 2, Binning: 0, HMax: 100, VMaxMin: 1100, VMaxMax: 0xfffff},
		{Format: RAW10, Lanes: 2, Binning: 1, HMax: 200, VMaxMin: 550, VMaxMax: 1000},
		{Format: RAW12, Lanes: 2, Binning: 0, HMax: 120, VMaxMin: 1100, VMaxMax: 0xfffff},
		{Format: RAW8, Lanes: 2, Binning: 0, HMax: 90, VMaxMin: 1100, VMaxMax: 0xfffff},
	}
	for _, lanes := range []int{1, 4} {
		modes = append(modes, Mode{Format: RAW10, Lanes: lanes, HMax: 100, VMaxMin: 1100, VMaxMax: 0xfffff})
	}
	return Descriptor{
		Name:       "IMX296C-ABC",
		Modes:      modes,
		Codes:      []BusCode{CodeY10, CodeY12, CodeY14, CodeY8},
		Frame:      Rect{Width: 1440, Height: 1080},
		ClkPixelHz: testClk,
		Binnings:   []Binning{{}, {HFactor: 2, VFactor: 2, Value: 1}},
		Exposure:   Range{Min: 1, Max: 15_000_000, Def: 10_000},
		Gain:       Range{Min: 0, Max: 48_000, Def: 0},
		DGain:      Range{Min: 0, Max: 12_000, Def: 0},
		BlackLevel: Range{Min: 0, Max: 100_000, Def: 3840},
	}
}

type fixture struct {
	dev    *Device
	sensor *fakeSensor
	rail   *fakeRail
	events *recNotifier
}

func newFixture(t *testing.T, board Board) *fixture {
	t.Helper()
	return newFixtureWith(t, testDescriptor(), board)
}

func newFixtureWith(t *testing.T, desc Descriptor, board Board) *fixture {
	t.Helper()
	f := &fixture{sensor: newFakeSensor(), rail: &fakeRail{}, events: newRecNotifier()}
	dev, err := New(desc, board, f.sensor, Options{Rail: f.rail, Notify: f.events})
	require.NoError(t, err)
	f.dev = dev
	return f
}

func defaultBoard() Board { return Board{Lanes: 2} }
