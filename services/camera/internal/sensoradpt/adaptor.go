// Package sensoradpt drives a vcmipi register driver through the control
// plane's Sensor interface.
package sensoradpt

import (
	"fmt"

	"tinygo.org/x/drivers"

	"vcmipi-go/drivers/vcmipi"
	"vcmipi-go/services/camera/internal/core"
)

// ---------------- Params supplied via config ----------------

type Params struct {
	Addr       uint16        `json:"addr,omitempty"`
	ModuleAddr uint16        `json:"module_addr,omitempty"`
	Timing     vcmipi.Timing `json:"timing"`
}

type adaptor struct {
	dev *vcmipi.Device
}

var _ core.Sensor = (*adaptor)(nil)

// New builds the sensor for the given bus. ModuleAddr 0 means the board
// has no I/O module.
func New(bus drivers.I2C, p Params) core.Sensor {
	return &adaptor{dev: vcmipi.New(bus, vcmipi.Config{
		Address:       p.Addr,
		ModuleAddress: p.ModuleAddr,
		Timing:        p.Timing,
	})}
}

func (a *adaptor) SetNumLanes(n int) error { return a.dev.SetNumLanes(n) }

// SetFormat only checks the code; the data type reaches the chip with the
// mode.
func (a *adaptor) SetFormat(code core.BusCode) error {
	if _, ok := core.MIPIFormatOf(code); !ok {
		return fmt.Errorf("sensoradpt: no data type for %s", code)
	}
	return nil
}

func (a *adaptor) SetFrame(r core.Rect) error {
	a.dev.SetWindow(vcmipi.Window{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Height})
	return nil
}

func (a *adaptor) SetMode(m core.Mode, b core.Binning) error {
	a.dev.SetMode(vcmipi.Mode{
		Format:  uint8(m.Format),
		Binning: b.Value,
		HMax:    m.HMax,
		VMaxMin: m.VMaxMin,
		VMaxMax: m.VMaxMax,
	})
	return nil
}

func (a *adaptor) SetExposure(us int64) error { return a.dev.SetExposure(us) }
func (a *adaptor) SetGain(mdB int64, split bool) error { return a.dev.SetGain(mdB, split) }
func (a *adaptor) SetBlackLevel(v int64) error { return a.dev.SetBlackLevel(v) }
func (a *adaptor) SetHMax(hmax uint32) error { return a.dev.SetHMax(hmax) }
func (a *adaptor) SetFrameRate(mHz int64) error { return a.dev.SetFrameRate(mHz) }
func (a *adaptor) TimePerLineNs() int64 { return a.dev.TimePerLineNs() }
func (a *adaptor) SetTriggerMode(m int64) error { return a.dev.SetTriggerMode(m) }
func (a *adaptor) SetIOMode(m int64) error { return a.dev.SetIOMode(m) }
func (a *adaptor) SingleTrigger() error { return a.dev.SingleTrigger() }
func (a *adaptor) SetLiveROI(v int64) error { return a.dev.SetLiveROI(v) }
func (a *adaptor) StartStream() error { return a.dev.StartStream() }
func (a *adaptor) StopStream() error { return a.dev.StopStream() }

func (a *adaptor) FrameRateRange() core.Range {
	min, max, def := a.dev.FrameRateLimits()
	return core.Range{Min: min, Max: max, Def: def}
}
