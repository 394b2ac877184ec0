package core

import (
	"github.com/golang/glog"

	"vcmipi-go/errcode"
	"vcmipi-go/x/mathx"
)

const hblankMax = 10000

// Bounds are the mode-dependent control ranges.
type Bounds struct {
	LinkFreq  int64 `json:"link_freq"`  // Hz
	PixelRate int64 `json:"pixel_rate"` // pixels/s
	VBlank    Range `json:"vblank"`
	HBlank    Range `json:"hblank"`
}

// ComputeBounds derives the mode-dependent ranges. Pixel rate counts both
// clock edges on every lane.
func ComputeBounds(m Mode, clkPixelHz int64, lanes int) (Bounds, error) {
	depth, ok := BitDepth(m.Format)
	if !ok {
		return Bounds{}, errcode.New(errcode.UnsupportedFormat, "compute_bounds", "unknown bit depth for "+m.Format.String())
	}
	return Bounds{
		LinkFreq:  clkPixelHz * int64(depth),
		PixelRate: clkPixelHz * 2 * int64(lanes),
		VBlank:    Range{Min: int64(m.VMaxMin), Max: int64(m.VMaxMax), Def: int64(m.VMaxMin)},
		HBlank:    Range{Min: 0, Max: hblankMax, Def: 0},
	}, nil
}

// publishBoundsLocked recomputes the bounds for the active mode and pushes
// them into the control descriptors. Values that fall outside a new range
// snap to its default.
func (d *Device) publishBoundsLocked() error {
	b, err := ComputeBounds(d.st.Mode, d.desc.ClkPixelHz, d.board.Lanes)
	if err != nil {
		return err
	}
	d.bounds = b

	lf := d.ctrls[CtrlLinkFreq]
	lf.desc.IntMenu = []int64{b.LinkFreq}
	lf.desc.Min, lf.desc.Max, lf.desc.Def = 0, 0, 0

	pr := d.ctrls[CtrlPixelRate]
	pr.desc.Min, pr.desc.Max, pr.desc.Def = b.PixelRate, b.PixelRate, b.PixelRate

	d.setRangeLocked(CtrlVBlank, b.VBlank)
	d.setRangeLocked(CtrlHBlank, b.HBlank)

	glog.Infof("camera %s: bounds link_freq=%d pixel_rate=%d vblank=[%d,%d]",
		d.desc.Name, b.LinkFreq, b.PixelRate, b.VBlank.Min, b.VBlank.Max)
	return nil
}

// refreshFrameRateLocked pulls the frame-rate range from the sensor.
func (d *Device) refreshFrameRateLocked() {
	r := d.sensor.FrameRateRange()
	if r.Max <= 0 {
		return
	}
	d.setRangeLocked(CtrlFrameRate, r)
}

func (d *Device) setRangeLocked(id ControlID, r Range) {
	c := d.ctrls[id]
	c.desc.Min, c.desc.Max, c.desc.Def = r.Min, r.Max, r.Def
	if c.value == nil {
		return
	}
	p := c.value(&d.st)
	if !mathx.Within(*p, r.Min, r.Max) {
		*p = r.Def
		d.notify.ControlChanged(id, Value{Int: *p})
	}
}
