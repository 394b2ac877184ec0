package core

import (
	"github.com/golang/glog"

	"vcmipi-go/errcode"
	"vcmipi-go/x/mathx"
)

// EnumFormats lists the codes offered on a pad.
func (d *Device) EnumFormats(pad int) ([]BusCode, error) {
	switch pad {
	case PadImage:
		return append([]BusCode(nil), d.codes...), nil
	case PadMetadata:
		return []BusCode{CodeSensorData}, nil
	}
	return nil, errcode.New(errcode.InvalidParams, "enum_mbus_code", "no such pad")
}

// EnumFrameSize reports the frame size range for code under the current
// binning. Sizes do not depend on the code.
func (d *Device) EnumFrameSize(code BusCode) (FrameSize, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.offers(code) {
		return FrameSize{}, errcode.New(errcode.UnsupportedFormat, "enum_frame_size", code.String())
	}
	w, h := d.maxSizeLocked(d.st.BinningMode)
	return FrameSize{MinWidth: minFrameSide, MaxWidth: w, MinHeight: minFrameSide, MaxHeight: h}, nil
}

func (d *Device) GetFormat() Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.formatLocked()
}

// SetFormat selects code and size. The size is clamped to what the current
// binning allows and the crop resets to the full new size. The returned
// Format is what was applied.
func (d *Device) SetFormat(f Format) (Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.offers(f.Code) {
		return Format{}, errcode.New(errcode.UnsupportedFormat, "set_fmt", f.Code.String())
	}
	return d.applyFormatLocked(f.Code, d.st.BinningMode, f.Width, f.Height)
}

func (d *Device) GetSelection(t SelectionTarget) (Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch t {
	case TargetCrop:
		return d.st.Crop, nil
	case TargetCropDefault, TargetCropBounds:
		return d.desc.Frame, nil
	}
	return Rect{}, errcode.New(errcode.InvalidParams, "get_selection", string(t))
}

// SetSelection stores the crop and hands it to the sensor as is.
func (d *Device) SetSelection(t SelectionTarget, r Rect) (Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t != TargetCrop {
		return Rect{}, errcode.New(errcode.InvalidParams, "set_selection", string(t))
	}
	if err := d.sensorErr("set_frame", d.sensor.SetFrame(r)); err != nil {
		return Rect{}, err
	}
	d.st.Crop = r
	glog.V(2).Infof("camera %s: crop %+v", d.desc.Name, r)
	return r, nil
}

// ---- Internals ----

func (d *Device) offers(code BusCode) bool {
	for _, c := range d.codes {
		if c == code {
			return true
		}
	}
	return false
}

func (d *Device) binningEntry(mode int64) Binning {
	if mode < 0 || mode >= int64(len(d.desc.Binnings)) {
		return Binning{}
	}
	return d.desc.Binnings[mode]
}

func (d *Device) maxSizeLocked(binning int64) (w, h uint32) {
	hs, vs := d.binningEntry(binning).scale()
	return mathx.Max(d.desc.Frame.Width/hs, minFrameSide), mathx.Max(d.desc.Frame.Height/vs, minFrameSide)
}

func (d *Device) formatLocked() Format {
	return Format{
		Code:       d.st.Code,
		Width:      d.st.Crop.Width,
		Height:     d.st.Crop.Height,
		Field:      FieldNone,
		Colorspace: ColorspaceSRGB,
	}
}

// applyFormatLocked resolves the mode for (code, binning), programs the
// sensor and only then commits. Any failure leaves the state untouched.
func (d *Device) applyFormatLocked(code BusCode, binning int64, w, h uint32) (Format, error) {
	mode, err := d.modes.Resolve(code, d.board.Lanes, int(binning))
	if err != nil {
		return Format{}, err
	}
	if _, err := ComputeBounds(mode, d.desc.ClkPixelHz, d.board.Lanes); err != nil {
		return Format{}, err
	}
	maxW, maxH := d.maxSizeLocked(binning)
	crop := Rect{
		Width:  mathx.Clamp(w, minFrameSide, maxW),
		Height: mathx.Clamp(h, minFrameSide, maxH),
	}
	if err := d.sensorErr("set_mode", d.sensor.SetMode(mode, d.binningEntry(binning))); err != nil {
		return Format{}, err
	}
	if err := d.sensorErr("set_format", d.sensor.SetFormat(code)); err != nil {
		return Format{}, err
	}
	if err := d.sensorErr("set_frame", d.sensor.SetFrame(crop)); err != nil {
		return Format{}, err
	}

	d.st.Code = code
	d.st.Mode = mode
	d.st.BinningMode = binning
	d.st.Crop = crop
	if err := d.publishBoundsLocked(); err != nil {
		return Format{}, err
	}
	f := d.formatLocked()
	glog.Infof("camera %s: format %s %dx%d binning=%d hmax=%d", d.desc.Name, code, crop.Width, crop.Height, binning, mode.HMax)
	d.notify.FormatChanged(f)
	return f, nil
}
