package camera

import (
	"time"

	"vcmipi-go/services/camera/internal/core"
	"vcmipi-go/types"
)

func toRect(r core.Rect) types.Rect {
	return types.Rect{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Height}
}

func fromRect(r types.Rect) core.Rect {
	return core.Rect{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Height}
}

func toFormat(f core.Format) types.Format {
	return types.Format{
		Code:       f.Code.String(),
		Width:      f.Width,
		Height:     f.Height,
		Field:      f.Field,
		Colorspace: f.Colorspace,
	}
}

func codeNames(codes []core.BusCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.String()
	}
	return out
}

func cameraInfo(name string, dev *core.Device) types.CameraInfo {
	desc, b := dev.Descriptor(), dev.Board()
	codes, _ := dev.EnumFormats(core.PadImage)
	return types.CameraInfo{
		Name:           name,
		Sensor:         desc.Name,
		Lanes:          b.Lanes,
		RestrictedHost: b.RestrictedHost,
		ExposureUnit:   string(dev.ExposureUnit()),
		Codes:          codeNames(codes),
		Frame:          toRect(desc.Frame),
		Controls:       len(dev.Enumerate()),
	}
}

func cameraState(dev *core.Device) types.CameraState {
	st, bd := dev.Snapshot(), dev.Bounds()
	return types.CameraState{
		Phase:     dev.Phase().String(),
		Session:   dev.Session(),
		Streaming: st.Streaming,
		Powered:   st.Powered,
		PowerRefs: st.PowerRefs,
		Format:    toFormat(dev.GetFormat()),
		Crop:      toRect(st.Crop),
		LinkFreq:  bd.LinkFreq,
		PixelRate: bd.PixelRate,
		TS:        time.Now(),
	}
}

func controlInfo(dev *core.Device, c core.ControlDescriptor) types.ControlInfo {
	ci := types.ControlInfo{
		ID:       uint32(c.ID),
		Name:     c.Name,
		Kind:     c.Kind.String(),
		Min:      c.Min,
		Max:      c.Max,
		Def:      c.Def,
		Step:     c.Step,
		ReadOnly: c.ReadOnly(),
		Volatile: c.Flags&core.FlagVolatile != 0,
	}
	n := len(c.Menu)
	if c.Kind == core.KindIntMenu {
		n = len(c.IntMenu)
	}
	for i := 0; i < n; i++ {
		m, err := dev.QueryMenu(c.ID, int64(i))
		if err != nil {
			break
		}
		ci.Menu = append(ci.Menu, types.MenuItem{Index: m.Index, Name: m.Name, Value: m.Value})
	}
	return ci
}
