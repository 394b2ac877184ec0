// Package board decodes camera board descriptions. A camera names a
// built-in sensor type or carries an inline descriptor, plus the wiring
// of the board it sits on.
package board

import (
	"fmt"
	"strings"

	"sigs.k8s.io/yaml"

	"vcmipi-go/drivers/vcmipi"
	"vcmipi-go/errcode"
	"vcmipi-go/services/camera/internal/core"
	"vcmipi-go/services/camera/internal/sensoradpt"
)

// I2C names the bus a camera sits on and its addresses. An empty Bus
// means DefaultBus.
type I2C struct {
	Bus        string `json:"bus,omitempty"`
	Addr       uint16 `json:"addr,omitempty"`
	ModuleAddr uint16 `json:"module_addr,omitempty"`
}

const DefaultBus = "i2c0"

// Camera is one entry of the camera config section.
type Camera struct {
	Name           string            `json:"name"`
	Sensor         string            `json:"sensor,omitempty"`
	Descriptor     *core.Descriptor  `json:"descriptor,omitempty"`
	Timing         *vcmipi.Timing    `json:"timing,omitempty"`
	Lanes          int               `json:"lanes"`
	RestrictedHost bool              `json:"restricted_host,omitempty"`
	ExposureUnit   core.ExposureUnit `json:"exposure_unit,omitempty"`
	Orientation    int64             `json:"orientation,omitempty"`
	Rotation       int64             `json:"rotation,omitempty"`
	I2C            I2C               `json:"i2c"`
}

// Resolved is a validated camera ready for attach.
type Resolved struct {
	Name   string
	Bus    string
	Desc   core.Descriptor
	Board  core.Board
	Params sensoradpt.Params
}

// Decode parses a camera section: a YAML or JSON list of cameras.
// Unknown fields are rejected.
func Decode(raw []byte) ([]Camera, error) {
	var cams []Camera
	if err := yaml.UnmarshalStrict(raw, &cams); err != nil {
		return nil, errcode.Wrap(errcode.InvalidPayload, "decode_board", err)
	}
	return cams, nil
}

// Load decodes and resolves every camera. Names must be unique.
func Load(raw []byte) ([]Resolved, error) {
	cams, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(cams))
	out := make([]Resolved, 0, len(cams))
	for _, c := range cams {
		if seen[c.Name] {
			return nil, invalid(c.Name, "duplicate camera name")
		}
		seen[c.Name] = true
		r, err := c.Resolve()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Resolve validates c and fills in the built-in sensor description.
func (c Camera) Resolve() (Resolved, error) {
	if c.Name == "" || strings.ContainsAny(c.Name, "/+#") {
		return Resolved{}, invalid(c.Name, "name must be non-empty and free of '/', '+' and '#'")
	}
	switch c.Lanes {
	case 1, 2, 4:
	default:
		return Resolved{}, invalid(c.Name, fmt.Sprintf("lanes %d: must be 1, 2 or 4", c.Lanes))
	}
	switch c.ExposureUnit {
	case "", core.ExposureLines, core.ExposureMicros:
	default:
		return Resolved{}, invalid(c.Name, fmt.Sprintf("exposure_unit %q", c.ExposureUnit))
	}

	var desc core.Descriptor
	var tm vcmipi.Timing
	switch {
	case c.Descriptor != nil:
		desc = *c.Descriptor
		if c.Timing != nil {
			tm = *c.Timing
		} else {
			tm = vcmipi.Timing{
				ClkPixelHz:  uint32(desc.ClkPixelHz),
				AGainMaxMdB: desc.Gain.Max,
				DGainMaxMdB: desc.DGain.Max,
			}
		}
	case c.Sensor != "":
		b, ok := Builtin(c.Sensor)
		if !ok {
			return Resolved{}, invalid(c.Name, "unknown sensor "+c.Sensor)
		}
		desc, tm = b.Desc, b.Timing
		if c.Timing != nil {
			tm = *c.Timing
		}
	default:
		return Resolved{}, invalid(c.Name, "either sensor or descriptor is required")
	}
	if err := Validate(desc); err != nil {
		return Resolved{}, invalid(c.Name, err.Error())
	}

	bus := c.I2C.Bus
	if bus == "" {
		bus = DefaultBus
	}
	return Resolved{
		Name: c.Name,
		Bus:  bus,
		Desc: desc,
		Board: core.Board{
			Lanes:          c.Lanes,
			RestrictedHost: c.RestrictedHost,
			ExposureUnit:   c.ExposureUnit,
			Orientation:    c.Orientation,
			Rotation:       c.Rotation,
		},
		Params: sensoradpt.Params{
			Addr:       c.I2C.Addr,
			ModuleAddr: c.I2C.ModuleAddr,
			Timing:     tm,
		},
	}, nil
}

// Validate checks a descriptor for the properties attach relies on.
func Validate(d core.Descriptor) error {
	if len(d.Codes) == 0 {
		return fmt.Errorf("%s: no media bus codes", d.Name)
	}
	for _, c := range d.Codes {
		if _, ok := core.MIPIFormatOf(c); !ok {
			return fmt.Errorf("%s: code %s has no MIPI data type", d.Name, c)
		}
	}
	for _, m := range d.Modes {
		if _, ok := core.BitDepth(m.Format); !ok {
			return fmt.Errorf("%s: mode format %s has no bit depth", d.Name, m.Format)
		}
		if m.VMaxMin > m.VMaxMax {
			return fmt.Errorf("%s: mode %s/%d/%d vmax_min above vmax_max", d.Name, m.Format, m.Lanes, m.Binning)
		}
		if m.Binning < 0 || m.Binning >= max(len(d.Binnings), 1) {
			return fmt.Errorf("%s: mode %s/%d/%d has no binning entry", d.Name, m.Format, m.Lanes, m.Binning)
		}
	}
	if _, err := core.NewRegistry(d.Modes); err != nil {
		return err
	}
	if d.Frame.Width == 0 || d.Frame.Height == 0 {
		return fmt.Errorf("%s: empty frame", d.Name)
	}
	if d.ClkPixelHz <= 0 {
		return fmt.Errorf("%s: pixel clock must be positive", d.Name)
	}
	return nil
}

func invalid(name, msg string) error {
	return errcode.New(errcode.InvalidParams, "board "+name, msg)
}
