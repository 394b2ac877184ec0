package board

import (
	"sort"

	"vcmipi-go/drivers/vcmipi"
	"vcmipi-go/services/camera/internal/core"
)

// Sensor is a built-in sensor type.
type Sensor struct {
	Desc   core.Descriptor
	Timing vcmipi.Timing
}

const clk7425 = 74_250_000

var builtins = map[string]Sensor{
	"imx296": {
		Desc: core.Descriptor{
			Name: "IMX296",
			Modes: []core.Mode{
				{Format: core.RAW10, Lanes: 1, HMax: 1100, VMaxMin: 1110, VMaxMax: 0xfffff},
				{Format: core.RAW8, Lanes: 1, HMax: 1100, VMaxMin: 1110, VMaxMax: 0xfffff},
				{Format: core.RAW10, Lanes: 1, Binning: 1, HMax: 1100, VMaxMin: 555, VMaxMax: 0xfffff},
			},
			Codes:      []core.BusCode{core.CodeY10, core.CodeY8},
			Frame:      core.Rect{Width: 1440, Height: 1080},
			ClkPixelHz: clk7425,
			Binnings:   []core.Binning{{}, {HFactor: 2, VFactor: 2, Value: 1}},
			Exposure:   core.Range{Min: 29, Max: 15_000_000, Def: 10_000},
			Gain:       core.Range{Max: 48_000},
			DGain:      core.Range{},
			BlackLevel: core.Range{Max: 0x3ff, Def: 0x3c},
		},
		Timing: vcmipi.Timing{ClkPixelHz: clk7425, ShsMin: 8, GainStepMdB: 100, AGainMaxMdB: 48_000},
	},
	"imx327": {
		Desc: core.Descriptor{
			Name: "IMX327",
			Modes: []core.Mode{
				{Format: core.RAW10, Lanes: 2, HMax: 4400, VMaxMin: 1125, VMaxMax: 0x3ffff},
				{Format: core.RAW12, Lanes: 2, HMax: 4400, VMaxMin: 1125, VMaxMax: 0x3ffff},
				{Format: core.RAW10, Lanes: 4, HMax: 2200, VMaxMin: 1125, VMaxMax: 0x3ffff},
				{Format: core.RAW12, Lanes: 4, HMax: 2200, VMaxMin: 1125, VMaxMax: 0x3ffff},
			},
			Codes:      []core.BusCode{core.CodeSRGGB10, core.CodeSRGGB12},
			Frame:      core.Rect{Width: 1920, Height: 1080},
			ClkPixelHz: clk7425,
			Exposure:   core.Range{Min: 1, Max: 1_000_000, Def: 10_000},
			Gain:       core.Range{Max: 30_000},
			DGain:      core.Range{Max: 42_000},
			BlackLevel: core.Range{Max: 0xfff, Def: 0xf0},
		},
		Timing: vcmipi.Timing{
			ClkPixelHz:   clk7425,
			ShsMin:       2,
			GainStepMdB:  300,
			AGainMaxMdB:  30_000,
			DGainStepMdB: 300,
			DGainMaxMdB:  42_000,
		},
	},
}

// Builtin returns a copy of the named built-in sensor type.
func Builtin(name string) (Sensor, bool) {
	s, ok := builtins[name]
	if !ok {
		return Sensor{}, false
	}
	s.Desc.Modes = append([]core.Mode(nil), s.Desc.Modes...)
	s.Desc.Codes = append([]core.BusCode(nil), s.Desc.Codes...)
	s.Desc.Binnings = append([]core.Binning(nil), s.Desc.Binnings...)
	return s, true
}

// Builtins lists the built-in sensor type names in order.
func Builtins() []string {
	out := make([]string, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
