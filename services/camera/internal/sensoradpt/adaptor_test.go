package sensoradpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmipi-go/drivers/vcmipi"
	"vcmipi-go/services/camera/internal/core"
	"vcmipi-go/x/i2csim"
)

func le(v uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

func testDescriptor() core.Descriptor {
	return core.Descriptor{
		Name: "IMX296",
		Modes: []core.Mode{
			{Format: core.RAW10, Lanes: 2, HMax: 1100, VMaxMin: 1125, VMaxMax: 0xfffff},
		},
		Codes:      []core.BusCode{core.CodeY10},
		Frame:      core.Rect{Width: 1440, Height: 1080},
		ClkPixelHz: 74_250_000,
		Exposure:   core.Range{Min: 1, Max: 15_000_000, Def: 10_000},
		Gain:       core.Range{Max: 48_000},
		DGain:      core.Range{Max: 12_000},
		BlackLevel: core.Range{Max: 0xfff, Def: 0x3c},
	}
}

func newDevice(t *testing.T) (*core.Device, *i2csim.Bus) {
	t.Helper()
	bus := i2csim.New(vcmipi.AddressSensor, vcmipi.AddressModule)
	s := New(bus, Params{
		ModuleAddr: vcmipi.AddressModule,
		Timing:     vcmipi.Timing{ClkPixelHz: 74_250_000, ShsMin: 8, AGainMaxMdB: 48_000, DGainMaxMdB: 12_000},
	})
	dev, err := core.New(testDescriptor(), core.Board{Lanes: 2}, s, core.Options{})
	require.NoError(t, err)
	return dev, bus
}

func TestAttachDoesNotTouchTheBus(t *testing.T) {
	_, bus := newDevice(t)
	assert.Empty(t, bus.Writes())
}

func TestStreamProgramsSensor(t *testing.T) {
	dev, bus := newDevice(t)
	require.NoError(t, dev.SetStream(true))

	regs := vcmipi.DefaultRegs
	assert.Equal(t, []byte{0}, bus.Peek(vcmipi.AddressSensor, regs.Standby.Addr, 1))
	assert.Equal(t, []byte{2}, bus.Peek(vcmipi.AddressSensor, regs.Lanes.Addr, 1))
	assert.Equal(t, []byte{vcmipi.FormatRAW10}, bus.Peek(vcmipi.AddressSensor, regs.Format.Addr, 1))
	assert.Equal(t, le(1440, 2), bus.Peek(vcmipi.AddressSensor, regs.HSize.Addr, 2))
	assert.Equal(t, le(1080, 2), bus.Peek(vcmipi.AddressSensor, regs.VSize.Addr, 2))
	// 10 ms at 14814 ns per line is 675 lines, measured back from vmax.
	assert.Equal(t, le(1125-675, 3), bus.Peek(vcmipi.AddressSensor, regs.Shs.Addr, 3))

	fr, err := dev.Query(core.CtrlFrameRate)
	require.NoError(t, err)
	assert.Equal(t, int64(60003), fr.Max)

	require.NoError(t, dev.SetStream(false))
	assert.Equal(t, []byte{1}, bus.Peek(vcmipi.AddressSensor, regs.Standby.Addr, 1))
}

func TestControlsReachRegisters(t *testing.T) {
	dev, bus := newDevice(t)
	require.NoError(t, dev.SetStream(true))

	require.NoError(t, dev.Set(core.CtrlGain, 12_000))
	assert.Equal(t, le(120, 2), bus.Peek(vcmipi.AddressSensor, vcmipi.DefaultRegs.Gain.Addr, 2))

	require.NoError(t, dev.Set(core.CtrlHBlank, 200))
	// 1100 + (200 &^ 2) / 2
	assert.Equal(t, le(1200, 2), bus.Peek(vcmipi.AddressSensor, vcmipi.DefaultRegs.HMax.Addr, 2))

	require.NoError(t, dev.Set(core.CtrlTriggerMode, 1))
	assert.Equal(t, []byte{1}, bus.Peek(vcmipi.AddressModule, vcmipi.DefaultModuleRegs.TriggerMode.Addr, 1))
}

func TestSetFormatRejectsUnknownCode(t *testing.T) {
	s := New(i2csim.New(vcmipi.AddressSensor), Params{})
	assert.Error(t, s.SetFormat(core.BusCode(0x1234)))
	assert.NoError(t, s.SetFormat(core.CodeY12))
}
