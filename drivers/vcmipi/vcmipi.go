// Package vcmipi is the register-level driver for Vision Components MIPI
// CSI-2 sensor modules. It owns the sensor and I/O-module registers and
// keeps a shadow of the readout configuration; the window, lanes, format,
// binning and timing are written when streaming starts.
//
// Units: exposure in µs, gain in milli-dB, frame rate in mHz.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when
// both w and r are provided.
package vcmipi

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"

	"vcmipi-go/x/mathx"
)

var (
	ErrLanes        = errors.New("vcmipi: lane count must be 1, 2 or 4")
	ErrNoModule     = errors.New("vcmipi: no I/O module")
	ErrNoMode       = errors.New("vcmipi: readout mode not configured")
	ErrNoRegister   = errors.New("vcmipi: register not present")
	ErrRegisterSize = errors.New("vcmipi: register width out of range")
	ErrLiveROI      = errors.New("vcmipi: live roi must be non-negative")
)

// Timing holds the clock and gain characteristics of the sensor.
type Timing struct {
	ClkPixelHz   uint32 `json:"clk_pixel_hz"`
	ShsMin       uint32 `json:"shs_min"`        // minimum exposure start offset, lines
	GainStepMdB  int64  `json:"gain_step_mdb"`  // analogue gain register LSB
	AGainMaxMdB  int64  `json:"again_max_mdb"`
	DGainStepMdB int64  `json:"dgain_step_mdb"` // digital gain register LSB
	DGainMaxMdB  int64  `json:"dgain_max_mdb"`
}

type Config struct {
	Address       uint16 // defaults to AddressSensor
	ModuleAddress uint16 // 0 disables I/O-module access
	Regs          RegMap
	ModuleRegs    ModuleRegs
	Timing        Timing
}

// Mode is the readout configuration the driver programs at stream start.
type Mode struct {
	Format  uint8
	Binning uint8 // binning register value; 0 = off
	HMax    uint32
	VMaxMin uint32
	VMaxMax uint32
}

// Window is the active readout rectangle in sensor pixels.
type Window struct {
	Left, Top     int32
	Width, Height uint32
}

type Device struct {
	i2c     drivers.I2C
	addr    uint16
	modAddr uint16
	regs    RegMap
	mregs   ModuleRegs
	tm      Timing

	lanes     uint8
	mode      Mode
	haveMode  bool
	win       Window
	hmax      uint32
	vmax      uint32
	exposure  int64 // µs
	frameRate int64 // mHz, 0 = fastest
	streaming bool

	// Fixed buffer to avoid per-call heap allocations.
	w [6]byte
	r [4]byte
}

func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressSensor
	}
	regs := cfg.Regs
	if regs == (RegMap{}) {
		regs = DefaultRegs
	}
	mregs := cfg.ModuleRegs
	if mregs == (ModuleRegs{}) {
		mregs = DefaultModuleRegs
	}
	tm := cfg.Timing
	if tm.GainStepMdB <= 0 {
		tm.GainStepMdB = 100
	}
	if tm.DGainStepMdB <= 0 {
		tm.DGainStepMdB = 6000
	}
	return &Device{
		i2c:     i2c,
		addr:    addr,
		modAddr: cfg.ModuleAddress,
		regs:    regs,
		mregs:   mregs,
		tm:      tm,
	}
}

// ---------------- Readout configuration (shadowed) ----------------

func (d *Device) SetNumLanes(n int) error {
	switch n {
	case 1, 2, 4:
		d.lanes = uint8(n)
		return nil
	}
	return ErrLanes
}

func (d *Device) Lanes() int { return int(d.lanes) }

// SetMode selects the readout timing. The line length resets to the mode's
// HMax and the frame length to the fastest the mode allows.
func (d *Device) SetMode(m Mode) {
	d.mode = m
	d.haveMode = true
	d.hmax = m.HMax
	d.vmax = d.vmaxFor(d.frameRate)
}

func (d *Device) SetWindow(w Window) { d.win = w }

func (d *Device) Window() Window { return d.win }

// ---------------- Timing ----------------

// TimePerLineNs returns the line period for the current line length.
func (d *Device) TimePerLineNs() int64 {
	if d.tm.ClkPixelHz == 0 {
		return 0
	}
	return int64(d.hmax) * 1_000_000_000 / int64(d.tm.ClkPixelHz)
}

// FrameRateLimits returns min, max and default frame rate in mHz for the
// configured mode and line length.
func (d *Device) FrameRateLimits() (min, max, def int64) {
	tpl := d.TimePerLineNs()
	if !d.haveMode || tpl == 0 || d.mode.VMaxMin == 0 {
		return 0, 0, 0
	}
	max = 1_000_000_000_000 / (tpl * int64(d.mode.VMaxMin))
	if d.mode.VMaxMax > 0 {
		min = 1_000_000_000_000 / (tpl * int64(d.mode.VMaxMax))
	}
	return min, max, max
}

func (d *Device) vmaxFor(mHz int64) uint32 {
	lo, hi := d.mode.VMaxMin, d.mode.VMaxMax
	tpl := d.TimePerLineNs()
	if mHz <= 0 || tpl == 0 {
		return lo
	}
	v := 1_000_000_000_000 / (mHz * tpl)
	if v < int64(lo) {
		return lo
	}
	if hi > 0 && v > int64(hi) {
		return hi
	}
	return uint32(v)
}

// SetHMax overrides the line length and writes it immediately.
func (d *Device) SetHMax(hmax uint32) error {
	d.hmax = hmax
	if err := d.writeReg(d.regs.HMax, hmax); err != nil {
		return fmt.Errorf("vcmipi: write hmax: %w", err)
	}
	return nil
}

func (d *Device) HMax() uint32 { return d.hmax }
func (d *Device) VMax() uint32 { return d.vmax }

// SetFrameRate converts mHz into a frame length and re-derives the exposure
// offset, which is measured from the end of the frame.
func (d *Device) SetFrameRate(mHz int64) error {
	if !d.haveMode {
		return ErrNoMode
	}
	d.frameRate = mHz
	d.vmax = d.vmaxFor(mHz)
	if err := d.writeReg(d.regs.VMax, d.vmax); err != nil {
		return fmt.Errorf("vcmipi: write vmax: %w", err)
	}
	return d.writeExposure()
}

// ---------------- Exposure / gain / black level ----------------

func (d *Device) SetExposure(us int64) error {
	d.exposure = us
	if !d.haveMode {
		// Applied on the next SetFrameRate/StartStream.
		return nil
	}
	return d.writeExposure()
}

func (d *Device) Exposure() int64 { return d.exposure }

// ExposureLines converts the cached exposure into sensor lines.
func (d *Device) ExposureLines() uint32 {
	tpl := d.TimePerLineNs()
	if tpl == 0 || d.exposure <= 0 {
		return 0
	}
	return uint32(mathx.DivRound(d.exposure*1000, tpl))
}

func (d *Device) shs() uint32 {
	lines := d.ExposureLines()
	lo := d.tm.ShsMin
	if d.vmax <= lo+1 {
		return lo
	}
	if lines >= d.vmax-lo {
		return lo
	}
	return d.vmax - lines
}

func (d *Device) writeExposure() error {
	if err := d.writeReg(d.regs.Shs, d.shs()); err != nil {
		return fmt.Errorf("vcmipi: write shs: %w", err)
	}
	return nil
}

// SetGain writes gain in milli-dB. With split set, the part above the
// analogue maximum goes to the digital gain stage.
func (d *Device) SetGain(mdB int64, split bool) error {
	if mdB < 0 {
		mdB = 0
	}
	analog, digital := mdB, int64(0)
	if max := d.tm.AGainMaxMdB; max > 0 && analog > max {
		if split {
			digital = analog - max
		}
		analog = max
	}
	if max := d.tm.DGainMaxMdB; digital > max {
		digital = max
	}
	if err := d.writeReg(d.regs.Gain, uint32(analog/d.tm.GainStepMdB)); err != nil {
		return fmt.Errorf("vcmipi: write gain: %w", err)
	}
	if !split || !d.regs.DGain.present() {
		return nil
	}
	if err := d.writeReg(d.regs.DGain, uint32(digital/d.tm.DGainStepMdB)); err != nil {
		return fmt.Errorf("vcmipi: write dgain: %w", err)
	}
	return nil
}

func (d *Device) SetBlackLevel(v int64) error {
	if v < 0 {
		v = 0
	}
	if err := d.writeReg(d.regs.BlackLevel, uint32(v)); err != nil {
		return fmt.Errorf("vcmipi: write black level: %w", err)
	}
	return nil
}

// ---------------- Streaming ----------------

// StartStream programs the shadowed readout configuration and leaves
// standby.
func (d *Device) StartStream() error {
	if !d.haveMode {
		return ErrNoMode
	}
	steps := []struct {
		reg Reg
		val uint32
	}{
		{d.regs.Lanes, uint32(d.lanes)},
		{d.regs.Format, uint32(d.mode.Format)},
		{d.regs.Binning, uint32(d.mode.Binning)},
		{d.regs.HStart, uint32(d.win.Left)},
		{d.regs.VStart, uint32(d.win.Top)},
		{d.regs.HSize, d.win.Width},
		{d.regs.VSize, d.win.Height},
		{d.regs.HMax, d.hmax},
		{d.regs.VMax, d.vmax},
		{d.regs.Shs, d.shs()},
	}
	for _, s := range steps {
		if !s.reg.present() {
			continue
		}
		if err := d.writeReg(s.reg, s.val); err != nil {
			return fmt.Errorf("vcmipi: start stream: %w", err)
		}
	}
	if err := d.writeReg(d.regs.Standby, standbyOff); err != nil {
		return fmt.Errorf("vcmipi: leave standby: %w", err)
	}
	d.streaming = true
	return nil
}

// StopStream enters standby. It is safe to call when not streaming.
func (d *Device) StopStream() error {
	d.streaming = false
	if err := d.writeReg(d.regs.Standby, standbyOn); err != nil {
		return fmt.Errorf("vcmipi: enter standby: %w", err)
	}
	return nil
}

func (d *Device) Streaming() bool { return d.streaming }

// SetLiveROI moves the readout window while streaming. The value packs
// binning*1e8 + left*1e4 + top; the binning part is ignored here.
func (d *Device) SetLiveROI(v int64) error {
	if v < 0 {
		return ErrLiveROI
	}
	d.win.Left = int32((v / 10000) % 10000)
	d.win.Top = int32(v % 10000)
	if err := d.writeReg(d.regs.HStart, uint32(d.win.Left)); err != nil {
		return fmt.Errorf("vcmipi: live roi: %w", err)
	}
	if err := d.writeReg(d.regs.VStart, uint32(d.win.Top)); err != nil {
		return fmt.Errorf("vcmipi: live roi: %w", err)
	}
	return nil
}

// ---------------- I/O module ----------------

func (d *Device) SetTriggerMode(m int64) error {
	return d.writeModule(d.mregs.TriggerMode, uint32(m))
}

func (d *Device) SetIOMode(m int64) error {
	return d.writeModule(d.mregs.IOMode, uint32(m))
}

func (d *Device) SingleTrigger() error {
	return d.writeModule(d.mregs.SingleTrigger, 1)
}

func (d *Device) writeModule(r Reg, v uint32) error {
	if d.modAddr == 0 {
		return ErrNoModule
	}
	if err := d.write(d.modAddr, r, v); err != nil {
		return fmt.Errorf("vcmipi: module: %w", err)
	}
	return nil
}
