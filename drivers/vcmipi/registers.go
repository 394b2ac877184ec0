package vcmipi

// 7-bit I2C addresses.
const (
	AddressSensor = 0x1a
	AddressModule = 0x10
)

// MIPI CSI-2 data types carried by a Mode.
const (
	FormatRAW08 = 0x2a
	FormatRAW10 = 0x2b
	FormatRAW12 = 0x2c
	FormatRAW14 = 0x2d
)

// Reg is a multi-byte little-endian register. Width is in bytes (1..4).
// A zero Addr marks a register the sensor does not have.
type Reg struct {
	Addr  uint16 `json:"addr"`
	Width uint8  `json:"width"`
}

func (r Reg) present() bool { return r.Addr != 0 && r.Width != 0 }

// RegMap is the sensor-side register layout.
type RegMap struct {
	Standby    Reg `json:"standby"`
	Lanes      Reg `json:"lanes"`
	Format     Reg `json:"format"`
	Binning    Reg `json:"binning"`
	HStart     Reg `json:"hstart"`
	VStart     Reg `json:"vstart"`
	HSize      Reg `json:"hsize"`
	VSize      Reg `json:"vsize"`
	HMax       Reg `json:"hmax"`
	VMax       Reg `json:"vmax"`
	Shs        Reg `json:"shs"`
	Gain       Reg `json:"gain"`
	DGain      Reg `json:"dgain"`
	BlackLevel Reg `json:"blacklevel"`
}

// ModuleRegs is the I/O module (trigger/flash) register layout.
type ModuleRegs struct {
	TriggerMode   Reg `json:"trigger_mode"`
	IOMode        Reg `json:"io_mode"`
	SingleTrigger Reg `json:"single_trigger"`
}

// Standby register values.
const (
	standbyOn  = 0x01
	standbyOff = 0x00
)

// DefaultRegs is the Sony STARVIS style layout used by the IMX2xx/IMX3xx
// family on VC MIPI modules.
var DefaultRegs = RegMap{
	Standby:    Reg{0x3000, 1},
	Lanes:      Reg{0x3040, 1},
	Format:     Reg{0x3046, 1},
	Binning:    Reg{0x3007, 1},
	HStart:     Reg{0x3044, 2},
	VStart:     Reg{0x3048, 2},
	HSize:      Reg{0x3054, 2},
	VSize:      Reg{0x3058, 2},
	HMax:       Reg{0x301c, 2},
	VMax:       Reg{0x3018, 3},
	Shs:        Reg{0x3020, 3},
	Gain:       Reg{0x3014, 2},
	DGain:      Reg{0x3016, 1},
	BlackLevel: Reg{0x300a, 2},
}

var DefaultModuleRegs = ModuleRegs{
	TriggerMode:   Reg{0x0100, 1},
	IOMode:        Reg{0x0101, 1},
	SingleTrigger: Reg{0x0102, 1},
}
