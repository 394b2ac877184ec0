package core

// Sensor is the register layer the control plane drives. Readout
// configuration calls (lanes, format, frame, mode) may be shadowed and
// only reach the chip at StartStream.
type Sensor interface {
	SetNumLanes(n int) error
	SetFormat(code BusCode) error
	SetFrame(r Rect) error
	SetMode(m Mode, b Binning) error

	SetExposure(us int64) error
	SetGain(mdB int64, split bool) error
	SetBlackLevel(v int64) error
	SetHMax(hmax uint32) error
	SetFrameRate(mHz int64) error
	FrameRateRange() Range
	TimePerLineNs() int64

	SetTriggerMode(m int64) error
	SetIOMode(m int64) error
	SingleTrigger() error
	SetLiveROI(v int64) error

	StartStream() error
	StopStream() error
}

// PowerRail switches the sensor supply. It is optional.
type PowerRail interface {
	SetPower(on bool) error
}

// Notifier receives change notifications. Methods are called with the
// device lock held and must not call back into the Device.
type Notifier interface {
	ControlChanged(id ControlID, v Value)
	FormatChanged(f Format)
	StreamChanged(streaming bool, session string)
}

type nopNotifier struct{}

func (nopNotifier) ControlChanged(ControlID, Value) {}
func (nopNotifier) FormatChanged(Format) {}
func (nopNotifier) StreamChanged(bool, string) {}
