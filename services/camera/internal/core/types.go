package core

// Rect is a rectangle in sensor pixels.
type Rect struct {
	Left   int32  `json:"left"`
	Top    int32  `json:"top"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Range is an inclusive value range with a default.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
	Def int64 `json:"def"`
}

// Mode is one readout timing of the sensor. At most one mode exists per
// (Format, Lanes, Binning) triple.
type Mode struct {
	Format  DataType `json:"format"`
	Lanes   int      `json:"lanes"`
	Binning int      `json:"binning"`
	HMax    uint32   `json:"hmax"`
	VMaxMin uint32   `json:"vmax_min"`
	VMaxMax uint32   `json:"vmax_max"`
}

// Binning is one entry of the binning table. Index 0 means no binning.
// A zero factor reads as 1.
type Binning struct {
	HFactor uint8 `json:"h_factor"`
	VFactor uint8 `json:"v_factor"`
	Value   uint8 `json:"value"` // sensor register value
}

func (b Binning) scale() (h, v uint32) {
	h, v = uint32(b.HFactor), uint32(b.VFactor)
	if h == 0 {
		h = 1
	}
	if v == 0 {
		v = 1
	}
	return h, v
}

// Descriptor is the immutable description of a sensor type.
type Descriptor struct {
	Name       string    `json:"name"`
	Modes      []Mode    `json:"modes"`
	Codes      []BusCode `json:"codes"`
	Frame      Rect      `json:"frame"`
	ClkPixelHz int64     `json:"clk_pixel_hz"`
	Binnings   []Binning `json:"binnings,omitempty"`

	Exposure   Range `json:"exposure"`    // µs
	Gain       Range `json:"gain"`        // mdB, analogue part
	DGain      Range `json:"dgain"`       // mdB, digital part
	BlackLevel Range `json:"black_level"`
}

// ExposureUnit selects how the exposure control value is interpreted.
type ExposureUnit string

const (
	ExposureLines  ExposureUnit = "lines"
	ExposureMicros ExposureUnit = "us"
)

// Board is the per-board description read once at attach.
type Board struct {
	Lanes          int          `json:"lanes"`
	RestrictedHost bool         `json:"restricted_host"`
	ExposureUnit   ExposureUnit `json:"exposure_unit,omitempty"`
	Orientation    int64        `json:"orientation"`
	Rotation       int64        `json:"rotation"`
}

// Field and colorspace of every image format.
const (
	FieldNone      = "none"
	ColorspaceSRGB = "srgb"
)

// Format is the negotiated image format on the image pad.
type Format struct {
	Code       BusCode `json:"code"`
	Width      uint32  `json:"width"`
	Height     uint32  `json:"height"`
	Field      string  `json:"field"`
	Colorspace string  `json:"colorspace"`
}

// Pads.
const (
	PadImage    = 0
	PadMetadata = 1
)

// SelectionTarget names a rectangle that GetSelection can report.
type SelectionTarget string

const (
	TargetCrop        SelectionTarget = "crop"
	TargetCropDefault SelectionTarget = "crop_default"
	TargetCropBounds  SelectionTarget = "crop_bounds"
)

// FrameSize is the range of frame sizes for one code.
type FrameSize struct {
	MinWidth  uint32 `json:"min_width"`
	MaxWidth  uint32 `json:"max_width"`
	MinHeight uint32 `json:"min_height"`
	MaxHeight uint32 `json:"max_height"`
}

const minFrameSide = 32
