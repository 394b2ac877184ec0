package types

import "time"

// ---- Geometry ----

type Rect struct {
	Left   int32  `json:"left"`
	Top    int32  `json:"top"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// ---- Camera info & state (retained) ----

type CameraInfo struct {
	Name           string   `json:"name"`
	Sensor         string   `json:"sensor"`
	Lanes          int      `json:"lanes"`
	RestrictedHost bool     `json:"restricted_host"`
	ExposureUnit   string   `json:"exposure_unit"`
	Codes          []string `json:"codes"`
	Frame          Rect     `json:"frame"`
	Controls       int      `json:"controls"`
}

type CameraState struct {
	Phase     string    `json:"phase"` // "idle", "starting", "streaming", "stopping"
	Session   string    `json:"session,omitempty"`
	Streaming bool      `json:"streaming"`
	Powered   bool      `json:"powered"`
	PowerRefs int       `json:"power_refs"`
	Format    Format    `json:"format"`
	Crop      Rect      `json:"crop"`
	LinkFreq  int64     `json:"link_freq"`
	PixelRate int64     `json:"pixel_rate"`
	TS        time.Time `json:"ts"`
}

// ---- Controls ----

type MenuItem struct {
	Index int64  `json:"index"`
	Name  string `json:"name,omitempty"`
	Value int64  `json:"value,omitempty"`
}

type ControlInfo struct {
	ID       uint32     `json:"id"`
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Min      int64      `json:"min"`
	Max      int64      `json:"max"`
	Def      int64      `json:"def"`
	Step     int64      `json:"step"`
	ReadOnly bool       `json:"read_only,omitempty"`
	Volatile bool       `json:"volatile,omitempty"`
	Menu     []MenuItem `json:"menu,omitempty"`
}

// ControlRef addresses one control; Index is used by "menu" only.
type ControlRef struct {
	ID    uint32 `json:"id"`
	Index int64  `json:"index,omitempty"`
}

type ControlValue struct {
	ID    uint32 `json:"id"`
	Value int64  `json:"value"`
	Str   string `json:"str,omitempty"`
}

// ControlSet applies values in order and stops at the first failure.
type ControlSet struct {
	Controls []ControlValue `json:"controls"`
}

type ControlSetReply struct {
	OK      bool   `json:"ok"`
	Applied int    `json:"applied"`
	Failed  uint32 `json:"failed,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ControlList struct {
	Controls []ControlInfo `json:"controls"`
}

// ---- Formats & selections ----

type Format struct {
	Code       string `json:"code"`
	Width      uint32 `json:"width"`
	Height     uint32 `json:"height"`
	Field      string `json:"field,omitempty"`
	Colorspace string `json:"colorspace,omitempty"`
}

type FormatEnum struct {
	Pad int `json:"pad"`
}

type FormatList struct {
	Pad   int      `json:"pad"`
	Codes []string `json:"codes"`
}

type FrameSizeEnum struct {
	Code string `json:"code"`
}

type FrameSize struct {
	Code      string `json:"code"`
	MinWidth  uint32 `json:"min_width"`
	MaxWidth  uint32 `json:"max_width"`
	MinHeight uint32 `json:"min_height"`
	MaxHeight uint32 `json:"max_height"`
}

type Selection struct {
	Target string `json:"target"`
	Rect   Rect   `json:"rect"`
}

// ---- Stream & power ----

type StreamSet struct {
	On bool `json:"on"`
}

type StreamReply struct {
	OK      bool   `json:"ok"`
	Session string `json:"session,omitempty"`
}

type PowerSet struct {
	On bool `json:"on"`
}

// ---- Events (non-retained) ----

type ControlEvent struct {
	ID    uint32    `json:"id"`
	Name  string    `json:"name"`
	Value int64     `json:"value"`
	Str   string    `json:"str,omitempty"`
	TS    time.Time `json:"ts"`
}

type FormatEvent struct {
	Format Format    `json:"format"`
	TS     time.Time `json:"ts"`
}

type StreamEvent struct {
	Streaming bool      `json:"streaming"`
	Session   string    `json:"session"`
	TS        time.Time `json:"ts"`
}
