package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BusCode is a media-bus pixel code as exchanged with the host.
type BusCode uint32

const (
	CodeY8  BusCode = 0x2001
	CodeY10 BusCode = 0x200a
	CodeY12 BusCode = 0x2013
	CodeY14 BusCode = 0x202d

	CodeSBGGR8  BusCode = 0x3001
	CodeSGRBG8  BusCode = 0x3002
	CodeSBGGR10 BusCode = 0x3007
	CodeSBGGR12 BusCode = 0x3008
	CodeSGRBG10 BusCode = 0x300a
	CodeSGBRG10 BusCode = 0x300e
	CodeSRGGB10 BusCode = 0x300f
	CodeSGBRG12 BusCode = 0x3010
	CodeSGRBG12 BusCode = 0x3011
	CodeSRGGB12 BusCode = 0x3012
	CodeSGBRG8  BusCode = 0x3013
	CodeSRGGB8  BusCode = 0x3014
	CodeSBGGR14 BusCode = 0x3019
	CodeSGBRG14 BusCode = 0x301a
	CodeSGRBG14 BusCode = 0x301b
	CodeSRGGB14 BusCode = 0x301c

	// CodeSensorData is the only code on the metadata pad.
	CodeSensorData BusCode = 0x7002
)

// DataType is a MIPI CSI-2 data type.
type DataType uint8

const (
	RAW8  DataType = 0x2a
	RAW10 DataType = 0x2b
	RAW12 DataType = 0x2c
	RAW14 DataType = 0x2d
)

type codeInfo struct {
	name string
	dt   DataType
}

var codeTable = map[BusCode]codeInfo{
	CodeY8:      {"Y8_1X8", RAW8},
	CodeY10:     {"Y10_1X10", RAW10},
	CodeY12:     {"Y12_1X12", RAW12},
	CodeY14:     {"Y14_1X14", RAW14},
	CodeSBGGR8:  {"SBGGR8_1X8", RAW8},
	CodeSGBRG8:  {"SGBRG8_1X8", RAW8},
	CodeSGRBG8:  {"SGRBG8_1X8", RAW8},
	CodeSRGGB8:  {"SRGGB8_1X8", RAW8},
	CodeSBGGR10: {"SBGGR10_1X10", RAW10},
	CodeSGBRG10: {"SGBRG10_1X10", RAW10},
	CodeSGRBG10: {"SGRBG10_1X10", RAW10},
	CodeSRGGB10: {"SRGGB10_1X10", RAW10},
	CodeSBGGR12: {"SBGGR12_1X12", RAW12},
	CodeSGBRG12: {"SGBRG12_1X12", RAW12},
	CodeSGRBG12: {"SGRBG12_1X12", RAW12},
	CodeSRGGB12: {"SRGGB12_1X12", RAW12},
	CodeSBGGR14: {"SBGGR14_1X14", RAW14},
	CodeSGBRG14: {"SGBRG14_1X14", RAW14},
	CodeSGRBG14: {"SGRBG14_1X14", RAW14},
	CodeSRGGB14: {"SRGGB14_1X14", RAW14},
}

// restrictedExclude lists codes a restricted host pipeline cannot handle.
var restrictedExclude = map[BusCode]bool{
	CodeY14: true,
}

// MIPIFormatOf maps a bus code to the data type it is carried as.
func MIPIFormatOf(c BusCode) (DataType, bool) {
	ci, ok := codeTable[c]
	return ci.dt, ok
}

// BitDepth returns the bits per pixel of a data type.
func BitDepth(dt DataType) (int, bool) {
	switch dt {
	case RAW8:
		return 8, true
	case RAW10:
		return 10, true
	case RAW12:
		return 12, true
	case RAW14:
		return 14, true
	}
	return 0, false
}

func (c BusCode) String() string {
	if ci, ok := codeTable[c]; ok {
		return ci.name
	}
	if c == CodeSensorData {
		return "SENSOR_DATA"
	}
	return fmt.Sprintf("0x%04x", uint32(c))
}

// ParseBusCode accepts a code name ("Y10_1X10") or a number.
func ParseBusCode(s string) (BusCode, error) {
	for c, ci := range codeTable {
		if ci.name == s {
			return c, nil
		}
	}
	if s == "SENSOR_DATA" {
		return CodeSensorData, nil
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown bus code %q", s)
	}
	return BusCode(n), nil
}

func (c BusCode) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *BusCode) UnmarshalJSON(b []byte) error {
	var n uint32
	if err := json.Unmarshal(b, &n); err == nil {
		*c = BusCode(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseBusCode(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var dataTypeNames = map[DataType]string{
	RAW8:  "RAW8",
	RAW10: "RAW10",
	RAW12: "RAW12",
	RAW14: "RAW14",
}

func (dt DataType) String() string {
	if s, ok := dataTypeNames[dt]; ok {
		return s
	}
	return fmt.Sprintf("0x%02x", uint8(dt))
}

func (dt DataType) MarshalJSON() ([]byte, error) { return json.Marshal(dt.String()) }

func (dt *DataType) UnmarshalJSON(b []byte) error {
	var n uint8
	if err := json.Unmarshal(b, &n); err == nil {
		*dt = DataType(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for v, name := range dataTypeNames {
		if name == s {
			*dt = v
			return nil
		}
	}
	n64, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return fmt.Errorf("unknown data type %q", s)
	}
	*dt = DataType(n64)
	return nil
}
