package core

import "fmt"

// ControlID identifies a host-visible control. Standard ids share the
// V4L2 numbering; private ids sit at the top of the user class.
type ControlID uint32

const (
	CtrlBlackLevel   ControlID = 0x0098090b
	CtrlExposure     ControlID = 0x00980911
	CtrlGain         ControlID = 0x00980913
	CtrlHFlip        ControlID = 0x00980914
	CtrlVFlip        ControlID = 0x00980915
	CtrlOrientation  ControlID = 0x009a0922
	CtrlRotation     ControlID = 0x009a0923
	CtrlVBlank       ControlID = 0x009e0901
	CtrlHBlank       ControlID = 0x009e0902
	CtrlAnalogueGain ControlID = 0x009e0903
	CtrlLinkFreq     ControlID = 0x009f0901
	CtrlPixelRate    ControlID = 0x009f0902

	ctrlPrivateBase ControlID = 0x00980900 | 0xfff0

	CtrlTriggerMode   = ctrlPrivateBase
	CtrlIOMode        = ctrlPrivateBase + 1
	CtrlFrameRate     = ctrlPrivateBase + 2
	CtrlSingleTrigger = ctrlPrivateBase + 3
	CtrlBinningMode   = ctrlPrivateBase + 4
	CtrlLiveROI       = ctrlPrivateBase + 5
	CtrlName          = ctrlPrivateBase + 6
)

func (id ControlID) String() string { return fmt.Sprintf("0x%08x", uint32(id)) }
