package consts

// Topic tokens
const (
	TokConfig  = "config"
	TokCamera  = "camera"
	TokInfo    = "info"
	TokState   = "state"
	TokControl = "control"
	TokEvent   = "event"
)

// Event kinds under camera/<name>/event/
const (
	EvCtrl   = "ctrl"
	EvFmt    = "fmt"
	EvStream = "stream"
)

// Control verbs under camera/<name>/control/
const (
	CtrlList  = "ctrl_list"
	CtrlQuery = "ctrl_query"
	CtrlGet   = "ctrl_get"
	CtrlSet   = "ctrl_set"
	CtrlMenu  = "menu"
	FmtEnum   = "fmt_enum"
	SizeEnum  = "size_enum"
	FmtGet    = "fmt_get"
	FmtSet    = "fmt_set"
	SelGet    = "sel_get"
	SelSet    = "sel_set"
	Stream    = "stream"
	Power     = "power"
	Suspend   = "suspend"
	Resume    = "resume"
)

const Driver = "vcmipi"
