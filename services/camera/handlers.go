package camera

import (
	"github.com/golang/glog"

	"vcmipi-go/bus"
	"vcmipi-go/errcode"
	"vcmipi-go/services/camera/internal/consts"
	"vcmipi-go/services/camera/internal/core"
	"vcmipi-go/services/camera/internal/util"
	"vcmipi-go/types"
)

func (s *Service) handleControl(msg *bus.Message) {
	if msg.Topic.Len() < 4 {
		return
	}
	if !s.configured {
		s.replyErr(msg, errcode.NotReady)
		return
	}
	name, _ := msg.Topic.At(1).(string)
	verb, _ := msg.Topic.At(3).(string)
	ent, ok := s.cams[name]
	if !ok {
		s.replyErr(msg, errcode.New(errcode.InvalidTopic, verb, "unknown camera "+name))
		return
	}

	res, mutated, err := s.dispatch(ent.dev, verb, msg.Payload)
	if mutated {
		s.publishCamState(ent)
	}
	if err != nil {
		glog.V(2).Infof("camera %s: %s: %v", name, verb, err)
		if batch, ok := res.(types.ControlSetReply); ok {
			if msg.CanReply() {
				s.conn.Reply(msg, batch, false)
			}
			return
		}
		s.replyErr(msg, err)
		return
	}
	if res == nil {
		res = types.OKReply{OK: true}
	}
	if msg.CanReply() {
		s.conn.Reply(msg, res, false)
	}
}

func decode[T any](verb string, p any) (T, error) {
	v, err := util.Decode[T](p)
	if err != nil {
		return v, errcode.Wrap(errcode.InvalidPayload, verb, err)
	}
	return v, nil
}

// dispatch runs one verb. mutated reports whether camera state may have
// changed, even on failure.
func (s *Service) dispatch(dev *core.Device, verb string, payload any) (res any, mutated bool, err error) {
	switch verb {

	// ---- controls ----

	case consts.CtrlList:
		var out types.ControlList
		for _, c := range dev.Enumerate() {
			out.Controls = append(out.Controls, controlInfo(dev, c))
		}
		return out, false, nil

	case consts.CtrlQuery:
		ref, err := decode[types.ControlRef](verb, payload)
		if err != nil {
			return nil, false, err
		}
		c, err := dev.Query(core.ControlID(ref.ID))
		if err != nil {
			return nil, false, err
		}
		return controlInfo(dev, c), false, nil

	case consts.CtrlMenu:
		ref, err := decode[types.ControlRef](verb, payload)
		if err != nil {
			return nil, false, err
		}
		m, err := dev.QueryMenu(core.ControlID(ref.ID), ref.Index)
		if err != nil {
			return nil, false, err
		}
		return types.MenuItem{Index: m.Index, Name: m.Name, Value: m.Value}, false, nil

	case consts.CtrlGet:
		ref, err := decode[types.ControlRef](verb, payload)
		if err != nil {
			return nil, false, err
		}
		v, err := dev.Get(core.ControlID(ref.ID))
		if err != nil {
			return nil, false, err
		}
		return types.ControlValue{ID: ref.ID, Value: v.Int, Str: v.Str}, false, nil

	case consts.CtrlSet:
		set, err := decode[types.ControlSet](verb, payload)
		if err != nil {
			return nil, false, err
		}
		if len(set.Controls) == 0 {
			return nil, false, errcode.New(errcode.InvalidPayload, verb, "no controls")
		}
		rep, err := setControls(dev, set)
		return rep, rep.Applied > 0, err

	// ---- formats & selections ----

	case consts.FmtEnum:
		req, err := decode[types.FormatEnum](verb, payload)
		if err != nil {
			return nil, false, err
		}
		codes, err := dev.EnumFormats(req.Pad)
		if err != nil {
			return nil, false, err
		}
		return types.FormatList{Pad: req.Pad, Codes: codeNames(codes)}, false, nil

	case consts.SizeEnum:
		req, err := decode[types.FrameSizeEnum](verb, payload)
		if err != nil {
			return nil, false, err
		}
		code, err := core.ParseBusCode(req.Code)
		if err != nil {
			return nil, false, errcode.Wrap(errcode.InvalidParams, verb, err)
		}
		fs, err := dev.EnumFrameSize(code)
		if err != nil {
			return nil, false, err
		}
		return types.FrameSize{
			Code:      code.String(),
			MinWidth:  fs.MinWidth,
			MaxWidth:  fs.MaxWidth,
			MinHeight: fs.MinHeight,
			MaxHeight: fs.MaxHeight,
		}, false, nil

	case consts.FmtGet:
		return toFormat(dev.GetFormat()), false, nil

	case consts.FmtSet:
		req, err := decode[types.Format](verb, payload)
		if err != nil {
			return nil, false, err
		}
		code, err := core.ParseBusCode(req.Code)
		if err != nil {
			return nil, false, errcode.Wrap(errcode.InvalidParams, verb, err)
		}
		f, err := dev.SetFormat(core.Format{Code: code, Width: req.Width, Height: req.Height})
		if err != nil {
			return nil, false, err
		}
		return toFormat(f), true, nil

	case consts.SelGet:
		req, err := decode[types.Selection](verb, payload)
		if err != nil {
			return nil, false, err
		}
		if req.Target == "" {
			req.Target = string(core.TargetCrop)
		}
		r, err := dev.GetSelection(core.SelectionTarget(req.Target))
		if err != nil {
			return nil, false, err
		}
		return types.Selection{Target: req.Target, Rect: toRect(r)}, false, nil

	case consts.SelSet:
		req, err := decode[types.Selection](verb, payload)
		if err != nil {
			return nil, false, err
		}
		if req.Target == "" {
			req.Target = string(core.TargetCrop)
		}
		r, err := dev.SetSelection(core.SelectionTarget(req.Target), fromRect(req.Rect))
		if err != nil {
			return nil, false, err
		}
		return types.Selection{Target: req.Target, Rect: toRect(r)}, true, nil

	// ---- stream & power ----

	case consts.Stream:
		req, err := decode[types.StreamSet](verb, payload)
		if err != nil {
			return nil, false, err
		}
		if err := dev.SetStream(req.On); err != nil {
			return nil, true, err
		}
		return types.StreamReply{OK: true, Session: dev.Session()}, true, nil

	case consts.Power:
		req, err := decode[types.PowerSet](verb, payload)
		if err != nil {
			return nil, false, err
		}
		return nil, true, dev.SetPower(req.On)

	case consts.Suspend:
		return nil, true, dev.Suspend()

	case consts.Resume:
		return nil, true, dev.Resume()
	}
	return nil, false, errcode.New(errcode.Unsupported, verb, "unknown verb")
}

// setControls applies a batch inside one power reference and stops at the
// first failure.
func setControls(dev *core.Device, set types.ControlSet) (types.ControlSetReply, error) {
	if err := dev.AcquirePower(); err != nil {
		return types.ControlSetReply{Error: string(errcode.Of(err))}, err
	}
	defer dev.ReleasePower()

	rep := types.ControlSetReply{OK: true}
	for _, c := range set.Controls {
		if err := dev.Set(core.ControlID(c.ID), c.Value); err != nil {
			rep.OK = false
			rep.Failed = c.ID
			rep.Error = string(errcode.Of(err))
			return rep, err
		}
		rep.Applied++
	}
	return rep, nil
}
