// Package camera exposes VC MIPI cameras on the bus. Cameras are attached
// from the retained config/camera section; each answers control requests
// on camera/<name>/control/<verb> and publishes retained info and state
// plus change events.
package camera

import (
	"context"
	"reflect"
	"time"

	"github.com/golang/glog"
	"tinygo.org/x/drivers"

	"vcmipi-go/bus"
	"vcmipi-go/errcode"
	"vcmipi-go/services/camera/internal/board"
	"vcmipi-go/services/camera/internal/consts"
	"vcmipi-go/services/camera/internal/core"
	"vcmipi-go/services/camera/internal/sensoradpt"
	"vcmipi-go/services/camera/internal/util"
	"vcmipi-go/types"
)

// I2CBusFactory resolves the I2C bus named in a camera's config.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// RailFactory resolves an optional power rail per camera.
type RailFactory interface {
	ByCamera(name string) (core.PowerRail, bool)
}

type camEntry struct {
	cfg    board.Resolved
	dev    *core.Device
	events *events
}

type Service struct {
	conn  *bus.Connection
	buses I2CBusFactory
	rails RailFactory

	cams       map[string]*camEntry
	configured bool
}

var (
	topicConfigCamera = bus.T(consts.TokConfig, consts.TokCamera)
	topicCtrl         = bus.T(consts.TokCamera, "+", consts.TokControl, "+")
	topicState        = bus.T(consts.TokCamera, consts.TokState)
)

// New creates the service. rails may be nil.
func New(conn *bus.Connection, buses I2CBusFactory, rails RailFactory) *Service {
	return &Service{
		conn:  conn,
		buses: buses,
		rails: rails,
		cams:  map[string]*camEntry{},
	}
}

func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfigCamera)
	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			for name := range s.cams {
				s.detach(name)
			}
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			if err := s.applyConfig(msg.Payload); err != nil {
				glog.Errorf("camera: apply config: %v", err)
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.configured = true
			s.publishState("ready", "configured", nil)

		case msg, ok := <-ctrlSub.Channel():
			if !ok {
				return
			}
			s.handleControl(msg)
		}
	}
}

// ---- configuration ----

func (s *Service) applyConfig(payload any) error {
	raw, err := util.Raw(payload)
	if err != nil {
		return errcode.Wrap(errcode.InvalidPayload, "config", err)
	}
	cams, err := board.Load(raw)
	if err != nil {
		return err
	}

	seen := map[string]struct{}{}
	var firstErr error
	for _, r := range cams {
		seen[r.Name] = struct{}{}
		if old, ok := s.cams[r.Name]; ok {
			if reflect.DeepEqual(old.cfg, r) {
				continue
			}
			s.detach(r.Name)
		}
		if err := s.attach(r); err != nil {
			glog.Errorf("camera %s: attach: %v", r.Name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	// Tidy up cameras no longer in config.
	for name := range s.cams {
		if _, ok := seen[name]; !ok {
			s.detach(name)
		}
	}
	return firstErr
}

func (s *Service) attach(r board.Resolved) error {
	i2c, ok := s.buses.ByID(r.Bus)
	if !ok {
		return errcode.New(errcode.InvalidParams, "attach "+r.Name, "unknown i2c bus "+r.Bus)
	}
	var rail core.PowerRail
	if s.rails != nil {
		if rl, ok := s.rails.ByCamera(r.Name); ok {
			rail = rl
		}
	}
	ev := &events{conn: s.conn, name: r.Name}
	dev, err := core.New(r.Desc, r.Board, sensoradpt.New(i2c, r.Params), core.Options{Rail: rail, Notify: ev})
	if err != nil {
		return err
	}
	ev.learn(dev.Enumerate())
	ent := &camEntry{cfg: r, dev: dev, events: ev}
	s.cams[r.Name] = ent

	s.pubRet(r.Name, consts.TokInfo, types.Info{
		SchemaVersion: 1,
		Driver:        consts.Driver,
		Detail:        cameraInfo(r.Name, dev),
	})
	s.publishCamState(ent)
	glog.Infof("camera %s: attached %s on %s", r.Name, r.Desc.Name, r.Bus)
	return nil
}

func (s *Service) detach(name string) {
	ent, ok := s.cams[name]
	if !ok {
		return
	}
	ent.dev.Close()
	delete(s.cams, name)
	s.pubRet(name, consts.TokInfo, nil)
	s.pubRet(name, consts.TokState, nil)
	glog.Infof("camera %s: detached", name)
}

// ---- bus helpers ----

func (s *Service) publishState(level, status string, err error) {
	pl := types.ServiceState{Level: level, Status: status, TS: time.Now()}
	if err != nil {
		pl.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, pl, true))
}

func (s *Service) publishCamState(ent *camEntry) {
	s.pubRet(ent.cfg.Name, consts.TokState, cameraState(ent.dev))
}

func camTopic(name string, suffix ...any) bus.Topic {
	return bus.T(consts.TokCamera, name).Append(suffix...)
}

// pubRet publishes p retained under the camera; nil clears it.
func (s *Service) pubRet(name, suffix string, p any) {
	s.conn.Publish(s.conn.NewMessage(camTopic(name, suffix), p, true))
}

func (s *Service) replyErr(req *bus.Message, err error) {
	if !req.CanReply() {
		return
	}
	s.conn.Reply(req, errorReply(err), false)
}

func errorReply(err error) types.ErrorReply {
	return types.ErrorReply{OK: false, Error: string(errcode.Of(err)), Msg: err.Error()}
}
