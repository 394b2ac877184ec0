// Package heartbeat publishes a retained liveness record with the process
// uptime and the number of attached cameras.
package heartbeat

import (
	"context"
	"time"

	"github.com/golang/glog"

	"vcmipi-go/bus"
	"vcmipi-go/types"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicHeartbeat       = bus.T("heartbeat")
	topicCameraInfo      = bus.T("camera", "+", "info")
)

const (
	defaultInterval = 5 * time.Second
	minInterval     = 100 * time.Millisecond
)

// Config is the section expected on config/heartbeat.
type Config struct {
	IntervalMS int `json:"interval_ms"`
}

type Service struct {
	start   time.Time
	cameras map[string]struct{}
}

func New() *Service {
	return &Service{cameras: map[string]struct{}{}}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	infoSub := conn.Subscribe(topicCameraInfo)
	defer conn.Unsubscribe(infoSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			glog.V(2).Info("heartbeat: stopping")
			return
		case t := <-tick.C:
			s.beat(conn, t)
		case msg := <-infoSub.Channel():
			name, _ := msg.Topic.At(1).(string)
			if msg.Payload == nil {
				delete(s.cameras, name)
			} else {
				s.cameras[name] = struct{}{}
			}
		case msg := <-cfgSub.Channel():
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				glog.Warningf("heartbeat: bad config: %v", err)
				continue
			}
			iv := time.Duration(cfg.IntervalMS) * time.Millisecond
			if iv == 0 {
				iv = defaultInterval
			} else if iv < minInterval {
				iv = minInterval
			}
			tick.Reset(iv)
			glog.V(2).Infof("heartbeat: interval %s", iv)
		}
	}
}

func (s *Service) beat(conn *bus.Connection, now time.Time) {
	hb := types.Heartbeat{
		UptimeMS: now.Sub(s.start).Milliseconds(),
		Cameras:  len(s.cameras),
		TS:       now,
	}
	conn.Publish(conn.NewMessage(topicHeartbeat, hb, true))
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.start = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}
