// Package bridge mirrors the local bus to a remote broker. Local messages
// under the mirrored patterns are published upstream as JSON under a
// prefix; remote control requests arriving on
// <prefix>/camera/<name>/control/<verb> are forwarded as local requests
// and answered on the same topic with a trailing "/reply".
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"vcmipi-go/bus"
	"vcmipi-go/errcode"
	"vcmipi-go/types"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

var (
	topicConfig = bus.T("config", "bridge")
	topicState  = bus.T("bridge", "state")
)

// Start starts the bridge service. It blocks until ctx is cancelled.
// It listens for config on topic config/bridge and (re)configures the link.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{conn: conn}
	s.run(ctx)
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the configuration expected on config/bridge.
type Config struct {
	Enabled   bool     `json:"enabled"`
	Transport string   `json:"transport,omitempty"` // default "mqtt"
	Broker    string   `json:"broker,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	Password  string   `json:"password,omitempty"`
	Prefix    string   `json:"prefix,omitempty"`
	QoS       byte     `json:"qos,omitempty"`
	Mirror    []string `json:"mirror,omitempty"` // local patterns, default camera/#

	RequestTimeoutMS int `json:"request_timeout_ms,omitempty"`
}

const (
	defaultPrefix  = "vcmipi"
	defaultTimeout = 2 * time.Second
	replySuffix    = "reply"
)

func (c *Config) setDefaults() {
	if c.Transport == "" {
		c.Transport = "mqtt"
	}
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
	if c.ClientID == "" {
		c.ClientID = "vcmipi-" + uuid.NewString()[:8]
	}
	if len(c.Mirror) == 0 {
		c.Mirror = []string{"camera/#"}
	}
}

func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeoutMS <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn *bus.Connection

	mu     sync.Mutex
	curRun context.CancelFunc
	curCfg atomic.Value // stores Config
}

// run waits for config and supervises a single link instance.
func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if !cfg.Enabled {
				s.stopCurrent()
				s.publishState("idle", "disabled", nil)
				continue
			}
			cfg.setDefaults()
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	s.curCfg.Store(cfg)
	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision and I/O
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		link, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		glog.Infof("bridge: link up via %s", tr)
		err = s.handleLink(ctx, cfg, link)
		link.Close()
		if err != nil {
			delay := backoff()
			glog.Warningf("bridge: link lost: %v", err)
			s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		return
	}
}

type inbound struct {
	topic   string
	payload []byte
}

// handleLink owns the active link lifetime.
func (s *Service) handleLink(ctx context.Context, cfg Config, link Link) error {
	in := make(chan inbound, 32)
	filter := cfg.Prefix + "/camera/+/control/+"
	err := link.Subscribe(filter, func(topic string, payload []byte) {
		select {
		case in <- inbound{topic: topic, payload: append([]byte(nil), payload...)}:
		default:
			glog.Warningf("bridge: inbound queue full, dropping %s", topic)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}

	up := make(chan *bus.Message, 64)
	var subs []*bus.Subscription
	for _, p := range cfg.Mirror {
		sub := s.conn.Subscribe(parseTopic(p))
		subs = append(subs, sub)
		go func() {
			for m := range sub.Channel() {
				select {
				case up <- m:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	defer func() {
		for _, sub := range subs {
			s.conn.Unsubscribe(sub)
		}
	}()
	s.publishState("up", "link_established", nil)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-link.Lost():
			if err == nil {
				err = errors.New("connection closed")
			}
			return err
		case m := <-up:
			if m.CanReply() {
				// Requests are answered locally, not mirrored.
				continue
			}
			if err := s.mirror(cfg, link, m); err != nil {
				return err
			}
		case r := <-in:
			go s.forward(ctx, cfg, link, r)
		}
	}
}

func (s *Service) mirror(cfg Config, link Link, m *bus.Message) error {
	var body []byte
	if m.Payload != nil {
		b, err := json.Marshal(m.Payload)
		if err != nil {
			glog.Warningf("bridge: cannot encode %s: %v", m.Topic, err)
			return nil
		}
		body = b
	}
	return link.Publish(cfg.Prefix+"/"+m.Topic.String(), body, m.Retained)
}

// forward turns a remote request into a local one and publishes the reply.
func (s *Service) forward(ctx context.Context, cfg Config, link Link, r inbound) {
	local := strings.TrimPrefix(r.topic, cfg.Prefix+"/")
	ctx, cancel := context.WithTimeout(ctx, cfg.requestTimeout())
	defer cancel()

	var reply any
	req := s.conn.NewMessage(parseTopic(local), json.RawMessage(r.payload), false)
	if len(r.payload) == 0 {
		req.Payload = nil
	}
	m, err := s.conn.RequestWait(ctx, req)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reply = types.ErrorReply{OK: false, Error: string(errcode.Timeout)}
	case err != nil:
		reply = types.ErrorReply{OK: false, Error: string(errcode.Of(err)), Msg: err.Error()}
	default:
		reply = m.Payload
	}
	body, err := json.Marshal(reply)
	if err != nil {
		glog.Errorf("bridge: encode reply for %s: %v", local, err)
		return
	}
	if err := link.Publish(r.topic+"/"+replySuffix, body, false); err != nil {
		glog.Warningf("bridge: publish reply for %s: %v", local, err)
	}
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func parseTopic(s string) bus.Topic {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	t := make([]any, len(parts))
	for i, p := range parts {
		t[i] = p
	}
	return bus.T(t...)
}

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case Config:
		return v, nil
	case json.RawMessage:
		return cfg, json.Unmarshal(v, &cfg)
	case []byte:
		return cfg, json.Unmarshal(v, &cfg)
	case string:
		return cfg, json.Unmarshal([]byte(v), &cfg)
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		return cfg, json.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
}

func (s *Service) publishState(level, status string, err error) {
	pl := types.ServiceState{Level: level, Status: status, TS: time.Now()}
	if err != nil {
		pl.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, pl, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
