package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Link is one established upstream connection.
type Link interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(filter string, fn func(topic string, payload []byte)) error
	// Lost yields once when the connection drops.
	Lost() <-chan error
	Close()
}

// Transport is a pluggable link dialler.
type Transport interface {
	Open(ctx context.Context) (Link, error)
	String() string
}

type transportFactory func(Config) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}
)

// RegisterTransport allows external packages to add transports.
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg Config) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Transport]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Transport {
	case "mqtt":
		return newMQTTTransport(cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Transport)
	}
}

// -----------------------------------------------------------------------------
// MQTT
// -----------------------------------------------------------------------------

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	onlineSuffix   = "bridge/online"
)

var errTimeout = errors.New("mqtt: operation timed out")

type mqttTransport struct {
	cfg Config
}

func newMQTTTransport(cfg Config) (Transport, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt transport requires a broker")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt qos %d out of range", cfg.QoS)
	}
	return &mqttTransport{cfg: cfg}, nil
}

func (t *mqttTransport) String() string { return "mqtt " + t.cfg.Broker }

func (t *mqttTransport) Open(ctx context.Context) (Link, error) {
	lost := make(chan error, 1)
	online := t.cfg.Prefix + "/" + onlineSuffix

	opts := mqtt.NewClientOptions().AddBroker(t.cfg.Broker).SetClientID(t.cfg.ClientID)
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(2 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(false)
	opts.SetCleanSession(true)
	opts.SetWill(online, "false", 1, true)
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		select {
		case lost <- err:
		default:
		}
	})

	c := mqtt.NewClient(opts)
	if err := wait(ctx, c.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", t.cfg.Broker, err)
	}
	l := &mqttLink{c: c, qos: t.cfg.QoS, lost: lost, online: online}
	if err := l.Publish(online, []byte("true"), true); err != nil {
		c.Disconnect(250)
		return nil, err
	}
	return l, nil
}

type mqttLink struct {
	c      mqtt.Client
	qos    byte
	lost   chan error
	online string
}

func (l *mqttLink) Publish(topic string, payload []byte, retained bool) error {
	return wait(context.Background(), l.c.Publish(topic, l.qos, retained, payload), publishTimeout)
}

func (l *mqttLink) Subscribe(filter string, fn func(topic string, payload []byte)) error {
	tok := l.c.Subscribe(filter, l.qos, func(_ mqtt.Client, m mqtt.Message) {
		fn(m.Topic(), m.Payload())
	})
	return wait(context.Background(), tok, publishTimeout)
}

func (l *mqttLink) Lost() <-chan error { return l.lost }

func (l *mqttLink) Close() {
	_ = l.Publish(l.online, []byte("false"), true)
	l.c.Disconnect(250)
}

// wait blocks on tok until it completes, ctx ends or d elapses.
func wait(ctx context.Context, tok mqtt.Token, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errTimeout
	}
}
