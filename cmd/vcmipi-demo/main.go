// cmd/vcmipi-demo/main.go
//
// vcmipi-demo runs the camera control plane on the host against simulated
// I2C buses: config, camera service and the optional MQTT bridge, followed
// by a short scripted stream session.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"tinygo.org/x/drivers"

	"vcmipi-go/bus"
	"vcmipi-go/drivers/vcmipi"
	"vcmipi-go/services/bridge"
	"vcmipi-go/services/camera"
	"vcmipi-go/services/config"
	"vcmipi-go/services/heartbeat"
	"vcmipi-go/types"
	"vcmipi-go/x/i2csim"
)

// ---------- Configuration ----------

var (
	device     = flag.String("device", "imx296-dev", "embedded config to publish")
	configFile = flag.String("config", "", "YAML config file; overrides -device")
	script     = flag.Bool("script", true, "run the scripted stream session")
	dwell      = flag.Duration("dwell", 2*time.Second, "time to stream during the script")
)

const readyTimeout = 5 * time.Second

// Control ids used by the script.
const (
	ctrlExposure = 0x00980911
	ctrlGain     = 0x00980913
)

// ---------- Simulated buses ----------

type simBuses map[string]*i2csim.Bus

func (m simBuses) ByID(id string) (drivers.I2C, bool) {
	b, ok := m[id]
	if !ok {
		return nil, false
	}
	return b, true
}

func newSimBuses() simBuses {
	out := simBuses{}
	for _, id := range []string{"i2c0", "i2c1"} {
		out[id] = i2csim.New(vcmipi.AddressSensor, vcmipi.AddressModule)
	}
	return out
}

// ---------- Main ----------

func main() {
	flag.Parse()
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, config.CtxDeviceKey, *device)
	if *configFile != "" {
		ctx = context.WithValue(ctx, config.CtxFileKey, *configFile)
	}

	b := bus.NewBus(32)
	go camera.New(b.NewConnection("camera"), newSimBuses(), nil).Run(ctx)
	go bridge.Start(ctx, b.NewConnection("bridge"))
	_ = heartbeat.New().Start(ctx, b.NewConnection("heartbeat"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	conn := b.NewConnection("demo")
	names, err := waitCameras(ctx, conn)
	if err != nil {
		glog.Errorf("demo: %v", err)
		return
	}
	glog.Infof("demo: cameras %v", names)

	if *script {
		for _, name := range names {
			runScript(ctx, conn, name)
		}
	}
	<-ctx.Done()
}

func waitCameras(ctx context.Context, conn *bus.Connection) ([]string, error) {
	st := conn.Subscribe(bus.T("camera", "state"))
	defer conn.Unsubscribe(st)
	info := conn.Subscribe(bus.T("camera", "+", "info"))
	defer conn.Unsubscribe(info)

	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case m := <-st.Channel():
			s, _ := m.Payload.(types.ServiceState)
			switch s.Level {
			case "error":
				glog.Warningf("demo: camera service: %s %s", s.Status, s.Error)
			case "ready":
				var names []string
				for {
					select {
					case m := <-info.Channel():
						if i, ok := m.Payload.(types.Info); ok {
							names = append(names, i.Detail.(types.CameraInfo).Name)
						}
					default:
						return names, nil
					}
				}
			}
		}
	}
}

func request(ctx context.Context, conn *bus.Connection, name, verb string, payload any) any {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	m, err := conn.RequestWait(ctx, conn.NewMessage(bus.T("camera", name, "control", verb), payload, false))
	if err != nil {
		glog.Errorf("demo: %s %s: %v", name, verb, err)
		return nil
	}
	if e, ok := m.Payload.(types.ErrorReply); ok {
		glog.Warningf("demo: %s %s: %s (%s)", name, verb, e.Error, e.Msg)
	}
	return m.Payload
}

func runScript(ctx context.Context, conn *bus.Connection, name string) {
	events := conn.Subscribe(bus.T("camera", name, "event", "#"))
	defer conn.Unsubscribe(events)
	go func() {
		for m := range events.Channel() {
			glog.V(1).Infof("demo: %s %+v", m.Topic, m.Payload)
		}
	}()

	glog.Infof("demo: %s format %+v", name, request(ctx, conn, name, "fmt_get", nil))
	request(ctx, conn, name, "ctrl_set", types.ControlSet{Controls: []types.ControlValue{
		{ID: ctrlExposure, Value: 20},
		{ID: ctrlGain, Value: 6000},
	}})
	if rep, ok := request(ctx, conn, name, "stream", types.StreamSet{On: true}).(types.StreamReply); ok {
		glog.Infof("demo: %s streaming, session %s", name, rep.Session)
	}
	select {
	case <-ctx.Done():
	case <-time.After(*dwell):
	}
	request(ctx, conn, name, "stream", types.StreamSet{On: false})
	glog.Infof("demo: %s stopped", name)
}
