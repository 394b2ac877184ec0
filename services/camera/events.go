package camera

import (
	"time"

	"vcmipi-go/bus"
	"vcmipi-go/services/camera/internal/consts"
	"vcmipi-go/services/camera/internal/core"
	"vcmipi-go/types"
)

// events publishes device notifications as non-retained bus events. It
// runs under the device lock and only touches the bus.
type events struct {
	conn  *bus.Connection
	name  string
	names map[core.ControlID]string
}

var _ core.Notifier = (*events)(nil)

func (e *events) learn(ctrls []core.ControlDescriptor) {
	e.names = make(map[core.ControlID]string, len(ctrls))
	for _, c := range ctrls {
		e.names[c.ID] = c.Name
	}
}

func (e *events) publish(kind string, p any) {
	e.conn.Publish(e.conn.NewMessage(camTopic(e.name, consts.TokEvent, kind), p, false))
}

func (e *events) ControlChanged(id core.ControlID, v core.Value) {
	name, ok := e.names[id]
	if !ok {
		name = id.String()
	}
	e.publish(consts.EvCtrl, types.ControlEvent{
		ID:    uint32(id),
		Name:  name,
		Value: v.Int,
		Str:   v.Str,
		TS:    time.Now(),
	})
}

func (e *events) FormatChanged(f core.Format) {
	e.publish(consts.EvFmt, types.FormatEvent{Format: toFormat(f), TS: time.Now()})
}

func (e *events) StreamChanged(streaming bool, session string) {
	e.publish(consts.EvStream, types.StreamEvent{Streaming: streaming, Session: session, TS: time.Now()})
}
