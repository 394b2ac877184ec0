package heartbeat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmipi-go/bus"
	"vcmipi-go/types"
)

func TestBeatsAtConfiguredIntervalAndCountsCameras(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	conn.Publish(conn.NewMessage(bus.T("camera", "cam0", "info"), types.Info{Driver: "vcmipi"}, true))
	conn.Publish(conn.NewMessage(bus.T("camera", "cam1", "info"), types.Info{Driver: "vcmipi"}, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, New().Start(ctx, b.NewConnection("heartbeat")))
	conn.Publish(conn.NewMessage(topicConfigHeartbeat, json.RawMessage(`{"interval_ms":20}`), true))

	sub := conn.Subscribe(topicHeartbeat)
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			hb := m.Payload.(types.Heartbeat)
			if hb.Cameras == 2 {
				assert.GreaterOrEqual(t, hb.UptimeMS, int64(0))
				return
			}
		case <-deadline:
			t.Fatal("no heartbeat with both cameras")
		}
	}
}

func TestDecodeConfig(t *testing.T) {
	c, err := decodeConfig(json.RawMessage(`{"interval_ms":250}`))
	require.NoError(t, err)
	assert.Equal(t, 250, c.IntervalMS)

	_, err = decodeConfig(42)
	assert.Error(t, err)
}
