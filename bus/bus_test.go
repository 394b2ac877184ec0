package bus

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, s *Subscription) *Message {
	t.Helper()
	select {
	case m := <-s.Channel():
		return m
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func quiet(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case m := <-s.Channel():
		t.Fatalf("unexpected message on %v: %#v", s.Topic(), m.Payload)
	case <-time.After(40 * time.Millisecond):
	}
}

func drain(t *testing.T, s *Subscription, n int) []string {
	t.Helper()
	var out []string
	for i := 0; i < n; i++ {
		out = append(out, recv(t, s).Payload.(string))
	}
	quiet(t, s)
	sort.Strings(out)
	return out
}

func TestPublishSubscribe(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("t")
	s := c.Subscribe(T("camera", "imx296", "state"))

	c.Publish(c.NewMessage(T("camera", "imx296", "state"), "idle", false))
	assert.Equal(t, "idle", recv(t, s).Payload)

	c.Publish(c.NewMessage(T("camera", "imx327", "state"), "idle", false))
	quiet(t, s)
}

func TestWildcards(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("t")

	ctrl := c.Subscribe(T("camera", "+", "control", "+"))
	all := c.Subscribe(T("camera", "#"))
	root := c.Subscribe(T("#"))
	exact := c.Subscribe(T("camera"))
	events := c.Subscribe(T("camera", "+", "event", "#"))

	c.Publish(c.NewMessage(T("camera", "cam0", "control", "ctrl_get"), "a", false))
	assert.Equal(t, "a", recv(t, ctrl).Payload)
	assert.Equal(t, "a", recv(t, all).Payload)
	assert.Equal(t, "a", recv(t, root).Payload)
	quiet(t, exact)
	quiet(t, events)

	c.Publish(c.NewMessage(T("camera"), "b", false))
	assert.Equal(t, "b", recv(t, all).Payload, "# matches the parent level")
	assert.Equal(t, "b", recv(t, exact).Payload)
	assert.Equal(t, "b", recv(t, root).Payload)
	quiet(t, ctrl)

	c.Publish(c.NewMessage(T("camera", "cam0", "event", "stream"), "c", false))
	assert.Equal(t, "c", recv(t, events).Payload)
	quiet(t, ctrl)

	c.Publish(c.NewMessage(T("camera", "cam0", "control"), "d", false))
	quiet(t, ctrl)
}

func TestRetainedDeliveredToLateSubscribers(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("t")

	c.Publish(c.NewMessage(T("camera", "cam0"), "r0", true))
	c.Publish(c.NewMessage(T("camera", "cam0", "state"), "r1", true))
	c.Publish(c.NewMessage(T("camera", "cam0", "info"), "r2", true))
	c.Publish(c.NewMessage(T("camera", "cam1", "state"), "r3", true))

	assert.Equal(t, []string{"r0", "r1", "r2", "r3"}, drain(t, c.Subscribe(T("camera", "#")), 4))
	assert.Equal(t, []string{"r1", "r3"}, drain(t, c.Subscribe(T("camera", "+", "state")), 2))
	assert.Equal(t, []string{"r1", "r2"}, drain(t, c.Subscribe(T("camera", "cam0", "+")), 2))
	assert.Equal(t, []string{"r1"}, drain(t, c.Subscribe(T("camera", "cam0", "state")), 1))
}

func TestRetainedClearedByNilPayload(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("t")
	c.Publish(c.NewMessage(T("camera", "cam0", "state"), "old", true))
	c.Publish(c.NewMessage(T("camera", "cam1", "state"), "keep", true))
	c.Publish(c.NewMessage(T("camera", "cam0", "state"), nil, true))

	assert.Equal(t, []string{"keep"}, drain(t, c.Subscribe(T("camera", "#")), 1))
}

func TestFullQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("t")
	s := c.Subscribe(T("x"))
	for _, p := range []string{"1", "2", "3"} {
		c.Publish(c.NewMessage(T("x"), p, false))
	}
	assert.Equal(t, "2", recv(t, s).Payload)
	assert.Equal(t, "3", recv(t, s).Payload)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("t")
	s := c.Subscribe(T("x", "y"))
	c.Unsubscribe(s)
	c.Unsubscribe(s)
	_, ok := <-s.Channel()
	assert.False(t, ok)

	// Pruned topics still accept new subscribers.
	s2 := c.Subscribe(T("x", "y"))
	c.Publish(c.NewMessage(T("x", "y"), "z", false))
	assert.Equal(t, "z", recv(t, s2).Payload)

	c.Disconnect()
	_, ok = <-s2.Channel()
	assert.False(t, ok)
}

func TestRequestWait(t *testing.T) {
	b := NewBus(8)
	client := b.NewConnection("client")
	server := b.NewConnection("server")

	reqs := server.Subscribe(T("camera", "cam0", "control", "+"))
	go func() {
		for m := range reqs.Channel() {
			server.Reply(m, "ok:"+m.Topic.At(3).(string), false)
		}
	}()
	defer server.Unsubscribe(reqs)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	req := client.NewMessage(T("camera", "cam0", "control", "stream"), true, false)
	reply, err := client.RequestWait(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ok:stream", reply.Payload)
	assert.True(t, req.CanReply())
	assert.Equal(t, req.ReplyTo, reply.Topic)
}

func TestRequestWaitTimesOut(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("client")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.RequestWait(ctx, c.NewMessage(T("nobody"), nil, false))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReplyWithoutReplyToIsDropped(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("t")
	all := c.Subscribe(T("#"))
	c.Reply(c.NewMessage(T("x"), nil, false), "nope", false)
	quiet(t, all)
}

func TestTopicHelpers(t *testing.T) {
	base := T("camera", "cam0")
	ctrl := base.Append("control", "ctrl_set")
	assert.Equal(t, 2, base.Len())
	assert.Equal(t, 4, ctrl.Len())
	assert.Equal(t, "ctrl_set", ctrl.At(3))
	assert.Nil(t, ctrl.At(9))
	assert.Equal(t, "camera/cam0/control/ctrl_set", ctrl.String())

	assert.Panics(t, func() { T([]byte{1}) })
}
