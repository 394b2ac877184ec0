package core

import (
	"github.com/golang/glog"
	"github.com/google/uuid"
)

// Phase is the streaming state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseStreaming
	PhaseStopping
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseStreaming:
		return "streaming"
	case PhaseStopping:
		return "stopping"
	}
	return "unknown"
}

// SetStream enables or disables streaming. Enabling while streaming and
// disabling while idle succeed without doing anything. Disabling never
// fails.
func (d *Device) SetStream(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		return d.startLocked()
	}
	d.stopLocked()
	return nil
}

func (d *Device) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Session returns the id of the running stream, or "".
func (d *Device) Session() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

func (d *Device) startLocked() error {
	if d.phase == PhaseStreaming {
		return nil
	}
	if err := d.acquireLocked(); err != nil {
		glog.Errorf("camera %s: stream on: %v", d.desc.Name, err)
		return err
	}
	d.phase = PhaseStarting

	// Cached exposure is re-applied before every start.
	if err := d.sensor.SetExposure(d.exposureUs); err != nil {
		d.phase = PhaseIdle
		d.releaseLocked()
		return d.sensorErr("start_stream", err)
	}
	if err := d.sensor.StartStream(); err != nil {
		if serr := d.sensor.StopStream(); serr != nil {
			glog.Warningf("camera %s: stop after failed start: %v", d.desc.Name, serr)
		}
		d.phase = PhaseIdle
		d.releaseLocked()
		return d.sensorErr("start_stream", err)
	}

	d.phase = PhaseStreaming
	d.st.Streaming = true
	d.session = uuid.NewString()
	d.refreshFrameRateLocked()
	glog.Infof("camera %s: streaming session=%s", d.desc.Name, d.session)
	d.notify.StreamChanged(true, d.session)
	return nil
}

func (d *Device) stopLocked() {
	if d.phase != PhaseStreaming {
		return
	}
	d.phase = PhaseStopping
	if err := d.sensor.StopStream(); err != nil {
		glog.Errorf("camera %s: stop stream: %v", d.desc.Name, err)
	}
	d.releaseLocked()
	session := d.session
	d.phase = PhaseIdle
	d.st.Streaming = false
	d.session = ""
	glog.Infof("camera %s: stopped session=%s", d.desc.Name, session)
	d.notify.StreamChanged(false, session)
}
