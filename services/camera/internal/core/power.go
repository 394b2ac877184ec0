package core

import (
	"github.com/golang/glog"

	"vcmipi-go/errcode"
)

// ---- Counted power gate ----

// acquireLocked takes a power reference. The first one powers the sensor.
func (d *Device) acquireLocked() error {
	d.st.PowerRefs++
	if d.st.Powered {
		return nil
	}
	if err := d.setPowerLocked(true); err != nil {
		d.st.PowerRefs--
		return errcode.Wrap(errcode.PowerAcquisitionFailed, "acquire_power", err)
	}
	return nil
}

// releaseLocked drops a reference. The last one powers the sensor off.
func (d *Device) releaseLocked() {
	if d.st.PowerRefs == 0 {
		return
	}
	d.st.PowerRefs--
	if d.st.PowerRefs > 0 {
		return
	}
	if err := d.setPowerLocked(false); err != nil {
		glog.Errorf("camera %s: power off: %v", d.desc.Name, err)
	}
}

// getIfInUseLocked takes a reference only if the sensor is powered and
// somebody already holds one.
func (d *Device) getIfInUseLocked() bool {
	if !d.st.Powered || d.st.PowerRefs == 0 {
		return false
	}
	d.st.PowerRefs++
	return true
}

// setPowerLocked drives the rail and the power flag. It is a no-op when
// the flag already matches.
func (d *Device) setPowerLocked(on bool) error {
	if d.st.Powered == on {
		return nil
	}
	if d.rail != nil {
		if err := d.rail.SetPower(on); err != nil {
			return err
		}
	}
	d.st.Powered = on
	glog.V(2).Infof("camera %s: power %v", d.desc.Name, on)
	return nil
}

// ---- Host surface ----

// AcquirePower takes a power reference for the caller. Control writes
// need one.
func (d *Device) AcquirePower() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquireLocked()
}

func (d *Device) ReleasePower() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseLocked()
}

// SetPower sets the power flag directly without touching references.
// Powering off stops a running stream first.
func (d *Device) SetPower(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !on && d.phase == PhaseStreaming {
		d.stopLocked()
	}
	if err := d.setPowerLocked(on); err != nil {
		if on {
			return errcode.Wrap(errcode.PowerAcquisitionFailed, "set_power", err)
		}
		return errcode.Wrap(errcode.DeviceIO, "set_power", err)
	}
	return nil
}

// Suspend stops a running stream and powers off. Callers must not overlap
// it with stream changes.
func (d *Device) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase == PhaseStreaming {
		d.stopLocked()
	}
	if err := d.setPowerLocked(false); err != nil {
		return errcode.Wrap(errcode.DeviceIO, "suspend", err)
	}
	return nil
}

// Resume powers on. Streaming is not restarted.
func (d *Device) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.setPowerLocked(true); err != nil {
		return errcode.Wrap(errcode.PowerAcquisitionFailed, "resume", err)
	}
	return nil
}
