package driver

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viam-labs/xsensmvn/mvn"
)

// StartAcquisition begins streaming motion frames from the calibrated suit
// into the producer buffer and moves the driver to Recording. The
// relative-time origin is reset so the first frame of the new session has
// RelativeTime zero. Valid only while CalibratedAndReadyToRecord.
func (d *Driver) StartAcquisition(ctx context.Context) error {
	if err := d.requireStatus("start acquisition", mvn.StatusCalibratedAndReadyToRecord); err != nil {
		return err
	}

	d.opMu.Lock()
	defer d.opMu.Unlock()

	d.stateMu.Lock()
	if d.status != mvn.StatusCalibratedAndReadyToRecord {
		current := d.status
		d.stateMu.Unlock()
		return newStatusError("start acquisition", current)
	}
	d.stateMu.Unlock()

	samples, err := d.suit.StartStreaming(ctx, d.cfg.Stream)
	if err != nil {
		err = errors.Wrap(err, "failed to start streaming")
		d.fail(err)
		return err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	session := uuid.New()
	d.stateMu.Lock()
	d.pumpCancel = cancel
	d.sessionID = session
	d.status = mvn.StatusRecording
	d.stateMu.Unlock()

	d.activeBackgroundWorkers.Add(1)
	utils.PanicCapturingGo(func() {
		defer d.activeBackgroundWorkers.Done()
		d.pump(pumpCtx, samples)
	})
	d.logger.Infof("acquisition session %s started", session)
	return nil
}

// pump drains the vendor sample channel into the producer buffer, stamping
// each frame's RelativeTime against the session origin. The channel
// closing without a stop request is a hardware fault.
func (d *Driver) pump(ctx context.Context, samples <-chan mvn.Sample) {
	var origin float64
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-samples:
			if !ok {
				if ctx.Err() == nil {
					d.fail(errors.New("sample stream closed unexpectedly"))
				}
				return
			}
			if first {
				origin = frame.AbsoluteTime
				first = false
			}
			frame.RelativeTime = frame.AbsoluteTime - origin
			d.cache.put(frame)
		}
	}
}

// StopAcquisition ends the streaming session and returns the driver to
// CalibratedAndReadyToRecord. Already-committed data stays readable. Valid
// only while Recording.
func (d *Driver) StopAcquisition(ctx context.Context) error {
	if err := d.requireStatus("stop acquisition", mvn.StatusRecording); err != nil {
		return err
	}

	d.opMu.Lock()
	defer d.opMu.Unlock()

	d.stateMu.Lock()
	if d.status != mvn.StatusRecording {
		current := d.status
		d.stateMu.Unlock()
		return newStatusError("stop acquisition", current)
	}
	cancel := d.pumpCancel
	d.pumpCancel = nil
	session := d.sessionID
	d.stateMu.Unlock()

	// Stop the pump before the vendor closes the channel so the closure is
	// not mistaken for a fault.
	if cancel != nil {
		cancel()
	}
	d.activeBackgroundWorkers.Wait()

	if err := d.suit.StopStreaming(); err != nil {
		err = errors.Wrap(err, "failed to stop streaming")
		d.fail(err)
		return err
	}

	d.stateMu.Lock()
	// The pump may have recorded a fault in the window above; don't mask it.
	if d.status == mvn.StatusRecording {
		d.status = mvn.StatusCalibratedAndReadyToRecord
	}
	d.stateMu.Unlock()
	d.logger.Infof("acquisition session %s stopped", session)
	return nil
}

// CacheData atomically publishes the newest streamed frame to the sample
// accessors. Until the first call of a session the accessors keep
// returning the previous snapshot; calling with no new frame available is
// harmless.
func (d *Driver) CacheData() {
	d.cache.commit()
}

// Sample returns the committed motion frame. The value is a stable
// snapshot: later CacheData calls never modify it.
func (d *Driver) Sample() mvn.Sample {
	return d.cache.snapshot()
}

// LinkSample returns the per-segment kinematics of the committed frame.
func (d *Driver) LinkSample() []mvn.LinkFrame {
	return d.cache.snapshot().Links
}

// SensorSample returns the raw sensor readings of the committed frame.
func (d *Driver) SensorSample() []mvn.SensorFrame {
	return d.cache.snapshot().Sensors
}

// JointSample returns the joint angles of the committed frame.
func (d *Driver) JointSample() []mvn.JointFrame {
	return d.cache.snapshot().Joints
}

// SampleRelativeTime returns the committed frame's seconds since
// acquisition start.
func (d *Driver) SampleRelativeTime() float64 {
	return d.cache.snapshot().RelativeTime
}

// SampleAbsoluteTime returns the committed frame's device-clock timestamp.
func (d *Driver) SampleAbsoluteTime() float64 {
	return d.cache.snapshot().AbsoluteTime
}
