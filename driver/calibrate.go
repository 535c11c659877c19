package driver

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-labs/xsensmvn/mvn"
)

// abortSettleTimeout bounds how long AbortCalibration waits for the vendor
// routine to acknowledge cancellation.
const abortSettleTimeout = 5 * time.Second

// Calibrate runs a calibration routine on the connected suit and applies
// the acceptance threshold to the vendor's quality grade. An empty
// calibrationType selects the configured default. On acceptance the driver
// becomes CalibratedAndReadyToRecord; when the grade is below the minimum,
// the routine is aborted or the type is unsupported it returns to
// Connected; on a vendor fault it moves to Unknown. Valid while Connected
// or, for re-calibration, CalibratedAndReadyToRecord.
func (d *Driver) Calibrate(ctx context.Context, calibrationType string) error {
	if calibrationType == "" {
		calibrationType = d.cfg.DefaultCalibrationType
	}
	if err := d.requireStatus("calibrate",
		mvn.StatusConnected, mvn.StatusCalibratedAndReadyToRecord); err != nil {
		return err
	}

	d.opMu.Lock()
	defer d.opMu.Unlock()

	calCtx, cancel, err := d.beginOp(ctx, "calibrate", mvn.StatusCalibrating,
		mvn.StatusConnected, mvn.StatusCalibratedAndReadyToRecord)
	if err != nil {
		return err
	}
	defer d.endOp(cancel)

	d.logger.Infof("running %q calibration on suit %q", calibrationType, d.SuitName())
	quality, err := d.suit.Calibrate(calCtx, calibrationType)
	switch {
	case err == nil:
		minimum := d.MinimumAcceptableCalibrationQuality()
		if !quality.MeetsMinimum(minimum) {
			d.setStatus(mvn.StatusConnected)
			d.logger.Warnf("calibration quality %s is below the required minimum %s", quality, minimum)
			return errors.Errorf("calibration quality %s is below the required minimum %s", quality, minimum)
		}
		d.setStatus(mvn.StatusCalibratedAndReadyToRecord)
		d.logger.Infof("calibration accepted with quality %s", quality)
		return nil
	case errors.Is(err, ErrCalibrationAborted):
		d.setStatus(mvn.StatusConnected)
		d.logger.Infof("calibration aborted")
		return err
	case errors.Is(err, ErrUnsupportedCalibrationType):
		d.setStatus(mvn.StatusConnected)
		return errors.Wrapf(err, "calibration type %q", calibrationType)
	default:
		err = errors.Wrap(err, "calibration failed")
		d.fail(err)
		return err
	}
}

// AbortCalibration interrupts an in-progress calibration routine and
// waits, bounded, for the driver to settle back in Connected. Calling it
// while no calibration is running is a no-op success.
func (d *Driver) AbortCalibration(ctx context.Context) error {
	d.stateMu.Lock()
	if d.status != mvn.StatusCalibrating || d.opCancel == nil {
		d.stateMu.Unlock()
		return nil
	}
	cancel, done := d.opCancel, d.opDone
	d.stateMu.Unlock()

	cancel()
	timer := d.clock.Timer(abortSettleTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("timed out waiting for the calibration routine to stop")
	}
}

// MinimumAcceptableCalibrationQuality returns the current acceptance
// threshold for calibration results.
func (d *Driver) MinimumAcceptableCalibrationQuality() mvn.CalibrationQuality {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.minQuality
}

// SetMinimumAcceptableCalibrationQuality changes the acceptance threshold.
// The change affects only calibrations evaluated after the call.
func (d *Driver) SetMinimumAcceptableCalibrationQuality(q mvn.CalibrationQuality) error {
	if q < mvn.QualityFailed || q > mvn.QualityExcellent {
		return errors.Errorf("unknown calibration quality %d", q)
	}
	d.stateMu.Lock()
	d.minQuality = q
	d.stateMu.Unlock()
	return nil
}
