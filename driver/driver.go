// Package driver manages a full-body Xsens MVN motion-capture suit through
// its complete lifecycle: scanning and connecting, sensor-to-segment
// calibration, streaming acquisition and teardown.
//
// A Driver owns at most one suit connection and moves through the statuses
// Disconnected, Scanning, Connected, Calibrating,
// CalibratedAndReadyToRecord and Recording. Operations invoked from a
// status that does not permit them return a *StatusError and change
// nothing. An unrecoverable vendor fault parks the driver in StatusUnknown;
// Terminate is the only way out.
//
// While recording, frames stream from the suit into a producer buffer in
// the background. Nothing is visible to the sample accessors until
// CacheData commits the newest frame as the read snapshot, so a caller
// polling at its own pace always observes one coherent sample.
package driver

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/viam-labs/xsensmvn/mvn"
)

// Driver is the public facade over one suit. All methods are safe for
// concurrent use. Long-running vendor operations serialize on opMu; status,
// labels and cached samples are guarded separately so queries and accessors
// never block behind a scan or a calibration.
type Driver struct {
	cfg     Config
	scanner Scanner
	logger  golog.Logger
	clock   clock.Clock

	// opMu serializes connect, calibrate, start/stop acquisition and
	// terminate, and guards suit.
	opMu sync.Mutex
	suit Suit

	// stateMu guards everything below it.
	stateMu    sync.Mutex
	status     mvn.Status
	lastErr    error // sticky reason status became Unknown
	profile    mvn.SuitProfile
	bodyDims   mvn.BodyDimensions
	minQuality mvn.CalibrationQuality
	sessionID  uuid.UUID          // current acquisition session, for log correlation
	opCancel   context.CancelFunc // cancels the in-flight scan or calibration
	opDone     chan struct{}      // closed once that operation has settled
	pumpCancel context.CancelFunc

	activeBackgroundWorkers sync.WaitGroup

	cache sampleCache
}

// New builds a driver for one suit session. The configuration is validated
// and copied; later changes to cfg by the caller have no effect.
func New(cfg Config, scanner Scanner, logger golog.Logger) (*Driver, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	if scanner == nil {
		return nil, errors.New("a suit scanner is required")
	}
	cfg.BodyDimensions = cfg.BodyDimensions.Clone()
	return &Driver{
		cfg:        cfg,
		scanner:    scanner,
		logger:     logger,
		clock:      cfg.clock(),
		status:     mvn.StatusDisconnected,
		minQuality: cfg.MinimumCalibrationQuality,
	}, nil
}

// ConfigureAndConnect scans for a powered suit, connects to it and applies
// the configured body dimensions. On success the driver is Connected; on
// any failure it returns to Disconnected. Only valid while Disconnected.
func (d *Driver) ConfigureAndConnect(ctx context.Context) error {
	if err := d.requireStatus("connect", mvn.StatusDisconnected); err != nil {
		return err
	}

	d.opMu.Lock()
	defer d.opMu.Unlock()

	opCtx, cancel, err := d.beginOp(ctx, "connect", mvn.StatusScanning, mvn.StatusDisconnected)
	if err != nil {
		return err
	}
	defer d.endOp(cancel)

	scanCtx, scanCancel := d.clock.WithTimeout(opCtx, d.cfg.ScanTimeout)
	defer scanCancel()

	d.logger.Infof("scanning for a suit (timeout %v)", d.cfg.ScanTimeout)
	suit, err := d.scanner.Scan(scanCtx, ConnectOptions{
		LicensePath:         d.cfg.LicensePath,
		SuitConfiguration:   d.cfg.SuitConfiguration,
		AcquisitionScenario: d.cfg.AcquisitionScenario,
	})
	if err != nil {
		d.setStatus(mvn.StatusDisconnected)
		return errors.Wrap(err, "failed to connect to a suit")
	}

	profile := suit.Profile().Clone()
	if len(d.cfg.BodyDimensions) > 0 {
		if err := suit.SetBodyDimensions(d.cfg.BodyDimensions.Clone()); err != nil {
			err = multierr.Combine(err, suit.Disconnect())
			d.setStatus(mvn.StatusDisconnected)
			return errors.Wrap(err, "failed to apply configured body dimensions")
		}
	}

	d.suit = suit
	d.stateMu.Lock()
	d.profile = profile
	d.bodyDims = d.cfg.BodyDimensions.Clone()
	d.status = mvn.StatusConnected
	d.stateMu.Unlock()

	d.logger.Infof("connected to suit %q (%d links, %d sensors, %d joints)",
		profile.SuitName, len(profile.LinkLabels), len(profile.SensorLabels), len(profile.JointLabels))
	return nil
}

// Terminate tears down the session from any status: it cancels an in-flight
// scan or calibration, stops streaming, disconnects the suit and returns
// the driver to Disconnected with its caches and sticky fault cleared. It
// is idempotent; terminating an already Disconnected driver is a no-op
// success. Terminate is also the only way out of StatusUnknown.
func (d *Driver) Terminate(ctx context.Context) error {
	// Unblock whatever cancellable vendor call is in flight so opMu frees.
	d.stateMu.Lock()
	if d.opCancel != nil {
		d.opCancel()
	}
	if d.pumpCancel != nil {
		d.pumpCancel()
		d.pumpCancel = nil
	}
	d.stateMu.Unlock()

	d.opMu.Lock()
	defer d.opMu.Unlock()
	d.activeBackgroundWorkers.Wait()

	var err error
	hadSuit := d.suit != nil
	if hadSuit {
		err = multierr.Combine(d.suit.StopStreaming(), d.suit.Disconnect())
		d.suit = nil
	}

	d.cache.reset()
	d.stateMu.Lock()
	d.status = mvn.StatusDisconnected
	d.lastErr = nil
	d.profile = mvn.SuitProfile{}
	d.bodyDims = nil
	d.sessionID = uuid.Nil
	d.stateMu.Unlock()

	if hadSuit {
		d.logger.Infof("suit session terminated")
	}
	return err
}

// Status reports the driver's current lifecycle status. It never blocks
// behind an in-flight operation.
func (d *Driver) Status() mvn.Status {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.status
}

// LastError returns the fault that moved the driver to StatusUnknown, or
// nil. Terminate clears it.
func (d *Driver) LastError() error {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.lastErr
}

// SuitName returns the connected suit's name, or "" while disconnected.
func (d *Driver) SuitName() string {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.profile.SuitName
}

// LinkLabels returns the segment names in the suit's fixed streaming order.
func (d *Driver) LinkLabels() []string {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return append([]string(nil), d.profile.LinkLabels...)
}

// SensorLabels returns the sensor names in the suit's fixed streaming order.
func (d *Driver) SensorLabels() []string {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return append([]string(nil), d.profile.SensorLabels...)
}

// JointLabels returns the joint names in the suit's fixed streaming order.
func (d *Driver) JointLabels() []string {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return append([]string(nil), d.profile.JointLabels...)
}

// requireStatus rejects an operation up front when the current status does
// not allow it, without touching opMu, so wrong-state calls return promptly
// even while a long operation is in flight.
func (d *Driver) requireStatus(op string, allowed ...mvn.Status) error {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	for _, s := range allowed {
		if d.status == s {
			return nil
		}
	}
	return newStatusError(op, d.status)
}

// beginOp re-checks the allowed statuses under stateMu, transitions into
// the transient status and registers a cancel point for AbortCalibration
// and Terminate. Callers must hold opMu.
func (d *Driver) beginOp(
	ctx context.Context,
	op string,
	transient mvn.Status,
	allowed ...mvn.Status,
) (context.Context, context.CancelFunc, error) {
	d.stateMu.Lock()
	current := d.status
	permitted := false
	for _, s := range allowed {
		if current == s {
			permitted = true
			break
		}
	}
	if !permitted {
		d.stateMu.Unlock()
		return nil, nil, newStatusError(op, current)
	}
	opCtx, cancel := context.WithCancel(ctx)
	d.opCancel = cancel
	d.opDone = make(chan struct{})
	d.status = transient
	d.stateMu.Unlock()
	return opCtx, cancel, nil
}

// endOp clears the cancel point installed by beginOp and wakes anyone
// waiting for the operation to settle. The final status must already be
// set by the time this runs.
func (d *Driver) endOp(cancel context.CancelFunc) {
	d.stateMu.Lock()
	done := d.opDone
	d.opCancel = nil
	d.opDone = nil
	d.stateMu.Unlock()
	cancel()
	close(done)
}

func (d *Driver) setStatus(s mvn.Status) {
	d.stateMu.Lock()
	d.status = s
	d.stateMu.Unlock()
}

// fail records an unrecoverable vendor fault: the driver moves to Unknown
// and stays there until Terminate.
func (d *Driver) fail(err error) {
	d.stateMu.Lock()
	d.status = mvn.StatusUnknown
	d.lastErr = err
	d.stateMu.Unlock()
	d.logger.Errorw("driver entered Unknown status", "error", err)
}
