package driver

import (
	"context"

	"github.com/pkg/errors"

	"github.com/viam-labs/xsensmvn/mvn"
)

// Control is the operational surface of a motion-capture driver: everything
// a recording application needs once a session exists. *Driver implements
// it.
type Control interface {
	Calibrate(ctx context.Context, calibrationType string) error
	AbortCalibration(ctx context.Context) error
	StartAcquisition(ctx context.Context) error
	StopAcquisition(ctx context.Context) error
	SetBodyDimensions(ctx context.Context, dims mvn.BodyDimensions) error
	BodyDimensions() mvn.BodyDimensions
	BodyDimension(name string) (float64, bool)
}

var _ Control = (*Driver)(nil)

// SetBodyDimensions pushes the given lengths (meters) to the suit's scaling
// model and records them, replacing entries of the same name. Only valid
// while Connected: dimensions must not change under an accepted calibration
// or a live recording.
func (d *Driver) SetBodyDimensions(ctx context.Context, dims mvn.BodyDimensions) error {
	if err := validateDimensions(dims); err != nil {
		return err
	}
	if err := d.requireStatus("set body dimensions", mvn.StatusConnected); err != nil {
		return err
	}

	d.opMu.Lock()
	defer d.opMu.Unlock()

	d.stateMu.Lock()
	if d.status != mvn.StatusConnected {
		current := d.status
		d.stateMu.Unlock()
		return newStatusError("set body dimensions", current)
	}
	d.stateMu.Unlock()

	if err := d.suit.SetBodyDimensions(dims.Clone()); err != nil {
		return errors.Wrap(err, "suit rejected body dimensions")
	}

	d.stateMu.Lock()
	d.bodyDims = d.bodyDims.Merge(dims)
	d.stateMu.Unlock()
	return nil
}

// BodyDimensions returns a copy of the dimensions applied this session.
func (d *Driver) BodyDimensions() mvn.BodyDimensions {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.bodyDims.Clone()
}

// BodyDimension looks up one dimension by its vendor label.
func (d *Driver) BodyDimension(name string) (float64, bool) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	value, ok := d.bodyDims[name]
	return value, ok
}
