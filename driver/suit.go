package driver

import (
	"context"

	"github.com/pkg/errors"

	"github.com/viam-labs/xsensmvn/mvn"
)

// Errors crossing the vendor capability boundary. Implementations should
// return these (possibly wrapped) so the driver can tell clean, recoverable
// failures apart from hardware faults.
var (
	// ErrNoSuitFound is returned by a Scanner when no suit became available
	// before the scan deadline.
	ErrNoSuitFound = errors.New("no suit found before the scan deadline")
	// ErrInvalidLicense is returned by a Scanner when the vendor runtime
	// rejects the configured license.
	ErrInvalidLicense = errors.New("vendor runtime rejected the license")
	// ErrUnsupportedConfiguration is returned by a Scanner when the suit
	// configuration or acquisition scenario is not supported.
	ErrUnsupportedConfiguration = errors.New("unsupported suit configuration")
	// ErrCalibrationAborted is returned by Suit.Calibrate when the routine
	// was canceled before producing a verdict.
	ErrCalibrationAborted = errors.New("calibration aborted")
	// ErrUnsupportedCalibrationType is returned by Suit.Calibrate for a
	// routine the suit does not implement.
	ErrUnsupportedCalibrationType = errors.New("unsupported calibration type")
)

// ConnectOptions carries the connect-time selectors handed to a Scanner.
type ConnectOptions struct {
	LicensePath         string
	SuitConfiguration   string
	AcquisitionScenario string
}

// A Scanner finds powered suits and establishes connections to them.
type Scanner interface {
	// Scan blocks until a suit is found and connected or ctx expires.
	// Implementations must check for an already-available suit before
	// honoring ctx expiry, so a zero scan timeout still connects when
	// hardware is present.
	Scan(ctx context.Context, opts ConnectOptions) (Suit, error)
}

// A Suit is a live connection to one motion-capture suit. The driver
// serializes all method calls except context cancellation, so
// implementations need not be safe for fully concurrent use, but Calibrate
// must react to cancellation from another goroutine.
type Suit interface {
	// Profile reports the suit's identity and its fixed segment, sensor and
	// joint label ordering. The ordering matches the frame layout of
	// streamed samples and is stable for the life of the connection.
	Profile() mvn.SuitProfile

	// SetBodyDimensions applies the given lengths (meters) to the suit's
	// scaling model. The implementation must not retain the map.
	SetBodyDimensions(dims mvn.BodyDimensions) error

	// Calibrate runs the named routine to completion and reports the
	// vendor's quality grade. It must return ErrCalibrationAborted promptly
	// once ctx is canceled. Any error other than ErrCalibrationAborted and
	// ErrUnsupportedCalibrationType is treated as a hardware fault.
	Calibrate(ctx context.Context, calibrationType string) (mvn.CalibrationQuality, error)

	// StartStreaming begins frame delivery on the returned channel at the
	// suit's fixed sample rate. ctx bounds only the start call itself; the
	// stream runs until StopStreaming. Each sample is freshly allocated and
	// the implementation must not touch it after sending. The channel
	// closes after StopStreaming, or spontaneously on a hardware fault.
	StartStreaming(ctx context.Context, cfg mvn.StreamConfig) (<-chan mvn.Sample, error)

	// StopStreaming ends frame delivery and closes the sample channel. It
	// is a no-op if the suit is not streaming.
	StopStreaming() error

	// Disconnect releases the suit. The connection cannot be reused.
	Disconnect() error
}
