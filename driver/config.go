package driver

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viam-labs/xsensmvn/mvn"
)

// Config holds everything needed to run one suit session.
type Config struct {
	// LicensePath points at the vendor runtime license.
	LicensePath string `json:"license_path"`
	// SuitConfiguration selects the sensor layout on the body, for example
	// "FullBody".
	SuitConfiguration string `json:"suit_configuration"`
	// AcquisitionScenario tunes the engine for the recording environment.
	AcquisitionScenario string `json:"acquisition_scenario,omitempty"`
	// DefaultCalibrationType is the routine used when Calibrate is called
	// with an empty type.
	DefaultCalibrationType string `json:"default_calibration_type"`
	// MinimumCalibrationQuality is the initial acceptance threshold for
	// calibration results. It can be changed later through the driver.
	MinimumCalibrationQuality mvn.CalibrationQuality `json:"minimum_calibration_quality"`
	// ScanTimeout bounds how long ConfigureAndConnect searches for a
	// powered suit. Zero connects only if a suit is already available.
	ScanTimeout time.Duration `json:"scan_timeout,omitempty"`
	// BodyDimensions (meters) are applied to the suit at connection.
	BodyDimensions mvn.BodyDimensions `json:"body_dimensions,omitempty"`
	// Stream selects which frame sections the suit computes and delivers.
	Stream mvn.StreamConfig `json:"stream"`

	// Clock drives scan and abort timing. Nil means the wall clock; tests
	// inject a mock to control time.
	Clock clock.Clock `json:"-"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.LicensePath == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "license_path")
	}
	if cfg.SuitConfiguration == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "suit_configuration")
	}
	if cfg.DefaultCalibrationType == "" {
		// Calibrate falls back to this when given an empty type; with both
		// empty there is nothing sane to run.
		return utils.NewConfigValidationFieldRequiredError(path, "default_calibration_type")
	}
	if cfg.MinimumCalibrationQuality < mvn.QualityFailed ||
		cfg.MinimumCalibrationQuality > mvn.QualityExcellent {
		return utils.NewConfigValidationError(path,
			errors.Errorf("unknown minimum_calibration_quality %d", cfg.MinimumCalibrationQuality))
	}
	if cfg.ScanTimeout < 0 {
		return utils.NewConfigValidationError(path, errors.New("scan_timeout must not be negative"))
	}
	if !cfg.Stream.AnyEnabled() {
		return utils.NewConfigValidationError(path,
			errors.New("at least one data stream must be enabled"))
	}
	if err := validateDimensions(cfg.BodyDimensions); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

func validateDimensions(dims mvn.BodyDimensions) error {
	for name, value := range dims {
		if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return errors.Errorf("body dimension %q must be a positive length, got %v", name, value)
		}
	}
	return nil
}

func (cfg *Config) clock() clock.Clock {
	if cfg.Clock == nil {
		return clock.New()
	}
	return cfg.Clock
}
