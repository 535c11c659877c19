// Package fake provides an in-memory motion-capture suit and scanner for
// developing and testing against the driver without vendor hardware or a
// license dongle. The suit streams a synthetic gait at a configurable
// sample rate on an injectable clock, so tests can drive time by hand.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-labs/xsensmvn/driver"
	"github.com/viam-labs/xsensmvn/mvn"
)

// Default label sets, matching the vendor's full-body layout: 23 segments,
// 17 sensors, 22 joints.
var (
	DefaultLinkLabels = []string{
		"Pelvis", "L5", "L3", "T12", "T8", "Neck", "Head",
		"RightShoulder", "RightUpperArm", "RightForearm", "RightHand",
		"LeftShoulder", "LeftUpperArm", "LeftForearm", "LeftHand",
		"RightUpperLeg", "RightLowerLeg", "RightFoot", "RightToe",
		"LeftUpperLeg", "LeftLowerLeg", "LeftFoot", "LeftToe",
	}
	DefaultSensorLabels = []string{
		"Pelvis", "T8", "Head",
		"RightShoulder", "RightUpperArm", "RightForearm", "RightHand",
		"LeftShoulder", "LeftUpperArm", "LeftForearm", "LeftHand",
		"RightUpperLeg", "RightLowerLeg", "RightFoot",
		"LeftUpperLeg", "LeftLowerLeg", "LeftFoot",
	}
	DefaultJointLabels = []string{
		"jL5S1", "jL4L3", "jL1T12", "jT9T8", "jT1C7", "jC1Head",
		"jRightT4Shoulder", "jRightShoulder", "jRightElbow", "jRightWrist",
		"jLeftT4Shoulder", "jLeftShoulder", "jLeftElbow", "jLeftWrist",
		"jRightHip", "jRightKnee", "jRightAnkle", "jRightBallFoot",
		"jLeftHip", "jLeftKnee", "jLeftAnkle", "jLeftBallFoot",
	}
)

const (
	defaultSampleRate = 240 // Hz
	scanPollInterval  = 50 * time.Millisecond
)

// SuitConfig configures a fake suit. Zero values get working defaults.
type SuitConfig struct {
	// Name identifies the suit; "" gets a generated serial.
	Name string
	// LinkLabels, SensorLabels and JointLabels fix the streaming order.
	LinkLabels   []string
	SensorLabels []string
	JointLabels  []string
	// SampleRate is the streaming rate in Hz.
	SampleRate float64
	// Calibrations grades each supported routine; any other type is
	// rejected as unsupported. Nil enables "Npose" and "Tpose" at good
	// quality.
	Calibrations map[string]mvn.CalibrationQuality
	// CalibrationDelay is how long a routine runs before reporting.
	CalibrationDelay time.Duration
	// Clock drives streaming and calibration time. Nil means the wall
	// clock.
	Clock clock.Clock
}

// Suit is an in-memory implementation of the driver's vendor boundary.
type Suit struct {
	name             string
	profile          mvn.SuitProfile
	sampleRate       float64
	calibrations     map[string]mvn.CalibrationQuality
	calibrationDelay time.Duration
	clk              clock.Clock
	logger           golog.Logger

	mu                      sync.Mutex
	dims                    mvn.BodyDimensions
	streaming               bool
	streamCancel            context.CancelFunc
	streamStart             time.Time
	disconnected            bool
	activeBackgroundWorkers sync.WaitGroup
}

// NewSuit builds a fake suit.
func NewSuit(cfg SuitConfig, logger golog.Logger) *Suit {
	name := cfg.Name
	if name == "" {
		name = "MVN-" + uuid.NewString()[:8]
	}
	links := cfg.LinkLabels
	if links == nil {
		links = DefaultLinkLabels
	}
	sensors := cfg.SensorLabels
	if sensors == nil {
		sensors = DefaultSensorLabels
	}
	joints := cfg.JointLabels
	if joints == nil {
		joints = DefaultJointLabels
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}
	calibrations := cfg.Calibrations
	if calibrations == nil {
		calibrations = map[string]mvn.CalibrationQuality{
			"Npose": mvn.QualityGood,
			"Tpose": mvn.QualityGood,
		}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Suit{
		name: name,
		profile: mvn.SuitProfile{
			SuitName:     name,
			LinkLabels:   links,
			SensorLabels: sensors,
			JointLabels:  joints,
		},
		sampleRate:       rate,
		calibrations:     calibrations,
		calibrationDelay: cfg.CalibrationDelay,
		clk:              clk,
		logger:           logger,
		dims:             mvn.BodyDimensions{},
	}
}

// Profile implements driver.Suit.
func (s *Suit) Profile() mvn.SuitProfile {
	return s.profile.Clone()
}

// SetBodyDimensions implements driver.Suit.
func (s *Suit) SetBodyDimensions(dims mvn.BodyDimensions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return errors.New("suit is disconnected")
	}
	s.dims = s.dims.Merge(dims)
	return nil
}

// AppliedBodyDimensions returns the dimensions pushed to the suit so far.
func (s *Suit) AppliedBodyDimensions() mvn.BodyDimensions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims.Clone()
}

// Calibrate implements driver.Suit: it waits out the configured routine
// duration on the suit's clock, honoring cancellation, then reports the
// configured grade for the routine.
func (s *Suit) Calibrate(ctx context.Context, calibrationType string) (mvn.CalibrationQuality, error) {
	s.mu.Lock()
	if s.disconnected {
		s.mu.Unlock()
		return mvn.QualityFailed, errors.New("suit is disconnected")
	}
	quality, supported := s.calibrations[calibrationType]
	s.mu.Unlock()
	if !supported {
		return mvn.QualityFailed, errors.Wrapf(driver.ErrUnsupportedCalibrationType,
			"calibration type %q", calibrationType)
	}

	s.logger.Debugf("suit %q running %q calibration", s.name, calibrationType)
	if s.calibrationDelay > 0 {
		timer := s.clk.Timer(s.calibrationDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return mvn.QualityFailed, driver.ErrCalibrationAborted
		case <-timer.C:
		}
	} else if ctx.Err() != nil {
		return mvn.QualityFailed, driver.ErrCalibrationAborted
	}
	return quality, nil
}

// StartStreaming implements driver.Suit. The ctx only bounds the call
// itself; the stream runs until StopStreaming or a fault.
func (s *Suit) StartStreaming(ctx context.Context, cfg mvn.StreamConfig) (<-chan mvn.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return nil, errors.New("suit is disconnected")
	}
	if s.streaming {
		return nil, errors.New("suit is already streaming")
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	out := make(chan mvn.Sample)
	s.streaming = true
	s.streamCancel = cancel
	s.streamStart = s.clk.Now()

	s.activeBackgroundWorkers.Add(1)
	utils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		s.stream(streamCtx, out, cfg)
	})
	return out, nil
}

// stream emits one synthetic frame per sample period until canceled.
func (s *Suit) stream(ctx context.Context, out chan<- mvn.Sample, cfg mvn.StreamConfig) {
	defer close(out)
	period := time.Duration(float64(time.Second) / s.sampleRate)
	ticker := s.clk.Ticker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			select {
			case out <- s.synthesize(now, cfg):
			case <-ctx.Done():
				return
			}
		}
	}
}

// StopStreaming implements driver.Suit and is idempotent.
func (s *Suit) StopStreaming() error {
	s.stopStream()
	return nil
}

// InjectStreamFault simulates a hardware dropout: the sample channel closes
// as if the suit vanished, without a stop having been requested.
func (s *Suit) InjectStreamFault() {
	s.logger.Warnf("suit %q dropping its stream", s.name)
	s.stopStream()
}

func (s *Suit) stopStream() {
	s.mu.Lock()
	cancel := s.streamCancel
	s.streamCancel = nil
	s.streaming = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		s.activeBackgroundWorkers.Wait()
	}
}

// Disconnect implements driver.Suit. A disconnected suit cannot be reused.
func (s *Suit) Disconnect() error {
	s.stopStream()
	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
	return nil
}

// synthesize builds one frame of a gentle synthetic gait: the body sways
// sinusoidally, each segment phase-shifted from the previous one, with
// analytically consistent velocities and accelerations.
func (s *Suit) synthesize(now time.Time, cfg mvn.StreamConfig) mvn.Sample {
	t := now.Sub(s.streamStart).Seconds()
	abs := float64(now.Unix()) + float64(now.Nanosecond())/1e9
	sample := mvn.Sample{SuitName: s.name, RelativeTime: t, AbsoluteTime: abs}

	const (
		sway   = 0.05              // meters of segment sway
		swayW  = 2 * math.Pi * 0.5 // rad/s, a slow half-hertz gait
		tiltA  = 0.1               // rad of segment tilt
		jointA = 5.0               // degrees of joint swing
	)

	if cfg.EnableLinkData {
		sample.Links = make([]mvn.LinkFrame, len(s.profile.LinkLabels))
		for i, name := range s.profile.LinkLabels {
			phase := swayW*t + 0.3*float64(i)
			angle := tiltA * math.Sin(phase)
			sample.Links[i] = mvn.LinkFrame{
				Name: name,
				Position: r3Vec(
					sway*math.Sin(phase),
					sway*math.Cos(phase),
					1.0+0.01*float64(i),
				),
				LinearVelocity: r3Vec(
					sway*swayW*math.Cos(phase),
					-sway*swayW*math.Sin(phase),
					0,
				),
				LinearAcceleration: r3Vec(
					-sway*swayW*swayW*math.Sin(phase),
					-sway*swayW*swayW*math.Cos(phase),
					0,
				),
				Orientation:         zRotation(angle),
				AngularVelocity:     r3Vec(0, 0, tiltA*swayW*math.Cos(phase)),
				AngularAcceleration: r3Vec(0, 0, -tiltA*swayW*swayW*math.Sin(phase)),
			}
		}
	}
	if cfg.EnableSensorData {
		sample.Sensors = make([]mvn.SensorFrame, len(s.profile.SensorLabels))
		for i, name := range s.profile.SensorLabels {
			phase := swayW*t + 0.3*float64(i)
			sample.Sensors[i] = mvn.SensorFrame{
				Name:                 name,
				Position:             r3Vec(sway*math.Sin(phase), sway*math.Cos(phase), 1.2),
				Orientation:          zRotation(tiltA * math.Sin(phase)),
				FreeBodyAcceleration: r3Vec(-sway*swayW*swayW*math.Sin(phase), 0, 0),
				MagneticField:        r3Vec(0.2, 0, 0.4),
			}
		}
	}
	if cfg.EnableJointData {
		sample.Joints = make([]mvn.JointFrame, len(s.profile.JointLabels))
		for i, name := range s.profile.JointLabels {
			phase := swayW*t + 0.3*float64(i)
			sample.Joints[i] = mvn.JointFrame{
				Name:   name,
				Angles: r3Vec(jointA*math.Sin(phase), 0, 0),
			}
		}
	}
	return sample
}

func r3Vec(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// zRotation is a unit quaternion for a rotation of angle radians about Z.
func zRotation(angle float64) quat.Number {
	return quat.Number{Real: math.Cos(angle / 2), Kmag: math.Sin(angle / 2)}
}
