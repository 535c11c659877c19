package driver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/viam-labs/xsensmvn/mvn"
)

// staticScanner hands out a pre-built suit, or blocks until the scan
// deadline when it has none left.
type staticScanner struct {
	mu   sync.Mutex
	suit Suit
	err  error

	lastOpts ConnectOptions
}

func (s *staticScanner) Scan(ctx context.Context, opts ConnectOptions) (Suit, error) {
	s.mu.Lock()
	s.lastOpts = opts
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return nil, err
	}
	if s.suit != nil {
		suit := s.suit
		s.suit = nil
		s.mu.Unlock()
		return suit, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ErrNoSuitFound
}

func (s *staticScanner) arm(suit Suit) {
	s.mu.Lock()
	s.suit = suit
	s.mu.Unlock()
}

// mockSuit is a scriptable vendor connection.
type mockSuit struct {
	mu            sync.Mutex
	profile       mvn.SuitProfile
	dims          mvn.BodyDimensions
	calibrateFunc func(ctx context.Context, calibrationType string) (mvn.CalibrationQuality, error)
	setDimsErr    error
	startErr      error
	stopErr       error
	stream        chan mvn.Sample
	streaming     bool
	disconnected  bool
}

func newMockSuit() *mockSuit {
	return &mockSuit{
		profile: mvn.SuitProfile{
			SuitName:     "mock1",
			LinkLabels:   []string{"Pelvis", "T8", "Head"},
			SensorLabels: []string{"Pelvis", "T8"},
			JointLabels:  []string{"jL5S1", "jT9T8"},
		},
	}
}

func (m *mockSuit) Profile() mvn.SuitProfile { return m.profile }

func (m *mockSuit) SetBodyDimensions(dims mvn.BodyDimensions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setDimsErr != nil {
		return m.setDimsErr
	}
	m.dims = m.dims.Merge(dims)
	return nil
}

func (m *mockSuit) Calibrate(ctx context.Context, calibrationType string) (mvn.CalibrationQuality, error) {
	m.mu.Lock()
	f := m.calibrateFunc
	m.mu.Unlock()
	if f != nil {
		return f(ctx, calibrationType)
	}
	return mvn.QualityGood, nil
}

func (m *mockSuit) StartStreaming(ctx context.Context, cfg mvn.StreamConfig) (<-chan mvn.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.stream = make(chan mvn.Sample)
	m.streaming = true
	return m.stream, nil
}

func (m *mockSuit) StopStreaming() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	if m.streaming {
		close(m.stream)
		m.streaming = false
	}
	return nil
}

func (m *mockSuit) Disconnect() error {
	m.mu.Lock()
	m.disconnected = true
	m.mu.Unlock()
	return nil
}

// push delivers one frame to the driver's pump, blocking until received.
func (m *mockSuit) push(s mvn.Sample) {
	m.mu.Lock()
	ch := m.stream
	m.mu.Unlock()
	ch <- s
}

// failStream closes the sample channel as if the hardware vanished.
func (m *mockSuit) failStream() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streaming {
		close(m.stream)
		m.streaming = false
	}
}

func (m *mockSuit) isDisconnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnected
}

func (m *mockSuit) appliedDims() mvn.BodyDimensions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dims.Clone()
}

func testConfig() Config {
	return Config{
		LicensePath:               "license.lic",
		SuitConfiguration:         "FullBody",
		AcquisitionScenario:       "default",
		DefaultCalibrationType:    "Npose",
		MinimumCalibrationQuality: mvn.QualityAcceptable,
		ScanTimeout:               time.Second,
		BodyDimensions:            mvn.BodyDimensions{"bodyHeight": 1.78},
		Stream: mvn.StreamConfig{
			EnableLinkData:   true,
			EnableSensorData: true,
			EnableJointData:  true,
		},
	}
}

func connectedDriver(t *testing.T, cfg Config) (*Driver, *mockSuit) {
	t.Helper()
	logger := golog.NewTestLogger(t)
	suit := newMockSuit()
	d, err := New(cfg, &staticScanner{suit: suit}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ConfigureAndConnect(context.Background()), test.ShouldBeNil)
	return d, suit
}

func readyDriver(t *testing.T, cfg Config) (*Driver, *mockSuit) {
	t.Helper()
	d, suit := connectedDriver(t, cfg)
	test.That(t, d.Calibrate(context.Background(), ""), test.ShouldBeNil)
	test.That(t, d.Status(), test.ShouldEqual, mvn.StatusCalibratedAndReadyToRecord)
	return d, suit
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("connects and applies configured state", func(t *testing.T) {
		d, suit := connectedDriver(t, testConfig())
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusConnected)
		test.That(t, d.SuitName(), test.ShouldEqual, "mock1")
		test.That(t, suit.appliedDims(), test.ShouldResemble, mvn.BodyDimensions{"bodyHeight": 1.78})
		test.That(t, d.BodyDimensions(), test.ShouldResemble, mvn.BodyDimensions{"bodyHeight": 1.78})

		height, ok := d.BodyDimension("bodyHeight")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, height, test.ShouldEqual, 1.78)

		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
	})

	t.Run("passes connect selectors to the scanner", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		scanner := &staticScanner{suit: newMockSuit()}
		d, err := New(testConfig(), scanner, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, d.ConfigureAndConnect(ctx), test.ShouldBeNil)
		test.That(t, scanner.lastOpts, test.ShouldResemble, ConnectOptions{
			LicensePath:         "license.lic",
			SuitConfiguration:   "FullBody",
			AcquisitionScenario: "default",
		})
		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
	})

	t.Run("zero scan timeout with no suit fails back to disconnected", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		cfg := testConfig()
		cfg.ScanTimeout = 0
		d, err := New(cfg, &staticScanner{}, logger)
		test.That(t, err, test.ShouldBeNil)

		err = d.ConfigureAndConnect(ctx)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrNoSuitFound), test.ShouldBeTrue)
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusDisconnected)
	})

	t.Run("license rejection fails back to disconnected", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		d, err := New(testConfig(), &staticScanner{err: ErrInvalidLicense}, logger)
		test.That(t, err, test.ShouldBeNil)

		err = d.ConfigureAndConnect(ctx)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidLicense), test.ShouldBeTrue)
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusDisconnected)
	})

	t.Run("body dimension push failure releases the suit", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		suit := newMockSuit()
		suit.setDimsErr = errors.New("bad dimension label")
		d, err := New(testConfig(), &staticScanner{suit: suit}, logger)
		test.That(t, err, test.ShouldBeNil)

		err = d.ConfigureAndConnect(ctx)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "bad dimension label")
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusDisconnected)
		test.That(t, suit.isDisconnected(), test.ShouldBeTrue)
	})

	t.Run("reconnect after terminate", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		scanner := &staticScanner{suit: newMockSuit()}
		d, err := New(testConfig(), scanner, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, d.ConfigureAndConnect(ctx), test.ShouldBeNil)
		test.That(t, d.Terminate(ctx), test.ShouldBeNil)

		scanner.arm(newMockSuit())
		test.That(t, d.ConfigureAndConnect(ctx), test.ShouldBeNil)
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusConnected)
		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
	})
}

func TestLabels(t *testing.T) {
	ctx := context.Background()
	d, suit := connectedDriver(t, testConfig())

	test.That(t, d.LinkLabels(), test.ShouldResemble, suit.profile.LinkLabels)
	test.That(t, d.SensorLabels(), test.ShouldResemble, suit.profile.SensorLabels)
	test.That(t, d.JointLabels(), test.ShouldResemble, suit.profile.JointLabels)

	// Callers cannot disturb the stored ordering through the returned slice.
	labels := d.LinkLabels()
	labels[0] = "clobbered"
	test.That(t, d.LinkLabels()[0], test.ShouldEqual, "Pelvis")

	test.That(t, d.Terminate(ctx), test.ShouldBeNil)
	test.That(t, d.LinkLabels(), test.ShouldBeEmpty)
	test.That(t, d.SuitName(), test.ShouldBeEmpty)
}

func TestOperationsRejectedByStatus(t *testing.T) {
	ops := map[string]func(d *Driver) error{
		"connect": func(d *Driver) error {
			return d.ConfigureAndConnect(context.Background())
		},
		"calibrate": func(d *Driver) error {
			return d.Calibrate(context.Background(), "")
		},
		"start acquisition": func(d *Driver) error {
			return d.StartAcquisition(context.Background())
		},
		"stop acquisition": func(d *Driver) error {
			return d.StopAcquisition(context.Background())
		},
		"set body dimensions": func(d *Driver) error {
			return d.SetBodyDimensions(context.Background(), mvn.BodyDimensions{"bodyHeight": 1.8})
		},
	}
	allowed := map[string][]mvn.Status{
		"connect":             {mvn.StatusDisconnected},
		"calibrate":           {mvn.StatusConnected, mvn.StatusCalibratedAndReadyToRecord},
		"start acquisition":   {mvn.StatusCalibratedAndReadyToRecord},
		"stop acquisition":    {mvn.StatusRecording},
		"set body dimensions": {mvn.StatusConnected},
	}
	statuses := []mvn.Status{
		mvn.StatusDisconnected,
		mvn.StatusScanning,
		mvn.StatusConnected,
		mvn.StatusCalibrating,
		mvn.StatusCalibratedAndReadyToRecord,
		mvn.StatusRecording,
		mvn.StatusUnknown,
	}

	for opName, op := range ops {
		for _, status := range statuses {
			if statusIn(allowed[opName], status) {
				continue
			}
			op, status := op, status
			t.Run(fmt.Sprintf("%s while %s", opName, status), func(t *testing.T) {
				logger := golog.NewTestLogger(t)
				d, err := New(testConfig(), &staticScanner{}, logger)
				test.That(t, err, test.ShouldBeNil)
				d.suit = newMockSuit()
				d.setStatus(status)

				err = op(d)
				test.That(t, err, test.ShouldNotBeNil)
				var se *StatusError
				test.That(t, errors.As(err, &se), test.ShouldBeTrue)
				test.That(t, se.Status, test.ShouldEqual, status)
				test.That(t, d.Status(), test.ShouldEqual, status)
			})
		}
	}
}

func statusIn(list []mvn.Status, s mvn.Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func TestTerminateIdempotent(t *testing.T) {
	ctx := context.Background()

	t.Run("from disconnected", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		d, err := New(testConfig(), &staticScanner{}, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusDisconnected)
	})

	t.Run("from connected", func(t *testing.T) {
		d, suit := connectedDriver(t, testConfig())
		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
		test.That(t, suit.isDisconnected(), test.ShouldBeTrue)
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusDisconnected)
		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
	})

	t.Run("from unknown clears the fault", func(t *testing.T) {
		d, _ := connectedDriver(t, testConfig())
		d.fail(errors.New("engine crashed"))
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusUnknown)
		test.That(t, d.LastError(), test.ShouldNotBeNil)

		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusDisconnected)
		test.That(t, d.LastError(), test.ShouldBeNil)
	})

	t.Run("during calibration", func(t *testing.T) {
		d, suit := connectedDriver(t, testConfig())
		started := make(chan struct{})
		suit.calibrateFunc = func(ctx context.Context, _ string) (mvn.CalibrationQuality, error) {
			close(started)
			<-ctx.Done()
			return mvn.QualityFailed, ErrCalibrationAborted
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- d.Calibrate(context.Background(), "")
		}()
		<-started

		test.That(t, d.Terminate(ctx), test.ShouldBeNil)
		test.That(t, errors.Is(<-errCh, ErrCalibrationAborted), test.ShouldBeTrue)
		test.That(t, d.Status(), test.ShouldEqual, mvn.StatusDisconnected)
		test.That(t, suit.isDisconnected(), test.ShouldBeTrue)
	})
}
