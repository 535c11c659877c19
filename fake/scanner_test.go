package fake

import (
	"context"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/viam-labs/xsensmvn/driver"
)

func TestScannerScan(t *testing.T) {
	logger := golog.NewTestLogger(t)
	opts := driver.ConnectOptions{
		LicensePath:       "/etc/xsens/license.lic",
		SuitConfiguration: "FullBody",
	}

	t.Run("available suit connects even on an expired window", func(t *testing.T) {
		suit := NewSuit(SuitConfig{Name: "MVN-READY"}, logger)
		sc := NewScanner(logger, suit)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		found, err := sc.Scan(ctx, opts)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, found.Profile().SuitName, test.ShouldEqual, "MVN-READY")
	})

	t.Run("no suit within the window", func(t *testing.T) {
		sc := NewScanner(logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := sc.Scan(ctx, opts)
		test.That(t, errors.Is(err, driver.ErrNoSuitFound), test.ShouldBeTrue)
	})

	t.Run("suit powered on mid-scan", func(t *testing.T) {
		sc := NewScanner(logger)
		suit := NewSuit(SuitConfig{Name: "MVN-LATE"}, logger)
		go func() {
			time.Sleep(20 * time.Millisecond)
			sc.AddSuit(suit)
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		found, err := sc.Scan(ctx, opts)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, found.Profile().SuitName, test.ShouldEqual, "MVN-LATE")
	})

	t.Run("wrong license", func(t *testing.T) {
		sc := NewScanner(logger, NewSuit(SuitConfig{}, logger))
		sc.RequireLicensePath = "/etc/xsens/license.lic"
		badOpts := opts
		badOpts.LicensePath = "/tmp/expired.lic"
		_, err := sc.Scan(context.Background(), badOpts)
		test.That(t, errors.Is(err, driver.ErrInvalidLicense), test.ShouldBeTrue)
	})

	t.Run("unsupported suit configuration", func(t *testing.T) {
		sc := NewScanner(logger, NewSuit(SuitConfig{}, logger))
		sc.SupportedConfigurations = []string{"FullBody", "LowerBody"}
		badOpts := opts
		badOpts.SuitConfiguration = "SingleArm"
		_, err := sc.Scan(context.Background(), badOpts)
		test.That(t, errors.Is(err, driver.ErrUnsupportedConfiguration), test.ShouldBeTrue)
	})
}
