package fake

import (
	"context"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viam-labs/xsensmvn/driver"
)

// Scanner hands out fake suits. Suits can be registered up front or added
// while a scan is in flight to exercise discovery timing.
type Scanner struct {
	logger golog.Logger

	// RequireLicensePath, when non-empty, rejects connects presenting a
	// different license file.
	RequireLicensePath string
	// SupportedConfigurations, when non-nil, whitelists the suit
	// configurations a connect may ask for.
	SupportedConfigurations []string

	mu        sync.Mutex
	available []*Suit
}

// NewScanner builds a scanner with the given suits already discoverable.
func NewScanner(logger golog.Logger, suits ...*Suit) *Scanner {
	return &Scanner{logger: logger, available: suits}
}

// AddSuit makes a suit discoverable. Safe to call during a scan.
func (sc *Scanner) AddSuit(s *Suit) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.available = append(sc.available, s)
}

// Scan implements driver.Scanner. License and configuration problems fail
// immediately; otherwise the scan returns the first available suit, polling
// until ctx expires. A suit already available connects even when ctx is
// past its deadline.
func (sc *Scanner) Scan(ctx context.Context, opts driver.ConnectOptions) (driver.Suit, error) {
	if sc.RequireLicensePath != "" && opts.LicensePath != sc.RequireLicensePath {
		return nil, errors.Wrapf(driver.ErrInvalidLicense, "license %q", opts.LicensePath)
	}
	if sc.SupportedConfigurations != nil && !containsString(sc.SupportedConfigurations, opts.SuitConfiguration) {
		return nil, errors.Wrapf(driver.ErrUnsupportedConfiguration,
			"suit configuration %q", opts.SuitConfiguration)
	}

	for {
		if suit := sc.take(); suit != nil {
			sc.logger.Debugf("scan found suit %q", suit.name)
			return suit, nil
		}
		if !utils.SelectContextOrWait(ctx, scanPollInterval) {
			return nil, errors.Wrap(driver.ErrNoSuitFound, "scan window elapsed")
		}
	}
}

func (sc *Scanner) take() *Suit {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if len(sc.available) == 0 {
		return nil
	}
	suit := sc.available[0]
	sc.available = sc.available[1:]
	return suit
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
