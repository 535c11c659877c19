// Package testutils contains helpers shared by this repo's test suites.
package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain wraps a package's TestMain to fail the suite when any test
// leaks a goroutine.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m)
}
