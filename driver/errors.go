package driver

import (
	"fmt"

	"github.com/viam-labs/xsensmvn/mvn"
)

// StatusError is returned when an operation is invoked while the driver is
// in a status that does not permit it. The operation has no effect: the
// driver's status and data are exactly as they were before the call.
type StatusError struct {
	Op     string
	Status mvn.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot %s while driver status is %s", e.Op, e.Status)
}

func newStatusError(op string, status mvn.Status) error {
	return &StatusError{Op: op, Status: status}
}
