package mvn

import "fmt"

// Status describes the lifecycle stage of a suit driver.
type Status int32

const (
	// StatusDisconnected is the initial status: no suit session exists.
	StatusDisconnected Status = 0
	// StatusScanning means the driver is searching for a powered suit.
	StatusScanning Status = 1
	// StatusConnected means a suit session is up but not yet calibrated.
	StatusConnected Status = 2
	// StatusCalibrating means a calibration routine is running on the suit.
	StatusCalibrating Status = 3
	// StatusCalibratedAndReadyToRecord means the last calibration was
	// accepted and acquisition may start.
	StatusCalibratedAndReadyToRecord Status = 4
	// StatusRecording means motion frames are streaming from the suit.
	StatusRecording Status = 5
	// StatusUnknown means the vendor runtime failed in a way the driver
	// cannot recover from; only termination leaves this status.
	StatusUnknown Status = 6
)

var statusName = map[Status]string{
	0: "Disconnected",
	1: "Scanning",
	2: "Connected",
	3: "Calibrating",
	4: "CalibratedAndReadyToRecord",
	5: "Recording",
	6: "Unknown",
}

func (s Status) String() string {
	if name, ok := statusName[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}
