package mvn

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// LinkFrame is the reconstructed kinematic state of one body segment,
// expressed in the global frame. Positions are in meters, linear velocity
// and acceleration in m/s and m/s², angular velocity and acceleration in
// rad/s and rad/s². Orientation rotates the segment frame into the global
// frame.
type LinkFrame struct {
	Name                string
	Position            r3.Vector
	LinearVelocity      r3.Vector
	LinearAcceleration  r3.Vector
	Orientation         quat.Number
	AngularVelocity     r3.Vector
	AngularAcceleration r3.Vector
}

// SensorFrame is the raw state of one inertial sensor on the suit.
// FreeBodyAcceleration is the sensor acceleration with gravity removed, in
// m/s². MagneticField is in arbitrary vendor units.
type SensorFrame struct {
	Name                 string
	Position             r3.Vector
	Orientation          quat.Number
	FreeBodyAcceleration r3.Vector
	MagneticField        r3.Vector
}

// JointFrame is the decomposed rotation of one joint. Angles holds the
// x/y/z rotation components in degrees.
type JointFrame struct {
	Name   string
	Angles r3.Vector
}

// Sample is one time-stamped motion frame from a suit. RelativeTime is
// seconds since the start of the current acquisition; AbsoluteTime is
// seconds on the device clock since the Unix epoch. Sections disabled in
// the stream configuration are nil.
type Sample struct {
	SuitName     string
	RelativeTime float64
	AbsoluteTime float64
	Links        []LinkFrame
	Sensors      []SensorFrame
	Joints       []JointFrame
}

// Clone returns a deep copy of the sample. The copy shares no slice storage
// with the original, so either side can be overwritten without disturbing
// the other.
func (s Sample) Clone() Sample {
	out := s
	if s.Links != nil {
		out.Links = make([]LinkFrame, len(s.Links))
		copy(out.Links, s.Links)
	}
	if s.Sensors != nil {
		out.Sensors = make([]SensorFrame, len(s.Sensors))
		copy(out.Sensors, s.Sensors)
	}
	if s.Joints != nil {
		out.Joints = make([]JointFrame, len(s.Joints))
		copy(out.Joints, s.Joints)
	}
	return out
}
