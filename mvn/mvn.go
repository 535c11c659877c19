// Package mvn defines the kinematic data model shared between an Xsens MVN
// motion-capture suit and the driver that manages it: per-link poses,
// velocities and accelerations, raw sensor readings, joint angles, the
// calibration quality scale and the driver lifecycle statuses.
//
// All types here are plain values. Copying them is cheap and safe, and none
// of them hold references back into driver or vendor state.
package mvn

// SuitProfile is the identity of a connected suit together with the fixed
// ordering of its segment, sensor and joint labels. The ordering is decided
// by the vendor runtime when the suit connects and never changes for the
// life of the connection; streamed samples lay their frames out in exactly
// this order.
type SuitProfile struct {
	SuitName     string
	LinkLabels   []string
	SensorLabels []string
	JointLabels  []string
}

// Clone returns a deep copy of the profile.
func (p SuitProfile) Clone() SuitProfile {
	out := p
	out.LinkLabels = copyStrings(p.LinkLabels)
	out.SensorLabels = copyStrings(p.SensorLabels)
	out.JointLabels = copyStrings(p.JointLabels)
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// StreamConfig selects which frame sections the suit computes and streams.
// Disabled sections are simply absent from the delivered samples.
type StreamConfig struct {
	EnableLinkData   bool `json:"enable_link_data"`
	EnableSensorData bool `json:"enable_sensor_data"`
	EnableJointData  bool `json:"enable_joint_data"`
}

// AnyEnabled reports whether at least one section is enabled.
func (sc StreamConfig) AnyEnabled() bool {
	return sc.EnableLinkData || sc.EnableSensorData || sc.EnableJointData
}

// BodyDimensions maps a vendor dimension label (for example "bodyHeight" or
// "footSize") to a length in meters. The suit uses these to scale its
// internal body model before calibration.
type BodyDimensions map[string]float64

// Clone returns a copy of the dimension set. Clone of a nil set is nil.
func (bd BodyDimensions) Clone() BodyDimensions {
	if bd == nil {
		return nil
	}
	out := make(BodyDimensions, len(bd))
	for name, value := range bd {
		out[name] = value
	}
	return out
}

// Merge returns a new set holding the entries of bd with the entries of
// other applied on top. Neither input is modified.
func (bd BodyDimensions) Merge(other BodyDimensions) BodyDimensions {
	out := make(BodyDimensions, len(bd)+len(other))
	for name, value := range bd {
		out[name] = value
	}
	for name, value := range other {
		out[name] = value
	}
	return out
}
