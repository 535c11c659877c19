package mvn

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// CalibrationQuality grades the outcome of a calibration routine as reported
// by the vendor runtime. Values are ordered: a numerically higher quality is
// strictly better. The zero value is QualityFailed, so an unset quality never
// passes a threshold by accident.
type CalibrationQuality int32

const (
	// QualityFailed means the routine did not produce a usable calibration.
	QualityFailed CalibrationQuality = 0
	// QualityPoor is a usable but unreliable calibration.
	QualityPoor CalibrationQuality = 1
	// QualityAcceptable is the lowest grade recommended for recording.
	QualityAcceptable CalibrationQuality = 2
	// QualityGood is a reliable calibration.
	QualityGood CalibrationQuality = 3
	// QualityExcellent is the best grade the runtime reports.
	QualityExcellent CalibrationQuality = 4
)

var qualityName = map[CalibrationQuality]string{
	0: "failed",
	1: "poor",
	2: "acceptable",
	3: "good",
	4: "excellent",
}

func (q CalibrationQuality) String() string {
	if name, ok := qualityName[q]; ok {
		return name
	}
	return fmt.Sprintf("CalibrationQuality(%d)", int32(q))
}

// MeetsMinimum reports whether a calibration graded q satisfies the given
// acceptance threshold. A grade equal to the threshold passes.
func (q CalibrationQuality) MeetsMinimum(minimum CalibrationQuality) bool {
	return q >= minimum
}

// ParseCalibrationQuality converts the string form of a grade (as found in
// configuration) back to its value. Matching is case-insensitive.
func ParseCalibrationQuality(s string) (CalibrationQuality, error) {
	for q, name := range qualityName {
		if strings.EqualFold(s, name) {
			return q, nil
		}
	}
	return QualityFailed, errors.Errorf("unknown calibration quality %q", s)
}

// MarshalJSON encodes the grade as its string form.
func (q CalibrationQuality) MarshalJSON() ([]byte, error) {
	if _, ok := qualityName[q]; !ok {
		return nil, errors.Errorf("unknown calibration quality %d", int32(q))
	}
	return json.Marshal(q.String())
}

// UnmarshalJSON decodes a grade from its string form.
func (q *CalibrationQuality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCalibrationQuality(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
