package mvn

import (
	"encoding/json"
	"testing"

	"go.viam.com/test"
)

func TestQualityOrdering(t *testing.T) {
	ordered := []CalibrationQuality{
		QualityFailed, QualityPoor, QualityAcceptable, QualityGood, QualityExcellent,
	}
	for i := 1; i < len(ordered); i++ {
		test.That(t, ordered[i], test.ShouldBeGreaterThan, ordered[i-1])
	}
}

func TestMeetsMinimum(t *testing.T) {
	t.Run("equal grade passes", func(t *testing.T) {
		test.That(t, QualityAcceptable.MeetsMinimum(QualityAcceptable), test.ShouldBeTrue)
	})

	t.Run("higher grade passes", func(t *testing.T) {
		test.That(t, QualityExcellent.MeetsMinimum(QualityPoor), test.ShouldBeTrue)
	})

	t.Run("lower grade fails", func(t *testing.T) {
		test.That(t, QualityPoor.MeetsMinimum(QualityGood), test.ShouldBeFalse)
	})

	t.Run("failed only passes a failed threshold", func(t *testing.T) {
		test.That(t, QualityFailed.MeetsMinimum(QualityFailed), test.ShouldBeTrue)
		test.That(t, QualityFailed.MeetsMinimum(QualityPoor), test.ShouldBeFalse)
		test.That(t, QualityFailed.MeetsMinimum(QualityExcellent), test.ShouldBeFalse)
	})

	t.Run("raising the threshold never admits more grades", func(t *testing.T) {
		for q := QualityFailed; q <= QualityExcellent; q++ {
			for minimum := QualityFailed; minimum < QualityExcellent; minimum++ {
				if !q.MeetsMinimum(minimum) {
					test.That(t, q.MeetsMinimum(minimum+1), test.ShouldBeFalse)
				}
			}
		}
	})
}

func TestParseCalibrationQuality(t *testing.T) {
	for q, name := range qualityName {
		parsed, err := ParseCalibrationQuality(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, q)
	}

	parsed, err := ParseCalibrationQuality("GOOD")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, QualityGood)

	_, err = ParseCalibrationQuality("superb")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "superb")
}

func TestQualityJSON(t *testing.T) {
	data, err := json.Marshal(QualityGood)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, `"good"`)

	var q CalibrationQuality
	test.That(t, json.Unmarshal([]byte(`"Acceptable"`), &q), test.ShouldBeNil)
	test.That(t, q, test.ShouldEqual, QualityAcceptable)

	test.That(t, json.Unmarshal([]byte(`"superb"`), &q), test.ShouldNotBeNil)

	_, err = json.Marshal(CalibrationQuality(42))
	test.That(t, err, test.ShouldNotBeNil)
}
