package healthtracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthTracker_sequence(t *testing.T) {
	ht := newTracker(HealthConfig{
		ErrorSequence: 3,
		WarnSequence:  1,
		ErrorDuration: time.Hour,
		WarnDuration:  time.Hour,
	}, "test_sequence", "store exports")

	assert.NoError(t, ht.checkSequence())
	assert.NoError(t, ht.checkDuration())

	ht.AddFailure()
	assert.Error(t, ht.checkSequence(), "warning")
	ht.AddFailure()
	ht.AddFailure()
	err := ht.checkSequence()
	assert.EqualError(t, err, "failed to store exports 3 consecutive times")
	assert.Equal(t, uint32(3), ht.Failures())
	assert.NoError(t, ht.checkDuration(), "below duration thresholds")

	ht.AddSuccess()
	assert.Zero(t, ht.Failures())
	assert.NoError(t, ht.checkSequence())
}

func TestHealthTracker_duration(t *testing.T) {
	ht := newTracker(HealthConfig{
		ErrorSequence: 100,
		WarnSequence:  100,
		ErrorDuration: 0,
		WarnDuration:  0,
	}, "test_duration", "store exports")

	ht.AddFailure()
	assert.Error(t, ht.checkDuration())
	assert.NoError(t, ht.checkSequence())
}

func TestHealthConfig_Validated(t *testing.T) {
	hc := HealthConfig{}.Validated()
	assert.Equal(t, MinEvaluationInterval, hc.EvaluationInterval)
	assert.Equal(t, uint32(1), hc.ErrorSequence)
	assert.Equal(t, uint32(1), hc.WarnSequence)
}
