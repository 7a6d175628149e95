package healthtracker

import (
	"time"
)

const (
	// MinEvaluationInterval is the minimum interval allowed between healthz evaluation
	MinEvaluationInterval = time.Second

	// MinErrorDuration is the minimum duration before healthz evaluates a tracked item as failing
	MinErrorDuration = 0 * time.Second

	// MinWarnDuration is the minimum duration before healthz evaluates a tracked item as warning
	MinWarnDuration = 0 * time.Second
)

// HealthConfig sets the thresholds at which repeated failures of an activity
// turn the healthz status into a warning or an error.
type HealthConfig struct {
	EvaluationInterval time.Duration `yaml:"interval"`
	ErrorDuration      time.Duration `yaml:"error_duration"`
	WarnDuration       time.Duration `yaml:"warn_duration"`
	ErrorSequence      uint32        `yaml:"error_sequence"`
	WarnSequence       uint32        `yaml:"warn_sequence"`
}

// DefaultConfig is used for activities without explicit config
var DefaultConfig = HealthConfig{
	EvaluationInterval: 5 * time.Second,
	ErrorDuration:      5 * time.Minute,
	WarnDuration:       time.Minute,
	ErrorSequence:      5,
	WarnSequence:       2,
}

func (hc HealthConfig) Validated() HealthConfig {
	// Enforce MinEvaluationInterval
	if hc.EvaluationInterval < MinEvaluationInterval {
		hc.EvaluationInterval = MinEvaluationInterval
	}

	// Enforce MinErrorDuration
	if hc.ErrorDuration < MinErrorDuration {
		hc.ErrorDuration = MinErrorDuration
	}

	// Enforce MinWarnDuration
	if hc.WarnDuration < MinWarnDuration {
		hc.WarnDuration = MinWarnDuration
	}

	// A zero sequence threshold would fail without any failure
	if hc.ErrorSequence == 0 {
		hc.ErrorSequence = 1
	}
	if hc.WarnSequence == 0 {
		hc.WarnSequence = 1
	}

	return hc
}
