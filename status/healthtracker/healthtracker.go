// Package healthtracker turns the outcome of a repeated activity, like
// storing exports, into healthz checks.
package healthtracker

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wojas/go-healthz"
	"go.uber.org/atomic"
)

type HealthTracker struct {
	Config   HealthConfig
	sequence atomic.Uint32
	since    atomic.Time
	prefix   string
	activity string
	logger   logrus.FieldLogger
}

// New creates a HealthTracker and registers its checks with healthz.
// The prefix must be unique within the process.
func New(hc HealthConfig, prefix string, activity string) *HealthTracker {
	ht := newTracker(hc, prefix, activity)
	ht.Register()
	return ht
}

func newTracker(hc HealthConfig, prefix string, activity string) *HealthTracker {
	return &HealthTracker{
		Config:   hc.Validated(),
		prefix:   prefix,
		activity: activity,
		logger:   logrus.WithField("healthtracker", prefix),
	}
}

// Register registers the consecutive failure and failure duration checks
func (ht *HealthTracker) Register() {
	healthz.Register(fmt.Sprintf("%s_failed_attempts", ht.prefix),
		ht.Config.EvaluationInterval, ht.checkSequence)
	healthz.Register(fmt.Sprintf("%s_failed_duration", ht.prefix),
		ht.Config.EvaluationInterval, ht.checkDuration)
	ht.logger.Debug("registered health checks")
}

func (ht *HealthTracker) checkSequence() error {
	conseqFails := ht.sequence.Load()

	if conseqFails >= ht.Config.ErrorSequence {
		ht.logger.Warnf("%d consecutive failures is violating the error threshold (%d)", conseqFails, ht.Config.ErrorSequence)
		return fmt.Errorf("failed to %s %d consecutive times", ht.activity, conseqFails)
	} else if conseqFails >= ht.Config.WarnSequence {
		ht.logger.Warnf("%d consecutive failures is violating the warning threshold (%d)", conseqFails, ht.Config.WarnSequence)
		return healthz.Warnf("failed to %s %d consecutive times", ht.activity, conseqFails)
	}
	return nil
}

func (ht *HealthTracker) checkDuration() error {
	conseqFails := ht.sequence.Load()
	if conseqFails == 0 {
		return nil
	}

	failingFor := time.Since(ht.since.Load())
	if failingFor >= ht.Config.ErrorDuration {
		ht.logger.Warnf("failure for %s is violating the error threshold (%s)", failingFor.Round(time.Second), ht.Config.ErrorDuration)
		return fmt.Errorf("failed to %s for %s", ht.activity, failingFor.Round(time.Second))
	} else if failingFor >= ht.Config.WarnDuration {
		ht.logger.Warnf("failure for %s is violating the warning threshold (%s)", failingFor.Round(time.Second), ht.Config.WarnDuration)
		return healthz.Warnf("failed to %s for %s", ht.activity, failingFor.Round(time.Second))
	}
	return nil
}

// AddFailure records a failed attempt
func (ht *HealthTracker) AddFailure() {
	if ht.sequence.Load() == 0 {
		ht.since.Store(time.Now())
	}
	failures := ht.sequence.Inc()
	ht.logger.Debugf("incremented consecutive failures to %d", failures)
}

// AddSuccess resets the consecutive failure count
func (ht *HealthTracker) AddSuccess() {
	ht.sequence.Store(0)
	ht.logger.Debug("tracked successful attempt")
}

// Failures returns the current number of consecutive failures
func (ht *HealthTracker) Failures() uint32 {
	return ht.sequence.Load()
}
