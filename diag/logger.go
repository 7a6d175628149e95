package diag

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Logger is a Sink that logs diagnostics and keeps per kind counts.
// Truncated records are common in damaged logs and are logged at debug level.
type Logger struct {
	log    logrus.FieldLogger
	counts map[Kind]*atomic.Int64
}

// NewLogger returns a Logger. A nil logger uses the logrus standard logger.
func NewLogger(logger logrus.FieldLogger) *Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	counts := make(map[Kind]*atomic.Int64, len(Kinds))
	for _, k := range Kinds {
		counts[k] = atomic.NewInt64(0)
	}
	return &Logger{
		log:    logger,
		counts: counts,
	}
}

// Default returns a Logger that writes to the logrus standard logger
func Default() *Logger {
	return NewLogger(nil)
}

func (l *Logger) Report(d Diagnostic) {
	if c, ok := l.counts[d.Kind]; ok {
		c.Inc()
	}
	metricDiagnostics.WithLabelValues(string(d.Kind)).Inc()

	entry := l.log.WithField("kind", d.Kind)
	if d.Type != "" {
		entry = entry.WithField("type", d.Type)
	}
	if d.Tag >= 0 {
		entry = entry.WithField("tag", d.Tag)
	}
	if d.Key != "" {
		entry = entry.WithField("key", d.Key)
	}
	if d.Offset >= 0 {
		entry = entry.WithField("offset", d.Offset)
	}
	if d.Err != nil {
		entry = entry.WithError(d.Err)
	}
	switch d.Kind {
	case TruncatedRecord:
		entry.Debug("Field truncated")
	case TruncatedLog:
		entry.Warn("Log truncated, stopped reading frames")
	case UnknownMessageType:
		entry.Warn("Unknown message type, frame dropped")
	case UnrecognizedEventType:
		entry.Warn("No state rule for event type")
	default:
		entry.Warn("Decode problem")
	}
}

// Count returns how often a kind was reported
func (l *Logger) Count(kind Kind) int64 {
	if c, ok := l.counts[kind]; ok {
		return c.Load()
	}
	return 0
}

// Counts returns all non-zero counts
func (l *Logger) Counts() map[Kind]int64 {
	out := make(map[Kind]int64)
	for k, c := range l.counts {
		if n := c.Load(); n > 0 {
			out[k] = n
		}
	}
	return out
}
