// Package logger implements a custom logger that prefixes log messages with the demo name.
package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DemoField is the log field that NamespaceFormatter turns into a prefix
const DemoField = "demo"

// NamespaceFormatter is a logrus formatter that adds the 'demo' field to a log prefix
// for nicer formatted text output.
type NamespaceFormatter struct {
	Parent logrus.Formatter
}

// Format implements logrus.Formatter
func (f *NamespaceFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if ns, ok := entry.Data[DemoField].(string); ok {
		entry.Message = fmt.Sprintf("[%-14s] %s", ns, entry.Message)
	}
	return f.Parent.Format(entry)
}
