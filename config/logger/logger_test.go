package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceFormatter(t *testing.T) {
	f := &NamespaceFormatter{Parent: &logrus.TextFormatter{DisableTimestamp: true, DisableColors: true}}

	e := logrus.NewEntry(logrus.New()).WithField(DemoField, "match1")
	e.Message = "Parsed"
	out, err := f.Format(e)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[match1        ] Parsed")

	e = logrus.NewEntry(logrus.New())
	e.Message = "Plain"
	out, err = f.Format(e)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "[")
}

func TestConfig_Check(t *testing.T) {
	assert.NoError(t, DefaultConfig.Check())
	assert.Error(t, Config{Level: "nope", Format: "human"}.Check())
	assert.Error(t, Config{Level: "info", Format: "nope"}.Check())
	assert.Error(t, Config{Level: "info", Format: "json", Timestamp: "nope"}.Check())
	assert.NoError(t, Config{Level: "info", Format: "json"}.Check())
}

func TestConfig_Merge(t *testing.T) {
	c := DefaultConfig.Merge(Config{Format: "json"})
	assert.Equal(t, Config{Level: "info", Format: "json", Timestamp: "short"}, c)
	assert.IsType(t, &logrus.JSONFormatter{}, c.Formatter())
	assert.IsType(t, &NamespaceFormatter{}, DefaultConfig.Formatter())
}

func TestForDemo(t *testing.T) {
	l, hook := test.NewNullLogger()
	ForDemo(l, "match1").Info("hello")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "match1", hook.LastEntry().Data[DemoField])
}
