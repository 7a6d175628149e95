package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Check())
	assert.Equal(t, "fs", c.Storage.Type)
	assert.Equal(t, 200, c.History.Groups)
}

func TestConfig_LoadYAML(t *testing.T) {
	t.Setenv("PRDEMO_TEST_ROOT", "/tmp/demos")
	c := Default()
	err := c.LoadYAML([]byte(`
storage:
  type: memory
  options:
    root_path: ${PRDEMO_TEST_ROOT}
  export_prefix: out/
history:
  groups: 50
concurrency: 2
http:
  address: ":8500"
log:
  level: debug
`), true)
	require.NoError(t, err)
	require.NoError(t, c.Check())
	assert.Equal(t, "memory", c.Storage.Type)
	assert.Equal(t, "/tmp/demos", c.Storage.Options["root_path"])
	assert.Equal(t, "out/", c.Storage.ExportPrefix)
	assert.Equal(t, 50, c.History.Groups)
	assert.Equal(t, 2, c.Concurrency)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "human", c.Log.Format, "omitted keys are untouched")
	assert.Contains(t, c.String(), "groups: 50")
}

func TestConfig_LoadYAML_unknownKey(t *testing.T) {
	c := Default()
	err := c.LoadYAML([]byte("demos: {}\n"), false)
	assert.Error(t, err)
}

func TestConfig_Check(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no storage", func(c *Config) { c.Storage.Type = "" }},
		{"groups", func(c *Config) { c.History.Groups = 0 }},
		{"concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"http address", func(c *Config) { c.HTTP.Address = "nope" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"schema file", func(c *Config) { c.SchemaFile = "/does/not/exist.yaml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			assert.Error(t, c.Check())
		})
	}
}

func TestConfig_LoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schema, []byte("version: 1\n"), 0o644))
	conf := filepath.Join(dir, "prdemo.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("schema_file: "+schema+"\n"), 0o644))

	c := Default()
	require.NoError(t, c.LoadYAMLFile(conf, false))
	assert.Equal(t, schema, c.SchemaFile)
	assert.NoError(t, c.Check())

	err := c.LoadYAMLFile(filepath.Join(dir, "missing.yaml"), false)
	assert.Error(t, err)
}
