package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aqlkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingOptionalFile(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), conf)
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	conf, err := Load(writeConfig(t, ""), true)
	require.NoError(t, err)
	assert.Equal(t, Default(), conf)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	conf, err := Load(writeConfig(t, "format: json\ndb: q.db\nlogLevel: debug\ncolor: false\n"), true)
	require.NoError(t, err)

	assert.Equal(t, "json", conf.Format)
	assert.Equal(t, "q.db", conf.DB)
	require.NotNil(t, conf.Color)
	assert.False(t, *conf.Color)

	level, err := conf.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)
}

func TestLoad_PartialFile(t *testing.T) {
	conf, err := Load(writeConfig(t, "db: other.db\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "text", conf.Format)
	assert.Equal(t, "other.db", conf.DB)
	assert.Nil(t, conf.Color)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "fromat: json\n"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{"default", func(*Config) {}, nil},
		{"bad format", func(c *Config) { c.Format = "xml" }, []string{`format "xml"`}},
		{"empty db", func(c *Config) { c.DB = "" }, []string{"db must not be empty"}},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, []string{"logLevel"}},
		{
			"all at once",
			func(c *Config) {
				c.Format = ""
				c.DB = ""
				c.LogLevel = ""
			},
			[]string{"format", "db must not be empty", "logLevel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := Default()
			tt.mutate(&conf)
			err := conf.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "format: xml\n"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
