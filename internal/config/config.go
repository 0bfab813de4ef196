/*
Package config reads the optional aqlkit configuration file.

The file is YAML and every key is optional:

	format: json        # text | json
	db: queries.db      # snapshot store path
	logLevel: debug     # any logrus level name
	color: false        # colored text output

Command line flags override values read from the file.
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".aqlkit.yaml"

// Formats lists the accepted output formats.
var Formats = []string{"text", "json"}

// Config holds the settings shared by every command.
type Config struct {
	Format   string `yaml:"format"`
	DB       string `yaml:"db"`
	LogLevel string `yaml:"logLevel"`
	// Color is nil when the file leaves color detection to the terminal.
	Color *bool `yaml:"color"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Format:   "text",
		DB:       "aqlkit.db",
		LogLevel: "warn",
	}
}

// Load reads the config file at path on top of Default. A missing file is
// an error only when required is set.
func Load(path string, required bool) (Config, error) {
	conf := Default()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return conf, nil
		}
		return Config{}, errors.Join(errors.New("failed to read config - "), err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&conf); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Join(fmt.Errorf("failed to unmarshal config at %s - ", path), err)
	}

	if err := conf.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config at %s: %w", path, err)
	}

	logrus.WithField("path", path).Debug("loaded config")
	return conf, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if !ValidFormat(c.Format) {
		errs = append(errs, fmt.Errorf("format %q must be one of %v", c.Format, Formats))
	}
	if c.DB == "" {
		errs = append(errs, errors.New("db must not be empty"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logLevel: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level.
func (c Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
