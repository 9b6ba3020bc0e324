package config

import (
	_ "embed"
	"io"
	"io/ioutil"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"
)

// Color modes.
const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs

	HistorySize int `json:"history_size" validate:"gte=1"`
	MaxJobs     int `json:"max_jobs" validate:"gte=1"`

	Prompt     string `json:"prompt" validate:"required"`
	StatusOK   string `json:"status_ok"`
	StatusFail string `json:"status_fail"`
	Color      string `json:"color" validate:"oneof=always auto never"`

	AppLog   string `json:"app_log" validate:"omitempty,excludes=.."`
	EventLog string `json:"event_log" validate:"omitempty,excludes=.."`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewMemMapFs()
	}
	return c.configFs
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

func (c *Configuration) openLog(name string) (io.WriteCloser, error) {
	if name == "" {
		return nopWriteCloser{ioutil.Discard}, nil
	}
	return c.fs().OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (io.WriteCloser, error) {
	return c.openLog(c.AppLog)
}

// OpenEventLog opens the structured event log in an append only state.
func (c *Configuration) OpenEventLog() (io.WriteCloser, error) {
	return c.openLog(c.EventLog)
}

// ReadEventLog opens the structured event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

// Default returns the built-in configuration. Its logs are kept in memory.
func Default() *Configuration {
	return defaultConfig()
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
