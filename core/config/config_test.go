package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 100, cfg.HistorySize)
	assert.Equal(t, 10, cfg.MaxJobs)
	assert.Equal(t, ColorAuto, cfg.Color)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Configuration)
		field  string
	}{
		{"zero-history", func(c *Configuration) { c.HistorySize = 0 }, "history_size"},
		{"negative-jobs", func(c *Configuration) { c.MaxJobs = -1 }, "max_jobs"},
		{"empty-prompt", func(c *Configuration) { c.Prompt = "" }, "prompt"},
		{"bad-color", func(c *Configuration) { c.Color = "sometimes" }, "color"},
		{"escaping-log", func(c *Configuration) { c.AppLog = "../app.log" }, "app_log"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var validationErrs validator.ValidationErrors
			require.ErrorAs(t, err, &validationErrs)
			require.Len(t, validationErrs, 1)
			assert.Equal(t, tc.field, validationErrs[0].Field())
		})
	}
}
