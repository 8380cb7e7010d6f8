// stemsep/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/cockroachdb/errors"
	"github.com/google/shlex"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	SepBin           string        `mapstructure:"SEP_BIN"`
	SepModel         string        `mapstructure:"SEP_MODEL"`
	SepExtraArgs     string        `mapstructure:"SEP_EXTRA_ARGS"`
	SepTimeout       time.Duration `mapstructure:"SEP_TIMEOUT"`
	UploadsDir       string        `mapstructure:"UPLOADS_DIR"`
	ResultsDir       string        `mapstructure:"RESULTS_DIR"`
	MaxUploadSize    int64         `mapstructure:"MAX_UPLOAD_SIZE"`
	MaxConcurrency   int           `mapstructure:"MAX_CONCURRENCY"`
	ThrottleCPU      float64       `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  int64         `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64         `mapstructure:"THROTTLE_FREEDISK"`
	ResultsLifetime  time.Duration `mapstructure:"RESULTS_LIFETIME"`
	AuthEnable       bool          `mapstructure:"AUTH_ENABLE"`
	AuthKey          string        `mapstructure:"AUTH_KEY"`
	Port             string        `mapstructure:"PORT"`
	BaseURL          string        `mapstructure:"BASE"`

	// ExtraArgs is SEP_EXTRA_ARGS split into an argument vector.
	ExtraArgs []string `mapstructure:"-"`
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	// Set default values as strings, the hooks will handle them.
	vp.SetDefault("SEP_BIN", "demucs")
	vp.SetDefault("SEP_MODEL", "htdemucs_ft")
	vp.SetDefault("SEP_EXTRA_ARGS", "")
	vp.SetDefault("SEP_TIMEOUT", "0s")
	vp.SetDefault("UPLOADS_DIR", "uploads")
	vp.SetDefault("RESULTS_DIR", "results")
	vp.SetDefault("MAX_UPLOAD_SIZE", "200MB")
	vp.SetDefault("MAX_CONCURRENCY", 1)
	vp.SetDefault("THROTTLE_CPU", 50.0)
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "200MB")
	vp.SetDefault("RESULTS_LIFETIME", "0s")
	vp.SetDefault("AUTH_ENABLE", false)
	vp.SetDefault("AUTH_KEY", "123456")
	vp.SetDefault("PORT", "7860")
	vp.SetDefault("BASE", "")

	// Load from config file
	vp.SetConfigName("stemsep_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/stemsep/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("STEMSEP")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	// Extra args go verbatim to the separation tool, so they are split
	// without a shell.
	if strings.TrimSpace(cfg.SepExtraArgs) != "" {
		extra, err := shlex.Split(cfg.SepExtraArgs)
		if err != nil {
			return nil, errors.Wrap(err, "invalid SEP_EXTRA_ARGS")
		}
		cfg.ExtraArgs = extra
	}

	return &cfg, nil
}
