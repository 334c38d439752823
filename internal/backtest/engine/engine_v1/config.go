package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/sma-backtest/internal/version"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultShortWindow    = 10
	DefaultLongWindow     = 50
	DefaultInitialCapital = 10000.0
	DefaultTradeSize      = 10
	DefaultMaxParallel    = 4
)

type BacktestEngineV1Config struct {
	Version        string                     `yaml:"version" json:"version" jsonschema:"title=Version,description=Engine version this config was written for"`
	Instruments    []string                   `yaml:"instruments" json:"instruments" jsonschema:"title=Instruments,description=Ticker symbols to backtest. Each needs a <ticker>.parquet or <ticker>.csv file in the data folder,minItems=1" validate:"required,min=1,dive,required"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time of the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time of the backtest period"`
	ShortWindow    int                        `yaml:"short_window" json:"short_window" jsonschema:"title=Short Window,description=Number of bars in the short moving average,minimum=1,default=10" validate:"gt=0,ltfield=LongWindow"`
	LongWindow     int                        `yaml:"long_window" json:"long_window" jsonschema:"title=Long Window,description=Number of bars in the long moving average,minimum=2,default=50" validate:"gt=0"`
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash of every instrument run,exclusiveMinimum=0,default=10000" validate:"gt=0"`
	TradeSize      int                        `yaml:"trade_size" json:"trade_size" jsonschema:"title=Trade Size,description=Shares bought or sold per crossover,minimum=1,default=10" validate:"gt=0"`
	MaxParallel    int                        `yaml:"max_parallel" json:"max_parallel" jsonschema:"title=Max Parallel,description=Instruments processed at the same time,minimum=1,default=4" validate:"gt=0"`
}

// UnmarshalYAML only overwrites the fields present in the document, so
// decoding on top of EmptyConfig keeps the defaults.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type Config struct {
		Version        *string    `yaml:"version"`
		Instruments    []string   `yaml:"instruments"`
		StartTime      *time.Time `yaml:"start_time"`
		EndTime        *time.Time `yaml:"end_time"`
		ShortWindow    *int       `yaml:"short_window"`
		LongWindow     *int       `yaml:"long_window"`
		InitialCapital *float64   `yaml:"initial_capital"`
		TradeSize      *int       `yaml:"trade_size"`
		MaxParallel    *int       `yaml:"max_parallel"`
	}

	var config Config
	if err := value.Decode(&config); err != nil {
		return err
	}

	if config.Version != nil {
		c.Version = *config.Version
	}

	if config.Instruments != nil {
		c.Instruments = config.Instruments
	}

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	if config.ShortWindow != nil {
		c.ShortWindow = *config.ShortWindow
	}

	if config.LongWindow != nil {
		c.LongWindow = *config.LongWindow
	}

	if config.InitialCapital != nil {
		c.InitialCapital = *config.InitialCapital
	}

	if config.TradeSize != nil {
		c.TradeSize = *config.TradeSize
	}

	if config.MaxParallel != nil {
		c.MaxParallel = *config.MaxParallel
	}

	return nil
}

// Validate checks field constraints, the time range and the config version.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest configuration", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.EndTime.Unwrap().After(c.StartTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "end_time %s must be after start_time %s",
			c.EndTime.Unwrap().Format(time.RFC3339), c.StartTime.Unwrap().Format(time.RFC3339))
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), c.Version); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidVersion, "config version is not supported", err)
	}

	return nil
}

// ParseConfig decodes a YAML config on top of the defaults and validates it.
func ParseConfig(content string) (BacktestEngineV1Config, error) {
	config := EmptyConfig()

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse backtest config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(optional.Option[time.Time]{}) {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a valid config for the given instruments and period.
func TestConfig(instruments []string, startTime time.Time, endTime time.Time) BacktestEngineV1Config {
	config := EmptyConfig()
	config.Instruments = instruments
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values and no instruments.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Version:        "",
		Instruments:    nil,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
		ShortWindow:    DefaultShortWindow,
		LongWindow:     DefaultLongWindow,
		InitialCapital: DefaultInitialCapital,
		TradeSize:      DefaultTradeSize,
		MaxParallel:    DefaultMaxParallel,
	}
}
