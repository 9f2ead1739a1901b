// Package config loads lattice settings from defaults, an optional YAML file,
// a .env file and LATTICE_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
)

// Lattice modes.
const (
	ModeLift  = "lift"
	ModeExact = "exact"
)

// Input formats.
const (
	InputCSV      = "csv"
	InputJSON     = "json"
	InputPostgres = "postgres"
)

const (
	envPrefix      = "LATTICE"
	configName     = "lattice"
	defaultEnvFile = ".env"
)

// Sentinel validation errors.
var (
	ErrInvalidMode        = errors.New("invalid lattice mode")
	ErrInvalidWorkers     = errors.New("pipeline workers must not be negative")
	ErrInvalidBatchSize   = errors.New("pipeline batch size must be positive")
	ErrInvalidInput       = errors.New("invalid input format")
	ErrInvalidDelimiter   = errors.New("input delimiter must be a single character")
	ErrMissingQuery       = errors.New("postgres input needs a dsn and a query")
	ErrInvalidOutput      = errors.New("invalid output format")
	ErrInvalidTop         = errors.New("output top must not be negative")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be within [0, 1]")
	ErrInvalidStateCodec  = errors.New("invalid state codec")
)

var (
	validModes    = []string{ModeLift, ModeExact}
	validInputs   = []string{InputCSV, InputJSON, InputPostgres}
	validOutputs  = []string{"json", "yaml", "text", "plot"}
	validCodecs   = []string{"gob", "json"}
	validLogLevel = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

// Config holds all lattice configuration.
type Config struct {
	Lattice   LatticeConfig   `mapstructure:"lattice"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Input     InputConfig     `mapstructure:"input"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	State     StateConfig     `mapstructure:"state"`
}

// LatticeConfig selects the lattice to compute.
type LatticeConfig struct {
	// Mode is "lift" for the full power set or "exact" for size-k subsets.
	Mode string `mapstructure:"mode"`
	// Size is k for exact mode.
	Size int `mapstructure:"size"`
	// Columns projects the input. Empty keeps every column.
	Columns []string `mapstructure:"columns"`
}

// PipelineConfig tunes partitioned profiling.
type PipelineConfig struct {
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
}

// InputConfig describes the row source.
type InputConfig struct {
	Format    string `mapstructure:"format"`
	Path      string `mapstructure:"path"`
	Delimiter string `mapstructure:"delimiter"`
	KeepText  bool   `mapstructure:"keep_text"`
	DSN       string `mapstructure:"dsn"`
	Query     string `mapstructure:"query"`

	// OrdinalsFromNames reads column ordinals from col<N> names instead of
	// column positions.
	OrdinalsFromNames bool `mapstructure:"ordinals_from_names"`
}

// OutputConfig describes how results are rendered.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	Top     int    `mapstructure:"top"`
	Path    string `mapstructure:"path"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	JSON        bool   `mapstructure:"json"`
	Environment string `mapstructure:"environment"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
}

// StateConfig controls persisted partial states.
type StateConfig struct {
	Dir      string `mapstructure:"dir"`
	Codec    string `mapstructure:"codec"`
	Compress bool   `mapstructure:"compress"`
}

// LoadConfig loads configuration. An empty configPath searches for
// lattice.yaml in ".", "./config" and "/etc/lattice"; a missing file there is
// not an error. envFiles are loaded into the environment first; with none
// given, an optional .env in the working directory is used.
func LoadConfig(configPath string, envFiles ...string) (*Config, error) {
	err := loadEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}

	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/lattice")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		err := godotenv.Load(defaultEnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", defaultEnvFile, err)
		}

		return nil
	}

	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("load env files: %w", err)
	}

	return nil
}

// setDefaults sets default configuration values. Every key gets a default so
// that AutomaticEnv can override it.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("lattice.mode", DefaultLatticeMode)
	viperCfg.SetDefault("lattice.size", DefaultLatticeSize)
	viperCfg.SetDefault("lattice.columns", []string{})

	viperCfg.SetDefault("pipeline.workers", DefaultPipelineWorkers)
	viperCfg.SetDefault("pipeline.batch_size", DefaultPipelineBatchSize)

	viperCfg.SetDefault("input.format", DefaultInputFormat)
	viperCfg.SetDefault("input.path", "")
	viperCfg.SetDefault("input.delimiter", DefaultInputDelimiter)
	viperCfg.SetDefault("input.keep_text", false)
	viperCfg.SetDefault("input.ordinals_from_names", false)
	viperCfg.SetDefault("input.dsn", "")
	viperCfg.SetDefault("input.query", "")

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.top", DefaultOutputTop)
	viperCfg.SetDefault("output.path", "")
	viperCfg.SetDefault("output.no_color", false)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)
	viperCfg.SetDefault("logging.environment", "")

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
	viperCfg.SetDefault("telemetry.metrics_addr", "")

	viperCfg.SetDefault("state.dir", DefaultStateDir)
	viperCfg.SetDefault("state.codec", DefaultStateCodec)
	viperCfg.SetDefault("state.compress", DefaultStateCompress)
}

// Validate checks every section and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(validModes, c.Lattice.Mode) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidMode, c.Lattice.Mode))
	}

	if c.Lattice.Mode == ModeExact {
		errs = append(errs, c.CheckSize(len(c.Lattice.Columns)))
	}

	if c.Lattice.Mode == ModeLift {
		errs = append(errs, lattice.CheckArity(len(c.Lattice.Columns)))
	}

	if c.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Pipeline.Workers))
	}

	if c.Pipeline.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.Pipeline.BatchSize))
	}

	errs = append(errs, c.validateInput())

	if !slices.Contains(validOutputs, strings.ToLower(c.Output.Format)) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidOutput, c.Output.Format))
	}

	if c.Output.Top < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidTop, c.Output.Top))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio))
	}

	if !slices.Contains(validCodecs, c.State.Codec) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidStateCodec, c.State.Codec))
	}

	return errors.Join(errs...)
}

// CheckSize validates the exact-mode size against the number of attributes.
// A zero arity means the columns are not known yet and only k >= 1 is checked.
func (c *Config) CheckSize(arity int) error {
	if arity == 0 {
		arity = math.MaxInt
	}

	return lattice.CheckSize(arity, c.Lattice.Size)
}

func (c *Config) validateInput() error {
	if !slices.Contains(validInputs, c.Input.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidInput, c.Input.Format)
	}

	if c.Input.Format == InputCSV && utf8.RuneCountInString(c.Input.Delimiter) != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, c.Input.Delimiter)
	}

	if c.Input.Format == InputPostgres && (c.Input.DSN == "" || c.Input.Query == "") {
		return ErrMissingQuery
	}

	return nil
}

// Delimiter returns the CSV delimiter rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Input.Delimiter)

	return r
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	level, ok := validLogLevel[strings.ToLower(c.Logging.Level)]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}
