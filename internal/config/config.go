package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults that mirror the TUH corpus layout and the downstream preprocessing
// targets.
const (
	DefaultMontage     = "_tcp_ar"
	DefaultExtension   = ".edf"
	DefaultSampleFreq  = 256.0
	DefaultRounding    = 2
	DefaultOutputFile  = "./info_files/metadata.txt"
	DefaultConfigFile  = "config.yaml"
	maxRoundingDecimal = 10
)

// DefaultFilterRange is the band-pass range (Hz) recordings are filtered to
var DefaultFilterRange = [2]float64{0, 40}

// Config represents eegcat configuration options
type Config struct {
	// DataPath is the corpus root scanned when no root argument is given
	DataPath string `yaml:"data_path"`

	// Montage is the montage tag a recording path must contain
	Montage string `yaml:"montage"`

	// Epilepsy selects the 00_epilepsy label; false selects 01_no_epilepsy
	Epilepsy bool `yaml:"epilepsy"`

	// Extension is the recording file extension, matched case-insensitively
	Extension string `yaml:"extension"`

	// SampleFreq is the rate recordings are expected to be resampled to
	SampleFreq float64 `yaml:"sample_freq"`

	// FilterRange is the [low, high] band-pass range in Hz
	FilterRange [2]float64 `yaml:"filter_range"`

	// Workers bounds concurrent header reads (0 or 1 = sequential)
	Workers int `yaml:"workers"`

	// Rounding is the number of decimals kept for means and standard deviations
	Rounding int `yaml:"rounding"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir, when set, receives a per-run log file alongside console output
	LogDir string `yaml:"log_dir"`

	// OutputFile is where scan --save writes the metadata file
	OutputFile string `yaml:"output_file"`

	// CatalogDB is the SQLite catalog path; empty means $EEGCAT_HOME/catalog.db
	CatalogDB string `yaml:"catalog_db"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		DataPath:    "",
		Montage:     DefaultMontage,
		Epilepsy:    true,
		Extension:   DefaultExtension,
		SampleFreq:  DefaultSampleFreq,
		FilterRange: DefaultFilterRange,
		Workers:     0, // Sequential
		Rounding:    DefaultRounding,
		LogLevel:    "info",
		LogDir:      "",
		OutputFile:  DefaultOutputFile,
		CatalogDB:   "",
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Fields whose zero value is meaningful are only applied when present
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	present := func(key string) bool {
		_, ok := rawMap[key]
		return ok
	}

	if fileCfg.DataPath != "" {
		cfg.DataPath = fileCfg.DataPath
	}
	if fileCfg.Montage != "" {
		cfg.Montage = fileCfg.Montage
	}
	if present("epilepsy") {
		cfg.Epilepsy = fileCfg.Epilepsy
	}
	if fileCfg.Extension != "" {
		cfg.Extension = fileCfg.Extension
	}
	if present("sample_freq") {
		cfg.SampleFreq = fileCfg.SampleFreq
	}
	if present("filter_range") {
		cfg.FilterRange = fileCfg.FilterRange
	}
	if fileCfg.Workers != 0 {
		cfg.Workers = fileCfg.Workers
	}
	if present("rounding") {
		cfg.Rounding = fileCfg.Rounding
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.LogDir != "" {
		cfg.LogDir = fileCfg.LogDir
	}
	if fileCfg.OutputFile != "" {
		cfg.OutputFile = fileCfg.OutputFile
	}
	if fileCfg.CatalogDB != "" {
		cfg.CatalogDB = fileCfg.CatalogDB
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .eegcat/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, homeDirName, DefaultConfigFile))
}

// Flags carries CLI overrides. Nil fields were not set on the command line.
type Flags struct {
	Montage    *string
	Epilepsy   *bool
	Extension  *string
	Workers    *int
	LogLevel   *string
	LogDir     *string
	OutputFile *string
	CatalogDB  *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f Flags) {
	if f.Montage != nil {
		c.Montage = *f.Montage
	}
	if f.Epilepsy != nil {
		c.Epilepsy = *f.Epilepsy
	}
	if f.Extension != nil {
		c.Extension = *f.Extension
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.OutputFile != nil {
		c.OutputFile = *f.OutputFile
	}
	if f.CatalogDB != nil {
		c.CatalogDB = *f.CatalogDB
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Montage == "" {
		return fmt.Errorf("montage cannot be empty")
	}

	if c.SampleFreq <= 0 {
		return fmt.Errorf("sample_freq must be > 0, got %v", c.SampleFreq)
	}

	low, high := c.FilterRange[0], c.FilterRange[1]
	if low < 0 || high <= low {
		return fmt.Errorf("filter_range must satisfy 0 <= low < high, got [%v, %v]", low, high)
	}

	if c.Rounding < 0 || c.Rounding > maxRoundingDecimal {
		return fmt.Errorf("rounding must be between 0 and %d, got %d", maxRoundingDecimal, c.Rounding)
	}

	return nil
}

// ResolveDataPath picks the corpus root: an explicit argument wins over data_path
func (c *Config) ResolveDataPath(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if c.DataPath != "" {
		return c.DataPath, nil
	}
	return "", fmt.Errorf("no data path: pass a root directory or set data_path in the config file")
}
