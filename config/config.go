// Package config holds the run configuration of the training command.
//
// Values come from command-line flags, environment variables and an optional
// .env file, in that order of precedence. With nothing set, the defaults
// reproduce a plain training run on Taipei_house.csv.
package config

import (
	"io/fs"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
	"github.com/YuminosukeSato/taipeihouse/pkg/log"
)

const (
	DefaultDataPath    = "Taipei_house.csv"
	DefaultModelPath   = "taipei_house_price_model.gob"
	DefaultTestSize    = 0.2
	DefaultSeed        = 42
	DefaultNEstimators = 100
	DefaultLogLevel    = "info"

	// DefaultEnvFile is read if present; a missing file is not an error.
	DefaultEnvFile = ".env"
)

var version = "dev"

// ErrHelp is returned by Load when --help or --version was requested and
// the corresponding text has already been written.
var ErrHelp = errors.New("help requested")

// Config is the run configuration.
type Config struct {
	DataPath    string  `arg:"--data,env:TAIPEIHOUSE_DATA" default:"Taipei_house.csv" help:"CSV file with the listings"`
	ModelPath   string  `arg:"--model,env:TAIPEIHOUSE_MODEL" default:"taipei_house_price_model.gob" help:"where to write the fitted pipeline (.xz suffix compresses)"`
	TestSize    float64 `arg:"--test-size,env:TAIPEIHOUSE_TEST_SIZE" default:"0.2" help:"fraction of rows held out for evaluation"`
	Seed        uint64  `arg:"--seed,env:TAIPEIHOUSE_SEED" default:"42" help:"seed for the split and the forest"`
	NEstimators int     `arg:"--n-estimators,env:TAIPEIHOUSE_N_ESTIMATORS" default:"100" help:"number of trees"`
	NJobs       int     `arg:"--n-jobs,env:TAIPEIHOUSE_N_JOBS" default:"-1" help:"worker goroutines for tree fitting (<= 0 uses all cores)"`
	PlotPath    string  `arg:"--plot,env:TAIPEIHOUSE_PLOT" help:"optional PNG path for a predicted-vs-actual scatter plot"`
	LogLevel    string  `arg:"--log-level,env:TAIPEIHOUSE_LOG_LEVEL" default:"info" help:"debug, info, warn or error"`
	Progress    bool    `arg:"--progress,env:TAIPEIHOUSE_PROGRESS" help:"show a progress bar while fitting trees"`
}

// Version implements go-arg's Versioned interface.
func (Config) Version() string {
	return "taipeihouse " + version
}

// Description implements go-arg's Described interface.
func (Config) Description() string {
	return "Trains a random forest on Taipei housing listings and saves the fitted pipeline."
}

// Default returns the configuration used when no flags or env vars are set.
func Default() Config {
	return Config{
		DataPath:    DefaultDataPath,
		ModelPath:   DefaultModelPath,
		TestSize:    DefaultTestSize,
		Seed:        DefaultSeed,
		NEstimators: DefaultNEstimators,
		NJobs:       -1,
		LogLevel:    DefaultLogLevel,
	}
}

// Load reads envFile (if it exists) into the environment and parses args.
// Variables already set in the environment win over the file.
func Load(args []string, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "failed to read %s", envFile)
		}
	}

	var cfg Config
	p, err := arg.NewParser(arg.Config{Program: "taipeihouse"}, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to build flag parser")
	}

	switch err := p.Parse(args); {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(os.Stdout)
		return Config{}, ErrHelp
	case errors.Is(err, arg.ErrVersion):
		os.Stdout.WriteString(cfg.Version() + "\n")
		return Config{}, ErrHelp
	case err != nil:
		return Config{}, errors.NewValidationError("args", err.Error(), args)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that the flag parser cannot express.
func (c Config) Validate() error {
	if c.DataPath == "" {
		return errors.NewValidationError("data", "must not be empty", c.DataPath)
	}
	if c.ModelPath == "" {
		return errors.NewValidationError("model", "must not be empty", c.ModelPath)
	}
	if !(c.TestSize > 0 && c.TestSize < 1) {
		return errors.NewValidationError("test-size", "must be in the open interval (0, 1)", c.TestSize)
	}
	if c.NEstimators < 1 {
		return errors.NewValidationError("n-estimators", "must be >= 1", c.NEstimators)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
