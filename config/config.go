package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"fractal-ledger/economics"
	"fractal-ledger/mining"
)

// EnvPrefix is prepended to environment overrides, e.g. LEDGER_SERVER_PORT
const EnvPrefix = "LEDGER"

type Server struct {
	Port int `mapstructure:"port"`
}

type Log struct {
	AppLogFile string `mapstructure:"app_log_file"`
	Level      string `mapstructure:"level"`
}

// LevelDB with an empty path keeps everything in memory
type LevelDB struct {
	Path string `mapstructure:"path"`
}

type Mining struct {
	MaxAttempts   int    `mapstructure:"max_attempts"`
	NonceModulus  uint64 `mapstructure:"nonce_modulus"`
	Workers       int    `mapstructure:"workers"`
	MinDifficulty int    `mapstructure:"min_difficulty"`
	MaxDifficulty int    `mapstructure:"max_difficulty"`
}

type Economics struct {
	TotalSupply      float64 `mapstructure:"total_supply"`
	OuterFraction    float64 `mapstructure:"outer_fraction"`
	InnerFraction    float64 `mapstructure:"inner_fraction"`
	InitialState     float64 `mapstructure:"initial_state"`
	Volatility       float64 `mapstructure:"volatility"`
	AdjustmentFactor float64 `mapstructure:"adjustment_factor"`
	DecayFactor      float64 `mapstructure:"decay_factor"`
}

type Fractal struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	MaxLevel int           `mapstructure:"max_level"`
}

// Config is the node configuration
type Config struct {
	Server    Server    `mapstructure:"server"`
	Log       Log       `mapstructure:"log"`
	LevelDB   LevelDB   `mapstructure:"leveldb"`
	Mining    Mining    `mapstructure:"mining"`
	Economics Economics `mapstructure:"economics"`
	Fractal   Fractal   `mapstructure:"fractal"`
}

func setDefaults(v *viper.Viper) {
	miningDefaults := mining.DefaultOptions()
	policy := economics.DefaultPolicy()

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("leveldb.path", "")

	v.SetDefault("mining.max_attempts", miningDefaults.MaxAttempts)
	v.SetDefault("mining.nonce_modulus", miningDefaults.NonceModulus)
	v.SetDefault("mining.workers", miningDefaults.Workers)
	v.SetDefault("mining.min_difficulty", miningDefaults.MinDifficulty)
	v.SetDefault("mining.max_difficulty", miningDefaults.MaxDifficulty)

	v.SetDefault("economics.total_supply", policy.TotalSupply)
	v.SetDefault("economics.outer_fraction", policy.OuterFraction)
	v.SetDefault("economics.inner_fraction", policy.InnerFraction)
	v.SetDefault("economics.initial_state", economics.DefaultInitialState)
	v.SetDefault("economics.volatility", economics.DefaultVolatility)
	v.SetDefault("economics.adjustment_factor", economics.DefaultAdjustmentFactor)
	v.SetDefault("economics.decay_factor", policy.DecayFactor)

	v.SetDefault("fractal.cache_ttl", 10*time.Minute)
	v.SetDefault("fractal.max_level", 12)
}

// Load reads the YAML file at path over the defaults. An empty path
// yields defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.MiningOptions().Validate(); err != nil {
		return nil, errors.WithMessage(err, "mining config")
	}
	return &cfg, nil
}

// MiningOptions converts the mining section
func (c *Config) MiningOptions() mining.Options {
	return mining.Options{
		MaxAttempts:   c.Mining.MaxAttempts,
		NonceModulus:  c.Mining.NonceModulus,
		Workers:       c.Mining.Workers,
		MinDifficulty: c.Mining.MinDifficulty,
		MaxDifficulty: c.Mining.MaxDifficulty,
	}
}

// Policy converts the economics section
func (c *Config) Policy() economics.Policy {
	return economics.Policy{
		TotalSupply:   c.Economics.TotalSupply,
		OuterFraction: c.Economics.OuterFraction,
		InnerFraction: c.Economics.InnerFraction,
		DecayFactor:   c.Economics.DecayFactor,
	}
}
