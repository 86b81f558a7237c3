// Package paramsfile loads engine Parameters from a config file and
// environment variables, following the teacher's godotenv+viper loading
// idiom: an optional .env file seeds the process environment, viper reads
// the merged result with explicit bindings and sensible defaults. Load
// itself does not validate; validation happens when the caller passes
// ToOptions to bars.NewParameters.
package paramsfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/marketflow/vpa-engine/internal/bars"
)

// FileConfig is the subset of engine Parameters exposed for file/env
// configuration. Fields absent here keep their library defaults; this
// mirrors the teacher's practice of only exposing operationally relevant
// knobs through configuration rather than the full internal surface.
type FileConfig struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	VeryHighVolumeThreshold float64 `mapstructure:"very_high_volume_threshold"`
	HighVolumeThreshold     float64 `mapstructure:"high_volume_threshold"`
	LowVolumeThreshold      float64 `mapstructure:"low_volume_threshold"`
	VeryLowVolumeThreshold  float64 `mapstructure:"very_low_volume_threshold"`

	LookbackPeriod int  `mapstructure:"lookback_period"`
	ATRPeriod      int  `mapstructure:"atr_period"`
	UseEMA         bool `mapstructure:"use_ema"`

	DefaultRiskPercent float64 `mapstructure:"default_risk_percent"`
	DefaultRiskReward  float64 `mapstructure:"default_risk_reward"`
	AccountEquity      float64 `mapstructure:"account_equity"`

	StrongAlignPct   float64 `mapstructure:"strong_align_pct"`
	ModerateAlignPct float64 `mapstructure:"moderate_align_pct"`

	Timeframes []string `mapstructure:"timeframes"`

	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig binds the Postgres connection used by the optional
// internal/providers/postgres DataProvider.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// Load reads an optional .env file at envPath (missing is not an error)
// then merges process environment variables over viper defaults into a
// FileConfig.
func Load(envPath string) (*FileConfig, error) {
	if envPath == "" {
		envPath = "config/.env"
	}
	if err := godotenv.Load(envPath); err != nil {
		if os.Getenv("MARKETFLOW_ENVIRONMENT") == "" {
			fmt.Fprintf(os.Stderr, "warning: no .env file found at %s, using environment variables only\n", envPath)
		}
	}

	viper.SetConfigType("env")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix("marketflow")

	bindEnv(
		"environment", "log_level",
		"very_high_volume_threshold", "high_volume_threshold", "low_volume_threshold", "very_low_volume_threshold",
		"lookback_period", "atr_period", "use_ema",
		"default_risk_percent", "default_risk_reward", "account_equity",
		"strong_align_pct", "moderate_align_pct",
		"timeframes",
		"database.host", "database.port", "database.user", "database.password", "database.name", "database.ssl_mode",
	)

	setDefaults()

	var cfg FileConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("paramsfile: unmarshal: %w", err)
	}

	return &cfg, nil
}

func bindEnv(keys ...string) {
	for _, key := range keys {
		_ = viper.BindEnv(key)
	}
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("very_high_volume_threshold", 2.0)
	viper.SetDefault("high_volume_threshold", 1.5)
	viper.SetDefault("low_volume_threshold", 0.7)
	viper.SetDefault("very_low_volume_threshold", 0.4)

	viper.SetDefault("lookback_period", 20)
	viper.SetDefault("atr_period", 14)
	viper.SetDefault("use_ema", false)

	viper.SetDefault("default_risk_percent", 0.01)
	viper.SetDefault("default_risk_reward", 2.0)
	viper.SetDefault("account_equity", 100000.0)

	viper.SetDefault("strong_align_pct", 0.7)
	viper.SetDefault("moderate_align_pct", 0.5)

	viper.SetDefault("timeframes", []string{"1d"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
}

// ToOptions translates a FileConfig into Parameters functional options,
// so the facade's caller builds Parameters with bars.NewParameters(cfg.ToOptions()...).
func (c *FileConfig) ToOptions() []bars.ParamOption {
	opts := []bars.ParamOption{
		func(p *bars.Parameters) {
			if c.VeryHighVolumeThreshold > 0 {
				p.VeryHighVolumeThreshold = c.VeryHighVolumeThreshold
			}
			if c.HighVolumeThreshold > 0 {
				p.HighVolumeThreshold = c.HighVolumeThreshold
			}
			if c.LowVolumeThreshold > 0 {
				p.LowVolumeThreshold = c.LowVolumeThreshold
			}
			if c.VeryLowVolumeThreshold > 0 {
				p.VeryLowVolumeThreshold = c.VeryLowVolumeThreshold
			}
		},
		func(p *bars.Parameters) {
			if c.LookbackPeriod > 0 {
				p.LookbackPeriod = c.LookbackPeriod
			}
			if c.ATRPeriod > 0 {
				p.ATRPeriod = c.ATRPeriod
			}
			p.UseEMA = c.UseEMA
		},
		func(p *bars.Parameters) {
			if c.DefaultRiskPercent > 0 {
				p.DefaultRiskPercent = c.DefaultRiskPercent
			}
			if c.DefaultRiskReward > 0 {
				p.DefaultRiskReward = c.DefaultRiskReward
			}
			if c.AccountEquity > 0 {
				p.AccountEquity = c.AccountEquity
			}
		},
		func(p *bars.Parameters) {
			if c.StrongAlignPct > 0 {
				p.StrongAlignPct = c.StrongAlignPct
			}
			if c.ModerateAlignPct > 0 {
				p.ModerateAlignPct = c.ModerateAlignPct
			}
		},
	}

	if len(c.Timeframes) > 0 {
		timeframes := make([]bars.Timeframe, 0, len(c.Timeframes))
		for _, interval := range c.Timeframes {
			timeframes = append(timeframes, bars.Timeframe{Interval: interval, Period: defaultPeriodFor(interval)})
		}
		opts = append(opts, func(p *bars.Parameters) {
			p.Timeframes = timeframes
		})
	}

	return opts
}

// defaultPeriodFor maps a bar interval to a lookback period wide enough
// for the engine's minimum bar requirements, the same convention the
// teacher's fetcher applies when a period is not explicitly supplied.
func defaultPeriodFor(interval string) string {
	switch interval {
	case "1m", "5m", "15m":
		return "5d"
	case "1h", "4h":
		return "30d"
	default:
		return "1y"
	}
}
