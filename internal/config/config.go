package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Extractor struct {
		URL     string        `mapstructure:"url"` // language-understanding service; empty = built-in keyword engine
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"extractor"`
	Sandbox struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"sandbox"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// PipelineConfig carries the orchestrator tunables. The defaults are
// deliberate choices, not hard law: the retry budget and confidence
// threshold are expected to be overridden per deployment.
type PipelineConfig struct {
	RetryBudget         int           `mapstructure:"retry_budget"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	StageTimeout        time.Duration `mapstructure:"stage_timeout"`
	RegenBackoff        time.Duration `mapstructure:"regen_backoff"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional; defaults plus env cover local runs.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("extractor.timeout", 10*time.Second)
	viper.SetDefault("sandbox.timeout", 30*time.Second)
	viper.SetDefault("pipeline.retry_budget", 3)
	viper.SetDefault("pipeline.confidence_threshold", 0.5)
	viper.SetDefault("pipeline.stage_timeout", 30*time.Second)
	viper.SetDefault("pipeline.regen_backoff", 500*time.Millisecond)
}

// DefaultPipeline returns the pipeline tunables used when no config is loaded.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		RetryBudget:         3,
		ConfidenceThreshold: 0.5,
		StageTimeout:        30 * time.Second,
		RegenBackoff:        500 * time.Millisecond,
	}
}

// ConnString assembles the postgres connection string from the DB section.
func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}
