// Package config assembles the runtime configuration from defaults, an
// optional YAML file, a .env file and INTERVUE_* environment variables.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/questionforge"
	"github.com/abhisek/intervue/internal/store/postgres"
	"github.com/abhisek/intervue/internal/turn"
)

// DefaultFile is read when no config path is given and it exists in the
// working directory.
const DefaultFile = "intervue.yaml"

// Config is the complete runtime configuration.
type Config struct {
	LLM       llm.Config      `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Forge     ForgeConfig     `yaml:"forge"`
	Turn      turn.Config     `yaml:"turn"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Interview InterviewConfig `yaml:"interview"`
}

// StoreConfig selects the storage backend. A DSN starting with
// postgres:// or postgresql:// selects PostgreSQL; anything else is a
// SQLite file path. Empty uses the default SQLite location.
type StoreConfig struct {
	DSN  string              `yaml:"dsn"`
	Pool postgres.PoolConfig `yaml:"pool"`
}

// Postgres reports whether the DSN names a PostgreSQL database.
func (s StoreConfig) Postgres() bool {
	return strings.HasPrefix(s.DSN, "postgres://") || strings.HasPrefix(s.DSN, "postgresql://")
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// RateLimit is the sustained request rate per client, per second.
	// Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Mode is the gin mode: debug, release or test.
	Mode string `yaml:"mode"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json

	// File enables a rotating log file in addition to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ForgeConfig tunes question generation.
type ForgeConfig struct {
	MaxTokens         int             `yaml:"max_tokens"`
	Temperature       float64         `yaml:"temperature"`
	MaxPriorQuestions int             `yaml:"max_prior_questions"`
	NoveltyAttempts   int             `yaml:"novelty_attempts"`
	NoveltyWait       time.Duration   `yaml:"novelty_wait"`
	Fallback          string          `yaml:"fallback"`
	Transport         llm.RetryConfig `yaml:"transport"`
}

// Apply copies the tunables onto a forge configuration.
func (f ForgeConfig) Apply(c questionforge.Config) questionforge.Config {
	c.MaxTokens = f.MaxTokens
	c.Temperature = f.Temperature
	c.MaxPriorQuestions = f.MaxPriorQuestions
	c.NoveltyAttempts = f.NoveltyAttempts
	c.NoveltyWait = f.NoveltyWait
	c.Fallback = f.Fallback
	c.Transport = f.Transport
	return c
}

// ScoringConfig tunes the final analysis.
type ScoringConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
}

// InterviewConfig holds defaults for new interviews.
type InterviewConfig struct {
	Questions  int           `yaml:"questions"`
	Duration   time.Duration `yaml:"duration"`
	Difficulty string        `yaml:"difficulty"`

	// UseLLMJudge enables oracle completeness judgments for spoken
	// answers. When false, only the word-count heuristic is used.
	UseLLMJudge bool `yaml:"use_llm_judge"`
}

// Default returns the built-in configuration.
func Default() Config {
	forge := questionforge.DefaultConfig()
	return Config{
		LLM: llm.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       10,
			Burst:           20,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Mode:            "release",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Forge: ForgeConfig{
			MaxTokens:         forge.MaxTokens,
			Temperature:       forge.Temperature,
			MaxPriorQuestions: forge.MaxPriorQuestions,
			NoveltyAttempts:   forge.NoveltyAttempts,
			NoveltyWait:       forge.NoveltyWait,
			Transport:         forge.Transport,
		},
		Turn: turn.DefaultConfig(),
		Scoring: ScoringConfig{
			Timeout:     60 * time.Second,
			MaxTokens:   2048,
			Temperature: 0.2,
		},
		Interview: InterviewConfig{
			Questions:   5,
			Duration:    15 * time.Minute,
			Difficulty:  "intermediate",
			UseLLMJudge: true,
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// DefaultFile is used if present. Values from a .env file never override
// variables already set in the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.ApplyEnv()
	return &cfg, nil
}

// ApplyEnv overrides fields from INTERVUE_* variables. When the selected
// oracle provider has no key, standard provider key variables are probed.
func (c *Config) ApplyEnv() {
	c.LLM.ApplyEnv()
	if !c.LLM.HasKey() {
		if discovered, ok := llm.DiscoverConfig(); ok {
			discovered.Timeout = c.LLM.Timeout
			c.LLM = discovered
		}
	}

	setString(&c.Store.DSN, "INTERVUE_DB")
	setString(&c.Server.Addr, "INTERVUE_ADDR")
	setString(&c.Server.Mode, "INTERVUE_GIN_MODE")
	setString(&c.Log.Level, "INTERVUE_LOG_LEVEL")
	setString(&c.Log.Format, "INTERVUE_LOG_FORMAT")
	setString(&c.Log.File, "INTERVUE_LOG_FILE")
	setDuration(&c.Scoring.Timeout, "INTERVUE_SCORING_TIMEOUT")
	setInt(&c.Interview.Questions, "INTERVUE_QUESTIONS")
	setDuration(&c.Interview.Duration, "INTERVUE_DURATION")
	setString(&c.Interview.Difficulty, "INTERVUE_DIFFICULTY")
	if v := os.Getenv("INTERVUE_LLM_JUDGE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Interview.UseLLMJudge = b
		}
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		errs = append(errs, errors.New("server.rate_limit and server.burst must not be negative"))
	}
	if c.Turn.CompleteThreshold < 0 || c.Turn.CompleteThreshold > 1 {
		errs = append(errs, fmt.Errorf("turn.complete_threshold must be within 0..1, got %v", c.Turn.CompleteThreshold))
	}
	if c.Forge.NoveltyAttempts < 1 {
		errs = append(errs, errors.New("forge.novelty_attempts must be at least 1"))
	}
	if c.Scoring.Timeout <= 0 {
		errs = append(errs, errors.New("scoring.timeout must be positive"))
	}
	if c.Interview.Questions < 1 {
		errs = append(errs, errors.New("interview.questions must be at least 1"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	} else if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
	}
}
