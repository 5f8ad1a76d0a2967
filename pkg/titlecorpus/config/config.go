// Package config loads the harvest run file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/internalerr"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// Environment variables that carry Reddit credentials. They override the
// file so secrets need not be committed.
const (
	EnvClientID     = "REDDIT_CLIENT_ID"
	EnvClientSecret = "REDDIT_CLIENT_SECRET"
	EnvUserAgent    = "REDDIT_USER_AGENT"
)

// Reddit holds API credentials and the searched subreddit.
type Reddit struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
	Subreddit    string `yaml:"subreddit"`
}

// Collect tunes the search sweep.
type Collect struct {
	Term     string        `yaml:"term"`
	Target   int           `yaml:"target"`
	Limit    int           `yaml:"limit"`
	Delay    time.Duration `yaml:"delay"`
	Interval time.Duration `yaml:"request_interval"`
}

// Language configures the gate.
type Language struct {
	Target    string `yaml:"target"`
	MinLength int    `yaml:"min_length"`
}

// Annotate selects the annotation engine. Model "prose" uses the in-process
// English engine; anything else is requested from the spaCy sidecar.
type Annotate struct {
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

// Output lists artifact paths. Only CSV is required.
type Output struct {
	CSV     string `yaml:"csv"`
	RawJSON string `yaml:"raw_json"`
	SQLite  string `yaml:"sqlite"`
	Stats   string `yaml:"stats"`
	TopK    int    `yaml:"top_k"`
}

// Config is a full harvest run.
type Config struct {
	Reddit     Reddit   `yaml:"reddit"`
	Collect    Collect  `yaml:"collect"`
	Keywords   []string `yaml:"keywords"`
	FoldTitles bool     `yaml:"fold_titles"`
	Language   Language `yaml:"language"`
	// Stoplist is a YAML terms file; empty selects the builtin list for
	// Language.Target.
	Stoplist string   `yaml:"stoplist"`
	Annotate Annotate `yaml:"annotate"`
	Output   Output   `yaml:"output"`
	LogLevel string   `yaml:"log_level"`
}

// Default returns the configuration of the reference run.
func Default() Config {
	return Config{
		Reddit:   Reddit{Subreddit: "all"},
		Collect:  Collect{Term: "'Petrobras' OR 'PETR4'", Target: 1000, Limit: 1000, Delay: 2 * time.Second, Interval: 600 * time.Millisecond},
		Keywords: []string{"petrobras", "petr4"},
		Language: Language{Target: "pt", MinLength: 10},
		Annotate: Annotate{Model: "pt_core_news_sm", Endpoint: "http://127.0.0.1:8765"},
		Output:   Output{CSV: "CORPUS_PETROBRAS.csv", TopK: 20},
		LogLevel: "info",
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides credentials with non-empty values from getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvClientID); v != "" {
		c.Reddit.ClientID = v
	}
	if v := getenv(EnvClientSecret); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := getenv(EnvUserAgent); v != "" {
		c.Reddit.UserAgent = v
	}
}

// Validate checks everything a run needs except credentials, which only
// matter when collecting live (see ValidateCredentials).
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Collect.Term) == "" {
		problems = append(problems, "collect.term is empty")
	}
	if c.Collect.Target < 0 {
		problems = append(problems, "collect.target is negative")
	}
	if c.Collect.Limit <= 0 {
		problems = append(problems, "collect.limit must be positive")
	}
	if c.Collect.Delay < 0 {
		problems = append(problems, "collect.delay is negative")
	}
	if !hasKeyword(c.Keywords) {
		problems = append(problems, "keywords: at least one non-blank keyword required")
	}
	switch c.Language.Target {
	case "":
		problems = append(problems, "language.target is empty")
	case record.LangUnknown, record.LangError:
		problems = append(problems, fmt.Sprintf("language.target %q is not a language", c.Language.Target))
	}
	if c.Language.MinLength < 0 {
		problems = append(problems, "language.min_length is negative")
	}
	if c.Annotate.Model == "" {
		problems = append(problems, "annotate.model is empty")
	}
	if c.Annotate.Model != "prose" && c.Annotate.Endpoint == "" {
		problems = append(problems, "annotate.endpoint is required for sidecar models")
	}
	if c.Output.CSV == "" {
		problems = append(problems, "output.csv is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateCredentials reports missing Reddit credentials.
func (c Config) ValidateCredentials() error {
	var missing []string
	if c.Reddit.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if c.Reddit.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if c.Reddit.UserAgent == "" {
		missing = append(missing, EnvUserAgent)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing reddit credentials (%s)", internalerr.ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

func hasKeyword(keywords []string) bool {
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}
