// Package yaml loads the watcher configuration from a YAML file, the
// environment and built-in defaults.
package yaml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/akiwatch"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout. It is seeded with the defaults before
// decoding so absent keys keep their default values.
type fileConfig struct {
	Portal struct {
		EntryURL  string `yaml:"entry_url"`
		UserAgent string `yaml:"user_agent"`
		Timezone  string `yaml:"timezone"`
		Category  string `yaml:"category"`
		Purpose   string `yaml:"purpose"`
	} `yaml:"portal"`

	HTTP struct {
		StepTimeout     time.Duration `yaml:"step_timeout"`
		InitialDelayMin time.Duration `yaml:"initial_delay_min"`
		InitialDelayMax time.Duration `yaml:"initial_delay_max"`
		PageDelayMin    time.Duration `yaml:"page_delay_min"`
		PageDelayMax    time.Duration `yaml:"page_delay_max"`
		MaxRetries      int           `yaml:"max_retries"`
		MaxPages        int           `yaml:"max_pages"`
	} `yaml:"http"`

	Preflight bool          `yaml:"preflight"`
	DataDir   string        `yaml:"data_dir"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
	ForceSend bool          `yaml:"force_send"`

	SMTP struct {
		Host          string `yaml:"host"`
		Port          int    `yaml:"port"`
		User          string `yaml:"user"`
		Password      string `yaml:"password"`
		From          string `yaml:"from"`
		To            string `yaml:"to"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"smtp"`
}

func newFileConfig(c akiwatch.Config) fileConfig {
	var f fileConfig
	f.Portal.EntryURL = c.EntryURL
	f.Portal.UserAgent = c.UserAgent
	f.Portal.Timezone = c.Timezone
	f.Portal.Category = c.Category
	f.Portal.Purpose = c.Purpose
	f.HTTP.StepTimeout = c.StepTimeout
	f.HTTP.InitialDelayMin = c.InitialDelay.Min
	f.HTTP.InitialDelayMax = c.InitialDelay.Max
	f.HTTP.PageDelayMin = c.PageDelay.Min
	f.HTTP.PageDelayMax = c.PageDelay.Max
	f.HTTP.MaxRetries = c.MaxRetries
	f.HTTP.MaxPages = c.MaxPages
	f.Preflight = c.Preflight
	f.DataDir = c.DataDir
	f.LockTTL = c.LockTTL
	f.ForceSend = c.ForceSend
	f.SMTP.Host = c.SMTP.Host
	f.SMTP.Port = c.SMTP.Port
	f.SMTP.User = c.SMTP.User
	f.SMTP.Password = c.SMTP.Password
	f.SMTP.From = c.SMTP.From
	f.SMTP.To = c.SMTP.To
	f.SMTP.SubjectPrefix = c.SMTP.SubjectPrefix
	return f
}

func (f fileConfig) config() akiwatch.Config {
	return akiwatch.Config{
		EntryURL:     f.Portal.EntryURL,
		UserAgent:    f.Portal.UserAgent,
		Timezone:     f.Portal.Timezone,
		Category:     f.Portal.Category,
		Purpose:      f.Portal.Purpose,
		StepTimeout:  f.HTTP.StepTimeout,
		InitialDelay: akiwatch.DelayRange{Min: f.HTTP.InitialDelayMin, Max: f.HTTP.InitialDelayMax},
		PageDelay:    akiwatch.DelayRange{Min: f.HTTP.PageDelayMin, Max: f.HTTP.PageDelayMax},
		MaxRetries:   f.HTTP.MaxRetries,
		MaxPages:     f.HTTP.MaxPages,
		Preflight:    f.Preflight,
		DataDir:      f.DataDir,
		LockTTL:      f.LockTTL,
		ForceSend:    f.ForceSend,
		SMTP: akiwatch.SMTPConfig{
			Host:          f.SMTP.Host,
			Port:          f.SMTP.Port,
			User:          f.SMTP.User,
			Password:      f.SMTP.Password,
			From:          f.SMTP.From,
			To:            f.SMTP.To,
			SubjectPrefix: f.SMTP.SubjectPrefix,
		},
	}
}

// envVar binds one environment variable to one config field.
type envVar struct {
	name  string
	apply func(c *akiwatch.Config, value string) error
}

// envVars lists every environment override. Later entries win, so
// FORCE_SEND takes precedence over the older FORCE_MAIL spelling.
var envVars = []envVar{
	{"AKIWATCH_ENTRY_URL", setString(func(c *akiwatch.Config) *string { return &c.EntryURL })},
	{"AKIWATCH_USER_AGENT", setString(func(c *akiwatch.Config) *string { return &c.UserAgent })},
	{"AKIWATCH_TIMEZONE", setString(func(c *akiwatch.Config) *string { return &c.Timezone })},
	{"CATEGORY1_LABEL", setString(func(c *akiwatch.Config) *string { return &c.Category })},
	{"PURPOSE_LABEL", setString(func(c *akiwatch.Config) *string { return &c.Purpose })},
	{"AKIWATCH_STEP_TIMEOUT", setDuration(func(c *akiwatch.Config) *time.Duration { return &c.StepTimeout })},
	{"AKIWATCH_MAX_RETRIES", setInt(func(c *akiwatch.Config) *int { return &c.MaxRetries })},
	{"AKIWATCH_MAX_PAGES", setInt(func(c *akiwatch.Config) *int { return &c.MaxPages })},
	{"AKIWATCH_PREFLIGHT", setBool(func(c *akiwatch.Config) *bool { return &c.Preflight })},
	{"AKIWATCH_DATA_DIR", setString(func(c *akiwatch.Config) *string { return &c.DataDir })},
	{"AKIWATCH_LOCK_TTL", setDuration(func(c *akiwatch.Config) *time.Duration { return &c.LockTTL })},
	{"FORCE_MAIL", setBool(func(c *akiwatch.Config) *bool { return &c.ForceSend })},
	{"FORCE_SEND", setBool(func(c *akiwatch.Config) *bool { return &c.ForceSend })},
	{"SMTP_HOST", setString(func(c *akiwatch.Config) *string { return &c.SMTP.Host })},
	{"SMTP_PORT", setInt(func(c *akiwatch.Config) *int { return &c.SMTP.Port })},
	{"SMTP_USER", setString(func(c *akiwatch.Config) *string { return &c.SMTP.User })},
	{"SMTP_PASS", setString(func(c *akiwatch.Config) *string { return &c.SMTP.Password })},
	{"MAIL_FROM", setString(func(c *akiwatch.Config) *string { return &c.SMTP.From })},
	{"MAIL_TO", setString(func(c *akiwatch.Config) *string { return &c.SMTP.To })},
	{"SUBJECT_PREFIX", setString(func(c *akiwatch.Config) *string { return &c.SMTP.SubjectPrefix })},
}

// EnvNames returns the names of every environment override.
func EnvNames() []string {
	names := make([]string, len(envVars))
	for i, v := range envVars {
		names[i] = v.name
	}
	return names
}

// LoadConfig resolves the configuration once: an environment variable wins
// over the YAML file at path, which wins over the built-in default.
// An empty path skips the file. getenv is usually os.Getenv.
func LoadConfig(path string, getenv func(string) string) (akiwatch.Config, error) {
	cfg := akiwatch.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return akiwatch.Config{}, fmt.Errorf("reading config: %w", err)
		}
		f := newFileConfig(cfg)
		if err := yaml.Unmarshal(data, &f); err != nil {
			return akiwatch.Config{}, akiwatch.Errorf(akiwatch.EINVALID, "parsing %s: %v", path, err)
		}
		cfg = f.config()
	}

	for _, v := range envVars {
		value := strings.TrimSpace(getenv(v.name))
		if value == "" {
			continue
		}
		if err := v.apply(&cfg, value); err != nil {
			return akiwatch.Config{}, akiwatch.Errorf(akiwatch.EINVALID, "%s: %v", v.name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return akiwatch.Config{}, err
	}
	return cfg, nil
}

// LoadDotenv loads variables from .env files into the process environment
// without overriding variables that are already set. Missing files are
// skipped.
func LoadDotenv(paths ...string) error {
	for _, path := range paths {
		err := godotenv.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

func setString(field func(*akiwatch.Config) *string) func(*akiwatch.Config, string) error {
	return func(c *akiwatch.Config, value string) error {
		*field(c) = value
		return nil
	}
}

func setInt(field func(*akiwatch.Config) *int) func(*akiwatch.Config, string) error {
	return func(c *akiwatch.Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

// setDuration accepts Go durations ("45s") and bare seconds ("45").
func setDuration(field func(*akiwatch.Config) *time.Duration) func(*akiwatch.Config, string) error {
	return func(c *akiwatch.Config, value string) error {
		if secs, err := strconv.Atoi(value); err == nil {
			*field(c) = time.Duration(secs) * time.Second
			return nil
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func setBool(field func(*akiwatch.Config) *bool) func(*akiwatch.Config, string) error {
	return func(c *akiwatch.Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}
