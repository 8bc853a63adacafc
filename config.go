package akiwatch

import "time"

// DefaultEntryURL is the first page of the portal's search sequence.
const DefaultEntryURL = "https://yoyaku.city.nerima.tokyo.jp/stagia/reserve/gin_menu"

// Config holds every runtime setting. It is resolved once at startup and
// not modified afterwards.
type Config struct {
	EntryURL  string
	UserAgent string
	Timezone  string

	// Category and Purpose are the option labels chosen in the search form.
	Category string
	Purpose  string

	StepTimeout  time.Duration
	InitialDelay DelayRange
	PageDelay    DelayRange
	MaxRetries   int
	MaxPages     int

	// Preflight checks that the entry host answers HTTP at all before each
	// browser attempt. Off by default.
	Preflight bool

	DataDir string
	LockTTL time.Duration

	// ForceSend notifies about every extracted slot, not only new ones.
	ForceSend bool

	SMTP SMTPConfig
}

// DelayRange is a closed interval a random delay is drawn from.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// SMTPConfig configures the e-mail notifier.
type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	From          string
	To            string
	SubjectPrefix string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		EntryURL:     DefaultEntryURL,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		Timezone:     "Asia/Tokyo",
		Category:     "屋内スポーツ施設",
		Purpose:      "バレーボール",
		StepTimeout:  30 * time.Second,
		InitialDelay: DelayRange{Min: 800 * time.Millisecond, Max: 2 * time.Second},
		PageDelay:    DelayRange{Min: 300 * time.Millisecond, Max: 800 * time.Millisecond},
		MaxRetries:   3,
		MaxPages:     120,
		DataDir:      "data",
		LockTTL:      10 * time.Minute,
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

// Validate returns an error if the configuration cannot drive a run.
func (c *Config) Validate() error {
	if c.EntryURL == "" {
		return Errorf(EINVALID, "entry URL required")
	}
	if c.StepTimeout <= 0 {
		return Errorf(EINVALID, "step timeout must be positive")
	}
	if c.MaxRetries < 1 {
		return Errorf(EINVALID, "max retries must be at least 1")
	}
	if c.MaxPages < 1 {
		return Errorf(EINVALID, "max pages must be at least 1")
	}
	if c.InitialDelay.Min > c.InitialDelay.Max {
		return Errorf(EINVALID, "initial delay min exceeds max")
	}
	if c.PageDelay.Min > c.PageDelay.Max {
		return Errorf(EINVALID, "page delay min exceeds max")
	}
	return nil
}
