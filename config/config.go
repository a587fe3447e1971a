package config

import (
	"fmt"
	"net/url"
	"time"
)

// Driver names accepted by Config.Driver.
const (
	DriverRod    = "rod"
	DriverReplay = "replay"
)

// Config holds scraper configuration.
type Config struct {
	ListingURL string
	Driver     string

	// Browser
	Headless   bool
	NoSandbox  bool
	BrowserBin string

	// Scroll loop
	MaxIdleRounds    int
	StabilityTimeout time.Duration
	HardWaitTimeout  time.Duration
	TargetCount      int
	ScrollDelta      int
	ReplayBatchSize  int

	// Driver call retries
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration

	// Output
	OutputFile   string
	OutputFormat string // csv, json, or dual
	Resume       bool

	Parallelism int
	Verbose     bool
	MetricsAddr string
}

// DefaultConfig returns conservative defaults for a single listing.
func DefaultConfig() *Config {
	return &Config{
		ListingURL:       "https://www.google.com/maps/place/?q=place_id:ChIJN1t_tDeuEmsRUsoyG83frY4",
		Driver:           DriverRod,
		Headless:         true,
		NoSandbox:        false,
		MaxIdleRounds:    3,
		StabilityTimeout: 5 * time.Second,
		HardWaitTimeout:  20 * time.Second,
		TargetCount:      0,
		ScrollDelta:      2000,
		ReplayBatchSize:  10,
		MaxRetries:       3,
		RetryBackoff:     500 * time.Millisecond,
		RetryBackoffMax:  8 * time.Second,
		OutputFile:       "output/reviews.csv",
		OutputFormat:     "csv",
		Resume:           false,
		Parallelism:      1,
		Verbose:          false,
		MetricsAddr:      "",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.ListingURL == "" {
		return fmt.Errorf("listing URL cannot be empty")
	}
	if err := ValidateListingURL(c.Driver, c.ListingURL); err != nil {
		return err
	}

	if c.Driver != DriverRod && c.Driver != DriverReplay {
		return fmt.Errorf("driver must be rod or replay")
	}
	if c.MaxIdleRounds <= 0 {
		return fmt.Errorf("max idle rounds must be positive")
	}
	if c.StabilityTimeout <= 0 {
		return fmt.Errorf("stability timeout must be positive")
	}
	if c.HardWaitTimeout < c.StabilityTimeout {
		return fmt.Errorf("hard wait timeout (%s) cannot be shorter than stability timeout (%s)", c.HardWaitTimeout, c.StabilityTimeout)
	}
	if c.TargetCount < 0 {
		return fmt.Errorf("target count cannot be negative")
	}
	if c.ScrollDelta <= 0 {
		return fmt.Errorf("scroll delta must be positive")
	}
	if c.ReplayBatchSize <= 0 {
		return fmt.Errorf("replay batch size must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}

	return nil
}

// ValidateListingURL checks a listing URL against what the driver can load.
// The replay driver also accepts file:// URLs of saved pages.
func ValidateListingURL(driver, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid listing URL: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
		if parsed.Host == "" {
			return fmt.Errorf("listing URL must include a host")
		}
	case "file":
		if driver != DriverReplay {
			return fmt.Errorf("listing URL with file scheme requires the replay driver")
		}
		if parsed.Path == "" {
			return fmt.Errorf("listing URL must include a file path")
		}
	default:
		return fmt.Errorf("listing URL scheme %q is not supported", parsed.Scheme)
	}
	return nil
}

// Clone returns a shallow copy so parallel sessions can diverge.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
