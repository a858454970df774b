// Package config loads the reconciliation settings from a YAML file, the
// environment and command line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/lookup"
	"github.com/lehigh-university-libraries/srp/internal/match"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "srp.yaml"

// Environment variables holding lookup credentials.
const (
	EnvWorldCatClientID     = "WORLDCAT_CLIENT_ID"
	EnvWorldCatClientSecret = "WORLDCAT_CLIENT_SECRET"
	EnvGoogleBooksAPIKey    = "GOOGLE_BOOKS_API_KEY"
)

type Inputs struct {
	Licensing []string `yaml:"licensing" validate:"required,min=1,dive,required"`
	Sierra    []string `yaml:"sierra" validate:"dive,required"`
	TitleList []string `yaml:"titlelist" validate:"dive,required"`
}

type Columns struct {
	Licensing holdings.Columns       `yaml:"licensing"`
	Sierra    match.SierraColumns    `yaml:"sierra"`
	TitleList match.TitleListColumns `yaml:"titlelist"`
}

type Lookup struct {
	Provider    string        `yaml:"provider" validate:"oneof=worldcat googlebooks none"`
	Endpoint    string        `yaml:"endpoint" validate:"omitempty,url"`
	Cache       string        `yaml:"cache"`
	RateLimit   float64       `yaml:"rate_limit" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	Concurrency int           `yaml:"concurrency" validate:"gte=1,lte=64"`

	WorldCatClientID     string `yaml:"-"`
	WorldCatClientSecret string `yaml:"-"`
	GoogleBooksAPIKey    string `yaml:"-"`
}

// Settings converts the section for lookup.NewClient.
func (l Lookup) Settings() lookup.Settings {
	return lookup.Settings{
		Provider:             l.Provider,
		Endpoint:             l.Endpoint,
		RateLimit:            l.RateLimit,
		Timeout:              l.Timeout,
		WorldCatClientID:     l.WorldCatClientID,
		WorldCatClientSecret: l.WorldCatClientSecret,
		GoogleBooksAPIKey:    l.GoogleBooksAPIKey,
	}
}

type Output struct {
	Dir     string `yaml:"dir" validate:"required"`
	Parquet bool   `yaml:"parquet"`
}

// Config is the complete run configuration.
type Config struct {
	Inputs      Inputs  `yaml:"inputs"`
	Columns     Columns `yaml:"columns"`
	Lookup      Lookup  `yaml:"lookup"`
	Output      Output  `yaml:"output"`
	Resolutions string  `yaml:"resolutions"`
	// Today overrides the date embargoes are computed against (YYYY-MM-DD).
	Today string `yaml:"today" validate:"omitempty,datetime=2006-01-02"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Columns: Columns{
			Licensing: holdings.DefaultColumns(),
			Sierra:    match.DefaultSierraColumns(),
			TitleList: match.DefaultTitleListColumns(),
		},
		Lookup: Lookup{
			Provider:    lookup.ProviderNone,
			Cache:       "scraped_issns.json",
			RateLimit:   float64(lookup.DefaultRateLimit),
			Timeout:     lookup.DefaultTimeout,
			Concurrency: 4,
		},
		Output: Output{
			Dir: "output",
		},
		Resolutions: "resolutions.yaml",
	}
}

// Load reads path over the defaults and then applies the environment. A
// missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.ApplyEnv()
	cfg.normalize()
	return cfg, nil
}

// ApplyEnv fills credentials from the environment.
func (c *Config) ApplyEnv() {
	c.Lookup.WorldCatClientID = os.Getenv(EnvWorldCatClientID)
	c.Lookup.WorldCatClientSecret = os.Getenv(EnvWorldCatClientSecret)
	c.Lookup.GoogleBooksAPIKey = os.Getenv(EnvGoogleBooksAPIKey)
}

// normalize lowercases column names to match the lowercased input headers.
func (c *Config) normalize() {
	lc := func(s *string) { *s = strings.ToLower(strings.TrimSpace(*s)) }

	l := &c.Columns.Licensing
	for _, s := range []*string{&l.Key, &l.Title, &l.ISSN, &l.EISSN, &l.Resource, &l.EndDate, &l.Include, &l.Free} {
		lc(s)
	}
	s := &c.Columns.Sierra
	for _, v := range []*string{&s.BibNumber, &s.Title, &s.ISSNa, &s.ISSNl, &s.ISSNy, &s.Linking} {
		lc(v)
	}
	t := &c.Columns.TitleList
	for _, v := range []*string{&t.Key, &t.Title, &t.ISSN1, &t.ISSN2} {
		lc(v)
	}
	c.Lookup.Provider = strings.ToLower(strings.TrimSpace(c.Lookup.Provider))
	if c.Lookup.Provider == "" {
		c.Lookup.Provider = lookup.ProviderNone
	}
}

// Validate checks the configuration once all overrides are applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if len(c.Inputs.Sierra) == 0 && len(c.Inputs.TitleList) == 0 {
		return fmt.Errorf("invalid configuration: no sierra or titlelist inputs")
	}
	if c.Lookup.Provider == lookup.ProviderWorldCat &&
		(c.Lookup.WorldCatClientID == "" || c.Lookup.WorldCatClientSecret == "") {
		return fmt.Errorf("invalid configuration: worldcat lookup requires %s and %s", EnvWorldCatClientID, EnvWorldCatClientSecret)
	}
	return nil
}

// TodayDate returns the configured "today", or now when unset.
func (c *Config) TodayDate(now time.Time) (time.Time, error) {
	if c.Today == "" {
		return now, nil
	}
	t, err := time.Parse("2006-01-02", c.Today)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid today %q: %w", c.Today, err)
	}
	return t, nil
}
