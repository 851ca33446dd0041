package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ErrInvalidConfig is returned when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// ReportFormats lists the supported report output formats.
var ReportFormats = []string{"text", "table", "json", "yaml"}

type setting struct {
	key   string
	value string
}

// Validate checks that credentials are present and URLs are well formed.
// All problems are reported together.
func (c *Config) Validate() error {
	var problems []string

	required := []setting{
		{"tvdb.api_key", c.TVDB.APIKey},
		{"tvdb.user_key", c.TVDB.UserKey},
		{"tvdb.username", c.TVDB.Username},
	}
	if !c.Plex.HasPlexToken() {
		required = append(required,
			setting{"plex.username", c.Plex.Username},
			setting{"plex.password", c.Plex.Password},
		)
	}
	for _, s := range required {
		if strings.TrimSpace(s.value) == "" {
			problems = append(problems, s.key+" is required")
		}
	}

	urls := []setting{
		{"tvdb.base_url", c.TVDB.BaseURL},
		{"plex.url", c.Plex.URL},
		{"plex.account_url", c.Plex.AccountURL},
	}
	for _, s := range urls {
		if err := validateBaseURL(s.value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", s.key, err))
		}
	}

	if !slices.Contains(ReportFormats, c.Report.Format) {
		problems = append(problems, fmt.Sprintf("report.format %q is not one of %s",
			c.Report.Format, strings.Join(ReportFormats, ", ")))
	}
	if c.Report.Workers < 1 {
		problems = append(problems, "report.workers must be at least 1")
	}
	if c.Report.GraceWindow < 0 {
		problems = append(problems, "report.grace_window must not be negative")
	}
	if c.HTTP.Timeout <= 0 {
		problems = append(problems, "http.timeout must be positive")
	}
	if c.HTTP.Retries < 0 {
		problems = append(problems, "http.retries must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

func validateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
