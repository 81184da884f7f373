package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// problems collects validation failures so they are reported together.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) positive(name string, n int64) {
	if n <= 0 {
		p.addf("%s must be positive", name)
	}
}

func (p *problems) positiveDuration(name string, d time.Duration) {
	if d <= 0 {
		p.addf("%s must be positive", name)
	}
}

func (p *problems) nonNegative(name string, n int64) {
	if n < 0 {
		p.addf("%s must be non-negative", name)
	}
}

func (p *problems) oneOf(name, value string, allowed ...string) {
	if !slices.Contains(allowed, strings.ToLower(value)) {
		p.addf("%s (%q) must be one of: %s", name, value, strings.Join(allowed, ", "))
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

// Validate checks every section and returns one error listing all problems.
// Sections that are switched off are not checked.
func (c *Config) Validate() error {
	var p problems

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	p.nonNegative("SERVER_READ_TIMEOUT", int64(c.Server.ReadTimeout))
	p.positiveDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	if c.Database.Enabled() {
		p.positive("DB_MAX_CONNS", int64(c.Database.MaxConns))
		p.nonNegative("DB_MIN_CONNS", int64(c.Database.MinConns))
		if c.Database.MaxConns < c.Database.MinConns {
			p.addf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	}

	p.positive("UPLOAD_MAX_FILE_SIZE", c.Upload.MaxFileSize)
	p.positive("UPLOAD_MAX_FILES", int64(c.Upload.MaxFiles))
	p.positive("UPLOAD_MAX_CONCURRENT", int64(c.Upload.MaxConcurrent))
	p.positiveDuration("UPLOAD_MAX_WAIT_TIME", c.Upload.MaxWaitTime)

	if c.Fetch.Enabled {
		p.positiveDuration("FETCH_TIMEOUT", c.Fetch.Timeout)
		p.nonNegative("FETCH_RETRY_MAX", int64(c.Fetch.RetryMax))
		p.positive("FETCH_MAX_BYTES", c.Fetch.MaxBytes)
	}

	p.positive("VIEW_DEFAULT_ROWS", int64(c.View.DefaultRows))
	if c.View.MaxRows < c.View.DefaultRows {
		p.addf("VIEW_MAX_ROWS (%d) must be >= VIEW_DEFAULT_ROWS (%d)", c.View.MaxRows, c.View.DefaultRows)
	}
	p.positive("VIEW_FILTER_MAX_DISTINCT", int64(c.View.FilterMaxDistinct))
	p.positive("VIEW_FILTER_MAX_COLUMNS", int64(c.View.FilterMaxColumns))

	p.positiveDuration("SESSION_IDLE_TIMEOUT", c.Session.IdleTimeout)
	p.positiveDuration("SESSION_SWEEP_INTERVAL", c.Session.SweepInterval)
	if c.Session.CookieName == "" {
		p.addf("SESSION_COOKIE_NAME must not be empty")
	}

	if c.Search.Enabled {
		p.positive("SEARCH_LIMIT", int64(c.Search.Limit))
	}

	if c.Rate.Enabled {
		p.positive("RATE_LIMIT_REQUESTS_PER_MINUTE", int64(c.Rate.RequestsPerMinute))
		p.positive("RATE_LIMIT_LOAD", int64(c.Rate.LoadLimit))
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		p.addf("REQUIRE_API_KEY is set but API_KEYS is empty")
	}

	p.oneOf("LOG_LEVEL", c.Logging.Level, "debug", "info", "warn", "error")
	p.oneOf("LOG_FORMAT", c.Logging.Format, "text", "json")

	return p.err()
}
