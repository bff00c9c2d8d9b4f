package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "dispatch.mode")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidDispatchModes returns the accepted dispatch.mode values
func ValidDispatchModes() []string {
	return []string{"auto", "stream", "synthetic"}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidDemoPresets returns the accepted demo.preset values
func ValidDemoPresets() []string {
	return []string{"quick", "medium", "slow"}
}

// ValidDemoScenarios returns the accepted demo.scenario values
func ValidDemoScenarios() []string {
	return []string{"success", "fail", "malformed", "invalid"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateAPI()...)
	errors = append(errors, c.validateDispatch()...)
	errors = append(errors, c.validateLocation()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateDemo()...)

	return errors
}

func (c *Config) validateAPI() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.API.BaseURL)
	if c.API.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "api.base_url",
			Value:   c.API.BaseURL,
			Message: "must be an absolute http or https URL",
		})
	}

	if c.API.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "api.timeout",
			Value:   c.API.Timeout,
			Message: "must be positive",
		})
	}

	if c.API.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "api.rate_limit",
			Value:   c.API.RateLimit,
			Message: "must be positive",
		})
	}

	if c.API.RateBurst < 1 {
		errors = append(errors, ValidationError{
			Field:   "api.rate_burst",
			Value:   c.API.RateBurst,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateDispatch() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidDispatchModes(), strings.ToLower(c.Dispatch.Mode)) {
		errors = append(errors, ValidationError{
			Field:   "dispatch.mode",
			Value:   c.Dispatch.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDispatchModes(), ", ")),
		})
	}

	if c.Dispatch.Watchdog < 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.watchdog",
			Value:   c.Dispatch.Watchdog,
			Message: "must be non-negative (0 disables the watchdog)",
		})
	}

	if c.Dispatch.SyntheticPacing <= 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.synthetic_pacing",
			Value:   c.Dispatch.SyntheticPacing,
			Message: "must be positive",
		})
	}

	if c.Dispatch.MaxRecordBytes < 1024 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.max_record_bytes",
			Value:   c.Dispatch.MaxRecordBytes,
			Message: "must be at least 1024",
		})
	}

	return errors
}

func (c *Config) validateLocation() []ValidationError {
	var errors []ValidationError

	if (c.Location.Lat == nil) != (c.Location.Lng == nil) {
		errors = append(errors, ValidationError{
			Field:   "location",
			Value:   fmt.Sprintf("lat=%v lng=%v", c.Location.Lat != nil, c.Location.Lng != nil),
			Message: "lat and lng must be set together",
		})
	}
	if c.Location.Lat != nil && (*c.Location.Lat < -90 || *c.Location.Lat > 90) {
		errors = append(errors, ValidationError{
			Field:   "location.lat",
			Value:   *c.Location.Lat,
			Message: "must be between -90 and 90",
		})
	}
	if c.Location.Lng != nil && (*c.Location.Lng < -180 || *c.Location.Lng > 180) {
		errors = append(errors, ValidationError{
			Field:   "location.lng",
			Value:   *c.Location.Lng,
			Message: "must be between -180 and 180",
		})
	}

	if c.Location.LookupURL != "" {
		if u, err := url.Parse(c.Location.LookupURL); err != nil || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "location.lookup_url",
				Value:   c.Location.LookupURL,
				Message: "must be an absolute URL",
			})
		}
	}

	if c.Location.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "location.timeout",
			Value:   c.Location.Timeout,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateDemo() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidDemoPresets(), strings.ToLower(c.Demo.Preset)) {
		errors = append(errors, ValidationError{
			Field:   "demo.preset",
			Value:   c.Demo.Preset,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDemoPresets(), ", ")),
		})
	}

	if !slices.Contains(ValidDemoScenarios(), strings.ToLower(c.Demo.Scenario)) {
		errors = append(errors, ValidationError{
			Field:   "demo.scenario",
			Value:   c.Demo.Scenario,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDemoScenarios(), ", ")),
		})
	}

	return errors
}
