// Package config loads the optional JSON settings file shared by the CLI and
// the desktop app.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/trilat/pkg/solver"
)

// Defaults for fields omitted from the file.
const (
	DefaultVerifyTolerance = 1e-6
	DefaultEvalTimeout     = 5 * time.Second
	DefaultCSVSeparator    = ","
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root of the settings file. Every field is optional; the Get*
// methods fall back to the defaults above.
type Config struct {
	TangencyTolerance  *float64 `json:"tangency_tolerance,omitempty"`
	CollinearTolerance *float64 `json:"collinear_tolerance,omitempty"`
	VerifyTolerance    *float64 `json:"verify_tolerance,omitempty"`
	EvalTimeout        *string  `json:"eval_timeout,omitempty"` // duration string like "5s"
	CSVSeparator       *string  `json:"csv_separator,omitempty"`
}

// Load reads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges for the fields that are set.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"tangency_tolerance", c.TangencyTolerance},
		{"collinear_tolerance", c.CollinearTolerance},
		{"verify_tolerance", c.VerifyTolerance},
	} {
		if f.v != nil && (*f.v < 0 || *f.v >= 1) {
			return fmt.Errorf("%s must be in [0, 1), got %g", f.name, *f.v)
		}
	}
	if c.EvalTimeout != nil {
		d, err := time.ParseDuration(*c.EvalTimeout)
		if err != nil {
			return fmt.Errorf("eval_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("eval_timeout must be positive, got %s", d)
		}
	}
	if c.CSVSeparator != nil {
		if s := *c.CSVSeparator; s != "," && s != "\t" && s != ";" {
			return fmt.Errorf("csv_separator must be one of \",\", \"\\t\" or \";\", got %q", s)
		}
	}
	return nil
}

// SolverOptions returns the solver tolerances.
func (c *Config) SolverOptions() solver.Options {
	opts := solver.DefaultOptions()
	if c.TangencyTolerance != nil {
		opts.TangencyTolerance = *c.TangencyTolerance
	}
	if c.CollinearTolerance != nil {
		opts.CollinearTolerance = *c.CollinearTolerance
	}
	return opts
}

// GetVerifyTolerance returns the residual tolerance used by verification.
func (c *Config) GetVerifyTolerance() float64 {
	if c.VerifyTolerance != nil {
		return *c.VerifyTolerance
	}
	return DefaultVerifyTolerance
}

// GetEvalTimeout returns the scenario evaluation limit.
func (c *Config) GetEvalTimeout() time.Duration {
	if c.EvalTimeout != nil {
		if d, err := time.ParseDuration(*c.EvalTimeout); err == nil && d > 0 {
			return d
		}
	}
	return DefaultEvalTimeout
}

// GetCSVSeparator returns the batch field separator as a rune.
func (c *Config) GetCSVSeparator() rune {
	if c.CSVSeparator != nil && *c.CSVSeparator != "" {
		return rune((*c.CSVSeparator)[0])
	}
	return rune(DefaultCSVSeparator[0])
}
