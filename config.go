// Copyright 2025 The flexband Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ArchiveSource is one yearly archive file. Archives are consumed oldest
// year first; the live API is always the last source.
type ArchiveSource struct {
	Year int    `yaml:"year"`
	Path string `yaml:"path"`
}

// Config holds the application configuration
type Config struct {
	// Live API source
	APIBaseURL     string `yaml:"api_base_url"`
	ResourceID     string `yaml:"resource_id"`
	PageSize       int    `yaml:"page_size"`
	MaxPages       int    `yaml:"max_pages"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`

	// Yearly archive files
	Archives []ArchiveSource `yaml:"archives"`

	// Analysis settings
	FlexibilityPercent float64 `yaml:"flexibility_percent"`

	// Storage and caching
	StoragePath     string `yaml:"storage_path"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`

	// Debugging
	Debug bool `yaml:"debug"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	// Set defaults
	config := &Config{
		APIBaseURL:         CCEEDatastoreEndpoint,
		ResourceID:         CCEEConsumptionResourceID,
		PageSize:           1000,
		MaxPages:           50,
		RequestTimeout:     30,
		FlexibilityPercent: 30,
		StoragePath:        getDefaultStoragePath(),
		CacheTTLMinutes:    60,
		Debug:              false,
	}

	// If no path provided, return defaults with env var overrides
	if path == "" {
		config.applyEnvironmentVariables()
		return config, nil
	}

	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentVariables()

	return config, nil
}

// getDefaultStoragePath returns the default storage path
func getDefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flexband"
	}
	return filepath.Join(home, ".config", "flexband")
}

// applyEnvironmentVariables overrides config with environment variables
func (c *Config) applyEnvironmentVariables() {
	if val := os.Getenv("FLEXBAND_API_BASE_URL"); val != "" {
		c.APIBaseURL = val
	}
	if val := os.Getenv("FLEXBAND_RESOURCE_ID"); val != "" {
		c.ResourceID = val
	}
	if val := os.Getenv("FLEXBAND_STORAGE_PATH"); val != "" {
		c.StoragePath = val
	}
	if val := os.Getenv("FLEXBAND_FLEXIBILITY_PERCENT"); val != "" {
		if pct, err := strconv.ParseFloat(val, 64); err == nil {
			c.FlexibilityPercent = pct
		}
	}
	if val := os.Getenv("FLEXBAND_DEBUG"); val == "true" || val == "1" {
		c.Debug = true
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if c.APIBaseURL == "" {
		errors = append(errors, "api_base_url is required")
	}
	if c.ResourceID == "" {
		errors = append(errors, "resource_id is required")
	}

	if c.PageSize < 1 || c.PageSize > 32000 {
		errors = append(errors, "page_size must be between 1 and 32000")
	}
	if c.MaxPages < 1 || c.MaxPages > 500 {
		errors = append(errors, "max_pages must be between 1 and 500")
	}
	if c.RequestTimeout < 1 {
		errors = append(errors, "request_timeout_seconds must be positive")
	}

	if c.FlexibilityPercent < 1 || c.FlexibilityPercent > 100 {
		errors = append(errors, "flexibility_percent must be between 1 and 100")
	}

	for i, a := range c.Archives {
		if a.Path == "" {
			errors = append(errors, fmt.Sprintf("archives[%d].path is required", i))
		}
		if a.Year < 2000 || a.Year > 2100 {
			errors = append(errors, fmt.Sprintf("archives[%d].year looks invalid", i))
		}
	}

	// Oldest archive first, regardless of config file order
	sort.SliceStable(c.Archives, func(i, j int) bool {
		return c.Archives[i].Year < c.Archives[j].Year
	})

	// Set default storage path if empty
	if c.StoragePath == "" {
		c.StoragePath = getDefaultStoragePath()
	}
	if c.CacheTTLMinutes < 0 {
		errors = append(errors, "cache_ttl_minutes must not be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
