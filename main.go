// Copyright 2025 The flexband Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	companiesFlag := flag.String("companies", "", "Comma-separated corporate names to analyze (overrides config)")
	fromFlag := flag.String("from", "", "Start month, YYYYMM or YYYY-MM (inclusive)")
	toFlag := flag.String("to", "", "End month, YYYYMM or YYYY-MM (inclusive)")
	flexFlag := flag.Float64("flex", 0, "Flexibility band percentage (overrides config)")
	outputPath := flag.String("output", "", "Output file for report (default: stdout)")
	htmlOutput := flag.Bool("html", false, "Generate HTML report instead of Markdown")
	listCompanies := flag.Bool("list-companies", false, "List known company names and exit")
	clearCache := flag.Bool("clear-cache", false, "Clear the source cache before running")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("flexband %s\n", GetVersion())
		os.Exit(0)
	}

	// Initialize logger
	logger := NewLogger(*debug)
	logger.Info("Starting flexband", "version", GetVersion())

	// Check for updates (non-blocking)
	go CheckForUpdates(logger)

	// Load configuration
	logger.Info("Loading configuration", "config_file", *configPath)
	config, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Override with command-line flags
	if *flexFlag > 0 {
		config.FlexibilityPercent = *flexFlag
	}
	if *debug {
		config.Debug = true
		// Recreate logger with debug enabled
		logger = NewLogger(true)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Configuration loaded successfully")

	// Parse the analysis period
	from, err := parsePeriodFlag(*fromFlag)
	if err != nil {
		logger.Error("Invalid -from value", "value", *fromFlag, "error", err)
		os.Exit(1)
	}
	to, err := parsePeriodFlag(*toFlag)
	if err != nil {
		logger.Error("Invalid -to value", "value", *toFlag, "error", err)
		os.Exit(1)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		logger.Error("Invalid period", "from", *fromFlag, "to", *toFlag)
		os.Exit(1)
	}

	// Initialize storage
	logger.Info("Initializing storage", "path", config.StoragePath)
	storage, err := NewStorage(config.StoragePath, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	if *clearCache {
		if err := storage.ClearCache(); err != nil {
			logger.Warn("Failed to clear cache", "error", err)
		}
	}

	// Create API client and archive reader
	logger.Info("Creating API client")
	client := NewDatastoreClient(config, logger)
	archive := NewArchiveReader(logger)

	// Create data collector
	logger.Info("Initializing data collector")
	collector := NewCollector(config, client, archive, storage, logger)

	// Company listing mode
	if *listCompanies {
		names, err := collector.ListCompanies()
		if err != nil {
			logger.Error("Failed to list companies", "error", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	companies := parseCompanies(*companiesFlag)
	if len(companies) == 0 {
		logger.Error("No companies selected, use -companies or see -list-companies")
		os.Exit(1)
	}

	// Fetch records from every source
	logger.Info("Collecting data", "companies", len(companies))
	records, stats := collector.CollectAll(companies, from, to)
	for _, stat := range stats {
		logger.LogDataCollection(stat.Source, stat.Records)
		logger.LogDroppedRecords(stat.Source, stat.Dropped)
	}

	// Create analyzer
	logger.Info("Initializing analyzer")
	analyzer := NewAnalyzer(config, logger)

	// Perform analysis
	logger.Info("Performing analysis")
	result, err := analyzer.Analyze(records, companies, from, to, config.FlexibilityPercent)
	if err != nil {
		logger.Error("Failed to perform analysis", "error", err)
		os.Exit(1)
	}
	result.SourceStats = stats

	// Dataset overview is best effort, the report renders without it
	if info, err := collector.DatasetInfo(); err == nil {
		result.DatasetInfo = info
	} else {
		logger.Warn("Failed to describe dataset", "error", err)
	}

	// Render charts for the HTML report
	if *htmlOutput && len(result.Monthly) > 0 {
		chartGen := NewChartGenerator()
		if chart, err := chartGen.GenerateMonthlyChart(result); err == nil {
			result.MonthlyChart = chart
		} else {
			logger.Warn("Failed to generate monthly chart", "error", err)
		}
		if chart, err := chartGen.GenerateBandChart(result); err == nil {
			result.BandChart = chart
		} else {
			logger.Warn("Failed to generate band chart", "error", err)
		}
	}

	// Save analysis results
	logger.Info("Saving analysis results")
	if err := storage.SaveAnalysisResult(result); err != nil {
		logger.Warn("Failed to save analysis results", "error", err)
	}

	// Generate report (HTML or Markdown)
	if *htmlOutput {
		logger.Info("Generating HTML report")
		htmlReporter := NewHTMLReporter(logger)
		if err := htmlReporter.GenerateHTMLReport(result, *outputPath); err != nil {
			logger.Error("Failed to generate HTML report", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("Generating Markdown report")
		reporter := NewReporter(logger)
		if err := reporter.GenerateReport(result, *outputPath); err != nil {
			logger.Error("Failed to generate report", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Analysis completed successfully")
}

// parseCompanies splits the -companies flag into trimmed, non-empty names.
func parseCompanies(value string) []string {
	var companies []string
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			companies = append(companies, name)
		}
	}
	return companies
}

// parsePeriodFlag parses a month boundary flag. Empty means unbounded.
func parsePeriodFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	normalized := strings.ReplaceAll(value, "-", "")
	if month, ok := parseMonthString(normalized); ok {
		return month, nil
	}
	return time.Time{}, fmt.Errorf("expected YYYYMM or YYYY-MM, got %q", value)
}
