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
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// Reporter generates markdown reports from analysis results
type Reporter struct {
	logger *Logger
}

// NewReporter creates a new report generator
func NewReporter(logger *Logger) *Reporter {
	return &Reporter{
		logger: logger,
	}
}

// GenerateReport creates a markdown report from analysis results
func (r *Reporter) GenerateReport(result *AnalysisResult, outputPath string) error {
	r.logger.Info("Generating report")

	var writer io.Writer
	if outputPath == "" {
		writer = os.Stdout
	} else {
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		writer = file
	}

	// Generate report content
	r.writeHeader(writer, result)
	r.writeSources(writer, result)
	r.writeBandSummary(writer, result)
	r.writeMonthlySeries(writer, result)
	r.writeYearlyGrowth(writer, result)
	r.writeCompanySummaries(writer, result)
	r.writeSubmarketSummaries(writer, result)
	r.writeUnitSummaries(writer, result)
	r.writeWarnings(writer, result)
	r.writeFooter(writer)

	if outputPath != "" {
		r.logger.Info("Report saved", "path", outputPath)
	}

	return nil
}

// writeHeader writes the report header
func (r *Reporter) writeHeader(w io.Writer, result *AnalysisResult) {
	fmt.Fprintf(w, "# Regulated Market Consumption Analysis\n\n")
	fmt.Fprintf(w, "**Generated:** %s\n\n", result.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "**Companies:** %s\n\n", strings.Join(result.Companies, ", "))
	if !result.PeriodStart.IsZero() || !result.PeriodEnd.IsZero() {
		start := "beginning of data"
		if !result.PeriodStart.IsZero() {
			start = result.PeriodStart.Format("2006-01")
		}
		end := "latest month"
		if !result.PeriodEnd.IsZero() {
			end = result.PeriodEnd.Format("2006-01")
		}
		fmt.Fprintf(w, "**Analysis Period:** %s to %s\n\n", start, end)
	}
	fmt.Fprintf(w, "**flexband version:** %s\n\n", GetVersion())
	fmt.Fprintf(w, "---\n\n")
}

// writeSources writes the data sources section
func (r *Reporter) writeSources(w io.Writer, result *AnalysisResult) {
	if len(result.SourceStats) == 0 && result.DatasetInfo == nil {
		return
	}

	fmt.Fprintf(w, "## 📦 Data Sources\n\n")

	if len(result.SourceStats) > 0 {
		fmt.Fprintf(w, "| Source | Records | Dropped | Status |\n")
		fmt.Fprintf(w, "|--------|---------|---------|--------|\n")
		for _, stat := range result.SourceStats {
			status := "✅"
			if stat.Warning != "" {
				status = "⚠️ " + stat.Warning
			}
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
				stat.Source,
				humanize.Comma(int64(stat.Records)),
				humanize.Comma(int64(stat.Dropped)),
				status,
			)
		}
		fmt.Fprintf(w, "\n")
	}

	if info := result.DatasetInfo; info != nil {
		fmt.Fprintf(w, "> **Dataset:** %s records reachable", humanize.Comma(int64(info.TotalRecords)))
		if info.OldestMonth != nil && info.NewestMonth != nil {
			fmt.Fprintf(w, ", spanning %s to %s",
				info.OldestMonth.Format("2006-01"),
				info.NewestMonth.Format("2006-01"),
			)
		}
		fmt.Fprintf(w, "\n\n")
	}
}

// writeBandSummary writes the flexibility band section
func (r *Reporter) writeBandSummary(w io.Writer, result *AnalysisResult) {
	if len(result.Monthly) == 0 {
		return
	}

	fmt.Fprintf(w, "## 📊 Flexibility Band\n\n")

	fmt.Fprintf(w, "| Metric | Value |\n")
	fmt.Fprintf(w, "|--------|-------|\n")
	fmt.Fprintf(w, "| 🎯 Recentered Mean | %.2f MWm |\n", result.Band.Center)
	fmt.Fprintf(w, "| 📏 Flexibility | ±%.0f%% |\n", result.FlexibilityPercent)
	fmt.Fprintf(w, "| ⬆️ Upper Limit | %.2f MWm |\n", result.Band.Upper)
	fmt.Fprintf(w, "| ⬇️ Lower Limit | %.2f MWm |\n", result.Band.Lower)
	fmt.Fprintf(w, "| ⚠️ Months Out of Band | %d of %d |\n",
		countOutOfBand(result.Monthly), len(result.Monthly))
	fmt.Fprintf(w, "\n")
}

// writeMonthlySeries writes the monthly consumption table
func (r *Reporter) writeMonthlySeries(w io.Writer, result *AnalysisResult) {
	if len(result.Monthly) == 0 {
		return
	}

	fmt.Fprintf(w, "## 📅 Monthly Consumption\n\n")

	fmt.Fprintf(w, "| Month | MWm | Band |\n")
	fmt.Fprintf(w, "|-------|-----|------|\n")
	for _, m := range result.Monthly {
		marker := "✅ in band"
		if m.OutOfBand {
			if m.ConsumptionMWm > result.Band.Upper {
				marker = "🔺 above band"
			} else {
				marker = "🔻 below band"
			}
		}
		fmt.Fprintf(w, "| %s | %.2f | %s |\n",
			m.Month.Format("2006-01"),
			m.ConsumptionMWm,
			marker,
		)
	}
	fmt.Fprintf(w, "\n")
}

// writeYearlyGrowth writes the year-over-year growth table
func (r *Reporter) writeYearlyGrowth(w io.Writer, result *AnalysisResult) {
	if len(result.YearlyGrowth) == 0 {
		return
	}

	fmt.Fprintf(w, "## 📈 Yearly Growth\n\n")

	fmt.Fprintf(w, "| Year | Mean MWm | Change |\n")
	fmt.Fprintf(w, "|------|----------|--------|\n")
	for _, row := range result.YearlyGrowth {
		change := "-"
		if row.ChangePercent != nil {
			icon := "📈"
			if *row.ChangePercent < 0 {
				icon = "📉"
			}
			change = fmt.Sprintf("%s %+.1f%%", icon, *row.ChangePercent)
		}
		fmt.Fprintf(w, "| %d | %.2f | %s |\n", row.Year, row.MeanMWm, change)
	}
	fmt.Fprintf(w, "\n")
}

// writeCompanySummaries writes the per-company trailing window section
func (r *Reporter) writeCompanySummaries(w io.Writer, result *AnalysisResult) {
	if len(result.CompanySummaries) == 0 {
		return
	}

	fmt.Fprintf(w, "## 🏢 Companies (trailing 12 months)\n\n")

	fmt.Fprintf(w, "| Company | Units | Submarkets | Decision Center | CNPJ |\n")
	fmt.Fprintf(w, "|---------|-------|------------|-----------------|------|\n")
	for _, c := range result.CompanySummaries {
		submarkets := "single"
		if c.MixedSubmarket {
			submarkets = "⚠️ mixed"
		}
		center := "-"
		if c.DecisionCity != "" || c.DecisionState != "" {
			center = strings.TrimSuffix(fmt.Sprintf("%s/%s", c.DecisionCity, c.DecisionState), "/")
		}
		cnpj := c.DecisionCNPJ
		if cnpj == "" {
			cnpj = "-"
		}
		fmt.Fprintf(w, "| %s | %d | %s | %s | %s |\n",
			c.Company, c.Units, submarkets, center, cnpj)
	}
	fmt.Fprintf(w, "\n")
}

// writeSubmarketSummaries writes the per-submarket trailing window section
func (r *Reporter) writeSubmarketSummaries(w io.Writer, result *AnalysisResult) {
	if len(result.SubmarketSummaries) == 0 {
		return
	}

	fmt.Fprintf(w, "## 🗺️ Submarkets (trailing 12 months)\n\n")

	fmt.Fprintf(w, "| Submarket | Units | Monthly Mean MWm | Share |\n")
	fmt.Fprintf(w, "|-----------|-------|------------------|-------|\n")
	for _, s := range result.SubmarketSummaries {
		fmt.Fprintf(w, "| %s | %d | %.2f | %.1f%% |\n",
			s.Submarket, s.Units, s.MonthlyMeanMWm, s.ShareOfTotal)
	}
	fmt.Fprintf(w, "\n")
}

// writeUnitSummaries writes the per-unit trailing window section
func (r *Reporter) writeUnitSummaries(w io.Writer, result *AnalysisResult) {
	if len(result.UnitSummaries) == 0 {
		return
	}

	fmt.Fprintf(w, "## 🔌 Consumer Units (trailing 12 months)\n\n")

	fmt.Fprintf(w, "| Unit | CNPJ | City | State | Submarket | Capacity MW | Mean MWm |\n")
	fmt.Fprintf(w, "|------|------|------|-------|-----------|-------------|----------|\n")
	for _, u := range result.UnitSummaries {
		capacity := "-"
		if u.Capacity != nil {
			capacity = fmt.Sprintf("%.2f", *u.Capacity)
		}
		mean := "-"
		if u.MeanMWm != nil {
			mean = fmt.Sprintf("%.3f", *u.MeanMWm)
		}
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s |\n",
			u.UnitCode, orDash(u.CNPJ), orDash(u.City), orDash(u.State),
			orDash(u.Submarket), capacity, mean)
	}
	fmt.Fprintf(w, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// writeWarnings writes the warnings section
func (r *Reporter) writeWarnings(w io.Writer, result *AnalysisResult) {
	if len(result.Warnings) == 0 {
		return
	}

	fmt.Fprintf(w, "## ⚠️ Warnings\n\n")
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "- %s\n", warning)
	}
	fmt.Fprintf(w, "\n")
}

// writeFooter writes the report footer
func (r *Reporter) writeFooter(w io.Writer) {
	fmt.Fprintf(w, "---\n\n")
	fmt.Fprintf(w, "*Monthly MWm values divide metered MWh by the hours in each calendar month. Figures reflect the public dataset at collection time and may be revised by the market operator.*\n\n")
	fmt.Fprintf(w, "*Generated by [flexband](https://github.com/flexband/flexband)*\n\n")
	fmt.Fprintf(w, "---\n\n")
	fmt.Fprintf(w, "This is an unofficial third-party application built on the CCEE open data portal. It is not affiliated with, endorsed by, or connected to CCEE.\n")
}
