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
	"sort"
	"time"
)

// Analyzer runs the consumption analysis over a unified record series.
type Analyzer struct {
	config *Config
	logger *Logger
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(config *Config, logger *Logger) *Analyzer {
	return &Analyzer{
		config: config,
		logger: logger.WithComponent("analyzer"),
	}
}

// Analyze derives the MWm series, classifies months against the
// flexibility band, and builds the growth and trailing-window summaries.
// The caller owns all filter state; this is a pure function of
// (records, companies, percentage).
func (a *Analyzer) Analyze(records []CanonicalRecord, companies []string, from, to time.Time, flexPercent float64) (*AnalysisResult, error) {
	if len(records) == 0 {
		return nil, &DataError{
			DataType: "consumption",
			Message:  "no data for the selected companies and period",
		}
	}

	result := &AnalysisResult{
		GeneratedAt:        time.Now(),
		Companies:          companies,
		PeriodStart:        from,
		PeriodEnd:          to,
		FlexibilityPercent: flexPercent,
	}

	derived := DeriveConsumption(records)
	a.logger.LogAnalysisStage("derive_consumption")

	if !metricAvailable(derived) {
		// No source exposed a consumption column: the summaries still
		// work on descriptive fields, the chart has nothing to show.
		result.Warnings = append(result.Warnings, "consumption metric unavailable in all sources; no chart data")
		result.CompanySummaries, result.SubmarketSummaries, result.UnitSummaries = SummarizeTrailingWindow(derived, companies)
		return result, nil
	}

	monthly := AggregateMonthly(derived)
	a.logger.LogAnalysisStage("monthly_aggregation")

	classified, band, degenerate := ClassifyFlexibility(monthly, flexPercent)
	if degenerate {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("every month falls outside the %.0f%% band around the global mean; band could not be recentered", flexPercent))
	}
	for _, m := range classified {
		if m.OutOfBand {
			a.logger.LogOutOfBandMonth(m.Month.Format("2006-01"), m.ConsumptionMWm, band)
		}
	}
	result.Monthly = classified
	result.Band = band
	a.logger.LogAnalysisStage("flexibility_band")

	result.CompanyMonthly = AggregateMonthlyByCompany(derived, classified)
	result.YearlyGrowth = YearlyGrowthTable(result.CompanyMonthly)
	a.logger.LogAnalysisStage("yearly_growth")

	result.CompanySummaries, result.SubmarketSummaries, result.UnitSummaries = SummarizeTrailingWindow(derived, companies)
	a.logger.LogAnalysisStage("trailing_window_summaries")

	a.logger.Info("Analysis completed",
		"months", len(result.Monthly),
		"out_of_band", countOutOfBand(result.Monthly),
		"warnings", len(result.Warnings),
	)

	return result, nil
}

// metricAvailable reports whether any record carries the derived metric.
func metricAvailable(records []DerivedRecord) bool {
	for _, r := range records {
		if r.ConsumptionMWm != nil {
			return true
		}
	}
	return false
}

// AggregateMonthly groups the derived series by calendar month, summing
// MWm with nil treated as zero, and returns one row per month sorted
// ascending for charting.
func AggregateMonthly(records []DerivedRecord) []MonthlyAggregate {
	sums := make(map[time.Time]float64)
	for _, r := range records {
		value := 0.0
		if r.ConsumptionMWm != nil {
			value = *r.ConsumptionMWm
		}
		sums[r.ReferenceMonth] += value
	}

	months := make([]MonthlyAggregate, 0, len(sums))
	for month, sum := range sums {
		months = append(months, MonthlyAggregate{Month: month, ConsumptionMWm: sum})
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month.Before(months[j].Month)
	})

	return months
}

// AggregateMonthlyByCompany produces the per-company monthly series for
// the stacked view, joined with the portfolio-level band classification.
func AggregateMonthlyByCompany(records []DerivedRecord, classified []MonthlyAggregate) []CompanyMonthly {
	type key struct {
		company string
		month   time.Time
	}
	sums := make(map[key]float64)
	for _, r := range records {
		value := 0.0
		if r.ConsumptionMWm != nil {
			value = *r.ConsumptionMWm
		}
		sums[key{r.Company, r.ReferenceMonth}] += value
	}

	flags := make(map[time.Time]bool, len(classified))
	for _, m := range classified {
		flags[m.Month] = m.OutOfBand
	}

	rows := make([]CompanyMonthly, 0, len(sums))
	for k, sum := range sums {
		rows = append(rows, CompanyMonthly{
			Company:        k.company,
			Month:          k.month,
			ConsumptionMWm: sum,
			OutOfBand:      flags[k.month],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Month.Equal(rows[j].Month) {
			return rows[i].Month.Before(rows[j].Month)
		}
		return rows[i].Company < rows[j].Company
	})

	return rows
}

// NewBand builds the flexibility band around a center value for a
// percentage p. Invariant: lower <= center <= upper and
// upper-lower == 2*center*p/100 for non-negative centers.
func NewBand(center, percent float64) FlexibilityBand {
	halfWidth := center * percent / 100
	return FlexibilityBand{
		Center:    center,
		HalfWidth: halfWidth,
		Lower:     center - halfWidth,
		Upper:     center + halfWidth,
	}
}

// ClassifyFlexibility runs the two-pass out-of-band classification.
//
// Pass 1 centers the band on the mean of all monthly values and tags each
// month. Pass 2 recenters on the mean of the months pass 1 left in-band
// and re-tags everything: a single global mean is skewed by extreme months
// (a ramp-up or a shutdown period), while the recentered band represents
// the normal operating range.
//
// When pass 1 flags every month, the recentered mean is undefined. That
// degenerate state is reported through the third return value and the
// pass-1 band is kept for display; it must never surface as NaN.
func ClassifyFlexibility(months []MonthlyAggregate, percent float64) ([]MonthlyAggregate, FlexibilityBand, bool) {
	if len(months) == 0 {
		return nil, FlexibilityBand{}, false
	}

	out := make([]MonthlyAggregate, len(months))
	copy(out, months)

	values := make([]float64, len(out))
	for i, m := range out {
		values[i] = m.ConsumptionMWm
	}

	// Pass 1: band around the global mean
	band := NewBand(mean(values), percent)
	tagOutOfBand(out, band)

	// Pass 2: recenter on the typical months
	var inBand []float64
	for _, m := range out {
		if !m.OutOfBand {
			inBand = append(inBand, m.ConsumptionMWm)
		}
	}
	if len(inBand) == 0 {
		return out, band, true
	}

	band = NewBand(mean(inBand), percent)
	tagOutOfBand(out, band)

	return out, band, false
}

// tagOutOfBand re-tags every month against the band.
func tagOutOfBand(months []MonthlyAggregate, band FlexibilityBand) {
	for i := range months {
		months[i].OutOfBand = !band.Contains(months[i].ConsumptionMWm)
	}
}

// YearlyGrowthTable computes the mean monthly MWm per calendar year over
// the per-company monthly rows, with the percent change versus the
// previous year. The first year has no change value.
func YearlyGrowthTable(rows []CompanyMonthly) []YearlyMean {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range rows {
		year := r.Month.Year()
		sums[year] += r.ConsumptionMWm
		counts[year]++
	}

	years := make([]int, 0, len(sums))
	for year := range sums {
		years = append(years, year)
	}
	sort.Ints(years)

	table := make([]YearlyMean, 0, len(years))
	for i, year := range years {
		row := YearlyMean{
			Year:    year,
			MeanMWm: sums[year] / float64(counts[year]),
		}
		if i > 0 {
			prev := table[i-1].MeanMWm
			if prev != 0 {
				change := (row.MeanMWm - prev) / prev * 100
				row.ChangePercent = &change
			}
		}
		table = append(table, row)
	}

	return table
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func countOutOfBand(months []MonthlyAggregate) int {
	n := 0
	for _, m := range months {
		if m.OutOfBand {
			n++
		}
	}
	return n
}
