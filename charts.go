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
	"encoding/base64"
	"fmt"
	"time"

	charts "github.com/vicanso/go-charts/v2"
)

// ChartGenerator handles chart generation
type ChartGenerator struct {
	theme string
}

// NewChartGenerator creates a new chart generator
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{
		theme: "dark", // Match our HTML report dark theme
	}
}

// GenerateMonthlyChart creates a bar chart of monthly consumption, one
// series per company, over the unified month axis.
func (cg *ChartGenerator) GenerateMonthlyChart(result *AnalysisResult) (string, error) {
	if len(result.Monthly) == 0 {
		return "", fmt.Errorf("no monthly data available")
	}

	months := make([]time.Time, 0, len(result.Monthly))
	labels := make([]string, 0, len(result.Monthly))
	for _, m := range result.Monthly {
		months = append(months, m.Month)
		labels = append(labels, m.Month.Format("Jan 2006"))
	}

	// One series per company, zero-filled over the shared month axis
	perCompany := make(map[string]map[time.Time]float64)
	for _, row := range result.CompanyMonthly {
		if perCompany[row.Company] == nil {
			perCompany[row.Company] = make(map[time.Time]float64)
		}
		perCompany[row.Company][row.Month] = row.ConsumptionMWm
	}

	values := [][]float64{}
	legendLabels := []string{}
	for _, company := range result.Companies {
		series, ok := perCompany[company]
		if !ok {
			continue
		}
		row := make([]float64, len(months))
		for i, month := range months {
			row[i] = series[month]
		}
		values = append(values, row)
		legendLabels = append(legendLabels, company)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("no company series available")
	}

	p, err := charts.BarRender(
		values,
		charts.TitleTextOptionFunc("Monthly Consumption (MWm)"),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legendLabels, charts.PositionRight),
		charts.ThemeOptionFunc(cg.getTheme()),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render monthly chart: %w", err)
	}

	// Convert to base64 for embedding in HTML
	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// GenerateBandChart creates a line chart of the whole-portfolio monthly
// totals against the flexibility band's mean and limits.
func (cg *ChartGenerator) GenerateBandChart(result *AnalysisResult) (string, error) {
	if len(result.Monthly) == 0 {
		return "", fmt.Errorf("no monthly data available")
	}

	var labels []string
	var totals []float64
	for _, m := range result.Monthly {
		labels = append(labels, m.Month.Format("Jan 2006"))
		totals = append(totals, m.ConsumptionMWm)
	}

	band := result.Band
	center := make([]float64, len(totals))
	upper := make([]float64, len(totals))
	lower := make([]float64, len(totals))
	for i := range totals {
		center[i] = band.Center
		upper[i] = band.Upper
		lower[i] = band.Lower
	}

	values := [][]float64{totals, center, upper, lower}
	legendLabels := []string{
		"Consumption (MWm)",
		fmt.Sprintf("Mean: %.2f", band.Center),
		fmt.Sprintf("Upper limit (+%.0f%%): %.2f", result.FlexibilityPercent, band.Upper),
		fmt.Sprintf("Lower limit (-%.0f%%): %.2f", result.FlexibilityPercent, band.Lower),
	}

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc("Flexibility Band"),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legendLabels, charts.PositionRight),
		charts.ThemeOptionFunc(cg.getTheme()),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render band chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// getTheme returns the chart theme name
func (cg *ChartGenerator) getTheme() string {
	return cg.theme
}
