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
	"html"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// HTMLReporter generates HTML reports from analysis results
type HTMLReporter struct {
	logger *Logger
}

// NewHTMLReporter creates a new HTML report generator
func NewHTMLReporter(logger *Logger) *HTMLReporter {
	return &HTMLReporter{
		logger: logger,
	}
}

// GenerateHTMLReport generates an HTML report
func (r *HTMLReporter) GenerateHTMLReport(result *AnalysisResult, outputPath string) error {
	r.logger.Info("Generating HTML report")

	var writer io.Writer
	if outputPath == "" {
		writer = os.Stdout
	} else {
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create HTML report file: %w", err)
		}
		defer file.Close()
		writer = file
	}

	// Generate HTML report content
	r.writeHTMLHeader(writer, result)
	r.writeHTMLSummary(writer, result)
	r.writeHTMLCharts(writer, result)
	r.writeHTMLMonthlySeries(writer, result)
	r.writeHTMLYearlyGrowth(writer, result)
	r.writeHTMLSummaryTables(writer, result)
	r.writeHTMLWarnings(writer, result)
	r.writeHTMLFooter(writer)

	if outputPath != "" {
		r.logger.Info("HTML report saved", "path", outputPath)
	}

	return nil
}

func (r *HTMLReporter) writeHTMLHeader(w io.Writer, result *AnalysisResult) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Regulated Market Consumption Analysis</title>
    <style>
        :root {
            --primary-color: #2EC4B6;
            --warning-color: #FFB800;
            --danger-color: #E63946;
            --success-color: #2EC4B6;
            --bg-color: #0B1120;
            --card-bg: #18223A;
            --text-color: #E6EAF2;
            --text-muted: #97A3C0;
            --border-color: #2B3857;
        }

        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            background: var(--bg-color);
            color: var(--text-color);
            line-height: 1.6;
            padding: 20px;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
        }

        header {
            background: linear-gradient(135deg, #1D3557, var(--primary-color));
            padding: 40px;
            border-radius: 16px;
            margin-bottom: 30px;
        }

        h1 {
            font-size: 2.5em;
            margin-bottom: 10px;
            font-weight: 700;
        }

        .subtitle {
            color: rgba(255, 255, 255, 0.9);
            font-size: 1.1em;
        }

        .card {
            background: var(--card-bg);
            border-radius: 12px;
            padding: 30px;
            margin-bottom: 30px;
            border: 1px solid var(--border-color);
        }

        h2 {
            color: var(--primary-color);
            margin-bottom: 20px;
            font-size: 1.8em;
            border-bottom: 2px solid var(--border-color);
            padding-bottom: 10px;
        }

        h3 {
            color: var(--text-color);
            margin: 25px 0 15px 0;
            font-size: 1.4em;
        }

        table {
            width: 100%%;
            border-collapse: collapse;
            margin: 20px 0;
        }

        th, td {
            padding: 12px;
            text-align: left;
            border-bottom: 1px solid var(--border-color);
        }

        th {
            background: rgba(46, 196, 182, 0.1);
            color: var(--primary-color);
            font-weight: 600;
        }

        tr.out-of-band {
            background: rgba(230, 57, 70, 0.1);
        }

        .metric-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin: 20px 0;
        }

        .metric-card {
            background: rgba(46, 196, 182, 0.05);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 20px;
            text-align: center;
        }

        .metric-value {
            font-size: 2em;
            font-weight: bold;
            color: var(--primary-color);
            margin: 10px 0;
        }

        .metric-label {
            color: var(--text-muted);
            font-size: 0.9em;
        }

        .badge {
            display: inline-block;
            padding: 6px 12px;
            border-radius: 20px;
            font-size: 0.85em;
            font-weight: 600;
            margin: 5px;
        }

        .badge-success {
            background: var(--success-color);
            color: #0B1120;
        }

        .badge-danger {
            background: var(--danger-color);
            color: white;
        }

        .warning-box {
            border-left: 4px solid var(--warning-color);
            background: rgba(255, 184, 0, 0.05);
            padding: 15px 20px;
            margin: 10px 0;
            border-radius: 4px;
        }

        .chart {
            width: 100%%;
            border-radius: 8px;
            margin: 10px 0;
        }

        footer {
            text-align: center;
            padding: 30px;
            color: var(--text-muted);
            border-top: 1px solid var(--border-color);
            margin-top: 40px;
        }

        @media print {
            body {
                background: white;
                color: black;
            }

            .card {
                border: 1px solid #ddd;
                break-inside: avoid;
            }
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>⚡ Regulated Market Consumption Analysis</h1>
            <div class="subtitle">Generated: %s</div>
            <div class="subtitle">Companies: %s</div>
            <div class="subtitle" style="opacity: 0.7; font-size: 0.9em; margin-top: 10px;">flexband %s</div>
        </header>
`,
		result.GeneratedAt.Format("Monday, 2 January 2006 at 15:04"),
		html.EscapeString(strings.Join(result.Companies, ", ")),
		GetVersion(),
	)
}

func (r *HTMLReporter) writeHTMLSummary(w io.Writer, result *AnalysisResult) {
	outOfBand := countOutOfBand(result.Monthly)
	bandStatus := "success"
	bandLabel := "Within flexibility"
	if outOfBand > 0 {
		bandStatus = "danger"
		bandLabel = fmt.Sprintf("%d months flagged", outOfBand)
	}

	records := "-"
	if result.DatasetInfo != nil {
		records = humanize.Comma(int64(result.DatasetInfo.TotalRecords))
	}

	fmt.Fprintf(w, `
        <div class="card">
            <h2>📊 Summary</h2>

            <div class="metric-grid">
                <div class="metric-card">
                    <div class="metric-label">Recentered Mean</div>
                    <div class="metric-value">%.2f MWm</div>
                    <span class="badge badge-%s">%s</span>
                </div>
                <div class="metric-card">
                    <div class="metric-label">Flexibility Band</div>
                    <div class="metric-value">±%.0f%%</div>
                    <span class="badge badge-success">%.2f – %.2f MWm</span>
                </div>
                <div class="metric-card">
                    <div class="metric-label">Months Analyzed</div>
                    <div class="metric-value">%d</div>
                </div>
                <div class="metric-card">
                    <div class="metric-label">Dataset Records</div>
                    <div class="metric-value">%s</div>
                </div>
            </div>
        </div>
`,
		result.Band.Center,
		bandStatus,
		bandLabel,
		result.FlexibilityPercent,
		result.Band.Lower,
		result.Band.Upper,
		len(result.Monthly),
		records,
	)
}

func (r *HTMLReporter) writeHTMLCharts(w io.Writer, result *AnalysisResult) {
	if result.MonthlyChart == "" && result.BandChart == "" {
		return
	}

	fmt.Fprintf(w, `
        <div class="card">
            <h2>📈 Charts</h2>
`)
	if result.MonthlyChart != "" {
		fmt.Fprintf(w, `            <h3>Monthly Consumption by Company</h3>
            <img class="chart" src="data:image/png;base64,%s" alt="Monthly consumption chart">
`, result.MonthlyChart)
	}
	if result.BandChart != "" {
		fmt.Fprintf(w, `            <h3>Portfolio Series and Flexibility Band</h3>
            <img class="chart" src="data:image/png;base64,%s" alt="Flexibility band chart">
`, result.BandChart)
	}
	fmt.Fprintf(w, `        </div>
`)
}

func (r *HTMLReporter) writeHTMLMonthlySeries(w io.Writer, result *AnalysisResult) {
	if len(result.Monthly) == 0 {
		return
	}

	fmt.Fprintf(w, `
        <div class="card">
            <h2>📅 Monthly Consumption</h2>
            <table>
                <thead>
                    <tr>
                        <th>Month</th>
                        <th>MWm</th>
                        <th>Band</th>
                    </tr>
                </thead>
                <tbody>
`)
	for _, m := range result.Monthly {
		rowClass := ""
		marker := "✅ in band"
		if m.OutOfBand {
			rowClass = ` class="out-of-band"`
			if m.ConsumptionMWm > result.Band.Upper {
				marker = "🔺 above band"
			} else {
				marker = "🔻 below band"
			}
		}
		fmt.Fprintf(w, `                    <tr%s>
                        <td>%s</td>
                        <td>%.2f</td>
                        <td>%s</td>
                    </tr>
`, rowClass, m.Month.Format("2006-01"), m.ConsumptionMWm, marker)
	}
	fmt.Fprintf(w, `                </tbody>
            </table>
        </div>
`)
}

func (r *HTMLReporter) writeHTMLYearlyGrowth(w io.Writer, result *AnalysisResult) {
	if len(result.YearlyGrowth) == 0 {
		return
	}

	fmt.Fprintf(w, `
        <div class="card">
            <h2>📈 Yearly Growth</h2>
            <table>
                <thead>
                    <tr>
                        <th>Year</th>
                        <th>Mean MWm</th>
                        <th>Change</th>
                    </tr>
                </thead>
                <tbody>
`)
	for _, row := range result.YearlyGrowth {
		change := "-"
		if row.ChangePercent != nil {
			change = fmt.Sprintf("%+.1f%%", *row.ChangePercent)
		}
		fmt.Fprintf(w, `                    <tr>
                        <td>%d</td>
                        <td>%.2f</td>
                        <td>%s</td>
                    </tr>
`, row.Year, row.MeanMWm, change)
	}
	fmt.Fprintf(w, `                </tbody>
            </table>
        </div>
`)
}

func (r *HTMLReporter) writeHTMLSummaryTables(w io.Writer, result *AnalysisResult) {
	if len(result.CompanySummaries) == 0 && len(result.SubmarketSummaries) == 0 && len(result.UnitSummaries) == 0 {
		return
	}

	fmt.Fprintf(w, `
        <div class="card">
            <h2>🏢 Trailing 12 Months</h2>
`)

	if len(result.CompanySummaries) > 0 {
		fmt.Fprintf(w, `            <h3>Companies</h3>
            <table>
                <thead>
                    <tr>
                        <th>Company</th>
                        <th>Units</th>
                        <th>Submarkets</th>
                        <th>Decision Center</th>
                        <th>CNPJ</th>
                    </tr>
                </thead>
                <tbody>
`)
		for _, c := range result.CompanySummaries {
			submarkets := "single"
			if c.MixedSubmarket {
				submarkets = "⚠️ mixed"
			}
			center := strings.TrimSuffix(fmt.Sprintf("%s/%s", c.DecisionCity, c.DecisionState), "/")
			fmt.Fprintf(w, `                    <tr>
                        <td>%s</td>
                        <td>%d</td>
                        <td>%s</td>
                        <td>%s</td>
                        <td>%s</td>
                    </tr>
`,
				html.EscapeString(c.Company), c.Units, submarkets,
				html.EscapeString(center), c.DecisionCNPJ)
		}
		fmt.Fprintf(w, `                </tbody>
            </table>
`)
	}

	if len(result.SubmarketSummaries) > 0 {
		fmt.Fprintf(w, `            <h3>Submarkets</h3>
            <table>
                <thead>
                    <tr>
                        <th>Submarket</th>
                        <th>Units</th>
                        <th>Monthly Mean MWm</th>
                        <th>Share</th>
                    </tr>
                </thead>
                <tbody>
`)
		for _, s := range result.SubmarketSummaries {
			fmt.Fprintf(w, `                    <tr>
                        <td>%s</td>
                        <td>%d</td>
                        <td>%.2f</td>
                        <td>%.1f%%</td>
                    </tr>
`, html.EscapeString(s.Submarket), s.Units, s.MonthlyMeanMWm, s.ShareOfTotal)
		}
		fmt.Fprintf(w, `                </tbody>
            </table>
`)
	}

	if len(result.UnitSummaries) > 0 {
		fmt.Fprintf(w, `            <h3>Consumer Units</h3>
            <table>
                <thead>
                    <tr>
                        <th>Unit</th>
                        <th>CNPJ</th>
                        <th>City</th>
                        <th>State</th>
                        <th>Submarket</th>
                        <th>Capacity MW</th>
                        <th>Mean MWm</th>
                    </tr>
                </thead>
                <tbody>
`)
		for _, u := range result.UnitSummaries {
			capacity := "-"
			if u.Capacity != nil {
				capacity = fmt.Sprintf("%.2f", *u.Capacity)
			}
			mean := "-"
			if u.MeanMWm != nil {
				mean = fmt.Sprintf("%.3f", *u.MeanMWm)
			}
			fmt.Fprintf(w, `                    <tr>
                        <td>%s</td>
                        <td>%s</td>
                        <td>%s</td>
                        <td>%s</td>
                        <td>%s</td>
                        <td>%s</td>
                        <td>%s</td>
                    </tr>
`,
				html.EscapeString(u.UnitCode), u.CNPJ, html.EscapeString(u.City),
				html.EscapeString(u.State), html.EscapeString(u.Submarket),
				capacity, mean)
		}
		fmt.Fprintf(w, `                </tbody>
            </table>
`)
	}

	fmt.Fprintf(w, `        </div>
`)
}

func (r *HTMLReporter) writeHTMLWarnings(w io.Writer, result *AnalysisResult) {
	if len(result.Warnings) == 0 {
		return
	}

	fmt.Fprintf(w, `
        <div class="card">
            <h2>⚠️ Warnings</h2>
`)
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, `            <div class="warning-box">%s</div>
`, html.EscapeString(warning))
	}
	fmt.Fprintf(w, `        </div>
`)
}

func (r *HTMLReporter) writeHTMLFooter(w io.Writer) {
	fmt.Fprintf(w, `
        <footer>
            <p>Monthly MWm values divide metered MWh by the hours in each calendar month.</p>
            <p>Generated by <a href="https://github.com/flexband/flexband" style="color: var(--primary-color)">flexband</a></p>
            <p style="margin-top: 10px; font-size: 0.85em;">This is an unofficial third-party application built on the CCEE open data portal. It is not affiliated with, endorsed by, or connected to CCEE.</p>
        </footer>
    </div>
</body>
</html>
`)
}
