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
	"time"
)

// RawBatch is one source's worth of unparsed records plus the source's
// stable column order. The column order matters: the consumption-column
// fallback heuristic breaks ties by first match in this order.
type RawBatch struct {
	Source  string
	Columns []string
	Records []map[string]interface{}
}

// CanonicalRecord is the normalized form of one raw consumption record.
// ReferenceMonth is always the first day of the month at UTC midnight.
// Records are never mutated after normalization.
type CanonicalRecord struct {
	Company          string     `json:"company"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	Submarket        string     `json:"submarket"`
	UnitCode         string     `json:"unitCode"`
	CNPJ             string     `json:"cnpj"` // 14-digit, zero-padded
	ReferenceMonth   time.Time  `json:"referenceMonth"`
	ConsumptionTotal *float64   `json:"consumptionTotal"` // MWh, nil when the source has no consumption column
	Capacity         *float64   `json:"capacity"`         // MW, nil when absent
}

// DerivedRecord extends a CanonicalRecord with the calendar-derived power
// metric. HoursInMonth is fully determined by ReferenceMonth.
type DerivedRecord struct {
	CanonicalRecord
	HoursInMonth   int      `json:"hoursInMonth"`
	ConsumptionMWm *float64 `json:"consumptionMWm"`
}

// MonthlyAggregate is one month of whole-portfolio consumption with its
// flexibility-band classification.
type MonthlyAggregate struct {
	Month          time.Time `json:"month"`
	ConsumptionMWm float64   `json:"consumptionMWm"`
	OutOfBand      bool      `json:"outOfBand"`
}

// CompanyMonthly is one month of one company's consumption, carrying the
// portfolio-level out-of-band flag for the stacked chart.
type CompanyMonthly struct {
	Company        string    `json:"company"`
	Month          time.Time `json:"month"`
	ConsumptionMWm float64   `json:"consumptionMWm"`
	OutOfBand      bool      `json:"outOfBand"`
}

// FlexibilityBand is the allowed deviation around the recentered mean.
type FlexibilityBand struct {
	Center    float64 `json:"center"`
	HalfWidth float64 `json:"halfWidth"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// Contains reports whether a monthly value falls inside the band.
func (b FlexibilityBand) Contains(value float64) bool {
	return value >= b.Lower && value <= b.Upper
}

// YearlyMean is one row of the year-over-year growth table. ChangePercent
// is nil for the first year in the series.
type YearlyMean struct {
	Year          int      `json:"year"`
	MeanMWm       float64  `json:"meanMWm"`
	ChangePercent *float64 `json:"changePercent"`
}

// CompanySummary is one trailing-12-month report row per selected company.
type CompanySummary struct {
	Company        string `json:"company"`
	Units          int    `json:"units"`
	MixedSubmarket bool   `json:"mixedSubmarket"`
	DecisionCity   string `json:"decisionCity"`
	DecisionState  string `json:"decisionState"`
	DecisionCNPJ   string `json:"decisionCnpj"` // formatted for display
}

// SubmarketSummary aggregates the trailing window per submarket.
type SubmarketSummary struct {
	Submarket      string  `json:"submarket"`
	Units          int     `json:"units"`
	MonthlyMeanMWm float64 `json:"monthlyMeanMWm"`
	ShareOfTotal   float64 `json:"shareOfTotal"` // percent, 0 when the total is 0
}

// UnitSummary reports one consumer unit's most recently known attributes
// plus its trailing-window mean consumption.
type UnitSummary struct {
	UnitCode  string   `json:"unitCode"`
	CNPJ      string   `json:"cnpj"` // formatted for display
	City      string   `json:"city"`
	State     string   `json:"state"`
	Submarket string   `json:"submarket"`
	Capacity  *float64 `json:"capacity"`
	MeanMWm   *float64 `json:"meanMWm"`
}

// SourceStats records what one source contributed to a run.
type SourceStats struct {
	Source  string `json:"source"`
	Records int    `json:"records"`
	Dropped int    `json:"dropped"`
	Warning string `json:"warning,omitempty"`
}

// DatasetInfo describes the reachable record base without loading it.
type DatasetInfo struct {
	OldestMonth  *time.Time `json:"oldestMonth"`
	NewestMonth  *time.Time `json:"newestMonth"`
	TotalRecords int        `json:"totalRecords"`
}

// AnalysisResult holds the complete output of one analysis run.
type AnalysisResult struct {
	GeneratedAt        time.Time          `json:"generatedAt"`
	Companies          []string           `json:"companies"`
	PeriodStart        time.Time          `json:"periodStart"`
	PeriodEnd          time.Time          `json:"periodEnd"`
	FlexibilityPercent float64            `json:"flexibilityPercent"`
	Band               FlexibilityBand    `json:"band"`
	Monthly            []MonthlyAggregate `json:"monthly"`
	CompanyMonthly     []CompanyMonthly   `json:"companyMonthly"`
	YearlyGrowth       []YearlyMean       `json:"yearlyGrowth"`
	CompanySummaries   []CompanySummary   `json:"companySummaries"`
	SubmarketSummaries []SubmarketSummary `json:"submarketSummaries"`
	UnitSummaries      []UnitSummary      `json:"unitSummaries"`
	SourceStats        []SourceStats      `json:"sourceStats"`
	Warnings           []string           `json:"warnings"`
	DatasetInfo        *DatasetInfo       `json:"datasetInfo,omitempty"`

	// Charts (base64 encoded PNG images)
	MonthlyChart string `json:"monthlyChart,omitempty"`
	BandChart    string `json:"bandChart,omitempty"`
}

// DatastoreResponse is the CKAN datastore_search response envelope.
type DatastoreResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Total  int `json:"total"`
		Fields []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"fields"`
		Records []map[string]interface{} `json:"records"`
	} `json:"result"`
}
