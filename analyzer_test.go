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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlySeries(values ...float64) []MonthlyAggregate {
	months := make([]MonthlyAggregate, len(values))
	for i, v := range values {
		months[i] = MonthlyAggregate{
			Month:          time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			ConsumptionMWm: v,
		}
	}
	return months
}

func TestNewBand_Invariants(t *testing.T) {
	band := NewBand(200, 30)

	assert.InDelta(t, 200, band.Center, 1e-9)
	assert.InDelta(t, 60, band.HalfWidth, 1e-9)
	assert.InDelta(t, 140, band.Lower, 1e-9)
	assert.InDelta(t, 260, band.Upper, 1e-9)

	assert.LessOrEqual(t, band.Lower, band.Center)
	assert.LessOrEqual(t, band.Center, band.Upper)
	assert.InDelta(t, 2*band.Center*30/100, band.Upper-band.Lower, 1e-9)

	assert.True(t, band.Contains(band.Lower))
	assert.True(t, band.Contains(band.Upper))
	assert.False(t, band.Contains(band.Lower-0.01))
	assert.False(t, band.Contains(band.Upper+0.01))
}

func TestClassifyFlexibility_TwoPassRecentering(t *testing.T) {
	// Four typical months and one outlier. The global mean (160) is pulled
	// toward the outlier; the recentered band settles on the typical level.
	months := monthlySeries(100, 100, 100, 100, 400)

	classified, band, degenerate := ClassifyFlexibility(months, 40)

	require.False(t, degenerate)
	assert.InDelta(t, 100, band.Center, 1e-9)
	assert.InDelta(t, 60, band.Lower, 1e-9)
	assert.InDelta(t, 140, band.Upper, 1e-9)

	require.Len(t, classified, 5)
	for i := 0; i < 4; i++ {
		assert.False(t, classified[i].OutOfBand, "month %d should be in band", i+1)
	}
	assert.True(t, classified[4].OutOfBand)
}

func TestClassifyFlexibility_DegenerateBand(t *testing.T) {
	// With a tight band, the bimodal series leaves no month inside pass 1:
	// the global mean (160) sits between both levels.
	months := monthlySeries(100, 100, 100, 100, 400)

	classified, band, degenerate := ClassifyFlexibility(months, 20)

	require.True(t, degenerate)
	// Pass-1 band is retained for display
	assert.InDelta(t, 160, band.Center, 1e-9)
	assert.InDelta(t, 128, band.Lower, 1e-9)
	assert.InDelta(t, 192, band.Upper, 1e-9)
	for _, m := range classified {
		assert.True(t, m.OutOfBand)
	}
}

func TestClassifyFlexibility_StableWhenAllInBand(t *testing.T) {
	months := monthlySeries(98, 100, 102)

	classified, band, degenerate := ClassifyFlexibility(months, 30)

	require.False(t, degenerate)
	assert.InDelta(t, 100, band.Center, 1e-9)
	for _, m := range classified {
		assert.False(t, m.OutOfBand)
	}
}

func TestClassifyFlexibility_SecondApplicationIsFixedPoint(t *testing.T) {
	months := monthlySeries(100, 100, 100, 100, 400)

	classified, band, _ := ClassifyFlexibility(months, 40)

	// Re-tagging the classified output against its own band changes nothing
	again := make([]MonthlyAggregate, len(classified))
	copy(again, classified)
	tagOutOfBand(again, band)

	assert.Equal(t, classified, again)
}

func TestClassifyFlexibility_DoesNotMutateInput(t *testing.T) {
	months := monthlySeries(100, 100, 400)

	ClassifyFlexibility(months, 30)

	for _, m := range months {
		assert.False(t, m.OutOfBand)
	}
}

func TestAggregateMonthly_SumsAndSorts(t *testing.T) {
	v1, v2, v3 := 10.0, 20.0, 5.0
	records := []DerivedRecord{
		{CanonicalRecord: CanonicalRecord{Company: "A", ReferenceMonth: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}, ConsumptionMWm: &v1},
		{CanonicalRecord: CanonicalRecord{Company: "B", ReferenceMonth: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}, ConsumptionMWm: &v2},
		{CanonicalRecord: CanonicalRecord{Company: "A", ReferenceMonth: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, ConsumptionMWm: &v3},
		{CanonicalRecord: CanonicalRecord{Company: "C", ReferenceMonth: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}, // nil metric
	}

	months := AggregateMonthly(records)

	require.Len(t, months, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), months[0].Month)
	assert.InDelta(t, 5, months[0].ConsumptionMWm, 1e-9)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), months[1].Month)
	assert.InDelta(t, 30, months[1].ConsumptionMWm, 1e-9)
}

func TestAggregateMonthlyByCompany_JoinsBandFlags(t *testing.T) {
	v1, v2 := 10.0, 20.0
	records := []DerivedRecord{
		{CanonicalRecord: CanonicalRecord{Company: "B", ReferenceMonth: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, ConsumptionMWm: &v2},
		{CanonicalRecord: CanonicalRecord{Company: "A", ReferenceMonth: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, ConsumptionMWm: &v1},
	}
	classified := []MonthlyAggregate{
		{Month: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ConsumptionMWm: 30, OutOfBand: true},
	}

	rows := AggregateMonthlyByCompany(records, classified)

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Company)
	assert.Equal(t, "B", rows[1].Company)
	assert.True(t, rows[0].OutOfBand)
	assert.True(t, rows[1].OutOfBand)
}

func TestYearlyGrowthTable(t *testing.T) {
	rows := []CompanyMonthly{
		{Company: "A", Month: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), ConsumptionMWm: 100},
		{Company: "A", Month: time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC), ConsumptionMWm: 100},
		{Company: "A", Month: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), ConsumptionMWm: 110},
		{Company: "A", Month: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), ConsumptionMWm: 110},
		{Company: "A", Month: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ConsumptionMWm: 99},
	}

	table := YearlyGrowthTable(rows)

	require.Len(t, table, 3)

	assert.Equal(t, 2022, table[0].Year)
	assert.InDelta(t, 100, table[0].MeanMWm, 1e-9)
	assert.Nil(t, table[0].ChangePercent)

	assert.Equal(t, 2023, table[1].Year)
	assert.InDelta(t, 110, table[1].MeanMWm, 1e-9)
	require.NotNil(t, table[1].ChangePercent)
	assert.InDelta(t, 10, *table[1].ChangePercent, 1e-9)

	assert.Equal(t, 2024, table[2].Year)
	require.NotNil(t, table[2].ChangePercent)
	assert.InDelta(t, -10, *table[2].ChangePercent, 1e-9)
}

func TestAnalyze_EmptyInputIsDataError(t *testing.T) {
	analyzer := NewAnalyzer(&Config{FlexibilityPercent: 30}, NewLogger(false))

	_, err := analyzer.Analyze(nil, []string{"ACME"}, time.Time{}, time.Time{}, 30)

	require.Error(t, err)
	var dataErr *DataError
	assert.ErrorAs(t, err, &dataErr)
}

func TestAnalyze_MetricUnavailable(t *testing.T) {
	analyzer := NewAnalyzer(&Config{FlexibilityPercent: 30}, NewLogger(false))

	records := []CanonicalRecord{
		{Company: "ACME", Submarket: "SUDESTE", UnitCode: "U1", ReferenceMonth: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	result, err := analyzer.Analyze(records, []string{"ACME"}, time.Time{}, time.Time{}, 30)

	require.NoError(t, err)
	assert.Empty(t, result.Monthly)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "consumption metric unavailable")
	// Descriptive summaries still work without the metric
	require.Len(t, result.CompanySummaries, 1)
	assert.Equal(t, "ACME", result.CompanySummaries[0].Company)
}

func TestAnalyze_FullPipeline(t *testing.T) {
	analyzer := NewAnalyzer(&Config{FlexibilityPercent: 30}, NewLogger(false))

	var records []CanonicalRecord
	for m := time.Month(1); m <= 12; m++ {
		hours := float64(hoursInMonth(time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC)))
		records = append(records, canonical("ACME", 2024, m, 100*hours))
	}

	result, err := analyzer.Analyze(records, []string{"ACME"}, time.Time{}, time.Time{}, 30)

	require.NoError(t, err)
	require.Len(t, result.Monthly, 12)
	assert.InDelta(t, 100, result.Band.Center, 1e-6)
	assert.Equal(t, 0, countOutOfBand(result.Monthly))
	require.Len(t, result.YearlyGrowth, 1)
	assert.Equal(t, 2024, result.YearlyGrowth[0].Year)
	assert.Len(t, result.CompanyMonthly, 12)
}
