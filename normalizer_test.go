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

func rawRecord(company, month string, consumption float64) map[string]interface{} {
	return map[string]interface{}{
		colCompany:          company,
		colCity:             "SAO PAULO",
		colState:            "SP",
		colSubmarket:        "SUDESTE",
		colUnitCode:         "SPABC01",
		colCNPJ:             "12345678000199",
		colMonth:            month,
		"CONSUMO_TOTAL_MWH": consumption,
	}
}

var testColumns = []string{
	colCompany, colCity, colState, colSubmarket, colUnitCode,
	colCNPJ, colMonth, "CONSUMO_TOTAL_MWH",
}

func TestNormalizeBatch_CompactMonth(t *testing.T) {
	batch := RawBatch{
		Source:  "test",
		Columns: testColumns,
		Records: []map[string]interface{}{
			rawRecord("ACME ENERGIA", "202401", 7440),
		},
	}

	records, dropped := NormalizeBatch(batch, Filter{})

	require.Len(t, records, 1)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, "ACME ENERGIA", records[0].Company)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records[0].ReferenceMonth)
	require.NotNil(t, records[0].ConsumptionTotal)
	assert.InDelta(t, 7440, *records[0].ConsumptionTotal, 0.001)
}

func TestNormalizeBatch_DropsUnparseableMonths(t *testing.T) {
	batch := RawBatch{
		Source:  "test",
		Columns: testColumns,
		Records: []map[string]interface{}{
			rawRecord("ACME ENERGIA", "202401", 100),
			rawRecord("ACME ENERGIA", "202413", 100), // month 13
			rawRecord("ACME ENERGIA", "not-a-month", 100),
		},
	}

	records, dropped := NormalizeBatch(batch, Filter{})

	assert.Len(t, records, 1)
	assert.Equal(t, 2, dropped)
}

func TestNormalizeBatch_MonthEncodings(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  time.Time
	}{
		{"compact string", "202403", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"compact number", float64(202403), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"iso date", "2024-03-15", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"iso timestamp", "2024-03-01T00:00:00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"day-first date", "15/03/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"epoch millis", float64(1709251200000), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := rawRecord("ACME ENERGIA", "", 100)
			rec[colMonth] = tc.value

			batch := RawBatch{Source: "test", Columns: testColumns, Records: []map[string]interface{}{rec}}
			records, dropped := NormalizeBatch(batch, Filter{})

			require.Len(t, records, 1)
			assert.Equal(t, 0, dropped)
			assert.Equal(t, tc.want, records[0].ReferenceMonth)
		})
	}
}

func TestNormalizeBatch_ExactCompanyFilter(t *testing.T) {
	batch := RawBatch{
		Source:  "test",
		Columns: testColumns,
		Records: []map[string]interface{}{
			rawRecord("ACME ENERGIA", "202401", 100),
			rawRecord("ACME ENERGIA LTDA", "202401", 100), // approximate over-match
		},
	}

	records, dropped := NormalizeBatch(batch, Filter{Company: "ACME ENERGIA"})

	require.Len(t, records, 1)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, "ACME ENERGIA", records[0].Company)
}

func TestNormalizeBatch_InclusiveDateBounds(t *testing.T) {
	batch := RawBatch{
		Source:  "test",
		Columns: testColumns,
		Records: []map[string]interface{}{
			rawRecord("ACME ENERGIA", "202312", 100),
			rawRecord("ACME ENERGIA", "202401", 100),
			rawRecord("ACME ENERGIA", "202406", 100),
			rawRecord("ACME ENERGIA", "202407", 100),
		},
	}

	filter := Filter{
		DateFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	records, _ := NormalizeBatch(batch, filter)

	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records[0].ReferenceMonth)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), records[1].ReferenceMonth)
}

func TestNormalizeBatch_MissingConsumptionColumn(t *testing.T) {
	rec := rawRecord("ACME ENERGIA", "202401", 100)
	delete(rec, "CONSUMO_TOTAL_MWH")

	batch := RawBatch{
		Source:  "test",
		Columns: testColumns[:len(testColumns)-1],
		Records: []map[string]interface{}{rec},
	}

	records, dropped := NormalizeBatch(batch, Filter{})

	require.Len(t, records, 1)
	assert.Equal(t, 0, dropped)
	assert.Nil(t, records[0].ConsumptionTotal)
}

func TestNormalizeBatch_CommaDecimal(t *testing.T) {
	rec := rawRecord("ACME ENERGIA", "202401", 0)
	rec["CONSUMO_TOTAL_MWH"] = "1234,56"

	batch := RawBatch{Source: "test", Columns: testColumns, Records: []map[string]interface{}{rec}}
	records, _ := NormalizeBatch(batch, Filter{})

	require.Len(t, records, 1)
	require.NotNil(t, records[0].ConsumptionTotal)
	assert.InDelta(t, 1234.56, *records[0].ConsumptionTotal, 0.001)
}

func TestNormalizeCNPJ(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"clean digits", "12345678000199", "12345678000199"},
		{"formatted", "12.345.678/0001-99", "12345678000199"},
		{"lost leading zeros", float64(345678000199), "00345678000199"},
		{"short string padded", "345678000199", "00345678000199"},
		{"too long", "123456780001991234", ""},
		{"empty", "", ""},
		{"nil", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeCNPJ(tc.value))
		})
	}
}

func TestFilterKey(t *testing.T) {
	open := Filter{}
	assert.Equal(t, "|open|open", open.Key())

	bounded := Filter{
		Company:  "ACME ENERGIA",
		DateFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "ACME ENERGIA|2023-01-01|2024-06-01", bounded.Key())
}
