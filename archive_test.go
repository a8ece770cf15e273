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
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeGzipArchive(t *testing.T, frame splitFrame) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "consumption_2023.json.gz")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	gz := gzip.NewWriter(file)
	require.NoError(t, json.NewEncoder(gz).Encode(frame))
	require.NoError(t, gz.Close())

	return path
}

func archiveFrame() splitFrame {
	return splitFrame{
		Columns: []string{colCompany, colCity, colState, colSubmarket, colUnitCode, colCNPJ, colMonth, "CONSUMO_TOTAL_MWH"},
		Data: [][]interface{}{
			{"ACME ENERGIA", "SAO PAULO", "SP", "SUDESTE", "SPABC01", "12345678000199", "202301", 744.0},
			{"OUTRA SA", "RECIFE", "PE", "NORDESTE", "PEXYZ01", "98765432000155", "202301", 372.0},
		},
	}
}

func TestArchiveReader_GzipSplitJSON(t *testing.T) {
	path := writeGzipArchive(t, archiveFrame())
	reader := NewArchiveReader(NewLogger(false))

	records, dropped, err := reader.Read(path, Filter{})

	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	require.Len(t, records, 2)
	assert.Equal(t, "ACME ENERGIA", records[0].Company)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), records[0].ReferenceMonth)
	require.NotNil(t, records[0].ConsumptionTotal)
	assert.InDelta(t, 744, *records[0].ConsumptionTotal, 0.001)
}

func TestArchiveReader_PlainJSONFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consumption_2023.json")
	data, err := json.Marshal(archiveFrame())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	reader := NewArchiveReader(NewLogger(false))
	records, _, err := reader.Read(path, Filter{})

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestArchiveReader_CompanyFilter(t *testing.T) {
	path := writeGzipArchive(t, archiveFrame())
	reader := NewArchiveReader(NewLogger(false))

	records, _, err := reader.Read(path, Filter{Company: "OUTRA SA"})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "OUTRA SA", records[0].Company)
}

func TestArchiveReader_MissingFileIsSourceError(t *testing.T) {
	reader := NewArchiveReader(NewLogger(false))

	_, _, err := reader.Read(filepath.Join(t.TempDir(), "nope.json.gz"), Filter{})

	require.Error(t, err)
	var srcErr *SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestArchiveReader_CorruptArchiveIsSourceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	reader := NewArchiveReader(NewLogger(false))
	_, _, err := reader.Read(path, Filter{})

	require.Error(t, err)
	var srcErr *SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestArchiveReader_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consumption_2022.xlsx")

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]interface{}{
		{colCompany, colCity, colState, colSubmarket, colUnitCode, colCNPJ, colMonth, "CONSUMO_TOTAL_MWH"},
		{"ACME ENERGIA", "SAO PAULO", "SP", "SUDESTE", "SPABC01", "12345678000199", "202201", "744,5"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	reader := NewArchiveReader(NewLogger(false))
	records, dropped, err := reader.Read(path, Filter{})

	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), records[0].ReferenceMonth)
	require.NotNil(t, records[0].ConsumptionTotal)
	assert.InDelta(t, 744.5, *records[0].ConsumptionTotal, 0.001)
}
