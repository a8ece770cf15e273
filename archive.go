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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ArchiveReader reads one yearly archive file and normalizes its records.
// Supported formats: gzip-compressed column/data JSON (the historical
// distribution format) and XLSX with a header row. A missing or unreadable
// file is a *SourceError, absorbed upstream as a warning: one lost year of
// history must not abort the whole analysis.
type ArchiveReader struct {
	logger *Logger
}

// NewArchiveReader creates a new archive reader
func NewArchiveReader(logger *Logger) *ArchiveReader {
	return &ArchiveReader{
		logger: logger.WithComponent("archive"),
	}
}

// splitFrame is the column/data table layout used by the gzip-JSON
// archives: a columns array plus one row-array per record.
type splitFrame struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

// Read loads the archive at path and returns its canonical records plus
// the normalization drop count.
func (r *ArchiveReader) Read(path string, filter Filter) ([]CanonicalRecord, int, error) {
	batch, err := r.readBatch(path)
	if err != nil {
		return nil, 0, err
	}

	if col, heuristic, ok := ResolveConsumptionColumn(batch.Columns); ok && heuristic {
		r.logger.LogColumnFallback(batch.Source, col)
	}

	records, dropped := NormalizeBatch(batch, filter)
	r.logger.LogDataCollection(batch.Source, len(records))
	r.logger.LogDroppedRecords(batch.Source, dropped)

	// The raw batch is dead after normalization; the canonical slice is
	// all that escapes this call.
	batch.Records = nil

	return records, dropped, nil
}

func (r *ArchiveReader) readBatch(path string) (RawBatch, error) {
	if _, err := os.Stat(path); err != nil {
		return RawBatch{}, &SourceError{Source: "archive", Path: path, Err: err}
	}

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return r.readXLSX(path)
	}
	return r.readGzipJSON(path)
}

// readGzipJSON reads a gzip-compressed column/data JSON archive. Plain
// uncompressed JSON is accepted too since some archives ship unpacked.
func (r *ArchiveReader) readGzipJSON(path string) (RawBatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return RawBatch{}, &SourceError{Source: "archive", Path: path, Err: err}
	}
	defer file.Close()

	var reader io.Reader = file
	gz, err := gzip.NewReader(file)
	if err == nil {
		defer gz.Close()
		reader = gz
	} else {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return RawBatch{}, &SourceError{Source: "archive", Path: path, Err: err}
		}
	}

	var frame splitFrame
	if err := json.NewDecoder(reader).Decode(&frame); err != nil {
		return RawBatch{}, &SourceError{Source: "archive", Path: path, Err: fmt.Errorf("decode archive: %w", err)}
	}

	records := make([]map[string]interface{}, 0, len(frame.Data))
	for _, row := range frame.Data {
		rec := make(map[string]interface{}, len(frame.Columns))
		for i, col := range frame.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}

	return RawBatch{Source: path, Columns: frame.Columns, Records: records}, nil
}

// readXLSX reads the first sheet of an XLSX archive; the first row is the
// header.
func (r *ArchiveReader) readXLSX(path string) (RawBatch, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return RawBatch{}, &SourceError{Source: "archive", Path: path, Err: err}
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	rows, err := file.GetRows(sheet)
	if err != nil {
		return RawBatch{}, &SourceError{Source: "archive", Path: path, Err: err}
	}
	if len(rows) == 0 {
		return RawBatch{Source: path}, nil
	}

	columns := rows[0]
	records := make([]map[string]interface{}, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}

	return RawBatch{Source: path, Columns: columns, Records: records}, nil
}
