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
	"strconv"
	"strings"
	"time"
)

// Filter restricts normalization output. A zero DateFrom/DateTo leaves that
// bound open; an empty Company disables the company filter. Company matching
// is exact: approximate server-side filters over-match by design and the
// normalizer is where correctness is restored.
type Filter struct {
	Company  string
	DateFrom time.Time
	DateTo   time.Time
}

// matchesMonth reports whether a reference month falls within the inclusive
// filter bounds.
func (f Filter) matchesMonth(month time.Time) bool {
	if !f.DateFrom.IsZero() && month.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && month.After(f.DateTo) {
		return false
	}
	return true
}

// Key returns a stable representation of the filter for cache keys.
func (f Filter) Key() string {
	from, to := "open", "open"
	if !f.DateFrom.IsZero() {
		from = f.DateFrom.Format("2006-01-02")
	}
	if !f.DateTo.IsZero() {
		to = f.DateTo.Format("2006-01-02")
	}
	return f.Company + "|" + from + "|" + to
}

// NormalizeBatch converts a raw batch into canonical records, applying the
// filter. Records whose reference month cannot be normalized are dropped
// silently; the second return value is the drop count, reported per run so
// the partial-data tolerance stays observable. The input batch is left
// untouched and may be re-normalized under different filters.
func NormalizeBatch(batch RawBatch, filter Filter) ([]CanonicalRecord, int) {
	consumptionCol, _, _ := ResolveConsumptionColumn(batch.Columns)

	records := make([]CanonicalRecord, 0, len(batch.Records))
	dropped := 0

	for _, raw := range batch.Records {
		month, ok := parseReferenceMonth(raw[colMonth])
		if !ok {
			dropped++
			continue
		}

		company := stringField(raw, colCompany)
		if filter.Company != "" && company != filter.Company {
			continue
		}
		if !filter.matchesMonth(month) {
			continue
		}

		rec := CanonicalRecord{
			Company:        company,
			City:           stringField(raw, colCity),
			State:          stringField(raw, colState),
			Submarket:      stringField(raw, colSubmarket),
			UnitCode:       stringField(raw, colUnitCode),
			CNPJ:           normalizeCNPJ(raw[colCNPJ]),
			ReferenceMonth: month,
			Capacity:       floatField(raw, colCapacity),
		}
		if consumptionCol != "" {
			rec.ConsumptionTotal = floatField(raw, consumptionCol)
		}

		records = append(records, rec)
	}

	return records, dropped
}

// parseReferenceMonth normalizes the reference-month field to the first day
// of its calendar month at UTC midnight. Accepted shapes: ISO timestamps,
// plain dates, day-first dates, compact YYYYMM strings or numbers, and epoch
// milliseconds. Anything else fails normalization.
func parseReferenceMonth(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		return parseMonthString(strings.TrimSpace(val))
	case float64:
		return parseMonthNumber(val)
	case int:
		return parseMonthNumber(float64(val))
	case int64:
		return parseMonthNumber(float64(val))
	case time.Time:
		return firstOfMonth(val), true
	default:
		return time.Time{}, false
	}
}

func parseMonthString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	// Compact YYYYMM, the live API's encoding
	if len(s) == 6 && isDigits(s) {
		year, _ := strconv.Atoi(s[:4])
		month, _ := strconv.Atoi(s[4:])
		if month < 1 || month > 12 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02/01/2006", // day-first, the archive encoding
		"01/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return firstOfMonth(t), true
		}
	}

	return time.Time{}, false
}

func parseMonthNumber(n float64) (time.Time, bool) {
	// Epoch milliseconds, how pandas serializes datetimes to JSON
	if n >= 1e11 {
		return firstOfMonth(time.UnixMilli(int64(n)).UTC()), true
	}
	if n >= 190001 && n <= 210012 {
		year := int(n) / 100
		month := int(n) % 100
		if month < 1 || month > 12 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func firstOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// normalizeCNPJ coerces the tax-id field to a 14-digit zero-padded string.
// Sources disagree on the encoding: archives carry strings, the API carries
// numbers that may have lost leading zeros. Unrecognized shapes normalize
// to the empty string.
func normalizeCNPJ(v interface{}) string {
	var digits string
	switch val := v.(type) {
	case string:
		var b strings.Builder
		for _, r := range val {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		digits = b.String()
	case float64:
		if val <= 0 {
			return ""
		}
		digits = strconv.FormatInt(int64(val), 10)
	case int:
		if val <= 0 {
			return ""
		}
		digits = strconv.Itoa(val)
	case int64:
		if val <= 0 {
			return ""
		}
		digits = strconv.FormatInt(val, 10)
	default:
		return ""
	}

	if digits == "" || len(digits) > 14 {
		return ""
	}
	return strings.Repeat("0", 14-len(digits)) + digits
}

// stringField reads a field as a trimmed string, tolerating absent values.
func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// floatField coerces a numeric field, returning nil when the value is
// absent or non-coercible. Numbers arrive as JSON floats, XLSX strings, or
// locale-formatted strings with comma decimals.
func floatField(raw map[string]interface{}, key string) *float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		s = strings.ReplaceAll(s, ",", ".")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}
