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
	"sort"
	"strings"
	"time"
)

// DeriveConsumption computes the calendar-aware power metric for each
// record: hours in the reference month and MWm (MWh divided by hours).
// Records are returned sorted by reference month descending, the display
// convention for detail tables. The input slice is not modified.
//
// A record without a consumption total keeps a nil metric; downstream
// consumers treat an all-nil metric as "no chart data", never as an error.
func DeriveConsumption(records []CanonicalRecord) []DerivedRecord {
	derived := make([]DerivedRecord, len(records))
	for i, rec := range records {
		hours := hoursInMonth(rec.ReferenceMonth)
		d := DerivedRecord{
			CanonicalRecord: rec,
			HoursInMonth:    hours,
		}
		if rec.ConsumptionTotal != nil && hours > 0 {
			mwm := *rec.ConsumptionTotal / float64(hours)
			d.ConsumptionMWm = &mwm
		}
		derived[i] = d
	}

	sort.SliceStable(derived, func(i, j int) bool {
		return derived[i].ReferenceMonth.After(derived[j].ReferenceMonth)
	})

	return derived
}

// hoursInMonth returns days-in-month times 24 for the month of t,
// including the leap-year February.
func hoursInMonth(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	// Day zero of the next month is the last day of this month
	lastDay := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return lastDay * 24
}

// ResolveConsumptionColumn picks the consumption-total column for a
// source's column set. The versioned schema mapping wins; the substring
// heuristic (both "CONSUMO" and "TOTAL", case-insensitive, first match in
// the source's stable column order) is the last resort. Zero matches means
// the metric is unavailable, which is a degraded state, not a failure.
func ResolveConsumptionColumn(columns []string) (name string, heuristic bool, ok bool) {
	for _, known := range knownConsumptionColumns {
		for _, col := range columns {
			if strings.EqualFold(col, known) {
				return col, false, true
			}
		}
	}

	for _, col := range columns {
		upper := strings.ToUpper(col)
		if strings.Contains(upper, "CONSUMO") && strings.Contains(upper, "TOTAL") {
			return col, true, true
		}
	}

	return "", false, false
}
