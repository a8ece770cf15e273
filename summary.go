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
	"time"
)

// SummarizeTrailingWindow restricts the derived series to the trailing
// twelve months and builds the per-company, per-submarket, and per-unit
// report rows. The window starts twelve months before the newest reference
// month in the series, inclusive.
func SummarizeTrailingWindow(records []DerivedRecord, companies []string) ([]CompanySummary, []SubmarketSummary, []UnitSummary) {
	window := trailingWindow(records)
	if len(window) == 0 {
		return nil, nil, nil
	}

	return summarizeCompanies(window, companies),
		summarizeSubmarkets(window),
		summarizeUnits(window)
}

// trailingWindow keeps records from the last twelve months of the series.
func trailingWindow(records []DerivedRecord) []DerivedRecord {
	var newest time.Time
	for _, r := range records {
		if r.ReferenceMonth.After(newest) {
			newest = r.ReferenceMonth
		}
	}
	if newest.IsZero() {
		return nil
	}

	start := newest.AddDate(0, -12, 0)
	var window []DerivedRecord
	for _, r := range records {
		if !r.ReferenceMonth.Before(start) {
			window = append(window, r)
		}
	}
	return window
}

func summarizeCompanies(window []DerivedRecord, companies []string) []CompanySummary {
	var summaries []CompanySummary

	for _, company := range companies {
		var recs []DerivedRecord
		for _, r := range window {
			if r.Company == company {
				recs = append(recs, r)
			}
		}
		if len(recs) == 0 {
			continue
		}

		units := make(map[string]bool)
		submarkets := make(map[string]bool)
		for _, r := range recs {
			if r.UnitCode != "" {
				units[r.UnitCode] = true
			}
			if r.Submarket != "" {
				submarkets[r.Submarket] = true
			}
		}

		city, state, cnpj := decisionCenter(recs)

		summaries = append(summaries, CompanySummary{
			Company:        company,
			Units:          len(units),
			MixedSubmarket: len(submarkets) > 1,
			DecisionCity:   city,
			DecisionState:  state,
			DecisionCNPJ:   FormatCNPJ(cnpj),
		})
	}

	return summaries
}

// decisionCenter infers a company's headquarters from the trailing-window
// records. The CNPJ branch code (digits 9-12 of the 14-digit tax id) equal
// to the reserved head-office value wins; otherwise the unit with the
// highest mean MWm in the window is used. Ties on both paths break by
// lexically smallest CNPJ so repeated runs agree.
func decisionCenter(recs []DerivedRecord) (city, state, cnpj string) {
	var headOffice *DerivedRecord
	for i := range recs {
		r := &recs[i]
		if branchCode(r.CNPJ) != headOfficeBranchCode {
			continue
		}
		if headOffice == nil || r.CNPJ < headOffice.CNPJ {
			headOffice = r
		}
	}
	if headOffice != nil {
		return headOffice.City, headOffice.State, headOffice.CNPJ
	}

	// Fall back to the heaviest consumer
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range recs {
		if r.CNPJ == "" || r.ConsumptionMWm == nil {
			continue
		}
		sums[r.CNPJ] += *r.ConsumptionMWm
		counts[r.CNPJ]++
	}

	bestCNPJ := ""
	bestMean := 0.0
	for id, sum := range sums {
		m := sum / float64(counts[id])
		if bestCNPJ == "" || m > bestMean || (m == bestMean && id < bestCNPJ) {
			bestCNPJ = id
			bestMean = m
		}
	}
	if bestCNPJ == "" {
		return "", "", ""
	}

	for _, r := range recs {
		if r.CNPJ == bestCNPJ {
			return r.City, r.State, r.CNPJ
		}
	}
	return "", "", bestCNPJ
}

// branchCode extracts the 4-digit branch code from a 14-digit CNPJ.
func branchCode(cnpj string) string {
	if len(cnpj) != 14 {
		return ""
	}
	return cnpj[8:12]
}

func summarizeSubmarkets(window []DerivedRecord) []SubmarketSummary {
	type bucket struct {
		sum   float64
		units map[string]bool
	}
	buckets := make(map[string]*bucket)

	total := 0.0
	for _, r := range window {
		if r.Submarket == "" {
			continue
		}
		b, ok := buckets[r.Submarket]
		if !ok {
			b = &bucket{units: make(map[string]bool)}
			buckets[r.Submarket] = b
		}
		if r.ConsumptionMWm != nil {
			b.sum += *r.ConsumptionMWm
			total += *r.ConsumptionMWm
		}
		if r.UnitCode != "" {
			b.units[r.UnitCode] = true
		}
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]SubmarketSummary, 0, len(names))
	for _, name := range names {
		b := buckets[name]
		share := 0.0
		if total > 0 {
			share = b.sum / total * 100
		}
		summaries = append(summaries, SubmarketSummary{
			Submarket:      name,
			Units:          len(b.units),
			MonthlyMeanMWm: b.sum / 12,
			ShareOfTotal:   share,
		})
	}

	return summaries
}

// summarizeUnits reports each distinct unit's most recently known
// descriptive attributes plus its window mean consumption. The derived
// series arrives newest-first, so the first occurrence of a unit carries
// its latest attributes.
func summarizeUnits(window []DerivedRecord) []UnitSummary {
	type acc struct {
		first DerivedRecord
		sum   float64
		count int
	}
	accs := make(map[string]*acc)
	var order []string

	for _, r := range window {
		if r.UnitCode == "" {
			continue
		}
		a, ok := accs[r.UnitCode]
		if !ok {
			a = &acc{first: r}
			accs[r.UnitCode] = a
			order = append(order, r.UnitCode)
		}
		if r.ConsumptionMWm != nil {
			a.sum += *r.ConsumptionMWm
			a.count++
		}
	}

	sort.Strings(order)

	summaries := make([]UnitSummary, 0, len(order))
	for _, code := range order {
		a := accs[code]
		s := UnitSummary{
			UnitCode:  code,
			CNPJ:      FormatCNPJ(a.first.CNPJ),
			City:      a.first.City,
			State:     a.first.State,
			Submarket: a.first.Submarket,
			Capacity:  a.first.Capacity,
		}
		if a.count > 0 {
			m := a.sum / float64(a.count)
			s.MeanMWm = &m
		}
		summaries = append(summaries, s)
	}

	return summaries
}

// FormatCNPJ renders a 14-digit tax id in the display grouping
// XX.XXX.XXX/XXXX-XX. Anything that is not 14 digits is returned as-is.
func FormatCNPJ(cnpj string) string {
	if len(cnpj) != 14 || !isDigits(cnpj) {
		return cnpj
	}
	return cnpj[0:2] + "." + cnpj[2:5] + "." + cnpj[5:8] + "/" + cnpj[8:12] + "-" + cnpj[12:14]
}
