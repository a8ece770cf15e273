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
	"errors"
	"fmt"
	"sort"
	"time"
)

// Collector unifies the archive sources and the live API into one record
// series per company. Source order is fixed: archives oldest year first,
// the live source last. Relative order is preserved within each source;
// chronological sorting is the deriver's job.
type Collector struct {
	config  *Config
	client  *DatastoreClient
	archive *ArchiveReader
	storage *Storage
	logger  *Logger
}

// NewCollector creates a new data collector
func NewCollector(config *Config, client *DatastoreClient, archive *ArchiveReader, storage *Storage, logger *Logger) *Collector {
	return &Collector{
		config:  config,
		client:  client,
		archive: archive,
		storage: storage,
		logger:  logger.WithComponent("collector"),
	}
}

// cacheTTL returns the configured freshness window for source lookups.
func (c *Collector) cacheTTL() time.Duration {
	return time.Duration(c.config.CacheTTLMinutes) * time.Minute
}

// cachedSourceRecords wraps one source's contribution for caching.
type cachedSourceRecords struct {
	Records []CanonicalRecord `json:"records"`
	Dropped int               `json:"dropped"`
}

// CollectCompany gathers one company's records from every source. Source
// failures degrade to warnings in the returned stats; an empty result is
// not an error here, only the analyzer decides whether the whole run ended
// up with no data.
func (c *Collector) CollectCompany(company string, from, to time.Time) ([]CanonicalRecord, []SourceStats) {
	filter := Filter{Company: company, DateFrom: from, DateTo: to}

	var unified []CanonicalRecord
	var stats []SourceStats

	for _, src := range c.config.Archives {
		sourceID := fmt.Sprintf("archive_%d", src.Year)
		records, dropped, err := c.readCached(sourceID, filter, func() ([]CanonicalRecord, int, error) {
			return c.archive.Read(src.Path, filter)
		})

		stat := SourceStats{Source: sourceID, Records: len(records), Dropped: dropped}
		if err != nil {
			var srcErr *SourceError
			if errors.As(err, &srcErr) {
				c.logger.LogSourceUnavailable(sourceID, err)
				stat.Warning = srcErr.Error()
			} else {
				stat.Warning = err.Error()
			}
		}
		stats = append(stats, stat)

		unified = append(unified, records...)
	}

	apiRecords, apiDropped, err := c.readCached("api", filter, func() ([]CanonicalRecord, int, error) {
		return c.client.FetchRecords(filter)
	})
	apiStat := SourceStats{Source: "api", Records: len(apiRecords), Dropped: apiDropped}
	if err != nil {
		apiStat.Warning = err.Error()
	}
	stats = append(stats, apiStat)
	unified = append(unified, apiRecords...)

	c.logger.Info("Company series unified",
		"company", company,
		"records", len(unified),
	)

	return unified, stats
}

// CollectAll unifies the records of every selected company.
func (c *Collector) CollectAll(companies []string, from, to time.Time) ([]CanonicalRecord, []SourceStats) {
	var all []CanonicalRecord
	var stats []SourceStats

	for _, company := range companies {
		records, companyStats := c.CollectCompany(company, from, to)
		all = append(all, records...)
		stats = append(stats, companyStats...)
	}

	return all, stats
}

// readCached wraps one source read with the (source id, filter) cache.
func (c *Collector) readCached(sourceID string, filter Filter, read func() ([]CanonicalRecord, int, error)) ([]CanonicalRecord, int, error) {
	key := fmt.Sprintf("records_%s_%s", sourceID, filter.Key())

	var cached cachedSourceRecords
	hit, err := c.storage.LoadCache(key, &cached)
	if err != nil {
		c.logger.Warn("Failed to load source records from cache", "key", key, "error", err)
	}
	if hit {
		return cached.Records, cached.Dropped, nil
	}

	records, dropped, err := read()
	if err != nil {
		return records, dropped, err
	}

	if err := c.storage.SaveCache(key, cachedSourceRecords{Records: records, Dropped: dropped}, c.cacheTTL()); err != nil {
		c.logger.Warn("Failed to cache source records", "key", key, "error", err)
	}

	return records, dropped, nil
}

// ListCompanies unions distinct company names across every archive plus
// the first page of the live source, sorted. Cached for the configured
// freshness window: the listing backs an interactive picker and is
// expensive to rebuild.
func (c *Collector) ListCompanies() ([]string, error) {
	const key = "company_names"

	var cached []string
	hit, err := c.storage.LoadCache(key, &cached)
	if err != nil {
		c.logger.Warn("Failed to load company names from cache", "error", err)
	}
	if hit {
		return cached, nil
	}

	seen := make(map[string]bool)
	var names []string

	for _, src := range c.config.Archives {
		records, _, err := c.archive.Read(src.Path, Filter{})
		if err != nil {
			c.logger.LogSourceUnavailable(fmt.Sprintf("archive_%d", src.Year), err)
			continue
		}
		for _, rec := range records {
			if rec.Company != "" && !seen[rec.Company] {
				seen[rec.Company] = true
				names = append(names, rec.Company)
			}
		}
	}

	apiNames, err := c.client.CompanyNames()
	if err != nil {
		c.logger.LogSourceUnavailable("api", err)
	}
	for _, name := range apiNames {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return nil, &DataError{DataType: "companies", Message: "no company names found in any source"}
	}

	sort.Strings(names)

	if err := c.storage.SaveCache(key, names, c.cacheTTL()); err != nil {
		c.logger.Warn("Failed to cache company names", "error", err)
	}

	return names, nil
}

// DatasetInfo reports the oldest and newest reference months and the total
// record count across all sources, without holding everything in memory at
// once. Cached for the configured freshness window.
func (c *Collector) DatasetInfo() (*DatasetInfo, error) {
	const key = "dataset_info"

	var cached DatasetInfo
	hit, err := c.storage.LoadCache(key, &cached)
	if err != nil {
		c.logger.Warn("Failed to load dataset info from cache", "error", err)
	}
	if hit {
		return &cached, nil
	}

	info := &DatasetInfo{}

	for _, src := range c.config.Archives {
		records, _, err := c.archive.Read(src.Path, Filter{})
		if err != nil {
			c.logger.LogSourceUnavailable(fmt.Sprintf("archive_%d", src.Year), err)
			continue
		}
		info.TotalRecords += len(records)
		for _, rec := range records {
			month := rec.ReferenceMonth
			if info.OldestMonth == nil || month.Before(*info.OldestMonth) {
				m := month
				info.OldestMonth = &m
			}
			if info.NewestMonth == nil || month.After(*info.NewestMonth) {
				m := month
				info.NewestMonth = &m
			}
		}
	}

	if total, err := c.client.Total(); err == nil {
		info.TotalRecords += total
	} else {
		c.logger.LogSourceUnavailable("api", err)
	}
	if newest, err := c.client.NewestMonth(); err == nil && newest != nil {
		if info.NewestMonth == nil || newest.After(*info.NewestMonth) {
			info.NewestMonth = newest
		}
	}

	if err := c.storage.SaveCache(key, info, c.cacheTTL()); err != nil {
		c.logger.Warn("Failed to cache dataset info", "error", err)
	}

	return info, nil
}
