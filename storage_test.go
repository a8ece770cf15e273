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

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	storage, err := NewStorage(t.TempDir(), NewLogger(false))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return storage
}

func TestCache_SetAndGet(t *testing.T) {
	storage := newTestStorage(t)

	original := cachedSourceRecords{
		Records: []CanonicalRecord{
			{Company: "ACME", ReferenceMonth: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		Dropped: 2,
	}
	require.NoError(t, storage.SaveCache("records_api_ACME|open|open", original, time.Hour))

	var loaded cachedSourceRecords
	hit, err := storage.LoadCache("records_api_ACME|open|open", &loaded)

	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 2, loaded.Dropped)
	require.Len(t, loaded.Records, 1)
	assert.Equal(t, "ACME", loaded.Records[0].Company)
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	storage := newTestStorage(t)

	var target []string
	hit, err := storage.LoadCache("never_set", &target)

	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveCache("short_lived", "value", -time.Minute))

	var target string
	hit, err := storage.LoadCache("short_lived", &target)

	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_Clear(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveCache("a", 1, time.Hour))
	require.NoError(t, storage.SaveCache("b", 2, time.Hour))
	require.NoError(t, storage.ClearCache())

	var target int
	hit, err := storage.LoadCache("a", &target)
	require.NoError(t, err)
	assert.False(t, hit)

	total, expired, err := storage.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, expired)
}

func TestCache_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(false)

	first, err := NewStorage(dir, logger)
	require.NoError(t, err)
	require.NoError(t, first.SaveCache("persisted", "value", time.Hour))
	require.NoError(t, first.Close())

	second, err := NewStorage(dir, logger)
	require.NoError(t, err)
	defer second.Close()

	var target string
	hit, err := second.LoadCache("persisted", &target)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "value", target)
}

func TestStorage_SaveAndLoadAnalysis(t *testing.T) {
	storage := newTestStorage(t)

	result := &AnalysisResult{
		GeneratedAt:        time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC),
		Companies:          []string{"ACME"},
		FlexibilityPercent: 30,
		Band:               NewBand(100, 30),
		Monthly: []MonthlyAggregate{
			{Month: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ConsumptionMWm: 100},
		},
	}
	require.NoError(t, storage.SaveAnalysisResult(result))

	loaded, err := storage.LoadLatestAnalysis()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, []string{"ACME"}, loaded.Companies)
	assert.InDelta(t, 100, loaded.Band.Center, 1e-9)
	require.Len(t, loaded.Monthly, 1)
	assert.InDelta(t, 100, loaded.Monthly[0].ConsumptionMWm, 1e-9)
}

func TestStorage_LoadLatestAnalysisWhenNoneSaved(t *testing.T) {
	storage := newTestStorage(t)

	loaded, err := storage.LoadLatestAnalysis()

	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStorage_LoadLatestPicksNewest(t *testing.T) {
	storage := newTestStorage(t)

	older := &AnalysisResult{GeneratedAt: time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC), Companies: []string{"OLD"}}
	newer := &AnalysisResult{GeneratedAt: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC), Companies: []string{"NEW"}}
	require.NoError(t, storage.SaveAnalysisResult(older))
	require.NoError(t, storage.SaveAnalysisResult(newer))

	loaded, err := storage.LoadLatestAnalysis()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"NEW"}, loaded.Companies)
}
