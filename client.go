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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DatastoreClient pages through the CCEE datastore_search API. Pagination
// is bounded: it stops at a short page (end of data) or after maxPages
// pages, whichever comes first. The page cap is a deliberate backpressure
// limit against broken or unbounded pagination.
type DatastoreClient struct {
	baseURL    string
	resourceID string
	pageSize   int
	maxPages   int
	httpClient *http.Client
	logger     *Logger
}

// NewDatastoreClient creates a new CCEE datastore API client
func NewDatastoreClient(config *Config, logger *Logger) *DatastoreClient {
	return &DatastoreClient{
		baseURL:    config.APIBaseURL,
		resourceID: config.ResourceID,
		pageSize:   config.PageSize,
		maxPages:   config.MaxPages,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeout) * time.Second,
		},
		logger: logger.WithComponent("api"),
	}
}

// FetchRecords pages through the live source and returns normalized
// records plus the drop count. A network error mid-pagination is logged
// and pagination stops early: partial results are preferred over total
// failure. The company filter is applied twice: an approximate token at
// the server boundary, then the exact filter during normalization.
func (c *DatastoreClient) FetchRecords(filter Filter) ([]CanonicalRecord, int, error) {
	var all []map[string]interface{}
	var columns []string

	query := ""
	if filter.Company != "" {
		query = approximateNameQuery(filter.Company)
	}

	offset := 0
	for page := 0; page < c.maxPages; page++ {
		resp, err := c.fetchPage(c.pageSize, offset, query, "")
		if err != nil {
			c.logger.LogSourceUnavailable("api", err)
			if len(all) == 0 {
				return nil, 0, &SourceError{Source: "api", Err: err}
			}
			// Keep whatever pages succeeded
			break
		}

		if len(resp.Result.Records) == 0 {
			break
		}
		if columns == nil {
			columns = fieldOrder(resp)
		}
		all = append(all, resp.Result.Records...)
		offset += c.pageSize

		if len(resp.Result.Records) < c.pageSize {
			break
		}
	}

	batch := RawBatch{Source: "api", Columns: columns, Records: all}
	if col, heuristic, ok := ResolveConsumptionColumn(columns); ok && heuristic {
		c.logger.LogColumnFallback("api", col)
	}
	records, dropped := NormalizeBatch(batch, filter)

	c.logger.LogDataCollection("api", len(records))
	c.logger.LogDroppedRecords("api", dropped)

	return records, dropped, nil
}

// Total returns the record count the live source reports for the resource.
func (c *DatastoreClient) Total() (int, error) {
	resp, err := c.fetchPage(1, 0, "", "")
	if err != nil {
		return 0, err
	}
	return resp.Result.Total, nil
}

// NewestMonth returns the most recent reference month the live source
// holds, or nil when it cannot be determined.
func (c *DatastoreClient) NewestMonth() (*time.Time, error) {
	resp, err := c.fetchPage(1, 0, "", colMonth+" desc")
	if err != nil {
		return nil, err
	}
	if len(resp.Result.Records) == 0 {
		return nil, nil
	}
	month, ok := parseReferenceMonth(resp.Result.Records[0][colMonth])
	if !ok {
		return nil, nil
	}
	return &month, nil
}

// CompanyNames returns the distinct company names visible on the first
// page of the live source.
func (c *DatastoreClient) CompanyNames() ([]string, error) {
	resp, err := c.fetchPage(c.pageSize, 0, "", "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, rec := range resp.Result.Records {
		name := stringField(rec, colCompany)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// fetchPage performs one datastore_search request.
func (c *DatastoreClient) fetchPage(limit, offset int, query, sortBy string) (*DatastoreResponse, error) {
	params := url.Values{}
	params.Set("resource_id", c.resourceID)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))
	if query != "" {
		params.Set("q", query)
	}
	if sortBy != "" {
		params.Set("sort", sortBy)
	}

	endpoint := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", GetUserAgent())

	c.logger.LogAPIRequest("GET", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{
			Endpoint: endpoint,
			Message:  "failed to fetch records",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.LogAPIError(endpoint, resp.StatusCode, fmt.Errorf("%s", string(bodyBytes)))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    string(bodyBytes),
		}
	}

	var dsResp DatastoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&dsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &dsResp, nil
}

// approximateNameQuery builds the best-effort server-side company filter.
// The datastore query syntax cannot reliably express accented or quoted
// names, so only the first token of the name, capped at 20 characters, is
// sent. This may over-match; exact filtering happens client-side.
func approximateNameQuery(company string) string {
	token := company
	if fields := strings.Fields(company); len(fields) > 0 {
		token = fields[0]
	}
	if runes := []rune(token); len(runes) > 20 {
		token = string(runes[:20])
	}
	return fmt.Sprintf(`{"%s":"%s"}`, colCompany, token)
}

// fieldOrder extracts the source's stable column order, preferring the
// datastore's fields metadata and falling back to sorted record keys.
func fieldOrder(resp *DatastoreResponse) []string {
	if len(resp.Result.Fields) > 0 {
		cols := make([]string, 0, len(resp.Result.Fields))
		for _, f := range resp.Result.Fields {
			if f.ID == colRowID || f.ID == "_"+colRowID {
				// Datastore row id, never semantically meaningful
				continue
			}
			cols = append(cols, f.ID)
		}
		return cols
	}
	if len(resp.Result.Records) == 0 {
		return nil
	}
	cols := make([]string, 0, len(resp.Result.Records[0]))
	for k := range resp.Result.Records[0] {
		if k == colRowID || k == "_"+colRowID {
			continue
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
