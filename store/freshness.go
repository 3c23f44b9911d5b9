// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package store

import (
	"context"
	"strings"
	"time"
)

// FreshnessReport describes how current an issuer's stored fundamentals are.
type FreshnessReport struct {
	Ticker        string
	NumRows       int
	LatestUpdated time.Time
	IsFresh       bool
}

// Freshness reports whether an issuer's stored rows were written within
// maxAge. An issuer with no rows is never fresh.
func (store *Store) Freshness(ctx context.Context, ticker string, maxAge time.Duration) (*FreshnessReport, error) {
	report := &FreshnessReport{Ticker: strings.ToUpper(ticker)}

	var latest *time.Time
	err := store.Pool.QueryRow(ctx,
		`SELECT count(*), max(last_updated) FROM periods WHERE ticker = $1`,
		report.Ticker).Scan(&report.NumRows, &latest)
	if err != nil {
		return nil, err
	}

	if latest != nil {
		report.LatestUpdated = *latest
		report.IsFresh = report.NumRows > 0 && time.Since(report.LatestUpdated) < maxAge
	}

	return report, nil
}
