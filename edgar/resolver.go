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

// Package edgar talks to the SEC EDGAR data service: the ticker/exchange
// directory, the submissions metadata endpoint and the XBRL companyfacts
// endpoint. All requests go through the shared fetch.Client pacing gate.
package edgar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/fundwell/secdata/fetch"
)

const (
	directoryURL = "https://www.sec.gov/files/company_tickers_exchange.json"

	// DefaultDirectoryTTL is how long the cached ticker directory is trusted
	// before a refresh is attempted.
	DefaultDirectoryTTL = 24 * time.Hour

	// missLogCooldown suppresses repeated failed-lookup logging for the same
	// ticker; retired or mistyped tickers would otherwise storm the log.
	missLogCooldown = 6 * time.Hour
)

var (
	ErrTickerNotFound = errors.New("ticker not found in SEC directory")
	ErrNoDirectory    = errors.New("ticker directory unavailable")
)

// CompanyRef identifies an issuer resolved from the ticker directory.
type CompanyRef struct {
	Ticker   string `json:"ticker"`
	CIK      string `json:"cik"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Resolver maps tickers to issuer identifiers using a cached copy of the SEC
// ticker/exchange directory. Lookups are case-insensitive. When the remote
// directory is unreachable and the cache is cold, a local fallback file keeps
// the system degraded but functional.
type Resolver struct {
	client       *fetch.Client
	fallbackFile string
	ttl          time.Duration
	url          string

	companies *haxmap.Map[string, *CompanyRef]
	missLog   *haxmap.Map[string, time.Time]

	mu          sync.Mutex
	refreshedAt time.Time
}

// NewResolver creates a Resolver. fallbackFile may be empty to disable the
// local-file fallback.
func NewResolver(client *fetch.Client, fallbackFile string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultDirectoryTTL
	}
	return &Resolver{
		client:       client,
		fallbackFile: fallbackFile,
		ttl:          ttl,
		url:          directoryURL,
		companies:    haxmap.New[string, *CompanyRef](),
		missLog:      haxmap.New[string, time.Time](),
	}
}

// Resolve returns the issuer reference for a ticker.
func (resolver *Resolver) Resolve(ctx context.Context, ticker string) (*CompanyRef, error) {
	normalized := strings.ToUpper(strings.TrimSpace(ticker))

	if err := resolver.ensureDirectory(ctx); err != nil {
		return nil, err
	}

	if ref, ok := resolver.companies.Get(normalized); ok {
		return ref, nil
	}

	resolver.logMiss(normalized)
	return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, normalized)
}

// Size returns the number of cached directory entries.
func (resolver *Resolver) Size() int {
	return int(resolver.companies.Len())
}

func (resolver *Resolver) ensureDirectory(ctx context.Context) error {
	resolver.mu.Lock()
	defer resolver.mu.Unlock()

	if time.Since(resolver.refreshedAt) < resolver.ttl && resolver.companies.Len() > 0 {
		return nil
	}

	if err := resolver.loadRemote(ctx); err != nil {
		if resolver.companies.Len() > 0 {
			// serve the stale cache rather than failing lookups outright
			log.Warn().Err(err).Msg("directory refresh failed, serving stale cache")
			resolver.refreshedAt = time.Now()
			return nil
		}
		if resolver.fallbackFile != "" {
			if fbErr := resolver.loadFallback(); fbErr == nil {
				log.Warn().Err(err).Str("FallbackFile", resolver.fallbackFile).
					Msg("directory unreachable, loaded local fallback")
				resolver.refreshedAt = time.Now()
				return nil
			} else {
				log.Error().Err(fbErr).Str("FallbackFile", resolver.fallbackFile).
					Msg("could not load ticker directory fallback file")
			}
		}
		return fmt.Errorf("%w: %s", ErrNoDirectory, err)
	}

	resolver.refreshedAt = time.Now()
	return nil
}

// loadRemote downloads the directory. The payload is column oriented:
//
//	{"fields":["cik","name","ticker","exchange"],"data":[[320193,"Apple Inc.","AAPL","Nasdaq"],...]}
func (resolver *Resolver) loadRemote(ctx context.Context) error {
	body, err := resolver.client.Get(ctx, resolver.url)
	if err != nil {
		return err
	}

	doc := gjson.ParseBytes(body)
	rows := doc.Get("data")
	if !rows.IsArray() {
		return fmt.Errorf("%w: missing data array", fetch.ErrStatus)
	}

	count := 0
	rows.ForEach(func(_, row gjson.Result) bool {
		cols := row.Array()
		if len(cols) < 4 {
			return true
		}

		ref := &CompanyRef{
			CIK:      fmt.Sprintf("%010d", cols[0].Int()),
			Name:     cols[1].String(),
			Ticker:   strings.ToUpper(cols[2].String()),
			Exchange: cols[3].String(),
		}
		resolver.companies.Set(ref.Ticker, ref)
		count++
		return true
	})

	log.Info().Int("NumTickers", count).Msg("loaded SEC ticker directory")
	return nil
}

type fallbackRow struct {
	CIK      int64  `csv:"cik"`
	Ticker   string `csv:"ticker"`
	Name     string `csv:"name"`
	Exchange string `csv:"exchange"`
}

func (resolver *Resolver) loadFallback() error {
	fh, err := os.Open(resolver.fallbackFile)
	if err != nil {
		return err
	}
	defer fh.Close()

	rows := []*fallbackRow{}
	if err := gocsv.UnmarshalFile(fh, &rows); err != nil {
		return err
	}

	for _, row := range rows {
		ref := &CompanyRef{
			CIK:      fmt.Sprintf("%010d", row.CIK),
			Ticker:   strings.ToUpper(row.Ticker),
			Name:     row.Name,
			Exchange: row.Exchange,
		}
		resolver.companies.Set(ref.Ticker, ref)
	}

	log.Info().Int("NumTickers", len(rows)).Msg("loaded ticker directory from fallback file")
	return nil
}

func (resolver *Resolver) logMiss(ticker string) {
	now := time.Now()
	if last, ok := resolver.missLog.Get(ticker); ok && now.Sub(last) < missLogCooldown {
		return
	}
	resolver.missLog.Set(ticker, now)
	log.Warn().Str("Ticker", ticker).Msg("ticker not found in SEC directory")
}
