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

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/rs/zerolog/log"
)

// Refresh cadence tiers. Priority overrides the per-entry interval so that
// watchlisted issuers stay fresh regardless of their configured cadence.
const (
	IntervalHighPriority = 24 * time.Hour
	IntervalMedPriority  = 7 * 24 * time.Hour
	IntervalDefault      = 30 * 24 * time.Hour
)

// RegistryEntry tracks one issuer's refresh schedule.
type RegistryEntry struct {
	Ticker              string     `db:"ticker"`
	CIK                 string     `db:"cik"`
	Name                string     `db:"name"`
	Priority            int        `db:"priority"`
	RefreshIntervalDays int        `db:"refresh_interval_days"`
	LastCheckedAt       *time.Time `db:"last_checked_at"`
	LastFilingDate      *time.Time `db:"last_filing_date"`
	NextCheckAt         *time.Time `db:"next_check_at"`
	IsActive            bool       `db:"is_active"`
}

// EffectiveInterval computes the refresh interval an entry actually runs on.
// Priority tiers beat the configured per-entry cadence; an unset cadence
// falls back to the monthly default.
func EffectiveInterval(priority, refreshIntervalDays int) time.Duration {
	switch {
	case priority >= 2:
		return IntervalHighPriority
	case priority == 1:
		return IntervalMedPriority
	case refreshIntervalDays > 0:
		return time.Duration(refreshIntervalDays) * 24 * time.Hour
	default:
		return IntervalDefault
	}
}

// UpsertEntry registers an issuer for scheduled refresh, or updates its
// schedule settings. A freshly registered issuer is due immediately.
func (store *Store) UpsertEntry(ctx context.Context, entry *RegistryEntry) error {
	entry.Ticker = strings.ToUpper(entry.Ticker)

	_, err := store.Pool.Exec(ctx, `INSERT INTO registry (
		ticker, cik, name, priority, refresh_interval_days,
		last_checked_at, last_filing_date, next_check_at, is_active
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9
	) ON CONFLICT (ticker) DO UPDATE SET
		cik = EXCLUDED.cik,
		name = EXCLUDED.name,
		priority = EXCLUDED.priority,
		refresh_interval_days = EXCLUDED.refresh_interval_days,
		is_active = EXCLUDED.is_active`,
		entry.Ticker, entry.CIK, entry.Name, entry.Priority,
		entry.RefreshIntervalDays, entry.LastCheckedAt, entry.LastFilingDate,
		entry.NextCheckAt, entry.IsActive)
	if err != nil {
		log.Error().Err(err).Str("Ticker", entry.Ticker).Msg("upsert registry entry failed")
	}

	return err
}

// TickersDueForCheck returns active entries whose next check time has passed,
// highest priority first and stalest first within a tier. Entries never
// checked sort ahead of everything.
func (store *Store) TickersDueForCheck(ctx context.Context, limit int) ([]*RegistryEntry, error) {
	var entries []*RegistryEntry
	err := pgxscan.Select(ctx, store.Pool, &entries, `SELECT
		ticker, cik, name, priority, refresh_interval_days,
		last_checked_at, last_filing_date, next_check_at, is_active
	FROM registry
	WHERE is_active
	  AND (next_check_at IS NULL OR next_check_at <= now())
	ORDER BY priority DESC, last_checked_at ASC NULLS FIRST
	LIMIT $1`, limit)
	return entries, err
}

// MarkChecked records a completed check and schedules the next one from the
// entry's effective interval. Storage failures do NOT advance the schedule;
// the caller skips this call so the issuer is retried on the next sweep.
func (store *Store) MarkChecked(ctx context.Context, ticker string, lastFilingDate time.Time) error {
	ticker = strings.ToUpper(ticker)

	var priority, intervalDays int
	err := store.Pool.QueryRow(ctx,
		`SELECT priority, refresh_interval_days FROM registry WHERE ticker = $1`,
		ticker).Scan(&priority, &intervalDays)
	if err != nil {
		return err
	}

	now := time.Now()
	next := now.Add(EffectiveInterval(priority, intervalDays))

	var filing *time.Time
	if !lastFilingDate.IsZero() {
		filing = &lastFilingDate
	}

	_, err = store.Pool.Exec(ctx, `UPDATE registry SET
		last_checked_at = $2,
		last_filing_date = COALESCE($3, last_filing_date),
		next_check_at = $4
	WHERE ticker = $1`, ticker, now, filing, next)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("mark registry entry checked failed")
	}

	return err
}

// Deactivate removes an issuer from scheduling without deleting its history.
func (store *Store) Deactivate(ctx context.Context, ticker string) error {
	_, err := store.Pool.Exec(ctx,
		`UPDATE registry SET is_active = false WHERE ticker = $1`,
		strings.ToUpper(ticker))
	return err
}

// RegistryEntries lists all registry rows for reporting, highest priority
// first.
func (store *Store) RegistryEntries(ctx context.Context) ([]*RegistryEntry, error) {
	var entries []*RegistryEntry
	err := pgxscan.Select(ctx, store.Pool, &entries, `SELECT
		ticker, cik, name, priority, refresh_interval_days,
		last_checked_at, last_filing_date, next_check_at, is_active
	FROM registry
	ORDER BY priority DESC, ticker ASC`)
	return entries, err
}
