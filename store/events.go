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

	"github.com/fundwell/secdata/edgar"
)

// StoredFilingEvent is one row of the append-only filing-event log.
type StoredFilingEvent struct {
	Ticker          string    `db:"ticker"`
	AccessionNumber string    `db:"accession_number"`
	Form            string    `db:"form"`
	FilingDate      time.Time `db:"filing_date"`
	PrimaryDocument string    `db:"primary_document"`
	RecordedAt      time.Time `db:"recorded_at"`
}

// RecordFilingEvents appends statement filings to the event log. The log is
// append-only; re-ingesting an issuer re-offers the same accession numbers and
// the unique key drops them silently.
func (store *Store) RecordFilingEvents(ctx context.Context, ticker string, events []edgar.FilingEvent) error {
	ticker = strings.ToUpper(ticker)
	now := time.Now()

	for _, event := range events {
		_, err := store.Pool.Exec(ctx, `INSERT INTO filing_events (
			ticker, accession_number, form, filing_date, primary_document, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) ON CONFLICT (ticker, accession_number) DO NOTHING`,
			ticker, event.AccessionNumber, event.Form, event.FilingDate,
			event.PrimaryDocument, now)
		if err != nil {
			log.Error().Err(err).Str("Ticker", ticker).
				Str("AccessionNumber", event.AccessionNumber).
				Msg("record filing event failed")
			return err
		}
	}

	return nil
}

// FilingEvents returns an issuer's logged filings, newest first.
func (store *Store) FilingEvents(ctx context.Context, ticker string, limit int) ([]*StoredFilingEvent, error) {
	var events []*StoredFilingEvent
	err := pgxscan.Select(ctx, store.Pool, &events, `SELECT
		ticker, accession_number, form, filing_date, primary_document, recorded_at
	FROM filing_events
	WHERE ticker = $1
	ORDER BY filing_date DESC
	LIMIT $2`, strings.ToUpper(ticker), limit)
	return events, err
}
