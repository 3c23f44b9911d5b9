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

// Package ingest orchestrates end-to-end issuer refreshes: ticker resolution,
// fact collection, normalization and persistence, with a bounded work queue
// and a registry-driven scheduler in front of it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fundwell/secdata/edgar"
	"github.com/fundwell/secdata/fetch"
	"github.com/fundwell/secdata/fundamentals"
	"github.com/fundwell/secdata/store"
)

// Outcome classifies how an ingestion attempt ended.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeTransient  Outcome = "transient"
	OutcomeDataErr    Outcome = "data_error"
	OutcomeStorageErr Outcome = "storage_error"
)

// Result summarizes one completed ingestion.
type Result struct {
	Ticker      string
	Outcome     Outcome
	NumPeriods  int
	LastFiling  time.Time
	SplitSignal *fundamentals.SplitSignal
	Err         error
	CompletedAt time.Time
}

// Pipeline runs one issuer through the full ingestion path.
type Pipeline struct {
	Resolver *edgar.Resolver
	Facts    *edgar.FactClient
	Store    *store.Store
	Options  fundamentals.BuildOptions
	Splits   fundamentals.SplitConfig
}

// NewPipeline wires the ingestion stages with default normalization settings.
func NewPipeline(resolver *edgar.Resolver, facts *edgar.FactClient, st *store.Store) *Pipeline {
	return &Pipeline{
		Resolver: resolver,
		Facts:    facts,
		Store:    st,
		Options:  fundamentals.DefaultBuildOptions(),
		Splits:   fundamentals.DefaultSplitConfig(),
	}
}

// Ingest refreshes one issuer: resolve the ticker, pull submissions metadata
// and company facts, normalize into periods, persist rows, log filing events
// and rewrite the snapshot. The returned result carries the outcome class the
// queue and scheduler key their retry behavior on.
func (pipeline *Pipeline) Ingest(ctx context.Context, ticker string) *Result {
	result := &Result{Ticker: ticker}
	defer func() {
		result.CompletedAt = time.Now()
	}()

	ref, err := pipeline.Resolver.Resolve(ctx, ticker)
	if err != nil {
		return pipeline.fail(result, err)
	}
	result.Ticker = ref.Ticker

	meta, err := pipeline.Facts.CompanyMeta(ctx, ref.CIK)
	if err != nil {
		return pipeline.fail(result, err)
	}
	result.LastFiling = meta.LastFilingDate

	facts, err := pipeline.Facts.CollectFacts(ctx, ref.CIK)
	if err != nil {
		return pipeline.fail(result, err)
	}

	periods := fundamentals.Normalize(ref.Ticker, facts, pipeline.Options)
	if len(periods) == 0 {
		result.Outcome = OutcomeDataErr
		result.Err = fmt.Errorf("no usable periods for %s (cik %s)", ref.Ticker, ref.CIK)
		return result
	}

	for _, period := range periods {
		period.SICCode = meta.SICCode
		period.Sector = meta.SICDescription
	}

	_, signal := fundamentals.ShareChangeYoY(periods, pipeline.Splits)
	result.SplitSignal = signal
	if signal != nil {
		log.Warn().Str("Ticker", ref.Ticker).
			Float64("Ratio", signal.Ratio).
			Bool("Reverse", signal.Reverse).
			Msg("share split signal detected")
	}

	if err := pipeline.Store.SavePeriods(ctx, meta.Name, periods); err != nil {
		if errors.Is(err, store.ErrCloneTicker) {
			result.Outcome = OutcomeDataErr
			result.Err = err
			return result
		}
		result.Outcome = OutcomeStorageErr
		result.Err = err
		return result
	}

	if err := pipeline.Store.RecordFilingEvents(ctx, ref.Ticker, meta.RecentFilings); err != nil {
		result.Outcome = OutcomeStorageErr
		result.Err = err
		return result
	}

	snap := buildSnapshot(ref, meta, periods)
	if signal != nil {
		snap.RiskNotes = append(snap.RiskNotes, store.SplitRiskNote(signal))
	}
	if err := pipeline.Store.WriteSnapshot(snap); err != nil {
		result.Outcome = OutcomeStorageErr
		result.Err = err
		return result
	}

	result.Outcome = OutcomeOK
	result.NumPeriods = len(periods)
	log.Info().Str("Ticker", ref.Ticker).Int("NumPeriods", len(periods)).Msg("ingestion complete")
	return result
}

// LastFilingDate checks the submissions feed without a full ingest; the
// scheduler uses it to decide whether an issuer has anything new.
func (pipeline *Pipeline) LastFilingDate(ctx context.Context, ticker string) (time.Time, error) {
	ref, err := pipeline.Resolver.Resolve(ctx, ticker)
	if err != nil {
		return time.Time{}, err
	}

	meta, err := pipeline.Facts.CompanyMeta(ctx, ref.CIK)
	if err != nil {
		return time.Time{}, err
	}

	return meta.LastFilingDate, nil
}

func (pipeline *Pipeline) fail(result *Result, err error) *Result {
	result.Err = err

	switch {
	case errors.Is(err, edgar.ErrTickerNotFound), errors.Is(err, fetch.ErrNotFound):
		result.Outcome = OutcomeNotFound
	case errors.Is(err, fetch.ErrRateLimited), errors.Is(err, fetch.ErrPaused),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, edgar.ErrNoDirectory):
		result.Outcome = OutcomeTransient
	default:
		result.Outcome = OutcomeTransient
	}

	log.Error().Err(err).Str("Ticker", result.Ticker).
		Str("Outcome", string(result.Outcome)).
		Msg("ingestion failed")
	return result
}

func buildSnapshot(ref *edgar.CompanyRef, meta *edgar.CompanyMeta, periods []*fundamentals.Period) *store.Snapshot {
	snap := &store.Snapshot{
		Ticker:  ref.Ticker,
		Name:    meta.Name,
		CIK:     ref.CIK,
		Sector:  meta.SICDescription,
		SICCode: meta.SICCode,
	}

	for _, period := range periods {
		if period.PeriodType == fundamentals.Quarter {
			snap.Quarters = append(snap.Quarters, period)
		} else {
			snap.Years = append(snap.Years, period)
		}
	}

	return snap
}
