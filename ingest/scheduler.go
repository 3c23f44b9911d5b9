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
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fundwell/secdata/store"
)

const (
	// DefaultSweepInterval is how often the scheduler polls for due tickers.
	DefaultSweepInterval = 15 * time.Minute
	// DefaultSweepBatch bounds how many due tickers one sweep enqueues.
	DefaultSweepBatch = 20
)

// RegistrySource provides the issuer schedule. Satisfied by *store.Store.
type RegistrySource interface {
	TickersDueForCheck(ctx context.Context, limit int) ([]*store.RegistryEntry, error)
	MarkChecked(ctx context.Context, ticker string, lastFilingDate time.Time) error
	Deactivate(ctx context.Context, ticker string) error
}

// Enqueuer accepts ingestion work. Satisfied by *Queue.
type Enqueuer interface {
	Enqueue(ticker string) (*Job, error)
}

// Pacer reports whether the shared fetch client is in a rate-limit pause.
// Satisfied by *fetch.Client.
type Pacer interface {
	Paused() bool
}

// Scheduler sweeps the registry on an interval and feeds due tickers into the
// ingestion queue. Finished jobs advance the registry schedule whether they
// succeeded or failed, except storage failures, which leave the issuer due so
// the next sweep retries the write.
type Scheduler struct {
	Registry RegistrySource
	Queue    Enqueuer
	Pacer    Pacer

	SweepInterval time.Duration
	SweepBatch    int
}

// NewScheduler wires a scheduler with default sweep settings.
func NewScheduler(registry RegistrySource, queue Enqueuer, pacer Pacer) *Scheduler {
	return &Scheduler{
		Registry:      registry,
		Queue:         queue,
		Pacer:         pacer,
		SweepInterval: DefaultSweepInterval,
		SweepBatch:    DefaultSweepBatch,
	}
}

// Run sweeps until the context ends. The first sweep runs immediately.
func (scheduler *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(scheduler.SweepInterval)
	defer ticker.Stop()

	scheduler.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scheduler.Sweep(ctx)
		}
	}
}

// Sweep enqueues due tickers and returns how many were enqueued. A sweep is
// skipped entirely while the fetch client is paused; enqueueing more work
// during a rate-limit pause only deepens the backlog.
func (scheduler *Scheduler) Sweep(ctx context.Context) int {
	if scheduler.Pacer != nil && scheduler.Pacer.Paused() {
		log.Warn().Msg("skipping registry sweep; fetch client is paused")
		return 0
	}

	entries, err := scheduler.Registry.TickersDueForCheck(ctx, scheduler.SweepBatch)
	if err != nil {
		log.Error().Err(err).Msg("could not load due tickers")
		return 0
	}

	enqueued := 0
	for _, entry := range entries {
		job, err := scheduler.Queue.Enqueue(entry.Ticker)
		if err != nil {
			if errors.Is(err, ErrQueueFull) {
				log.Warn().Str("Ticker", entry.Ticker).Msg("queue full; remaining due tickers wait for next sweep")
				break
			}
			log.Debug().Err(err).Str("Ticker", entry.Ticker).Msg("skipping due ticker")
			continue
		}

		enqueued++
		go scheduler.recordOutcome(ctx, job)
	}

	if enqueued > 0 {
		log.Info().Int("NumEnqueued", enqueued).Msg("registry sweep complete")
	}
	return enqueued
}

// recordOutcome advances the registry schedule once a job finishes. Transient
// and data failures still advance it so a broken ticker is retried on its
// normal cadence instead of burning a sweep slot every cycle; only storage
// failures leave the schedule untouched, since nothing was durably written.
// An unknown ticker is deactivated so it stops consuming sweep slots.
func (scheduler *Scheduler) recordOutcome(ctx context.Context, job *Job) {
	result, err := job.Wait(ctx)
	if err != nil || result == nil {
		return
	}

	switch result.Outcome {
	case OutcomeOK, OutcomeTransient, OutcomeDataErr:
		if err := scheduler.Registry.MarkChecked(ctx, result.Ticker, result.LastFiling); err != nil {
			log.Error().Err(err).Str("Ticker", result.Ticker).Msg("could not mark ticker checked")
		}
	case OutcomeNotFound:
		if err := scheduler.Registry.Deactivate(ctx, result.Ticker); err != nil {
			log.Error().Err(err).Str("Ticker", result.Ticker).Msg("could not deactivate unknown ticker")
		} else {
			log.Warn().Str("Ticker", result.Ticker).Msg("deactivated ticker; no longer resolvable")
		}
	}
}
