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
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultQueueCapacity bounds pending plus in-flight jobs.
	DefaultQueueCapacity = 64
	// DefaultQueueWorkers is the ingestion concurrency. Kept low because all
	// workers share one paced fetch client.
	DefaultQueueWorkers = 2
	// DefaultCompletionDelay spaces out consecutive ingestions on a worker.
	DefaultCompletionDelay = 2 * time.Second
	// DefaultNotFoundCooldown is how long a ticker that resolved to nothing
	// is rejected before retry is allowed.
	DefaultNotFoundCooldown = 6 * time.Hour
)

var (
	ErrQueueFull   = errors.New("ingestion queue at capacity")
	ErrCoolingDown = errors.New("ticker recently resolved to nothing; retry later")
)

// Ingester runs a single issuer refresh. Satisfied by *Pipeline.
type Ingester interface {
	Ingest(ctx context.Context, ticker string) *Result
}

// JobStatus tracks a job through the queue.
type JobStatus string

const (
	StatusQueued   JobStatus = "queued"
	StatusRunning  JobStatus = "running"
	StatusDone     JobStatus = "done"
	StatusFailed   JobStatus = "failed"
	StatusNotFound JobStatus = "not_found"
)

// Job is one queued ingestion request. Callers wait on Done; the result is
// valid once Done is closed. The last terminal job per ticker stays queryable
// through Lookup until the next enqueue overwrites it.
type Job struct {
	ID         uuid.UUID
	Ticker     string
	EnqueuedAt time.Time

	mu         sync.Mutex
	status     JobStatus
	startedAt  time.Time
	finishedAt time.Time

	done   chan struct{}
	result *Result
}

// Status returns where the job currently is in its lifecycle.
func (job *Job) Status() JobStatus {
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.status
}

// StartedAt returns when a worker picked the job up, or the zero time while it
// is still queued.
func (job *Job) StartedAt() time.Time {
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.startedAt
}

// FinishedAt returns when the job reached a terminal state, or the zero time.
func (job *Job) FinishedAt() time.Time {
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.finishedAt
}

func (job *Job) terminal() bool {
	switch job.Status() {
	case StatusDone, StatusFailed, StatusNotFound:
		return true
	}
	return false
}

// Done is closed when the job completes.
func (job *Job) Done() <-chan struct{} {
	return job.done
}

// Result returns the completed outcome, or nil while the job is in flight.
func (job *Job) Result() *Result {
	select {
	case <-job.done:
		return job.result
	default:
		return nil
	}
}

// Wait blocks until the job completes or the context ends.
func (job *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-job.done:
		return job.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Queue is a bounded FIFO of ingestion jobs with per-ticker dedup. A ticker
// already pending or in flight is never enqueued twice; the caller gets the
// existing job instead.
type Queue struct {
	ingester         Ingester
	capacity         int
	workers          int
	completionDelay  time.Duration
	notFoundCooldown time.Duration

	mu       sync.Mutex
	pending  []*Job
	inFlight map[string]*Job
	byTicker map[string]*Job
	notFound map[string]time.Time
	wake     chan struct{}
}

// NewQueue builds a queue over the given ingester with default sizing.
func NewQueue(ingester Ingester) *Queue {
	return &Queue{
		ingester:         ingester,
		capacity:         DefaultQueueCapacity,
		workers:          DefaultQueueWorkers,
		completionDelay:  DefaultCompletionDelay,
		notFoundCooldown: DefaultNotFoundCooldown,
		inFlight:         make(map[string]*Job),
		byTicker:         make(map[string]*Job),
		notFound:         make(map[string]time.Time),
		wake:             make(chan struct{}, 1),
	}
}

// SetCapacity overrides the queue bound.
func (queue *Queue) SetCapacity(n int) *Queue {
	queue.capacity = n
	return queue
}

// SetWorkers overrides ingestion concurrency.
func (queue *Queue) SetWorkers(n int) *Queue {
	queue.workers = n
	return queue
}

// SetCompletionDelay overrides inter-completion spacing.
func (queue *Queue) SetCompletionDelay(d time.Duration) *Queue {
	queue.completionDelay = d
	return queue
}

// SetNotFoundCooldown overrides the unknown-ticker retry cooldown.
func (queue *Queue) SetNotFoundCooldown(d time.Duration) *Queue {
	queue.notFoundCooldown = d
	return queue
}

// Enqueue adds a ticker to the queue. If the ticker is already queued or in
// flight the existing job is returned. Returns ErrQueueFull at capacity and
// ErrCoolingDown for tickers that recently resolved to nothing.
func (queue *Queue) Enqueue(ticker string) (*Job, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	queue.mu.Lock()
	defer queue.mu.Unlock()

	if existing, ok := queue.byTicker[ticker]; ok && !existing.terminal() {
		return existing, nil
	}

	if until, ok := queue.notFound[ticker]; ok {
		if time.Now().Before(until) {
			return nil, ErrCoolingDown
		}
		delete(queue.notFound, ticker)
	}

	if len(queue.pending)+len(queue.inFlight) >= queue.capacity {
		return nil, ErrQueueFull
	}

	job := &Job{
		ID:         uuid.New(),
		Ticker:     ticker,
		EnqueuedAt: time.Now(),
		status:     StatusQueued,
		done:       make(chan struct{}),
	}
	queue.pending = append(queue.pending, job)
	queue.byTicker[ticker] = job

	select {
	case queue.wake <- struct{}{}:
	default:
	}

	log.Debug().Str("Ticker", ticker).Str("JobID", job.ID.String()).Msg("enqueued ingestion job")
	return job, nil
}

// Depth returns pending plus in-flight job counts.
func (queue *Queue) Depth() (pending, inFlight int) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return len(queue.pending), len(queue.inFlight)
}

// Lookup returns the most recent job for a ticker, terminal or not. The
// terminal job survives until the ticker's next enqueue overwrites it.
func (queue *Queue) Lookup(ticker string) (*Job, bool) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	queue.mu.Lock()
	defer queue.mu.Unlock()

	job, ok := queue.byTicker[ticker]
	return job, ok
}

// Run processes jobs until the context ends.
func (queue *Queue) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < queue.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queue.worker(ctx)
		}()
	}
	wg.Wait()
}

func (queue *Queue) worker(ctx context.Context) {
	for {
		job := queue.next()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-queue.wake:
				continue
			case <-time.After(time.Second):
				continue
			}
		}

		result := queue.ingester.Ingest(ctx, job.Ticker)
		queue.finish(job, result)

		select {
		case <-ctx.Done():
			return
		case <-time.After(queue.completionDelay):
		}
	}
}

func (queue *Queue) next() *Job {
	queue.mu.Lock()
	defer queue.mu.Unlock()

	if len(queue.pending) == 0 {
		return nil
	}

	job := queue.pending[0]
	queue.pending = queue.pending[1:]
	queue.inFlight[job.Ticker] = job

	job.mu.Lock()
	job.status = StatusRunning
	job.startedAt = time.Now()
	job.mu.Unlock()

	return job
}

func (queue *Queue) finish(job *Job, result *Result) {
	queue.mu.Lock()
	defer queue.mu.Unlock()

	// the byTicker entry is kept so the terminal job stays queryable; the
	// ticker's next enqueue replaces it
	delete(queue.inFlight, job.Ticker)

	status := StatusFailed
	if result != nil {
		switch result.Outcome {
		case OutcomeOK:
			status = StatusDone
		case OutcomeNotFound:
			status = StatusNotFound
			queue.notFound[job.Ticker] = time.Now().Add(queue.notFoundCooldown)
		}
	}

	job.mu.Lock()
	job.status = status
	job.finishedAt = time.Now()
	job.mu.Unlock()

	job.result = result
	close(job.done)
}
