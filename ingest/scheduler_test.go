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
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fundwell/secdata/store"
)

// fakeRegistry scripts the due list and records schedule updates.
type fakeRegistry struct {
	mu          sync.Mutex
	due         []*store.RegistryEntry
	dueErr      error
	checked     []string
	deactivated []string
}

func (fake *fakeRegistry) TickersDueForCheck(ctx context.Context, limit int) ([]*store.RegistryEntry, error) {
	if fake.dueErr != nil {
		return nil, fake.dueErr
	}
	if limit < len(fake.due) {
		return fake.due[:limit], nil
	}
	return fake.due, nil
}

func (fake *fakeRegistry) MarkChecked(ctx context.Context, ticker string, lastFilingDate time.Time) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.checked = append(fake.checked, ticker)
	return nil
}

func (fake *fakeRegistry) Deactivate(ctx context.Context, ticker string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.deactivated = append(fake.deactivated, ticker)
	return nil
}

func (fake *fakeRegistry) checkedTickers() []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return append([]string{}, fake.checked...)
}

func (fake *fakeRegistry) deactivatedTickers() []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return append([]string{}, fake.deactivated...)
}

// fakeEnqueuer completes every job synchronously with a scripted outcome.
type fakeEnqueuer struct {
	mu       sync.Mutex
	enqueued []string
	outcomes map[string]Outcome
	err      error
}

func (fake *fakeEnqueuer) Enqueue(ticker string) (*Job, error) {
	if fake.err != nil {
		return nil, fake.err
	}

	fake.mu.Lock()
	fake.enqueued = append(fake.enqueued, ticker)
	fake.mu.Unlock()

	outcome, ok := fake.outcomes[ticker]
	if !ok {
		outcome = OutcomeOK
	}

	job := &Job{Ticker: ticker, done: make(chan struct{})}
	job.result = &Result{Ticker: ticker, Outcome: outcome}
	close(job.done)
	return job, nil
}

type fakePacer struct{ paused bool }

func (fake *fakePacer) Paused() bool { return fake.paused }

func dueEntry(ticker string) *store.RegistryEntry {
	return &store.RegistryEntry{Ticker: ticker, IsActive: true}
}

var _ = Describe("Scheduler", func() {
	var (
		registry  *fakeRegistry
		enqueuer  *fakeEnqueuer
		pacer     *fakePacer
		scheduler *Scheduler
	)

	BeforeEach(func() {
		registry = &fakeRegistry{}
		enqueuer = &fakeEnqueuer{outcomes: make(map[string]Outcome)}
		pacer = &fakePacer{}
		scheduler = NewScheduler(registry, enqueuer, pacer)
	})

	It("enqueues every due ticker", func() {
		registry.due = []*store.RegistryEntry{dueEntry("AAPL"), dueEntry("MSFT")}

		enqueued := scheduler.Sweep(context.Background())
		Expect(enqueued).To(Equal(2))
		Expect(enqueuer.enqueued).To(ConsistOf("AAPL", "MSFT"))
	})

	It("leaves the schedule untouched after a storage failure", func() {
		registry.due = []*store.RegistryEntry{dueEntry("AAPL"), dueEntry("FAIL")}
		enqueuer.outcomes["FAIL"] = OutcomeStorageErr

		scheduler.Sweep(context.Background())

		Eventually(registry.checkedTickers).Should(ConsistOf("AAPL"))
		Consistently(registry.checkedTickers, 100*time.Millisecond).ShouldNot(ContainElement("FAIL"))
	})

	It("advances the schedule for failing tickers so they are not re-looped every sweep", func() {
		registry.due = []*store.RegistryEntry{dueEntry("FLAKY"), dueEntry("JUNK")}
		enqueuer.outcomes["FLAKY"] = OutcomeTransient
		enqueuer.outcomes["JUNK"] = OutcomeDataErr

		scheduler.Sweep(context.Background())

		Eventually(registry.checkedTickers).Should(ConsistOf("FLAKY", "JUNK"))
	})

	It("deactivates tickers that no longer resolve", func() {
		registry.due = []*store.RegistryEntry{dueEntry("GONE")}
		enqueuer.outcomes["GONE"] = OutcomeNotFound

		scheduler.Sweep(context.Background())

		Eventually(registry.deactivatedTickers).Should(ConsistOf("GONE"))
	})

	It("skips the sweep entirely while the fetch client is paused", func() {
		registry.due = []*store.RegistryEntry{dueEntry("AAPL")}
		pacer.paused = true

		enqueued := scheduler.Sweep(context.Background())
		Expect(enqueued).To(Equal(0))
		Expect(enqueuer.enqueued).To(BeEmpty())
	})

	It("stops enqueueing when the queue reports it is full", func() {
		registry.due = []*store.RegistryEntry{dueEntry("AAPL"), dueEntry("MSFT")}
		enqueuer.err = ErrQueueFull

		enqueued := scheduler.Sweep(context.Background())
		Expect(enqueued).To(Equal(0))
	})

	It("survives a registry read failure", func() {
		registry.dueErr = errors.New("connection refused")

		enqueued := scheduler.Sweep(context.Background())
		Expect(enqueued).To(Equal(0))
	})
})
