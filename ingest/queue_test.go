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
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeIngester records calls and returns scripted outcomes per ticker.
type fakeIngester struct {
	mu       sync.Mutex
	calls    []string
	outcomes map[string]Outcome
	block    chan struct{}
}

func newFakeIngester() *fakeIngester {
	return &fakeIngester{outcomes: make(map[string]Outcome)}
}

func (fake *fakeIngester) Ingest(ctx context.Context, ticker string) *Result {
	if fake.block != nil {
		select {
		case <-fake.block:
		case <-ctx.Done():
		}
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.calls = append(fake.calls, ticker)

	outcome, ok := fake.outcomes[ticker]
	if !ok {
		outcome = OutcomeOK
	}
	return &Result{Ticker: ticker, Outcome: outcome, NumPeriods: 8}
}

func (fake *fakeIngester) callCount() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.calls)
}

var _ = Describe("Queue", func() {
	var (
		fake  *fakeIngester
		queue *Queue
	)

	BeforeEach(func() {
		fake = newFakeIngester()
		queue = NewQueue(fake).
			SetWorkers(2).
			SetCompletionDelay(time.Millisecond).
			SetNotFoundCooldown(time.Hour)
	})

	It("deduplicates a ticker that is already queued", func() {
		first, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())

		second, err := queue.Enqueue("aapl")
		Expect(err).NotTo(HaveOccurred())
		Expect(second.ID).To(Equal(first.ID))

		pending, _ := queue.Depth()
		Expect(pending).To(Equal(1))
	})

	It("rejects new work at capacity", func() {
		queue.SetCapacity(2)

		_, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())
		_, err = queue.Enqueue("MSFT")
		Expect(err).NotTo(HaveOccurred())

		_, err = queue.Enqueue("TSLA")
		Expect(err).To(MatchError(ErrQueueFull))
	})

	It("processes jobs and delivers results to waiters", func(ctx SpecContext) {
		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go queue.Run(runCtx)

		job, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())

		result, err := job.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(OutcomeOK))
		Expect(result.NumPeriods).To(Equal(8))
	}, SpecTimeout(5*time.Second))

	It("allows re-enqueueing a ticker after its job completes", func(ctx SpecContext) {
		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go queue.Run(runCtx)

		job, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())
		_, err = job.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		again, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.ID).NotTo(Equal(job.ID))

		_, err = again.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.callCount()).To(Equal(2))
	}, SpecTimeout(5*time.Second))

	It("applies a cooldown to tickers that resolved to nothing", func(ctx SpecContext) {
		fake.outcomes["GONE"] = OutcomeNotFound

		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go queue.Run(runCtx)

		job, err := queue.Enqueue("GONE")
		Expect(err).NotTo(HaveOccurred())

		result, err := job.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(OutcomeNotFound))

		_, err = queue.Enqueue("GONE")
		Expect(err).To(MatchError(ErrCoolingDown))
	}, SpecTimeout(5*time.Second))

	It("keeps the terminal job queryable until the next enqueue replaces it", func(ctx SpecContext) {
		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go queue.Run(runCtx)

		job, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())
		_, err = job.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		found, ok := queue.Lookup("AAPL")
		Expect(ok).To(BeTrue())
		Expect(found.ID).To(Equal(job.ID))
		Expect(found.Status()).To(Equal(StatusDone))
		Expect(found.FinishedAt()).NotTo(BeZero())

		again, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())

		replaced, ok := queue.Lookup("AAPL")
		Expect(ok).To(BeTrue())
		Expect(replaced.ID).To(Equal(again.ID))
	}, SpecTimeout(5*time.Second))

	It("returns the in-flight job when the same ticker is enqueued mid-run", func(ctx SpecContext) {
		fake.block = make(chan struct{})

		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go queue.Run(runCtx)

		job, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() int {
			_, inFlight := queue.Depth()
			return inFlight
		}).Should(Equal(1))

		dup, err := queue.Enqueue("AAPL")
		Expect(err).NotTo(HaveOccurred())
		Expect(dup.ID).To(Equal(job.ID))

		close(fake.block)
		_, err = job.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.callCount()).To(Equal(1))
	}, SpecTimeout(5*time.Second))
})
