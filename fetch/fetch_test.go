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
package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fundwell/secdata/fetch"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		mu       sync.Mutex
		requests []time.Time
		handler  http.HandlerFunc
	)

	BeforeEach(func() {
		requests = nil
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			requests = append(requests, time.Now())
			mu.Unlock()
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("sends the declared user agent on every request", func() {
		var gotAgent string
		handler = func(w http.ResponseWriter, r *http.Request) {
			gotAgent = r.Header.Get("User-Agent")
			w.Write([]byte(`{}`))
		}

		client := fetch.New("Research research@example.com", 10*time.Millisecond)
		_, err := client.Get(context.Background(), server.URL)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotAgent).To(Equal("Research research@example.com"))
	})

	It("spaces consecutive requests by at least the pacing interval", func() {
		client := fetch.New("test test@example.com", 100*time.Millisecond)

		ctx := context.Background()
		for idx := 0; idx < 3; idx++ {
			_, err := client.Get(ctx, server.URL)
			Expect(err).NotTo(HaveOccurred())
		}

		mu.Lock()
		defer mu.Unlock()
		Expect(requests).To(HaveLen(3))
		for idx := 1; idx < len(requests); idx++ {
			gap := requests[idx].Sub(requests[idx-1])
			Expect(gap).To(BeNumerically(">=", 90*time.Millisecond))
		}
	})

	It("retries rate-limit responses and succeeds when the service recovers", func() {
		attempts := 0
		handler = func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}

		client := fetch.New("test test@example.com", time.Millisecond).
			SetBackoffBase(time.Millisecond)

		body, err := client.Get(context.Background(), server.URL)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("ok"))
		Expect(attempts).To(Equal(3))
	})

	It("classifies 404 as a permanent not-found without retrying", func() {
		calls := 0
		handler = func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
		}

		client := fetch.New("test test@example.com", time.Millisecond)
		_, err := client.Get(context.Background(), server.URL)
		Expect(err).To(MatchError(fetch.ErrNotFound))
		Expect(calls).To(Equal(1))
	})

	It("surfaces unexpected statuses with the body attached", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("fair access policy violation"))
		}

		client := fetch.New("test test@example.com", time.Millisecond)
		_, err := client.Get(context.Background(), server.URL)
		Expect(err).To(MatchError(fetch.ErrStatus))
		Expect(err.Error()).To(ContainSubstring("fair access policy violation"))
	})

	It("gives up after the bounded retry count when limiting persists", func() {
		calls := 0
		handler = func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusTooManyRequests)
		}

		client := fetch.New("test test@example.com", time.Millisecond).
			SetMaxAttempts(2).
			SetBackoffBase(time.Millisecond)

		_, err := client.Get(context.Background(), server.URL)
		Expect(err).To(MatchError(fetch.ErrRateLimited))
		Expect(calls).To(Equal(2))
	})

	It("trips the process-wide pause after a burst of rate limiting", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}

		client := fetch.New("test test@example.com", time.Millisecond).
			SetMaxAttempts(3).
			SetBackoffBase(time.Millisecond)

		_, err := client.Get(context.Background(), server.URL)
		Expect(err).To(HaveOccurred())
		Expect(client.Paused()).To(BeTrue())

		// new requests are refused without touching the network
		before := len(requests)
		_, err = client.Get(context.Background(), server.URL)
		Expect(err).To(MatchError(fetch.ErrPaused))
		Expect(requests).To(HaveLen(before))
	})

	It("unmarshals JSON responses into the provided result", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"name":"Apple Inc."}`))
		}

		client := fetch.New("test test@example.com", time.Millisecond)

		result := struct {
			Name string `json:"name"`
		}{}
		err := client.GetJSON(context.Background(), server.URL, &result)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Name).To(Equal("Apple Inc."))
	})
})
