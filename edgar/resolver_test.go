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
package edgar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fundwell/secdata/fetch"
)

const directoryPayload = `{
	"fields": ["cik", "name", "ticker", "exchange"],
	"data": [
		[320193, "Apple Inc.", "AAPL", "Nasdaq"],
		[789019, "MICROSOFT CORP", "MSFT", "Nasdaq"],
		[1318605, "Tesla, Inc.", "TSLA", "Nasdaq"]
	]
}`

var _ = Describe("Resolver", func() {
	var (
		server   *httptest.Server
		resolver *Resolver
		payload  string
		status   int
	)

	BeforeEach(func() {
		payload = directoryPayload
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(payload))
		}))

		client := fetch.New("test test@example.com", time.Millisecond).
			SetMaxAttempts(1)
		resolver = NewResolver(client, "", time.Hour)
		resolver.url = server.URL
	})

	AfterEach(func() {
		server.Close()
	})

	It("resolves a ticker to its zero-padded CIK", func() {
		ref, err := resolver.Resolve(context.Background(), "aapl")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Ticker).To(Equal("AAPL"))
		Expect(ref.CIK).To(Equal("0000320193"))
		Expect(ref.Name).To(Equal("Apple Inc."))
	})

	It("serves repeated lookups from the cached directory", func() {
		_, err := resolver.Resolve(context.Background(), "MSFT")
		Expect(err).NotTo(HaveOccurred())

		// break the remote; cached entries must still resolve
		status = http.StatusInternalServerError
		ref, err := resolver.Resolve(context.Background(), "TSLA")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.CIK).To(Equal("0001318605"))
	})

	It("reports unknown tickers distinctly from infrastructure failures", func() {
		_, err := resolver.Resolve(context.Background(), "ZZZZZZ")
		Expect(err).To(MatchError(ErrTickerNotFound))
	})

	It("fails with a directory error when cold and unreachable", func() {
		status = http.StatusInternalServerError
		_, err := resolver.Resolve(context.Background(), "AAPL")
		Expect(err).To(MatchError(ErrNoDirectory))
	})

	Context("with a local fallback file", func() {
		It("loads the fallback when the remote is unreachable", func() {
			dir := GinkgoT().TempDir()
			fallback := filepath.Join(dir, "tickers.csv")
			csv := "cik,ticker,name,exchange\n320193,AAPL,Apple Inc.,Nasdaq\n"
			Expect(os.WriteFile(fallback, []byte(csv), 0o644)).To(Succeed())

			status = http.StatusInternalServerError
			client := fetch.New("test test@example.com", time.Millisecond).
				SetMaxAttempts(1)
			fbResolver := NewResolver(client, fallback, time.Hour)
			fbResolver.url = server.URL

			ref, err := fbResolver.Resolve(context.Background(), "AAPL")
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.CIK).To(Equal("0000320193"))
		})
	})
})
