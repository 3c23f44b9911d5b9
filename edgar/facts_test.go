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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fundwell/secdata/fetch"
)

const companyFactsPayload = `{
	"cik": 320193,
	"entityName": "Apple Inc.",
	"facts": {
		"us-gaap": {
			"Revenues": {
				"units": {
					"USD": [
						{"start": "2024-07-01", "end": "2024-09-30", "val": 94930000000,
						 "fy": 2024, "fp": "Q4", "form": "10-K", "filed": "2024-11-01",
						 "frame": "CY2024Q3"},
						{"start": "2023-10-01", "end": "2024-09-30", "val": 391035000000,
						 "fy": 2024, "fp": "FY", "form": "10-K", "filed": "2024-11-01"}
					]
				}
			},
			"Assets": {
				"units": {
					"USD": [
						{"end": "2024-09-30", "val": 364980000000, "fy": 2024,
						 "fp": "FY", "form": "10-K", "filed": "2024-11-01"}
					]
				}
			}
		},
		"dei": {
			"EntityCommonStockSharesOutstanding": {
				"units": {
					"shares": [
						{"end": "2024-10-18", "val": 15115823000, "fy": 2024,
						 "fp": "FY", "form": "10-K", "filed": "2024-11-01"}
					]
				}
			}
		}
	}
}`

var _ = Describe("FactClient", func() {
	var (
		server  *httptest.Server
		fc      *FactClient
		payload string
	)

	BeforeEach(func() {
		payload = companyFactsPayload
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		}))

		client := fetch.New("test test@example.com", time.Millisecond).SetMaxAttempts(1)
		fc = NewFactClient(client)
		fc.factsURL = server.URL + "/CIK%s.json"
	})

	AfterEach(func() {
		server.Close()
	})

	It("collects facts for every matching concept tag", func() {
		collected, err := fc.CollectFacts(context.Background(), "0000320193")
		Expect(err).NotTo(HaveOccurred())

		Expect(collected).To(HaveKey("revenue"))
		Expect(collected).To(HaveKey("total_assets"))
		Expect(collected).To(HaveKey("shares_outstanding"))
		Expect(collected["revenue"]).To(HaveLen(2))
	})

	It("computes the duration window of flow facts in quarters", func() {
		collected, err := fc.CollectFacts(context.Background(), "0000320193")
		Expect(err).NotTo(HaveOccurred())

		byDuration := map[int]float64{}
		for _, fact := range collected["revenue"] {
			byDuration[fact.DurationQuarters] = fact.Value
		}
		Expect(byDuration).To(HaveKeyWithValue(1, 94930000000.0))
		Expect(byDuration).To(HaveKeyWithValue(4, 391035000000.0))
	})

	It("carries full provenance on every fact", func() {
		collected, err := fc.CollectFacts(context.Background(), "0000320193")
		Expect(err).NotTo(HaveOccurred())

		found := false
		for _, fact := range collected["revenue"] {
			if fact.DurationQuarters == 1 {
				found = true
				Expect(fact.Tag).To(Equal("Revenues"))
				Expect(fact.Taxonomy).To(Equal("us-gaap"))
				Expect(fact.Form).To(Equal("10-K"))
				Expect(fact.Frame).To(Equal("CY2024Q3"))
				Expect(fact.FiledDate).To(Equal(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)))
				Expect(fact.Currency).To(Equal("USD"))
			}
		}
		Expect(found).To(BeTrue())
	})

	It("skips observations missing a value or end date", func() {
		payload = `{"facts":{"us-gaap":{"Revenues":{"units":{"USD":[
			{"end": "2024-09-30", "fy": 2024, "fp": "Q4"},
			{"val": 100, "fy": 2024, "fp": "Q4"}
		]}}}}}`

		collected, err := fc.CollectFacts(context.Background(), "0000320193")
		Expect(err).NotTo(HaveOccurred())
		Expect(collected).NotTo(HaveKey("revenue"))
	})

	It("rejects payloads without a facts object", func() {
		payload = `{"cik": 320193}`

		_, err := fc.CollectFacts(context.Background(), "0000320193")
		Expect(err).To(MatchError(fetch.ErrStatus))
	})
})

const submissionsPayload = `{
	"cik": "320193",
	"name": "Apple Inc.",
	"sic": "3571",
	"sicDescription": "Electronic Computers",
	"tickers": ["AAPL"],
	"exchanges": ["Nasdaq"],
	"filings": {
		"recent": {
			"accessionNumber": ["0000320193-24-000123", "0000320193-24-000100", "0000320193-24-000080"],
			"filingDate": ["2024-11-01", "2024-08-02", "2024-07-15"],
			"form": ["10-K", "10-Q", "4"],
			"primaryDocument": ["aapl-20240928.htm", "aapl-20240629.htm", "xslF345X05/wk-form4.xml"]
		}
	}
}`

var _ = Describe("CompanyMeta", func() {
	var (
		server *httptest.Server
		fc     *FactClient
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(submissionsPayload))
		}))

		client := fetch.New("test test@example.com", time.Millisecond).SetMaxAttempts(1)
		fc = NewFactClient(client)
		fc.submissionsURL = server.URL + "/CIK%s.json"
	})

	AfterEach(func() {
		server.Close()
	})

	It("extracts issuer classification metadata", func() {
		meta, err := fc.CompanyMeta(context.Background(), "0000320193")
		Expect(err).NotTo(HaveOccurred())
		Expect(meta.Name).To(Equal("Apple Inc."))
		Expect(meta.SICCode).To(Equal("3571"))
		Expect(meta.SICDescription).To(Equal("Electronic Computers"))
	})

	It("tracks the most recent filing date across all forms", func() {
		meta, err := fc.CompanyMeta(context.Background(), "0000320193")
		Expect(err).NotTo(HaveOccurred())
		Expect(meta.LastFilingDate).To(Equal(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)))
	})

	It("keeps only statement filings in the event list", func() {
		meta, err := fc.CompanyMeta(context.Background(), "0000320193")
		Expect(err).NotTo(HaveOccurred())
		Expect(meta.RecentFilings).To(HaveLen(2))
		Expect(meta.RecentFilings[0].Form).To(Equal("10-K"))
		Expect(meta.RecentFilings[1].Form).To(Equal("10-Q"))
	})
})
