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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fundwell/secdata/fundamentals"
)

var _ = Describe("Snapshot", func() {
	var st *Store

	BeforeEach(func() {
		st = &Store{
			SnapshotDir: GinkgoT().TempDir(),
			SnapshotTTL: time.Hour,
		}
	})

	newSnapshot := func() *Snapshot {
		return &Snapshot{
			Ticker:  "AAPL",
			Name:    "Apple Inc.",
			CIK:     "0000320193",
			Sector:  "Electronic Computers",
			SICCode: "3571",
			Quarters: []*fundamentals.Period{{
				Ticker:     "AAPL",
				PeriodType: fundamentals.Quarter,
				PeriodEnd:  time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
				Revenue:    fundamentals.Float(94930000000),
			}},
		}
	}

	It("round-trips the read model through disk", func() {
		Expect(st.WriteSnapshot(newSnapshot())).To(Succeed())

		loaded, err := st.ReadSnapshot("AAPL")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Name).To(Equal("Apple Inc."))
		Expect(loaded.Quarters).To(HaveLen(1))
		Expect(loaded.Quarters[0].Revenue).To(HaveValue(Equal(94930000000.0)))
	})

	It("reports a missing snapshot distinctly", func() {
		_, err := st.ReadSnapshot("MSFT")
		Expect(err).To(MatchError(ErrNoSnapshot))
	})

	It("treats a freshly written snapshot as fresh", func() {
		Expect(st.WriteSnapshot(newSnapshot())).To(Succeed())
		Expect(st.SnapshotFresh("AAPL")).To(BeTrue())
		Expect(st.SnapshotFresh("MSFT")).To(BeFalse())
	})

	It("expires snapshots past the TTL", func() {
		st.SnapshotTTL = time.Nanosecond
		Expect(st.WriteSnapshot(newSnapshot())).To(Succeed())

		Eventually(func() bool {
			return st.SnapshotFresh("AAPL")
		}).Should(BeFalse())
	})

	It("preserves previously recorded risk notes across rewrites", func() {
		first := newSnapshot()
		first.RiskNotes = []RiskNote{{
			Kind:      "share_split",
			Detail:    "4-for-1 split detected",
			PeriodEnd: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		}}
		Expect(st.WriteSnapshot(first)).To(Succeed())

		// a later refresh that saw no split must not erase the note
		Expect(st.WriteSnapshot(newSnapshot())).To(Succeed())

		loaded, err := st.ReadSnapshot("AAPL")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.RiskNotes).To(HaveLen(1))
		Expect(loaded.RiskNotes[0].Kind).To(Equal("share_split"))
	})

	It("drops duplicate risk notes for the same event", func() {
		note := RiskNote{
			Kind:      "share_split",
			PeriodEnd: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		}

		first := newSnapshot()
		first.RiskNotes = []RiskNote{note}
		Expect(st.WriteSnapshot(first)).To(Succeed())

		second := newSnapshot()
		second.RiskNotes = []RiskNote{note}
		Expect(st.WriteSnapshot(second)).To(Succeed())

		loaded, err := st.ReadSnapshot("AAPL")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.RiskNotes).To(HaveLen(1))
	})

	It("builds a risk note from a split signal", func() {
		signal := &fundamentals.SplitSignal{
			Ratio:            4.0,
			CurrentPeriodEnd: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
			PriorPeriodEnd:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		}

		note := SplitRiskNote(signal)
		Expect(note.Kind).To(Equal("share_split"))
		Expect(note.PeriodEnd).To(Equal(signal.CurrentPeriodEnd))
		Expect(note.Detail).To(ContainSubstring("4.00x"))

		signal.Reverse = true
		Expect(SplitRiskNote(signal).Kind).To(Equal("reverse_share_split"))
	})
})
