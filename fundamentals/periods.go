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
package fundamentals

import (
	"math"
	"sort"
	"time"
)

// BuildOptions bounds how much history a normalized series retains. Recent
// periods are kept; full historical depth is traded for bounded storage and
// fast reads.
type BuildOptions struct {
	MaxQuarters int
	MaxYears    int
}

// DefaultBuildOptions keeps roughly three years of quarters and four annual
// periods.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{MaxQuarters: 12, MaxYears: 4}
}

// Normalize runs the full pipeline over collected facts: build canonical
// periods, derive secondary metrics, drop placeholder quarters and bound the
// retained window.
func Normalize(ticker string, facts map[string][]RawFact, opts BuildOptions) []*Period {
	periods := BuildPeriods(ticker, facts)
	for _, period := range periods {
		Derive(period)
	}
	periods = FilterMeaningful(periods)
	return BoundWindow(periods, opts)
}

type periodKey struct {
	ptype PeriodType
	end   time.Time
}

// BuildPeriods merges raw facts into one canonical record per
// (periodType, periodEnd). Competing facts for the same concept and period are
// reconciled according to the concept kind; debt components resolve through
// their ranked tag lists.
func BuildPeriods(ticker string, facts map[string][]RawFact) []*Period {
	grouped := make(map[periodKey]map[string][]RawFact)

	addFact := func(concept string, fact RawFact) {
		ptype, ok := classify(fact)
		if !ok {
			return
		}
		key := periodKey{ptype: ptype, end: fact.End}
		if grouped[key] == nil {
			grouped[key] = make(map[string][]RawFact)
		}
		grouped[key][concept] = append(grouped[key][concept], fact)
	}

	for _, concept := range Concepts {
		for _, fact := range facts[concept.Name] {
			addFact(concept.Name, fact)
		}
	}
	for _, component := range DebtComponents {
		for _, fact := range facts[component.Name] {
			addFact(component.Name, fact)
		}
	}

	periods := make([]*Period, 0, len(grouped))
	for key, conceptFacts := range grouped {
		period := &Period{
			Ticker:     ticker,
			PeriodType: key.ptype,
			PeriodEnd:  key.end,
			FlowMeta:   make(ProvenanceMap),
		}

		stampFiscalLabel(period, conceptFacts)

		for _, concept := range Concepts {
			candidates := conceptFacts[concept.Name]
			if len(candidates) == 0 {
				continue
			}

			var winner RawFact
			if concept.Kind == FlowConcept {
				winner = resolveFlow(candidates, key.ptype)
			} else {
				winner = resolvePointInTime(candidates)
			}

			setField(period, concept.Name, winner.Value)
			period.FlowMeta[concept.Name] = provenanceOf(winner)
		}

		for _, component := range DebtComponents {
			candidates := conceptFacts[component.Name]
			if len(candidates) == 0 {
				continue
			}

			winner, ok := resolveDebtComponent(component, candidates)
			if !ok {
				continue
			}

			setField(period, component.Name, winner.Value)
			period.FlowMeta[component.Name] = provenanceOf(winner)
		}

		deriveDeferredRevenue(period)

		periods = append(periods, period)
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].PeriodEnd.After(periods[j].PeriodEnd)
	})

	return periods
}

// classify maps a fact's fiscal-period label to quarter or year. Half-year
// labels are treated as interim quarters so trend consumers still see them.
// A single-quarter-duration fact labeled FY is the fourth-quarter value
// reported inside the annual filing and belongs to the quarter series.
func classify(fact RawFact) (PeriodType, bool) {
	switch fact.FiscalPeriod {
	case "Q1", "Q2", "Q3", "Q4":
		return Quarter, true
	case "H1", "H2":
		return Quarter, true
	case "FY":
		if fact.DurationQuarters == 1 {
			return Quarter, true
		}
		return Year, true
	}
	return "", false
}

// isYearToDate reports whether a flow fact covers a cumulative window rather
// than a single reporting period.
func isYearToDate(fact RawFact) bool {
	return fact.DurationQuarters > 1
}

// resolveFlow picks the winning fact for a flow concept. Filers report both
// quarterly and cumulative year-to-date values under the same tag family;
// taking "any" value silently mixes 3-month and 9-month amounts. For quarters
// the fact whose window starts latest (true single-quarter duration) and is
// not year-to-date wins; for years the earliest start (full fiscal year) wins.
// Ties break on the most recent filing date.
func resolveFlow(candidates []RawFact, ptype PeriodType) RawFact {
	best := candidates[0]
	for _, challenger := range candidates[1:] {
		if flowBeats(challenger, best, ptype) {
			best = challenger
		}
	}
	return best
}

func flowBeats(a, b RawFact, ptype PeriodType) bool {
	if ptype == Quarter {
		if isYearToDate(a) != isYearToDate(b) {
			return !isYearToDate(a)
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.After(b.Start)
		}
	} else {
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
	}
	return a.FiledDate.After(b.FiledDate)
}

// resolvePointInTime picks the winning fact for a balance-sheet concept.
// Duplicates across alternate tags are rarely full double counts but are
// sometimes partially populated, so the larger magnitude wins.
func resolvePointInTime(candidates []RawFact) RawFact {
	best := candidates[0]
	for _, challenger := range candidates[1:] {
		switch {
		case math.Abs(challenger.Value) > math.Abs(best.Value):
			best = challenger
		case math.Abs(challenger.Value) == math.Abs(best.Value) &&
			challenger.FiledDate.After(best.FiledDate):
			best = challenger
		}
	}
	return best
}

// resolveDebtComponent scans the component's ranked tag list and keeps the
// highest-ranked tag that has an observation for the period. Tags lower in the
// ranking describe the same liability and must never be added on top. Multiple
// observations under the winning tag reconcile to the larger magnitude.
func resolveDebtComponent(component DebtComponent, candidates []RawFact) (RawFact, bool) {
	bestRank := len(component.Tags)
	var sameTag []RawFact

	for _, fact := range candidates {
		rank := tagRank(component.Tags, fact.Taxonomy, fact.Tag)
		if rank < 0 {
			continue
		}
		switch {
		case rank < bestRank:
			bestRank = rank
			sameTag = sameTag[:0]
			sameTag = append(sameTag, fact)
		case rank == bestRank:
			sameTag = append(sameTag, fact)
		}
	}

	if len(sameTag) == 0 {
		return RawFact{}, false
	}

	return resolvePointInTime(sameTag), true
}

// deriveDeferredRevenue fills the aggregate from current + noncurrent when no
// aggregate tag was reported.
func deriveDeferredRevenue(period *Period) {
	if period.DeferredRevenue != nil {
		return
	}
	if period.DeferredRevenueCurrent == nil && period.DeferredRevenueNonCurrent == nil {
		return
	}

	total := 0.0
	if period.DeferredRevenueCurrent != nil {
		total += *period.DeferredRevenueCurrent
	}
	if period.DeferredRevenueNonCurrent != nil {
		total += *period.DeferredRevenueNonCurrent
	}

	period.DeferredRevenue = &total
	period.FlowMeta["deferred_revenue"] = Provenance{Tag: "derived:current+noncurrent"}
}

// stampFiscalLabel copies fiscal year/period metadata from the most recently
// filed fact in the group.
func stampFiscalLabel(period *Period, conceptFacts map[string][]RawFact) {
	var latest RawFact
	for _, facts := range conceptFacts {
		for _, fact := range facts {
			if fact.FiledDate.After(latest.FiledDate) {
				latest = fact
			}
		}
	}
	period.FiscalYear = latest.FiscalYear
	period.FiscalPeriod = latest.FiscalPeriod
}

func provenanceOf(fact RawFact) Provenance {
	return Provenance{
		Tag:       fact.Tag,
		Taxonomy:  fact.Taxonomy,
		Frame:     fact.Frame,
		FiledDate: fact.FiledDate,
		Start:     fact.Start,
	}
}

// FilterMeaningful drops quarter records that populate none of the meaningful
// field set. Annual records are always retained.
func FilterMeaningful(periods []*Period) []*Period {
	kept := make([]*Period, 0, len(periods))
	for _, period := range periods {
		if period.PeriodType != Quarter || hasMeaningfulField(period) {
			kept = append(kept, period)
		}
	}
	return kept
}

func hasMeaningfulField(period *Period) bool {
	for _, field := range MeaningfulFields {
		if getField(period, field) != nil {
			return true
		}
	}
	return false
}

// BoundWindow keeps the most recent MaxQuarters quarter records and MaxYears
// annual records from a series already sorted descending by period end.
func BoundWindow(periods []*Period, opts BuildOptions) []*Period {
	kept := make([]*Period, 0, len(periods))
	quarters, years := 0, 0

	for _, period := range periods {
		switch period.PeriodType {
		case Quarter:
			if opts.MaxQuarters <= 0 || quarters < opts.MaxQuarters {
				kept = append(kept, period)
				quarters++
			}
		case Year:
			if opts.MaxYears <= 0 || years < opts.MaxYears {
				kept = append(kept, period)
				years++
			}
		}
	}

	return kept
}
