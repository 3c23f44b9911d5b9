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
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/fundwell/secdata/fetch"
	"github.com/fundwell/secdata/fundamentals"
)

const companyFactsURL = "https://data.sec.gov/api/xbrl/companyfacts/CIK%s.json"

// FactClient pulls every reported value for the curated concept set from the
// XBRL companyfacts endpoint. It makes a single paced request per issuer and
// extracts facts locally; duplicate arbitration is left to the period builder.
type FactClient struct {
	client         *fetch.Client
	factsURL       string
	submissionsURL string
}

// NewFactClient creates a FactClient sharing the process-wide fetch pacing.
func NewFactClient(client *fetch.Client) *FactClient {
	return &FactClient{
		client:         client,
		factsURL:       companyFactsURL,
		submissionsURL: submissionsURL,
	}
}

// CollectFacts returns raw facts keyed by concept group. Concepts scan their
// taxonomies in the curated priority order; every reported observation is
// returned with full provenance.
func (fc *FactClient) CollectFacts(ctx context.Context, cik string) (map[string][]fundamentals.RawFact, error) {
	url := fmt.Sprintf(fc.factsURL, cik)
	body, err := fc.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	doc := gjson.ParseBytes(body)
	factsNode := doc.Get("facts")
	if !factsNode.Exists() {
		return nil, fmt.Errorf("%w: companyfacts payload missing facts object", fetch.ErrStatus)
	}

	collected := make(map[string][]fundamentals.RawFact)

	for _, concept := range fundamentals.Concepts {
		facts := extractConcept(factsNode, concept.Name, concept.Tags)
		if len(facts) > 0 {
			collected[concept.Name] = facts
		}
	}
	for _, component := range fundamentals.DebtComponents {
		facts := extractConcept(factsNode, component.Name, component.Tags)
		if len(facts) > 0 {
			collected[component.Name] = facts
		}
	}

	log.Debug().Str("CIK", cik).Int("NumConcepts", len(collected)).Msg("collected company facts")
	return collected, nil
}

// extractConcept walks a concept's candidate tags across taxonomies and
// flattens every unit series into RawFacts.
func extractConcept(factsNode gjson.Result, conceptName string, tags []fundamentals.TagRef) []fundamentals.RawFact {
	var facts []fundamentals.RawFact

	for _, ref := range tags {
		tagNode := factsNode.Get(ref.Taxonomy).Get(ref.Tag)
		if !tagNode.Exists() {
			continue
		}

		units := tagNode.Get("units")
		units.ForEach(func(currency, series gjson.Result) bool {
			series.ForEach(func(_, obs gjson.Result) bool {
				fact, ok := parseObservation(obs, conceptName, ref, currency.String())
				if ok {
					facts = append(facts, fact)
				}
				return true
			})
			return true
		})
	}

	return facts
}

func parseObservation(obs gjson.Result, conceptName string, ref fundamentals.TagRef, currency string) (fundamentals.RawFact, bool) {
	valNode := obs.Get("val")
	endNode := obs.Get("end")
	if !valNode.Exists() || !endNode.Exists() {
		return fundamentals.RawFact{}, false
	}

	end, err := time.Parse("2006-01-02", endNode.String())
	if err != nil {
		return fundamentals.RawFact{}, false
	}

	fact := fundamentals.RawFact{
		Tag:          ref.Tag,
		Taxonomy:     ref.Taxonomy,
		ConceptGroup: conceptName,
		End:          end,
		Form:         obs.Get("form").String(),
		FiscalYear:   int(obs.Get("fy").Int()),
		FiscalPeriod: obs.Get("fp").String(),
		Frame:        obs.Get("frame").String(),
		Value:        valNode.Float(),
		Currency:     currency,
	}

	if start := obs.Get("start"); start.Exists() {
		if startDate, err := time.Parse("2006-01-02", start.String()); err == nil {
			fact.Start = startDate
			fact.DurationQuarters = durationQuarters(startDate, end)
		}
	}

	if filed := obs.Get("filed"); filed.Exists() {
		if filedDate, err := time.Parse("2006-01-02", filed.String()); err == nil {
			fact.FiledDate = filedDate
		}
	}

	return fact, true
}

// durationQuarters rounds a reporting window to whole quarters.
func durationQuarters(start, end time.Time) int {
	days := end.Sub(start).Hours() / 24
	quarters := int(math.Round(days / 91.25))
	if quarters < 1 {
		quarters = 1
	}
	return quarters
}
