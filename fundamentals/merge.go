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

// fieldKeys enumerates every nullable numeric field key handled by
// setField/getField, including derived fields that have no concept entry.
var fieldKeys = func() []string {
	keys := make([]string, 0, len(Concepts)+len(DebtComponents)+2)
	for _, concept := range Concepts {
		keys = append(keys, concept.Name)
	}
	for _, component := range DebtComponents {
		keys = append(keys, component.Name)
	}
	return append(keys, "free_cash_flow", "tech_spend")
}()

// Merge combines a freshly built period with the previously stored record for
// the same key. Incoming non-nil values win; fields the new ingestion could
// not populate retain their stored value and provenance. A partial re-ingest
// therefore never erases previously known columns.
func Merge(existing, incoming *Period) *Period {
	if existing == nil {
		return incoming
	}
	if incoming == nil {
		return existing
	}

	merged := *incoming
	if merged.FlowMeta == nil {
		merged.FlowMeta = make(ProvenanceMap)
	}

	for _, key := range fieldKeys {
		if getField(&merged, key) != nil {
			continue
		}
		if kept := getField(existing, key); kept != nil {
			setField(&merged, key, *kept)
			if prov, ok := existing.FlowMeta[key]; ok {
				merged.FlowMeta[key] = prov
			}
		}
	}

	if merged.Sector == "" {
		merged.Sector = existing.Sector
	}
	if merged.SICCode == "" {
		merged.SICCode = existing.SICCode
	}
	if merged.FiscalYear == 0 {
		merged.FiscalYear = existing.FiscalYear
	}
	if merged.FiscalPeriod == "" {
		merged.FiscalPeriod = existing.FiscalPeriod
	}

	return &merged
}
