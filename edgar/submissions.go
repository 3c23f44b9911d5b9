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
	"time"

	"github.com/goccy/go-json"

	"github.com/fundwell/secdata/fetch"
)

const submissionsURL = "https://data.sec.gov/submissions/CIK%s.json"

// statementForms are the filing types recorded in the filing-event log;
// everything else in the submissions feed (ownership forms, prospectuses) is
// noise for fundamentals purposes.
var statementForms = map[string]bool{
	"10-K":   true,
	"10-K/A": true,
	"10-Q":   true,
	"10-Q/A": true,
	"20-F":   true,
	"40-F":   true,
	"6-K":    true,
	"8-K":    true,
}

// CompanyMeta is issuer-level metadata from the submissions endpoint.
type CompanyMeta struct {
	CIK            string
	Name           string
	SICCode        string
	SICDescription string
	Tickers        []string
	Exchanges      []string
	LastFilingDate time.Time
	RecentFilings  []FilingEvent
}

// FilingEvent is one row of the append-only filing-event log.
type FilingEvent struct {
	AccessionNumber string
	Form            string
	FilingDate      time.Time
	PrimaryDocument string
}

type submissionsResponse struct {
	CIK            string   `json:"cik"`
	Name           string   `json:"name"`
	SIC            string   `json:"sic"`
	SICDescription string   `json:"sicDescription"`
	Tickers        []string `json:"tickers"`
	Exchanges      []string `json:"exchanges"`
	Filings        struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// CompanyMeta fetches submissions metadata for an issuer: name, SIC
// classification and the recent statement filings that drive the registry's
// last-filing date and the filing-event log.
func (fc *FactClient) CompanyMeta(ctx context.Context, cik string) (*CompanyMeta, error) {
	url := fmt.Sprintf(fc.submissionsURL, cik)
	body, err := fc.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	var resp submissionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: submissions payload: %s", fetch.ErrStatus, err)
	}

	meta := &CompanyMeta{
		CIK:            cik,
		Name:           resp.Name,
		SICCode:        resp.SIC,
		SICDescription: resp.SICDescription,
		Tickers:        resp.Tickers,
		Exchanges:      resp.Exchanges,
	}

	recent := resp.Filings.Recent
	for idx, form := range recent.Form {
		if idx >= len(recent.FilingDate) || idx >= len(recent.AccessionNumber) {
			break
		}

		filed, err := time.Parse("2006-01-02", recent.FilingDate[idx])
		if err != nil {
			continue
		}

		if filed.After(meta.LastFilingDate) {
			meta.LastFilingDate = filed
		}

		if !statementForms[form] {
			continue
		}

		event := FilingEvent{
			AccessionNumber: recent.AccessionNumber[idx],
			Form:            form,
			FilingDate:      filed,
		}
		if idx < len(recent.PrimaryDocument) {
			event.PrimaryDocument = recent.PrimaryDocument[idx]
		}

		meta.RecentFilings = append(meta.RecentFilings, event)
	}

	return meta, nil
}
