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

// Package fundamentals normalizes raw XBRL facts into canonical per-period
// financial statement records. Tagging practice varies wildly across filers:
// the same economic quantity is reported under several competing tags, at
// quarterly and year-to-date durations, across GAAP and IFRS namespaces. This
// package owns the reconciliation rules that keep those duplicates from being
// double counted or silently mixed.
package fundamentals

import "time"

// PeriodType distinguishes quarterly from annual records.
type PeriodType string

const (
	Quarter PeriodType = "Q"
	Year    PeriodType = "Y"
)

// RawFact is a single reported XBRL value with full provenance. Facts are
// immutable once collected; all arbitration between competing facts happens in
// the period builder.
type RawFact struct {
	Tag          string
	ConceptGroup string
	Taxonomy     string

	// Start is the beginning of the reporting window for flow concepts; the
	// zero time for point-in-time concepts.
	Start time.Time
	End   time.Time

	FiledDate    time.Time
	Form         string
	FiscalYear   int
	FiscalPeriod string

	// DurationQuarters is the reporting window length rounded to whole
	// quarters; 0 for instant facts.
	DurationQuarters int

	// Frame is the SEC comparable-window tag (e.g. CY2023Q3). Facts carrying
	// a cumulative year-to-date window either have no frame or a frame
	// spanning multiple quarters.
	Frame string

	Value    float64
	Currency string
}

// Provenance records which fact won the reconciliation for a field.
type Provenance struct {
	Tag       string    `json:"tag"`
	Taxonomy  string    `json:"taxonomy,omitempty"`
	Frame     string    `json:"frame,omitempty"`
	FiledDate time.Time `json:"filed"`
	Start     time.Time `json:"start,omitempty"`
}

// ProvenanceMap maps Period field keys to the fact that populated them.
type ProvenanceMap map[string]Provenance

// Period is the canonical per-issuer, per-quarter-or-year record. All numeric
// fields are nullable: a nil pointer means the filer did not report a usable
// value and must never be treated as zero.
type Period struct {
	Ticker     string     `db:"ticker" json:"ticker"`
	PeriodType PeriodType `db:"period_type" json:"period_type"`
	PeriodEnd  time.Time  `db:"period_end" json:"period_end"`

	FiscalYear   int    `db:"fiscal_year" json:"fiscal_year,omitempty"`
	FiscalPeriod string `db:"fiscal_period" json:"fiscal_period,omitempty"`

	// income statement
	Revenue                      *float64 `db:"revenue" json:"revenue,omitempty"`
	CostOfRevenue                *float64 `db:"cost_of_revenue" json:"cost_of_revenue,omitempty"`
	GrossProfit                  *float64 `db:"gross_profit" json:"gross_profit,omitempty"`
	OperatingIncome              *float64 `db:"operating_income" json:"operating_income,omitempty"`
	OperatingExpenses            *float64 `db:"operating_expenses" json:"operating_expenses,omitempty"`
	RAndDExpense                 *float64 `db:"r_and_d_expense" json:"r_and_d_expense,omitempty"`
	SGAExpense                   *float64 `db:"sga_expense" json:"sga_expense,omitempty"`
	InterestExpense              *float64 `db:"interest_expense" json:"interest_expense,omitempty"`
	IncomeTaxExpense             *float64 `db:"income_tax_expense" json:"income_tax_expense,omitempty"`
	NetIncome                    *float64 `db:"net_income" json:"net_income,omitempty"`
	EPSBasic                     *float64 `db:"eps_basic" json:"eps_basic,omitempty"`
	EPSDiluted                   *float64 `db:"eps_diluted" json:"eps_diluted,omitempty"`
	WeightedAverageShares        *float64 `db:"weighted_average_shares" json:"weighted_average_shares,omitempty"`
	WeightedAverageSharesDiluted *float64 `db:"weighted_average_shares_diluted" json:"weighted_average_shares_diluted,omitempty"`

	// cash flow statement
	OperatingCashFlow        *float64 `db:"operating_cash_flow" json:"operating_cash_flow,omitempty"`
	CapitalExpenditure       *float64 `db:"capital_expenditure" json:"capital_expenditure,omitempty"`
	FreeCashFlow             *float64 `db:"free_cash_flow" json:"free_cash_flow,omitempty"`
	DividendsPaid            *float64 `db:"dividends_paid" json:"dividends_paid,omitempty"`
	ShareRepurchases         *float64 `db:"share_repurchases" json:"share_repurchases,omitempty"`
	DepreciationAmortization *float64 `db:"depreciation_amortization" json:"depreciation_amortization,omitempty"`
	ShareBasedCompensation   *float64 `db:"share_based_compensation" json:"share_based_compensation,omitempty"`
	SoftwareSpend            *float64 `db:"software_spend" json:"software_spend,omitempty"`
	TechSpend                *float64 `db:"tech_spend" json:"tech_spend,omitempty"`

	// balance sheet
	TotalAssets               *float64 `db:"total_assets" json:"total_assets,omitempty"`
	CurrentAssets             *float64 `db:"current_assets" json:"current_assets,omitempty"`
	Cash                      *float64 `db:"cash" json:"cash,omitempty"`
	ShortTermInvestments      *float64 `db:"short_term_investments" json:"short_term_investments,omitempty"`
	Receivables               *float64 `db:"receivables" json:"receivables,omitempty"`
	Inventory                 *float64 `db:"inventory" json:"inventory,omitempty"`
	PPENet                    *float64 `db:"ppe_net" json:"ppe_net,omitempty"`
	Goodwill                  *float64 `db:"goodwill" json:"goodwill,omitempty"`
	Intangibles               *float64 `db:"intangibles" json:"intangibles,omitempty"`
	TotalLiabilities          *float64 `db:"total_liabilities" json:"total_liabilities,omitempty"`
	CurrentLiabilities        *float64 `db:"current_liabilities" json:"current_liabilities,omitempty"`
	Equity                    *float64 `db:"equity" json:"equity,omitempty"`
	RetainedEarnings          *float64 `db:"retained_earnings" json:"retained_earnings,omitempty"`
	Deposits                  *float64 `db:"deposits" json:"deposits,omitempty"`
	DeferredRevenue           *float64 `db:"deferred_revenue" json:"deferred_revenue,omitempty"`
	DeferredRevenueCurrent    *float64 `db:"deferred_revenue_current" json:"deferred_revenue_current,omitempty"`
	DeferredRevenueNonCurrent *float64 `db:"deferred_revenue_noncurrent" json:"deferred_revenue_noncurrent,omitempty"`

	// debt components (resolved from ranked tag lists, never cross-summed)
	LongTermDebt     *float64 `db:"long_term_debt" json:"long_term_debt,omitempty"`
	ShortTermDebt    *float64 `db:"short_term_debt" json:"short_term_debt,omitempty"`
	LeaseObligations *float64 `db:"lease_obligations" json:"lease_obligations,omitempty"`
	TotalDebt        *float64 `db:"total_debt" json:"total_debt,omitempty"`

	// share counts
	SharesOutstanding *float64 `db:"shares_outstanding" json:"shares_outstanding,omitempty"`

	// classification metadata from the submissions endpoint
	Sector  string `db:"sector" json:"sector,omitempty"`
	SICCode string `db:"sic_code" json:"sic_code,omitempty"`

	FlowMeta ProvenanceMap `db:"flow_meta" json:"flow_meta,omitempty"`

	LastUpdated time.Time `db:"last_updated" json:"last_updated,omitempty"`
}

// SplitSignal describes a detected share-count discontinuity. It is attached
// to share-change output for auditability and is not separately persisted.
type SplitSignal struct {
	Ratio            float64   `json:"ratio"`
	EPSRatio         float64   `json:"eps_ratio"`
	Residual         float64   `json:"residual"`
	Reverse          bool      `json:"reverse,omitempty"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	PriorPeriodEnd   time.Time `json:"prior_period_end"`
	NetIncomeStable  bool      `json:"net_income_stable"`
}

// Float returns a pointer to v; shorthand for building nullable fields.
func Float(v float64) *float64 {
	return &v
}
