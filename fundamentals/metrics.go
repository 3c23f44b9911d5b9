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

import "math"

// Derive computes secondary values from the canonical record. Derivations are
// null-safe: a missing input yields a nil output, never a fabricated default.
func Derive(period *Period) {
	deriveGrossProfit(period)
	deriveFreeCashFlow(period)
	deriveTotalDebt(period)
	deriveTechSpend(period)
}

func deriveGrossProfit(period *Period) {
	if period.GrossProfit != nil {
		return
	}
	if period.Revenue == nil || period.CostOfRevenue == nil {
		return
	}

	gp := *period.Revenue - *period.CostOfRevenue
	period.GrossProfit = &gp
	period.FlowMeta["gross_profit"] = Provenance{Tag: "derived:revenue-cost_of_revenue"}
}

// deriveFreeCashFlow subtracts capex from operating cash flow. Capex is
// reported as a cash outflow with inconsistent sign conventions across filers,
// so its absolute value is used.
func deriveFreeCashFlow(period *Period) {
	if period.FreeCashFlow != nil {
		return
	}
	if period.OperatingCashFlow == nil || period.CapitalExpenditure == nil {
		return
	}

	fcf := *period.OperatingCashFlow - math.Abs(*period.CapitalExpenditure)
	period.FreeCashFlow = &fcf
	period.FlowMeta["free_cash_flow"] = Provenance{Tag: "derived:ocf-capex"}
}

// deriveTotalDebt sums the resolved long-term/short-term/lease components and
// reconciles against a directly reported total-debt tag by taking the larger
// of the two. Component sums can undercount (unranked instruments) and the
// reported aggregate can lag, so neither is trusted alone.
func deriveTotalDebt(period *Period) {
	var sum float64
	have := false

	for _, component := range []*float64{period.LongTermDebt, period.ShortTermDebt, period.LeaseObligations} {
		if component != nil {
			sum += *component
			have = true
		}
	}

	reported := period.TotalDebt

	switch {
	case have && reported != nil:
		if sum > *reported {
			period.TotalDebt = &sum
			period.FlowMeta["total_debt"] = Provenance{Tag: "derived:component-sum"}
		}
	case have:
		period.TotalDebt = &sum
		period.FlowMeta["total_debt"] = Provenance{Tag: "derived:component-sum"}
	}
}

// deriveTechSpend approximates technology investment as R&D plus capitalized
// software spend; there is no dedicated tag for it.
func deriveTechSpend(period *Period) {
	if period.RAndDExpense == nil && period.SoftwareSpend == nil {
		return
	}

	spend := 0.0
	if period.RAndDExpense != nil {
		spend += *period.RAndDExpense
	}
	if period.SoftwareSpend != nil {
		spend += *period.SoftwareSpend
	}

	period.TechSpend = &spend
	period.FlowMeta["tech_spend"] = Provenance{Tag: "derived:r_and_d+software"}
}
