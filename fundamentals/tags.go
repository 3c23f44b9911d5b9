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

// ConceptKind controls how competing facts for a concept are reconciled.
type ConceptKind int

const (
	// FlowConcept accumulates over a duration (income, cash flow). Filers
	// report both 3-month and year-to-date values under the same tag family,
	// so the builder must pick the true single-period window.
	FlowConcept ConceptKind = iota

	// PointInTimeConcept is valid at an instant (balance sheet). Duplicates
	// across alternate tags are rarely full double counts but are sometimes
	// partially populated, so the larger magnitude wins.
	PointInTimeConcept
)

// TagRef identifies a concrete XBRL tag within a taxonomy namespace.
type TagRef struct {
	Taxonomy string
	Tag      string
}

// Concept maps a canonical Period field to its candidate tags, in priority
// order across taxonomies (us-gaap first, then ifrs-full, then dei).
type Concept struct {
	Name string
	Kind ConceptKind
	Tags []TagRef
}

func gaap(tags ...string) []TagRef {
	refs := make([]TagRef, 0, len(tags))
	for _, t := range tags {
		refs = append(refs, TagRef{Taxonomy: "us-gaap", Tag: t})
	}
	return refs
}

func withIFRS(refs []TagRef, tags ...string) []TagRef {
	for _, t := range tags {
		refs = append(refs, TagRef{Taxonomy: "ifrs-full", Tag: t})
	}
	return refs
}

// Concepts is the curated list of financial concepts collected for every
// issuer. Order within each tag list matters: it is the scan priority.
var Concepts = []Concept{
	{Name: "revenue", Kind: FlowConcept, Tags: withIFRS(gaap(
		"Revenues",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"RevenueFromContractWithCustomerIncludingAssessedTax",
		"SalesRevenueNet",
		"SalesRevenueGoodsNet"), "Revenue")},
	{Name: "cost_of_revenue", Kind: FlowConcept, Tags: withIFRS(gaap(
		"CostOfRevenue",
		"CostOfGoodsAndServicesSold",
		"CostOfGoodsSold"), "CostOfSales")},
	{Name: "gross_profit", Kind: FlowConcept, Tags: withIFRS(gaap("GrossProfit"), "GrossProfit")},
	{Name: "operating_income", Kind: FlowConcept, Tags: withIFRS(gaap("OperatingIncomeLoss"),
		"ProfitLossFromOperatingActivities")},
	{Name: "operating_expenses", Kind: FlowConcept, Tags: gaap("OperatingExpenses", "CostsAndExpenses")},
	{Name: "r_and_d_expense", Kind: FlowConcept, Tags: gaap(
		"ResearchAndDevelopmentExpense",
		"ResearchAndDevelopmentExpenseExcludingAcquiredInProcessCost")},
	{Name: "software_spend", Kind: FlowConcept, Tags: gaap(
		"CapitalizedComputerSoftwareAdditions",
		"PaymentsToDevelopSoftware")},
	{Name: "sga_expense", Kind: FlowConcept, Tags: gaap(
		"SellingGeneralAndAdministrativeExpense",
		"GeneralAndAdministrativeExpense")},
	{Name: "interest_expense", Kind: FlowConcept, Tags: gaap("InterestExpense", "InterestExpenseDebt")},
	{Name: "income_tax_expense", Kind: FlowConcept, Tags: gaap("IncomeTaxExpenseBenefit")},
	{Name: "net_income", Kind: FlowConcept, Tags: withIFRS(gaap(
		"NetIncomeLoss",
		"ProfitLoss",
		"NetIncomeLossAvailableToCommonStockholdersBasic"), "ProfitLoss")},
	{Name: "eps_basic", Kind: FlowConcept, Tags: withIFRS(gaap("EarningsPerShareBasic"),
		"BasicEarningsLossPerShare")},
	{Name: "eps_diluted", Kind: FlowConcept, Tags: withIFRS(gaap("EarningsPerShareDiluted"),
		"DilutedEarningsLossPerShare")},
	{Name: "weighted_average_shares", Kind: FlowConcept, Tags: gaap(
		"WeightedAverageNumberOfSharesOutstandingBasic")},
	{Name: "weighted_average_shares_diluted", Kind: FlowConcept, Tags: gaap(
		"WeightedAverageNumberOfDilutedSharesOutstanding")},

	{Name: "operating_cash_flow", Kind: FlowConcept, Tags: withIFRS(gaap(
		"NetCashProvidedByUsedInOperatingActivities",
		"NetCashProvidedByUsedInOperatingActivitiesContinuingOperations"),
		"CashFlowsFromUsedInOperatingActivities")},
	{Name: "capital_expenditure", Kind: FlowConcept, Tags: gaap(
		"PaymentsToAcquirePropertyPlantAndEquipment",
		"PaymentsToAcquireProductiveAssets",
		"PaymentsForCapitalImprovements")},
	{Name: "dividends_paid", Kind: FlowConcept, Tags: gaap(
		"PaymentsOfDividendsCommonStock",
		"PaymentsOfDividends")},
	{Name: "share_repurchases", Kind: FlowConcept, Tags: gaap("PaymentsForRepurchaseOfCommonStock")},
	{Name: "depreciation_amortization", Kind: FlowConcept, Tags: gaap(
		"DepreciationDepletionAndAmortization",
		"DepreciationAmortizationAndAccretionNet",
		"Depreciation")},
	{Name: "share_based_compensation", Kind: FlowConcept, Tags: gaap("ShareBasedCompensation")},

	{Name: "total_assets", Kind: PointInTimeConcept, Tags: withIFRS(gaap("Assets"), "Assets")},
	{Name: "current_assets", Kind: PointInTimeConcept, Tags: gaap("AssetsCurrent")},
	{Name: "cash", Kind: PointInTimeConcept, Tags: withIFRS(gaap(
		"CashAndCashEquivalentsAtCarryingValue",
		"CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalents"),
		"CashAndCashEquivalents")},
	{Name: "short_term_investments", Kind: PointInTimeConcept, Tags: gaap(
		"ShortTermInvestments",
		"AvailableForSaleSecuritiesDebtSecuritiesCurrent")},
	{Name: "receivables", Kind: PointInTimeConcept, Tags: gaap(
		"AccountsReceivableNetCurrent",
		"ReceivablesNetCurrent")},
	{Name: "inventory", Kind: PointInTimeConcept, Tags: withIFRS(gaap("InventoryNet"), "Inventories")},
	{Name: "ppe_net", Kind: PointInTimeConcept, Tags: withIFRS(gaap("PropertyPlantAndEquipmentNet"),
		"PropertyPlantAndEquipment")},
	{Name: "goodwill", Kind: PointInTimeConcept, Tags: withIFRS(gaap("Goodwill"), "Goodwill")},
	{Name: "intangibles", Kind: PointInTimeConcept, Tags: gaap(
		"FiniteLivedIntangibleAssetsNet",
		"IntangibleAssetsNetExcludingGoodwill")},
	{Name: "total_liabilities", Kind: PointInTimeConcept, Tags: withIFRS(gaap("Liabilities"), "Liabilities")},
	{Name: "current_liabilities", Kind: PointInTimeConcept, Tags: gaap("LiabilitiesCurrent")},
	{Name: "equity", Kind: PointInTimeConcept, Tags: withIFRS(gaap(
		"StockholdersEquity",
		"StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"), "Equity")},
	{Name: "retained_earnings", Kind: PointInTimeConcept, Tags: gaap("RetainedEarningsAccumulatedDeficit")},
	{Name: "deposits", Kind: PointInTimeConcept, Tags: gaap("Deposits")},
	{Name: "deferred_revenue", Kind: PointInTimeConcept, Tags: gaap(
		"ContractWithCustomerLiability",
		"DeferredRevenue")},
	{Name: "deferred_revenue_current", Kind: PointInTimeConcept, Tags: gaap(
		"ContractWithCustomerLiabilityCurrent",
		"DeferredRevenueCurrent")},
	{Name: "deferred_revenue_noncurrent", Kind: PointInTimeConcept, Tags: gaap(
		"ContractWithCustomerLiabilityNoncurrent",
		"DeferredRevenueNoncurrent")},

	{Name: "shares_outstanding", Kind: PointInTimeConcept, Tags: []TagRef{
		{Taxonomy: "dei", Tag: "EntityCommonStockSharesOutstanding"},
		{Taxonomy: "us-gaap", Tag: "CommonStockSharesOutstanding"},
		{Taxonomy: "us-gaap", Tag: "CommonStockSharesIssued"},
	}},
}

// DebtComponent holds the ranked tag list for one debt concept. Tags describe
// overlapping views of the same liability, so only the highest-ranked tag with
// data for a period is used. Summing two of these tags double counts debt.
type DebtComponent struct {
	Name string
	Tags []TagRef
}

// Debt tag priorities are empirically tuned against filer behavior; change
// them only with domain validation.
var DebtComponents = []DebtComponent{
	{Name: "long_term_debt", Tags: gaap(
		"LongTermDebtNoncurrent",
		"LongTermDebt",
		"LongTermDebtAndCapitalLeaseObligations",
		"LongTermNotesPayable")},
	{Name: "short_term_debt", Tags: gaap(
		"LongTermDebtCurrent",
		"DebtCurrent",
		"ShortTermBorrowings",
		"CommercialPaper")},
	{Name: "lease_obligations", Tags: gaap(
		"OperatingLeaseLiabilityNoncurrent",
		"FinanceLeaseLiabilityNoncurrent",
		"OperatingLeaseLiability",
		"CapitalLeaseObligationsNoncurrent")},
	{Name: "total_debt", Tags: gaap(
		"DebtLongtermAndShorttermCombinedAmount",
		"LongTermDebtAndCapitalLeaseObligationsIncludingCurrentMaturities")},
}

// tagRank returns the priority index of tag within refs, or -1 when absent.
func tagRank(refs []TagRef, taxonomy, tag string) int {
	for idx, ref := range refs {
		if ref.Taxonomy == taxonomy && ref.Tag == tag {
			return idx
		}
	}
	return -1
}

// MeaningfulFields is the set of fields at least one of which a quarter must
// populate to be retained. Quarters that only carry a shares-outstanding fact
// are placeholder rows common for certain filer types and are dropped.
var MeaningfulFields = []string{
	"revenue",
	"net_income",
	"total_assets",
	"deposits",
	"operating_cash_flow",
	"capital_expenditure",
	"free_cash_flow",
	"cash",
}

// setField assigns a concept value to its Period field.
func setField(period *Period, concept string, value float64) {
	v := &value
	switch concept {
	case "revenue":
		period.Revenue = v
	case "cost_of_revenue":
		period.CostOfRevenue = v
	case "gross_profit":
		period.GrossProfit = v
	case "operating_income":
		period.OperatingIncome = v
	case "operating_expenses":
		period.OperatingExpenses = v
	case "r_and_d_expense":
		period.RAndDExpense = v
	case "software_spend":
		period.SoftwareSpend = v
	case "sga_expense":
		period.SGAExpense = v
	case "interest_expense":
		period.InterestExpense = v
	case "income_tax_expense":
		period.IncomeTaxExpense = v
	case "net_income":
		period.NetIncome = v
	case "eps_basic":
		period.EPSBasic = v
	case "eps_diluted":
		period.EPSDiluted = v
	case "weighted_average_shares":
		period.WeightedAverageShares = v
	case "weighted_average_shares_diluted":
		period.WeightedAverageSharesDiluted = v
	case "operating_cash_flow":
		period.OperatingCashFlow = v
	case "capital_expenditure":
		period.CapitalExpenditure = v
	case "free_cash_flow":
		period.FreeCashFlow = v
	case "dividends_paid":
		period.DividendsPaid = v
	case "share_repurchases":
		period.ShareRepurchases = v
	case "depreciation_amortization":
		period.DepreciationAmortization = v
	case "share_based_compensation":
		period.ShareBasedCompensation = v
	case "total_assets":
		period.TotalAssets = v
	case "current_assets":
		period.CurrentAssets = v
	case "cash":
		period.Cash = v
	case "short_term_investments":
		period.ShortTermInvestments = v
	case "receivables":
		period.Receivables = v
	case "inventory":
		period.Inventory = v
	case "ppe_net":
		period.PPENet = v
	case "goodwill":
		period.Goodwill = v
	case "intangibles":
		period.Intangibles = v
	case "total_liabilities":
		period.TotalLiabilities = v
	case "current_liabilities":
		period.CurrentLiabilities = v
	case "equity":
		period.Equity = v
	case "retained_earnings":
		period.RetainedEarnings = v
	case "deposits":
		period.Deposits = v
	case "deferred_revenue":
		period.DeferredRevenue = v
	case "deferred_revenue_current":
		period.DeferredRevenueCurrent = v
	case "deferred_revenue_noncurrent":
		period.DeferredRevenueNonCurrent = v
	case "long_term_debt":
		period.LongTermDebt = v
	case "short_term_debt":
		period.ShortTermDebt = v
	case "lease_obligations":
		period.LeaseObligations = v
	case "total_debt":
		period.TotalDebt = v
	case "shares_outstanding":
		period.SharesOutstanding = v
	}
}

// getField reads a concept value back from its Period field.
func getField(period *Period, concept string) *float64 {
	switch concept {
	case "revenue":
		return period.Revenue
	case "cost_of_revenue":
		return period.CostOfRevenue
	case "gross_profit":
		return period.GrossProfit
	case "operating_income":
		return period.OperatingIncome
	case "operating_expenses":
		return period.OperatingExpenses
	case "r_and_d_expense":
		return period.RAndDExpense
	case "software_spend":
		return period.SoftwareSpend
	case "sga_expense":
		return period.SGAExpense
	case "interest_expense":
		return period.InterestExpense
	case "income_tax_expense":
		return period.IncomeTaxExpense
	case "net_income":
		return period.NetIncome
	case "eps_basic":
		return period.EPSBasic
	case "eps_diluted":
		return period.EPSDiluted
	case "weighted_average_shares":
		return period.WeightedAverageShares
	case "weighted_average_shares_diluted":
		return period.WeightedAverageSharesDiluted
	case "operating_cash_flow":
		return period.OperatingCashFlow
	case "capital_expenditure":
		return period.CapitalExpenditure
	case "free_cash_flow":
		return period.FreeCashFlow
	case "dividends_paid":
		return period.DividendsPaid
	case "share_repurchases":
		return period.ShareRepurchases
	case "depreciation_amortization":
		return period.DepreciationAmortization
	case "share_based_compensation":
		return period.ShareBasedCompensation
	case "total_assets":
		return period.TotalAssets
	case "current_assets":
		return period.CurrentAssets
	case "cash":
		return period.Cash
	case "short_term_investments":
		return period.ShortTermInvestments
	case "receivables":
		return period.Receivables
	case "inventory":
		return period.Inventory
	case "ppe_net":
		return period.PPENet
	case "goodwill":
		return period.Goodwill
	case "intangibles":
		return period.Intangibles
	case "total_liabilities":
		return period.TotalLiabilities
	case "current_liabilities":
		return period.CurrentLiabilities
	case "equity":
		return period.Equity
	case "retained_earnings":
		return period.RetainedEarnings
	case "deposits":
		return period.Deposits
	case "deferred_revenue":
		return period.DeferredRevenue
	case "deferred_revenue_current":
		return period.DeferredRevenueCurrent
	case "deferred_revenue_noncurrent":
		return period.DeferredRevenueNonCurrent
	case "long_term_debt":
		return period.LongTermDebt
	case "short_term_debt":
		return period.ShortTermDebt
	case "lease_obligations":
		return period.LeaseObligations
	case "total_debt":
		return period.TotalDebt
	case "shares_outstanding":
		return period.SharesOutstanding
	}
	return nil
}
