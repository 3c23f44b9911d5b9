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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/fundwell/secdata/fundamentals"
)

var (
	// ErrCloneTicker marks an insert skipped by the clone-ticker guard.
	ErrCloneTicker = errors.New("issuer appears to be a clone listing of an existing ticker")
)

const periodColumns = `ticker, period_type, period_end, fiscal_year, fiscal_period,
revenue, cost_of_revenue, gross_profit, operating_income, operating_expenses,
r_and_d_expense, sga_expense, interest_expense, income_tax_expense, net_income,
eps_basic, eps_diluted, weighted_average_shares, weighted_average_shares_diluted,
operating_cash_flow, capital_expenditure, free_cash_flow, dividends_paid,
share_repurchases, depreciation_amortization, share_based_compensation,
software_spend, tech_spend, total_assets, current_assets, cash,
short_term_investments, receivables, inventory, ppe_net, goodwill, intangibles,
total_liabilities, current_liabilities, equity, retained_earnings, deposits,
deferred_revenue, deferred_revenue_current, deferred_revenue_noncurrent,
long_term_debt, short_term_debt, lease_obligations, total_debt,
shares_outstanding, sector, sic_code, flow_meta, last_updated`

// SavePeriods upserts a normalized period series for one issuer. Each
// incoming record is merged with the stored row for its key before writing so
// that a partial re-ingest never erases previously known columns; the unique
// (ticker, period_type, period_end) key guarantees upserts never duplicate.
// Before an issuer's first row is written, the clone-ticker guard rejects
// duplicate/alternate listings of an entity already stored under a
// one-character-shorter ticker.
func (store *Store) SavePeriods(ctx context.Context, issuerName string, periods []*fundamentals.Period) error {
	if len(periods) == 0 {
		return nil
	}

	conn, err := store.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	ticker := periods[0].Ticker

	known, err := store.hasPeriods(ctx, ticker)
	if err != nil {
		return err
	}
	if !known {
		clone, err := store.isCloneTicker(ctx, ticker, issuerName)
		if err != nil {
			return err
		}
		if clone {
			return fmt.Errorf("%w: %s (%s)", ErrCloneTicker, ticker, issuerName)
		}
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// rollback on any early return; a no-op once the commit went through
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error().Err(err).Str("Ticker", ticker).Msg("rollback failed")
		}
	}()

	now := time.Now()
	for _, incoming := range periods {
		existing, err := store.fetchPeriod(ctx, tx, incoming.Ticker, incoming.PeriodType, incoming.PeriodEnd)
		if err != nil {
			return err
		}

		merged := fundamentals.Merge(existing, incoming)
		merged.LastUpdated = now

		if err := upsertPeriod(ctx, tx, merged); err != nil {
			return err
		}
	}

	// a failed commit means nothing was durably written; the caller must see
	// it as a storage failure, not a completed save
	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("error committing period transaction")
		return err
	}

	return nil
}

func (store *Store) hasPeriods(ctx context.Context, ticker string) (bool, error) {
	count := 0
	err := store.Pool.QueryRow(ctx,
		`SELECT count(*) FROM periods WHERE ticker = $1`, ticker).Scan(&count)
	return count > 0, err
}

func (store *Store) fetchPeriod(ctx context.Context, tx pgx.Tx, ticker string, ptype fundamentals.PeriodType, end time.Time) (*fundamentals.Period, error) {
	rows, err := tx.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM periods WHERE ticker = $1 AND period_type = $2 AND period_end = $3`,
		periodColumns), ticker, ptype, end)
	if err != nil {
		return nil, err
	}

	period := &fundamentals.Period{}
	if err := pgxscan.ScanOne(period, rows); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return period, nil
}

func upsertPeriod(ctx context.Context, tx pgx.Tx, period *fundamentals.Period) error {
	sql := fmt.Sprintf(`INSERT INTO periods (%s) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		$31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42, $43, $44,
		$45, $46, $47, $48, $49, $50, $51, $52, $53, $54
	) ON CONFLICT (ticker, period_type, period_end) DO UPDATE SET
		fiscal_year = EXCLUDED.fiscal_year,
		fiscal_period = EXCLUDED.fiscal_period,
		revenue = EXCLUDED.revenue,
		cost_of_revenue = EXCLUDED.cost_of_revenue,
		gross_profit = EXCLUDED.gross_profit,
		operating_income = EXCLUDED.operating_income,
		operating_expenses = EXCLUDED.operating_expenses,
		r_and_d_expense = EXCLUDED.r_and_d_expense,
		sga_expense = EXCLUDED.sga_expense,
		interest_expense = EXCLUDED.interest_expense,
		income_tax_expense = EXCLUDED.income_tax_expense,
		net_income = EXCLUDED.net_income,
		eps_basic = EXCLUDED.eps_basic,
		eps_diluted = EXCLUDED.eps_diluted,
		weighted_average_shares = EXCLUDED.weighted_average_shares,
		weighted_average_shares_diluted = EXCLUDED.weighted_average_shares_diluted,
		operating_cash_flow = EXCLUDED.operating_cash_flow,
		capital_expenditure = EXCLUDED.capital_expenditure,
		free_cash_flow = EXCLUDED.free_cash_flow,
		dividends_paid = EXCLUDED.dividends_paid,
		share_repurchases = EXCLUDED.share_repurchases,
		depreciation_amortization = EXCLUDED.depreciation_amortization,
		share_based_compensation = EXCLUDED.share_based_compensation,
		software_spend = EXCLUDED.software_spend,
		tech_spend = EXCLUDED.tech_spend,
		total_assets = EXCLUDED.total_assets,
		current_assets = EXCLUDED.current_assets,
		cash = EXCLUDED.cash,
		short_term_investments = EXCLUDED.short_term_investments,
		receivables = EXCLUDED.receivables,
		inventory = EXCLUDED.inventory,
		ppe_net = EXCLUDED.ppe_net,
		goodwill = EXCLUDED.goodwill,
		intangibles = EXCLUDED.intangibles,
		total_liabilities = EXCLUDED.total_liabilities,
		current_liabilities = EXCLUDED.current_liabilities,
		equity = EXCLUDED.equity,
		retained_earnings = EXCLUDED.retained_earnings,
		deposits = EXCLUDED.deposits,
		deferred_revenue = EXCLUDED.deferred_revenue,
		deferred_revenue_current = EXCLUDED.deferred_revenue_current,
		deferred_revenue_noncurrent = EXCLUDED.deferred_revenue_noncurrent,
		long_term_debt = EXCLUDED.long_term_debt,
		short_term_debt = EXCLUDED.short_term_debt,
		lease_obligations = EXCLUDED.lease_obligations,
		total_debt = EXCLUDED.total_debt,
		shares_outstanding = EXCLUDED.shares_outstanding,
		sector = EXCLUDED.sector,
		sic_code = EXCLUDED.sic_code,
		flow_meta = EXCLUDED.flow_meta,
		last_updated = EXCLUDED.last_updated`, periodColumns)

	_, err := tx.Exec(ctx, sql,
		period.Ticker,
		period.PeriodType,
		period.PeriodEnd,
		period.FiscalYear,
		period.FiscalPeriod,
		period.Revenue,
		period.CostOfRevenue,
		period.GrossProfit,
		period.OperatingIncome,
		period.OperatingExpenses,
		period.RAndDExpense,
		period.SGAExpense,
		period.InterestExpense,
		period.IncomeTaxExpense,
		period.NetIncome,
		period.EPSBasic,
		period.EPSDiluted,
		period.WeightedAverageShares,
		period.WeightedAverageSharesDiluted,
		period.OperatingCashFlow,
		period.CapitalExpenditure,
		period.FreeCashFlow,
		period.DividendsPaid,
		period.ShareRepurchases,
		period.DepreciationAmortization,
		period.ShareBasedCompensation,
		period.SoftwareSpend,
		period.TechSpend,
		period.TotalAssets,
		period.CurrentAssets,
		period.Cash,
		period.ShortTermInvestments,
		period.Receivables,
		period.Inventory,
		period.PPENet,
		period.Goodwill,
		period.Intangibles,
		period.TotalLiabilities,
		period.CurrentLiabilities,
		period.Equity,
		period.RetainedEarnings,
		period.Deposits,
		period.DeferredRevenue,
		period.DeferredRevenueCurrent,
		period.DeferredRevenueNonCurrent,
		period.LongTermDebt,
		period.ShortTermDebt,
		period.LeaseObligations,
		period.TotalDebt,
		period.SharesOutstanding,
		period.Sector,
		period.SICCode,
		period.FlowMeta,
		period.LastUpdated,
	)
	if err != nil {
		log.Error().Err(err).Str("Ticker", period.Ticker).
			Str("PeriodType", string(period.PeriodType)).
			Time("PeriodEnd", period.PeriodEnd).
			Msg("save period to DB failed")
	}

	return err
}

// FetchFundamentals returns the stored period series for a ticker, most
// recent first.
func (store *Store) FetchFundamentals(ctx context.Context, ticker string) ([]*fundamentals.Period, error) {
	var periods []*fundamentals.Period
	err := pgxscan.Select(ctx, store.Pool, &periods, fmt.Sprintf(
		`SELECT %s FROM periods WHERE ticker = $1 ORDER BY period_end DESC, period_type ASC`,
		periodColumns), strings.ToUpper(ticker))
	return periods, err
}

// isCloneTicker checks whether the incoming issuer duplicates an entity
// already stored under a ticker one character shorter with the same
// alphanumeric prefix -- the common pattern for duplicate/alternate listings
// (e.g. GOOGL vs GOOG-style clones produced by directory quirks).
func (store *Store) isCloneTicker(ctx context.Context, ticker, issuerName string) (bool, error) {
	if len(ticker) < 2 {
		return false, nil
	}

	shorter := ticker[:len(ticker)-1]

	var storedName string
	err := store.Pool.QueryRow(ctx,
		`SELECT name FROM registry WHERE ticker = $1`, shorter).Scan(&storedName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	if storedName == "" {
		return false, nil
	}

	return normalizeIssuerName(storedName) == normalizeIssuerName(issuerName), nil
}

// corporate suffixes stripped before clone comparison
var nameSuffixes = []string{"inc", "incorporated", "corp", "corporation", "co", "company", "ltd", "plc", "sa", "nv", "ag", "holdings", "group"}

func normalizeIssuerName(name string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			builder.WriteRune(r)
		}
	}

	words := strings.Fields(builder.String())
	for len(words) > 0 {
		last := words[len(words)-1]
		drop := false
		for _, suffix := range nameSuffixes {
			if last == suffix {
				drop = true
				break
			}
		}
		if !drop {
			break
		}
		words = words[:len(words)-1]
	}

	return strings.Join(words, " ")
}
