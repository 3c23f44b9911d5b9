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

	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/fundwell/secdata/fundamentals"
)

// periodRow is the flat parquet schema for one period record. Nullable
// numerics map to optional doubles; the provenance map is not exported.
type periodRow struct {
	Ticker            string   `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PeriodType        string   `parquet:"name=period_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PeriodEnd         string   `parquet:"name=period_end, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FiscalYear        int32    `parquet:"name=fiscal_year, type=INT32"`
	FiscalPeriod      string   `parquet:"name=fiscal_period, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Revenue           *float64 `parquet:"name=revenue, type=DOUBLE"`
	CostOfRevenue     *float64 `parquet:"name=cost_of_revenue, type=DOUBLE"`
	GrossProfit       *float64 `parquet:"name=gross_profit, type=DOUBLE"`
	OperatingIncome   *float64 `parquet:"name=operating_income, type=DOUBLE"`
	NetIncome         *float64 `parquet:"name=net_income, type=DOUBLE"`
	EPSBasic          *float64 `parquet:"name=eps_basic, type=DOUBLE"`
	EPSDiluted        *float64 `parquet:"name=eps_diluted, type=DOUBLE"`
	OperatingCashFlow *float64 `parquet:"name=operating_cash_flow, type=DOUBLE"`
	CapEx             *float64 `parquet:"name=capital_expenditure, type=DOUBLE"`
	FreeCashFlow      *float64 `parquet:"name=free_cash_flow, type=DOUBLE"`
	DividendsPaid     *float64 `parquet:"name=dividends_paid, type=DOUBLE"`
	TotalAssets       *float64 `parquet:"name=total_assets, type=DOUBLE"`
	Cash              *float64 `parquet:"name=cash, type=DOUBLE"`
	TotalLiabilities  *float64 `parquet:"name=total_liabilities, type=DOUBLE"`
	Equity            *float64 `parquet:"name=equity, type=DOUBLE"`
	LongTermDebt      *float64 `parquet:"name=long_term_debt, type=DOUBLE"`
	ShortTermDebt     *float64 `parquet:"name=short_term_debt, type=DOUBLE"`
	TotalDebt         *float64 `parquet:"name=total_debt, type=DOUBLE"`
	SharesOutstanding *float64 `parquet:"name=shares_outstanding, type=DOUBLE"`
	Sector            string   `parquet:"name=sector, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SICCode           string   `parquet:"name=sic_code, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	LastUpdated       int64    `parquet:"name=last_updated, type=INT64"`
}

// ExportParquet writes the stored period series for the given tickers to a
// parquet file. Tickers with no stored rows are skipped with a warning.
func (store *Store) ExportParquet(ctx context.Context, tickers []string, fn string) (int, error) {
	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return 0, err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(periodRow), 4)
	if err != nil {
		log.Error().Err(err).Msg("parquet writer setup failed")
		return 0, err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	written := 0
	for _, ticker := range tickers {
		periods, err := store.FetchFundamentals(ctx, ticker)
		if err != nil {
			return written, err
		}
		if len(periods) == 0 {
			log.Warn().Str("Ticker", ticker).Msg("no stored periods; skipping export")
			continue
		}

		for _, period := range periods {
			if err := pw.Write(exportRow(period)); err != nil {
				log.Error().Err(err).Str("Ticker", period.Ticker).
					Time("PeriodEnd", period.PeriodEnd).
					Msg("parquet write failed for record")
				continue
			}
			written++
		}
	}

	if err := pw.WriteStop(); err != nil {
		log.Error().Err(err).Msg("parquet write failed")
		return written, err
	}

	log.Info().Int("NumRecords", written).Str("FileName", fn).Msg("parquet write finished")
	return written, nil
}

func exportRow(period *fundamentals.Period) *periodRow {
	return &periodRow{
		Ticker:            period.Ticker,
		PeriodType:        string(period.PeriodType),
		PeriodEnd:         period.PeriodEnd.Format("2006-01-02"),
		FiscalYear:        int32(period.FiscalYear),
		FiscalPeriod:      period.FiscalPeriod,
		Revenue:           period.Revenue,
		CostOfRevenue:     period.CostOfRevenue,
		GrossProfit:       period.GrossProfit,
		OperatingIncome:   period.OperatingIncome,
		NetIncome:         period.NetIncome,
		EPSBasic:          period.EPSBasic,
		EPSDiluted:        period.EPSDiluted,
		OperatingCashFlow: period.OperatingCashFlow,
		CapEx:             period.CapitalExpenditure,
		FreeCashFlow:      period.FreeCashFlow,
		DividendsPaid:     period.DividendsPaid,
		TotalAssets:       period.TotalAssets,
		Cash:              period.Cash,
		TotalLiabilities:  period.TotalLiabilities,
		Equity:            period.Equity,
		LongTermDebt:      period.LongTermDebt,
		ShortTermDebt:     period.ShortTermDebt,
		TotalDebt:         period.TotalDebt,
		SharesOutstanding: period.SharesOutstanding,
		Sector:            period.Sector,
		SICCode:           period.SICCode,
		LastUpdated:       period.LastUpdated.Unix(),
	}
}
