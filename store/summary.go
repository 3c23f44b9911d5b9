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
	"fmt"
	"strings"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fundwell/secdata/fundamentals"
)

// Summary renders a markdown report of an issuer's stored fundamentals:
// latest quarter and year headline figures, row counts, freshness and any
// accumulated risk notes.
func (store *Store) Summary(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(ticker)

	periods, err := store.FetchFundamentals(ctx, ticker)
	if err != nil {
		return "", err
	}

	printer := message.NewPrinter(language.English)
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("# %s Fundamentals\n\n", ticker))

	if len(periods) == 0 {
		builder.WriteString("No stored periods. Run `secdata refresh " + ticker + "` to ingest.\n")
		return builder.String(), nil
	}

	var quarters, years []*fundamentals.Period
	for _, period := range periods {
		if period.PeriodType == fundamentals.Quarter {
			quarters = append(quarters, period)
		} else {
			years = append(years, period)
		}
	}

	builder.WriteString(printer.Sprintf("%d quarterly and %d annual periods on record; last updated %s.\n\n",
		len(quarters), len(years), timeago.English.Format(periods[0].LastUpdated)))

	if len(quarters) > 0 {
		writePeriodSection(&builder, printer, "Latest Quarter", quarters[0])
	}
	if len(years) > 0 {
		writePeriodSection(&builder, printer, "Latest Fiscal Year", years[0])
	}

	if snap, err := store.ReadSnapshot(ticker); err == nil && len(snap.RiskNotes) > 0 {
		builder.WriteString("## Risk Notes\n\n")
		for _, note := range snap.RiskNotes {
			builder.WriteString(fmt.Sprintf("* **%s** (%s): %s\n",
				note.Kind, note.PeriodEnd.Format("2006-01-02"), note.Detail))
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

func writePeriodSection(builder *strings.Builder, printer *message.Printer, title string, period *fundamentals.Period) {
	builder.WriteString(fmt.Sprintf("## %s (%s %d, ended %s)\n\n",
		title, period.FiscalPeriod, period.FiscalYear,
		period.PeriodEnd.Format("2006-01-02")))

	builder.WriteString("| Metric | Value |\n|--------|------:|\n")
	writeRow(builder, printer, "Revenue", period.Revenue)
	writeRow(builder, printer, "Net Income", period.NetIncome)
	writeRow(builder, printer, "Operating Cash Flow", period.OperatingCashFlow)
	writeRow(builder, printer, "Free Cash Flow", period.FreeCashFlow)
	writeRow(builder, printer, "Total Assets", period.TotalAssets)
	writeRow(builder, printer, "Total Debt", period.TotalDebt)
	writeRow(builder, printer, "Shares Outstanding", period.SharesOutstanding)
	builder.WriteString("\n")
}

func writeRow(builder *strings.Builder, printer *message.Printer, label string, value *float64) {
	if value == nil {
		builder.WriteString(fmt.Sprintf("| %s | - |\n", label))
		return
	}
	builder.WriteString(printer.Sprintf("| %s | %.0f |\n", label, *value))
}
