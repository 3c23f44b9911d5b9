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
package cmd

import (
	"context"
	"time"

	"github.com/hako/durafmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fundwell/secdata/ingest"
)

var forceRefresh bool

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh <ticker...>",
	Short: "Ingest fundamentals for one or more tickers immediately",
	Long: `The refresh sub-command runs the full ingestion pipeline for each ticker
sequentially, ignoring the registry schedule. Tickers with a fresh snapshot are
skipped unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		st := openStore(ctx)
		defer st.Close()

		pipeline, _ := buildPipeline(st)

		for _, ticker := range args {
			if !forceRefresh && st.SnapshotFresh(ticker) {
				log.Info().Str("Ticker", ticker).Msg("snapshot is fresh; skipping (use --force to override)")
				continue
			}

			tickerLogger := log.With().Str("Ticker", ticker).Logger()
			startTime := time.Now()

			result := pipeline.Ingest(ctx, ticker)
			runTime := time.Since(startTime)

			if result.Outcome != ingest.OutcomeOK {
				tickerLogger.Error().Err(result.Err).
					Str("Outcome", string(result.Outcome)).
					Msg("refresh failed")
				continue
			}

			tickerLogger.Info().
				Str("RunTime", durafmt.Parse(runTime).String()).
				Int("NumPeriods", result.NumPeriods).
				Msg("successfully refreshed fundamentals")
		}
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().BoolVarP(&forceRefresh, "force", "f", false, "refresh even if the snapshot is fresh")
}
