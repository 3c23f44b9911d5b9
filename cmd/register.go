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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fundwell/secdata/store"
)

var (
	registerPriority int
	registerInterval int
)

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register <ticker...>",
	Short: "Register tickers for scheduled refresh",
	Long: `The register sub-command adds tickers to the refresh registry. Each
ticker is resolved against the SEC company directory to capture its CIK and
issuer name, then scheduled for an immediate first ingestion. Priority 2
tickers refresh daily, priority 1 weekly; priority 0 uses the per-ticker
interval (default monthly).`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		st := openStore(ctx)
		defer st.Close()

		pipeline, _ := buildPipeline(st)

		for _, ticker := range args {
			ref, err := pipeline.Resolver.Resolve(ctx, ticker)
			if err != nil {
				log.Error().Err(err).Str("Ticker", ticker).Msg("could not resolve ticker; not registered")
				continue
			}

			entry := &store.RegistryEntry{
				Ticker:              ref.Ticker,
				CIK:                 ref.CIK,
				Name:                ref.Name,
				Priority:            registerPriority,
				RefreshIntervalDays: registerInterval,
				IsActive:            true,
			}

			if err := st.UpsertEntry(ctx, entry); err != nil {
				log.Error().Err(err).Str("Ticker", ref.Ticker).Msg("could not register ticker")
				continue
			}

			log.Info().Str("Ticker", ref.Ticker).Str("CIK", ref.CIK).
				Int("Priority", registerPriority).
				Msg("registered ticker for scheduled refresh")
		}
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().IntVarP(&registerPriority, "priority", "p", 0, "refresh priority (2=daily, 1=weekly, 0=use interval)")
	registerCmd.Flags().IntVarP(&registerInterval, "interval-days", "i", 0, "refresh interval in days for priority 0 tickers (default 30)")
}
