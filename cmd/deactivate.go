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
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var skipConfirm bool

// deactivateCmd represents the deactivate command
var deactivateCmd = &cobra.Command{
	Use:   "deactivate <ticker...>",
	Short: "Remove tickers from the refresh schedule",
	Long: `The deactivate sub-command stops scheduled refreshes for the given
tickers. Stored fundamentals and snapshots are kept; re-register the ticker to
resume refreshes.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if !skipConfirm {
			confirmed := false
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Stop scheduled refreshes for %d ticker(s)?", len(args))).
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				log.Fatal().Err(err).Msg("error confirming deactivation")
			}
			if !confirmed {
				return
			}
		}

		st := openStore(ctx)
		defer st.Close()

		for _, ticker := range args {
			if err := st.Deactivate(ctx, ticker); err != nil {
				log.Error().Err(err).Str("Ticker", ticker).Msg("could not deactivate ticker")
				continue
			}
			log.Info().Str("Ticker", ticker).Msg("ticker deactivated")
		}
	},
}

func init() {
	rootCmd.AddCommand(deactivateCmd)
	deactivateCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "skip confirmation prompt")
}
