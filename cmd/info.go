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
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var infoMaxAgeDays int

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <ticker>",
	Short: "Display stored fundamentals for a ticker",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		st := openStore(ctx)
		defer st.Close()

		report, err := st.Freshness(ctx, args[0],
			time.Duration(infoMaxAgeDays)*24*time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("could not check stored data freshness")
		}
		if report.NumRows == 0 {
			log.Fatal().Str("Ticker", args[0]).Msg("no stored fundamentals; run `secdata refresh` first")
		}
		if !report.IsFresh {
			log.Warn().Time("LastUpdated", report.LatestUpdated).
				Msg("stored fundamentals are stale")
		}

		summary, err := st.Summary(ctx, args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("could not create fundamentals summary document")
		}

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(summary)
		if err != nil {
			log.Fatal().Err(err).Msg("could not render summary document")
		}

		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().IntVar(&infoMaxAgeDays, "max-age-days", 90, "age at which stored data is flagged stale")
}
