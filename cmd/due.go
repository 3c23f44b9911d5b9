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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"
)

var dueLimit int

// dueCmd represents the due command
var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List registered tickers that are due for a refresh",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		st := openStore(ctx)
		defer st.Close()

		entries, err := st.TickersDueForCheck(ctx, dueLimit)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load due tickers")
		}

		if len(entries) == 0 {
			fmt.Println("no tickers are due for refresh")
			return
		}

		for _, entry := range entries {
			checked := "never"
			if entry.LastCheckedAt != nil {
				checked = timeago.English.Format(*entry.LastCheckedAt)
			}
			fmt.Printf("%-8s priority=%d last checked %s\n", entry.Ticker, entry.Priority, checked)
		}
	},
}

func init() {
	rootCmd.AddCommand(dueCmd)
	dueCmd.Flags().IntVarP(&dueLimit, "limit", "n", 50, "maximum number of tickers to list")
}
