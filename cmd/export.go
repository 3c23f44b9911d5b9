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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fundwell/secdata/backblaze"
)

var exportOut string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <ticker...>",
	Short: "Export stored fundamentals to a parquet file",
	Long: `The export sub-command writes the stored period series for the given
tickers to a parquet file. If Backblaze credentials are configured the file is
also uploaded to the configured bucket.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		st := openStore(ctx)
		defer st.Close()

		fn := exportOut
		if fn == "" {
			fn = fmt.Sprintf("fundamentals-%s.parquet", time.Now().Format("20060102"))
		}

		numRecords, err := st.ExportParquet(ctx, args, fn)
		if err != nil {
			log.Fatal().Err(err).Msg("export failed")
		}

		log.Info().Int("NumRecords", numRecords).Str("FileName", fn).Msg("export complete")

		if viper.GetString("backblaze.application_id") != "" {
			year := time.Now().Format("2006")
			if err := backblaze.Upload(fn, viper.GetString("backblaze.bucket"), year); err != nil {
				log.Error().Err(err).Msg("failed uploading parquet file to Backblaze")
			}
		} else {
			log.Info().Msg("skipping upload to backblaze because backblaze credentials are missing")
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file name (default fundamentals-<date>.parquet)")
}
