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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fundwell/secdata/healthcheck"
	"github.com/fundwell/secdata/ingest"
)

var sweepMinutes int

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion daemon",
	Long: `The run sub-command starts the ingestion daemon: a registry sweep on a
fixed interval feeds due tickers into a bounded work queue, and workers refresh
each issuer within SEC fair-access pacing. The daemon runs until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st := openStore(ctx)
		defer st.Close()

		pipeline, client := buildPipeline(st)
		queue := ingest.NewQueue(pipeline)
		scheduler := ingest.NewScheduler(st, queue, client)
		if sweepMinutes > 0 {
			scheduler.SweepInterval = time.Duration(sweepMinutes) * time.Minute
		}

		if checkID := viper.GetString("healthchecks.check_id"); checkID != "" {
			go pingLoop(ctx, checkID, scheduler.SweepInterval)
		}

		go queue.Run(ctx)

		log.Info().Dur("SweepInterval", scheduler.SweepInterval).Msg("ingestion daemon started")
		scheduler.Run(ctx)
		log.Info().Msg("ingestion daemon stopped")
	},
}

// pingLoop reports daemon liveness to healthchecks.io on the sweep cadence.
func pingLoop(ctx context.Context, checkID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := healthcheck.Ping(checkID); err != nil {
				log.Warn().Err(err).Msg("healthcheck ping failed")
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&sweepMinutes, "sweep-minutes", 0, "override registry sweep interval in minutes")
}
