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
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fundwell/secdata/edgar"
	"github.com/fundwell/secdata/fetch"
	"github.com/fundwell/secdata/ingest"
	"github.com/fundwell/secdata/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "secdata",
	Short: "secdata builds and maintains a database of company fundamentals from SEC XBRL filings",
	Long: `secdata is a command line utility for ingesting company financial
fundamentals from the SEC's XBRL company facts API and normalizing them into a
clean quarterly and annual time series.

Raw XBRL facts are messy: the same economic quantity is reported under many
different tags, flow values arrive both as discrete quarters and year-to-date
accumulations, and amendments restate prior periods. secdata resolves these
into one row per (ticker, period type, period end) with per-field provenance,
stores the results in PostgreSQL, and keeps a denormalized JSON snapshot per
issuer for fast reads. A registry-driven scheduler keeps tracked issuers fresh
within SEC fair-access rate limits.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.secdata.toml)")
	rootCmd.PersistentFlags().String("dbUrl", "", "database connection string")
	if err := viper.BindPFlag("db.url", rootCmd.PersistentFlags().Lookup("dbUrl")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for dbUrl failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".secdata" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".secdata")
	}

	viper.SetDefault("sec.min_interval_ms", 150)
	viper.SetDefault("snapshot.ttl_hours", 24)

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}

// openStore connects to the configured database and snapshot directory.
func openStore(ctx context.Context) *store.Store {
	dbURL := viper.GetString("db.url")
	if dbURL == "" {
		log.Fatal().Msg("no database URL configured; run `secdata init` first")
	}

	snapshotDir := viper.GetString("snapshot.dir")
	if snapshotDir == "" {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		snapshotDir = filepath.Join(home, ".secdata-snapshots")
	}

	st, err := store.New(ctx, dbURL, snapshotDir,
		time.Duration(viper.GetInt("snapshot.ttl_hours"))*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}

	return st
}

// buildPipeline wires the SEC clients and normalization stages over a store.
func buildPipeline(st *store.Store) (*ingest.Pipeline, *fetch.Client) {
	userAgent := viper.GetString("sec.user_agent")
	if userAgent == "" {
		log.Fatal().Msg("no SEC user agent configured; the SEC requires a contact address, run `secdata init`")
	}

	client := fetch.New(userAgent,
		time.Duration(viper.GetInt("sec.min_interval_ms"))*time.Millisecond)
	resolver := edgar.NewResolver(client, viper.GetString("sec.fallback_file"), edgar.DefaultDirectoryTTL)
	facts := edgar.NewFactClient(client)

	return ingest.NewPipeline(resolver, facts, st), client
}
