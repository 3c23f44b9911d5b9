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
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fundwell/secdata/db"
	"github.com/fundwell/secdata/healthcheck"
)

type appConfig struct {
	DB struct {
		URL string `toml:"url"`
	} `toml:"db"`
	SEC struct {
		UserAgent     string `toml:"user_agent"`
		MinIntervalMS int    `toml:"min_interval_ms"`
	} `toml:"sec"`
	Snapshot struct {
		Dir      string `toml:"dir"`
		TTLHours int    `toml:"ttl_hours"`
	} `toml:"snapshot"`
	Healthchecks struct {
		APIKey  string `toml:"apikey,omitempty"`
		CheckID string `toml:"check_id,omitempty"`
	} `toml:"healthchecks,omitempty"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather configuration and setup the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		config := &appConfig{}
		config.SEC.MinIntervalMS = 150
		config.Snapshot.TTLHours = 24

		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}
		config.Snapshot.Dir = filepath.Join(home, ".secdata-snapshots")

		form := huh.NewForm(
			// SEC fair-access policy requires a contact address in the
			// User-Agent of every request
			huh.NewGroup(
				huh.NewInput().
					Title("Declared User-Agent for SEC requests (e.g. 'Research research@example.com'):").
					Value(&config.SEC.UserAgent).
					Validate(func(ua string) error {
						if !strings.Contains(ua, "@") {
							return errors.New("the SEC requires a contact email address in the User-Agent")
						}
						return nil
					}),
			),

			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&config.DB.URL).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),

			huh.NewGroup(
				huh.NewInput().
					Title("Directory for per-issuer JSON snapshots:").
					Value(&config.Snapshot.Dir),

				huh.NewInput().
					Title("healthchecks.io API key for daemon monitoring (leave blank to skip):").
					Value(&config.Healthchecks.APIKey),
			),
		)

		if err := form.Run(); err != nil {
			log.Fatal().Err(err).Msg("error gathering settings")
		}

		log.Info().Msg("creating database tables")

		// run migration
		migrateURL := strings.Replace(config.DB.URL, "postgres://", "pgx5://", -1)
		if err := db.Migrate(migrateURL); err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}
		log.Info().Msg("database tables created")

		if err := os.MkdirAll(config.Snapshot.Dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("Dir", config.Snapshot.Dir).Msg("could not create snapshot directory")
		}

		if config.Healthchecks.APIKey != "" {
			viper.Set("healthchecks.apikey", config.Healthchecks.APIKey)
			checkID, err := healthcheck.Create("secdata ingestion daemon", "secdata-daemon",
				[]string{"secdata"}, "*/15 * * * *")
			if err != nil {
				log.Error().Err(err).Msg("could not create healthchecks.io check; continuing without monitoring")
			} else {
				config.Healthchecks.CheckID = checkID
				log.Info().Str("CheckID", checkID).Msg("created healthchecks.io check")
			}
		}

		// save settings to config file
		configFN := filepath.Join(home, ".secdata.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving settings to config file")
		configData, err := toml.Marshal(config)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		if err := os.WriteFile(configFN, configData, 0o644); err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("secdata is initialized; register tickers with `secdata register`")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
