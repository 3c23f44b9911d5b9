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

// Package store persists normalized fundamentals: durable period rows and
// registry state in PostgreSQL, plus one denormalized JSON snapshot per issuer
// as a fast-path read cache with its own freshness TTL.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultSnapshotTTL is how long a snapshot file serves reads before the
	// issuer is considered due for a refresh on the fast path.
	DefaultSnapshotTTL = 24 * time.Hour
)

// Store wraps the database pool and the snapshot directory.
type Store struct {
	Pool        *pgxpool.Pool
	SnapshotDir string
	SnapshotTTL time.Duration
}

// New connects to the database and prepares a Store.
func New(ctx context.Context, dbURL, snapshotDir string, snapshotTTL time.Duration) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if snapshotTTL <= 0 {
		snapshotTTL = DefaultSnapshotTTL
	}

	return &Store{
		Pool:        pool,
		SnapshotDir: snapshotDir,
		SnapshotTTL: snapshotTTL,
	}, nil
}

// Close releases the database pool.
func (store *Store) Close() {
	store.Pool.Close()
}
