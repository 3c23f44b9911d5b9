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
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"github.com/fundwell/secdata/fundamentals"
)

// ErrNoSnapshot indicates no snapshot file exists for the ticker.
var ErrNoSnapshot = errors.New("no snapshot for ticker")

// Snapshot is the denormalized read-model for one issuer: the full period
// series plus metadata and accumulated risk notes, served from a single JSON
// file so the fast path never touches the database.
type Snapshot struct {
	Ticker      string                 `json:"ticker"`
	Name        string                 `json:"name"`
	CIK         string                 `json:"cik"`
	Sector      string                 `json:"sector"`
	SICCode     string                 `json:"sicCode"`
	Quarters    []*fundamentals.Period `json:"quarters"`
	Years       []*fundamentals.Period `json:"years"`
	RiskNotes   []RiskNote             `json:"riskNotes,omitempty"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// RiskNote records a data-quality caveat attached to an issuer, currently
// share-split signals detected during normalization.
type RiskNote struct {
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	PeriodEnd  time.Time `json:"periodEnd"`
	RecordedAt time.Time `json:"recordedAt"`
}

func (store *Store) snapshotPath(ticker string) string {
	return filepath.Join(store.SnapshotDir, fmt.Sprintf("%s.json", slug.Make(strings.ToUpper(ticker))))
}

// WriteSnapshot persists the read-model for an issuer. Risk notes already
// present in the on-disk snapshot are preserved and new ones appended;
// rewriting a snapshot never discards a previously recorded caveat.
func (store *Store) WriteSnapshot(snap *Snapshot) error {
	if err := os.MkdirAll(store.SnapshotDir, 0o755); err != nil {
		return err
	}

	if prior, err := store.ReadSnapshot(snap.Ticker); err == nil {
		snap.RiskNotes = mergeRiskNotes(prior.RiskNotes, snap.RiskNotes)
	} else if !errors.Is(err, ErrNoSnapshot) {
		log.Warn().Err(err).Str("Ticker", snap.Ticker).Msg("could not read prior snapshot; risk notes may be reset")
	}

	snap.GeneratedAt = time.Now()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	path := store.snapshotPath(snap.Ticker)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// ReadSnapshot loads an issuer's snapshot from disk.
func (store *Store) ReadSnapshot(ticker string) (*Snapshot, error) {
	data, err := os.ReadFile(store.snapshotPath(ticker))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, ticker)
		}
		return nil, err
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// SnapshotFresh reports whether the on-disk snapshot is recent enough to
// serve reads without a refresh.
func (store *Store) SnapshotFresh(ticker string) bool {
	snap, err := store.ReadSnapshot(ticker)
	if err != nil {
		return false
	}
	return time.Since(snap.GeneratedAt) < store.SnapshotTTL
}

// mergeRiskNotes appends new notes to the existing set, dropping exact
// duplicates by kind and period.
func mergeRiskNotes(existing, incoming []RiskNote) []RiskNote {
	merged := make([]RiskNote, len(existing))
	copy(merged, existing)

	for _, note := range incoming {
		dup := false
		for _, have := range merged {
			if have.Kind == note.Kind && have.PeriodEnd.Equal(note.PeriodEnd) {
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, note)
		}
	}

	return merged
}

// SplitRiskNote converts a detected split signal into a snapshot risk note.
func SplitRiskNote(signal *fundamentals.SplitSignal) RiskNote {
	kind := "share_split"
	if signal.Reverse {
		kind = "reverse_share_split"
	}

	return RiskNote{
		Kind: kind,
		Detail: fmt.Sprintf("share count changed %.2fx between %s and %s with an offsetting EPS move; per-share history straddles a split",
			signal.Ratio,
			signal.PriorPeriodEnd.Format("2006-01-02"),
			signal.CurrentPeriodEnd.Format("2006-01-02")),
		PeriodEnd:  signal.CurrentPeriodEnd,
		RecordedAt: time.Now(),
	}
}
