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
package fundamentals

import "math"

// Split detection thresholds. These are empirically tuned heuristics, not
// derived from a formal model; override them only with domain validation.
const (
	// DefaultSplitMinRatio is the minimum share-count jump treated as a
	// split candidate.
	DefaultSplitMinRatio = 2.0

	// DefaultSplitEPSTolerance is how far the inverse EPS move may deviate
	// from the share-count ratio, as a fraction of the ratio.
	DefaultSplitEPSTolerance = 0.25

	// DefaultNetIncomeStability is the maximum relative net-income change
	// between the two periods. Larger moves indicate a genuine
	// earnings-driven EPS change, not a split.
	DefaultNetIncomeStability = 0.35
)

// SplitConfig carries the detection thresholds.
type SplitConfig struct {
	MinRatio           float64
	EPSTolerance       float64
	NetIncomeStability float64
}

// DefaultSplitConfig returns the tuned default thresholds.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		MinRatio:           DefaultSplitMinRatio,
		EPSTolerance:       DefaultSplitEPSTolerance,
		NetIncomeStability: DefaultNetIncomeStability,
	}
}

// DetectSplit examines an adjacent period pair (current first) for a stock
// split. A forward split shows the share count multiplying while EPS moves
// inversely by a matching ratio, with net income roughly stable; a reverse
// split is the symmetric case with the share count shrinking. A split is a
// cosmetic share-structure event, not an economic dilution or capital return,
// so callers should suppress share-change signals across a flagged pair.
func DetectSplit(current, prior *Period, cfg SplitConfig) *SplitSignal {
	if current == nil || prior == nil {
		return nil
	}
	if current.SharesOutstanding == nil || prior.SharesOutstanding == nil ||
		current.EPSBasic == nil || prior.EPSBasic == nil {
		return nil
	}
	if *prior.SharesOutstanding == 0 || *current.SharesOutstanding == 0 ||
		*prior.EPSBasic == 0 || *current.EPSBasic == 0 {
		return nil
	}

	// a split never flips the sign of earnings per share
	if math.Signbit(*current.EPSBasic) != math.Signbit(*prior.EPSBasic) {
		return nil
	}

	niStable := netIncomeStable(current, prior, cfg.NetIncomeStability)
	if !niStable {
		return nil
	}

	shareRatio := *current.SharesOutstanding / *prior.SharesOutstanding

	if shareRatio >= cfg.MinRatio {
		// forward split: EPS should fall by roughly the same ratio
		epsRatio := *prior.EPSBasic / *current.EPSBasic
		residual := math.Abs(shareRatio-epsRatio) / shareRatio
		if residual <= cfg.EPSTolerance {
			return &SplitSignal{
				Ratio:            shareRatio,
				EPSRatio:         epsRatio,
				Residual:         residual,
				CurrentPeriodEnd: current.PeriodEnd,
				PriorPeriodEnd:   prior.PeriodEnd,
				NetIncomeStable:  niStable,
			}
		}
		return nil
	}

	inverse := 1 / shareRatio
	if inverse >= cfg.MinRatio {
		// reverse split: EPS should rise by roughly the inverse ratio
		epsRatio := *current.EPSBasic / *prior.EPSBasic
		residual := math.Abs(inverse-epsRatio) / inverse
		if residual <= cfg.EPSTolerance {
			return &SplitSignal{
				Ratio:            shareRatio,
				EPSRatio:         epsRatio,
				Residual:         residual,
				Reverse:          true,
				CurrentPeriodEnd: current.PeriodEnd,
				PriorPeriodEnd:   prior.PeriodEnd,
				NetIncomeStable:  niStable,
			}
		}
	}

	return nil
}

func netIncomeStable(current, prior *Period, tolerance float64) bool {
	if current.NetIncome == nil || prior.NetIncome == nil {
		// without net income we cannot exclude an earnings-driven move
		return false
	}
	if *prior.NetIncome == 0 {
		return false
	}

	change := math.Abs(*current.NetIncome-*prior.NetIncome) / math.Abs(*prior.NetIncome)
	return change < tolerance
}

// ShareChangeYoY computes the year-over-year share-count change from a series
// sorted descending by period end, comparing the latest quarter against the
// quarter four back. When any adjacent pair in between is flagged as a split,
// the change is suppressed (nil) and the signal returned instead of reporting
// the split as extreme dilution or a buyback.
func ShareChangeYoY(periods []*Period, cfg SplitConfig) (*float64, *SplitSignal) {
	quarters := make([]*Period, 0, len(periods))
	for _, period := range periods {
		if period.PeriodType == Quarter {
			quarters = append(quarters, period)
		}
	}

	if len(quarters) < 5 {
		return nil, nil
	}

	latest, yearAgo := quarters[0], quarters[4]
	if latest.SharesOutstanding == nil || yearAgo.SharesOutstanding == nil ||
		*yearAgo.SharesOutstanding == 0 {
		return nil, nil
	}

	for idx := 0; idx < 4; idx++ {
		if signal := DetectSplit(quarters[idx], quarters[idx+1], cfg); signal != nil {
			return nil, signal
		}
	}

	change := (*latest.SharesOutstanding - *yearAgo.SharesOutstanding) / *yearAgo.SharesOutstanding
	return &change, nil
}
