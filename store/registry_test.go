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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EffectiveInterval", func() {
	It("refreshes high-priority tickers daily regardless of configured cadence", func() {
		Expect(EffectiveInterval(2, 90)).To(Equal(24 * time.Hour))
		Expect(EffectiveInterval(3, 0)).To(Equal(24 * time.Hour))
	})

	It("refreshes medium-priority tickers weekly", func() {
		Expect(EffectiveInterval(1, 90)).To(Equal(7 * 24 * time.Hour))
	})

	It("uses the per-ticker cadence for ordinary tickers", func() {
		Expect(EffectiveInterval(0, 14)).To(Equal(14 * 24 * time.Hour))
	})

	It("falls back to monthly when no cadence is configured", func() {
		Expect(EffectiveInterval(0, 0)).To(Equal(30 * 24 * time.Hour))
	})
})

var _ = Describe("normalizeIssuerName", func() {
	It("strips punctuation and case", func() {
		Expect(normalizeIssuerName("Apple Inc.")).To(Equal("apple"))
		Expect(normalizeIssuerName("APPLE INC")).To(Equal("apple"))
	})

	It("strips stacked corporate suffixes", func() {
		Expect(normalizeIssuerName("Acme Holdings Ltd")).To(Equal("acme"))
		Expect(normalizeIssuerName("Foo Bar Group PLC")).To(Equal("foo bar"))
	})

	It("keeps distinct company names distinct", func() {
		Expect(normalizeIssuerName("Alpha Metals Inc")).NotTo(
			Equal(normalizeIssuerName("Alpha Mining Inc")))
	})
})
