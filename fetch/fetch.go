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

// Package fetch provides the paced HTTP transport used for all requests against
// the SEC data service. A single Client is shared by every caller in the
// process so that the SEC fair-access budget is enforced at the network
// boundary, regardless of how many ingestion jobs run above it.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrRateLimited = errors.New("rate limited by remote service")
	ErrStatus      = errors.New("invalid status code received")
	ErrPaused      = errors.New("client is paused after repeated rate limiting")
)

const (
	// DefaultMinInterval keeps us comfortably under the SEC's published
	// 10 requests/second fair-access limit even with retries in flight.
	DefaultMinInterval = 150 * time.Millisecond

	DefaultMaxAttempts = 5
	DefaultBackoffBase = 2 * time.Second

	// pauseAfterLimited is the number of consecutive rate-limited attempts
	// that flips the process-wide pause.
	pauseAfterLimited = 3

	// pauseDuration is how long the whole client backs off once the pause
	// trips. Individual requests still retry with their own backoff; the
	// pause only guards bulk sweeps from piling on.
	pauseDuration = 5 * time.Minute
)

// Client is a rate-limited, retrying HTTP client. The zero value is not
// usable; construct with New.
type Client struct {
	rest        *resty.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoffBase time.Duration

	mu            sync.Mutex
	pausedUntil   time.Time
	recentLimited int
}

// New creates a Client that spaces all outbound requests by at least
// minInterval and identifies itself with userAgent, as required by the SEC
// access policy.
func New(userAgent string, minInterval time.Duration) *Client {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}

	rest := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Encoding", "gzip, deflate").
		SetTimeout(60 * time.Second)

	return &Client{
		rest:        rest,
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
	}
}

// SetMaxAttempts overrides the bounded retry count.
func (client *Client) SetMaxAttempts(n int) *Client {
	if n > 0 {
		client.maxAttempts = n
	}
	return client
}

// SetBackoffBase overrides the first retry delay; each subsequent retry
// doubles it.
func (client *Client) SetBackoffBase(d time.Duration) *Client {
	if d > 0 {
		client.backoffBase = d
	}
	return client
}

// PausedUntil returns the time at which the process-wide pause expires, or the
// zero time when the client is not paused.
func (client *Client) PausedUntil() time.Time {
	client.mu.Lock()
	defer client.mu.Unlock()

	if time.Now().Before(client.pausedUntil) {
		return client.pausedUntil
	}
	return time.Time{}
}

// Paused reports whether the client is currently refusing new requests
// because of a correlated burst of rate-limit responses.
func (client *Client) Paused() bool {
	return !client.PausedUntil().IsZero()
}

// GetJSON fetches url and unmarshals the JSON response into result.
func (client *Client) GetJSON(ctx context.Context, url string, result any) error {
	_, err := client.do(ctx, url, result)
	return err
}

// Get fetches url and returns the raw response body.
func (client *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return client.do(ctx, url, nil)
}

func (client *Client) do(ctx context.Context, url string, result any) ([]byte, error) {
	if until := client.PausedUntil(); !until.IsZero() {
		return nil, fmt.Errorf("%w: resumes %s", ErrPaused, until.Format(time.RFC3339))
	}

	var lastErr error

	for attempt := 0; attempt < client.maxAttempts; attempt++ {
		// every attempt, successful or not, consumes a slot on the shared
		// pacing gate
		if err := client.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req := client.rest.R().SetContext(ctx)
		if result != nil {
			req.SetResult(result)
		}

		resp, err := req.Get(url)
		if err != nil {
			// network / timeout class errors are transient; retry
			lastErr = err
			log.Warn().Err(err).Str("URL", url).Int("Attempt", attempt).Msg("transient fetch error")
			client.sleepBackoff(ctx, attempt)
			continue
		}

		switch code := resp.StatusCode(); {
		case code >= 200 && code < 300:
			client.noteSuccess()
			return resp.Body(), nil
		case code == 404:
			client.noteSuccess()
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		case code == 429 || code == 503:
			client.noteLimited()
			lastErr = fmt.Errorf("%w (%d)", ErrRateLimited, code)
			log.Warn().Int("StatusCode", code).Str("URL", url).Int("Attempt", attempt).Msg("rate limited, backing off")
			client.sleepBackoff(ctx, attempt)
			continue
		default:
			// surface immediately with status and body for caller-level handling
			return nil, fmt.Errorf("%w (%d): %s", ErrStatus, code, string(resp.Body()))
		}
	}

	return nil, lastErr
}

func (client *Client) sleepBackoff(ctx context.Context, attempt int) {
	delay := client.backoffBase << attempt
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func (client *Client) noteSuccess() {
	client.mu.Lock()
	client.recentLimited = 0
	client.mu.Unlock()
}

func (client *Client) noteLimited() {
	client.mu.Lock()
	defer client.mu.Unlock()

	client.recentLimited++
	if client.recentLimited >= pauseAfterLimited && time.Now().After(client.pausedUntil) {
		client.pausedUntil = time.Now().Add(pauseDuration)
		log.Warn().Time("ResumeAt", client.pausedUntil).Msg("repeated rate limiting, pausing all fetches")
	}
}
