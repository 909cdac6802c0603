// The MIT License
//
// Copyright (c) 2020 Temporal Technologies Inc.  All rights reserved.
//
// Copyright (c) 2020 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package backoff

import (
	"math/rand"
	"time"

	"github.com/facebookgo/clock"
)

// done is returned by Retrier.NextBackOff once a policy's retry
// budget is exhausted.
const done time.Duration = -1

// SystemClock is the real wall clock, used everywhere outside tests.
var SystemClock = clock.New()

// RetryPolicy describes a backoff schedule: the caller asks for
// successive intervals via an ExponentialRetryPolicy-produced
// Retrier and sleeps that long between attempts of a poll or a
// coordinator call.
type RetryPolicy interface {
	// ComputeNextDelay returns the delay before the (attempt+1)th
	// retry, given elapsedTime since the first attempt. It returns
	// done if no further attempt should be made.
	ComputeNextDelay(elapsedTime time.Duration, attempt int) time.Duration
}

// ExponentialRetryPolicy is the policy the coordinator poll loop and
// RespondTaskCompleted retries use: exponential backoff with jitter,
// capped at MaximumInterval, bounded by MaximumAttempts and
// ExpirationInterval (zero means unbounded).
type ExponentialRetryPolicy struct {
	InitialInterval    time.Duration
	BackoffCoefficient float64
	MaximumInterval    time.Duration
	MaximumAttempts    int
	ExpirationInterval time.Duration
}

// NewExponentialRetryPolicy returns a policy with the coordinator
// client's defaults: the given initial interval, 2x backoff, capped at
// 10s, no attempt limit, 1 minute total expiration.
func NewExponentialRetryPolicy(initialInterval time.Duration) *ExponentialRetryPolicy {
	return &ExponentialRetryPolicy{
		InitialInterval:    initialInterval,
		BackoffCoefficient: 2.0,
		MaximumInterval:    10 * time.Second,
		ExpirationInterval: time.Minute,
	}
}

// ComputeNextDelay implements RetryPolicy.
func (p *ExponentialRetryPolicy) ComputeNextDelay(elapsedTime time.Duration, attempt int) time.Duration {
	if p.MaximumAttempts > 0 && attempt >= p.MaximumAttempts {
		return done
	}
	if p.ExpirationInterval > 0 && elapsedTime > p.ExpirationInterval {
		return done
	}

	interval := float64(p.InitialInterval) * pow(p.BackoffCoefficient, attempt)
	if p.MaximumInterval > 0 && interval > float64(p.MaximumInterval) {
		interval = float64(p.MaximumInterval)
	}

	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(interval * jitter)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// Retrier walks a RetryPolicy attempt by attempt against an injected
// clock, so tests can exercise backoff without sleeping real time.
type Retrier struct {
	policy     RetryPolicy
	clock      clock.Clock
	startTime  time.Time
	currentAttempt int
}

// NewRetrier builds a Retrier over policy, using clk to measure
// elapsed time (facebookgo/clock.New() in production,
// clock.NewMock() in tests).
func NewRetrier(policy RetryPolicy, clk clock.Clock) Retrier {
	return Retrier{policy: policy, clock: clk, startTime: clk.Now()}
}

// NextBackOff returns the delay before the next attempt, or done if
// the policy's budget is exhausted.
func (r *Retrier) NextBackOff() time.Duration {
	elapsed := r.clock.Now().Sub(r.startTime)
	next := r.policy.ComputeNextDelay(elapsed, r.currentAttempt)
	r.currentAttempt++
	return next
}

// Reset restarts the retry schedule from attempt zero.
func (r *Retrier) Reset() {
	r.startTime = r.clock.Now()
	r.currentAttempt = 0
}
