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

// Package backoff provides the retry/backoff seam the coordinator
// client and poll loop use to ride out transient failures talking to
// the external coordinator (§6 of the design: "transient coordinator
// errors should be retried with backoff").
package backoff

import (
	"context"
	"sync"
	"time"
)

type (
	// Operation to retry.
	Operation func() error

	// IsRetryable handler can be used to exclude certain errors during retry.
	IsRetryable func(error) bool

	// ConcurrentRetrier is used for client-side throttling. It determines whether to
	// throttle outgoing traffic in case the coordinator rejects requests due to
	// overload.
	ConcurrentRetrier struct {
		sync.Mutex
		retrier      Retrier
		failureCount int64
	}
)

// Throttle sleeps if there have been failures since the last success.
func (c *ConcurrentRetrier) Throttle() {
	c.throttleInternal()
}

func (c *ConcurrentRetrier) throttleInternal() time.Duration {
	next := done

	c.Lock()
	if c.failureCount > 0 {
		next = c.retrier.NextBackOff()
	}
	c.Unlock()

	if next != done {
		time.Sleep(next)
	}

	return next
}

// Succeeded marks a client request as succeeded, resetting the
// backoff schedule.
func (c *ConcurrentRetrier) Succeeded() {
	defer c.Unlock()
	c.Lock()
	c.failureCount = 0
	c.retrier.Reset()
}

// Failed marks a client request as failed.
func (c *ConcurrentRetrier) Failed() {
	defer c.Unlock()
	c.Lock()
	c.failureCount++
}

// NewConcurrentRetrier returns a concurrent backoff retrier over policy.
func NewConcurrentRetrier(policy RetryPolicy) *ConcurrentRetrier {
	return &ConcurrentRetrier{retrier: NewRetrier(policy, SystemClock)}
}

// Retry wraps operation with retry logic driven by policy. isRetryable
// may be nil, in which case every error is retried until the policy's
// budget runs out.
func Retry(ctx context.Context, operation Operation, policy RetryPolicy, isRetryable IsRetryable) error {
	var lastErr error
	var next time.Duration

	r := NewRetrier(policy, SystemClock)
	for {
		opErr := operation()
		if opErr == nil {
			return nil
		}

		if lastErr == nil || opErr != context.DeadlineExceeded {
			lastErr = opErr
		}

		if next = r.NextBackOff(); next == done {
			return lastErr
		}

		if isRetryable != nil && !isRetryable(opErr) {
			return lastErr
		}

		if ctxDone := ctx.Done(); ctxDone != nil {
			timer := time.NewTimer(next)
			select {
			case <-ctxDone:
				timer.Stop()
				return lastErr
			case <-timer.C:
				continue
			}
		}

		time.Sleep(next)
	}
}

// IgnoreErrors can be used as an IsRetryable handler to exclude
// certain errors from the retry list.
func IgnoreErrors(errorsToExclude []error) func(error) bool {
	return func(err error) bool {
		for _, excluded := range errorsToExclude {
			if err == excluded {
				return false
			}
		}
		return true
	}
}
