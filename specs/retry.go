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

package specs

// RetryStrategy decides whether a failed activity attempt should be
// retried. New strategies plug in by implementing Retry; the decider
// never switches on concrete types.
type RetryStrategy interface {
	// Retry reports whether another attempt should be scheduled given
	// failureCount prior ActivityTaskFailed events for the activity.
	Retry(failureCount int) bool
}

// InstantRetry retries immediately, with no backoff, up to Retries
// additional attempts after the first failure.
type InstantRetry struct {
	Retries int
}

// Retry implements RetryStrategy: retry while the number of failures
// seen so far does not exceed the configured budget.
func (s InstantRetry) Retry(failureCount int) bool {
	return failureCount <= s.Retries
}
