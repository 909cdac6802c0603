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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsWithoutRetrying(t *testing.T) {
	policy := NewExponentialRetryPolicy(time.Millisecond)
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		return nil
	}, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesUntilSuccess(t *testing.T) {
	policy := NewExponentialRetryPolicy(time.Millisecond)
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsWhenNotRetryable(t *testing.T) {
	policy := NewExponentialRetryPolicy(time.Millisecond)
	sentinel := errors.New("fatal")
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		return sentinel
	}, policy, func(err error) bool { return err != sentinel })
	assert.Equal(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsWhenAttemptsExhausted(t *testing.T) {
	policy := &ExponentialRetryPolicy{
		InitialInterval:    time.Millisecond,
		BackoffCoefficient: 1,
		MaximumAttempts:    2,
	}
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		return errors.New("always fails")
	}, policy, nil)
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_UsesInjectedClock(t *testing.T) {
	mock := clock.NewMock()
	policy := &ExponentialRetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 1,
		ExpirationInterval: 5 * time.Second,
	}
	r := NewRetrier(policy, mock)

	next := r.NextBackOff()
	assert.NotEqual(t, done, next)

	mock.Add(10 * time.Second)
	next = r.NextBackOff()
	assert.Equal(t, done, next)
}

func TestConcurrentRetrier_ThrottlesAfterFailure(t *testing.T) {
	policy := NewExponentialRetryPolicy(time.Millisecond)
	r := NewConcurrentRetrier(policy)
	r.Failed()
	r.Throttle()
	r.Succeeded()
}
