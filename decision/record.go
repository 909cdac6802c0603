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

// Package decision holds the tagged decision records the builder
// emits and the coordinator's decision vocabulary serializes to
// (§3 "Decision record" of the design).
package decision

import "github.com/dcarral/floto/specs"

// Decision is the common interface of every decision variant. It
// carries no behavior beyond identifying itself — the coordinator
// client is responsible for serializing a Decision to the wire
// format its protocol version expects.
type Decision interface {
	// Type returns the variant's wire discriminator, consulted by the
	// coordinator client when serializing a decision batch (§6).
	Type() string
}

// ActivityType names the activity implementation a
// ScheduleActivityTask decision invokes.
type ActivityType struct {
	Name    string
	Version string
}

// ScheduleActivityTask requests that the coordinator dispatch an
// activity attempt to a worker listening on TaskList.
type ScheduleActivityTask struct {
	ActivityType ActivityType
	ActivityID   string
	TaskList     string
	Input        interface{}
	Timeouts     specs.ActivityTimeouts
	// RetryCount is the number of ActivityTaskFailed events already
	// recorded for ActivityID, 0 on the first attempt. It is metadata
	// only: per §6, the wire activity id is the base task id on every
	// attempt, so the coordinator is expected to de-duplicate using
	// its own attempt bookkeeping.
	RetryCount int
}

// Type implements Decision.
func (ScheduleActivityTask) Type() string { return "ScheduleActivityTask" }

// StartTimer requests that the coordinator start a timer that fires
// after StartToFireTimeout seconds.
type StartTimer struct {
	TimerID             string
	StartToFireTimeout  int
}

// Type implements Decision.
func (StartTimer) Type() string { return "StartTimer" }

// CancelTimer requests cancellation of a previously started, not yet
// fired timer.
type CancelTimer struct {
	TimerID string
}

// Type implements Decision.
func (CancelTimer) Type() string { return "CancelTimer" }

// CompleteWorkflowExecution is the single terminal-success decision a
// round may emit. Result maps each sink task id to its result.
type CompleteWorkflowExecution struct {
	Result map[string]interface{}
}

// Type implements Decision.
func (CompleteWorkflowExecution) Type() string { return "CompleteWorkflowExecution" }

// Reasons FailWorkflowExecution can carry (§4.3.3, §7).
const (
	ReasonTaskFailed            = "task_failed"
	ReasonTaskRetryLimitReached = "task_retry_limit_reached"
)

// FailWorkflowExecution is the single terminal-failure decision a
// round may emit. Details maps each failed task id to the failure
// details string from its last ActivityTaskFailed event.
type FailWorkflowExecution struct {
	Reason  string
	Details map[string]string
}

// Type implements Decision.
func (FailWorkflowExecution) Type() string { return "FailWorkflowExecution" }
