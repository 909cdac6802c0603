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

// Package metrics holds the tally counter/timer names and tag keys
// emitted by the decider and the poll loop.
package metrics

// Counters emitted by decider.DecisionBuilder.
const (
	DecisionsScheduled = "decisions.scheduled"
	DecisionsRetried   = "decisions.retried"
	DecisionsReplayed  = "decisions.replayed"
	WorkflowCompleted  = "workflow.completed"
	WorkflowFailed     = "workflow.failed"
)

// Counters and timers of coordinator.Poller. RespondDecisionsLatency
// is defined here but not recorded by the Poller.
const (
	PollSucceededCounter    = "poll.succeeded"
	PollFailedCounter       = "poll.failed"
	PollEmptyCounter        = "poll.empty"
	PollLatency             = "poll.latency"
	DecisionRoundLatency    = "decision_round.latency"
	RespondDecisionsLatency = "respond_decisions.latency"
	RespondDecisionsFailed  = "respond_decisions.failed"
)

// Tag keys for the scopes above. Neither decider.DecisionBuilder nor
// coordinator.Poller tags its scope with them.
const (
	TaskListTagName = "tasklist"
	WorkflowIDTag   = "workflow_id"
)
