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

// Package specs holds the immutable task specifications a workflow
// definition graph is built from: activity invocations and timers.
package specs

import "fmt"

type (
	// TaskSpec is the common interface of every node a graph.Graph can
	// hold. Both variants are immutable once constructed.
	TaskSpec interface {
		// ID returns the task's unique identifier within its graph.
		ID() string
		// Requires returns the predecessors this task depends on, in
		// declaration order.
		Requires() []TaskSpec
	}

	// ActivityTask describes a single activity invocation: what to run
	// (name/version), what to run it with (input), and what it depends
	// on (requires). Retries are opt in via RetryStrategy.
	ActivityTask struct {
		id            string
		name          string
		version       string
		input         interface{}
		requires      []TaskSpec
		retryStrategy RetryStrategy
		timeouts      ActivityTimeouts
	}

	// ActivityTimeouts carries the per-task timeout overrides the
	// coordinator accepts alongside ScheduleActivityTask. Zero values
	// mean "use the coordinator's default".
	ActivityTimeouts struct {
		ScheduleToCloseSeconds int32
		ScheduleToStartSeconds int32
		StartToCloseSeconds    int32
		HeartbeatSeconds       int32
	}

	// Timer describes a delay node. Timers never retry and carry no
	// input of their own; they exist purely to gate dependents behind
	// a wait.
	Timer struct {
		id             string
		delayInSeconds int
		requires       []TaskSpec
	}

	// ActivityTaskOption configures an ActivityTask at construction.
	ActivityTaskOption func(*ActivityTask)
)

// WithID overrides the derived "name:version" id.
func WithID(id string) ActivityTaskOption {
	return func(a *ActivityTask) { a.id = id }
}

// WithInput attaches the activity's own input payload.
func WithInput(input interface{}) ActivityTaskOption {
	return func(a *ActivityTask) { a.input = input }
}

// WithRequires declares predecessors, in the order dependents should
// see them when their results are routed in as input.
func WithRequires(requires ...TaskSpec) ActivityTaskOption {
	return func(a *ActivityTask) { a.requires = requires }
}

// WithRetryStrategy opts the activity into retries on failure.
func WithRetryStrategy(strategy RetryStrategy) ActivityTaskOption {
	return func(a *ActivityTask) { a.retryStrategy = strategy }
}

// WithTimeouts overrides the coordinator's default activity timeouts.
func WithTimeouts(timeouts ActivityTimeouts) ActivityTaskOption {
	return func(a *ActivityTask) { a.timeouts = timeouts }
}

// NewActivityTask builds an ActivityTask. If no id is supplied via
// WithID, one is derived deterministically as "name:version". No
// suffix is added, so two ActivityTasks with the same name and version
// and no WithID share an id, and graph.New rejects them as duplicates.
func NewActivityTask(name, version string, opts ...ActivityTaskOption) *ActivityTask {
	a := &ActivityTask{name: name, version: version}
	for _, opt := range opts {
		opt(a)
	}
	if a.id == "" {
		a.id = fmt.Sprintf("%s:%s", name, version)
	}
	return a
}

// ID implements TaskSpec.
func (a *ActivityTask) ID() string { return a.id }

// Requires implements TaskSpec.
func (a *ActivityTask) Requires() []TaskSpec { return a.requires }

// Name is the activity type name registered with the coordinator.
func (a *ActivityTask) Name() string { return a.name }

// Version is the activity type version registered with the coordinator.
func (a *ActivityTask) Version() string { return a.version }

// Input is the activity's own payload, or nil if none was supplied.
func (a *ActivityTask) Input() interface{} { return a.input }

// RetryStrategy returns the configured retry rule, or nil if the
// activity should fail the workflow on its first failure.
func (a *ActivityTask) RetryStrategy() RetryStrategy { return a.retryStrategy }

// Timeouts returns the per-task timeout overrides.
func (a *ActivityTask) Timeouts() ActivityTimeouts { return a.timeouts }

// NewTimer builds a Timer task. delayInSeconds must be non-negative;
// neither this constructor nor graph.New validates it.
func NewTimer(id string, delayInSeconds int, requires ...TaskSpec) *Timer {
	return &Timer{id: id, delayInSeconds: delayInSeconds, requires: requires}
}

// ID implements TaskSpec.
func (t *Timer) ID() string { return t.id }

// Requires implements TaskSpec.
func (t *Timer) Requires() []TaskSpec { return t.requires }

// DelayInSeconds is the StartTimer fire delay.
func (t *Timer) DelayInSeconds() int { return t.delayInSeconds }
