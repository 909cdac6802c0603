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

// Package coordinator implements the external collaborator side of
// the design (§6): the poll loop that pulls decision tasks for a task
// list, materializes a history.View for each, drives a
// decider.DecisionBuilder, and replies with the resulting decisions.
// Everything the core itself treats as opaque (transport, retries,
// the wire encoding of a decision) lives here.
package coordinator

import (
	"context"

	"github.com/dcarral/floto/decider"
	"github.com/dcarral/floto/decision"
	"github.com/dcarral/floto/history"
)

//go:generate mockgen -source=client.go -destination=client_mock.go -package=coordinator

// DecisionTask is one unit of work the coordinator hands to the poll
// loop: enough to build a history.View and a decider.DecisionBuilder
// and to reply once decisions are ready.
type DecisionTask struct {
	TaskToken        []byte
	WorkflowID       string
	RunID            string
	TaskList         string
	ActivityTaskList string
	History          *history.Response
	Description      *decider.WorkflowExecutionDescription
}

// Client is the decider's view of the coordinator: long-poll for
// decision tasks and respond with the decisions a round produced.
// PollForDecisionTask may return (nil, nil) on a poll timeout with no
// task available, which is not an error (§6 "transient coordinator
// errors ... not an error from the core's perspective").
type Client interface {
	PollForDecisionTask(ctx context.Context, taskList string) (*DecisionTask, error)
	RespondDecisionTaskCompleted(ctx context.Context, taskToken []byte, decisions []decision.Decision) error
	RespondDecisionTaskFailed(ctx context.Context, taskToken []byte, cause string) error
}
