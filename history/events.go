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

package history

import "time"

// EventType enumerates the history event kinds the decider needs to
// recognize (§6 of the design). The coordinator may emit other event
// types (signals, markers, child workflow events, ...); the view
// treats anything it doesn't recognize as opaque and ignores it.
type EventType string

// Recognized event types.
const (
	EventTypeWorkflowExecutionStarted EventType = "WorkflowExecutionStarted"
	EventTypeDecisionTaskStarted      EventType = "DecisionTaskStarted"
	EventTypeDecisionTaskCompleted    EventType = "DecisionTaskCompleted"
	EventTypeDecisionTaskTimedOut     EventType = "DecisionTaskTimedOut"
	EventTypeDecisionTaskFailed       EventType = "DecisionTaskFailed"
	EventTypeActivityTaskScheduled    EventType = "ActivityTaskScheduled"
	EventTypeActivityTaskCompleted    EventType = "ActivityTaskCompleted"
	EventTypeActivityTaskFailed       EventType = "ActivityTaskFailed"
	EventTypeActivityTaskTimedOut     EventType = "ActivityTaskTimedOut"
	EventTypeActivityTaskCanceled     EventType = "ActivityTaskCanceled"
	EventTypeTimerStarted             EventType = "TimerStarted"
	EventTypeTimerFired               EventType = "TimerFired"
	EventTypeTimerCanceled            EventType = "TimerCanceled"
)

// Event is one entry of the raw history the coordinator returns.
// Exactly one <Type>EventAttributes field is populated, matching the
// attribute-bag-per-type shape documented in §6. Input/Result/Details
// payloads travel as JSON-encoded strings, exactly as the coordinator
// sends them; the decider deserializes lazily, only where it needs to
// inspect a value.
type Event struct {
	EventID        int64     `json:"eventId"`
	EventType      EventType `json:"eventType"`
	EventTimestamp time.Time `json:"eventTimestamp"`

	WorkflowExecutionStartedEventAttributes *WorkflowExecutionStartedEventAttributes `json:"workflowExecutionStartedEventAttributes,omitempty"`
	DecisionTaskStartedEventAttributes      *DecisionTaskStartedEventAttributes      `json:"decisionTaskStartedEventAttributes,omitempty"`
	DecisionTaskCompletedEventAttributes    *DecisionTaskCompletedEventAttributes    `json:"decisionTaskCompletedEventAttributes,omitempty"`
	DecisionTaskTimedOutEventAttributes     *DecisionTaskTimedOutEventAttributes     `json:"decisionTaskTimedOutEventAttributes,omitempty"`
	DecisionTaskFailedEventAttributes       *DecisionTaskFailedEventAttributes       `json:"decisionTaskFailedEventAttributes,omitempty"`
	ActivityTaskScheduledEventAttributes    *ActivityTaskScheduledEventAttributes    `json:"activityTaskScheduledEventAttributes,omitempty"`
	ActivityTaskCompletedEventAttributes    *ActivityTaskCompletedEventAttributes    `json:"activityTaskCompletedEventAttributes,omitempty"`
	ActivityTaskFailedEventAttributes       *ActivityTaskFailedEventAttributes       `json:"activityTaskFailedEventAttributes,omitempty"`
	ActivityTaskTimedOutEventAttributes     *ActivityTaskTimedOutEventAttributes     `json:"activityTaskTimedOutEventAttributes,omitempty"`
	ActivityTaskCanceledEventAttributes     *ActivityTaskCanceledEventAttributes     `json:"activityTaskCanceledEventAttributes,omitempty"`
	TimerStartedEventAttributes             *TimerStartedEventAttributes             `json:"timerStartedEventAttributes,omitempty"`
	TimerFiredEventAttributes                *TimerFiredEventAttributes               `json:"timerFiredEventAttributes,omitempty"`
	TimerCanceledEventAttributes             *TimerCanceledEventAttributes            `json:"timerCanceledEventAttributes,omitempty"`
}

// WorkflowExecutionStartedEventAttributes carries the workflow's own
// input, JSON-encoded.
type WorkflowExecutionStartedEventAttributes struct {
	Input string `json:"input,omitempty"`
}

// DecisionTaskStartedEventAttributes marks the decision task the
// current round is answering.
type DecisionTaskStartedEventAttributes struct{}

// DecisionTaskCompletedEventAttributes marks a decision round as
// successfully closed.
type DecisionTaskCompletedEventAttributes struct {
	StartedEventID int64 `json:"startedEventId"`
}

// DecisionTaskTimedOutEventAttributes reports a lost decision round;
// StartedEventID identifies which DecisionTaskStarted it answers.
type DecisionTaskTimedOutEventAttributes struct {
	StartedEventID int64 `json:"startedEventId"`
}

// DecisionTaskFailedEventAttributes reports a rejected decision
// round, same shape as a timeout for replay purposes.
type DecisionTaskFailedEventAttributes struct {
	StartedEventID int64 `json:"startedEventId"`
}

// ActivityTaskScheduledEventAttributes is recorded when an activity
// is scheduled; Input is the exact payload sent to the coordinator.
type ActivityTaskScheduledEventAttributes struct {
	ActivityID   string `json:"activityId"`
	ActivityType string `json:"activityType"`
	Input        string `json:"input,omitempty"`
}

// ActivityTaskCompletedEventAttributes carries the JSON-encoded
// result of a successful activity attempt.
type ActivityTaskCompletedEventAttributes struct {
	ScheduledEventID int64  `json:"scheduledEventId"`
	Result           string `json:"result,omitempty"`
}

// ActivityTaskFailedEventAttributes carries the failure details
// string of a rejected attempt.
type ActivityTaskFailedEventAttributes struct {
	ScheduledEventID int64  `json:"scheduledEventId"`
	Details          string `json:"details,omitempty"`
}

// ActivityTaskTimedOutEventAttributes reports an attempt that never
// completed in time.
type ActivityTaskTimedOutEventAttributes struct {
	ScheduledEventID int64 `json:"scheduledEventId"`
}

// ActivityTaskCanceledEventAttributes reports a canceled attempt.
type ActivityTaskCanceledEventAttributes struct {
	ScheduledEventID int64 `json:"scheduledEventId"`
}

// TimerStartedEventAttributes is recorded when StartTimer is acted on.
type TimerStartedEventAttributes struct {
	TimerID string `json:"timerId"`
}

// TimerFiredEventAttributes reports a timer reaching its delay.
type TimerFiredEventAttributes struct {
	TimerID string `json:"timerId"`
}

// TimerCanceledEventAttributes reports a canceled timer.
type TimerCanceledEventAttributes struct {
	TimerID string `json:"timerId"`
}
