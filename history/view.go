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

// Package history implements a read-only, query-rich projection over
// the raw event log a coordinator returns for one workflow execution
// (§3 "History view", §4.1 of the design). A View is rebuilt from
// scratch every decision round; it owns no mutable state beyond the
// indexes New builds from its own event slice.
package history

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/dcarral/floto/specs"
)

// Response is the raw payload a coordinator returns for a
// GetWorkflowExecutionHistory-equivalent call: the event page and its
// pagination token.
type Response struct {
	Events        []Event
	NextPageToken []byte
}

// DecisionWindow is the classification a View produces for the events
// strictly inside (lo, hi] — see GetEventsForDecision.
type DecisionWindow struct {
	DecisionFailed []Event
	Faulty         []Event
	Completed      []Event
}

// EventError reports an event the view cannot trace: an unexpected
// event type, or a scheduled event id with no ActivityTaskScheduled
// event behind it.
type EventError struct {
	Message string
}

func (e *EventError) Error() string { return e.Message }

// View projects one Response for one workflow execution. TaskList is
// carried only for diagnostics.
type View struct {
	TaskList string

	events []Event

	byID              map[int64]Event
	scheduledToActivity map[int64]string
}

// New builds a View over response. Events are assumed already sorted
// by ascending EventID, as the coordinator contract requires (§5).
func New(taskList string, response *Response) *View {
	v := &View{
		TaskList:            taskList,
		events:              response.Events,
		byID:                make(map[int64]Event, len(response.Events)),
		scheduledToActivity: make(map[int64]string),
	}
	for _, e := range response.Events {
		v.byID[e.EventID] = e
		if e.EventType == EventTypeActivityTaskScheduled && e.ActivityTaskScheduledEventAttributes != nil {
			v.scheduledToActivity[e.EventID] = e.ActivityTaskScheduledEventAttributes.ActivityID
		}
	}
	return v
}

// Events returns the full, ordered event slice the view was built
// from.
func (v *View) Events() []Event { return v.events }

// FirstDecisionTask reports whether no decision round has ever
// completed for this execution.
func (v *View) FirstDecisionTask() bool {
	for _, e := range v.events {
		if e.EventType == EventTypeDecisionTaskCompleted {
			return false
		}
	}
	return true
}

// PreviousDecisionID returns the event id of the most recent
// DecisionTaskCompleted, or 0 if none has completed yet.
func (v *View) PreviousDecisionID() int64 {
	var id int64
	for _, e := range v.events {
		if e.EventType == EventTypeDecisionTaskCompleted {
			id = e.EventID
		}
	}
	return id
}

// DecisionTaskStartedEventID returns the event id of the
// DecisionTaskStarted the current round is answering: the last one in
// the history.
func (v *View) DecisionTaskStartedEventID() int64 {
	var id int64
	for _, e := range v.events {
		if e.EventType == EventTypeDecisionTaskStarted {
			id = e.EventID
		}
	}
	return id
}

// IDPreviousStarted returns the event id of the DecisionTaskStarted
// immediately before PreviousDecisionID, or 0 if there is none. Used
// to recompute the lower bound of a decision window when replaying
// past a failed decision task (§4.3.1 step 3).
func (v *View) IDPreviousStarted() int64 {
	previousDecisionID := v.PreviousDecisionID()
	var id int64
	for _, e := range v.events {
		if e.EventID >= previousDecisionID {
			break
		}
		if e.EventType == EventTypeDecisionTaskStarted {
			id = e.EventID
		}
	}
	return id
}

// GetEventsForDecision partitions the events with lo < EventID <= hi
// into decision-failed, faulty, and completed buckets (§3, §4.3.1).
func (v *View) GetEventsForDecision(lo, hi int64) DecisionWindow {
	var w DecisionWindow
	for _, e := range v.events {
		if e.EventID <= lo || e.EventID > hi {
			continue
		}
		switch e.EventType {
		case EventTypeDecisionTaskTimedOut, EventTypeDecisionTaskFailed:
			w.DecisionFailed = append(w.DecisionFailed, e)
		case EventTypeActivityTaskFailed, EventTypeActivityTaskTimedOut,
			EventTypeActivityTaskCanceled, EventTypeTimerCanceled:
			w.Faulty = append(w.Faulty, e)
		case EventTypeActivityTaskCompleted, EventTypeTimerFired:
			w.Completed = append(w.Completed, e)
		}
	}
	return w
}

// EventTaskScheduled returns the ActivityTaskScheduled event that
// spawned event, tracing back through its ScheduledEventID.
func (v *View) EventTaskScheduled(event Event) (Event, error) {
	scheduledID, err := scheduledEventID(event)
	if err != nil {
		return Event{}, err
	}
	scheduled, ok := v.byID[scheduledID]
	if !ok || scheduled.EventType != EventTypeActivityTaskScheduled {
		return Event{}, &EventError{Message: "history: no ActivityTaskScheduled event found for scheduled event id"}
	}
	return scheduled, nil
}

// IDActivityTaskEvent returns the activity id associated with event,
// tracing back through ScheduledEventID via the ActivityTaskScheduled
// event that spawned it.
func (v *View) IDActivityTaskEvent(event Event) (string, error) {
	scheduledID, err := scheduledEventID(event)
	if err != nil {
		return "", err
	}
	id, ok := v.scheduledToActivity[scheduledID]
	if !ok {
		return "", &EventError{Message: "history: unable to resolve activity id for event"}
	}
	return id, nil
}

// IDTaskEvent is IDActivityTaskEvent generalized to also resolve
// timer events, which carry their id directly.
func (v *View) IDTaskEvent(event Event) (string, error) {
	switch event.EventType {
	case EventTypeTimerStarted:
		return event.TimerStartedEventAttributes.TimerID, nil
	case EventTypeTimerFired:
		return event.TimerFiredEventAttributes.TimerID, nil
	case EventTypeTimerCanceled:
		return event.TimerCanceledEventAttributes.TimerID, nil
	default:
		return v.IDActivityTaskEvent(event)
	}
}

// NumberActivityTaskFailures counts ActivityTaskFailed events
// resolved to id in this history.
func (v *View) NumberActivityTaskFailures(id string) (int, error) {
	count := 0
	for _, e := range v.events {
		if e.EventType != EventTypeActivityTaskFailed {
			continue
		}
		resolved, err := v.IDActivityTaskEvent(e)
		if err != nil {
			return 0, err
		}
		if resolved == id {
			count++
		}
	}
	return count, nil
}

// ResultCompletedActivity returns the deserialized result of the
// completed activity id, or nil if it has not completed.
func (v *View) ResultCompletedActivity(id string) (interface{}, error) {
	for _, e := range v.events {
		if e.EventType != EventTypeActivityTaskCompleted {
			continue
		}
		resolved, err := v.IDActivityTaskEvent(e)
		if err != nil {
			return nil, err
		}
		if resolved != id {
			continue
		}
		return decodeJSONString(e.ActivityTaskCompletedEventAttributes.Result)
	}
	return nil, nil
}

// IsTaskCompleted reports whether task has a success-terminal event
// in this history: ActivityTaskCompleted for an activity, TimerFired
// for a timer.
func (v *View) IsTaskCompleted(task specs.TaskSpec) (bool, error) {
	switch task.(type) {
	case *specs.Timer:
		for _, e := range v.events {
			if e.EventType == EventTypeTimerFired && e.TimerFiredEventAttributes.TimerID == task.ID() {
				return true, nil
			}
		}
		return false, nil
	default:
		for _, e := range v.events {
			if e.EventType != EventTypeActivityTaskCompleted {
				continue
			}
			resolved, err := v.IDActivityTaskEvent(e)
			if err != nil {
				return false, err
			}
			if resolved == task.ID() {
				return true, nil
			}
		}
		return false, nil
	}
}

// WorkflowInput returns the deserialized workflow input recorded in
// WorkflowExecutionStarted, or nil if absent.
func (v *View) WorkflowInput() (interface{}, error) {
	for _, e := range v.events {
		if e.EventType == EventTypeWorkflowExecutionStarted {
			if e.WorkflowExecutionStartedEventAttributes == nil {
				return nil, nil
			}
			return decodeJSONString(e.WorkflowExecutionStartedEventAttributes.Input)
		}
	}
	return nil, nil
}

func scheduledEventID(event Event) (int64, error) {
	switch event.EventType {
	case EventTypeActivityTaskCompleted:
		return event.ActivityTaskCompletedEventAttributes.ScheduledEventID, nil
	case EventTypeActivityTaskFailed:
		return event.ActivityTaskFailedEventAttributes.ScheduledEventID, nil
	case EventTypeActivityTaskTimedOut:
		return event.ActivityTaskTimedOutEventAttributes.ScheduledEventID, nil
	case EventTypeActivityTaskCanceled:
		return event.ActivityTaskCanceledEventAttributes.ScheduledEventID, nil
	default:
		return 0, &EventError{Message: "history: unexpected event type " + string(event.EventType)}
	}
}

func decodeJSONString(raw string) (interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, errors.Wrap(err, "history: malformed JSON payload")
	}
	return v, nil
}
