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

// Package decider implements the DecisionBuilder: the pure function
// from (execution graph, current history) to (next decision batch,
// terminal flags) that is the core of this design (§4.3).
package decider

import (
	"encoding/json"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/dcarral/floto/decision"
	"github.com/dcarral/floto/graph"
	"github.com/dcarral/floto/history"
	"github.com/dcarral/floto/internal/common/metrics"
	"github.com/dcarral/floto/specs"
)

// OpenCounts mirrors the coordinator's openCounts hint (§6): how many
// activities and timers are still outstanding for this execution.
type OpenCounts struct {
	OpenActivityTasks int
	OpenTimers        int
}

// WorkflowExecutionDescription is the externally supplied, opaque
// execution description the builder consults for OpenCounts (§6). A
// nil description means "unknown", which the builder treats as "no
// open tasks" per spec (open_task_counts() is false when absent).
type WorkflowExecutionDescription struct {
	OpenCounts OpenCounts
}

// Option configures a DecisionBuilder at construction.
type Option func(*DecisionBuilder)

// WithLogger attaches a structured logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(b *DecisionBuilder) { b.logger = logger }
}

// WithScope attaches a metrics scope for decision/fault/replay
// counters. Defaults to tally.NoopScope.
func WithScope(scope tally.Scope) Option {
	return func(b *DecisionBuilder) { b.scope = scope }
}

// WithTracer attaches an opentracing.Tracer used to span each
// decision round. Defaults to opentracing.NoopTracer.
func WithTracer(tracer opentracing.Tracer) Option {
	return func(b *DecisionBuilder) { b.tracer = tracer }
}

// DecisionBuilder is the orchestrator described in §4.3: given the
// graph it was built against and a task list name, it walks a history
// view and emits the next decision batch. A DecisionBuilder is safe
// to reuse across rounds (workflowFail/workflowComplete/workflowInput
// reset at the top of every DecisionsFor call) but per §5 the
// recommended usage is one instance per round.
type DecisionBuilder struct {
	executionGraph   *graph.Graph
	activityTaskList string

	history       *history.View
	workflowInput interface{}

	workflowFail     bool
	workflowComplete bool

	currentWorkflowExecutionDescription *WorkflowExecutionDescription

	logger *zap.Logger
	scope  tally.Scope
	tracer opentracing.Tracer
}

// New builds a DecisionBuilder over executionGraph, scheduling
// activities onto activityTaskList.
func New(executionGraph *graph.Graph, activityTaskList string, opts ...Option) *DecisionBuilder {
	b := &DecisionBuilder{
		executionGraph:   executionGraph,
		activityTaskList: activityTaskList,
		logger:           zap.NewNop(),
		scope:            tally.NoopScope,
		tracer:           opentracing.NoopTracer{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetWorkflowExecutionDescription supplies the open-count hint the
// current round should consult. The caller is expected to call this
// once per round before DecisionsFor, as the poll loop does (§6); a
// fresh DecisionBuilder naturally starts with a nil description.
func (b *DecisionBuilder) SetWorkflowExecutionDescription(desc *WorkflowExecutionDescription) {
	b.currentWorkflowExecutionDescription = desc
}

// IsTerminateWorkflow reports whether the most recent DecisionsFor
// call set workflowFail or workflowComplete (§4.3.7).
func (b *DecisionBuilder) IsTerminateWorkflow() bool {
	return b.workflowFail || b.workflowComplete
}

// DecisionsFor is the single public operation of the core (§4.3):
// given a history view, it returns the next batch of decisions.
func (b *DecisionBuilder) DecisionsFor(h *history.View) ([]decision.Decision, error) {
	span := b.tracer.StartSpan("decision_round")
	defer span.Finish()

	b.history = h
	b.workflowInput = nil
	b.workflowFail = false
	b.workflowComplete = false

	lo := h.PreviousDecisionID()
	hi := h.DecisionTaskStartedEventID()
	span.SetTag("lo", lo)
	span.SetTag("hi", hi)

	decisions, err := b.collectDecisions(lo, hi)
	if err != nil {
		b.logger.Error("decision round failed", zap.Int64("lo", lo), zap.Int64("hi", hi), zap.Error(err))
		return nil, err
	}
	b.logger.Debug("decision round produced decisions",
		zap.Int64("lo", lo), zap.Int64("hi", hi), zap.Int("count", len(decisions)))
	return decisions, nil
}

// collectDecisions implements the dispatch of §4.3.1.
func (b *DecisionBuilder) collectDecisions(lo, hi int64) ([]decision.Decision, error) {
	if b.history.FirstDecisionTask() {
		return b.decisionsAfterWorkflowStart()
	}

	window := b.history.GetEventsForDecision(lo, hi)

	switch {
	case len(window.DecisionFailed) > 0:
		b.scope.Counter(metrics.DecisionsReplayed).Inc(1)
		return b.decisionsDecisionFailed(window.DecisionFailed)

	case len(window.Faulty) > 0:
		return b.decisionsFaultyTasks(window.Faulty)

	case len(window.Completed) > 0:
		finished, err := b.allWorkflowTasksFinished(window.Completed)
		if err != nil {
			return nil, err
		}
		if finished {
			result, err := b.getWorkflowResult()
			if err != nil {
				return nil, err
			}
			if result != nil {
				b.workflowComplete = true
				b.scope.Counter(metrics.WorkflowCompleted).Inc(1)
				return []decision.Decision{decision.CompleteWorkflowExecution{Result: result}}, nil
			}
		}
		return b.decisionsAfterActivityCompletion(window.Completed)

	default:
		return nil, nil
	}
}

// decisionsAfterWorkflowStart implements §4.3.2.
func (b *DecisionBuilder) decisionsAfterWorkflowStart() ([]decision.Decision, error) {
	input, err := b.history.WorkflowInput()
	if err != nil {
		return nil, errors.Wrap(err, "decider: reading workflow input")
	}
	b.workflowInput = input

	var decisions []decision.Decision
	for _, task := range b.executionGraph.FirstTasks() {
		d, err := b.decisionFor(task)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// decisionsDecisionFailed implements §4.3.1 step 3: replay the round
// that the coordinator never got a reply for.
func (b *DecisionBuilder) decisionsDecisionFailed(events []history.Event) ([]decision.Decision, error) {
	startedEventID, err := decisionFailedStartedEventID(events[0])
	if err != nil {
		return nil, err
	}
	b.logger.Info("replaying decision after decision task failure",
		zap.Int64("startedEventId", startedEventID))
	return b.collectDecisions(b.history.IDPreviousStarted(), startedEventID)
}

func decisionFailedStartedEventID(e history.Event) (int64, error) {
	switch e.EventType {
	case history.EventTypeDecisionTaskTimedOut:
		return e.DecisionTaskTimedOutEventAttributes.StartedEventID, nil
	case history.EventTypeDecisionTaskFailed:
		return e.DecisionTaskFailedEventAttributes.StartedEventID, nil
	default:
		return 0, errors.Errorf("decider: event %v is not a decision-failed event", e.EventType)
	}
}

// decisionsFaultyTasks implements §4.3.3.
func (b *DecisionBuilder) decisionsFaultyTasks(events []history.Event) ([]decision.Decision, error) {
	if b.workflowFail {
		return nil, nil
	}

	var decisions []decision.Decision
	for _, e := range events {
		if b.workflowFail {
			break
		}

		id, err := b.history.IDActivityTaskEvent(e)
		if err != nil {
			return nil, &HistoryError{EventID: e.EventID, Reason: err.Error()}
		}
		task, err := b.executionGraph.MustTaskByID(id)
		if err != nil {
			return nil, &HistoryError{EventID: e.EventID, Reason: err.Error()}
		}
		activity, ok := task.(*specs.ActivityTask)
		if !ok {
			return nil, &HistoryError{EventID: e.EventID, Reason: fmt.Sprintf("resolved to non-activity task %q", id)}
		}

		failureCount, err := b.history.NumberActivityTaskFailures(id)
		if err != nil {
			return nil, err
		}

		retry := activity.RetryStrategy()
		if retry != nil && retry.Retry(failureCount) {
			d, err := b.decisionRetryActivityTask(activity, failureCount)
			if err != nil {
				return nil, err
			}
			b.scope.Counter(metrics.DecisionsRetried).Inc(1)
			decisions = append(decisions, d)
			continue
		}

		reason := decision.ReasonTaskFailed
		if retry != nil {
			reason = decision.ReasonTaskRetryLimitReached
		}
		details, err := b.detailsFailedTasks(events)
		if err != nil {
			return nil, err
		}
		b.workflowFail = true
		b.scope.Counter(metrics.WorkflowFailed).Inc(1)
		decisions = append(decisions, decision.FailWorkflowExecution{Reason: reason, Details: details})
	}
	return decisions, nil
}

// decisionRetryActivityTask re-schedules activity with the exact
// input payload of its original ActivityTaskScheduled event, not
// activity.Input(): the stored JSON string is checked for validity and
// passed on unchanged as a json.RawMessage.
func (b *DecisionBuilder) decisionRetryActivityTask(activity *specs.ActivityTask, failureCount int) (decision.Decision, error) {
	faultyEvent, err := b.lastFaultyEventFor(activity.ID())
	if err != nil {
		return nil, err
	}
	scheduled, err := b.history.EventTaskScheduled(faultyEvent)
	if err != nil {
		return nil, errors.Wrap(err, "decider: retrying activity task")
	}

	var input interface{}
	if raw := scheduled.ActivityTaskScheduledEventAttributes.Input; raw != "" {
		var decoded interface{}
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, errors.Wrap(err, "decider: malformed scheduled input on retry")
		}
		input = json.RawMessage(raw)
	}

	return decision.ScheduleActivityTask{
		ActivityType: decision.ActivityType{Name: activity.Name(), Version: activity.Version()},
		ActivityID:   activity.ID(),
		TaskList:     b.activityTaskList,
		Input:        input,
		Timeouts:     activity.Timeouts(),
		RetryCount:   failureCount,
	}, nil
}

// lastFaultyEventFor finds the most recent faulty event in the full
// history for id, used to locate the ActivityTaskScheduled event a
// retry should reuse the input of.
func (b *DecisionBuilder) lastFaultyEventFor(id string) (history.Event, error) {
	var found history.Event
	hasFound := false
	for _, e := range b.history.Events() {
		switch e.EventType {
		case history.EventTypeActivityTaskFailed, history.EventTypeActivityTaskTimedOut, history.EventTypeActivityTaskCanceled:
		default:
			continue
		}
		resolved, err := b.history.IDActivityTaskEvent(e)
		if err != nil {
			return history.Event{}, err
		}
		if resolved == id {
			found, hasFound = e, true
		}
	}
	if !hasFound {
		return history.Event{}, errors.Errorf("decider: no faulty event found for activity %q", id)
	}
	return found, nil
}

// detailsFailedTasks implements the original's get_details_failed_tasks:
// a mapping from task id to the failure details string of the last
// ActivityTaskFailed event among events, per task id.
func (b *DecisionBuilder) detailsFailedTasks(events []history.Event) (map[string]string, error) {
	details := make(map[string]string)
	for _, e := range events {
		if e.EventType != history.EventTypeActivityTaskFailed {
			continue
		}
		id, err := b.history.IDActivityTaskEvent(e)
		if err != nil {
			return nil, err
		}
		details[id] = e.ActivityTaskFailedEventAttributes.Details
	}
	return details, nil
}

// decisionsAfterActivityCompletion implements §4.3.4.
func (b *DecisionBuilder) decisionsAfterActivityCompletion(events []history.Event) ([]decision.Decision, error) {
	completed, err := b.taskEventsOf(events)
	if err != nil {
		return nil, err
	}

	tasks, err := b.tasksToBeScheduled(completed)
	if err != nil {
		return nil, err
	}

	var decisions []decision.Decision
	for _, task := range tasks {
		d, err := b.decisionFor(task)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// taskEvent pairs a resolved task id with the EventID of the history
// event it was resolved from, so downstream graph lookups can report a
// HistoryError that points back at the offending event.
type taskEvent struct {
	ID      string
	EventID int64
}

func (b *DecisionBuilder) taskEventsOf(events []history.Event) ([]taskEvent, error) {
	out := make([]taskEvent, 0, len(events))
	for _, e := range events {
		id, err := b.history.IDTaskEvent(e)
		if err != nil {
			return nil, err
		}
		out = append(out, taskEvent{ID: id, EventID: e.EventID})
	}
	return out, nil
}

// tasksToBeScheduled unions tasksToBeScheduledSingleID over every
// completed task event and de-duplicates the result by id (§4.3.4
// step 2).
func (b *DecisionBuilder) tasksToBeScheduled(completed []taskEvent) ([]specs.TaskSpec, error) {
	var candidates []specs.TaskSpec
	for _, te := range completed {
		ready, err := b.tasksToBeScheduledSingleID(te)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, ready...)
	}
	return uniqifyActivityTasks(candidates), nil
}

// tasksToBeScheduledSingleID returns the successors of te.ID whose
// requires are all completed and which are not themselves completed.
// A te.ID the execution graph does not recognize is a history
// inconsistency, fatal per §4.4, not "has no successors".
func (b *DecisionBuilder) tasksToBeScheduledSingleID(te taskEvent) ([]specs.TaskSpec, error) {
	if _, err := b.executionGraph.MustTaskByID(te.ID); err != nil {
		return nil, &HistoryError{EventID: te.EventID, Reason: err.Error()}
	}

	var ready []specs.TaskSpec
	for _, succ := range b.executionGraph.Successors(te.ID) {
		done, err := b.history.IsTaskCompleted(succ)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}

		allRequiresCompleted := true
		for _, req := range succ.Requires() {
			reqDone, err := b.history.IsTaskCompleted(req)
			if err != nil {
				return nil, err
			}
			if !reqDone {
				allRequiresCompleted = false
				break
			}
		}
		if allRequiresCompleted {
			ready = append(ready, succ)
		}
	}
	return ready, nil
}

func uniqifyActivityTasks(tasks []specs.TaskSpec) []specs.TaskSpec {
	seen := make(map[string]bool, len(tasks))
	out := make([]specs.TaskSpec, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID()] {
			continue
		}
		seen[t.ID()] = true
		out = append(out, t)
	}
	return out
}

// decisionFor dispatches a task spec to its decision shape (§9
// "Polymorphism over task kinds").
func (b *DecisionBuilder) decisionFor(task specs.TaskSpec) (decision.Decision, error) {
	switch t := task.(type) {
	case *specs.Timer:
		return decision.StartTimer{TimerID: t.ID(), StartToFireTimeout: t.DelayInSeconds()}, nil
	case *specs.ActivityTask:
		input, err := b.inputActivityTask(t)
		if err != nil {
			return nil, err
		}
		b.scope.Counter(metrics.DecisionsScheduled).Inc(1)
		return decision.ScheduleActivityTask{
			ActivityType: decision.ActivityType{Name: t.Name(), Version: t.Version()},
			ActivityID:   t.ID(),
			TaskList:     b.activityTaskList,
			Input:        input,
			Timeouts:     t.Timeouts(),
		}, nil
	default:
		return nil, errors.Errorf("decider: unrecognized task spec type for id %q", task.ID())
	}
}

// inputActivityTask implements the wrapping rules of §4.3.5.
func (b *DecisionBuilder) inputActivityTask(t *specs.ActivityTask) (interface{}, error) {
	if len(t.Requires()) == 0 {
		input := map[string]interface{}{"activity_task": t.Input()}
		if b.workflowInput != nil {
			input["workflow"] = b.workflowInput
		}
		return input, nil
	}

	input := make(map[string]interface{}, len(t.Requires())+1)
	for _, p := range t.Requires() {
		result, err := b.history.ResultCompletedActivity(p.ID())
		if err != nil {
			return nil, errors.Wrapf(err, "decider: routing result of %q into %q", p.ID(), t.ID())
		}
		input[p.ID()] = result
	}
	if t.Input() != nil {
		input["activity_task"] = t.Input()
	}
	return input, nil
}

// allWorkflowTasksFinished implements the termination classification
// of §4.3.6.
func (b *DecisionBuilder) allWorkflowTasksFinished(completed []history.Event) (bool, error) {
	completedEvents, err := b.taskEventsOf(completed)
	if err != nil {
		return false, err
	}

	hasDepending, err := b.completedHaveDependingTasks(completedEvents)
	if err != nil {
		return false, err
	}
	if hasDepending {
		return false, nil
	}
	if b.openTaskCounts() {
		return false, nil
	}
	return b.outgoingVerticesCompleted()
}

// completedHaveDependingTasks reports whether any completed task has an
// unfinished successor. A completed id the execution graph does not
// recognize is a history inconsistency, fatal per §4.4.
func (b *DecisionBuilder) completedHaveDependingTasks(completed []taskEvent) (bool, error) {
	for _, te := range completed {
		if _, err := b.executionGraph.MustTaskByID(te.ID); err != nil {
			return false, &HistoryError{EventID: te.EventID, Reason: err.Error()}
		}
		for _, succ := range b.executionGraph.Successors(te.ID) {
			done, err := b.history.IsTaskCompleted(succ)
			if err != nil {
				return false, err
			}
			if !done {
				return true, nil
			}
		}
	}
	return false, nil
}

// openTaskCounts reports the coordinator's openCounts hint (§6):
// false whenever no WorkflowExecutionDescription has been supplied.
func (b *DecisionBuilder) openTaskCounts() bool {
	if b.currentWorkflowExecutionDescription == nil {
		return false
	}
	oc := b.currentWorkflowExecutionDescription.OpenCounts
	return oc.OpenActivityTasks+oc.OpenTimers > 0
}

func (b *DecisionBuilder) outgoingVerticesCompleted() (bool, error) {
	for _, sink := range b.executionGraph.OutgoingVertices() {
		done, err := b.history.IsTaskCompleted(sink)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}
	return true, nil
}

// getWorkflowResult implements §4.3.6: a mapping from each sink task
// id to its result, or nil if any sink result is missing.
func (b *DecisionBuilder) getWorkflowResult() (map[string]interface{}, error) {
	sinks := b.executionGraph.OutgoingVertices()
	result := make(map[string]interface{}, len(sinks))
	for _, sink := range sinks {
		r, err := b.history.ResultCompletedActivity(sink.ID())
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, nil
		}
		result[sink.ID()] = r
	}
	return result, nil
}
