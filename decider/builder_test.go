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

package decider

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dcarral/floto/decision"
	"github.com/dcarral/floto/graph"
	"github.com/dcarral/floto/history"
	"github.com/dcarral/floto/specs"
)

type DecisionBuilderTestSuite struct {
	suite.Suite
}

func TestDecisionBuilderTestSuite(t *testing.T) {
	suite.Run(t, new(DecisionBuilderTestSuite))
}

func (s *DecisionBuilderTestSuite) emptyHistory() *history.View {
	return history.New("tl", &history.Response{})
}

func (s *DecisionBuilderTestSuite) twoTaskGraph() (*graph.Graph, *specs.ActivityTask, *specs.ActivityTask) {
	task1 := specs.NewActivityTask("activity1", "v1", specs.WithInput(map[string]interface{}{"date": 1}))
	task2 := specs.NewActivityTask("activity2", "v1", specs.WithRequires(task1))
	g, err := graph.New([]specs.TaskSpec{task1, task2})
	s.Require().NoError(err)
	return g, task1, task2
}

func (s *DecisionBuilderTestSuite) activityTaskScheduledHistory(activityID string, extra ...history.Event) *history.View {
	events := append([]history.Event{
		{
			EventID:   1,
			EventType: history.EventTypeActivityTaskScheduled,
			ActivityTaskScheduledEventAttributes: &history.ActivityTaskScheduledEventAttributes{
				ActivityID: activityID,
			},
		},
	}, extra...)
	return history.New("tl", &history.Response{Events: events})
}

func (s *DecisionBuilderTestSuite) TestDecisionsFor_FirstDecisionTask() {
	g, task1, _ := s.twoTaskGraph()
	b := New(g, "floto_activities")

	decisions, err := b.DecisionsFor(s.emptyHistory())
	s.Require().NoError(err)
	s.Require().Len(decisions, 1)

	sched, ok := decisions[0].(decision.ScheduleActivityTask)
	s.Require().True(ok)
	s.Equal(task1.ID(), sched.ActivityID)
	s.Equal(map[string]interface{}{"activity_task": task1.Input()}, sched.Input)
}

func (s *DecisionBuilderTestSuite) TestDecisionsFor_FirstDecisionTask_WithTimer() {
	timer := specs.NewTimer("timer_id", 60)
	g, err := graph.New([]specs.TaskSpec{timer})
	s.Require().NoError(err)
	b := New(g, "floto_activities")

	decisions, err := b.DecisionsFor(s.emptyHistory())
	s.Require().NoError(err)
	s.Require().Len(decisions, 1)

	start, ok := decisions[0].(decision.StartTimer)
	s.Require().True(ok)
	s.Equal("timer_id", start.TimerID)
	s.Equal(60, start.StartToFireTimeout)
}

func (s *DecisionBuilderTestSuite) TestDecisionsFor_WorkflowStart_RoutesWorkflowInput() {
	task1 := specs.NewActivityTask("activity1", "v1", specs.WithInput(map[string]interface{}{"date": 1}))
	g, err := graph.New([]specs.TaskSpec{task1})
	s.Require().NoError(err)
	b := New(g, "floto_activities")

	h := history.New("tl", &history.Response{Events: []history.Event{
		{
			EventID:   1,
			EventType: history.EventTypeWorkflowExecutionStarted,
			WorkflowExecutionStartedEventAttributes: &history.WorkflowExecutionStartedEventAttributes{
				Input: `{"foo":"bar"}`,
			},
		},
	}})

	decisions, err := b.DecisionsFor(h)
	s.Require().NoError(err)
	s.Require().Len(decisions, 1)

	sched := decisions[0].(decision.ScheduleActivityTask)
	s.Equal(task1.Input(), sched.Input.(map[string]interface{})["activity_task"])
	s.Equal(map[string]interface{}{"foo": "bar"}, sched.Input.(map[string]interface{})["workflow"])
}

func (s *DecisionBuilderTestSuite) TestDecisionsFor_FaultyTask_RetriesWithinLimit() {
	task1 := specs.NewActivityTask("activity1", "v1", specs.WithID("a_id"),
		specs.WithRetryStrategy(specs.InstantRetry{Retries: 1}))
	g, err := graph.New([]specs.TaskSpec{task1})
	s.Require().NoError(err)
	b := New(g, "floto_activities")

	h := s.activityTaskScheduledHistory("a_id", history.Event{
		EventID:   2,
		EventType: history.EventTypeActivityTaskFailed,
		ActivityTaskFailedEventAttributes: &history.ActivityTaskFailedEventAttributes{
			ScheduledEventID: 1,
			Details:          "boom",
		},
	})
	b.history = h

	window := h.GetEventsForDecision(0, 2)
	decisions, err := b.decisionsFaultyTasks(window.Faulty)
	s.Require().NoError(err)
	s.Require().Len(decisions, 1)

	sched, ok := decisions[0].(decision.ScheduleActivityTask)
	s.Require().True(ok)
	s.Equal("a_id", sched.ActivityID)
	s.False(b.IsTerminateWorkflow())
}

func (s *DecisionBuilderTestSuite) TestDecisionsFor_FaultyTask_RetryLimitReached() {
	task1 := specs.NewActivityTask("activity1", "v1", specs.WithID("a_id"),
		specs.WithRetryStrategy(specs.InstantRetry{Retries: 1}))
	g, err := graph.New([]specs.TaskSpec{task1})
	s.Require().NoError(err)
	b := New(g, "floto_activities")

	failed := history.Event{
		EventID:   3,
		EventType: history.EventTypeActivityTaskFailed,
		ActivityTaskFailedEventAttributes: &history.ActivityTaskFailedEventAttributes{
			ScheduledEventID: 1,
			Details:          "Error",
		},
	}
	h := s.activityTaskScheduledHistory("a_id",
		history.Event{
			EventID:   2,
			EventType: history.EventTypeActivityTaskFailed,
			ActivityTaskFailedEventAttributes: &history.ActivityTaskFailedEventAttributes{
				ScheduledEventID: 1,
				Details:          "first failure",
			},
		},
		failed,
	)
	b.history = h

	decisions, err := b.decisionsFaultyTasks([]history.Event{failed})
	s.Require().NoError(err)
	s.Require().Len(decisions, 1)

	fail, ok := decisions[0].(decision.FailWorkflowExecution)
	s.Require().True(ok)
	s.Equal(decision.ReasonTaskRetryLimitReached, fail.Reason)
	s.Equal("Error", fail.Details["a_id"])
	s.True(b.IsTerminateWorkflow())
}

func (s *DecisionBuilderTestSuite) TestDecisionsFor_FaultyTask_WithoutRetryStrategy() {
	task1 := specs.NewActivityTask("activity1", "v1", specs.WithID("a_id"))
	g, err := graph.New([]specs.TaskSpec{task1})
	s.Require().NoError(err)
	b := New(g, "floto_activities")

	failed := history.Event{
		EventID:   2,
		EventType: history.EventTypeActivityTaskFailed,
		ActivityTaskFailedEventAttributes: &history.ActivityTaskFailedEventAttributes{
			ScheduledEventID: 1,
			Details:          "Error",
		},
	}
	b.history = s.activityTaskScheduledHistory("a_id", failed)

	decisions, err := b.decisionsFaultyTasks([]history.Event{failed})
	s.Require().NoError(err)
	s.Require().Len(decisions, 1)

	fail := decisions[0].(decision.FailWorkflowExecution)
	s.Equal(decision.ReasonTaskFailed, fail.Reason)
	s.Equal("Error", fail.Details["a_id"])
}

func (s *DecisionBuilderTestSuite) TestDecisionsFaultyTasks_EarlyExit() {
	g, _, _ := s.twoTaskGraph()
	b := New(g, "atl")
	b.workflowFail = true

	decisions, err := b.decisionsFaultyTasks([]history.Event{{EventID: 1}})
	s.Require().NoError(err)
	s.Empty(decisions)
}

func (s *DecisionBuilderTestSuite) TestTasksToBeScheduled_UnionsAndFilters() {
	a := specs.NewActivityTask("a", "v", specs.WithID("a"))
	bTask := specs.NewActivityTask("b", "v", specs.WithID("b"))
	c := specs.NewActivityTask("c", "v", specs.WithID("c"), specs.WithRequires(a, bTask))
	d := specs.NewActivityTask("d", "v", specs.WithID("d"), specs.WithRequires(bTask))
	g, err := graph.New([]specs.TaskSpec{a, bTask, c, d})
	s.Require().NoError(err)

	builder := New(g, "atl")
	builder.history = history.New("tl", &history.Response{Events: []history.Event{
		{EventID: 1, EventType: history.EventTypeActivityTaskScheduled,
			ActivityTaskScheduledEventAttributes: &history.ActivityTaskScheduledEventAttributes{ActivityID: "a"}},
		{EventID: 2, EventType: history.EventTypeActivityTaskCompleted,
			ActivityTaskCompletedEventAttributes: &history.ActivityTaskCompletedEventAttributes{ScheduledEventID: 1}},
		{EventID: 3, EventType: history.EventTypeActivityTaskScheduled,
			ActivityTaskScheduledEventAttributes: &history.ActivityTaskScheduledEventAttributes{ActivityID: "b"}},
		{EventID: 4, EventType: history.EventTypeActivityTaskCompleted,
			ActivityTaskCompletedEventAttributes: &history.ActivityTaskCompletedEventAttributes{ScheduledEventID: 3}},
	}})

	tasks, err := builder.tasksToBeScheduled([]taskEvent{{ID: "a", EventID: 2}, {ID: "b", EventID: 4}})
	s.Require().NoError(err)

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID())
	}
	s.ElementsMatch([]string{"c", "d"}, ids)
}

func (s *DecisionBuilderTestSuite) TestTasksToBeScheduledSingleID_UnknownID_IsFatal() {
	g, _, _ := s.twoTaskGraph()
	builder := New(g, "atl")
	builder.history = s.emptyHistory()

	_, err := builder.tasksToBeScheduled([]taskEvent{{ID: "does_not_exist", EventID: 7}})
	s.Require().Error(err)

	var historyErr *HistoryError
	s.Require().ErrorAs(err, &historyErr)
	s.Equal(int64(7), historyErr.EventID)
}

func (s *DecisionBuilderTestSuite) TestUniqifyActivityTasks_DropsDuplicateIDs() {
	t1 := specs.NewActivityTask("t1", "v", specs.WithID("t1"))
	t1Dup := specs.NewActivityTask("t1", "v", specs.WithID("t1"))
	t2 := specs.NewActivityTask("t2", "v", specs.WithID("t2"), specs.WithRequires(t1))

	out := uniqifyActivityTasks([]specs.TaskSpec{t1, t1Dup, t2})
	s.Require().Len(out, 2)
	s.Equal("t1", out[0].ID())
	s.Equal("t2", out[1].ID())
}

func (s *DecisionBuilderTestSuite) TestDetailsFailedTasks_KeysByLastFailureEvent() {
	g, _, _ := s.twoTaskGraph()
	builder := New(g, "atl")
	builder.history = history.New("tl", &history.Response{Events: []history.Event{
		{EventID: 1, EventType: history.EventTypeActivityTaskScheduled,
			ActivityTaskScheduledEventAttributes: &history.ActivityTaskScheduledEventAttributes{ActivityID: "a_id"}},
	}})

	earlier := history.Event{
		EventID:   2,
		EventType: history.EventTypeActivityTaskFailed,
		ActivityTaskFailedEventAttributes: &history.ActivityTaskFailedEventAttributes{
			ScheduledEventID: 1,
			Details:          "first failure",
		},
	}
	event := history.Event{
		EventID:   3,
		EventType: history.EventTypeActivityTaskFailed,
		ActivityTaskFailedEventAttributes: &history.ActivityTaskFailedEventAttributes{
			ScheduledEventID: 1,
			Details:          "Error",
		},
	}

	details, err := builder.detailsFailedTasks([]history.Event{earlier, event})
	s.Require().NoError(err)
	s.Equal("Error", details["a_id"])
}

func (s *DecisionBuilderTestSuite) TestOpenTaskCounts() {
	g, _, _ := s.twoTaskGraph()

	cases := []struct {
		name     string
		desc     *WorkflowExecutionDescription
		expected bool
	}{
		{"nil description", nil, false},
		{"no open tasks", &WorkflowExecutionDescription{}, false},
		{"open activity", &WorkflowExecutionDescription{OpenCounts: OpenCounts{OpenActivityTasks: 1}}, true},
		{"open timer", &WorkflowExecutionDescription{OpenCounts: OpenCounts{OpenTimers: 1}}, true},
	}

	for _, tc := range cases {
		tc := tc
		s.Run(tc.name, func() {
			b := New(g, "atl")
			b.SetWorkflowExecutionDescription(tc.desc)
			s.Equal(tc.expected, b.openTaskCounts())
		})
	}
}

func (s *DecisionBuilderTestSuite) TestDecisionsFor_Completion_EmitsCompleteWorkflowExecution() {
	task1 := specs.NewActivityTask("activity1", "v1", specs.WithID("a_id"))
	g, err := graph.New([]specs.TaskSpec{task1})
	s.Require().NoError(err)
	b := New(g, "atl")

	h := history.New("tl", &history.Response{Events: []history.Event{
		{EventID: 1, EventType: history.EventTypeDecisionTaskCompleted,
			DecisionTaskCompletedEventAttributes: &history.DecisionTaskCompletedEventAttributes{}},
		{EventID: 2, EventType: history.EventTypeActivityTaskScheduled,
			ActivityTaskScheduledEventAttributes: &history.ActivityTaskScheduledEventAttributes{ActivityID: "a_id"}},
		{EventID: 3, EventType: history.EventTypeActivityTaskCompleted,
			ActivityTaskCompletedEventAttributes: &history.ActivityTaskCompletedEventAttributes{
				ScheduledEventID: 2, Result: `{"ok":true}`,
			}},
		{EventID: 4, EventType: history.EventTypeDecisionTaskStarted},
	}})

	decisions, err := b.DecisionsFor(h)
	s.Require().NoError(err)
	s.Require().Len(decisions, 1)

	complete, ok := decisions[0].(decision.CompleteWorkflowExecution)
	s.Require().True(ok)
	s.Equal(map[string]interface{}{"ok": true}, complete.Result["a_id"])
	s.True(b.IsTerminateWorkflow())
}

// TestDecisionsFor_Completion_WaitsForMissingSinkResult covers §4.4: an
// empty Result on the sink's ActivityTaskCompleted event means the
// result is not yet available, so the round must not complete the
// workflow even though every sink has a completed event.
func (s *DecisionBuilderTestSuite) TestDecisionsFor_Completion_WaitsForMissingSinkResult() {
	task1 := specs.NewActivityTask("activity1", "v1", specs.WithID("a_id"))
	g, err := graph.New([]specs.TaskSpec{task1})
	s.Require().NoError(err)
	b := New(g, "atl")

	h := history.New("tl", &history.Response{Events: []history.Event{
		{EventID: 1, EventType: history.EventTypeDecisionTaskCompleted,
			DecisionTaskCompletedEventAttributes: &history.DecisionTaskCompletedEventAttributes{}},
		{EventID: 2, EventType: history.EventTypeActivityTaskScheduled,
			ActivityTaskScheduledEventAttributes: &history.ActivityTaskScheduledEventAttributes{ActivityID: "a_id"}},
		{EventID: 3, EventType: history.EventTypeActivityTaskCompleted,
			ActivityTaskCompletedEventAttributes: &history.ActivityTaskCompletedEventAttributes{
				ScheduledEventID: 2, Result: "",
			}},
		{EventID: 4, EventType: history.EventTypeDecisionTaskStarted},
	}})

	decisions, err := b.DecisionsFor(h)
	s.Require().NoError(err)
	s.Empty(decisions)
	s.False(b.IsTerminateWorkflow())
}

func (s *DecisionBuilderTestSuite) TestCompletedHaveDependingTasks_UnknownID_IsFatal() {
	g, _, _ := s.twoTaskGraph()
	builder := New(g, "atl")
	builder.history = s.emptyHistory()

	_, err := builder.completedHaveDependingTasks([]taskEvent{{ID: "does_not_exist", EventID: 9}})
	s.Require().Error(err)

	var historyErr *HistoryError
	s.Require().ErrorAs(err, &historyErr)
	s.Equal(int64(9), historyErr.EventID)
}
