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

package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dcarral/floto/graph"
	"github.com/dcarral/floto/history"
	"github.com/dcarral/floto/specs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func singleActivityGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New([]specs.TaskSpec{
		specs.NewActivityTask("activity1", "v1", specs.WithID("a_id")),
	})
	require.NoError(t, err)
	return g
}

func emptyTaskHistory() *history.Response {
	return &history.Response{Events: []history.Event{}}
}

// TestPoller_StartStop_NoLeaks drives a handful of polls through a
// real Poller against a mocked Client and verifies Stop() drains every
// worker goroutine, the property the teacher's worker shutdown tests
// protect with goleak.
func TestPoller_StartStop_NoLeaks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := NewMockClient(ctrl)

	var mu sync.Mutex
	polled := 0
	client.EXPECT().PollForDecisionTask(gomock.Any(), "tl").DoAndReturn(
		func(ctx context.Context, taskList string) (*DecisionTask, error) {
			mu.Lock()
			polled++
			n := polled
			mu.Unlock()
			if n > 3 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return &DecisionTask{
				TaskToken:  []byte("token"),
				WorkflowID: "wf",
				RunID:      "run",
				TaskList:   "tl",
				History:    emptyTaskHistory(),
			}, nil
		}).AnyTimes()

	client.EXPECT().RespondDecisionTaskCompleted(gomock.Any(), []byte("token"), gomock.Any()).
		Return(nil).AnyTimes()

	poller := NewPoller(client, singleActivityGraph(t), PollerOptions{
		TaskList:       "tl",
		Concurrency:    2,
		MaxPollsPerSec: 1000,
		PollTimeout:    50 * time.Millisecond,
	})

	poller.Start()
	time.Sleep(20 * time.Millisecond)
	poller.Stop()

	assert.True(t, polled > 0)
}

// TestPoller_RespondsFailedOnHistoryError exercises the decision-round
// failure path: a malformed history must produce a
// RespondDecisionTaskFailed call, not a panic or a silently dropped
// task.
func TestPoller_RespondsFailedOnHistoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := NewMockClient(ctrl)

	done := make(chan struct{})
	gomock.InOrder(
		client.EXPECT().PollForDecisionTask(gomock.Any(), "tl").Return(&DecisionTask{
			TaskToken:  []byte("token"),
			WorkflowID: "wf",
			RunID:      "run",
			TaskList:   "tl",
			History: &history.Response{Events: []history.Event{
				{EventID: 1, EventType: history.EventTypeDecisionTaskCompleted,
					DecisionTaskCompletedEventAttributes: &history.DecisionTaskCompletedEventAttributes{}},
				{EventID: 2, EventType: history.EventTypeActivityTaskFailed,
					ActivityTaskFailedEventAttributes: &history.ActivityTaskFailedEventAttributes{
						ScheduledEventID: 99,
						Details:          "boom",
					}},
				{EventID: 3, EventType: history.EventTypeDecisionTaskStarted,
					DecisionTaskStartedEventAttributes: &history.DecisionTaskStartedEventAttributes{}},
			}},
		}, nil),
		client.EXPECT().PollForDecisionTask(gomock.Any(), "tl").DoAndReturn(
			func(ctx context.Context, taskList string) (*DecisionTask, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}).AnyTimes(),
	)
	client.EXPECT().RespondDecisionTaskFailed(gomock.Any(), []byte("token"), gomock.Any()).
		DoAndReturn(func(ctx context.Context, taskToken []byte, cause string) error {
			close(done)
			return nil
		})

	poller := NewPoller(client, singleActivityGraph(t), PollerOptions{
		TaskList:       "tl",
		Concurrency:    1,
		MaxPollsPerSec: 1000,
		PollTimeout:    50 * time.Millisecond,
	})

	poller.Start()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for RespondDecisionTaskFailed")
	}
	poller.Stop()
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
