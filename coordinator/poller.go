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
	"errors"
	"os"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/opentracing/opentracing-go"
	"github.com/pborman/uuid"
	"github.com/uber-go/tally"
	atomicpkg "go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dcarral/floto/decider"
	"github.com/dcarral/floto/decision"
	"github.com/dcarral/floto/graph"
	"github.com/dcarral/floto/history"
	"github.com/dcarral/floto/internal/common/backoff"
	"github.com/dcarral/floto/internal/common/metrics"
	"github.com/dcarral/floto/internal/version"
)

var errShutdown = errors.New("coordinator: poller is shutting down")

// PollerOptions configures a Poller. Unset fields fall back to
// Config's defaults via NewPoller.
type PollerOptions struct {
	TaskList         string
	ActivityTaskList string
	Identity         string
	PollTimeout      time.Duration
	MaxPollsPerSec   float64
	Concurrency      int

	Logger *zap.Logger
	Scope  tally.Scope
	Tracer opentracing.Tracer
	Clock  clock.Clock
}

// Poller is the long-poll loop: the adaptation of the teacher's
// basePoller/workflowTaskPoller pair to this design's decision core.
// Where the teacher polls a thrift/gRPC service and replays a
// workflow coroutine, Poller polls a coordinator.Client and drives a
// stateless decider.DecisionBuilder per task (§5: "caller aborts by
// discarding the builder instance").
type Poller struct {
	client           Client
	executionGraph   *graph.Graph
	taskList         string
	activityTaskList string
	identity         string
	pollTimeout      time.Duration

	limiter *rate.Limiter
	clock   clock.Clock

	logger *zap.Logger
	scope  tally.Scope
	tracer opentracing.Tracer

	concurrency int
	inFlight    *atomicpkg.Int64

	shutdownC chan struct{}
	wg        sync.WaitGroup
}

// NewPoller builds a Poller that schedules work against
// executionGraph, polling opts.TaskList through client.
func NewPoller(client Client, executionGraph *graph.Graph, opts PollerOptions) *Poller {
	if opts.PollTimeout == 0 {
		opts.PollTimeout = time.Minute
	}
	if opts.MaxPollsPerSec == 0 {
		opts.MaxPollsPerSec = 10
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Scope == nil {
		opts.Scope = tally.NoopScope
	}
	if opts.Tracer == nil {
		opts.Tracer = opentracing.NoopTracer{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.ActivityTaskList == "" {
		opts.ActivityTaskList = opts.TaskList
	}
	if opts.Identity == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		opts.Identity = version.DefaultIdentity(hostname, os.Getpid())
	}

	return &Poller{
		client:           client,
		executionGraph:   executionGraph,
		taskList:         opts.TaskList,
		activityTaskList: opts.ActivityTaskList,
		identity:         opts.Identity,
		pollTimeout:      opts.PollTimeout,
		limiter:          rate.NewLimiter(rate.Limit(opts.MaxPollsPerSec), 1),
		clock:            opts.Clock,
		logger:           opts.Logger,
		scope:            opts.Scope,
		tracer:           opts.Tracer,
		concurrency:      opts.Concurrency,
		inFlight:         atomicpkg.NewInt64(0),
		shutdownC:        make(chan struct{}),
	}
}

// Start launches the poll loop's worker goroutines and returns
// immediately.
func (p *Poller) Start() {
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

// Stop signals every worker goroutine to exit and blocks until they
// have drained in-flight polls.
func (p *Poller) Stop() {
	close(p.shutdownC)
	p.wg.Wait()
}

func (p *Poller) run() {
	defer p.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-p.shutdownC
		cancel()
	}()

	for {
		select {
		case <-p.shutdownC:
			return
		default:
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		p.pollAndProcessOnce()
	}
}

func (p *Poller) shuttingDown() bool {
	select {
	case <-p.shutdownC:
		return true
	default:
		return false
	}
}

// doPoll runs pollFunc in its own goroutine and returns as soon as
// either it completes or the poller is asked to shut down, the same
// race the teacher's basePoller.doPoll runs between a poll call and
// worker shutdown.
func (p *Poller) doPoll(pollFunc func(ctx context.Context) (*DecisionTask, error)) (*DecisionTask, error) {
	if p.shuttingDown() {
		return nil, errShutdown
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.pollTimeout)
	defer cancel()

	type result struct {
		task *DecisionTask
		err  error
	}
	doneC := make(chan result, 1)
	go func() {
		task, err := pollFunc(ctx)
		doneC <- result{task, err}
	}()

	select {
	case r := <-doneC:
		return r.task, r.err
	case <-p.shutdownC:
		cancel()
		return nil, errShutdown
	}
}

// pollAndProcessOnce implements one iteration of the loop: poll,
// build a history.View, drive a fresh decider.DecisionBuilder, and
// respond. Each iteration gets its own correlation id attached to
// logs and the trace span — never to decision content, which must
// stay deterministic (§8 property 1).
func (p *Poller) pollAndProcessOnce() {
	correlationID := uuid.New()
	span := p.tracer.StartSpan("poll_decision_task")
	span.SetTag("correlation_id", correlationID)
	defer span.Finish()

	logger := p.logger.With(zap.String("correlationId", correlationID), zap.String("taskList", p.taskList),
		zap.String("identity", p.identity))

	p.inFlight.Inc()
	defer p.inFlight.Dec()

	pollStart := p.clock.Now()
	task, err := p.doPoll(func(ctx context.Context) (*DecisionTask, error) {
		return p.client.PollForDecisionTask(ctx, p.taskList)
	})
	p.scope.Timer(metrics.PollLatency).Record(p.clock.Now().Sub(pollStart))
	if err == errShutdown {
		return
	}
	if err != nil {
		p.scope.Counter(metrics.PollFailedCounter).Inc(1)
		logger.Warn("poll for decision task failed", zap.Error(err))
		return
	}
	if task == nil {
		p.scope.Counter(metrics.PollEmptyCounter).Inc(1)
		return
	}
	p.scope.Counter(metrics.PollSucceededCounter).Inc(1)
	logger = logger.With(zap.String("workflowId", task.WorkflowID), zap.String("runId", task.RunID))

	builder := decider.New(p.executionGraph, firstNonEmpty(task.ActivityTaskList, p.activityTaskList),
		decider.WithLogger(logger), decider.WithScope(p.scope), decider.WithTracer(p.tracer))
	if task.Description != nil {
		builder.SetWorkflowExecutionDescription(task.Description)
	}

	view := history.New(task.TaskList, task.History)

	roundStart := p.clock.Now()
	decisions, err := builder.DecisionsFor(view)
	p.scope.Timer(metrics.DecisionRoundLatency).Record(p.clock.Now().Sub(roundStart))

	respondCtx, cancel := context.WithTimeout(context.Background(), p.pollTimeout)
	defer cancel()

	if err != nil {
		logger.Error("decision round failed, failing decision task", zap.Error(err))
		p.respondFailed(respondCtx, logger, task.TaskToken, err.Error())
		return
	}

	p.respondCompleted(respondCtx, logger, task.TaskToken, decisions)
}

// respondCompleted replies with the decision batch, retrying
// transient send failures with backoff the way the teacher's
// RespondTaskCompletedWithMetrics retries RespondDecisionTaskCompleted.
func (p *Poller) respondCompleted(ctx context.Context, logger *zap.Logger, taskToken []byte, decisions []decision.Decision) {
	policy := backoff.NewExponentialRetryPolicy(100 * time.Millisecond)
	err := backoff.Retry(ctx, func() error {
		return p.client.RespondDecisionTaskCompleted(ctx, taskToken, decisions)
	}, policy, nil)
	if err != nil {
		p.scope.Counter(metrics.RespondDecisionsFailed).Inc(1)
		logger.Error("responding with decisions failed", zap.Error(err), zap.Int("decisionCount", len(decisions)))
	}
}

// respondFailed reports a structural failure in the round itself
// (§7: "History inconsistency ... fatal to the round"), distinct from
// an in-band FailWorkflowExecution decision.
func (p *Poller) respondFailed(ctx context.Context, logger *zap.Logger, taskToken []byte, cause string) {
	if err := p.client.RespondDecisionTaskFailed(ctx, taskToken, cause); err != nil {
		p.scope.Counter(metrics.RespondDecisionsFailed).Inc(1)
		logger.Error("responding with decision task failure failed", zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
