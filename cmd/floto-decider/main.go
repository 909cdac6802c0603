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

// Command floto-decider runs a long-poll decision worker: it loads a
// task graph and a Poller config from disk, connects to a
// coordinator.Client, and drives decider.DecisionBuilder rounds until
// asked to stop.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dcarral/floto/coordinator"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the poller YAML config")
		graphPath  = flag.String("graph", "graph.json", "path to the JSON task graph definition")
	)
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := coordinator.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	executionGraph, err := LoadGraph(*graphPath)
	if err != nil {
		logger.Fatal("failed to load task graph", zap.Error(err))
	}

	tracer, closer, err := newTracer(cfg.Identity)
	if err != nil {
		logger.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer closer.Close()

	scope := tally.NoopScope

	client := coordinator.NewHTTPClient(cfg.CoordinatorURL, nil)

	poller := coordinator.NewPoller(client, executionGraph, coordinator.PollerOptions{
		TaskList:         cfg.TaskList,
		ActivityTaskList: cfg.ActivityTaskList,
		Identity:         cfg.Identity,
		PollTimeout:      cfg.PollTimeout,
		MaxPollsPerSec:   cfg.MaxPollsPerSec,
		Concurrency:      cfg.Concurrency,
		Logger:           logger,
		Scope:            scope,
		Tracer:           tracer,
	})

	worker := coordinator.NewWorker(poller)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	logger.Info("starting decision worker",
		zap.String("taskList", cfg.TaskList),
		zap.String("identity", cfg.Identity),
		zap.Int("concurrency", cfg.Concurrency))

	if err := worker.Run(signals); err != nil {
		logger.Fatal("decision worker exited with error", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func newTracer(serviceName string) (opentracing.Tracer, tracerCloser, error) {
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:            false,
			BufferFlushInterval: time.Second,
		},
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, err
	}
	return tracer, closer, nil
}

type tracerCloser interface {
	Close() error
}
