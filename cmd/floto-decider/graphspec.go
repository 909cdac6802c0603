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

package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/dcarral/floto/graph"
	"github.com/dcarral/floto/specs"
)

// taskSpecJSON is the on-disk shape of one task: a DAG node and its
// retry policy, loaded to build the graph.Graph a Poller schedules
// against. Only the instant-retry strategy is representable here; a
// richer deployment would wire additional RetryStrategy constructors
// by name.
type taskSpecJSON struct {
	Kind           string          `json:"kind"` // "activity" or "timer"
	ID             string          `json:"id"`
	Requires       []string        `json:"requires,omitempty"`
	Name           string          `json:"name,omitempty"`
	Version        string          `json:"version,omitempty"`
	Input          json.RawMessage `json:"input,omitempty"`
	DelaySeconds   int             `json:"delaySeconds,omitempty"`
	RetryLimit     *int            `json:"retryLimit,omitempty"`
	ScheduleToStart int            `json:"scheduleToStartTimeout,omitempty"`
	StartToClose    int            `json:"startToCloseTimeout,omitempty"`
}

// LoadGraph reads a JSON array of taskSpecJSON from path and builds
// the corresponding graph.Graph.
func LoadGraph(path string) (*graph.Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cmd/floto-decider: reading graph file %q", path)
	}

	var defs []taskSpecJSON
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, errors.Wrapf(err, "cmd/floto-decider: parsing graph file %q", path)
	}

	byID := make(map[string]specs.TaskSpec, len(defs))
	tasks := make([]specs.TaskSpec, 0, len(defs))
	for _, d := range defs {
		requires := make([]specs.TaskSpec, 0, len(d.Requires))
		for _, reqID := range d.Requires {
			r, ok := byID[reqID]
			if !ok {
				return nil, errors.Errorf("cmd/floto-decider: task %q requires %q, which must be declared earlier in the file", d.ID, reqID)
			}
			requires = append(requires, r)
		}

		var task specs.TaskSpec
		switch d.Kind {
		case "timer":
			task = specs.NewTimer(d.ID, d.DelaySeconds, requires...)
		case "activity":
			opts := []specs.ActivityTaskOption{
				specs.WithID(d.ID),
				specs.WithRequires(requires...),
			}
			if len(d.Input) > 0 {
				var input interface{}
				if err := json.Unmarshal(d.Input, &input); err != nil {
					return nil, errors.Wrapf(err, "cmd/floto-decider: parsing input for task %q", d.ID)
				}
				opts = append(opts, specs.WithInput(input))
			}
			if d.RetryLimit != nil {
				opts = append(opts, specs.WithRetryStrategy(specs.InstantRetry{Retries: *d.RetryLimit}))
			}
			if d.ScheduleToStart != 0 || d.StartToClose != 0 {
				opts = append(opts, specs.WithTimeouts(specs.ActivityTimeouts{
					ScheduleToStartSeconds: int32(d.ScheduleToStart),
					StartToCloseSeconds:    int32(d.StartToClose),
				}))
			}
			task = specs.NewActivityTask(d.Name, d.Version, opts...)
		default:
			return nil, errors.Errorf("cmd/floto-decider: unknown task kind %q for id %q", d.Kind, d.ID)
		}

		byID[d.ID] = task
		tasks = append(tasks, task)
	}

	return graph.New(tasks)
}
