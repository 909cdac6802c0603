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

// Package graph implements the DAG of specs.TaskSpec a workflow
// definition compiles to, with the topological queries the decider
// needs (§4.2 of the design).
package graph

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/dcarral/floto/specs"
)

// ValidationError reports a structural problem detected at graph
// construction: a duplicate id, a dangling "requires" reference, or a
// cycle. It is never recoverable — the caller built an invalid graph.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Graph is an immutable DAG over specs.TaskSpec. Build once with New;
// every query afterwards is a pure, side-effect-free lookup.
type Graph struct {
	tasksByID  map[string]specs.TaskSpec
	order      []specs.TaskSpec
	successors map[string][]specs.TaskSpec
}

// New validates tasks and builds the graph. It returns a
// *ValidationError if any id is duplicated, any "requires" points at
// a task not present in tasks, or the dependency relation contains a
// cycle.
func New(tasks []specs.TaskSpec) (*Graph, error) {
	g := &Graph{
		tasksByID:  make(map[string]specs.TaskSpec, len(tasks)),
		order:      append([]specs.TaskSpec(nil), tasks...),
		successors: make(map[string][]specs.TaskSpec),
	}

	for _, t := range tasks {
		if _, exists := g.tasksByID[t.ID()]; exists {
			return nil, &ValidationError{Message: fmt.Sprintf("duplicate task id %q", t.ID())}
		}
		g.tasksByID[t.ID()] = t
	}

	for _, t := range tasks {
		for _, req := range t.Requires() {
			if _, ok := g.tasksByID[req.ID()]; !ok {
				return nil, &ValidationError{Message: fmt.Sprintf(
					"task %q requires unknown task %q", t.ID(), req.ID())}
			}
			g.successors[req.ID()] = append(g.successors[req.ID()], t)
		}
	}

	if cycle := g.findCycle(); cycle != "" {
		return nil, &ValidationError{Message: fmt.Sprintf("cycle detected involving task %q", cycle)}
	}

	return g, nil
}

// findCycle runs a 3-color DFS and returns the id where a cycle was
// detected, or "" if the graph is acyclic.
func (g *Graph) findCycle() string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.tasksByID))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, succ := range g.successors[id] {
			switch color[succ.ID()] {
			case gray:
				return succ.ID()
			case white:
				if found := visit(succ.ID()); found != "" {
					return found
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, t := range g.order {
		if color[t.ID()] == white {
			if found := visit(t.ID()); found != "" {
				return found
			}
		}
	}
	return ""
}

// FirstTasks returns the sources of the graph (tasks with no
// predecessors), in declaration order.
func (g *Graph) FirstTasks() []specs.TaskSpec {
	var first []specs.TaskSpec
	for _, t := range g.order {
		if len(t.Requires()) == 0 {
			first = append(first, t)
		}
	}
	return first
}

// OutgoingVertices returns the sinks of the graph (tasks with no
// successors), in declaration order.
func (g *Graph) OutgoingVertices() []specs.TaskSpec {
	var sinks []specs.TaskSpec
	for _, t := range g.order {
		if len(g.successors[t.ID()]) == 0 {
			sinks = append(sinks, t)
		}
	}
	return sinks
}

// Successors returns the direct dependents of id, in declaration
// order of the dependents.
func (g *Graph) Successors(id string) []specs.TaskSpec {
	return g.successors[id]
}

// TaskByID looks up a task by id. The second return value is false
// if no such task exists in the graph.
func (g *Graph) TaskByID(id string) (specs.TaskSpec, bool) {
	t, ok := g.tasksByID[id]
	return t, ok
}

// MustTaskByID looks up a task by id, wrapping the "unknown id" case
// in an error suitable for propagation as a history-inconsistency
// fault (§4.4: "Missing tasksByID entry ... is fatal").
func (g *Graph) MustTaskByID(id string) (specs.TaskSpec, error) {
	t, ok := g.tasksByID[id]
	if !ok {
		return nil, errors.Errorf("execution graph: unknown task id %q referenced by history", id)
	}
	return t, nil
}
