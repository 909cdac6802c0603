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

import "os"

// Worker represents a running Poller that can be started and stopped,
// the same lifecycle contract the teacher's worker.Worker exposes for
// a Cadence client-side worker.
type Worker interface {
	// Start starts the worker in a non-blocking fashion.
	Start()
	// Run is a blocking start that returns when the process receives
	// an interrupt, cleaning up resources before returning.
	Run(signals <-chan os.Signal) error
	// Stop cleans up any resources opened by the worker.
	Stop()
}

type poolWorker struct {
	poller *Poller
}

// NewWorker wraps poller behind the Worker lifecycle interface.
func NewWorker(poller *Poller) Worker {
	return &poolWorker{poller: poller}
}

func (w *poolWorker) Start() {
	w.poller.Start()
}

func (w *poolWorker) Run(signals <-chan os.Signal) error {
	w.poller.Start()
	<-signals
	w.poller.Stop()
	return nil
}

func (w *poolWorker) Stop() {
	w.poller.Stop()
}
