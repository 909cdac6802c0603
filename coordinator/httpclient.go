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
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/dcarral/floto/decider"
	"github.com/dcarral/floto/decision"
	"github.com/dcarral/floto/history"
)

// HTTPClient is the JSON-over-HTTP implementation of Client, the
// reference wire encoding §6 documents (events and decisions travel
// as JSON objects). It is one possible coordinator binding; a gRPC or
// thrift binding would implement the same Client interface.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPClient builds an HTTPClient pointed at baseURL, using
// http.DefaultClient if httpClient is nil.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{BaseURL: baseURL, HTTPClient: httpClient}
}

type pollRequest struct {
	TaskList string `json:"taskList"`
}

type pollResponse struct {
	TaskToken        []byte             `json:"taskToken"`
	WorkflowID       string             `json:"workflowId"`
	RunID            string             `json:"runId"`
	TaskList         string             `json:"taskList"`
	ActivityTaskList string             `json:"activityTaskList"`
	History          *history.Response `json:"history"`
	OpenCounts       *openCountsWire    `json:"openCounts,omitempty"`
}

type openCountsWire struct {
	OpenActivityTasks int `json:"openActivityTasks"`
	OpenTimers        int `json:"openTimers"`
}

// PollForDecisionTask long-polls the coordinator for one task on
// taskList. A 204 No Content response means no task was available
// within the poll window, which is not an error (§6).
func (c *HTTPClient) PollForDecisionTask(ctx context.Context, taskList string) (*DecisionTask, error) {
	body, err := json.Marshal(pollRequest{TaskList: taskList})
	if err != nil {
		return nil, errors.Wrap(err, "coordinator: encoding poll request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/poll", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "coordinator: building poll request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "coordinator: poll request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("coordinator: poll request returned status %d", resp.StatusCode)
	}

	var decoded pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "coordinator: decoding poll response")
	}

	task := &DecisionTask{
		TaskToken:        decoded.TaskToken,
		WorkflowID:       decoded.WorkflowID,
		RunID:            decoded.RunID,
		TaskList:         decoded.TaskList,
		ActivityTaskList: decoded.ActivityTaskList,
		History:          decoded.History,
	}
	if decoded.OpenCounts != nil {
		task.Description = &decider.WorkflowExecutionDescription{
			OpenCounts: decider.OpenCounts{
				OpenActivityTasks: decoded.OpenCounts.OpenActivityTasks,
				OpenTimers:        decoded.OpenCounts.OpenTimers,
			},
		}
	}
	return task, nil
}

type respondCompletedRequest struct {
	TaskToken []byte        `json:"taskToken"`
	Decisions []wireDecision `json:"decisions"`
}

// wireDecision wraps a decision.Decision with the "type" discriminator
// field the coordinator's JSON decision vocabulary expects (§6), since
// the Decision interface itself carries no wire encoding.
type wireDecision struct {
	decision.Decision
}

func (w wireDecision) MarshalJSON() ([]byte, error) {
	envelope := struct {
		Type string          `json:"type"`
		Data decision.Decision `json:"data"`
	}{Type: w.Decision.Type(), Data: w.Decision}
	return json.Marshal(envelope)
}

// RespondDecisionTaskCompleted posts the decision batch for taskToken.
func (c *HTTPClient) RespondDecisionTaskCompleted(ctx context.Context, taskToken []byte, decisions []decision.Decision) error {
	wrapped := make([]wireDecision, len(decisions))
	for i, d := range decisions {
		wrapped[i] = wireDecision{d}
	}
	return c.post(ctx, "/respond-completed", respondCompletedRequest{TaskToken: taskToken, Decisions: wrapped})
}

type respondFailedRequest struct {
	TaskToken []byte `json:"taskToken"`
	Cause     string `json:"cause"`
}

// RespondDecisionTaskFailed reports a structural round failure for
// taskToken (§7: "History inconsistency ... fatal to the round").
func (c *HTTPClient) RespondDecisionTaskFailed(ctx context.Context, taskToken []byte, cause string) error {
	return c.post(ctx, "/respond-failed", respondFailedRequest{TaskToken: taskToken, Cause: cause})
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "coordinator: encoding request for %s", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "coordinator: building request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "coordinator: request to %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errors.Errorf("coordinator: %s returned status %d", path, resp.StatusCode)
	}
	return nil
}
