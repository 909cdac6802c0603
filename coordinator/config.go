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
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dcarral/floto/internal/version"
)

// Config is the YAML-loadable shape of a Poller's options, the
// promoted form of the teacher's worker.Options for a daemon that has
// no other way to receive configuration than a file on disk.
type Config struct {
	CoordinatorURL   string        `yaml:"coordinatorUrl"`
	TaskList         string        `yaml:"taskList"`
	ActivityTaskList string        `yaml:"activityTaskList"`
	Identity         string        `yaml:"identity"`
	PollTimeout      time.Duration `yaml:"pollTimeout"`
	MaxPollsPerSec   float64       `yaml:"maxPollsPerSecond"`
	Concurrency      int           `yaml:"concurrency"`
	LogLevel         string        `yaml:"logLevel"`
}

// DefaultConfig returns the Poller defaults used when a field is left
// unset in the YAML file.
func DefaultConfig() Config {
	return Config{
		PollTimeout:    time.Minute,
		MaxPollsPerSec: 10,
		Concurrency:    4,
		LogLevel:       "info",
	}
}

// LoadConfig reads and parses a Config from path, filling any unset
// field from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "coordinator: reading config %q", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "coordinator: parsing config %q", path)
	}
	if cfg.TaskList == "" {
		return Config{}, errors.New("coordinator: config missing required field taskList")
	}
	if cfg.CoordinatorURL == "" {
		return Config{}, errors.New("coordinator: config missing required field coordinatorUrl")
	}
	if cfg.ActivityTaskList == "" {
		cfg.ActivityTaskList = cfg.TaskList
	}
	if cfg.Identity == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		cfg.Identity = version.DefaultIdentity(hostname, os.Getpid())
	}
	return cfg, nil
}
