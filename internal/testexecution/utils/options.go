/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"time"

	"github.com/crossplane-contrib/xconform/internal/filter"
)

// Default execution settings.
const (
	DefaultConcurrency     = 1
	DefaultGracePeriod     = 5 * time.Second
	DefaultResourceTimeout = time.Minute
	DefaultTimeoutFactor   = 1.0
	DefaultShell           = "sh"
)

// Options holds the settings shared by test discovery, selection and
// execution.
type Options struct {
	// Dependencies maps tool names to commands, e.g. "shell" to "bash".
	Dependencies map[string]string
	// Environment is added to the environment of every test command.
	Environment map[string]string
	// WorkDir holds the result store. Empty disables it.
	WorkDir string
	// ClearResults empties the result store before the run begins.
	ClearResults bool

	Concurrency     int
	GracePeriod     time.Duration
	ResourceTimeout time.Duration
	TimeoutFactor   float64

	// Selection is applied to every discovered test.
	Selection filter.Parameters

	// PoolRunner selects the errgroup based runner, which neither waits a
	// grace period on interruption nor replaces dead workers.
	PoolRunner bool

	Verbose bool
	Debug   bool
}

// EffectiveConcurrency returns Concurrency, or DefaultConcurrency if unset.
func (o *Options) EffectiveConcurrency() int {
	if o.Concurrency < 1 {
		return DefaultConcurrency
	}

	return o.Concurrency
}

// EffectiveTimeoutFactor returns TimeoutFactor, or DefaultTimeoutFactor if
// unset.
func (o *Options) EffectiveTimeoutFactor() float64 {
	if o.TimeoutFactor <= 0 {
		return DefaultTimeoutFactor
	}

	return o.TimeoutFactor
}

// Shell returns the shell used to run test commands.
func (o *Options) Shell() string {
	if shell := o.Dependencies["shell"]; shell != "" {
		return shell
	}

	return DefaultShell
}
