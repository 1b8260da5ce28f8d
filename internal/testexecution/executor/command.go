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

// Package executor runs the command of a test through the shell.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/logging"
	"github.com/crossplane-contrib/xconform/internal/resource"
	testexecutionUtils "github.com/crossplane-contrib/xconform/internal/testexecution/utils"
	"github.com/crossplane-contrib/xconform/internal/utils"
)

const subsystem = "executor"

// StatusPrefix marks a stdout line that sets the test status explicitly, e.g.
// "STATUS:Failed. wrong checksum". The reason may use the escapes written by
// engine.EncodeReason. Only the last such line counts.
const StatusPrefix = "STATUS:"

// Command executes a test's run command with `<shell> -c`. Resources named
// by the test are held in a shared table while the command runs.
type Command struct {
	*testexecutionUtils.Options

	resources *resource.Table
	// Mockable function fields
	runCommand     func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, []byte, error)
	renderTemplate func(content string, templateContext *templateContext) (string, error)
}

// templateContext provides variables available in run templates.
type templateContext struct {
	Test *api.TestDescription
	Env  map[string]string
}

// NewCommand creates an executor. Tests that name resources acquire them
// from table.
func NewCommand(options *testexecutionUtils.Options, table *resource.Table) *Command {
	if options == nil {
		options = &testexecutionUtils.Options{}
	}

	if table == nil {
		table = resource.NewTable()
	}

	return &Command{
		Options:        options,
		resources:      table,
		renderTemplate: renderTemplate,
		runCommand: func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, []byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Dir = dir
			cmd.Env = env
			// Give the process a moment to exit after cancellation before
			// its pipes are closed.
			cmd.WaitDelay = time.Second

			var stdout, stderr bytes.Buffer

			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			err := cmd.Run()

			return stdout.Bytes(), stderr.Bytes(), err
		},
	}
}

// Execute implements runner.Executor.
func (c *Command) Execute(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
	result := engine.NewTestResult(td, c.Verbose)

	command := td.Run
	if testexecutionUtils.HasActions(command) {
		rendered, err := c.renderTemplate(testexecutionUtils.RestoreActions(command), &templateContext{Test: td, Env: c.Environment})
		if err != nil {
			return result.Error("failed to render run template", err), nil
		}

		command = rendered
	}

	if len(td.Resources) > 0 {
		owner := resource.NewOwner()
		timeout := c.resourceTimeout()

		if c.Debug {
			utils.DebugPrintf("Acquiring resources for %s: %s\n", td.URL, strings.Join(td.Resources, ", "))
		}

		ok, err := c.resources.Acquire(ctx, owner, td.Resources, timeout)
		if err != nil {
			return nil, fmt.Errorf("interrupted while acquiring resources: %w", err)
		}

		if !ok {
			return result.Error(fmt.Sprintf("could not acquire resources %s within %s", strings.Join(td.Resources, ", "), timeout), nil), nil
		}

		defer func() {
			released := c.resources.ReleaseAll(owner)
			if c.Debug {
				utils.DebugPrintf("Released resources for %s: %s\n", td.URL, strings.Join(released, ", "))
			}
		}()
	}

	runCtx := ctx
	timeout := c.testTimeout(td)

	if timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if c.Debug {
		utils.DebugPrintf("Executing %s: %s\n", td.URL, command)
	}

	stdout, stderr, err := c.runCommand(runCtx, td.Dir, c.environ(td), c.Shell(), "-c", command)
	result.Output = append(slices.Clone(stdout), stderr...)

	switch {
	case ctx.Err() != nil:
		return nil, fmt.Errorf("test command interrupted: %w", context.Cause(ctx))
	case runCtx.Err() != nil:
		return result.Error(fmt.Sprintf("timed out after %s", timeout), err), nil
	}

	if status, ok := statusFromOutput(stdout); ok {
		return result.Complete(status), nil
	}

	if err == nil {
		return result.Pass(""), nil
	}

	var exitError *exec.ExitError
	if !errors.As(err, &exitError) {
		return nil, fmt.Errorf("failed to run test command: %w", err)
	}

	reason := fmt.Sprintf("exit code %d", exitError.ExitCode())
	if line := lastLine(stderr); line != "" {
		reason = fmt.Sprintf("%s: %s", reason, line)
	}

	logging.Debug(subsystem, "%s failed: %s", td.URL, reason)

	return result.Fail(reason), nil
}

func (c *Command) resourceTimeout() time.Duration {
	if c.ResourceTimeout == 0 {
		return testexecutionUtils.DefaultResourceTimeout
	}

	return c.ResourceTimeout
}

func (c *Command) testTimeout(td *api.TestDescription) time.Duration {
	if td.Timeout.Duration <= 0 {
		return 0
	}

	return time.Duration(float64(td.Timeout.Duration) * c.EffectiveTimeoutFactor())
}

// environ returns the process environment plus the configured variables and
// the test's URL.
func (c *Command) environ(td *api.TestDescription) []string {
	env := os.Environ()

	for _, key := range slices.Sorted(maps.Keys(c.Environment)) {
		env = append(env, key+"="+c.Environment[key])
	}

	return append(env, "XCONFORM_TEST_URL="+td.URL)
}

func renderTemplate(content string, templateContext *templateContext) (string, error) {
	tmpl, err := template.New("run").Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, templateContext); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// statusFromOutput returns the status set by the last StatusPrefix line.
// Lines of any length are considered.
func statusFromOutput(stdout []byte) (engine.Status, bool) {
	var (
		status engine.Status
		found  bool
	)

	for raw := range bytes.Lines(stdout) {
		line := strings.TrimSpace(string(raw))
		if !strings.HasPrefix(line, StatusPrefix) {
			continue
		}

		s, err := engine.ParseStatus(strings.TrimPrefix(line, StatusPrefix))
		if err != nil {
			logging.Warn(subsystem, "ignoring malformed status line %q", line)
			continue
		}

		status = engine.NewStatus(s.Type, engine.DecodeReason(s.Reason))
		found = true
	}

	return status, found
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")

	return strings.TrimSpace(lines[len(lines)-1])
}
