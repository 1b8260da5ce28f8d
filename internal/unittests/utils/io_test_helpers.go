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
	"bytes"
	"io"
	"os"
)

// CaptureStderr captures output written to os.Stderr while f runs. os.Stderr
// is restored even if f panics.
// Example:
//
//	output := testutils.CaptureStderr(func() {
//	   utils.WarningPrintf("Skipping test %s\n", url)
//	})
//	assert.Contains(t, output, "Skipping test")
func CaptureStderr(f func()) string {
	return capture(&os.Stderr, f)
}

// CaptureStdout captures output written to os.Stdout while f runs. os.Stdout
// is restored even if f panics.
func CaptureStdout(f func()) string {
	return capture(&os.Stdout, f)
}

// capture swaps *target for a pipe while f runs. The pipe is drained
// concurrently so f cannot block on a full pipe buffer.
func capture(target **os.File, f func()) (output string) {
	old := *target
	r, w, _ := os.Pipe()
	*target = w

	var buf bytes.Buffer

	done := make(chan struct{})

	go func() {
		_, _ = io.Copy(&buf, r)

		close(done)
	}()

	defer func() {
		*target = old

		// Close the write end of the pipe to unblock the reader
		w.Close() //nolint:errcheck // cleanup function, error handling not practical
		<-done
		r.Close() //nolint:errcheck // cleanup function, error handling not practical

		output = buf.String()

		_ = recover()
	}()

	f()

	return output
}

// CapturedOutput represents the captured stdout and stderr output from a function.
type CapturedOutput struct {
	Stdout string
	Stderr string
}

// CaptureOutput captures stdout and stderr while f runs.
// Example:
//
//	output := testutils.CaptureOutput(func() {
//	   err = cmd.Run(ctx)
//	})
//	assert.Contains(t, output.Stdout, "Configuration check successful")
func CaptureOutput(f func()) CapturedOutput {
	var out CapturedOutput

	out.Stdout = CaptureStdout(func() {
		out.Stderr = CaptureStderr(f)
	})

	return out
}
