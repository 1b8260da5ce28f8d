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

package test

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/crossplane-contrib/xconform/internal/logging"
)

// errSignal is the cancellation cause of a run aborted by a signal.
var errSignal = errors.New("received signal")

// watchSignals turns the first os.Interrupt into a stop request, closing the
// returned channel. A second interrupt, or any other signal, cancels the
// returned context. The watcher ends when cancel is called.
func watchSignals(ctx context.Context, signals <-chan os.Signal) (context.Context, <-chan struct{}, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})

	go func() {
		stopping := false

		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-signals:
				if sig == os.Interrupt && !stopping {
					stopping = true

					logging.Info(subsystem, "received %s, stopping after running tests finish", sig)
					close(stop)

					continue
				}

				logging.Info(subsystem, "received %s, aborting run", sig)
				cancel(fmt.Errorf("%w %s", errSignal, sig))

				return
			}
		}
	}()

	return ctx, stop, cancel
}
