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

// Package resource serializes access to named resources shared by tests that
// run concurrently.
//
// Every caller acquires names in lexicographic order, so two callers asking
// for overlapping sets can never wait on each other in a cycle.
package resource

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/crossplane-contrib/xconform/internal/logging"
	"github.com/google/uuid"
)

const subsystem = "resource"

// Owner identifies the party holding a resource. Each running test uses its
// own owner.
type Owner string

// NewOwner returns a unique owner.
func NewOwner() Owner {
	return Owner(uuid.NewString())
}

// Table maps resource names to their current owner. A name with no entry is
// free. The zero value is not usable; call NewTable.
type Table struct {
	mu      sync.Mutex
	holders map[string]Owner
	// released is closed and replaced whenever a name is released, waking
	// every waiter.
	released chan struct{}
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{holders: map[string]Owner{}, released: make(chan struct{})}
}

// Acquire takes every name for owner, waiting while another owner holds one.
// The timeout covers the whole call. A negative timeout waits until ctx is
// done; zero fails at once if a name is busy.
//
// It returns false with a nil error on timeout and false with ctx.Err() if
// ctx is done first. In both cases names taken by this call are released
// again. Names owner already holds are left as they are.
func (t *Table) Acquire(ctx context.Context, owner Owner, names []string, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ordered := canonical(names)

	var expired <-chan time.Time

	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		expired = timer.C
	}

	var acquired []string

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, name := range ordered {
		for {
			holder, held := t.holders[name]
			if !held {
				t.holders[name] = owner
				acquired = append(acquired, name)

				break
			}

			if holder == owner {
				break
			}

			wait := t.released
			t.mu.Unlock()

			select {
			case <-wait:
				t.mu.Lock()
				continue
			case <-expired:
				t.mu.Lock()
				t.releaseLocked(owner, acquired)
				logging.Debug(subsystem, "timed out after %s waiting for %q held by %s", timeout, name, holder)

				return false, nil
			case <-ctx.Done():
				t.mu.Lock()
				t.releaseLocked(owner, acquired)
				logging.Debug(subsystem, "interrupted waiting for %q held by %s", name, holder)

				return false, ctx.Err()
			}
		}
	}

	return true, nil
}

// Release frees the names owner holds. Names held by another owner, or by
// nobody, are ignored.
func (t *Table) Release(owner Owner, names []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.releaseLocked(owner, names)
}

// ReleaseAll frees every name owner holds and returns them sorted.
func (t *Table) ReleaseAll(owner Owner) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	held := t.heldLocked(owner)
	t.releaseLocked(owner, held)

	return held
}

// Holder returns the owner of name, if any.
func (t *Table) Holder(name string) (Owner, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	owner, ok := t.holders[name]

	return owner, ok
}

// Held returns the sorted names owner holds.
func (t *Table) Held(owner Owner) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.heldLocked(owner)
}

func (t *Table) heldLocked(owner Owner) []string {
	var held []string

	for name, holder := range t.holders {
		if holder == owner {
			held = append(held, name)
		}
	}

	slices.Sort(held)

	return held
}

func (t *Table) releaseLocked(owner Owner, names []string) {
	released := false

	for _, name := range names {
		if holder, ok := t.holders[name]; ok && holder == owner {
			delete(t.holders, name)

			released = true
		}
	}

	if released {
		close(t.released)
		t.released = make(chan struct{})
	}
}

// canonical returns the names sorted with duplicates removed.
func canonical(names []string) []string {
	ordered := slices.Clone(names)
	slices.Sort(ordered)

	return slices.Compact(ordered)
}
