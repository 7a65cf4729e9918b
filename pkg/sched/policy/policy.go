// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package policy implements the pluggable scheduling policies of §4.1: one
// Pick implementation per named policy (rr, fifo, sjf, stcf, mlfq), behind
// a small registry so a build selects its policy at runtime (the REDESIGN
// FLAG in spec.md §9) instead of at compile time.
package policy

import (
	"fmt"
	"sort"
	"sync"

	logger "github.com/oslab/schedcore/pkg/log"
	"github.com/oslab/schedcore/pkg/proc"
)

var log = logger.Get("policy")

// Infinity is the sentinel SJF/STCF ordering key standing in for "no
// hint given" (expected_runtime or time_left == 0), per §4.1: it always
// sorts after every real key.
const Infinity = ^uint64(0)

// Policy is the scheduling policy interface exposed to the per-CPU loop:
// pick(policy, cpu) from §4.1.
type Policy interface {
	// Name is the policy's registered name.
	Name() string
	// Pick scans the table and returns the process to dispatch next, or
	// nil if nothing is Runnable. Must be invoked with interrupts
	// disabled on the calling CPU (the per-CPU loop guarantees this).
	Pick(t *proc.Table) *proc.Process
	// AfterDispatch runs once a dispatched process returns from sched(),
	// after time accounting has been billed. Non-MLFQ policies no-op;
	// MLFQ uses it to demote and re-run priority inheritance (§4.2).
	AfterDispatch(t *proc.Table, p *proc.Process)
}

// CreateFn constructs a new instance of a registered policy.
type CreateFn func() Policy

var (
	registryMu sync.Mutex
	registry   = map[string]CreateFn{}
)

// Register adds a policy constructor under name. Called from each
// policy's own file via init().
func Register(name string, fn CreateFn) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// New constructs the named policy, or an error if name is not registered.
func New(name string) (Policy, error) {
	registryMu.Lock()
	fn, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("policy: unknown policy %q (available: %v)", name, Names())
	}
	p := fn()
	log.Info("activating %q policy", p.Name())
	return p, nil
}

// Names returns the registered policy names, sorted.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// candidate pairs a process with a consistent snapshot of its scheduling
// fields, so a picker can compare and sort without re-taking locks.
type candidate struct {
	p    *proc.Process
	info proc.Info
}

// runnableCandidates returns a snapshot of every currently-Runnable slot.
func runnableCandidates(t *proc.Table) []candidate {
	slots := t.Slots()
	out := make([]candidate, 0, len(slots))
	for _, q := range slots {
		info := q.Info()
		if info.State == proc.Runnable {
			out = append(out, candidate{p: q, info: info})
		}
	}
	return out
}

// keyOrInfinity maps the SJF/STCF "no hint" sentinel (0) to Infinity.
func keyOrInfinity(v uint64) uint64 {
	if v == 0 {
		return Infinity
	}
	return v
}

// pickByKey applies the universal tie-break rule of §4.1: (key, ctime,
// id) ascending. Returns nil if cands is empty.
func pickByKey(cands []candidate, key func(proc.Info) uint64) *proc.Process {
	if len(cands) == 0 {
		return nil
	}
	best := cands[0]
	bestKey := key(best.info)
	for _, c := range cands[1:] {
		k := key(c.info)
		switch {
		case k < bestKey:
			best, bestKey = c, k
		case k == bestKey && c.info.CTime < best.info.CTime:
			best, bestKey = c, k
		case k == bestKey && c.info.CTime == best.info.CTime && c.info.ID < best.info.ID:
			best, bestKey = c, k
		}
	}
	return best.p
}
