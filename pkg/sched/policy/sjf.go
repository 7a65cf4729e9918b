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

package policy

import "github.com/oslab/schedcore/pkg/proc"

func init() {
	Register("sjf", func() Policy { return &sjfPolicy{} })
}

// sjfPolicy orders Runnable processes by ascending expected_runtime
// (0 treated as +∞). If every candidate carries the sentinel, there is
// no basis to discriminate, so the round falls through to round-robin.
type sjfPolicy struct {
	fallback rrPolicy
}

func (s *sjfPolicy) Name() string { return "sjf" }

func (s *sjfPolicy) Pick(t *proc.Table) *proc.Process {
	cands := runnableCandidates(t)
	if len(cands) == 0 {
		return nil
	}
	if allSentinel(cands, func(i proc.Info) uint64 { return i.ExpectedRuntime }) {
		return s.fallback.Pick(t)
	}
	return pickByKey(cands, func(i proc.Info) uint64 { return keyOrInfinity(i.ExpectedRuntime) })
}

func (s *sjfPolicy) AfterDispatch(t *proc.Table, p *proc.Process) {}

func allSentinel(cands []candidate, key func(proc.Info) uint64) bool {
	for _, c := range cands {
		if key(c.info) != 0 {
			return false
		}
	}
	return true
}
