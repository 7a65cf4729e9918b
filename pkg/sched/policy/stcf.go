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
	Register("stcf", func() Policy { return &stcfPolicy{} })
}

// stcfPolicy orders Runnable processes by ascending time_left (0 treated
// as +∞), the same sentinel/fallback rule as SJF. time_left is
// decremented only on voluntary yield (§9), so STCF diverges from SJF
// exactly when a long job has already burned part of its estimate.
type stcfPolicy struct {
	fallback rrPolicy
}

func (s *stcfPolicy) Name() string { return "stcf" }

func (s *stcfPolicy) Pick(t *proc.Table) *proc.Process {
	cands := runnableCandidates(t)
	if len(cands) == 0 {
		return nil
	}
	if allSentinel(cands, func(i proc.Info) uint64 { return i.TimeLeft }) {
		return s.fallback.Pick(t)
	}
	return pickByKey(cands, func(i proc.Info) uint64 { return keyOrInfinity(i.TimeLeft) })
}

func (s *stcfPolicy) AfterDispatch(t *proc.Table, p *proc.Process) {}
