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
	Register("mlfq", func() Policy { return &mlfqPolicy{} })
}

// mlfqPolicy is the multi-level feedback queue of §4.2: an aging pass
// over every Runnable slot, then a level-ordered scan (0 highest)
// picking the least-recently-dispatched process at the first
// non-empty level.
type mlfqPolicy struct{}

func (m *mlfqPolicy) Name() string { return "mlfq" }

func (m *mlfqPolicy) Pick(t *proc.Table) *proc.Process {
	now := t.Now()
	for _, q := range t.Slots() {
		if promoted := q.TryAge(now); promoted {
			RecordPromotion()
			log.Debug("mlfq: aged %s (id %d) up to level %d", q.Name(), q.ID(), q.QueueLevel())
		}
	}

	for level := 0; level < proc.NumLevels; level++ {
		var best *proc.Process
		var bestLTime uint64
		for _, q := range t.Slots() {
			info := q.Info()
			if info.State != proc.Runnable || info.QueueLevel != level {
				continue
			}
			if best == nil || info.LTime < bestLTime {
				best, bestLTime = q, info.LTime
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// AfterDispatch implements §4.2's demotion step: a process whose
// quantum was just exhausted is pushed one level down (unless already
// at the floor) and has its effective level re-pinned by any waiters.
func (m *mlfqPolicy) AfterDispatch(t *proc.Table, p *proc.Process) {
	if p.ApplyDemotion() {
		RecordDemotion()
		log.Debug("mlfq: demoted %s (id %d) to level %d", p.Name(), p.ID(), p.QueueLevel())
		t.Reorient(p)
	}
}
