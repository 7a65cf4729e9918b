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

import (
	"sync"

	"github.com/oslab/schedcore/pkg/proc"
)

func init() {
	Register("rr", func() Policy { return &rrPolicy{} })
}

// rrPolicy is round-robin: a linear scan starting just past the last
// slot dispatched, so repeated Pick calls sweep every Runnable process
// in turn before the cursor wraps.
type rrPolicy struct {
	mu   sync.Mutex
	next int
}

func (r *rrPolicy) Name() string { return "rr" }

func (r *rrPolicy) Pick(t *proc.Table) *proc.Process {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots := t.Slots()
	n := len(slots)
	if n == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		idx := (r.next + i) % n
		if slots[idx].State() == proc.Runnable {
			r.next = idx + 1
			return slots[idx]
		}
	}
	return nil
}

func (r *rrPolicy) AfterDispatch(t *proc.Table, p *proc.Process) {}
