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

package sched

import (
	"context"
	"sync"
	"time"

	"github.com/oslab/schedcore/pkg/proc"
	"github.com/oslab/schedcore/pkg/sched/policy"
)

// Manager starts and stops one CPU loop per CPU in a table's CPU set.
type Manager struct {
	table  *proc.Table
	cpus   []*CPU
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds a Manager with one CPU loop per id in table.CPUs(),
// all running the named policy. idle is forwarded to every CPU loop.
func NewManager(table *proc.Table, policyName string, idle time.Duration) (*Manager, error) {
	ids := table.CPUs().List()
	m := &Manager{table: table, cpus: make([]*CPU, 0, len(ids))}
	for _, id := range ids {
		p, err := policy.New(policyName)
		if err != nil {
			return nil, err
		}
		m.cpus = append(m.cpus, NewCPU(id, table, p, idle))
	}
	return m, nil
}

// Start launches every CPU loop on its own goroutine.
func (m *Manager) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	for _, c := range m.cpus {
		m.wg.Add(1)
		go func(c *CPU) {
			defer m.wg.Done()
			c.Run(ctx)
		}(c)
	}
}

// Stop cancels every CPU loop and waits for them to return.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
