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

// Package sched drives the per-CPU scheduler loop of §4.6: pick a
// process with the active policy, dispatch it, let it run until it
// yields, blocks, or exits, bill time, and (for MLFQ) demote and
// reorient. One CPU struct runs on its own goroutine per member of the
// table's CPU set, so N configured CPUs give N concurrently dispatching
// loops sharing the same table, mirroring the teacher's one-event-loop-
// per-worker shape (see pkg/resmgr's agent/event loop).
package sched

import (
	"context"
	"time"

	logger "github.com/oslab/schedcore/pkg/log"
	"github.com/oslab/schedcore/pkg/proc"
	"github.com/oslab/schedcore/pkg/sched/policy"
)

var log = logger.Get("sched")

// CPU is one scheduler loop bound to a table and a policy.
type CPU struct {
	id     int
	table  *proc.Table
	policy policy.Policy
	idle   time.Duration
}

// NewCPU constructs a scheduler loop for the given CPU id. idle is how
// long Run sleeps between Pick attempts when nothing is Runnable,
// standing in for the hardware idle/halt instruction.
func NewCPU(id int, table *proc.Table, p policy.Policy, idle time.Duration) *CPU {
	if idle <= 0 {
		idle = time.Millisecond
	}
	return &CPU{id: id, table: table, policy: p, idle: idle}
}

// Run is the scheduler loop body: invoked once per CPU, it never
// returns except when ctx is cancelled, exactly as xv6's scheduler()
// never returns except at shutdown.
func (c *CPU) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("cpu %d: kernel invariant violation, halting: %v", c.id, r)
			panic(r)
		}
	}()

	log.Info("cpu %d: starting %s scheduler loop", c.id, c.policy.Name())
	for {
		select {
		case <-ctx.Done():
			log.Info("cpu %d: scheduler loop stopped", c.id)
			return
		default:
		}

		p := c.policy.Pick(c.table)
		if p == nil {
			time.Sleep(c.idle)
			continue
		}

		now := c.table.Now()
		if !p.Dispatch(now) {
			// Lost the race to claim p (another CPU got there first, or it
			// was woken/killed between Pick's snapshot and now). Rescan.
			continue
		}
		policy.RecordDispatch(c.policy.Name())

		p.Sched()

		c.policy.AfterDispatch(c.table, p)
	}
}
