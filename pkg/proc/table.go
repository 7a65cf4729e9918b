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

package proc

import (
	"runtime"
	"sync"

	"github.com/oslab/schedcore/pkg/tick"
	"github.com/oslab/schedcore/pkg/utils/cpuset"
)

// tickChannel is the opaque token pause() sleeps on, standing in for
// xv6's "&ticks" address: any unique, comparable value works (spec §9).
var tickChannel Token = &struct{ name string }{"ticks"}

// Table is the fixed-size process table: one slot per table entry,
// allocated once at boot, shared by every CPU and every scheduling
// policy. wait_lock guards the parent/child relationship and must be
// acquired before any per-slot mutex when both are needed (the hard
// lock-ordering rule of spec §5).
type Table struct {
	waitLock sync.Mutex
	pidLock  sync.Mutex
	nextPid  int

	slots []*Process
	init  *Process
	clock *tick.Clock
	cpus  cpuset.CPUSet
}

// NewTable allocates a table of the given size, pre-filling every slot
// Unused, and reserves slot 0 as the synthetic init process that orphaned
// children are reparented to. init is never Runnable and never reaped.
func NewTable(size int, cpus cpuset.CPUSet, clock *tick.Clock) *Table {
	if size < 1 {
		size = 1
	}
	t := &Table{
		slots: make([]*Process, size),
		clock: clock,
		cpus:  cpus,
	}
	for i := range t.slots {
		t.slots[i] = &Process{
			slot:     i,
			resumeCh: make(chan struct{}),
			parkedCh: make(chan struct{}),
			table:    t,
		}
	}

	init := t.slots[0]
	init.mu.Lock()
	init.id = 1
	init.name = "init"
	init.state = Used
	init.mu.Unlock()
	t.init = init
	t.nextPid = 1

	return t
}

// CPUs returns the CPU set this table's scheduler loops dispatch from.
func (t *Table) CPUs() cpuset.CPUSet {
	return t.cpus
}

// Init returns the synthetic init process reserved in slot 0, the
// ancestor every Fork ultimately descends from and every orphan is
// reparented to.
func (t *Table) Init() *Process {
	return t.init
}

// Slots returns the live process slots. Callers must go through each
// Process's locked accessor methods; the slice itself never changes
// length or order after NewTable.
func (t *Table) Slots() []*Process {
	return t.slots
}

// Now returns the current tick.
func (t *Table) Now() uint64 {
	return t.clock.Now()
}

// Advance moves the clock forward by n ticks and wakes any process
// paused on the tick channel whose deadline may now have passed.
func (t *Table) Advance(n uint64) uint64 {
	now := t.clock.Advance(n)
	t.Wakeup(tickChannel)
	return now
}

func (t *Table) allocSlot() *Process {
	for _, q := range t.slots {
		q.mu.Lock()
		if q.state == Unused {
			q.state = Used
			q.mu.Unlock()
			return q
		}
		q.mu.Unlock()
	}
	return nil
}

func (t *Table) nextID() int {
	t.pidLock.Lock()
	defer t.pidLock.Unlock()
	t.nextPid++
	return t.nextPid
}

// Fork implements fork(): clones the caller into a new slot running
// workload. The child starts Runnable at level 0 with expectedRuntime
// seeded as given.
func (t *Table) Fork(parent *Process, name string, expectedRuntime uint64, workload Workload) (*Process, error) {
	slot := t.allocSlot()
	if slot == nil {
		return nil, ErrResourceExhausted
	}

	id := t.nextID()
	now := t.Now()

	slot.mu.Lock()
	slot.id = id
	slot.name = name
	slot.parent = parent
	slot.state = Runnable
	slot.killRequested = false
	slot.exitCode = 0
	slot.channel = nil
	slot.waitingFor = nil
	slot.ctime = now
	slot.stime = 0
	slot.ltime = now
	slot.etime = now
	slot.rtime = 0
	slot.expectedRuntime = expectedRuntime
	slot.timeLeft = expectedRuntime + 1
	slot.queueLevel = 0
	slot.priority = 0
	slot.timeSlice = Quantum(0)
	slot.demote = false
	slot.workload = workload
	slot.mu.Unlock()

	ctx := &Context{p: slot, t: t}
	go func() {
		<-slot.resumeCh
		workload(ctx)
		if slot.State() != Zombie {
			t.Exit(slot, 0)
		}
	}()

	log.Debug("fork: %s (id %d) from parent %d, expected=%d", name, id, parent.ID(), expectedRuntime)
	return slot, nil
}

// Exit implements exit(status): never returns. Bills elapsed time,
// reparents children to init, wakes the parent, and terminates the
// calling goroutine via a final, one-way park followed by runtime.Goexit.
func (t *Table) Exit(p *Process, status int) {
	now := t.Now()

	t.waitLock.Lock()
	for _, q := range t.slots {
		if q == nil || q == p {
			continue
		}
		q.mu.Lock()
		if q.parent == p {
			q.parent = t.init
		}
		q.mu.Unlock()
	}
	t.waitLock.Unlock()

	p.mu.Lock()
	if p.state == Zombie {
		p.mu.Unlock()
		invariant("exit: process %d (%s) re-exited a zombie", p.id, p.name)
	}
	p.billElapsed(now)
	p.etime = now
	p.exitCode = status
	p.state = Zombie
	parent := p.parent
	p.mu.Unlock()

	log.Debug("exit: %s (id %d) status=%d", p.Name(), p.ID(), status)

	if parent != nil {
		t.Wakeup(parent)
	}

	p.park(true)
	runtime.Goexit()
}

// Wait implements wait(addr): sleeps on the caller's own identity until a
// child becomes Zombie, then reaps it.
func (t *Table) Wait(p *Process) (int, int, error) {
	t.waitLock.Lock()
	for {
		haveChildren := false
		for _, q := range t.slots {
			if q == nil || q == p {
				continue
			}
			q.mu.Lock()
			if q.parent == p {
				haveChildren = true
				if q.state == Zombie {
					childID, code := q.id, q.exitCode
					q.mu.Unlock()
					t.freeSlot(q)
					t.waitLock.Unlock()
					return childID, code, nil
				}
			}
			q.mu.Unlock()
		}

		if !haveChildren {
			t.waitLock.Unlock()
			return -1, 0, ErrNoChildren
		}
		if p.KillRequested() {
			t.waitLock.Unlock()
			return -1, 0, ErrKilled
		}

		t.Sleep(p, p, &t.waitLock)
	}
}

// freeSlot returns a reaped slot to Unused so Fork can reuse it.
func (t *Table) freeSlot(q *Process) {
	q.mu.Lock()
	q.state = Unused
	q.name = ""
	q.parent = nil
	q.killRequested = false
	q.exitCode = 0
	q.channel = nil
	q.waitingFor = nil
	q.ctime, q.stime, q.ltime, q.etime, q.rtime = 0, 0, 0, 0, 0
	q.expectedRuntime, q.timeLeft = 0, 0
	q.queueLevel, q.priority = 0, 0
	q.timeSlice, q.demote = 0, false
	q.workload = nil
	q.mu.Unlock()
}

// Kill implements kill(id): sets kill_requested; forces Sleeping to
// Runnable so the target observes it promptly.
func (t *Table) Kill(id int) error {
	for _, q := range t.slots {
		q.mu.Lock()
		if q.state != Unused && q.id == id {
			q.killRequested = true
			if q.state == Sleeping {
				q.state = Runnable
			}
			q.mu.Unlock()
			return nil
		}
		q.mu.Unlock()
	}
	return ErrInvalidArgument
}

// Pause implements pause(n): blocks until n ticks have elapsed since now
// or the caller is killed.
func (t *Table) Pause(p *Process, n uint64) error {
	t.clock.Lock()
	deadline := t.clock.NowLocked() + n
	for t.clock.NowLocked() < deadline {
		if p.KillRequested() {
			t.clock.Unlock()
			return ErrKilled
		}
		t.Sleep(p, tickChannel, t.clock)
	}
	t.clock.Unlock()
	return nil
}

// Yield implements §4.6 yield(): bills elapsed time against time_slice,
// marks Runnable, decrements time_left if positive, then parks.
func (t *Table) Yield(p *Process) {
	now := t.Now()

	p.mu.Lock()
	p.etime = now
	p.billElapsed(now)
	p.state = Runnable
	if p.timeLeft > 0 {
		p.timeLeft--
	}
	p.mu.Unlock()

	p.park(false)
}

// Sleep implements sleep(channel, mutex): guard must already be held by
// the caller. Atomically (w.r.t. a concurrent Wakeup taking p's slot
// lock) transitions to Sleeping on channel, releasing guard first so a
// waker is never blocked behind this process's own park.
func (t *Table) Sleep(p *Process, channel Token, guard sync.Locker) {
	p.mu.Lock()
	guard.Unlock()
	p.channel = channel
	p.state = Sleeping
	p.mu.Unlock()

	p.park(false)

	p.mu.Lock()
	p.channel = nil
	p.mu.Unlock()
	guard.Lock()
}

// Wakeup implements wakeup(channel): every Sleeping slot waiting on
// channel is made Runnable. The caller must already hold the condition
// lock guarding channel's predicate.
func (t *Table) Wakeup(channel Token) {
	for _, q := range t.slots {
		q.mu.Lock()
		if q.state == Sleeping && q.channel == channel {
			q.state = Runnable
		}
		q.mu.Unlock()
	}
}

// GetProcInfo implements getprocinfo(id, out).
func (t *Table) GetProcInfo(id int) (Info, bool) {
	for _, q := range t.slots {
		if info := q.Info(); info.State != Unused && info.ID == id {
			return info, true
		}
	}
	return Info{}, false
}

// Reorient implements priority_reorient(target) per §4.3: re-establishes
// target.queue_level == min(target.priority, min over q of q.queue_level
// where q.waiting_for == target), then walks target.waiting_for. The walk
// is bounded by a seen-set rather than assumed acyclic, since a cycle in
// waiting_for indicates a bug the system tolerates rather than deadlocks
// on (§4.3's cycle-tolerance clause).
func (t *Table) Reorient(target *Process) {
	seen := make(map[*Process]bool, len(t.slots))
	for target != nil && !seen[target] {
		seen[target] = true

		target.mu.Lock()
		effective := target.priority
		for _, q := range t.slots {
			if q == target {
				continue
			}
			q.mu.Lock()
			if q.waitingFor == target && q.queueLevel < effective {
				effective = q.queueLevel
			}
			q.mu.Unlock()
		}
		if effective != target.queueLevel {
			target.queueLevel = effective
			target.timeSlice = Quantum(effective)
		}
		next := target.waitingFor
		target.mu.Unlock()

		target = next
	}
	if len(seen) > len(t.slots) {
		log.Warn("reorient: walk exceeded table size, aborted")
	}
}
