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

import "sync"

// Context is the handle a Workload runs against: the syscall surface of
// §6, bound to the process that is currently executing it and the table
// it lives in.
type Context struct {
	p *Process
	t *Table
}

// Process returns the process this context belongs to.
func (c *Context) Process() *Process { return c.p }

// Fork implements fork(): clones the caller into a new slot running
// childWorkload, starting Runnable at level 0 with the expectedRuntime
// given here; the caller's own expected runtime is not copied to the child.
func (c *Context) Fork(name string, expectedRuntime uint64, childWorkload Workload) (*Process, error) {
	return c.t.Fork(c.p, name, expectedRuntime, childWorkload)
}

// Wait implements wait(addr): sleeps until a child becomes Zombie, reaps it.
func (c *Context) Wait() (int, int, error) {
	return c.t.Wait(c.p)
}

// Yield implements §4.6 yield().
func (c *Context) Yield() {
	c.t.Yield(c.p)
}

// Sleep implements sleep(channel, mutex): guard must already be held by
// the caller and is released/re-acquired around the block, per §4.4.
func (c *Context) Sleep(channel Token, guard sync.Locker) {
	c.t.Sleep(c.p, channel, guard)
}

// Pause implements pause(n): blocks until n ticks have elapsed or the
// process is killed.
func (c *Context) Pause(n uint64) error {
	return c.t.Pause(c.p, n)
}

// SetExpectedRuntime implements setexpected(e).
func (c *Context) SetExpectedRuntime(e uint64) {
	c.p.SetExpectedRuntime(e)
}

// SetSTCFVals implements setstcfvals(e).
func (c *Context) SetSTCFVals(e uint64) {
	c.p.SetSTCFVals(e)
}

// Killed reports whether kill_requested is set, the checkpoint every
// blocking operation and this method itself are expected to observe.
func (c *Context) Killed() bool {
	return c.p.KillRequested()
}

// Exit implements exit(status): marks the process Zombie, wakes its
// parent, and parks it one final time. Exit does not return: the workload
// goroutine ends inside it, so Fork's implicit exit on a normal return
// never runs after an explicit one and status is never overwritten.
func (c *Context) Exit(status int) {
	c.t.Exit(c.p, status)
}

// Spin simulates a CPU-bound burst of n ticks. Since nothing in Go can
// forcibly preempt an arbitrary running goroutine at an arbitrary
// instruction the way a timer interrupt preempts kernel code, a spin is
// modeled as n single-tick Yields: each iteration advances the clock by
// one tick and yields, giving the scheduler a chance to bill, demote,
// age, and redispatch, until n ticks have been consumed or the process
// observes a kill request. A step can't be sized off time_slice
// directly: once a non-MLFQ policy lets time_slice hit zero and never
// replenishes it, a variable step would read that zero as "no limit"
// and blow through the rest of n in a single burst.
func (c *Context) Spin(n uint64) {
	for n > 0 {
		c.t.Advance(1)
		n--
		if c.Killed() {
			return
		}
		c.Yield()
	}
}
