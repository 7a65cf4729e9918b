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

// Package tick provides the kernel's single time source: a monotonic tick
// counter guarded by one lock, standing in for xv6's tickslock/ticks pair.
// All timestamps recorded on process slots (ctime, stime, ltime, etime) and
// all quanta are expressed in these ticks, not wall-clock time, so that
// scheduling scenarios are reproducible in tests.
package tick

import "sync"

// Clock is the kernel-global tick source. The zero value starts at tick 0.
type Clock struct {
	mu  sync.Mutex
	now uint64
}

// Now returns the current tick.
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Tick advances the clock by one tick and returns the new value, standing
// in for the timer interrupt handler incrementing xv6's global ticks.
func (c *Clock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now++
	return c.now
}

// Advance moves the clock forward by n ticks and returns the new value.
// Used by workloads that simulate a burst of CPU-bound work in one step
// and by tests driving scenarios deterministically without wall-clock time.
func (c *Clock) Advance(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += n
	return c.now
}

// Lock and Unlock expose the clock's own mutex as a sync.Locker, so it can
// double as the condition-guard lock for pause()'s "ticks >= deadline"
// predicate — exactly as tickslock guards both ticks itself and that
// predicate in the original kernel. Callers that hold Lock must use
// NowLocked, not Now, to avoid self-deadlock.
func (c *Clock) Lock() {
	c.mu.Lock()
}

// Unlock releases the lock taken by Lock.
func (c *Clock) Unlock() {
	c.mu.Unlock()
}

// NowLocked returns the current tick without taking the lock; the caller
// must already hold it via Lock.
func (c *Clock) NowLocked() uint64 {
	return c.now
}
