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

// Package proc implements the process table: the fixed-size set of
// process slots, their lifecycle syscalls, and the per-slot locking
// invariants that every scheduling policy and primitive builds on.
package proc

import (
	"sync"

	logpkg "github.com/oslab/schedcore/pkg/log"
)

var log = logpkg.Get("proc")

// State is the runtime state of a process slot.
type State int32

const (
	// Unused marks a slot with no live process.
	Unused State = iota
	// Used marks a slot that has been allocated but not yet made Runnable.
	Used
	// Sleeping marks a process blocked on a channel.
	Sleeping
	// Runnable marks a process ready to be dispatched.
	Runnable
	// Running marks the process currently dispatched on a CPU.
	Running
	// Zombie marks a process that has exited but not yet been reaped.
	Zombie
)

func (s State) String() string {
	switch s {
	case Unused:
		return "unused"
	case Used:
		return "used"
	case Sleeping:
		return "sleeping"
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Zombie:
		return "zombie"
	}
	return "invalid"
}

// Workload is the body of a simulated process: the code it runs between
// fork and exit, expressed against the Context handed to it at dispatch.
type Workload func(ctx *Context)

// Token is an opaque condition identifier a process can sleep on. Any
// comparable value uniquely identifying the condition is acceptable; it
// need not be a real memory address, per spec §9.
type Token interface{}

// Process is one process-table slot. All of its scheduling-relevant fields
// (state, channel, waitingFor, and the MLFQ bookkeeping) are mutated only
// while mu is held, per the hard invariant in spec §3. Field access from
// outside the package goes exclusively through the methods below, each of
// which takes and releases mu for just the duration of the field touch —
// this is our Go-native stand-in for the original kernel's convention of
// carrying p->lock held across a raw register-context swtch(), which has
// no clean equivalent once "the process" is a goroutine rather than a
// saved set of registers (see DESIGN.md).
type Process struct {
	mu sync.Mutex

	id     int
	name   string
	state  State
	slot   int
	parent *Process

	killRequested bool
	exitCode      int
	channel       Token
	waitingFor    *Process

	ctime, stime, ltime, etime, rtime uint64
	expectedRuntime, timeLeft         uint64
	queueLevel                        int
	priority                          int
	timeSlice                         uint64
	demote                            bool

	table *Table

	resumeCh chan struct{}
	parkedCh chan struct{}
	workload Workload
}

// Info is the point-in-time snapshot returned by GetProcInfo.
type Info struct {
	ID              int
	State           State
	Name            string
	CTime           uint64
	LTime           uint64
	ETime           uint64
	RTime           uint64
	ExpectedRuntime uint64
	TimeLeft        uint64
	Priority        int
	QueueLevel      int
	TimeSlice       uint64
}

// ID returns the process's unique id.
func (p *Process) ID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Name returns the process's display name.
func (p *Process) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// State returns the process's current state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Slot returns the process's index in the table.
func (p *Process) Slot() int {
	return p.slot
}

// Parent returns the process's parent, or nil if it has none (init).
func (p *Process) Parent() *Process {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parent
}

// KillRequested reports whether a kill has been requested for this process.
func (p *Process) KillRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killRequested
}

// CTime returns the process's creation tick.
func (p *Process) CTime() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctime
}

// QueueLevel returns the process's current effective MLFQ level.
func (p *Process) QueueLevel() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queueLevel
}

// Priority returns the process's natural/base priority baseline.
func (p *Process) Priority() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.priority
}

// ExpectedRuntime returns the user-declared SJF/STCF hint.
func (p *Process) ExpectedRuntime() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expectedRuntime
}

// TimeLeft returns the STCF residual.
func (p *Process) TimeLeft() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeLeft
}

// LTime returns the tick of the most recent dispatch.
func (p *Process) LTime() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ltime
}

// ETime returns the exit/last-queued watermark used for aging.
func (p *Process) ETime() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.etime
}

// TimeSlice returns the remaining quantum at the current level.
func (p *Process) TimeSlice() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeSlice
}

// WaitingFor returns the process this one is blocked behind, or nil.
func (p *Process) WaitingFor() *Process {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitingFor
}

// SetWaitingFor records the process this one is now blocked behind, the
// first link walked by a pipe priority-inheritance chain (spec §4.3/§4.5).
func (p *Process) SetWaitingFor(target *Process) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waitingFor = target
}

// SetExpectedRuntime implements the setexpected(e) syscall (SJF hint).
func (p *Process) SetExpectedRuntime(e uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedRuntime = e
}

// SetSTCFVals implements the setstcfvals(e) syscall: seeds both the SJF
// hint and the STCF residual counter.
func (p *Process) SetSTCFVals(e uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedRuntime = e
	p.timeLeft = e + 1
}

// Info returns a consistent snapshot of the fields GetProcInfo exposes.
func (p *Process) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Info{
		ID:              p.id,
		State:           p.state,
		Name:            p.name,
		CTime:           p.ctime,
		LTime:           p.ltime,
		ETime:           p.etime,
		RTime:           p.rtime,
		ExpectedRuntime: p.expectedRuntime,
		TimeLeft:        p.timeLeft,
		Priority:        p.priority,
		QueueLevel:      p.queueLevel,
		TimeSlice:       p.timeSlice,
	}
}

// TryAge implements the §4.2 aging pass for a single slot: if this
// Runnable process's etime trails now by more than StarvCut, promote it
// one level (toward 0) and reset its quantum. priority tracks the
// result too: aging is a change of natural level, not a borrowed one,
// so the next reorient must not un-age it back down.
func (p *Process) TryAge(now uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Runnable || p.queueLevel <= 0 {
		return false
	}
	if now-p.etime <= StarvCut {
		return false
	}
	p.queueLevel--
	p.priority = p.queueLevel
	p.timeSlice = Quantum(p.queueLevel)
	p.etime = now
	return true
}

// ApplyDemotion implements the §4.2 demotion step: if the quantum was
// exhausted during the last slice (the demote flag) and the process
// isn't already at the lowest level, bump its level. priority is kept
// in lockstep so a later reorient's baseline reflects the demoted
// level rather than undoing it. Either way, a quantum that was flagged
// exhausted gets its time_slice refreshed for the (possibly unchanged)
// level, so a process parked at the floor keeps round-robining there
// instead of running with time_slice stuck at zero. Always clears the
// demote flag. Returns true if the level actually changed.
func (p *Process) ApplyDemotion() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.demote {
		return false
	}
	demoted := false
	if p.queueLevel < NumLevels-1 {
		p.queueLevel++
		demoted = true
	}
	p.priority = p.queueLevel
	p.timeSlice = Quantum(p.queueLevel)
	p.demote = false
	return demoted
}

// Dispatch claims the process for this CPU at tick now: it transitions
// Runnable->Running and reports true, or leaves the process alone and
// reports false if another CPU already claimed it first. The
// check-and-set happens under p's own lock so two CPUs racing a
// policy's Pick result on the same slot can never both win, the same
// guarantee xv6's scheduler() gets by re-checking p->state after
// acquiring p->lock.
func (p *Process) Dispatch(now uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Runnable {
		return false
	}
	p.state = Running
	if p.stime == 0 {
		p.stime = now
	}
	p.ltime = now
	return true
}

// Sched hands control to the process's workload goroutine — or lets it
// start running, on the very first dispatch — and blocks until that
// goroutine parks again by yielding, sleeping, or exiting. This is the
// Go-native stand-in for swtch(): the calling CPU goroutine is "off-CPU"
// for the duration of the channel receive. Must only be called right
// after a successful Dispatch, the precondition §4.6/§7 name for sched:
// the process has already been claimed and marked Running.
func (p *Process) Sched() {
	if p.State() != Running {
		invariant("sched: process %d context-switched in while not Running", p.ID())
	}
	p.resumeCh <- struct{}{}
	<-p.parkedCh
}

// park signals the CPU that this process's workload has stopped running
// and, unless final, waits to be redispatched. Must only be called from
// the process's own workload goroutine, and only after the caller has
// already moved state off Running (to Runnable, Sleeping, or Zombie) —
// §4.6's "sched called with Running still set" invariant violation.
func (p *Process) park(final bool) {
	if p.State() == Running {
		invariant("sched: process %d parked while still Running", p.ID())
	}
	p.parkedCh <- struct{}{}
	if !final {
		<-p.resumeCh
	}
}

// billElapsed accounts time spent running since ltime against rtime and
// the current level's time_slice, per spec §4.2. Returns true if the
// quantum was exhausted (time_slice hit zero), in which case the caller
// is flagged for demotion at its next requeue.
func (p *Process) billElapsed(now uint64) bool {
	elapsed := now - p.ltime
	p.rtime += elapsed
	if elapsed < p.timeSlice {
		p.timeSlice -= elapsed
		return false
	}
	p.timeSlice = 0
	p.demote = true
	return true
}
