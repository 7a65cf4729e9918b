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
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestProcess() *Process {
	return &Process{
		resumeCh: make(chan struct{}),
		parkedCh: make(chan struct{}),
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Unused:    "unused",
		Used:      "used",
		Sleeping:  "sleeping",
		Runnable:  "runnable",
		Running:   "running",
		Zombie:    "zombie",
		State(99): "invalid",
	}
	for state, want := range cases {
		require.Equal(t, want, state.String())
	}
}

func TestSetSTCFValsSeedsBothFields(t *testing.T) {
	p := newTestProcess()
	p.SetSTCFVals(20)
	require.Equal(t, uint64(20), p.ExpectedRuntime())
	require.Equal(t, uint64(21), p.TimeLeft())
}

func TestSetExpectedRuntimeLeavesTimeLeftAlone(t *testing.T) {
	p := newTestProcess()
	p.timeLeft = 7
	p.SetExpectedRuntime(30)
	require.Equal(t, uint64(30), p.ExpectedRuntime())
	require.Equal(t, uint64(7), p.TimeLeft())
}

func TestBillElapsedWithinQuantumDecrementsTimeSlice(t *testing.T) {
	p := newTestProcess()
	p.timeSlice = Quantum(1) // 2 ticks
	p.ltime = 10

	demote := p.billElapsed(11) // elapsed = 1, strictly less than time_slice (2)
	require.False(t, demote)
	require.Equal(t, uint64(1), p.timeSlice)
	require.Equal(t, uint64(1), p.rtime)
	require.False(t, p.demote)
}

func TestBillElapsedExhaustingQuantumFlagsDemote(t *testing.T) {
	p := newTestProcess()
	p.timeSlice = Quantum(0) // 1 tick
	p.ltime = 5

	demote := p.billElapsed(6) // elapsed = 1, equal to time_slice
	require.True(t, demote)
	require.Equal(t, uint64(0), p.timeSlice)
	require.True(t, p.demote)
}

func TestDispatchSetsRunningAndStampsLTime(t *testing.T) {
	p := newTestProcess()
	p.state = Runnable
	require.True(t, p.Dispatch(42))
	require.Equal(t, Running, p.State())
	require.Equal(t, uint64(42), p.LTime())
}

func TestDispatchRejectsWhenNotRunnable(t *testing.T) {
	p := newTestProcess()
	p.state = Sleeping
	require.False(t, p.Dispatch(42))
	require.Equal(t, Sleeping, p.State())
}

func TestInfoSnapshotMatchesFields(t *testing.T) {
	p := newTestProcess()
	p.id = 7
	p.name = "snapshot"
	p.state = Runnable
	p.ctime = 1
	p.ltime = 9
	p.etime = 2
	p.rtime = 3
	p.expectedRuntime = 4
	p.timeLeft = 5
	p.priority = 6
	p.queueLevel = 1
	p.timeSlice = Quantum(1)

	info := p.Info()
	require.Equal(t, Info{
		ID:              7,
		State:           Runnable,
		Name:            "snapshot",
		CTime:           1,
		LTime:           9,
		ETime:           2,
		RTime:           3,
		ExpectedRuntime: 4,
		TimeLeft:        5,
		Priority:        6,
		QueueLevel:      1,
		TimeSlice:       Quantum(1),
	}, info)
}

func TestTryAgePromotesStarvedProcess(t *testing.T) {
	p := newTestProcess()
	p.state = Runnable
	p.queueLevel = 2
	p.etime = 0

	require.False(t, p.TryAge(StarvCut)) // exactly at the threshold, not yet over it
	require.True(t, p.TryAge(StarvCut+1))
	require.Equal(t, 1, p.queueLevel)
	require.Equal(t, Quantum(1), p.timeSlice)
	require.Equal(t, uint64(StarvCut+1), p.etime)
}

func TestApplyDemotionBumpsLevelAndClearsFlag(t *testing.T) {
	p := newTestProcess()
	p.queueLevel = 0
	p.demote = true

	require.True(t, p.ApplyDemotion())
	require.Equal(t, 1, p.queueLevel)
	require.Equal(t, Quantum(1), p.timeSlice)
	require.False(t, p.demote)

	// Already at the lowest level: level doesn't change, but a flagged
	// quantum exhaustion still refreshes time_slice for another turn.
	p.queueLevel = NumLevels - 1
	p.timeSlice = 0
	p.demote = true
	require.False(t, p.ApplyDemotion())
	require.Equal(t, Quantum(NumLevels-1), p.timeSlice)
	require.False(t, p.demote)

	// No exhaustion flagged: nothing changes.
	p.timeSlice = 3
	p.demote = false
	require.False(t, p.ApplyDemotion())
	require.Equal(t, uint64(3), p.timeSlice)
}

func TestQuantumTableRatio(t *testing.T) {
	require.Equal(t, uint64(1), Quantum(0))
	require.Equal(t, uint64(2), Quantum(1))
	require.Equal(t, uint64(4), Quantum(2))
	// out-of-range levels clamp rather than panic or index out of bounds.
	require.Equal(t, Quantum(0), Quantum(-1))
	require.Equal(t, Quantum(2), Quantum(99))
}
