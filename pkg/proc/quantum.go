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

// NumLevels is the number of MLFQ queue levels, 0 (highest) through
// NumLevels-1 (lowest).
const NumLevels = 3

// QuantumTable holds the per-level quantum, in ticks. The system's tick
// granularity is defined so that level 0's quantum is exactly one tick;
// the 1:2:4 ratio across levels is the contract spec.md fixes (it names
// the levels 0.5/1/2 time-units, which this table represents scaled by
// two so every entry is a whole number of ticks).
var QuantumTable = [NumLevels]uint64{1, 2, 4}

// StarvCut is the aging threshold, in ticks: a Runnable slot whose etime
// trails now by more than this is promoted one level.
const StarvCut = 1000

// Quantum returns the quantum, in ticks, for the given queue level.
func Quantum(level int) uint64 {
	if level < 0 {
		level = 0
	}
	if level >= NumLevels {
		level = NumLevels - 1
	}
	return QuantumTable[level]
}
