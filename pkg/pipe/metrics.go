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

package pipe

import "github.com/prometheus/client_golang/prometheus"

// blockedTicks is a process-wide histogram with one observation each time
// a Read or Write blocks on an empty/full buffer: the ticks that one block
// lasted. A call that blocks several times records several observations; a
// call that never blocks records none.
// It is package-level (not per-Pipe) since every pipe in a build shares
// one registration, the same way pkg/sched/policy's dispatch counter
// does for every CPU loop.
var blockedTicks = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "blocked_ticks",
		Help:    "Ticks a pipe endpoint spent in each block inside Read/Write.",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512},
	},
	[]string{"op"},
)

// NewMetrics returns the raw collector for every pipe's blocked-time
// histogram. Call once and register with metrics.Register, passing
// metrics.WithGroup and metrics.WithCollectorOptions as needed, the same
// pattern policy.NewSchedMetrics follows.
func NewMetrics() prometheus.Collector {
	return blockedTicks
}

func recordBlocked(op string, startTick, nowTick uint64) {
	blockedTicks.WithLabelValues(op).Observe(float64(nowTick - startTick))
}
