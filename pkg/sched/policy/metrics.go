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
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oslab/schedcore/pkg/proc"
)

// schedMetrics is the scheduler's metrics surface from SPEC_FULL.md:
// dispatch counts per policy, MLFQ demotions and aging-driven promotions,
// and a per-level runnable gauge sampled from the table each time the
// collector is collected (on every poll when registered as polled).
// It is a single prometheus.Collector so the whole group registers (and
// can be toggled) as one unit, the way collectors.go registers the
// standard Go/process collectors.
type schedMetrics struct {
	table *proc.Table

	dispatches *prometheus.CounterVec
	demotions  prometheus.Counter
	promotions prometheus.Counter
	runnable   *prometheus.GaugeVec
}

var (
	demotionTotal  uint64
	promotionTotal uint64
)

// RecordDispatch is called by the per-CPU loop once per Pick/Dispatch
// cycle; it is cheap enough to call unconditionally even when no
// collector has been registered yet.
func RecordDispatch(policyName string) {
	dispatchCounter.WithLabelValues(policyName).Inc()
}

// RecordDemotion and RecordPromotion are called from mlfq.go's
// AfterDispatch and Pick, respectively.
func RecordDemotion() {
	atomic.AddUint64(&demotionTotal, 1)
}

func RecordPromotion() {
	atomic.AddUint64(&promotionTotal, 1)
}

var dispatchCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dispatch_total",
		Help: "Number of times the scheduler dispatched a process, by policy.",
	},
	[]string{"policy"},
)

// NewSchedMetrics builds the raw collector bound to table. Call once per
// Table and register the result with metrics.Register (as the standard
// collectors in pkg/metrics/collectors do), passing metrics.WithPolled()
// among its collector options so the per-level runnable gauge is sampled
// from the table on the registry's own schedule rather than on every
// scrape.
func NewSchedMetrics(table *proc.Table) prometheus.Collector {
	return &schedMetrics{
		table:      table,
		dispatches: dispatchCounter,
		demotions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demotion_total",
			Help: "Number of MLFQ quantum-exhaustion demotions.",
		}),
		promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promotion_total",
			Help: "Number of MLFQ starvation-aging promotions.",
		}),
		runnable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "runnable_procs",
				Help: "Number of Runnable processes per MLFQ queue level.",
			},
			[]string{"level"},
		),
	}
}

func (m *schedMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.dispatches.Describe(ch)
	m.demotions.Describe(ch)
	m.promotions.Describe(ch)
	m.runnable.Describe(ch)
}

func (m *schedMetrics) Collect(ch chan<- prometheus.Metric) {
	m.demotions.Add(float64(atomic.SwapUint64(&demotionTotal, 0)))
	m.promotions.Add(float64(atomic.SwapUint64(&promotionTotal, 0)))

	m.runnable.Reset()
	for _, q := range m.table.Slots() {
		info := q.Info()
		if info.State != proc.Runnable {
			continue
		}
		m.runnable.WithLabelValues(levelLabel(info.QueueLevel)).Inc()
	}

	m.dispatches.Collect(ch)
	m.demotions.Collect(ch)
	m.promotions.Collect(ch)
	m.runnable.Collect(ch)
}

func levelLabel(level int) string {
	switch level {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return "other"
	}
}
