// Copyright The NRI Plugins Authors. All Rights Reserved.
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

// Package metrics provides a thin, dynamically (re)configurable layer of
// grouping and enable/disable control on top of prometheus collectors.
//
// Simple usage
//
// package main
//
// import (
//	"github.com/oslab/schedcore/pkg/metrics"
//	"github.com/prometheus/client_golang/prometheus"
// )
//
// func setup() error {
//	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "dispatches_total"})
//	return metrics.Register("dispatches", c, metrics.WithGroup("scheduler"))
// }
//
// func serve() {
//	g, _ := metrics.NewGatherer(metrics.WithMetrics([]string{"*"}, nil))
//	http.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
// }
package metrics
