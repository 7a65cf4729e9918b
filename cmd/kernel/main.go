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

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oslab/schedcore/pkg/config"
	"github.com/oslab/schedcore/pkg/healthz"
	xhttp "github.com/oslab/schedcore/pkg/http"
	logger "github.com/oslab/schedcore/pkg/log"
	"github.com/oslab/schedcore/pkg/metrics"
	_ "github.com/oslab/schedcore/pkg/metrics/collectors" // registers the standard Go/process/build-info collectors
	"github.com/oslab/schedcore/pkg/pipe"
	"github.com/oslab/schedcore/pkg/proc"
	"github.com/oslab/schedcore/pkg/sched"
	"github.com/oslab/schedcore/pkg/sched/policy"
	"github.com/oslab/schedcore/pkg/tick"
	"github.com/oslab/schedcore/pkg/utils/cpuset"
	"github.com/oslab/schedcore/pkg/version"
)

// options captures our command line parameters.
type options struct {
	Policy       string
	TableSize    int
	CPUs         string
	HTTPAddr     string
	IdleInterval time.Duration
	TickInterval time.Duration
	Demo         bool
	LogDebug     string
}

var opt = options{}

// Register us for command line option processing.
func init() {
	flag.StringVar(&opt.Policy, "policy", config.DefaultPolicy,
		fmt.Sprintf("Scheduling policy to activate (one of %v).", policy.Names()))
	flag.IntVar(&opt.TableSize, "table-size", config.DefaultTableSize,
		"Number of slots in the process table.")
	flag.StringVar(&opt.CPUs, "cpus", "0",
		"CPU set the scheduler loops run on, in Linux cpuset list/range syntax.")
	flag.StringVar(&opt.HTTPAddr, "http-addr", ":8891",
		"HTTP endpoint to serve /metrics and /healthz on. Empty disables it.")
	flag.DurationVar(&opt.IdleInterval, "idle-interval", time.Millisecond,
		"How long an idle CPU loop sleeps between Pick attempts.")
	flag.DurationVar(&opt.TickInterval, "tick-interval", 10*time.Millisecond,
		"Wall-clock interval between virtual tick advances, standing in for the timer interrupt.")
	flag.BoolVar(&opt.Demo, "demo", true,
		"Fork a small scripted demo workload at startup, mirroring original_source's user/*test.c harnesses.")
	flag.StringVar(&opt.LogDebug, "log-debug", "",
		"Per-source debug logging spec, e.g. 'on:sched,policy' or 'on:*'.")
}

var log = logger.Get("kernel")

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("halting: %v", r)
			os.Exit(1)
		}
	}()

	flag.Parse()

	if opt.LogDebug != "" {
		if err := logger.Configure(&logger.Config{
			Level: logger.DefaultLevel,
			Debug: []string{opt.LogDebug},
		}); err != nil {
			log.Error("failed to apply debug logging spec: %v", err)
		}
	}

	cpus, err := cpuset.Parse(opt.CPUs)
	if err != nil {
		log.Panic("%v", errors.Wrapf(err, "invalid -cpus %q", opt.CPUs))
	}

	cfg := config.New(
		config.WithPolicy(opt.Policy),
		config.WithTableSize(opt.TableSize),
		config.WithCPUs(cpus),
	)
	if err := cfg.Validate(); err != nil {
		log.Panic("invalid configuration: %v", err)
	}

	clock := &tick.Clock{}
	table := proc.NewTable(cfg.TableSize, cfg.CPUs, clock)

	if err := metrics.Register("scheduler", policy.NewSchedMetrics(table),
		metrics.WithGroup("scheduler"),
		metrics.WithCollectorOptions(metrics.WithPolled()),
	); err != nil {
		log.Error("failed to register scheduler metrics: %v", err)
	}

	if err := metrics.Register("pipe", pipe.NewMetrics(),
		metrics.WithGroup("pipe"),
	); err != nil {
		log.Error("failed to register pipe metrics: %v", err)
	}

	manager, err := sched.NewManager(table, cfg.Policy, opt.IdleInterval)
	if err != nil {
		log.Panic("%v", errors.Wrap(err, "failed to build scheduler"))
	}

	log.Info("starting kernel scheduler core: policy=%q table-size=%d cpus=%s version=%s build=%s",
		cfg.Policy, cfg.TableSize, cfg.CPUs, version.Version, version.Build)

	manager.Start()
	defer manager.Stop()

	tickCtx, stopTicks := context.WithCancel(context.Background())
	go driveClock(tickCtx, table, opt.TickInterval)
	defer stopTicks()

	if opt.Demo {
		forkDemoWorkload(table)
	}

	stopHTTP := startHTTP(opt.HTTPAddr)
	defer stopHTTP()

	waitForSignal()
	log.Info("shutting down")
}

// driveClock advances table's virtual clock by one tick every interval,
// standing in for the timer interrupt handler of original_source's
// kernel/trap.c. Runs until ctx is cancelled.
func driveClock(ctx context.Context, table *proc.Table, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			table.Advance(1)
		}
	}
}

// forkDemoWorkload forks a small scripted workload so the kernel does
// something observable out of the box: a handful of CPU-bound jobs with
// different expected runtimes, mirroring original_source's
// user/schedtest.c (setexpected + a spin loop), and a pipe producer/
// consumer pair, mirroring user/fifotest.c.
func forkDemoWorkload(table *proc.Table) {
	root := table.Init()

	jobs := []struct {
		name     string
		expected uint64
	}{
		{"demo-short", 5},
		{"demo-medium", 20},
		{"demo-long", 50},
	}
	for _, j := range jobs {
		spin := j.expected
		_, err := table.Fork(root, j.name, j.expected, func(ctx *proc.Context) {
			ctx.Spin(spin)
			log.Info("demo: job %q finished", ctx.Process().Name())
		})
		if err != nil {
			log.Error("demo: failed to fork job %q: %v", j.name, err)
		}
	}

	pi := pipe.New(table)
	if _, err := table.Fork(root, "demo-producer", 0, func(ctx *proc.Context) {
		msg := []byte("hello from the demo producer")
		if _, err := pi.Write(ctx, msg); err != nil {
			log.Error("demo: producer write failed: %v", err)
		}
	}); err != nil {
		log.Error("demo: failed to fork producer: %v", err)
	}
	if _, err := table.Fork(root, "demo-consumer", 0, func(ctx *proc.Context) {
		buf := make([]byte, 64)
		n, err := pi.Read(ctx, buf)
		if err != nil {
			log.Error("demo: consumer read failed: %v", err)
			return
		}
		log.Info("demo: consumer read %q", string(buf[:n]))
	}); err != nil {
		log.Error("demo: failed to fork consumer: %v", err)
	}
}

// startHTTP serves /metrics and /healthz on addr, and returns a function
// that stops the server. An empty addr disables HTTP serving entirely.
func startHTTP(addr string) func() {
	if addr == "" {
		return func() {}
	}

	gatherer, err := metrics.NewGatherer(metrics.WithMetrics([]string{"*"}, nil))
	if err != nil {
		log.Error("failed to set up metrics gatherer: %v", err)
		return func() {}
	}

	srv := xhttp.NewServer()
	healthz.Setup(srv.GetMux())
	srv.GetMux().Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if err := srv.Start(addr); err != nil {
		log.Error("failed to start HTTP server on %q: %v", addr, err)
		gatherer.Stop()
		return func() {}
	}

	return func() {
		srv.Stop()
		gatherer.Stop()
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received signal %s", strings.ToUpper(sig.String()))
}
