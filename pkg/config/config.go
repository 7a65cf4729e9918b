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

// Package config holds the kernel's boot-time configuration: table
// size, the CPU set scheduler loops run on, and which policy to
// activate, the REDESIGN FLAG in spec.md §9 turning policy selection
// into a runtime choice instead of a compile-time one.
package config

import (
	"fmt"

	"github.com/oslab/schedcore/pkg/multierror"
	"github.com/oslab/schedcore/pkg/sched/policy"
	"github.com/oslab/schedcore/pkg/utils/cpuset"
)

const (
	// DefaultTableSize is the process table's default slot count.
	DefaultTableSize = 64
	// DefaultPolicy is the scheduling policy activated when none is given.
	DefaultPolicy = "rr"
)

// Config is the kernel's boot-time configuration.
type Config struct {
	Policy    string
	TableSize int
	CPUs      cpuset.CPUSet
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithPolicy selects the scheduling policy by its registered name.
func WithPolicy(name string) Option {
	return func(c *Config) { c.Policy = name }
}

// WithTableSize sets the process table's slot count.
func WithTableSize(size int) Option {
	return func(c *Config) { c.TableSize = size }
}

// WithCPUs restricts scheduler loops to the given CPU set.
func WithCPUs(cpus cpuset.CPUSet) Option {
	return func(c *Config) { c.CPUs = cpus }
}

// New builds a Config with defaults, then applies opts in order.
func New(opts ...Option) *Config {
	c := &Config{
		Policy:    DefaultPolicy,
		TableSize: DefaultTableSize,
		CPUs:      cpuset.New(0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Validate accumulates every configuration error found rather than
// failing on the first one, so a misconfigured kernel reports all of
// its problems in a single diagnostic.
func (c *Config) Validate() error {
	var merr *multierror.Error

	if c.TableSize < 1 {
		merr = multierror.Append(merr, fmt.Errorf("config: table-size must be >= 1, got %d", c.TableSize))
	}
	if c.CPUs.Size() < 1 {
		merr = multierror.Append(merr, fmt.Errorf("config: cpu set must not be empty"))
	}

	known := false
	for _, name := range policy.Names() {
		if name == c.Policy {
			known = true
			break
		}
	}
	if !known {
		merr = multierror.Append(merr, fmt.Errorf("config: unknown policy %q (available: %v)", c.Policy, policy.Names()))
	}

	return merr.ErrorOrNil()
}
