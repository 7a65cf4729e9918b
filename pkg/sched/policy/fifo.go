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

import "github.com/oslab/schedcore/pkg/proc"

func init() {
	Register("fifo", func() Policy { return &fifoPolicy{} })
}

// fifoPolicy dispatches the Runnable process with the least ctime,
// ties broken by id (§4.1).
type fifoPolicy struct{}

func (f *fifoPolicy) Name() string { return "fifo" }

func (f *fifoPolicy) Pick(t *proc.Table) *proc.Process {
	return pickByKey(runnableCandidates(t), func(i proc.Info) uint64 { return i.CTime })
}

func (f *fifoPolicy) AfterDispatch(t *proc.Table, p *proc.Process) {}
