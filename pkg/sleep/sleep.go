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

// Package sleep is the public name for §4.4's sleep/wakeup primitive.
// The mechanics live on proc.Table, not here: both sides of a wakeup
// need to take every slot's private mutex in the same pass Reorient
// and Wait already do, so the condition-variable logic is implemented
// once, next to those locks, in pkg/proc. This package is the stable,
// narrow surface other packages (pipe, the per-CPU loop) are meant to
// import instead of reaching into proc.Table directly for it.
package sleep

import (
	"sync"

	"github.com/oslab/schedcore/pkg/proc"
)

// On blocks the calling process on channel until a matching Wakeup(t,
// channel), guard must be held by the caller and is released for the
// duration of the sleep and re-acquired before returning, exactly as
// xv6's sleep(chan, lk) does.
func On(t *proc.Table, p *proc.Process, channel proc.Token, guard sync.Locker) {
	t.Sleep(p, channel, guard)
}

// Wake makes every process sleeping on channel Runnable. The caller
// must already hold whatever lock guards channel's wait predicate.
func Wake(t *proc.Table, channel proc.Token) {
	t.Wakeup(channel)
}
