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

import "errors"

// Recoverable errors surface the §7 "-1 contract" as Go error values
// instead of a sentinel integer; callers continue after receiving one.
var (
	// ErrResourceExhausted is returned when the process table is full.
	ErrResourceExhausted = errors.New("proc: resource exhausted")
	// ErrInvalidArgument is returned for a negative size or unknown id.
	ErrInvalidArgument = errors.New("proc: invalid argument")
	// ErrKilled is returned by a blocking call that unwound because the
	// caller's kill_requested flag was observed set.
	ErrKilled = errors.New("proc: killed")
	// ErrNoChildren is returned by Wait when the caller has no children.
	ErrNoChildren = errors.New("proc: no children")
)

// invariant panics naming the violated invariant, matching §7's "kernel
// invariant violation" class: the system is assumed corrupted past this
// point, so we panic rather than attempt to continue.
func invariant(format string, args ...interface{}) {
	log.Panic("invariant violated: "+format, args...)
}
