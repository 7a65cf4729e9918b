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

// Package pipe implements the bounded byte pipe of §4.5: a 512-byte
// ring buffer shared between exactly one reader and one writer
// process, with the priority-inheritance hooks a blocked endpoint
// trips on its counterpart (§4.3).
package pipe

import (
	"errors"
	"sync"

	logger "github.com/oslab/schedcore/pkg/log"
	"github.com/oslab/schedcore/pkg/proc"
	"github.com/oslab/schedcore/pkg/sleep"
)

var log = logger.Get("pipe")

// Size is the pipe's fixed capacity in bytes, xv6's PIPESIZE.
const Size = 512

// ErrBrokenPipe is returned by Write when the read end is closed, and by
// Read or Write when the calling process is killed. A Read on a pipe whose
// write end is closed returns the buffered bytes (or 0 at EOF) and no error.
var ErrBrokenPipe = errors.New("pipe: broken pipe")

// Pipe is the shared buffer. mu is the single lock serializing every
// field below, standing in for struct pipe's spinlock; Write and Read
// both hand mu to sleep.On as the condition-variable guard.
type Pipe struct {
	mu    sync.Mutex
	table *proc.Table

	data          [Size]byte
	nread, nwrite uint64
	readOpen      bool
	writeOpen     bool

	writer *proc.Process
	reader *proc.Process

	readToken  proc.Token
	writeToken proc.Token
}

// New allocates an open pipe bound to table, the table whose Sleep and
// Wakeup back this pipe's blocking reads and writes.
func New(table *proc.Table) *Pipe {
	return &Pipe{
		table:      table,
		readOpen:   true,
		writeOpen:  true,
		readToken:  new(struct{ name string }),
		writeToken: new(struct{ name string }),
	}
}

// Write implements pipewrite(pi, addr, n): copies p into the ring
// buffer one byte at a time, blocking while the buffer is full. A
// blocked writer records a dependency on the known reader and asks for
// a priority reorient so the reader that will drain the buffer isn't
// starved behind the writer's own (possibly lower) level.
func (pi *Pipe) Write(ctx *proc.Context, p []byte) (int, error) {
	pr := ctx.Process()

	pi.mu.Lock()
	pi.writer = pr

	i := 0
	for i < len(p) {
		if !pi.readOpen || ctx.Killed() {
			pi.mu.Unlock()
			return i, ErrBrokenPipe
		}
		if pi.nwrite == pi.nread+Size {
			sleep.Wake(pi.table, pi.readToken)

			if pi.reader != nil {
				pr.SetWaitingFor(pi.reader)
				pi.table.Reorient(pi.reader)
			}

			blockedAt := pi.table.Now()
			sleep.On(pi.table, pr, pi.writeToken, &pi.mu)
			recordBlocked("write", blockedAt, pi.table.Now())

			if pr.WaitingFor() != nil {
				pr.SetWaitingFor(nil)
				pi.table.Reorient(pi.reader)
			}
			continue
		}

		pi.data[pi.nwrite%Size] = p[i]
		pi.nwrite++
		i++
	}

	sleep.Wake(pi.table, pi.readToken)
	pi.mu.Unlock()
	return i, nil
}

// Read implements piperead(pi, addr, n): drains up to len(p) bytes,
// blocking while the buffer is empty and the write end is still open.
// A blocked reader donates its priority to the known writer, since the
// writer holds the data the reader needs (§4.3).
func (pi *Pipe) Read(ctx *proc.Context, p []byte) (int, error) {
	pr := ctx.Process()

	pi.mu.Lock()
	pi.reader = pr

	for pi.nread == pi.nwrite && pi.writeOpen {
		if ctx.Killed() {
			pi.mu.Unlock()
			return 0, ErrBrokenPipe
		}

		if pi.writer != nil {
			pr.SetWaitingFor(pi.writer)
			pi.table.Reorient(pi.writer)
		}

		blockedAt := pi.table.Now()
		sleep.On(pi.table, pr, pi.readToken, &pi.mu)
		recordBlocked("read", blockedAt, pi.table.Now())

		if pr.WaitingFor() != nil {
			pr.SetWaitingFor(nil)
			pi.table.Reorient(pi.writer)
		}
	}

	i := 0
	for i < len(p) {
		if pi.nread == pi.nwrite {
			break
		}
		p[i] = pi.data[pi.nread%Size]
		pi.nread++
		i++
	}

	sleep.Wake(pi.table, pi.writeToken)
	pi.mu.Unlock()
	return i, nil
}

// CloseWriter implements the write half of pipeclose(pi, writable):
// marks the write end closed and wakes any reader blocked on more
// data, which will now observe EOF instead.
func (pi *Pipe) CloseWriter() {
	pi.mu.Lock()
	pi.writeOpen = false
	pi.writer = nil
	sleep.Wake(pi.table, pi.readToken)
	pi.mu.Unlock()
	log.Debug("pipe: write end closed")
}

// CloseReader implements the read half of pipeclose(pi, writable):
// marks the read end closed and wakes any writer blocked on free
// space, which will now observe ErrBrokenPipe.
func (pi *Pipe) CloseReader() {
	pi.mu.Lock()
	pi.readOpen = false
	pi.reader = nil
	sleep.Wake(pi.table, pi.writeToken)
	pi.mu.Unlock()
	log.Debug("pipe: read end closed")
}
