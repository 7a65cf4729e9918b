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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oslab/schedcore/pkg/proc"
	"github.com/oslab/schedcore/pkg/sched"
	"github.com/oslab/schedcore/pkg/sched/policy"
	"github.com/oslab/schedcore/pkg/tick"
	"github.com/oslab/schedcore/pkg/utils/cpuset"
)

// newTestTable builds a table with one real CPU loop (round-robin, so no
// workload is ever starved behind another) actually dispatching forked
// processes, since a Process's workload goroutine never runs past its
// initial park until some CPU calls Sched on it. The returned stop func
// must be deferred so the loop's goroutine doesn't leak past the test.
func newTestTable(t *testing.T) (*proc.Table, func()) {
	t.Helper()
	clk := &tick.Clock{}
	tbl := proc.NewTable(8, cpuset.New(0), clk)
	mgr, err := sched.NewManager(tbl, "rr", time.Millisecond)
	require.NoError(t, err)
	mgr.Start()
	return tbl, mgr.Stop
}

func TestWriteReadRoundTrip(t *testing.T) {
	tbl, stop := newTestTable(t)
	defer stop()
	root := tbl.Init()
	pi := New(tbl)

	msg := []byte("hello, pipe")
	got := make([]byte, len(msg))

	readDone := make(chan struct{})
	_, err := tbl.Fork(root, "reader", 0, func(ctx *proc.Context) {
		n, err := pi.Read(ctx, got)
		require.NoError(t, err)
		require.Equal(t, len(msg), n)
		close(readDone)
	})
	require.NoError(t, err)

	_, err = tbl.Fork(root, "writer", 0, func(ctx *proc.Context) {
		n, err := pi.Write(ctx, msg)
		require.NoError(t, err)
		require.Equal(t, len(msg), n)
	})
	require.NoError(t, err)

	select {
	case <-readDone:
	case <-time.After(5 * time.Second):
		t.Fatal("read did not complete")
	}
	require.Equal(t, msg, got)
}

func TestWriteBlocksUntilDrainedThenCompletes(t *testing.T) {
	tbl, stop := newTestTable(t)
	defer stop()
	root := tbl.Init()
	pi := New(tbl)

	filler := make([]byte, Size)
	fillDone := make(chan struct{})
	_, err := tbl.Fork(root, "filler", 0, func(ctx *proc.Context) {
		n, err := pi.Write(ctx, filler)
		require.NoError(t, err)
		require.Equal(t, Size, n)
		close(fillDone)
	})
	require.NoError(t, err)

	select {
	case <-fillDone:
	case <-time.After(5 * time.Second):
		t.Fatal("filler did not complete")
	}

	extra := []byte("x")
	writeDone := make(chan struct{})
	_, err = tbl.Fork(root, "writer", 0, func(ctx *proc.Context) {
		n, err := pi.Write(ctx, extra)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		close(writeDone)
	})
	require.NoError(t, err)

	drained := make([]byte, 1)
	_, err = tbl.Fork(root, "reader", 0, func(ctx *proc.Context) {
		n, err := pi.Read(ctx, drained)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})
	require.NoError(t, err)

	select {
	case <-writeDone:
	case <-time.After(5 * time.Second):
		t.Fatal("writer blocked behind the full pipe never unblocked after a read drained it")
	}
}

func TestReadReturnsEOFAfterCloseWriter(t *testing.T) {
	tbl, stop := newTestTable(t)
	defer stop()
	root := tbl.Init()
	pi := New(tbl)

	readDone := make(chan error, 1)
	_, err := tbl.Fork(root, "reader", 0, func(ctx *proc.Context) {
		buf := make([]byte, 1)
		n, err := pi.Read(ctx, buf)
		require.Equal(t, 0, n)
		readDone <- err
	})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond) // give the reader a chance to block
	pi.CloseWriter()

	select {
	case err := <-readDone:
		require.NoError(t, err, "EOF on a closed write end is a clean 0-byte read, not an error")
	case <-time.After(5 * time.Second):
		t.Fatal("reader never woke up after the write end closed")
	}
}

func TestWriteReturnsBrokenPipeAfterCloseReader(t *testing.T) {
	tbl, stop := newTestTable(t)
	defer stop()
	root := tbl.Init()
	pi := New(tbl)

	filler := make([]byte, Size)
	fillDone := make(chan struct{})
	_, err := tbl.Fork(root, "filler", 0, func(ctx *proc.Context) {
		_, err := pi.Write(ctx, filler)
		require.NoError(t, err)
		close(fillDone)
	})
	require.NoError(t, err)

	select {
	case <-fillDone:
	case <-time.After(5 * time.Second):
		t.Fatal("filler did not complete")
	}

	writeDone := make(chan error, 1)
	_, err = tbl.Fork(root, "writer", 0, func(ctx *proc.Context) {
		_, err := pi.Write(ctx, []byte("x"))
		writeDone <- err
	})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond) // give the writer a chance to block on the full buffer
	pi.CloseReader()

	select {
	case err := <-writeDone:
		require.ErrorIs(t, err, ErrBrokenPipe)
	case <-time.After(5 * time.Second):
		t.Fatal("writer never woke up after the read end closed")
	}
}

// TestBlockedWriterLiftsReaderLevel exercises the Write-side PI hook end
// to end: a writer blocked on a full pipe donates its level to the
// process it is waiting on to drain it. The reader is driven down to
// the floor level first with the real mlfq policy, the same way
// sustained CPU bursts demote it in production, then Reorient must pull
// it back up to the (still level-0) writer's level once the writer is
// recorded as waiting on it. This table is driven by hand, one tick at
// a time, rather than by the wall-clock table the other tests in this
// file share, so the number of dispatch cycles needed to reach the
// floor is exact and reproducible.
func TestBlockedWriterLiftsReaderLevel(t *testing.T) {
	clk := &tick.Clock{}
	tbl := proc.NewTable(8, cpuset.New(0), clk)
	root := tbl.Init()
	pi := New(tbl)

	pol, err := policy.New("mlfq")
	require.NoError(t, err)

	reader, err := tbl.Fork(root, "reader", 0, func(ctx *proc.Context) {
		ctx.Spin(20)
	})
	require.NoError(t, err)

	for i := 0; i < 20 && reader.QueueLevel() < proc.NumLevels-1; i++ {
		now := tbl.Now()
		require.True(t, reader.Dispatch(now))
		reader.Sched()
		pol.AfterDispatch(tbl, reader)
	}
	require.Equal(t, proc.NumLevels-1, reader.QueueLevel(), "reader did not reach the floor level")

	writer, err := tbl.Fork(root, "writer", 0, func(ctx *proc.Context) {})
	require.NoError(t, err)
	require.Equal(t, 0, writer.QueueLevel())

	writer.SetWaitingFor(reader)
	pi.reader = reader
	tbl.Reorient(reader)

	require.Equal(t, writer.QueueLevel(), reader.QueueLevel(),
		"a reader a blocked writer depends on must inherit the writer's level")
}
