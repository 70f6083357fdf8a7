// Package dispatch runs the per-request op loop against a store
// (spec §4.4): C4 OpDispatcher. It is a direct generalisation of the
// retrieved kernel source's handle_osd_op, which walks a request's op
// array in order, executes each against local objects, and applies the
// FAILOK per-op error policy.
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package dispatch

import (
	"time"

	"github.com/inmemosd/osd/cos"
	"github.com/inmemosd/osd/iov"
	"github.com/inmemosd/osd/nlog"
	"github.com/inmemosd/osd/stats"
	"github.com/inmemosd/osd/store"
	"github.com/inmemosd/osd/wire"
)

// FlagFailOk marks an individual op as tolerant of failure: on error
// the op's rval carries the error and the loop proceeds to the next op
// instead of aborting the request (spec §4.4 invariant I8).
const FlagFailOk = uint32(1) << 0

// Clock abstracts wall-clock time so tests can supply a fixed
// Timestamp instead of real time (grounded on the retrieved source's
// injectable now() knobs in its stats/latency paths).
type Clock interface{ Now() store.Timestamp }

type systemClock struct{}

func (systemClock) Now() store.Timestamp {
	t := time.Now()
	return store.Timestamp{Sec: uint32(t.Unix()), Nsec: uint32(t.Nanosecond())}
}

// SystemClock is the default Clock backed by time.Now.
var SystemClock Clock = systemClock{}

// Dispatcher owns one Store and runs requests against it one at a
// time on the caller's goroutine (spec §5's single logical executor —
// this type holds no lock because it is never called concurrently).
type Dispatcher struct {
	store   *store.Store
	clock   Clock
	metrics *stats.Metrics
}

// New builds a Dispatcher over st. metrics may be nil to disable
// instrumentation (unit tests commonly do this).
func New(st *store.Store, clock Clock, metrics *stats.Metrics) *Dispatcher {
	if clock == nil {
		clock = SystemClock
	}
	return &Dispatcher{store: st, clock: clock, metrics: metrics}
}

// Dispatch runs every op in req against the store in order, mutating
// each Op's Rval/Outdata in place, and returns the request-level
// result (spec §4.4): the first failing op without FAILOK ends the
// request with that op's rval as the result; the ops after it are not
// run and keep their rval of 0, mirroring handle_osd_op's early-return
// on a fatal op failure.
//
// cur is the input BufferCursor spanning the inbound message's data
// segment (spec §4.4 "Inputs"): shared across every op in the
// request, advanced only by ops that consume payload bytes. Ops that
// don't consume input (READ, STAT, and the rest) must not touch it.
func (d *Dispatcher) Dispatch(req *wire.OpRequest, cur *iov.Cursor) int32 {
	var result int32

	for i := range req.Ops {
		op := &req.Ops[i]
		start := time.Now()
		err := d.runOp(req, op, cur)
		latency := time.Since(start).Seconds()

		failed := err != nil
		if d.metrics != nil {
			d.metrics.ObserveOp(op.Opcode.String(), failed, latency)
		}

		if err == nil {
			op.Rval = 0
			continue
		}

		op.Rval = errnoOf(err)
		if op.Flags&FlagFailOk != 0 {
			if d.metrics != nil {
				d.metrics.FailokTotal.Inc()
			}
			nlog.Infof("op %s failed (FAILOK): %v", op.Opcode, err)
			continue
		}

		nlog.Warningf("op %s failed, aborting request tid=%d: %v", op.Opcode, req.Tid, err)
		result = op.Rval
		return result
	}
	return result
}

func (d *Dispatcher) runOp(req *wire.OpRequest, op *wire.Op, cur *iov.Cursor) error {
	if !op.Opcode.Implemented() {
		return cos.ErrUnsupportedOp
	}

	id := identityFor(req)
	mtime := d.clock.Now()

	switch op.Opcode {
	case wire.OpStat:
		buf, err := d.store.Stat(id)
		if err != nil {
			return err
		}
		op.Outdata = buf.Bytes()
		op.PayloadLen = uint32(len(op.Outdata))
		return nil

	case wire.OpRead:
		buf, err := d.store.Read(id, op.Offset, op.Length)
		if err != nil {
			return err
		}
		op.Outdata = buf.Bytes()
		op.PayloadLen = uint32(len(op.Outdata))
		if d.metrics != nil {
			d.metrics.BytesRead.Add(float64(len(op.Outdata)))
		}
		return nil

	case wire.OpWrite, wire.OpWriteFull, wire.OpZero:
		length := op.Length
		offset := op.Offset
		if op.Opcode == wire.OpWriteFull {
			if err := d.store.Truncate(id, 0, mtime); err != nil && err != cos.ErrNotFound {
				return err
			}
			offset = 0
		}
		var err error
		if op.Opcode == wire.OpZero {
			err = d.store.Zero(id, offset, length, mtime)
		} else {
			if uint64(cur.Remaining()) < length {
				return cos.ErrTruncated
			}
			err = d.store.Write(id, offset, length, mtime, cur)
		}
		if err == nil && d.metrics != nil {
			d.metrics.BytesWritten.Add(float64(length))
		}
		return err

	case wire.OpTruncate:
		return d.store.Truncate(id, op.TruncateSize, mtime)

	case wire.OpCreate:
		return d.store.Create(id, op.Exclusive, mtime)

	case wire.OpDelete:
		return d.store.Delete(id)

	default:
		return cos.ErrUnsupportedOp
	}
}

func identityFor(req *wire.OpRequest) store.ObjectIdentity {
	return store.ObjectIdentity{
		Pool:      int64(req.SPG.Pool),
		Hash:      req.RawHash,
		Name:      req.Name,
		Namespace: req.Locator.Namespace,
		SnapshotID: req.SnapID,
	}
}

// errnoOf maps a core error to the op-level rval the wire reply
// carries (spec §7's error taxonomy).
func errnoOf(err error) int32 {
	switch err {
	case cos.ErrNotFound:
		return -2
	case cos.ErrOutOfMemory:
		return -12
	case cos.ErrBadAddress:
		return -14
	case cos.ErrUnsupportedOp:
		return -95
	default:
		if _, ok := err.(*cos.ErrInvalidArgument); ok {
			return -22
		}
		return -5
	}
}
