// Package osd wires the wire codec, the dispatcher, and a messenger
// together into a running server session (spec §5's C5 ServerSession)
// and provides the daemon's top-level Config plumbing. The bind/serve
// shape is a generalisation of the retrieved source's per-connection
// receive loop, replacing kernel socket callbacks with the Messenger
// capability interface spec §3 calls for.
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package osd

import (
	"context"
	"sync/atomic"

	"github.com/inmemosd/osd/cluster"
	"github.com/inmemosd/osd/dispatch"
	"github.com/inmemosd/osd/iov"
	"github.com/inmemosd/osd/nlog"
	"github.com/inmemosd/osd/wire"
)

// IncomingRequest is one client_request delivered by the Messenger:
// the raw front bytes the codec decodes, plus the message's data
// segment already presented as a page vector (spec §4.1 "the
// messenger presents [wire payload] as a PageVector", §4.5 "allocate
// a receive message with a single page-vector data segment sized to
// hdr.data_len"). Release, if set, returns that segment's pages to
// the messenger's allocator once the session is done reading them.
type IncomingRequest struct {
	Tid     uint64
	Body    []byte
	Pages   []iov.PageChunk
	DataLen int
	Release func()
}

// Messenger is the transport capability ServerSession binds to (spec
// §3): it hands the session decoded-enough requests and accepts
// encoded reply bytes to ship back to whichever peer sent tid.
type Messenger interface {
	Recv(ctx context.Context) (*IncomingRequest, error)
	Send(tid uint64, reply []byte) error
}

// Session is C5: the long-lived binding between one Messenger, the
// current cluster map, and a Dispatcher over the local store (spec
// §5). It runs its receive loop on a single goroutine, matching the
// spec's single-logical-executor concurrency model — Dispatch and the
// Store it owns are never touched from any other goroutine.
type Session struct {
	msgr    Messenger
	disp    *dispatch.Dispatcher
	reg     *cluster.Registry
	epoch   uint32
	handled uint64
}

// NewSession builds a session bound to msgr, dispatching every
// request it receives to disp, and consulting reg for the epoch
// stamped into replies.
func NewSession(msgr Messenger, disp *dispatch.Dispatcher, reg *cluster.Registry) *Session {
	return &Session{msgr: msgr, disp: disp, reg: reg}
}

// Serve runs the receive loop until ctx is cancelled or the messenger
// reports a fatal error. Each request is decoded, dispatched, and
// replied to before the next Recv call — spec §5's guarantee that ops
// against the store never interleave.
func (s *Session) Serve(ctx context.Context) error {
	for {
		in, err := s.msgr.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handle(in)
	}
}

func (s *Session) handle(in *IncomingRequest) {
	req, err := wire.DecodeRequest(in.Tid, in.Body)
	if err != nil {
		nlog.Warningf("dropping malformed request tid=%d: %v", in.Tid, err)
		return
	}

	epoch := uint32(0)
	if cm := s.reg.Current(); cm != nil {
		epoch = cm.Epoch
	}

	cur := iov.NewCursor(iov.KindPageVector, iov.Segments{Pages: in.Pages}, in.DataLen, iov.DirRead)
	result := s.disp.Dispatch(req, cur)
	if in.Release != nil {
		in.Release()
	}
	atomic.AddUint64(&s.handled, 1)

	front := wire.EncodeReply(req, result, epoch, wire.FlagAck|wire.FlagOnDisk)
	reply := append(front, wire.ReplyData(req.Ops)...)
	if err := s.msgr.Send(req.Tid, reply); err != nil {
		nlog.Warningf("send failed tid=%d: %v", req.Tid, err)
	}
}

// Handled returns the number of requests this session has completed,
// for /metrics and health-check wiring.
func (s *Session) Handled() uint64 { return atomic.LoadUint64(&s.handled) }
