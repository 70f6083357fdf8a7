package wire

import (
	"github.com/pkg/errors"

	"github.com/inmemosd/osd/cos"
)

// Reply-flag bits from the wire protocol's ack-type vocabulary (spec
// §4.2 "chosen ack type" / glossary ACK, ONDISK, ONNVRAM): the reply's
// flags are the request's flags with these three bits cleared, then
// OR'd with whichever of these the dispatcher decided to set.
const (
	FlagAck     uint64 = 0x0002
	FlagOnNVRAM uint64 = 0x0004
	FlagOnDisk  uint64 = 0x0008
)

const pgidVersion = 1

// evLen is the on-wire size of a zeroed eversion_t (epoch u32 +
// version u64), used for the reply's always-zero bad_replay_version
// and replay_version fields (spec §4.2, §9 open question on
// user_version).
const evLen = 12

// ReplyMessage is the decoded reply envelope, the server-to-client
// counterpart of OpRequest (spec §4.2's create_osd_op_reply). The
// daemon only ever encodes replies; DecodeReply exists for round-trip
// testing and any future client-side reuse of this codec.
type ReplyMessage struct {
	Tid      uint64
	Name     []byte
	Pool     uint64
	Seed     uint32
	Flags    uint64
	Result   int32
	Epoch    uint32
	Ops      []Op
	Attempts uint32
}

// EncodeReply serialises the outcome of running req's ops into the
// exact front-section layout spec §4.2 mandates: object name, packed
// pgid `{1, pool, seed, -1}`, flags (input flags with
// ONDISK|ONNVRAM|ACK cleared then OR'd with ackType), result, a
// zeroed bad_replay_version, epoch, num_ops, the raw op array (each
// op's payload_len written as the length of its Outdata), attempts, the rval
// array, a zeroed replay_version, a zero user_version, and a zero
// do_redirect.
//
// Each op's Outdata is not inlined into this front section — like
// OpRequest.Data, it travels as the message's separate data segment;
// callers assemble it with ReplyData, mirroring how the wire header's
// data_len is the sum of per-op outdata_len rather than part of the
// front.
func EncodeReply(req *OpRequest, result int32, epoch uint32, ackType uint64) []byte {
	e := newEncoder(128)

	e.u32(uint32(len(req.Name)))
	e.bytes(req.Name)

	e.u8(pgidVersion)
	e.u64(req.SPG.Pool)
	e.u32(req.SPG.Seed)
	e.i32(-1)

	flags := uint64(req.Flags)
	flags &^= FlagAck | FlagOnNVRAM | FlagOnDisk
	flags |= ackType
	e.u64(flags)

	e.i32(result)
	e.pad(evLen) // bad_replay_version

	e.u32(epoch)

	e.u32(uint32(len(req.Ops)))
	for _, op := range req.Ops {
		op.PayloadLen = uint32(len(op.Outdata))
		encodeOp(e, op)
	}

	e.u32(req.Attempts)
	for _, op := range req.Ops {
		e.i32(op.Rval)
	}

	e.pad(evLen) // replay_version
	e.u64(0)     // user_version: always 0 (spec §9 open question)
	e.u8(0)      // do_redirect: redirect is not implemented

	return e.bytesOut()
}

// ReplyData concatenates each op's Outdata in order: the reply's data
// segment, whose total length is the wire header's data_len (spec
// §4.2). Empty ops contribute nothing.
func ReplyData(ops []Op) []byte {
	total := 0
	for _, op := range ops {
		total += len(op.Outdata)
	}
	if total == 0 {
		return nil
	}
	out := make([]byte, 0, total)
	for _, op := range ops {
		out = append(out, op.Outdata...)
	}
	return out
}

// DecodeReply parses a reply front section produced by EncodeReply.
// data is the reply's separate data segment (see ReplyData); pass nil
// when no op carries outdata.
func DecodeReply(tid uint64, front, data []byte) (*ReplyMessage, error) {
	d := newDecoder(front)
	rep := &ReplyMessage{Tid: tid}

	nameLen, err := d.u32("reply.name_len")
	if err != nil {
		return nil, err
	}
	if rep.Name, err = d.bytes(int(nameLen), "reply.name"); err != nil {
		return nil, err
	}

	v, err := d.u8("reply.pgid.version")
	if err != nil {
		return nil, err
	}
	if v < pgidVersion {
		return nil, errors.Wrapf(cos.ErrUnsupportedVersion, "reply.pgid: version %d < %d", v, pgidVersion)
	}
	if rep.Pool, err = d.u64("reply.pgid.pool"); err != nil {
		return nil, err
	}
	if rep.Seed, err = d.u32("reply.pgid.seed"); err != nil {
		return nil, err
	}
	if _, err = d.i32("reply.pgid.preferred"); err != nil {
		return nil, err
	}

	if rep.Flags, err = d.u64("reply.flags"); err != nil {
		return nil, err
	}
	rr, err := d.i32("reply.result")
	if err != nil {
		return nil, err
	}
	rep.Result = rr

	if err = d.skip(evLen, "reply.bad_replay_version"); err != nil {
		return nil, err
	}
	if rep.Epoch, err = d.u32("reply.epoch"); err != nil {
		return nil, err
	}

	numOps, err := d.u32("reply.num_ops")
	if err != nil {
		return nil, err
	}
	if int(numOps) > maxOps {
		return nil, errors.Wrapf(cos.ErrCorrupted, "reply num_ops %d exceeds max %d", numOps, maxOps)
	}
	rep.Ops = make([]Op, numOps)
	for i := range rep.Ops {
		if rep.Ops[i], err = decodeOp(d); err != nil {
			return nil, errors.Wrapf(err, "reply.op[%d]", i)
		}
	}

	if rep.Attempts, err = d.u32("reply.attempts"); err != nil {
		return nil, err
	}
	for i := range rep.Ops {
		if rep.Ops[i].Rval, err = d.i32("reply.op_rval"); err != nil {
			return nil, err
		}
	}

	if err = d.skip(evLen, "reply.replay_version"); err != nil {
		return nil, err
	}
	if _, err = d.u64("reply.user_version"); err != nil {
		return nil, err
	}
	if _, err = d.u8("reply.do_redirect"); err != nil {
		return nil, err
	}

	dataOff := 0
	for i := range rep.Ops {
		n := int(rep.Ops[i].PayloadLen)
		if n == 0 {
			continue
		}
		if dataOff+n > len(data) {
			return nil, errors.Wrapf(cos.ErrTruncated, "reply.op[%d] outdata truncated", i)
		}
		rep.Ops[i].Outdata = data[dataOff : dataOff+n]
		dataOff += n
	}

	return rep, nil
}
