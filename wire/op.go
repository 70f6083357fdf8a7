package wire

import (
	"github.com/pkg/errors"

	"github.com/inmemosd/osd/cos"
)

// Opcode identifies one op's shape within the fixed 64-byte op struct
// (spec §4.2). Numbering is internal to this codec; nothing outside
// the wire package depends on the concrete values.
type Opcode uint16

const (
	OpStat Opcode = iota + 1
	OpRead
	OpWrite
	OpWriteFull
	OpZero
	OpTruncate
	OpCall
	OpWatch
	OpNotify
	OpNotifyAck
	OpListWatchers
	OpSetAllocHint
	OpSetXattr
	OpCmpXattr
	OpCreate
	OpDelete
	OpCopyFrom2
)

func (o Opcode) String() string {
	switch o {
	case OpStat:
		return "stat"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpWriteFull:
		return "writefull"
	case OpZero:
		return "zero"
	case OpTruncate:
		return "truncate"
	case OpCall:
		return "call"
	case OpWatch:
		return "watch"
	case OpNotify:
		return "notify"
	case OpNotifyAck:
		return "notify_ack"
	case OpListWatchers:
		return "list_watchers"
	case OpSetAllocHint:
		return "setallochint"
	case OpSetXattr:
		return "setxattr"
	case OpCmpXattr:
		return "cmpxattr"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpCopyFrom2:
		return "copy_from2"
	default:
		return "unknown"
	}
}

// implementedOps are the opcodes this core actually executes (spec
// §4.3's minimum set plus the supplemented lifecycle ops); everything
// else decodes cleanly but is rejected by the dispatcher with
// cos.ErrUnsupportedOp (spec's open question 4).
var implementedOps = map[Opcode]bool{
	OpStat: true, OpRead: true, OpWrite: true, OpWriteFull: true,
	OpZero: true, OpTruncate: true, OpCreate: true, OpDelete: true,
}

// Implemented reports whether this core executes the opcode.
func (o Opcode) Implemented() bool { return implementedOps[o] }

const opUnionSize = 54
const opStructSize = 2 + 4 + 4 + opUnionSize // opcode + flags + payload_len

// Op is the decoded form of one wire op struct (spec §4.2 table). Only
// the fields relevant to Opcode are meaningful; the rest are zero.
type Op struct {
	Opcode     Opcode
	Flags      uint32
	PayloadLen uint32 // indata_len on decode, outdata_len on encode
	Rval       int32
	Outdata    []byte // set by the dispatcher before EncodeReply

	// extent shape: READ, WRITE, WRITEFULL, ZERO, TRUNCATE
	Offset       uint64
	Length       uint64
	TruncateSize uint64
	TruncateSeq  uint32

	// CALL
	ClassLen  uint8
	MethodLen uint8
	IndataLen uint32

	// WATCH
	Cookie  uint64
	Ver     uint64
	WatchOp uint8
	Gen     uint32

	// SETALLOCHINT
	ExpectedObjectSize uint64
	ExpectedWriteSize  uint64

	// SETXATTR / CMPXATTR
	NameLen  uint32
	ValueLen uint32
	CmpOp    uint8
	CmpMode  uint8

	// COPY_FROM2
	SnapID          uint64
	SrcVersion      uint64
	CopyFlags       uint8
	SrcFadviseFlags uint32

	// CREATE
	Exclusive bool
}

func decodeOp(d *decoder) (Op, error) {
	var op Op
	opcode, err := d.u16("op.opcode")
	if err != nil {
		return op, err
	}
	op.Opcode = Opcode(opcode)
	if op.Flags, err = d.u32("op.flags"); err != nil {
		return op, err
	}
	if op.PayloadLen, err = d.u32("op.payload_len"); err != nil {
		return op, err
	}

	unionStart := d.off
	unionEnd := unionStart + opUnionSize

	switch op.Opcode {
	case OpRead, OpWrite, OpWriteFull, OpZero, OpTruncate:
		if op.Offset, err = d.u64("op.offset"); err != nil {
			return op, err
		}
		if op.Length, err = d.u64("op.length"); err != nil {
			return op, err
		}
		if op.TruncateSize, err = d.u64("op.truncate_size"); err != nil {
			return op, err
		}
		if op.TruncateSeq, err = d.u32("op.truncate_seq"); err != nil {
			return op, err
		}
	case OpCall:
		if op.ClassLen, err = d.u8("op.class_len"); err != nil {
			return op, err
		}
		if op.MethodLen, err = d.u8("op.method_len"); err != nil {
			return op, err
		}
		if op.IndataLen, err = d.u32("op.indata_len"); err != nil {
			return op, err
		}
	case OpWatch:
		if op.Cookie, err = d.u64("op.cookie"); err != nil {
			return op, err
		}
		if op.Ver, err = d.u64("op.ver"); err != nil {
			return op, err
		}
		if op.WatchOp, err = d.u8("op.watch_op"); err != nil {
			return op, err
		}
		if op.Gen, err = d.u32("op.gen"); err != nil {
			return op, err
		}
	case OpNotify, OpNotifyAck:
		if op.Cookie, err = d.u64("op.cookie"); err != nil {
			return op, err
		}
	case OpSetAllocHint:
		if op.ExpectedObjectSize, err = d.u64("op.expected_object_size"); err != nil {
			return op, err
		}
		if op.ExpectedWriteSize, err = d.u64("op.expected_write_size"); err != nil {
			return op, err
		}
	case OpSetXattr, OpCmpXattr:
		if op.NameLen, err = d.u32("op.name_len"); err != nil {
			return op, err
		}
		if op.ValueLen, err = d.u32("op.value_len"); err != nil {
			return op, err
		}
		if op.CmpOp, err = d.u8("op.cmp_op"); err != nil {
			return op, err
		}
		if op.CmpMode, err = d.u8("op.cmp_mode"); err != nil {
			return op, err
		}
	case OpCreate:
		var exclusive uint8
		if exclusive, err = d.u8("op.exclusive"); err != nil {
			return op, err
		}
		op.Exclusive = exclusive != 0
	case OpCopyFrom2:
		if op.SnapID, err = d.u64("op.snapid"); err != nil {
			return op, err
		}
		if op.SrcVersion, err = d.u64("op.src_version"); err != nil {
			return op, err
		}
		if op.CopyFlags, err = d.u8("op.copy_flags"); err != nil {
			return op, err
		}
		if op.SrcFadviseFlags, err = d.u32("op.src_fadvise_flags"); err != nil {
			return op, err
		}
	case OpDelete, OpStat, OpListWatchers:
		// no per-op fields.
	default:
		return op, errors.Wrapf(cos.ErrUnsupportedOp, "unknown opcode %d", opcode)
	}

	if d.off > unionEnd {
		return op, errors.Wrapf(cos.ErrCorrupted, "op %s overran its 54-byte union", op.Opcode)
	}
	d.off = unionEnd
	return op, nil
}

func encodeOp(e *encoder, op Op) {
	e.u16(uint16(op.Opcode))
	e.u32(op.Flags)
	e.u32(op.PayloadLen)
	unionStart := len(e.buf)

	switch op.Opcode {
	case OpRead, OpWrite, OpWriteFull, OpZero, OpTruncate:
		e.u64(op.Offset)
		e.u64(op.Length)
		e.u64(op.TruncateSize)
		e.u32(op.TruncateSeq)
	case OpCall:
		e.u8(op.ClassLen)
		e.u8(op.MethodLen)
		e.u32(op.IndataLen)
	case OpWatch:
		e.u64(op.Cookie)
		e.u64(op.Ver)
		e.u8(op.WatchOp)
		e.u32(op.Gen)
	case OpNotify, OpNotifyAck:
		e.u64(op.Cookie)
	case OpSetAllocHint:
		e.u64(op.ExpectedObjectSize)
		e.u64(op.ExpectedWriteSize)
	case OpSetXattr, OpCmpXattr:
		e.u32(op.NameLen)
		e.u32(op.ValueLen)
		e.u8(op.CmpOp)
		e.u8(op.CmpMode)
	case OpCreate:
		if op.Exclusive {
			e.u8(1)
		} else {
			e.u8(0)
		}
	case OpCopyFrom2:
		e.u64(op.SnapID)
		e.u64(op.SrcVersion)
		e.u8(op.CopyFlags)
		e.u32(op.SrcFadviseFlags)
	}

	e.pad(opUnionSize - (len(e.buf) - unionStart))
}
