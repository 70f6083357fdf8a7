// Package wire is the OSD's binary wire codec (spec §4.2): symmetric
// encode/decode of the request and reply envelopes and their op array,
// little-endian, length-prefixed, with forward-compatible tail
// skipping on every versioned sub-struct. It is a direct, generalised
// port of the retrieved kernel source's ceph_decode_msg_osd_op /
// create_osd_op_reply, replacing raw pointer arithmetic over wire
// buffers with the bounded-slice decoder below (spec §9's design note
// on that exact substitution).
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/inmemosd/osd/cos"
)

// decoder is a bounds-checked cursor over a decode buffer. Every read
// advances the offset only on success; a short buffer always yields
// ErrTruncated, never a panic or an out-of-bounds read.
type decoder struct {
	buf []byte
	off int
}

func newDecoder(buf []byte) *decoder { return &decoder{buf: buf} }

func (d *decoder) remaining() int { return len(d.buf) - d.off }

func (d *decoder) need(n int, field string) error {
	if d.remaining() < n {
		return errors.Wrapf(cos.ErrTruncated, "field %q needs %d bytes, %d remain", field, n, d.remaining())
	}
	return nil
}

func (d *decoder) u8(field string) (uint8, error) {
	if err := d.need(1, field); err != nil {
		return 0, err
	}
	v := d.buf[d.off]
	d.off++
	return v, nil
}

func (d *decoder) i8(field string) (int8, error) {
	v, err := d.u8(field)
	return int8(v), err
}

func (d *decoder) u16(field string) (uint16, error) {
	if err := d.need(2, field); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v, nil
}

func (d *decoder) u32(field string) (uint32, error) {
	if err := d.need(4, field); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) i32(field string) (int32, error) {
	v, err := d.u32(field)
	return int32(v), err
}

func (d *decoder) u64(field string) (uint64, error) {
	if err := d.need(8, field); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v, nil
}

func (d *decoder) bytes(n int, field string) ([]byte, error) {
	if err := d.need(n, field); err != nil {
		return nil, err
	}
	v := d.buf[d.off : d.off+n]
	d.off += n
	return v, nil
}

func (d *decoder) skip(n int, field string) error {
	if err := d.need(n, field); err != nil {
		return err
	}
	d.off += n
	return nil
}

// versionedHeader reads a length-prefixed sub-struct's {version,
// compat, declared_len} triple and enforces minVersion (spec §4.2
// "version gates" via ceph_start_decoding). It returns the absolute
// offset the sub-struct's body ends at (start + declared_len), which
// the caller must seek to when done — reading less than declared is
// forward-compatible, reading past it is Corrupted (spec §4.2 "safe-
// decode discipline").
func (d *decoder) versionedHeader(minVersion uint8, field string) (bodyEnd int, err error) {
	v, err := d.u8(field + ".version")
	if err != nil {
		return 0, err
	}
	if _, err = d.u8(field + ".compat"); err != nil {
		return 0, err
	}
	declLen, err := d.u32(field + ".len")
	if err != nil {
		return 0, err
	}
	if v < minVersion {
		return 0, errors.Wrapf(cos.ErrUnsupportedVersion, "%s: version %d < min %d", field, v, minVersion)
	}
	bodyEnd = d.off + int(declLen)
	if bodyEnd > len(d.buf) {
		return 0, errors.Wrapf(cos.ErrCorrupted, "%s: declared length %d exceeds buffer", field, declLen)
	}
	return bodyEnd, nil
}

// seekTo implements the "skip to start+declared_len" forward-compat
// rule; it is Corrupted for the inner decode to have read past bodyEnd.
func (d *decoder) seekTo(bodyEnd int, field string) error {
	if d.off > bodyEnd {
		return errors.Wrapf(cos.ErrCorrupted, "%s: inner decode overran declared length", field)
	}
	d.off = bodyEnd
	return nil
}
