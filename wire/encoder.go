package wire

import "encoding/binary"

// encoder is a simple append-only little-endian byte builder, the
// encode-side counterpart of decoder.
type encoder struct {
	buf []byte
}

func newEncoder(sizeHint int) *encoder { return &encoder{buf: make([]byte, 0, sizeHint)} }

func (e *encoder) u8(v uint8)     { e.buf = append(e.buf, v) }
func (e *encoder) i8(v int8)      { e.u8(uint8(v)) }
func (e *encoder) i32(v int32)    { e.u32(uint32(v)) }
func (e *encoder) bytes(v []byte) { e.buf = append(e.buf, v...) }

func (e *encoder) u16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *encoder) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *encoder) u64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

// pad appends n zero bytes, used to fill the fixed 54-byte op union out
// to its declared width regardless of which variant was written (spec
// §4.2's "op struct is a fixed 64-byte slot").
func (e *encoder) pad(n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// versionedHeader writes a {version, compat, len} triple and returns a
// closure that back-patches len once the caller has written the body.
func (e *encoder) versionedHeader(version, compat uint8) func() {
	e.u8(version)
	e.u8(compat)
	lenOff := len(e.buf)
	e.u32(0)
	bodyStart := len(e.buf)
	return func() {
		binary.LittleEndian.PutUint32(e.buf[lenOff:], uint32(len(e.buf)-bodyStart))
	}
}

func (e *encoder) bytesOut() []byte { return e.buf }
