package wire_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inmemosd/osd/wire"
)

var _ = Describe("op codec", func() {
	It("round-trips a CREATE op's exclusive flag", func() {
		req := sampleRequest()
		req.Ops = []wire.Op{{Opcode: wire.OpCreate, Exclusive: true}}
		body := wire.EncodeRequest(req)
		decoded, err := wire.DecodeRequest(req.Tid, body)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Ops[0].Exclusive).To(BeTrue())
	})

	It("round-trips a TRUNCATE op's target size", func() {
		req := sampleRequest()
		req.Ops = []wire.Op{{Opcode: wire.OpTruncate, TruncateSize: 4096, TruncateSeq: 2}}
		body := wire.EncodeRequest(req)
		decoded, err := wire.DecodeRequest(req.Tid, body)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Ops[0].TruncateSize).To(Equal(uint64(4096)))
		Expect(decoded.Ops[0].TruncateSeq).To(Equal(uint32(2)))
	})

	It("decodes an unimplemented opcode without error and flags it as such", func() {
		req := sampleRequest()
		req.Ops = []wire.Op{{Opcode: wire.OpWatch, Cookie: 55}}
		body := wire.EncodeRequest(req)
		decoded, err := wire.DecodeRequest(req.Tid, body)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Ops[0].Opcode.Implemented()).To(BeFalse())
		Expect(decoded.Ops[0].Cookie).To(Equal(uint64(55)))
	})

	It("round-trips a COPY_FROM2 op's snapshot and fadvise fields, unimplemented at dispatch", func() {
		req := sampleRequest()
		req.Ops = []wire.Op{{
			Opcode:          wire.OpCopyFrom2,
			SnapID:          7,
			SrcVersion:      42,
			CopyFlags:       3,
			SrcFadviseFlags: 1,
		}}
		body := wire.EncodeRequest(req)
		decoded, err := wire.DecodeRequest(req.Tid, body)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Ops[0].Opcode.Implemented()).To(BeFalse())
		Expect(decoded.Ops[0].SnapID).To(Equal(uint64(7)))
		Expect(decoded.Ops[0].SrcVersion).To(Equal(uint64(42)))
		Expect(decoded.Ops[0].CopyFlags).To(Equal(uint8(3)))
		Expect(decoded.Ops[0].SrcFadviseFlags).To(Equal(uint32(1)))
	})

	It("reports implemented ops correctly", func() {
		Expect(wire.OpWrite.Implemented()).To(BeTrue())
		Expect(wire.OpCall.Implemented()).To(BeFalse())
	})

	It("rejects a request carrying an unrecognized opcode", func() {
		req := sampleRequest()
		req.Ops = []wire.Op{{Opcode: wire.Opcode(9999)}}
		body := wire.EncodeRequest(req)
		_, err := wire.DecodeRequest(req.Tid, body)
		Expect(err).To(HaveOccurred())
	})
})
