package wire_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inmemosd/osd/wire"
)

var _ = Describe("reply codec", func() {
	It("round-trips result, epoch, flags and per-op outdata", func() {
		req := sampleRequest()
		req.Ops[0].Rval = 0
		req.Ops[0].Outdata = []byte("readback")
		req.Ops[0].PayloadLen = uint32(len(req.Ops[0].Outdata))
		req.Ops[1].Rval = -2

		front := wire.EncodeReply(req, -2, 12, wire.FlagAck|wire.FlagOnDisk)
		data := wire.ReplyData(req.Ops)
		rep, err := wire.DecodeReply(req.Tid, front, data)
		Expect(err).NotTo(HaveOccurred())

		Expect(rep.Result).To(Equal(int32(-2)))
		Expect(rep.Epoch).To(Equal(uint32(12)))
		Expect(rep.Flags & (wire.FlagAck | wire.FlagOnDisk)).To(Equal(wire.FlagAck | wire.FlagOnDisk))
		Expect(rep.Name).To(Equal(req.Name))
		Expect(rep.Pool).To(Equal(req.SPG.Pool))
		Expect(rep.Seed).To(Equal(req.SPG.Seed))
		Expect(rep.Ops).To(HaveLen(2))
		Expect(rep.Ops[0].Outdata).To(Equal([]byte("readback")))
		Expect(rep.Ops[1].Rval).To(Equal(int32(-2)))
	})

	It("round-trips an empty-outdata op set", func() {
		req := sampleRequest()
		front := wire.EncodeReply(req, 0, 1, wire.FlagAck)
		rep, err := wire.DecodeReply(req.Tid, front, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Result).To(Equal(int32(0)))
		Expect(rep.Ops).To(HaveLen(2))
	})

	It("clears ONDISK/ONNVRAM/ACK from the request flags before OR-ing in the ack type", func() {
		req := sampleRequest()
		req.Flags = uint32(wire.FlagAck | wire.FlagOnNVRAM | 0x100)

		front := wire.EncodeReply(req, 0, 1, wire.FlagOnDisk)
		rep, err := wire.DecodeReply(req.Tid, front, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Flags & wire.FlagAck).To(BeZero())
		Expect(rep.Flags & wire.FlagOnNVRAM).To(BeZero())
		Expect(rep.Flags & wire.FlagOnDisk).To(Equal(wire.FlagOnDisk))
		Expect(rep.Flags & 0x100).To(Equal(uint64(0x100)))
	})
})
