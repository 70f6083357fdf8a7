package wire_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inmemosd/osd/cos"
	"github.com/inmemosd/osd/wire"
)

func sampleRequest() *wire.OpRequest {
	return &wire.OpRequest{
		Tid: 99,
		SPG: wire.SPG{Pool: 3, Seed: 7, Preferred: -1, Shard: 0},
		RawHash:  0xdeadbeef,
		Epoch:    12,
		Flags:    1,
		Locator:  wire.Locator{Pool: 3},
		Name:     []byte("myobject"),
		Ops: []wire.Op{
			{Opcode: wire.OpWrite, Offset: 0, Length: 5},
			{Opcode: wire.OpStat},
		},
		Attempts: 1,
		Features: 0x1234,
	}
}

var _ = Describe("request codec", func() {
	It("round-trips every envelope field", func() {
		req := sampleRequest()
		body := wire.EncodeRequest(req)

		decoded, err := wire.DecodeRequest(req.Tid, body)
		Expect(err).NotTo(HaveOccurred())

		Expect(decoded.SPG).To(Equal(req.SPG))
		Expect(decoded.RawHash).To(Equal(req.RawHash))
		Expect(decoded.Epoch).To(Equal(req.Epoch))
		Expect(decoded.Flags).To(Equal(req.Flags))
		Expect(decoded.Locator.Pool).To(Equal(req.Locator.Pool))
		Expect(decoded.Name).To(Equal(req.Name))
		Expect(decoded.Attempts).To(Equal(req.Attempts))
		Expect(decoded.Features).To(Equal(req.Features))
		Expect(decoded.Ops).To(HaveLen(2))
		Expect(decoded.Ops[0].Opcode).To(Equal(wire.OpWrite))
		Expect(decoded.Ops[0].Length).To(Equal(uint64(5)))
		Expect(decoded.Ops[1].Opcode).To(Equal(wire.OpStat))
	})

	It("round-trips a namespaced locator", func() {
		req := sampleRequest()
		req.Locator.Namespace = []byte("ns1")
		body := wire.EncodeRequest(req)

		decoded, err := wire.DecodeRequest(req.Tid, body)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Locator.Namespace).To(Equal(req.Locator.Namespace))
	})

	It("rejects a truncated body", func() {
		req := sampleRequest()
		body := wire.EncodeRequest(req)
		_, err := wire.DecodeRequest(req.Tid, body[:len(body)-10])
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, cos.ErrTruncated)).To(BeTrue())
	})

	It("rejects more ops than the maximum", func() {
		req := sampleRequest()
		for i := 0; i < 20; i++ {
			req.Ops = append(req.Ops, wire.Op{Opcode: wire.OpStat})
		}
		body := wire.EncodeRequest(req)
		_, err := wire.DecodeRequest(req.Tid, body)
		Expect(err).To(HaveOccurred())
	})
})
