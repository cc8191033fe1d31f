package dataflow

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xplshn/ptxlower/pkg/ptx"
)

var _ = Describe("ToSSA", func() {
	s32 := func(id ptx.RegisterID) Register { return Register{ID: id, Type: ptx.S32} }

	It("should merge the definitions of a diamond", func() {
		g, err := Build(diamond())
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())

		bs := g.Blocks()
		Expect(bs[0].Phis()).To(BeEmpty())
		Expect(bs[3].Phis()).To(Equal([]Phi{{D: s32(6), S: []Register{s32(4), s32(5)}}}))

		Expect(bs[1].Instructions()[0].D.Reg).To(Equal(ptx.RegisterID(4)))
		Expect(bs[2].Instructions()[0].D.Reg).To(Equal(ptx.RegisterID(5)))
		Expect(bs[3].Instructions()[0].A.Reg).To(Equal(ptx.RegisterID(6)))
		Expect(g.Type(6)).To(Equal(ptx.S32))
	})

	It("should feed a loop phi from the entry and the back edge", func() {
		g, err := Build(kernel("loop",
			bb("entry", mov(1, 0)),
			bb("loop", addImm(1, 1), setp(2, 1), bra("loop", ptx.Guard(2, true))),
			bb("done", exit()),
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())

		loop := g.Blocks()[1]
		Expect(loop.Phis()).To(Equal([]Phi{{D: s32(3), S: []Register{s32(1), s32(4)}}}))
		add := loop.Instructions()[0]
		Expect(add.A.Reg).To(Equal(ptx.RegisterID(3)))
		Expect(add.D.Reg).To(Equal(ptx.RegisterID(4)))
		Expect(loop.Instructions()[2].PG.Reg).To(Equal(ptx.RegisterID(2)))
	})

	It("should give reads without a definition a register nothing produces", func() {
		g, err := Build(kernel("loop",
			bb("loop", addImm(1, 1), setp(2, 1), bra("loop", ptx.Guard(2, false))),
			bb("done", exit()),
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())

		entry, loop := g.Blocks()[0], g.Blocks()[1]
		Expect(entry.Label()).To(Equal(EntryLabel))
		Expect(loop.Phis()).To(Equal([]Phi{{D: s32(1), S: []Register{s32(3), s32(4)}}}))

		_, err = g.Producer(loop, s32(3))
		Expect(errors.Is(err, ErrNoProducer)).To(BeTrue())

		p, err := g.Producer(loop, s32(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Label()).To(Equal("loop"))
	})

	It("should record the value a guarded write merges with", func() {
		guarded := addImm(1, 1)
		guarded.PG = ptx.Guard(2, false)
		g, err := Build(kernel("k", bb("entry", mov(1, 0), setp(2, 1), guarded, exit())))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())

		inst := g.Blocks()[0].Instructions()[2]
		Expect(inst.D.Reg).To(Equal(ptx.RegisterID(3)))
		Expect(inst.D.Prior).NotTo(BeNil())
		Expect(*inst.D.Prior).To(Equal(ptx.RegisterID(1)))
		Expect(inst.A.Reg).To(Equal(ptx.RegisterID(1)))

		var buf bytes.Buffer
		g.Dump(&buf)
		Expect(buf.String()).To(ContainSubstring("; prior %r1"))
	})

	It("should reuse one register for repeated undefined reads", func() {
		g, err := Build(kernel("k", bb("entry",
			&ptx.Instruction{Opcode: ptx.OpAdd, Type: ptx.S32, D: ptx.Reg(1, ptx.S32), A: ptx.Reg(2, ptx.S32), B: ptx.Reg(2, ptx.S32)},
			addImm(3, 2),
			exit(),
		)))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())

		insts := g.Blocks()[0].Instructions()
		Expect(insts[0].A.Reg).To(Equal(ptx.RegisterID(4)))
		Expect(insts[0].B.Reg).To(Equal(ptx.RegisterID(4)))
		Expect(insts[1].A.Reg).To(Equal(ptx.RegisterID(4)))
		Expect(g.Origin(4)).To(Equal(ptx.RegisterID(2)))
		Expect(g.Origin(1)).To(Equal(ptx.RegisterID(1)))
	})

	It("should rename unreachable blocks too", func() {
		g, err := Build(kernel("k",
			bb("entry", mov(1, 0), exit()),
			bb("dead", addImm(1, 1), exit()),
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())

		dead := g.Blocks()[1]
		Expect(dead.Predecessors()).To(BeEmpty())
		Expect(dead.Instructions()[0].A.Reg).To(Equal(ptx.RegisterID(2)))
		Expect(dead.Instructions()[0].D.Reg).To(Equal(ptx.RegisterID(3)))
	})

	It("should be idempotent", func() {
		g, err := Build(diamond())
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())
		Expect(g.ToSSA()).To(Succeed())
		Expect(g.Blocks()[3].Phis()).To(HaveLen(1))
	})
})
