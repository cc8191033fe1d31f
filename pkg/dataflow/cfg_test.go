package dataflow

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xplshn/ptxlower/pkg/ptx"
)

func kernel(name string, blocks ...*ptx.BasicBlock) *ptx.Kernel {
	return &ptx.Kernel{Name: name, Blocks: blocks}
}

func bb(label string, insts ...*ptx.Instruction) *ptx.BasicBlock {
	return &ptx.BasicBlock{Label: label, Instructions: insts}
}

func mov(id ptx.RegisterID, v uint64) *ptx.Instruction {
	return &ptx.Instruction{Opcode: ptx.OpMov, Type: ptx.S32, D: ptx.Reg(id, ptx.S32), A: ptx.Imm(ptx.S32, v)}
}

func addImm(d, a ptx.RegisterID) *ptx.Instruction {
	return &ptx.Instruction{Opcode: ptx.OpAdd, Type: ptx.S32, D: ptx.Reg(d, ptx.S32), A: ptx.Reg(a, ptx.S32), B: ptx.Imm(ptx.S32, 1)}
}

func setp(d, a ptx.RegisterID) *ptx.Instruction {
	return &ptx.Instruction{Opcode: ptx.OpSetP, Type: ptx.S32, Cmp: ptx.CmpEq, D: ptx.Reg(d, ptx.Predicate), A: ptx.Reg(a, ptx.S32), B: ptx.Imm(ptx.S32, 0)}
}

func bra(target string, guard ptx.Operand) *ptx.Instruction {
	return &ptx.Instruction{Opcode: ptx.OpBra, D: ptx.LabelRef(target), PG: guard}
}

func exit() *ptx.Instruction { return &ptx.Instruction{Opcode: ptx.OpExit} }

func labels(bs []Block) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Label()
	}
	return out
}

// diamond branches on %r2 and merges two definitions of %r1 in join.
func diamond() *ptx.Kernel {
	return kernel("diamond",
		bb("entry", mov(1, 0), setp(2, 1), bra("else", ptx.Guard(2, false))),
		bb("then", mov(1, 1), bra("join", ptx.Operand{})),
		bb("else", mov(1, 2)),
		bb("join", addImm(3, 1), exit()),
	)
}

var _ = Describe("Build", func() {
	It("should derive targets and fallthrough edges", func() {
		g, err := Build(diamond())
		Expect(err).NotTo(HaveOccurred())

		bs := g.Blocks()
		Expect(labels(bs)).To(Equal([]string{"entry", "then", "else", "join"}))
		Expect(labels(bs[0].Targets())).To(Equal([]string{"else"}))
		Expect(bs[0].Fallthrough().Label()).To(Equal("then"))
		Expect(bs[1].Fallthrough()).To(BeNil())
		Expect(bs[2].Fallthrough().Label()).To(Equal("join"))
		Expect(bs[3].Fallthrough()).To(BeNil())
		Expect(labels(bs[3].Predecessors())).To(Equal([]string{"then", "else"}))
	})

	It("should fall through guarded exits", func() {
		g, err := Build(kernel("k",
			bb("a", mov(2, 0), setp(1, 2), &ptx.Instruction{Opcode: ptx.OpExit, PG: ptx.Guard(1, false)}),
			bb("b", &ptx.Instruction{Opcode: ptx.OpExit, PG: ptx.Never()}),
			bb("c", exit()),
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Blocks()[0].Fallthrough().Label()).To(Equal("b"))
		Expect(g.Blocks()[1].Fallthrough().Label()).To(Equal("c"))
	})

	It("should insert an entry block when the first block is a branch target", func() {
		g, err := Build(kernel("loop",
			bb("loop", addImm(1, 1), setp(2, 1), bra("loop", ptx.Guard(2, true))),
			bb("done", exit()),
		))
		Expect(err).NotTo(HaveOccurred())

		bs := g.Blocks()
		Expect(labels(bs)).To(Equal([]string{EntryLabel, "loop", "done"}))
		Expect(bs[0].Instructions()).To(BeEmpty())
		Expect(labels(bs[1].Predecessors())).To(Equal([]string{EntryLabel, "loop"}))
	})

	It("should copy the instructions it rewrites", func() {
		k := diamond()
		g, err := Build(k)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())
		Expect(k.Blocks[3].Instructions[0].A.Reg).To(Equal(ptx.RegisterID(1)))
	})

	It("should reject invalid kernels", func() {
		_, err := Build(kernel("k", bb("a", bra("nowhere", ptx.Operand{}))))
		Expect(err).To(HaveOccurred())

		_, err = Build(kernel("k", bb("a", &ptx.Instruction{Opcode: ptx.OpAdd})))
		Expect(errors.Is(err, ptx.ErrInvalid)).To(BeTrue())
	})
})

var _ = Describe("Producer", func() {
	var g *CFG

	BeforeEach(func() {
		var err error
		g, err = Build(diamond())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should find the defining block", func() {
		b, err := g.Producer(g.Blocks()[3], Register{ID: 2, Type: ptx.Predicate})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Label()).To(Equal("entry"))
	})

	It("should report registers nothing defines", func() {
		_, err := g.Producer(g.Blocks()[0], Register{ID: 42, Type: ptx.S32})
		Expect(errors.Is(err, ErrNoProducer)).To(BeTrue())
	})

	It("should reject blocks of another graph", func() {
		other, err := Build(diamond())
		Expect(err).NotTo(HaveOccurred())

		_, err = g.Producer(other.Blocks()[0], Register{ID: 1, Type: ptx.S32})
		Expect(errors.Is(err, ErrUnknownLabel)).To(BeTrue())

		_, err = g.Producer(nil, Register{ID: 1, Type: ptx.S32})
		Expect(errors.Is(err, ErrUnknownLabel)).To(BeTrue())
	})
})

var _ = Describe("Dump", func() {
	It("should list phis with their predecessors", func() {
		g, err := Build(diamond())
		Expect(err).NotTo(HaveOccurred())
		Expect(g.ToSSA()).To(Succeed())

		var buf bytes.Buffer
		g.Dump(&buf)

		Expect(buf.String()).To(HavePrefix("kernel diamond\n"))
		Expect(buf.String()).To(ContainSubstring("join:\t\t; preds = then, else\n"))
		Expect(buf.String()).To(ContainSubstring("\t%r6 = phi.s32 [%r4, then] [%r5, else]\n"))
		Expect(buf.String()).To(ContainSubstring("\tadd.s32 %r3, %r6, 1\n"))
	})
})
