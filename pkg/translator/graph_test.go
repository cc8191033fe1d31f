package translator_test

import (
	"errors"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xplshn/ptxlower/pkg/dataflow"
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
	"github.com/xplshn/ptxlower/pkg/translator"
)

var _ = Describe("TranslateGraph", func() {
	var (
		mockCtrl  *gomock.Controller
		mockGraph *MockGraph
	)

	newBlock := func(label string, insts ...*ptx.Instruction) *MockBlock {
		b := NewMockBlock(mockCtrl)
		b.EXPECT().Label().Return(label).AnyTimes()
		b.EXPECT().Instructions().Return(insts).AnyTimes()
		return b
	}

	wire := func(b *MockBlock, phis []dataflow.Phi, preds, targets []dataflow.Block, fall dataflow.Block) {
		b.EXPECT().Phis().Return(phis).AnyTimes()
		b.EXPECT().Predecessors().Return(preds).AnyTimes()
		b.EXPECT().Targets().Return(targets).AnyTimes()
		b.EXPECT().Fallthrough().Return(fall).AnyTimes()
	}

	i32 := ir.Elem(ir.I32)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockGraph = NewMockGraph(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report a failed SSA conversion", func() {
		boom := errors.New("boom")
		mockGraph.EXPECT().ToSSA().Return(boom)

		k, err := translator.TranslateGraph("k", mockGraph)

		Expect(err).To(MatchError(boom))
		Expect(k).To(BeNil())
	})

	It("should reject a graph without blocks", func() {
		mockGraph.EXPECT().ToSSA().Return(nil)
		mockGraph.EXPECT().Blocks().Return(nil).AnyTimes()

		_, err := translator.TranslateGraph("k", mockGraph)

		Expect(errors.Is(err, translator.ErrInvalidInstruction)).To(BeTrue())
	})

	It("should lower phis and initialize sources without a producer", func() {
		entry := newBlock("entry", &ptx.Instruction{
			Opcode: ptx.OpMov, Type: ptx.S32, D: ptx.Reg(1, ptx.S32), A: ptx.Imm(ptx.S32, 7),
		})
		body := newBlock("body", &ptx.Instruction{Opcode: ptx.OpExit})
		wire(entry, nil, nil, nil, body)
		wire(body, []dataflow.Phi{{
			D: dataflow.Register{ID: 5, Type: ptx.S32},
			S: []dataflow.Register{{ID: 1, Type: ptx.S32}, {ID: 9, Type: ptx.S32}},
		}}, []dataflow.Block{entry, body}, nil, nil)

		mockGraph.EXPECT().ToSSA().Return(nil)
		mockGraph.EXPECT().Blocks().Return([]dataflow.Block{entry, body}).AnyTimes()
		mockGraph.EXPECT().
			Producer(body, dataflow.Register{ID: 1, Type: ptx.S32}).
			Return(entry, nil)
		mockGraph.EXPECT().
			Producer(body, dataflow.Register{ID: 9, Type: ptx.S32}).
			Return(nil, dataflow.ErrNoProducer)

		var diags []translator.Diagnostic
		k, err := translator.TranslateGraph("loop", mockGraph, translator.WithDiagnostics(func(d translator.Diagnostic) { diags = append(diags, d) }))

		Expect(err).NotTo(HaveOccurred())
		Expect(k.Function.Name).To(Equal("@_Z_ptxlower_loop"))
		Expect(k.Blocks).To(HaveLen(3))

		initBlock := k.Blocks[0]
		Expect(initBlock.Label).To(Equal(translator.InitLabel))
		Expect(initBlock.Instructions).To(HaveLen(2))
		Expect(initBlock.Instructions[0].Op).To(Equal(ir.OpSelect))
		Expect(initBlock.Instructions[0].D).To(Equal(ir.Value("%r9", i32)))
		Expect(initBlock.Instructions[1].Label).To(Equal("entry"))

		Expect(k.Blocks[1].Instructions[1]).To(Equal(&ir.Instruction{Op: ir.OpBr, Label: "body"}))

		phi := k.Blocks[2].Instructions[0]
		Expect(phi.Op).To(Equal(ir.OpPhi))
		Expect(phi.D).To(Equal(ir.Value("%r5", i32)))
		Expect(phi.Incoming).To(Equal([]ir.Incoming{
			{Value: ir.Value("%r1", i32), Label: "entry"},
			{Value: ir.Value("%r9", i32), Label: "body"},
		}))
		Expect(k.Blocks[2].Instructions[1].Op).To(Equal(ir.OpRet))

		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Kind).To(Equal(translator.DiagUninitialized))
		Expect(diags[0].Block).To(Equal("body"))
	})

	It("should swap branch targets under a negated guard", func() {
		head := newBlock("head", &ptx.Instruction{
			Opcode: ptx.OpBra, D: ptx.LabelRef("far"), PG: ptx.Guard(3, true),
		})
		next := newBlock("next", &ptx.Instruction{Opcode: ptx.OpExit})
		far := newBlock("far", &ptx.Instruction{Opcode: ptx.OpExit})
		wire(head, nil, nil, []dataflow.Block{far}, next)
		wire(next, nil, []dataflow.Block{head}, nil, nil)
		wire(far, nil, []dataflow.Block{head}, nil, nil)

		mockGraph.EXPECT().ToSSA().Return(nil)
		mockGraph.EXPECT().Blocks().Return([]dataflow.Block{head, next, far}).AnyTimes()
		mockGraph.EXPECT().
			Producer(head, dataflow.Register{ID: 3, Type: ptx.Predicate}).
			Return(head, nil)

		k, err := translator.TranslateGraph("branch", mockGraph)

		Expect(err).NotTo(HaveOccurred())
		Expect(k.Blocks).To(HaveLen(3))
		Expect(k.Blocks[0].Instructions).To(Equal([]*ir.Instruction{{
			Op:    ir.OpBr,
			A:     ir.Value("%r3", ir.Elem(ir.I1)),
			Label: "next",
			False: "far",
		}}))
	})

	It("should stop at a producer lookup failure", func() {
		b := newBlock("entry", &ptx.Instruction{
			Opcode: ptx.OpAdd, Type: ptx.S32,
			D: ptx.Reg(1, ptx.S32), A: ptx.Reg(2, ptx.S32), B: ptx.Imm(ptx.S32, 1),
		})
		wire(b, nil, nil, nil, nil)
		mockGraph.EXPECT().ToSSA().Return(nil)
		mockGraph.EXPECT().Blocks().Return([]dataflow.Block{b}).AnyTimes()
		mockGraph.EXPECT().
			Producer(b, gomock.Any()).
			Return(nil, dataflow.ErrUnknownLabel)

		_, err := translator.TranslateGraph("broken", mockGraph)

		Expect(errors.Is(err, dataflow.ErrUnknownLabel)).To(BeTrue())
	})
})
